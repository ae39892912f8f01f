package app

import (
	"encoding/json"
	"fmt"

	"github.com/avast/retry-go/v4"
	"github.com/glebarez/sqlite"
	"github.com/spf13/viper"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/quizdrop/quizdrop/auth"
	"github.com/quizdrop/quizdrop/claim"
	"github.com/quizdrop/quizdrop/common"
	"github.com/quizdrop/quizdrop/config"
	"github.com/quizdrop/quizdrop/db/dao"
	"github.com/quizdrop/quizdrop/db/model"
	"github.com/quizdrop/quizdrop/metrics"
	"github.com/quizdrop/quizdrop/notify"
	"github.com/quizdrop/quizdrop/poll"
	"github.com/quizdrop/quizdrop/quiz"
	"github.com/quizdrop/quizdrop/reconciler"
)

// App owns the wired service graph. The API layer consumes the exported
// services; the app itself only runs the background loops.
type App struct {
	VoteLedger     *poll.Ledger
	WinnerRegistry *quiz.Registry
	ClaimRecorder  *claim.Recorder
	Dispatcher     *notify.Dispatcher
	Verifier       auth.Verifier

	claimReconciler *reconciler.Reconciler
	metricService   *metrics.MetricService
}

func NewApp(cfg *config.Config) *App {
	db := openDB(cfg)

	model.InitPollTables(db)
	model.InitQuizTables(db)
	model.InitClaimTable(db)
	model.InitNotificationTable(db)

	pollDao := dao.NewPollDao(db)
	quizDao := dao.NewQuizDao(db)
	claimDao := dao.NewClaimDao(db)
	tokenDao := dao.NewTokenDao(db)
	daoManager := dao.NewDaoManager(pollDao, quizDao, claimDao, tokenDao)

	metricService := metrics.NewMetricService(cfg)

	limiter := notify.NewLimiter()
	notifyDataHandler := notify.NewDataHandler(daoManager)
	dispatcher := notify.NewDispatcher(notifyDataHandler, limiter, metricService, cfg.NotifyConfig.AppTargetURL)

	pollDataHandler := poll.NewDataHandler(daoManager)
	voteLedger := poll.NewLedger(pollDataHandler, metricService)

	quizDataHandler := quiz.NewDataHandler(daoManager)
	winnerRegistry := quiz.NewRegistry(quizDataHandler, dispatcher, metricService)

	claimDataHandler := claim.NewDataHandler(daoManager)
	claimRecorder := claim.NewRecorder(claimDataHandler, metricService)

	claimReconciler := reconciler.NewReconciler(daoManager, metricService, &cfg.AlertConfig)

	verifier := auth.NewRemoteVerifier(cfg.AuthConfig.VerifierURL)

	return &App{
		VoteLedger:      voteLedger,
		WinnerRegistry:  winnerRegistry,
		ClaimRecorder:   claimRecorder,
		Dispatcher:      dispatcher,
		Verifier:        verifier,
		claimReconciler: claimReconciler,
		metricService:   metricService,
	}
}

func (a *App) Start() {
	go a.claimReconciler.ReconcileLoop()
	go a.metricService.Start()
}

func openDB(cfg *config.Config) *gorm.DB {
	var dialector gorm.Dialector
	switch cfg.DBConfig.Dialect {
	case config.DBDialectSqlite3:
		dialector = sqlite.Open(cfg.DBConfig.DBPath)
	default:
		username := cfg.DBConfig.Username
		password := viper.GetString(config.FlagConfigDbPass)
		if password == "" {
			password = getDBPass(&cfg.DBConfig)
		}
		dialector = mysql.Open(fmt.Sprintf("%s:%s@%s", username, password, cfg.DBConfig.DBPath))
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		panic(fmt.Sprintf("open db error, err=%+v", err.Error()))
	}

	dbConfig, err := db.DB()
	if err != nil {
		panic(err)
	}
	if cfg.DBConfig.MaxIdleConns > 0 {
		dbConfig.SetMaxIdleConns(cfg.DBConfig.MaxIdleConns)
	}
	if cfg.DBConfig.MaxOpenConns > 0 {
		dbConfig.SetMaxOpenConns(cfg.DBConfig.MaxOpenConns)
	}

	err = retry.Do(dbConfig.Ping, common.RetryAttempts, common.RetryDelay, common.RetryErr)
	if err != nil {
		panic(fmt.Sprintf("db ping error, err=%+v", err.Error()))
	}
	return db
}

func getDBPass(cfg *config.DBConfig) string {
	if cfg.KeyType == config.KeyTypeAWSPrivateKey {
		result, err := config.GetSecret(cfg.AWSSecretName, cfg.AWSRegion)
		if err != nil {
			panic(err)
		}
		type DBPass struct {
			DbPass string `json:"db_pass"`
		}
		var dbPassword DBPass
		err = json.Unmarshal([]byte(result), &dbPassword)
		if err != nil {
			panic(err)
		}
		return dbPassword.DbPass
	}
	return cfg.Password
}
