package reconciler

import (
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/quizdrop/quizdrop/alert"
	"github.com/quizdrop/quizdrop/common"
	"github.com/quizdrop/quizdrop/config"
	"github.com/quizdrop/quizdrop/db/dao"
	"github.com/quizdrop/quizdrop/db/model"
	"github.com/quizdrop/quizdrop/logging"
	"github.com/quizdrop/quizdrop/metrics"
)

// Reconciler repairs the legacy dual-record claim shape: a claimed RewardClaim
// whose mirrored winner row still shows unclaimed. The transactional advance
// path cannot produce such rows; only records written before it can, so each
// repair is alerted as a data anomaly.
type Reconciler struct {
	daoManager    *dao.DaoManager
	metricService *metrics.MetricService
	alertConfig   *config.AlertConfig
}

func NewReconciler(daoManager *dao.DaoManager, metricService *metrics.MetricService, alertConfig *config.AlertConfig) *Reconciler {
	return &Reconciler{
		daoManager:    daoManager,
		metricService: metricService,
		alertConfig:   alertConfig,
	}
}

func (r *Reconciler) ReconcileLoop() {
	ticker := time.NewTicker(ReconcileInterval)
	for range ticker.C {
		if err := r.Reconcile(); err != nil {
			logging.Logger.Errorf("claim reconcile pass failed, err=%+v", err)
			time.Sleep(common.RetryInterval)
		}
	}
}

// Reconcile runs one repair pass over diverged claim mirrors.
func (r *Reconciler) Reconcile() error {
	var diverged []*model.RewardClaim
	err := retry.Do(func() error {
		var err error
		diverged, err = r.daoManager.GetDivergedClaims(ReconcileBatchSize)
		return err
	}, common.RetryAttempts, common.RetryDelay, common.RetryErr)
	if err != nil {
		return err
	}

	for _, c := range diverged {
		if err := r.daoManager.RepairWinnerMirror(c); err != nil {
			logging.Logger.Errorf("winner mirror repair failed, claim=%s err=%+v", c.Id, err)
			continue
		}
		r.metricService.IncClaimsReconciled()
		logging.Logger.Infof("winner mirror repaired, claim=%s quiz=%s wallet=%s", c.Id, c.QuizId, c.WalletAddress)
		alert.SendTelegramMessage(r.alertConfig.Identity, r.alertConfig.TelegramBotId, r.alertConfig.TelegramChatId,
			fmt.Sprintf("repaired diverged claim mirror, claim=%s quiz=%s wallet=%s", c.Id, c.QuizId, c.WalletAddress))
	}
	return nil
}
