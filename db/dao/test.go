package dao

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/quizdrop/quizdrop/db/model"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database wraps an in-memory sqlite database for unit tests. Each call gets
// its own database, so suites can run in parallel.
type Database struct {
	Name string
	DB   *gorm.DB
}

// RunDB opens an in-memory database for unit tests.
func RunDB(dbName string) (*Database, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", dbName)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	// sqlite permits one writer; a single pooled connection keeps concurrent
	// test writers queued on the pool instead of failing with a busy error.
	conn, err := db.DB()
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)

	return &Database{
		Name: dbName,
		DB:   db,
	}, nil
}

// StopDB releases the in-memory database.
func (d *Database) StopDB() error {
	conn, err := d.DB.DB()
	if err != nil {
		return err
	}
	return conn.Close()
}

// InitTables creates all application tables.
func (d *Database) InitTables() {
	model.InitPollTables(d.DB)
	model.InitQuizTables(d.DB)
	model.InitClaimTable(d.DB)
	model.InitNotificationTable(d.DB)
}

// ClearDB drops all application tables.
func (d *Database) ClearDB() error {
	return d.DB.Migrator().DropTable(
		&model.Poll{}, &model.PollVote{},
		&model.Quiz{}, &model.Winner{},
		&model.RewardClaim{}, &model.NotificationToken{},
	)
}
