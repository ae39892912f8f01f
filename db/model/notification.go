package model

import (
	"gorm.io/gorm"
)

type NotificationToken struct {
	Id           int64  `gorm:"primaryKey;autoIncrement"`
	RecipientKey string `gorm:"NOT NULL;size:64;uniqueIndex:idx_recipient_token;index:idx_token_recipient"`
	Token        string `gorm:"NOT NULL;size:191;uniqueIndex:idx_recipient_token"`
	RelayURL     string `gorm:"NOT NULL"`
	Enabled      bool   `gorm:"NOT NULL"`
	UpdatedTime  int64  `gorm:"NOT NULL"`
}

func (*NotificationToken) TableName() string {
	return "notification_tokens"
}

func InitNotificationTable(db *gorm.DB) {
	if !db.Migrator().HasTable(&NotificationToken{}) {
		err := db.Migrator().CreateTable(&NotificationToken{})
		if err != nil {
			panic(err)
		}
	}
}
