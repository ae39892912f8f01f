package dao

import (
	"github.com/quizdrop/quizdrop/db/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TokenDao struct {
	DB *gorm.DB
}

func NewTokenDao(db *gorm.DB) *TokenDao {
	return &TokenDao{
		DB: db,
	}
}

// SaveToken upserts on (recipient_key, token) so a re-sent opt-in event
// re-enables a previously disabled token instead of failing.
func (d *TokenDao) SaveToken(token *model.NotificationToken) error {
	return d.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "recipient_key"}, {Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"relay_url", "enabled", "updated_time",
		}),
	}).Create(token).Error
}

func (d *TokenDao) DisableToken(recipientKey, token string, updatedTime int64) error {
	return d.DB.Model(&model.NotificationToken{}).
		Where("recipient_key = ?", recipientKey).
		Where("token = ?", token).
		Updates(map[string]interface{}{
			"enabled":      false,
			"updated_time": updatedTime,
		}).Error
}

func (d *TokenDao) DeleteTokensByRecipient(recipientKey string) error {
	return d.DB.
		Where("recipient_key = ?", recipientKey).
		Delete(&model.NotificationToken{}).Error
}

func (d *TokenDao) GetEnabledTokensByRecipient(recipientKey string) ([]*model.NotificationToken, error) {
	tokens := make([]*model.NotificationToken, 0)
	err := d.DB.
		Where("recipient_key = ?", recipientKey).
		Where("enabled = ?", true).
		Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (d *TokenDao) GetEnabledTokens() ([]*model.NotificationToken, error) {
	tokens := make([]*model.NotificationToken, 0)
	err := d.DB.
		Where("enabled = ?", true).
		Order("recipient_key asc").
		Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}
