package notify

import (
	"github.com/quizdrop/quizdrop/db/dao"
	"github.com/quizdrop/quizdrop/db/model"
)

type DataProvider interface {
	SaveToken(token *model.NotificationToken) error
	DisableToken(recipientKey, token string, updatedTime int64) error
	DeleteTokensByRecipient(recipientKey string) error
	GetEnabledTokensByRecipient(recipientKey string) ([]*model.NotificationToken, error)
	GetEnabledTokens() ([]*model.NotificationToken, error)
}

type DataHandler struct {
	daoManager *dao.DaoManager
}

func NewDataHandler(daoManager *dao.DaoManager) *DataHandler {
	return &DataHandler{
		daoManager: daoManager,
	}
}

func (h *DataHandler) SaveToken(token *model.NotificationToken) error {
	return h.daoManager.SaveToken(token)
}

func (h *DataHandler) DisableToken(recipientKey, token string, updatedTime int64) error {
	return h.daoManager.DisableToken(recipientKey, token, updatedTime)
}

func (h *DataHandler) DeleteTokensByRecipient(recipientKey string) error {
	return h.daoManager.DeleteTokensByRecipient(recipientKey)
}

func (h *DataHandler) GetEnabledTokensByRecipient(recipientKey string) ([]*model.NotificationToken, error) {
	return h.daoManager.GetEnabledTokensByRecipient(recipientKey)
}

func (h *DataHandler) GetEnabledTokens() ([]*model.NotificationToken, error) {
	return h.daoManager.GetEnabledTokens()
}
