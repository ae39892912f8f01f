package claim

import (
	"github.com/quizdrop/quizdrop/db/dao"
	"github.com/quizdrop/quizdrop/db/model"
)

type DataProvider interface {
	GetClaimById(claimId string) (*model.RewardClaim, error)
	AdvanceClaim(claimId, walletAddress, txHash string, claimedAt int64) error
	GetPendingClaimsByWallet(walletAddress string) ([]*model.RewardClaim, error)
}

type DataHandler struct {
	daoManager *dao.DaoManager
}

func NewDataHandler(daoManager *dao.DaoManager) *DataHandler {
	return &DataHandler{
		daoManager: daoManager,
	}
}

func (h *DataHandler) GetClaimById(claimId string) (*model.RewardClaim, error) {
	return h.daoManager.GetClaimById(claimId)
}

func (h *DataHandler) AdvanceClaim(claimId, walletAddress, txHash string, claimedAt int64) error {
	return h.daoManager.AdvanceClaim(claimId, walletAddress, txHash, claimedAt)
}

func (h *DataHandler) GetPendingClaimsByWallet(walletAddress string) ([]*model.RewardClaim, error) {
	return h.daoManager.GetPendingClaimsByWallet(walletAddress)
}
