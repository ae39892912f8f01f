package dao

import (
	"errors"

	"github.com/quizdrop/quizdrop/db/model"
	"github.com/quizdrop/quizdrop/logging"
	"gorm.io/gorm"
)

// ErrNoPendingClaim is returned when the conditional status update matches no
// row: the claim is missing, belongs to another wallet, or is already claimed.
// Callers distinguish those cases with a follow-up read.
var ErrNoPendingClaim = errors.New("no pending claim matched")

type ClaimDao struct {
	DB *gorm.DB
}

func NewClaimDao(db *gorm.DB) *ClaimDao {
	return &ClaimDao{
		DB: db,
	}
}

func (d *ClaimDao) SaveClaim(claim *model.RewardClaim) error {
	return d.DB.Create(claim).Error
}

func (d *ClaimDao) GetClaimById(claimId string) (*model.RewardClaim, error) {
	claim := model.RewardClaim{}
	err := d.DB.Where("id = ?", claimId).Take(&claim).Error
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

func (d *ClaimDao) GetPendingClaimsByWallet(walletAddress string) ([]*model.RewardClaim, error) {
	claims := make([]*model.RewardClaim, 0)
	err := d.DB.
		Where("wallet_address = ?", walletAddress).
		Where("status = ?", model.ClaimPending).
		Order("created_time asc").
		Find(&claims).Error
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// AdvanceClaim moves one claim from pending to claimed and mirrors the result
// onto the legacy winner row, both inside one transaction. The status
// precondition on the update makes the advance exactly-once: a replay matches
// zero rows and returns ErrNoPendingClaim without touching either record.
func (d *ClaimDao) AdvanceClaim(claimId, walletAddress, txHash string, claimedAt int64) error {
	return d.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.RewardClaim{}).
			Where("id = ?", claimId).
			Where("wallet_address = ?", walletAddress).
			Where("status = ?", model.ClaimPending).
			Updates(map[string]interface{}{
				"status":     model.ClaimClaimed,
				"tx_hash":    txHash,
				"claimed_at": claimedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoPendingClaim
		}

		claim := model.RewardClaim{}
		if err := tx.Where("id = ?", claimId).Take(&claim).Error; err != nil {
			return err
		}

		mirror := tx.Model(&model.Winner{}).
			Where("quiz_id = ?", claim.QuizId).
			Where("wallet_address = ?", walletAddress).
			Updates(map[string]interface{}{
				"claimed":       true,
				"claim_tx_hash": txHash,
			})
		if mirror.Error != nil {
			return mirror.Error
		}
		if mirror.RowsAffected == 0 {
			// every claim is created alongside its winner row, so a missing
			// mirror means the winner was deleted out of band
			logging.Logger.Errorf("no winner row to mirror claim, claim_id=%s quiz_id=%s wallet=%s", claimId, claim.QuizId, walletAddress)
		}
		return nil
	})
}

// GetDivergedClaims finds claimed rows whose legacy winner mirror still shows
// unclaimed. Rows written by AdvanceClaim cannot diverge; these are leftovers
// from the pre-transactional schema.
func (d *ClaimDao) GetDivergedClaims(limit int) ([]*model.RewardClaim, error) {
	claims := make([]*model.RewardClaim, 0)
	err := d.DB.Model(&model.RewardClaim{}).
		Select("reward_claims.*").
		Joins("JOIN winners ON winners.quiz_id = reward_claims.quiz_id AND winners.wallet_address = reward_claims.wallet_address").
		Where("reward_claims.status = ?", model.ClaimClaimed).
		Where("winners.claimed = ?", false).
		Limit(limit).
		Find(&claims).Error
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (d *ClaimDao) RepairWinnerMirror(claim *model.RewardClaim) error {
	return d.DB.Model(&model.Winner{}).
		Where("quiz_id = ?", claim.QuizId).
		Where("wallet_address = ?", claim.WalletAddress).
		Where("claimed = ?", false).
		Updates(map[string]interface{}{
			"claimed":       true,
			"claim_tx_hash": claim.TxHash,
		}).Error
}
