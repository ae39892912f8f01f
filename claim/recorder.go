package claim

import (
	"errors"

	"gorm.io/gorm"

	"github.com/quizdrop/quizdrop/common"
	"github.com/quizdrop/quizdrop/db/dao"
	"github.com/quizdrop/quizdrop/db/model"
	"github.com/quizdrop/quizdrop/logging"
	"github.com/quizdrop/quizdrop/metrics"
	"github.com/quizdrop/quizdrop/util"
)

// Recorder advances reward claims from pending to claimed. The status
// precondition inside the dao transaction makes the advance exactly-once, and
// the legacy winner mirror is updated in the same transaction.
type Recorder struct {
	dataProvider  DataProvider
	metricService *metrics.MetricService
}

func NewRecorder(dataProvider DataProvider, metricService *metrics.MetricService) *Recorder {
	return &Recorder{
		dataProvider:  dataProvider,
		metricService: metricService,
	}
}

type ClaimResult struct {
	ClaimId string
	TxHash  string
	// AlreadyClaimed is set when the claim was claimed before this call with
	// the same tx hash; the caller should treat this as success.
	AlreadyClaimed bool
}

// RecordClaim marks the claim as paid out, proven by txHash. Replaying the
// same (claimId, wallet, txHash) is a no-op reported as AlreadyClaimed; a
// replay with a different tx hash is a conflict worth alerting on.
func (r *Recorder) RecordClaim(claimId, walletAddress, txHash string) (*ClaimResult, error) {
	if txHash == "" {
		return nil, common.NewValidationError(common.CodeInvalidOption, "tx hash is required")
	}
	wallet := util.NormalizeAddress(walletAddress)

	err := r.dataProvider.AdvanceClaim(claimId, wallet, txHash, util.NowMs())
	if err == nil {
		r.metricService.IncClaimsRecorded()
		logging.Logger.Infof("claim recorded, claim=%s wallet=%s tx=%s", claimId, wallet, txHash)
		return &ClaimResult{ClaimId: claimId, TxHash: txHash}, nil
	}
	if !errors.Is(err, dao.ErrNoPendingClaim) {
		return nil, common.NewStoreError(err, "advance claim %s", claimId)
	}

	// The conditional update matched nothing: find out why.
	stored, err := r.dataProvider.GetClaimById(claimId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewNotFoundError("claim %s not found", claimId)
		}
		return nil, common.NewStoreError(err, "load claim %s", claimId)
	}
	if stored.WalletAddress != wallet {
		return nil, common.NewNotFoundError("claim %s does not belong to wallet %s", claimId, wallet)
	}
	if stored.Status == model.ClaimClaimed {
		if stored.TxHash == txHash {
			// idempotent replay, the claim event already happened once
			return &ClaimResult{ClaimId: claimId, TxHash: txHash, AlreadyClaimed: true}, nil
		}
		r.metricService.IncClaimConflicts()
		logging.Logger.Errorf("claim %s already claimed with tx=%s, replay carried tx=%s", claimId, stored.TxHash, txHash)
		return nil, common.NewConflictError(common.CodeAlreadyClaimed, "claim %s already claimed with a different tx hash", claimId)
	}
	// pending but unmatched should not happen; surface as retryable
	return nil, common.NewStoreError(dao.ErrNoPendingClaim, "claim %s pending but not advanced", claimId)
}

type BatchEntry struct {
	ClaimId string
	TxHash  string
}

type BatchEntryResult struct {
	ClaimId string
	TxHash  string
	Err     error
}

type BatchResult struct {
	Succeeded int
	Failed    int
	Entries   []*BatchEntryResult
}

// RecordClaimBatch applies RecordClaim per entry and reports per-entry
// outcomes. One bad entry never aborts the rest.
func (r *Recorder) RecordClaimBatch(walletAddress string, entries []*BatchEntry) *BatchResult {
	result := &BatchResult{Entries: make([]*BatchEntryResult, 0, len(entries))}
	for _, entry := range entries {
		_, err := r.RecordClaim(entry.ClaimId, walletAddress, entry.TxHash)
		if err != nil {
			result.Failed++
			logging.Logger.Errorf("batch claim entry failed, claim=%s err=%s", entry.ClaimId, err.Error())
		} else {
			result.Succeeded++
		}
		result.Entries = append(result.Entries, &BatchEntryResult{
			ClaimId: entry.ClaimId,
			TxHash:  entry.TxHash,
			Err:     err,
		})
	}
	return result
}

// PendingClaims lists a wallet's unpaid claims, oldest first.
func (r *Recorder) PendingClaims(walletAddress string) ([]*model.RewardClaim, error) {
	claims, err := r.dataProvider.GetPendingClaimsByWallet(util.NormalizeAddress(walletAddress))
	if err != nil {
		return nil, common.NewStoreError(err, "load pending claims of %s", walletAddress)
	}
	return claims, nil
}
