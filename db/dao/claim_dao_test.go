package dao

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/quizdrop/quizdrop/db/model"
)

type claimDaoSuite struct {
	suite.Suite
	dao *ClaimDao
	db  *Database
}

func TestClaimDaoSuite(t *testing.T) {
	suite.Run(t, new(claimDaoSuite))
}

func (s *claimDaoSuite) SetupSuite() {
	db, err := RunDB("claim_dao_test")
	s.Require().NoError(err)
	s.db = db
}

func (s *claimDaoSuite) TearDownSuite() {
	s.Require().NoError(s.db.StopDB())
}

func (s *claimDaoSuite) SetupTest() {
	s.db.InitTables()
	s.dao = NewClaimDao(s.db.DB)
}

func (s *claimDaoSuite) TearDownTest() {
	s.Require().NoError(s.db.ClearDB())
}

func (s *claimDaoSuite) seed(claimId string) {
	s.Require().NoError(s.db.DB.Create(&model.Winner{
		QuizId:           "quiz1",
		WalletAddress:    "0xaaa",
		CompletionTimeMs: 1000,
		UserKey:          "u1",
		RewardWei:        "100",
		CreatedTime:      1,
	}).Error)
	s.Require().NoError(s.dao.SaveClaim(&model.RewardClaim{
		Id:            claimId,
		WalletAddress: "0xaaa",
		QuizId:        "quiz1",
		Status:        model.ClaimPending,
		CreatedTime:   1,
	}))
}

// AdvanceClaim's status precondition makes the pending->claimed transition
// win-once: under concurrent identical requests exactly one update matches.
func (s *claimDaoSuite) TestAdvanceClaimConcurrentReplays() {
	s.seed("claim1")

	var advanced, missed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := s.dao.AdvanceClaim("claim1", "0xaaa", fmt.Sprintf("0xtx%d", n), int64(1000+n))
			if err == nil {
				advanced.Add(1)
			} else if errors.Is(err, ErrNoPendingClaim) {
				missed.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), advanced.Load())
	s.Equal(int32(9), missed.Load())

	claim, err := s.dao.GetClaimById("claim1")
	s.Require().NoError(err)
	s.Equal(model.ClaimClaimed, claim.Status)
	s.NotEmpty(claim.TxHash)

	winner := model.Winner{}
	s.Require().NoError(s.db.DB.Where("quiz_id = ? AND wallet_address = ?", "quiz1", "0xaaa").Take(&winner).Error)
	s.True(winner.Claimed)
	s.Equal(claim.TxHash, winner.ClaimTxHash)
}

// A claim whose winner row was deleted out of band still advances; the missing
// mirror is logged rather than rolling back the caller's claim.
func (s *claimDaoSuite) TestAdvanceClaimMissingWinnerRow() {
	s.Require().NoError(s.dao.SaveClaim(&model.RewardClaim{
		Id:            "orphan1",
		WalletAddress: "0xaaa",
		QuizId:        "quiz1",
		Status:        model.ClaimPending,
		CreatedTime:   1,
	}))

	s.Require().NoError(s.dao.AdvanceClaim("orphan1", "0xaaa", "0xtx", 2000))

	claim, err := s.dao.GetClaimById("orphan1")
	s.Require().NoError(err)
	s.Equal(model.ClaimClaimed, claim.Status)
	s.Equal("0xtx", claim.TxHash)
}

func (s *claimDaoSuite) TestGetDivergedClaims() {
	// a legacy row pair: claim already claimed, winner mirror never updated
	s.Require().NoError(s.db.DB.Create(&model.Winner{
		QuizId:           "quiz1",
		WalletAddress:    "0xaaa",
		CompletionTimeMs: 1000,
		UserKey:          "u1",
		RewardWei:        "100",
		Claimed:          false,
		CreatedTime:      1,
	}).Error)
	s.Require().NoError(s.dao.SaveClaim(&model.RewardClaim{
		Id:            "legacy1",
		WalletAddress: "0xaaa",
		QuizId:        "quiz1",
		Status:        model.ClaimClaimed,
		TxHash:        "0xold",
		ClaimedAt:     1,
		CreatedTime:   1,
	}))

	diverged, err := s.dao.GetDivergedClaims(10)
	s.Require().NoError(err)
	s.Require().Len(diverged, 1)
	s.Equal("legacy1", diverged[0].Id)

	s.Require().NoError(s.dao.RepairWinnerMirror(diverged[0]))

	winner := model.Winner{}
	s.Require().NoError(s.db.DB.Where("quiz_id = ?", "quiz1").Take(&winner).Error)
	s.True(winner.Claimed)
	s.Equal("0xold", winner.ClaimTxHash)

	// nothing left to repair
	diverged, err = s.dao.GetDivergedClaims(10)
	s.Require().NoError(err)
	s.Len(diverged, 0)
}
