package claim

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/quizdrop/quizdrop/common"
	"github.com/quizdrop/quizdrop/config"
	"github.com/quizdrop/quizdrop/db/dao"
	"github.com/quizdrop/quizdrop/db/model"
	"github.com/quizdrop/quizdrop/metrics"
	"github.com/quizdrop/quizdrop/util"
)

type recorderSuite struct {
	suite.Suite
	db         *dao.Database
	daoManager *dao.DaoManager
	recorder   *Recorder
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(recorderSuite))
}

func (s *recorderSuite) SetupSuite() {
	db, err := dao.RunDB("recorder_test")
	s.Require().NoError(err)
	s.db = db

	metricService := metrics.NewMetricService(&config.Config{})
	s.daoManager = dao.NewDaoManager(
		dao.NewPollDao(db.DB), dao.NewQuizDao(db.DB), dao.NewClaimDao(db.DB), dao.NewTokenDao(db.DB))
	s.recorder = NewRecorder(NewDataHandler(s.daoManager), metricService)
}

func (s *recorderSuite) TearDownSuite() {
	s.Require().NoError(s.db.StopDB())
}

func (s *recorderSuite) SetupTest() {
	s.db.InitTables()
}

func (s *recorderSuite) TearDownTest() {
	s.Require().NoError(s.db.ClearDB())
}

// seedWinnerWithClaim plants a winner row plus its pending claim, the state
// RegisterWinner leaves behind.
func (s *recorderSuite) seedWinnerWithClaim(quizId, wallet string) string {
	err := s.db.DB.Create(&model.Winner{
		QuizId:           quizId,
		WalletAddress:    wallet,
		CompletionTimeMs: 4000,
		UserKey:          "u1",
		RewardWei:        "250",
		CreatedTime:      util.NowMs(),
	}).Error
	s.Require().NoError(err)

	claimId := uuid.NewString()
	err = s.daoManager.SaveClaim(&model.RewardClaim{
		Id:            claimId,
		WalletAddress: wallet,
		QuizId:        quizId,
		Status:        model.ClaimPending,
		CreatedTime:   util.NowMs(),
	})
	s.Require().NoError(err)
	return claimId
}

func (s *recorderSuite) TestRecordClaim() {
	claimId := s.seedWinnerWithClaim("quiz1", "0xaaa")

	res, err := s.recorder.RecordClaim(claimId, "0xAAA", "0xtx1")
	s.Require().NoError(err)
	s.False(res.AlreadyClaimed)
	s.Equal("0xtx1", res.TxHash)

	stored, err := s.daoManager.GetClaimById(claimId)
	s.Require().NoError(err)
	s.Equal(model.ClaimClaimed, stored.Status)
	s.Equal("0xtx1", stored.TxHash)
	s.NotZero(stored.ClaimedAt)

	// the legacy winner mirror moved in the same transaction
	winner, err := s.daoManager.GetWinner("quiz1", "0xaaa")
	s.Require().NoError(err)
	s.True(winner.Claimed)
	s.Equal("0xtx1", winner.ClaimTxHash)
}

func (s *recorderSuite) TestRecordClaimIdempotentReplay() {
	claimId := s.seedWinnerWithClaim("quiz1", "0xaaa")

	_, err := s.recorder.RecordClaim(claimId, "0xaaa", "0xtx1")
	s.Require().NoError(err)

	// the same proof replayed reports success-already-happened
	res, err := s.recorder.RecordClaim(claimId, "0xaaa", "0xtx1")
	s.Require().NoError(err)
	s.True(res.AlreadyClaimed)

	stored, err := s.daoManager.GetClaimById(claimId)
	s.Require().NoError(err)
	s.Equal("0xtx1", stored.TxHash)
}

func (s *recorderSuite) TestRecordClaimConflictingReplay() {
	claimId := s.seedWinnerWithClaim("quiz1", "0xaaa")

	_, err := s.recorder.RecordClaim(claimId, "0xaaa", "0xtx1")
	s.Require().NoError(err)

	_, err = s.recorder.RecordClaim(claimId, "0xaaa", "0xtx2")
	s.Equal(common.CodeAlreadyClaimed, common.CodeOf(err))
	s.Equal(common.KindConflict, common.KindOf(err))

	// the stored proof is untouched
	stored, err := s.daoManager.GetClaimById(claimId)
	s.Require().NoError(err)
	s.Equal("0xtx1", stored.TxHash)
}

func (s *recorderSuite) TestRecordClaimNotFound() {
	_, err := s.recorder.RecordClaim("no-such-claim", "0xaaa", "0xtx1")
	s.Equal(common.KindNotFound, common.KindOf(err))
}

func (s *recorderSuite) TestRecordClaimWrongWallet() {
	claimId := s.seedWinnerWithClaim("quiz1", "0xaaa")

	_, err := s.recorder.RecordClaim(claimId, "0xbbb", "0xtx1")
	s.Equal(common.KindNotFound, common.KindOf(err))

	stored, err := s.daoManager.GetClaimById(claimId)
	s.Require().NoError(err)
	s.Equal(model.ClaimPending, stored.Status)
}

func (s *recorderSuite) TestRecordClaimRequiresTxHash() {
	claimId := s.seedWinnerWithClaim("quiz1", "0xaaa")

	_, err := s.recorder.RecordClaim(claimId, "0xaaa", "")
	s.Equal(common.KindValidation, common.KindOf(err))
}

func (s *recorderSuite) TestRecordClaimBatchBestEffort() {
	c1 := s.seedWinnerWithClaim("quiz1", "0xaaa")
	c2 := s.seedWinnerWithClaim("quiz2", "0xaaa")

	res := s.recorder.RecordClaimBatch("0xaaa", []*BatchEntry{
		{ClaimId: c1, TxHash: "0xtx1"},
		{ClaimId: "missing", TxHash: "0xtx2"},
		{ClaimId: c2, TxHash: "0xtx3"},
	})

	s.Equal(2, res.Succeeded)
	s.Equal(1, res.Failed)
	s.Require().Len(res.Entries, 3)
	s.NoError(res.Entries[0].Err)
	s.Error(res.Entries[1].Err)
	s.NoError(res.Entries[2].Err)

	// the bad middle entry did not stop the third
	stored, err := s.daoManager.GetClaimById(c2)
	s.Require().NoError(err)
	s.Equal(model.ClaimClaimed, stored.Status)
}

func (s *recorderSuite) TestPendingClaims() {
	s.seedWinnerWithClaim("quiz1", "0xaaa")
	c2 := s.seedWinnerWithClaim("quiz2", "0xaaa")

	_, err := s.recorder.RecordClaim(c2, "0xaaa", "0xtx1")
	s.Require().NoError(err)

	pending, err := s.recorder.PendingClaims("0xAAA")
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal("quiz1", pending[0].QuizId)
}
