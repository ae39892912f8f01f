package quiz

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quizdrop/quizdrop/common"
	"github.com/quizdrop/quizdrop/db/dao"
	"github.com/quizdrop/quizdrop/db/model"
	"github.com/quizdrop/quizdrop/logging"
	"github.com/quizdrop/quizdrop/metrics"
	"github.com/quizdrop/quizdrop/util"
)

// WinnerNotifier receives the celebratory notification after a slot is
// allocated. Delivery is fire-and-forget: a failed or rate-limited send never
// affects the registration that triggered it.
type WinnerNotifier interface {
	NotifyWinner(recipientKey, quizTitle, rewardWei string)
}

// Registry allocates winner slots and serves the leaderboard. Slot capacity is
// enforced by the conditional counter update in the dao, never by a
// read-then-insert check.
type Registry struct {
	dataProvider  DataProvider
	notifier      WinnerNotifier
	metricService *metrics.MetricService
}

func NewRegistry(dataProvider DataProvider, notifier WinnerNotifier, metricService *metrics.MetricService) *Registry {
	return &Registry{
		dataProvider:  dataProvider,
		notifier:      notifier,
		metricService: metricService,
	}
}

type CreateQuizRequest struct {
	Title         string
	Questions     []model.QuizQuestion
	RewardPoolWei string
	WinnerLimit   int
	Tiers         []model.PayoutTier
	EntryFeeWei   string
	EndTime       int64
}

func (r *Registry) CreateQuiz(req *CreateQuizRequest) (*model.Quiz, error) {
	if req.Title == "" {
		return nil, common.NewValidationError(common.CodeInvalidOption, "quiz title is required")
	}
	if len(req.Questions) == 0 {
		return nil, common.NewValidationError(common.CodeInvalidOption, "quiz needs at least one question")
	}
	if req.WinnerLimit < 0 {
		return nil, common.NewValidationError(common.CodeInvalidOption, "winner limit %d is negative", req.WinnerLimit)
	}
	pool := req.RewardPoolWei
	if pool == "" {
		pool = "0"
	}
	if err := ValidateTiers(req.Tiers, req.WinnerLimit); err != nil {
		return nil, common.NewValidationError(common.CodeInvalidOption, "%s", err.Error())
	}

	questionsJson, err := json.Marshal(req.Questions)
	if err != nil {
		return nil, common.NewValidationError(common.CodeInvalidOption, "cannot encode questions: %s", err.Error())
	}
	var tiersJson []byte
	if len(req.Tiers) > 0 {
		tiersJson, err = json.Marshal(req.Tiers)
		if err != nil {
			return nil, common.NewValidationError(common.CodeInvalidOption, "cannot encode tiers: %s", err.Error())
		}
	}

	quiz := &model.Quiz{
		Id:            uuid.NewString(),
		Title:         req.Title,
		Questions:     questionsJson,
		RewardPoolWei: pool,
		WinnerLimit:   req.WinnerLimit,
		Tiers:         tiersJson,
		EntryFeeWei:   req.EntryFeeWei,
		EndTime:       req.EndTime,
		CreatedTime:   util.NowMs(),
	}
	if err := r.dataProvider.SaveQuiz(quiz); err != nil {
		return nil, common.NewStoreError(err, "save quiz")
	}
	return quiz, nil
}

// Questions returns the question set of a quiz with the answer key stripped.
// This is the only quiz question view handed to clients before submission.
func (r *Registry) Questions(quizId string) ([]model.RedactedQuestion, error) {
	quiz, err := r.dataProvider.GetQuizById(quizId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewNotFoundError("quiz %s not found", quizId)
		}
		return nil, common.NewStoreError(err, "load quiz %s", quizId)
	}

	var questions []model.QuizQuestion
	if err := json.Unmarshal(quiz.Questions, &questions); err != nil {
		return nil, common.NewStoreError(err, "decode questions of quiz %s", quizId)
	}
	redacted := make([]model.RedactedQuestion, 0, len(questions))
	for i := range questions {
		redacted = append(redacted, questions[i].Redacted())
	}
	return redacted, nil
}

// RegisterWinner atomically claims a winner slot for the wallet and freezes
// its reward. At most WinnerLimit rows can ever exist for a finite quiz.
func (r *Registry) RegisterWinner(quizId, walletAddress string, completionTimeMs int64, userKey string) (*model.Winner, error) {
	winner, err := r.registerWinner(quizId, walletAddress, completionTimeMs, userKey)
	if err != nil {
		if common.KindOf(err) == common.KindConflict {
			r.metricService.IncWinnersRejected()
		}
		return nil, err
	}
	r.metricService.IncWinnersRegistered()
	return winner, nil
}

func (r *Registry) registerWinner(quizId, walletAddress string, completionTimeMs int64, userKey string) (*model.Winner, error) {
	if walletAddress == "" {
		return nil, common.NewValidationError(common.CodeInvalidOption, "wallet address is required")
	}
	if completionTimeMs <= 0 {
		return nil, common.NewValidationError(common.CodeInvalidOption, "completion time %d must be positive", completionTimeMs)
	}

	quiz, err := r.dataProvider.GetQuizById(quizId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewNotFoundError("quiz %s not found", quizId)
		}
		return nil, common.NewStoreError(err, "load quiz %s", quizId)
	}

	now := util.NowMs()
	if quiz.EndTime > 0 && now >= quiz.EndTime {
		return nil, common.NewConflictError(common.CodeQuizEnded, "quiz %s ended", quizId)
	}

	wallet := util.NormalizeAddress(walletAddress)
	winner := &model.Winner{
		QuizId:           quizId,
		WalletAddress:    wallet,
		CompletionTimeMs: completionTimeMs,
		UserKey:          userKey,
		CreatedTime:      now,
	}
	claim := &model.RewardClaim{
		Id:            uuid.NewString(),
		WalletAddress: wallet,
		QuizId:        quizId,
		Status:        model.ClaimPending,
		CreatedTime:   now,
	}

	err = r.dataProvider.AllocateWinnerSlot(quizId, winner, claim, RewardForRank)
	if err != nil {
		if errors.Is(err, dao.ErrQuizFull) {
			return nil, common.NewConflictError(common.CodeQuizFull, "quiz %s has no slots left", quizId)
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, common.NewConflictError(common.CodeAlreadyWinner, "wallet %s already holds a slot on quiz %s", wallet, quizId)
		}
		return nil, common.NewStoreError(err, "allocate winner slot on quiz %s", quizId)
	}

	logging.Logger.Infof("winner registered, quiz=%s wallet=%s time_ms=%d reward=%s", quizId, wallet, completionTimeMs, winner.RewardWei)
	if r.notifier != nil {
		go r.notifier.NotifyWinner(userKey, quiz.Title, winner.RewardWei)
	}
	return winner, nil
}

type LeaderboardEntry struct {
	Rank             int
	WalletAddress    string
	UserKey          string
	CompletionTimeMs int64
	RewardWei        string
	Claimed          bool
}

// Leaderboard returns winners ranked by completion time, ties broken by
// insertion order. The ordering is stable across calls on unchanged data.
func (r *Registry) Leaderboard(quizId string) ([]*LeaderboardEntry, error) {
	if _, err := r.dataProvider.GetQuizById(quizId); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewNotFoundError("quiz %s not found", quizId)
		}
		return nil, common.NewStoreError(err, "load quiz %s", quizId)
	}

	winners, err := r.dataProvider.GetWinnersByQuizId(quizId)
	if err != nil {
		return nil, common.NewStoreError(err, "load winners of quiz %s", quizId)
	}

	entries := make([]*LeaderboardEntry, 0, len(winners))
	for i, w := range winners {
		entries = append(entries, &LeaderboardEntry{
			Rank:             i,
			WalletAddress:    w.WalletAddress,
			UserKey:          w.UserKey,
			CompletionTimeMs: w.CompletionTimeMs,
			RewardWei:        w.RewardWei,
			Claimed:          w.Claimed,
		})
	}
	return entries, nil
}
