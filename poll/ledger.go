package poll

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quizdrop/quizdrop/common"
	"github.com/quizdrop/quizdrop/db/model"
	"github.com/quizdrop/quizdrop/logging"
	"github.com/quizdrop/quizdrop/metrics"
	"github.com/quizdrop/quizdrop/util"
)

// Ledger records ballots and aggregates tallies. It performs no locking of its
// own: the unique (poll_id, dedup_key) index is the only dedup enforcement, so
// concurrent duplicate votes lose at the store, not at a racy pre-check.
type Ledger struct {
	dataProvider  DataProvider
	metricService *metrics.MetricService
}

func NewLedger(dataProvider DataProvider, metricService *metrics.MetricService) *Ledger {
	return &Ledger{
		dataProvider:  dataProvider,
		metricService: metricService,
	}
}

type CreatePollRequest struct {
	Title          string
	Options        []string
	MultipleChoice bool
	Anonymous      bool
	ExpiresAt      int64
	GateToken      string
	CreatorKey     string
}

func (l *Ledger) CreatePoll(req *CreatePollRequest) (*model.Poll, error) {
	if req.Title == "" {
		return nil, common.NewValidationError(common.CodeInvalidOption, "poll title is required")
	}
	if len(req.Options) < 2 {
		return nil, common.NewValidationError(common.CodeInvalidOption, "poll needs at least 2 options, got %d", len(req.Options))
	}

	options := make([]model.PollOption, 0, len(req.Options))
	for i, text := range req.Options {
		if text == "" {
			return nil, common.NewValidationError(common.CodeInvalidOption, "option %d is empty", i)
		}
		options = append(options, model.PollOption{Index: i, Text: text})
	}
	optionsJson, err := json.Marshal(options)
	if err != nil {
		return nil, common.NewValidationError(common.CodeInvalidOption, "cannot encode options: %s", err.Error())
	}

	poll := &model.Poll{
		Id:             uuid.NewString(),
		Title:          req.Title,
		Options:        optionsJson,
		MultipleChoice: req.MultipleChoice,
		Anonymous:      req.Anonymous,
		ExpiresAt:      req.ExpiresAt,
		GateToken:      req.GateToken,
		CreatorKey:     req.CreatorKey,
		CreatedTime:    util.NowMs(),
	}
	if err := l.dataProvider.SavePoll(poll); err != nil {
		return nil, common.NewStoreError(err, "save poll")
	}
	return poll, nil
}

type VoteResult struct {
	AcceptedOptions []int
}

// CastVote validates and stores one ballot per accepted option. All accepted
// options are written in one transaction; a uniqueness violation aborts the
// whole ballot and surfaces as AlreadyVoted.
func (l *Ledger) CastVote(pollId, voterKey, walletAddress string, optionIndexes []int) (*VoteResult, error) {
	res, err := l.castVote(pollId, voterKey, walletAddress, optionIndexes)
	if err != nil {
		l.metricService.IncVotesRejected()
		return nil, err
	}
	l.metricService.IncVotesAccepted()
	return res, nil
}

func (l *Ledger) castVote(pollId, voterKey, walletAddress string, optionIndexes []int) (*VoteResult, error) {
	poll, err := l.dataProvider.GetPollById(pollId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewNotFoundError("poll %s not found", pollId)
		}
		return nil, common.NewStoreError(err, "load poll %s", pollId)
	}

	now := util.NowMs()
	if poll.ExpiresAt > 0 && now >= poll.ExpiresAt {
		return nil, common.NewConflictError(common.CodePollEnded, "poll %s expired", pollId)
	}

	optionCount, err := pollOptionCount(poll)
	if err != nil {
		return nil, common.NewStoreError(err, "decode options of poll %s", pollId)
	}

	indexes := dedupIndexes(optionIndexes)
	if len(indexes) == 0 {
		return nil, common.NewValidationError(common.CodeInvalidOption, "no option selected")
	}
	for _, idx := range indexes {
		if idx < 0 || idx >= optionCount {
			return nil, common.NewValidationError(common.CodeInvalidOption, "option %d out of range [0, %d)", idx, optionCount)
		}
	}
	if !poll.MultipleChoice && len(indexes) > 1 {
		return nil, common.NewValidationError(common.CodeTooManyOptions, "poll %s is single-choice, got %d options", pollId, len(indexes))
	}
	if poll.GateToken != "" && walletAddress == "" {
		return nil, common.NewValidationError(common.CodeInvalidOption, "poll %s is token-gated and requires a wallet", pollId)
	}

	wallet := util.NormalizeAddress(walletAddress)
	votes := make([]*model.PollVote, 0, len(indexes))
	for _, idx := range indexes {
		votes = append(votes, &model.PollVote{
			PollId:        pollId,
			VoterKey:      voterKey,
			WalletAddress: wallet,
			OptionIndex:   idx,
			DedupKey:      dedupKey(poll, voterKey, idx),
			CreatedTime:   now,
		})
	}

	if err := l.dataProvider.SaveVotes(votes); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, common.NewConflictError(common.CodeAlreadyVoted, "voter %s already voted on poll %s", voterKey, pollId)
		}
		return nil, common.NewStoreError(err, "save votes for poll %s", pollId)
	}

	logging.Logger.Infof("ballot recorded, poll=%s voter=%s options=%v", pollId, voterKey, indexes)
	return &VoteResult{AcceptedOptions: indexes}, nil
}

func (l *Ledger) Tally(pollId string) (map[int]int64, error) {
	if _, err := l.dataProvider.GetPollById(pollId); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewNotFoundError("poll %s not found", pollId)
		}
		return nil, common.NewStoreError(err, "load poll %s", pollId)
	}
	tally, err := l.dataProvider.GetTally(pollId)
	if err != nil {
		return nil, common.NewStoreError(err, "tally poll %s", pollId)
	}
	return tally, nil
}

type VoteStatus struct {
	Voted        bool
	VotedOptions []int
}

func (l *Ledger) HasVoted(pollId, voterKey string) (*VoteStatus, error) {
	votes, err := l.dataProvider.GetVotesByVoter(pollId, voterKey)
	if err != nil {
		return nil, common.NewStoreError(err, "load votes of %s on poll %s", voterKey, pollId)
	}
	status := &VoteStatus{Voted: len(votes) > 0, VotedOptions: make([]int, 0, len(votes))}
	for _, v := range votes {
		status.VotedOptions = append(status.VotedOptions, v.OptionIndex)
	}
	return status, nil
}

// dedupKey scopes the uniqueness constraint: one row per voter on
// single-choice polls, one row per (voter, option) on multiple-choice ones.
func dedupKey(poll *model.Poll, voterKey string, optionIndex int) string {
	if poll.MultipleChoice {
		return fmt.Sprintf("%s:%d", voterKey, optionIndex)
	}
	return voterKey
}

func pollOptionCount(poll *model.Poll) (int, error) {
	options := []model.PollOption{}
	if err := json.Unmarshal(poll.Options, &options); err != nil {
		return 0, err
	}
	return len(options), nil
}

func dedupIndexes(indexes []int) []int {
	seen := make(map[int]bool, len(indexes))
	out := make([]int, 0, len(indexes))
	for _, idx := range indexes {
		if !seen[idx] {
			seen[idx] = true
			out = append(out, idx)
		}
	}
	sort.Ints(out)
	return out
}
