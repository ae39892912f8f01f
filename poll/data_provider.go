package poll

import (
	"github.com/quizdrop/quizdrop/db/dao"
	"github.com/quizdrop/quizdrop/db/model"
)

type DataProvider interface {
	SavePoll(poll *model.Poll) error
	GetPollById(pollId string) (*model.Poll, error)
	SaveVotes(votes []*model.PollVote) error
	GetTally(pollId string) (map[int]int64, error)
	GetVotesByVoter(pollId, voterKey string) ([]*model.PollVote, error)
}

type DataHandler struct {
	daoManager *dao.DaoManager
}

func NewDataHandler(daoManager *dao.DaoManager) *DataHandler {
	return &DataHandler{
		daoManager: daoManager,
	}
}

func (h *DataHandler) SavePoll(poll *model.Poll) error {
	return h.daoManager.SavePoll(poll)
}

func (h *DataHandler) GetPollById(pollId string) (*model.Poll, error) {
	return h.daoManager.GetPollById(pollId)
}

func (h *DataHandler) SaveVotes(votes []*model.PollVote) error {
	return h.daoManager.SaveVotes(votes)
}

func (h *DataHandler) GetTally(pollId string) (map[int]int64, error) {
	return h.daoManager.GetTally(pollId)
}

func (h *DataHandler) GetVotesByVoter(pollId, voterKey string) ([]*model.PollVote, error) {
	return h.daoManager.GetVotesByVoter(pollId, voterKey)
}
