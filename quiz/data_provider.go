package quiz

import (
	"github.com/quizdrop/quizdrop/db/dao"
	"github.com/quizdrop/quizdrop/db/model"
)

type DataProvider interface {
	SaveQuiz(quiz *model.Quiz) error
	GetQuizById(quizId string) (*model.Quiz, error)
	AllocateWinnerSlot(quizId string, winner *model.Winner, claim *model.RewardClaim, rewardFor func(quiz *model.Quiz, rank int) (string, error)) error
	GetWinnersByQuizId(quizId string) ([]*model.Winner, error)
	GetWinner(quizId, walletAddress string) (*model.Winner, error)
}

type DataHandler struct {
	daoManager *dao.DaoManager
}

func NewDataHandler(daoManager *dao.DaoManager) *DataHandler {
	return &DataHandler{
		daoManager: daoManager,
	}
}

func (h *DataHandler) SaveQuiz(quiz *model.Quiz) error {
	return h.daoManager.SaveQuiz(quiz)
}

func (h *DataHandler) GetQuizById(quizId string) (*model.Quiz, error) {
	return h.daoManager.GetQuizById(quizId)
}

func (h *DataHandler) AllocateWinnerSlot(quizId string, winner *model.Winner, claim *model.RewardClaim, rewardFor func(quiz *model.Quiz, rank int) (string, error)) error {
	return h.daoManager.AllocateWinnerSlot(quizId, winner, claim, rewardFor)
}

func (h *DataHandler) GetWinnersByQuizId(quizId string) ([]*model.Winner, error) {
	return h.daoManager.GetWinnersByQuizId(quizId)
}

func (h *DataHandler) GetWinner(quizId, walletAddress string) (*model.Winner, error) {
	return h.daoManager.GetWinner(quizId, walletAddress)
}
