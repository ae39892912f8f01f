package dao

import (
	"errors"

	"github.com/quizdrop/quizdrop/db/model"
	"gorm.io/gorm"
)

// ErrQuizFull is returned when the conditional slot update matches no row,
// meaning the quiz's winner limit is already reached.
var ErrQuizFull = errors.New("quiz winner slots exhausted")

type QuizDao struct {
	DB *gorm.DB
}

func NewQuizDao(db *gorm.DB) *QuizDao {
	return &QuizDao{
		DB: db,
	}
}

func (d *QuizDao) SaveQuiz(quiz *model.Quiz) error {
	return d.DB.Create(quiz).Error
}

func (d *QuizDao) GetQuizById(quizId string) (*model.Quiz, error) {
	quiz := model.Quiz{}
	err := d.DB.Where("id = ?", quizId).Take(&quiz).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

// AllocateWinnerSlot claims one winner slot as a single transaction: a
// conditional counter update that fails once capacity is reached, the winner
// insert (its unique (quiz_id, wallet_address) index rejects double finishes,
// rolling the counter back), and the pending reward claim for paid quizzes.
// rewardFor is evaluated inside the transaction with the rank the counter
// update just allocated, so the frozen amount matches the winner's rank even
// under concurrent finishers.
func (d *QuizDao) AllocateWinnerSlot(
	quizId string,
	winner *model.Winner,
	claim *model.RewardClaim,
	rewardFor func(quiz *model.Quiz, rank int) (string, error),
) error {
	return d.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Quiz{}).
			Where("id = ? AND (winner_limit = 0 OR winner_count < winner_limit)", quizId).
			UpdateColumn("winner_count", gorm.Expr("winner_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrQuizFull
		}

		quiz := model.Quiz{}
		if err := tx.Where("id = ?", quizId).Take(&quiz).Error; err != nil {
			return err
		}

		rank := quiz.WinnerCount - 1
		reward, err := rewardFor(&quiz, rank)
		if err != nil {
			return err
		}
		winner.RewardWei = reward

		if err := tx.Create(winner).Error; err != nil {
			return err
		}

		if quiz.WinnerLimit > 0 && claim != nil {
			if err := tx.Create(claim).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetWinnersByQuizId returns winners ordered by completion time, ties broken
// by insertion order. The ordering is total, so derived ranks are stable.
func (d *QuizDao) GetWinnersByQuizId(quizId string) ([]*model.Winner, error) {
	winners := make([]*model.Winner, 0)
	err := d.DB.
		Where("quiz_id = ?", quizId).
		Order("completion_time_ms asc").
		Order("id asc").
		Find(&winners).Error
	if err != nil {
		return nil, err
	}
	return winners, nil
}

func (d *QuizDao) GetWinner(quizId, walletAddress string) (*model.Winner, error) {
	winner := model.Winner{}
	err := d.DB.
		Where("quiz_id = ?", quizId).
		Where("wallet_address = ?", walletAddress).
		Take(&winner).Error
	if err != nil {
		return nil, err
	}
	return &winner, nil
}

func (d *QuizDao) GetWinnerCount(quizId string) (int64, error) {
	var count int64
	err := d.DB.Model(&model.Winner{}).
		Where("quiz_id = ?", quizId).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
