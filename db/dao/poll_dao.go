package dao

import (
	"github.com/quizdrop/quizdrop/db/model"
	"gorm.io/gorm"
)

type PollDao struct {
	DB *gorm.DB
}

func NewPollDao(db *gorm.DB) *PollDao {
	return &PollDao{
		DB: db,
	}
}

func (d *PollDao) SavePoll(poll *model.Poll) error {
	return d.DB.Create(poll).Error
}

func (d *PollDao) GetPollById(pollId string) (*model.Poll, error) {
	poll := model.Poll{}
	err := d.DB.Where("id = ?", pollId).Take(&poll).Error
	if err != nil {
		return nil, err
	}
	return &poll, nil
}

// SaveVotes inserts all ballots in one transaction. The unique index on
// (poll_id, dedup_key) is the vote dedup enforcement point; a concurrent
// duplicate surfaces as gorm.ErrDuplicatedKey and nothing is written.
func (d *PollDao) SaveVotes(votes []*model.PollVote) error {
	return d.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(votes).Error
	})
}

func (d *PollDao) GetTally(pollId string) (map[int]int64, error) {
	rows := []struct {
		OptionIndex int   `gorm:"column:option_index"`
		Cnt         int64 `gorm:"column:cnt"`
	}{}
	err := d.DB.Model(&model.PollVote{}).
		Select("option_index, count(*) as cnt").
		Where("poll_id = ?", pollId).
		Group("option_index").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	tally := make(map[int]int64, len(rows))
	for _, r := range rows {
		tally[r.OptionIndex] = r.Cnt
	}
	return tally, nil
}

func (d *PollDao) GetVotesByVoter(pollId, voterKey string) ([]*model.PollVote, error) {
	votes := make([]*model.PollVote, 0)
	err := d.DB.
		Where("poll_id = ?", pollId).
		Where("voter_key = ?", voterKey).
		Order("option_index asc").
		Find(&votes).Error
	if err != nil {
		return nil, err
	}
	return votes, nil
}
