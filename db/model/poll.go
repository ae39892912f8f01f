package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Poll struct {
	Id             string         `gorm:"NOT NULL;primaryKey;size:36"`
	Title          string         `gorm:"NOT NULL"`
	Options        datatypes.JSON `gorm:"NOT NULL"` // []PollOption
	MultipleChoice bool           `gorm:"NOT NULL"`
	Anonymous      bool           `gorm:"NOT NULL"`
	ExpiresAt      int64          // unix ms, 0 means no expiry
	GateToken      string         // token address required to vote, empty if open
	CreatorKey     string         `gorm:"NOT NULL;index:idx_poll_creator"`
	CreatedTime    int64          `gorm:"NOT NULL"`
}

func (*Poll) TableName() string {
	return "polls"
}

type PollOption struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type PollVote struct {
	Id            int64  `gorm:"primaryKey;autoIncrement"`
	PollId        string `gorm:"NOT NULL;size:36;uniqueIndex:idx_poll_dedup;index:idx_poll_voter"`
	VoterKey      string `gorm:"NOT NULL;index:idx_poll_voter"`
	WalletAddress string // optional, audit only
	OptionIndex   int    `gorm:"NOT NULL"`
	// DedupKey is the store-level uniqueness handle: the voter key alone for
	// single-choice polls, voterKey:optionIndex for multiple-choice ones. The
	// unique index on (poll_id, dedup_key) is the only vote dedup enforcement.
	DedupKey    string `gorm:"NOT NULL;size:191;uniqueIndex:idx_poll_dedup"`
	CreatedTime int64  `gorm:"NOT NULL"`
}

func (*PollVote) TableName() string {
	return "poll_votes"
}

func InitPollTables(db *gorm.DB) {
	if !db.Migrator().HasTable(&Poll{}) {
		err := db.Migrator().CreateTable(&Poll{})
		if err != nil {
			panic(err)
		}
	}
	if !db.Migrator().HasTable(&PollVote{}) {
		err := db.Migrator().CreateTable(&PollVote{})
		if err != nil {
			panic(err)
		}
	}
}
