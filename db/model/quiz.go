package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Quiz struct {
	Id            string         `gorm:"NOT NULL;primaryKey;size:36"`
	Title         string         `gorm:"NOT NULL"`
	Questions     datatypes.JSON `gorm:"NOT NULL"` // []QuizQuestion
	RewardPoolWei string         `gorm:"NOT NULL"` // decimal string, arbitrary precision
	// WinnerLimit 0 means unlimited ("fun" quiz, no reward).
	WinnerLimit int            `gorm:"NOT NULL"`
	Tiers       datatypes.JSON // []PayoutTier, empty means flat split
	EntryFeeWei string
	EndTime     int64 `gorm:"NOT NULL"` // unix ms, 0 means no end
	// WinnerCount is the allocated slot counter; it is only ever advanced by the
	// conditional update in QuizDao so it can never pass WinnerLimit.
	WinnerCount int   `gorm:"NOT NULL"`
	CreatedTime int64 `gorm:"NOT NULL"`
}

func (*Quiz) TableName() string {
	return "quizzes"
}

// QuizQuestion is the storage shape of one question, answer key included. The
// correct index must never reach a client before submission; callers serving
// quizzes strip it via Redacted instead of encoding this struct directly.
type QuizQuestion struct {
	Id           string   `json:"id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

// RedactedQuestion is the client-facing shape of a question.
type RedactedQuestion struct {
	Id      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

func (q *QuizQuestion) Redacted() RedactedQuestion {
	return RedactedQuestion{
		Id:      q.Id,
		Text:    q.Text,
		Options: q.Options,
	}
}

type PayoutTier struct {
	Count int `json:"count"` // winners in this tier
	Pct   int `json:"pct"`   // percentage of the total pool
}

type Winner struct {
	Id               int64  `gorm:"primaryKey;autoIncrement"`
	QuizId           string `gorm:"NOT NULL;size:36;uniqueIndex:idx_quiz_wallet"`
	WalletAddress    string `gorm:"NOT NULL;size:64;uniqueIndex:idx_quiz_wallet"`
	CompletionTimeMs int64  `gorm:"NOT NULL;index:idx_winner_completion"`
	UserKey          string `gorm:"NOT NULL"`
	RewardWei        string `gorm:"NOT NULL"` // frozen at registration
	Claimed          bool   `gorm:"NOT NULL"` // legacy mirror of the RewardClaim status
	ClaimTxHash      string
	CreatedTime      int64 `gorm:"NOT NULL"`
}

func (*Winner) TableName() string {
	return "winners"
}

func InitQuizTables(db *gorm.DB) {
	if !db.Migrator().HasTable(&Quiz{}) {
		err := db.Migrator().CreateTable(&Quiz{})
		if err != nil {
			panic(err)
		}
	}
	if !db.Migrator().HasTable(&Winner{}) {
		err := db.Migrator().CreateTable(&Winner{})
		if err != nil {
			panic(err)
		}
	}
}
