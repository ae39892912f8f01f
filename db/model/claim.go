package model

import (
	"gorm.io/gorm"
)

type ClaimStatus int

const (
	ClaimPending ClaimStatus = iota // reward allocated, payout not yet proven
	ClaimClaimed                    // payout proven by a ledger tx hash, terminal
)

type RewardClaim struct {
	Id            string      `gorm:"NOT NULL;primaryKey;size:36"`
	WalletAddress string      `gorm:"NOT NULL;size:64;uniqueIndex:idx_claim_quiz_wallet"`
	QuizId        string      `gorm:"NOT NULL;size:36;uniqueIndex:idx_claim_quiz_wallet"`
	Status        ClaimStatus `gorm:"NOT NULL;index:idx_claim_status"`
	TxHash        string
	ClaimedAt     int64 // unix ms, 0 while pending
	CreatedTime   int64 `gorm:"NOT NULL"`
}

func (*RewardClaim) TableName() string {
	return "reward_claims"
}

func InitClaimTable(db *gorm.DB) {
	if !db.Migrator().HasTable(&RewardClaim{}) {
		err := db.Migrator().CreateTable(&RewardClaim{})
		if err != nil {
			panic(err)
		}
	}
}
