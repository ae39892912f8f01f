package quiz

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/quizdrop/quizdrop/db/model"
)

var big100 = big.NewInt(100)

// RewardForRank computes the frozen reward for the winner holding the given
// rank. All division is integer division on big.Int: shares are floored and
// any remainder is intentionally retained in the pool rather than distributed,
// so the sum paid out can never exceed the pool.
func RewardForRank(quiz *model.Quiz, rank int) (string, error) {
	if quiz.WinnerLimit == 0 {
		// fun quiz, no reward pool
		return "0", nil
	}
	pool, ok := new(big.Int).SetString(quiz.RewardPoolWei, 10)
	if !ok {
		return "", fmt.Errorf("quiz %s has malformed reward pool %q", quiz.Id, quiz.RewardPoolWei)
	}

	tiers, err := payoutTiers(quiz)
	if err != nil {
		return "", err
	}
	if len(tiers) == 0 {
		per := new(big.Int).Quo(pool, big.NewInt(int64(quiz.WinnerLimit)))
		return per.String(), nil
	}

	// ranks [0, t1.count) fall in tier 1, the next t2.count ranks in tier 2, ...
	offset := 0
	for _, tier := range tiers {
		if rank < offset+tier.Count {
			tierPool := new(big.Int).Mul(pool, big.NewInt(int64(tier.Pct)))
			tierPool.Quo(tierPool, big100)
			per := tierPool.Quo(tierPool, big.NewInt(int64(tier.Count)))
			return per.String(), nil
		}
		offset += tier.Count
	}
	// rank beyond the payout schedule
	return "0", nil
}

// ValidateTiers rejects schedules that could fabricate value or leave a slot
// without a defined tier share.
func ValidateTiers(tiers []model.PayoutTier, winnerLimit int) error {
	totalPct := 0
	totalCount := 0
	for i, tier := range tiers {
		if tier.Count <= 0 {
			return fmt.Errorf("tier %d has non-positive winner count %d", i, tier.Count)
		}
		if tier.Pct <= 0 || tier.Pct > 100 {
			return fmt.Errorf("tier %d has percentage %d outside (0, 100]", i, tier.Pct)
		}
		totalPct += tier.Pct
		totalCount += tier.Count
	}
	if totalPct > 100 {
		return fmt.Errorf("tier percentages sum to %d, exceeding 100", totalPct)
	}
	if winnerLimit > 0 && totalCount > winnerLimit {
		return fmt.Errorf("tier winner counts sum to %d, exceeding limit %d", totalCount, winnerLimit)
	}
	return nil
}

func payoutTiers(quiz *model.Quiz) ([]model.PayoutTier, error) {
	if len(quiz.Tiers) == 0 {
		return nil, nil
	}
	tiers := []model.PayoutTier{}
	if err := json.Unmarshal(quiz.Tiers, &tiers); err != nil {
		return nil, fmt.Errorf("quiz %s has malformed tiers: %w", quiz.Id, err)
	}
	return tiers, nil
}
