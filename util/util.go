package util

import (
	"strings"
	"time"
)

// NormalizeAddress canonicalizes an EVM-style wallet address so uniqueness
// constraints on (quiz, wallet) treat checksummed and lower-case forms as the
// same wallet.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// NowMs returns the current unix time in milliseconds.
func NowMs() int64 {
	return time.Now().UnixMilli()
}

// DayKey formats t as a UTC calendar date, used for daily counters.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
