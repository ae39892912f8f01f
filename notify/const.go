package notify

import "time"

const (
	// SendIntervalFloor is the minimum gap between two sends to one recipient.
	SendIntervalFloor = 30 * time.Second
	// DailySendCap is the maximum sends per recipient per UTC calendar day.
	DailySendCap = 100

	RelayTimeout = 10 * time.Second
)
