package notify

import (
	"sync"
	"time"

	"github.com/quizdrop/quizdrop/util"
)

type recipientState struct {
	lastSend time.Time
	dayKey   string
	dayCount int
}

// Limiter bounds notification volume per recipient with two local counters: a
// fixed floor between sends and a daily ceiling. State lives for the process
// lifetime and is never persisted; losing it on restart only softens the
// limit. One coarse mutex guards the map, and it is never held across I/O.
type Limiter struct {
	mtx    sync.Mutex
	states map[string]*recipientState
}

func NewLimiter() *Limiter {
	return &Limiter{
		states: make(map[string]*recipientState),
	}
}

// Allow reports whether a send to recipientKey may happen at now. It does not
// count the send; callers invoke Record after a successful delivery.
func (l *Limiter) Allow(recipientKey string, now time.Time) bool {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	state, ok := l.states[recipientKey]
	if !ok {
		return true
	}
	if now.Sub(state.lastSend) < SendIntervalFloor {
		return false
	}
	// the daily counter only binds while its stored date is still today;
	// rollover happens lazily in Record.
	if state.dayKey == util.DayKey(now) && state.dayCount >= DailySendCap {
		return false
	}
	return true
}

// Record counts one send at now, resetting the daily counter when the stored
// date is no longer today.
func (l *Limiter) Record(recipientKey string, now time.Time) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	state, ok := l.states[recipientKey]
	if !ok {
		state = &recipientState{}
		l.states[recipientKey] = state
	}
	state.lastSend = now

	today := util.DayKey(now)
	if state.dayKey != today {
		state.dayKey = today
		state.dayCount = 1
		return
	}
	state.dayCount++
}
