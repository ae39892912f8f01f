package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiterIntervalFloor(t *testing.T) {
	l := NewLimiter()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.True(t, l.Allow("user1", now))
	l.Record("user1", now)

	// 10 seconds later is inside the 30s floor
	require.False(t, l.Allow("user1", now.Add(10*time.Second)))
	// exactly at the floor is allowed again
	require.True(t, l.Allow("user1", now.Add(SendIntervalFloor)))
}

func TestLimiterPerRecipientIsolation(t *testing.T) {
	l := NewLimiter()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	l.Record("user1", now)
	require.False(t, l.Allow("user1", now.Add(time.Second)))
	require.True(t, l.Allow("user2", now.Add(time.Second)))
}

func TestLimiterDailyCap(t *testing.T) {
	l := NewLimiter()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < DailySendCap; i++ {
		require.True(t, l.Allow("user1", now), "send %d should be allowed", i)
		l.Record("user1", now)
		now = now.Add(SendIntervalFloor)
	}
	// the 101st check the same day is refused
	require.False(t, l.Allow("user1", now))

	// next day the counter lazily rolls over
	nextDay := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	require.True(t, l.Allow("user1", nextDay))
	l.Record("user1", nextDay)
	require.True(t, l.Allow("user1", nextDay.Add(SendIntervalFloor)))
}

func TestLimiterRolloverResetsToOne(t *testing.T) {
	l := NewLimiter()
	day1 := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)
	for i := 0; i < DailySendCap; i++ {
		l.Record("user1", day1)
	}

	day2 := time.Date(2025, 6, 2, 1, 0, 0, 0, time.UTC)
	l.Record("user1", day2)
	// only one send counted today, far from the cap
	require.True(t, l.Allow("user1", day2.Add(SendIntervalFloor)))
}

func TestLimiterConcurrentAccess(t *testing.T) {
	l := NewLimiter()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := []string{"a", "b", "c"}[n%3]
			l.Allow(key, now.Add(time.Duration(n)*time.Second))
			l.Record(key, now.Add(time.Duration(n)*time.Second))
		}(i)
	}
	wg.Wait()

	// counters survived concurrent access and still enforce the floor
	require.False(t, l.Allow("a", now.Add(51*time.Second)))
}
