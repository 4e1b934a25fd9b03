package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCheckWindowInvariant(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(3, time.Minute)
	l.now = func() time.Time { return now }

	// Exactly limit admissions, counting down the remainder.
	for i := 1; i <= 3; i++ {
		res := l.Check("203.0.113.7")
		require.True(t, res.Success, "attempt %d", i)
		require.Equal(t, 3-i, res.Remaining)
	}

	// The attempt after the limit is rejected without being counted.
	blocked := l.Check("203.0.113.7")
	require.False(t, blocked.Success)
	require.Equal(t, 0, blocked.Remaining)
	require.Equal(t, now.Add(time.Minute), blocked.Reset)

	// Hammering while blocked never extends the lockout.
	for range 10 {
		require.False(t, l.Check("203.0.113.7").Success)
	}

	// After the window passes, counting restarts from one.
	now = now.Add(time.Minute + time.Second)
	res := l.Check("203.0.113.7")
	require.True(t, res.Success)
	require.Equal(t, 2, res.Remaining)
}

func TestCheckTokensAreIndependent(t *testing.T) {
	l := New(1, time.Minute)

	require.True(t, l.Check("a").Success)
	require.False(t, l.Check("a").Success)

	// A different token has its own counter.
	require.True(t, l.Check("b").Success)
}

func TestCheckExpiredRecordIsRecreated(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(2, time.Minute)
	l.now = func() time.Time { return now }

	require.True(t, l.Check("x").Success)
	require.True(t, l.Check("x").Success)
	require.False(t, l.Check("x").Success)

	// Far past the reset: the stale record counts as absent.
	now = now.Add(time.Hour)
	res := l.Check("x")
	require.True(t, res.Success)
	require.Equal(t, now.Add(time.Minute), res.Reset)
}

func TestAccessors(t *testing.T) {
	l := New(5, 15*time.Minute)
	require.Equal(t, 5, l.Limit())
	require.Equal(t, 15*time.Minute, l.Window())
}
