// Package ratelimit implements the fixed-window counters guarding the
// auth-sensitive operations (signin, signup, password reset, verification
// resend). Each operation category owns its own Limiter instance with its
// own window and token keyspace: signin/signup/reset are keyed by client
// IP, resend is keyed by the target email so repeated-resend spam against
// one mailbox is stopped regardless of source IP.
//
// Counters are process-local and live in an expirable LRU, so idle tokens
// age out on their own and a restart simply forgets them. This is an
// acceptable-loss abuse mitigation, not a durable ledger.
package ratelimit

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// maxEntries bounds the counter cache; beyond this the least recently
// checked tokens are evicted, which at worst forgives an attacker that
// cycles through that many distinct tokens.
const maxEntries = 16384

// Result reports the outcome of a single Check call.
type Result struct {
	// Success is false when the token is over its limit for the current window.
	Success bool
	// Remaining is how many further requests the token may make this window.
	Remaining int
	// Reset is when the current window ends and counting restarts.
	Reset time.Time
}

type counter struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window counter per token. The counting request that
// reaches the limit is still admitted; the one after it is rejected
// without being counted.
type Limiter struct {
	limit  int
	window time.Duration

	mu    sync.Mutex
	cache *expirable.LRU[string, *counter]

	now func() time.Time // test hook
}

// New creates a limiter admitting limit requests per token per window.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:  limit,
		window: window,
		cache:  expirable.NewLRU[string, *counter](maxEntries, nil, window),
		now:    time.Now,
	}
}

// Check records an attempt for token and reports whether it is admitted.
//
// A missing or expired record is recreated with count zero before the
// attempt is counted. A blocked attempt does not increment the counter,
// so hammering a blocked token never extends its lockout.
func (l *Limiter) Check(token string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	c, ok := l.cache.Get(token)
	if !ok || now.After(c.resetAt) {
		c = &counter{resetAt: now.Add(l.window)}
		l.cache.Add(token, c)
	}

	if c.count >= l.limit {
		return Result{Success: false, Remaining: 0, Reset: c.resetAt}
	}

	c.count++
	return Result{Success: true, Remaining: l.limit - c.count, Reset: c.resetAt}
}

// Limit returns the per-window admission count, mainly for headers/logs.
func (l *Limiter) Limit() int { return l.limit }

// Window returns the window duration.
func (l *Limiter) Window() time.Duration { return l.window }
