// Package quota enforces the daily cap on successful verifications per
// credential.
//
// Counting is two-phase: the controller Checks before acting on a match and
// Commits only after the match was actually honored, so a verification that
// gets rejected downstream never burns quota.
package quota

import (
	"sync"
	"time"
)

// Decision is the outcome of a quota check.
type Decision int

const (
	Allowed Decision = iota
	Exceeded
)

func (d Decision) String() string {
	if d == Exceeded {
		return "exceeded"
	}
	return "allowed"
}

// dayKey scopes a count to one credential on one calendar day. Keying by
// day makes the quota reset implicit at midnight; no rollover logic exists.
type dayKey struct {
	credential string
	day        string // YYYY-MM-DD
}

// Tracker holds per-credential, per-day counts for the process lifetime.
// State is not durable across restarts.
type Tracker struct {
	mu     sync.Mutex
	counts map[dayKey]int
	limit  int
}

// New creates a Tracker with the given daily limit.
func New(limit int) *Tracker {
	return &Tracker{
		counts: make(map[dayKey]int),
		limit:  limit,
	}
}

// Check reports whether a successful verification for the credential may
// still be honored today. It never mutates the count.
func (t *Tracker) Check(credential string, at time.Time) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.counts[keyFor(credential, at)] >= t.limit {
		return Exceeded
	}
	return Allowed
}

// Commit increments the credential's count for the day by exactly one.
// Call only after a Matched outcome was honored.
func (t *Tracker) Commit(credential string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.counts[keyFor(credential, at)]++
}

// Count returns the committed count for the credential on the given day.
func (t *Tracker) Count(credential string, at time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.counts[keyFor(credential, at)]
}

func keyFor(credential string, at time.Time) dayKey {
	return dayKey{credential: credential, day: at.Format("2006-01-02")}
}
