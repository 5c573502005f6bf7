// Package verification keeps short-lived verification codes keyed by the
// contact address (email or phone number) they were sent to.
//
// A Store is created once at process start and handed to the services that
// need it. Entries are not persisted across restarts unless the backing
// store does so (Redis).
package verification

import (
	"context"
	"time"
)

// DefaultTTL is how long an issued code stays valid.
const DefaultTTL = 10 * time.Minute

// Entry is a stored code and the instant it stops being valid.
type Entry struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the entry is no longer valid at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Outcome is the result of trying to redeem a code.
type Outcome int

const (
	// OutcomeMissing means no live code is held for the key.
	OutcomeMissing Outcome = iota
	// OutcomeMismatch means a live code exists but differs; it is kept.
	OutcomeMismatch
	// OutcomeRedeemed means the code matched and has been removed.
	OutcomeRedeemed
)

// Store holds at most one live entry per key. An expired entry is reported
// as absent by Get, whether or not it has been evicted yet.
//
// Consume compares and removes in one step: of several callers presenting
// the same live code, exactly one sees OutcomeRedeemed.
type Store interface {
	Set(ctx context.Context, key, code string, expiresAt time.Time) error
	Get(ctx context.Context, key string) (Entry, bool, error)
	Consume(ctx context.Context, key, code string) (Outcome, error)
	Remove(ctx context.Context, key string) error
}
