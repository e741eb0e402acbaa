// Package usage rate-limits unauthenticated callers by device
// fingerprint and reconciles their history into an account on first
// authenticated action.
package usage

import (
	"context"
	"errors"

	"github.com/kukshaus/transcribe-sub000/internal/storage"
)

// DefaultFreeLimit is how many transcriptions a fingerprint gets
// before sign-up is required.
const DefaultFreeLimit = 3

// ErrLimitReached is returned when a fingerprint exhausted its
// allowance.
var ErrLimitReached = errors.New("free usage limit reached")

// Tracker caps anonymous usage per fingerprint. It is independent of
// the ledger: anonymous callers never touch credit balances.
type Tracker struct {
	repo  *storage.UsageRepository
	limit int64
}

// NewTracker creates a Tracker. limit <= 0 selects the default.
func NewTracker(repo *storage.UsageRepository, limit int64) *Tracker {
	if limit <= 0 {
		limit = DefaultFreeLimit
	}
	return &Tracker{repo: repo, limit: limit}
}

// Reservation reports the outcome of CheckAndReserve.
type Reservation struct {
	Allowed   bool  `json:"allowed"`
	Remaining int64 `json:"remaining"`
}

// CheckAndReserve creates the record on first sight and reserves one
// usage slot. When the cap is exhausted it returns ErrLimitReached and
// leaves the count unchanged.
func (t *Tracker) CheckAndReserve(ctx context.Context, fingerprint, clientIP, userAgent string) (Reservation, error) {
	if err := t.repo.Ensure(ctx, fingerprint, clientIP, userAgent); err != nil {
		return Reservation{}, err
	}
	ok, err := t.repo.Reserve(ctx, fingerprint, t.limit)
	if err != nil {
		return Reservation{}, err
	}
	if !ok {
		return Reservation{Allowed: false, Remaining: 0}, ErrLimitReached
	}
	remaining, err := t.Remaining(ctx, fingerprint)
	if err != nil {
		return Reservation{}, err
	}
	return Reservation{Allowed: true, Remaining: remaining}, nil
}

// Remaining returns how many free uses the fingerprint still has.
func (t *Tracker) Remaining(ctx context.Context, fingerprint string) (int64, error) {
	record, err := t.repo.Get(ctx, fingerprint)
	if err != nil {
		return 0, err
	}
	if record == nil {
		return t.limit, nil
	}
	remaining := t.limit - record.UsageCount
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Limit returns the per-fingerprint cap.
func (t *Tracker) Limit() int64 {
	return t.limit
}
