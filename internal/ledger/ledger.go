// Package ledger owns credit balances and their audit trail. All paid
// operations in the product are gated through it: transcription
// creation is prepaid, notes and requirements-doc generation are
// charged only after the external generation succeeded.
package ledger

import (
	"context"
	"errors"

	"github.com/kukshaus/transcribe-sub000/internal/models"
	"github.com/kukshaus/transcribe-sub000/internal/storage"
)

// Credit costs per operation.
const (
	CostTranscription   = 1
	CostNotes           = 1
	CostRequirementsDoc = 2
)

// DefaultStarterCredits is granted once per new account, matching the
// anonymous free-tier allowance.
const DefaultStarterCredits = 3

// ErrInsufficientFunds is returned when a debit does not cover.
var ErrInsufficientFunds = errors.New("insufficient credits")

// Ledger is the service over the ledger repository.
type Ledger struct {
	repo           *storage.LedgerRepository
	starterCredits int64
}

// New creates a Ledger. starterCredits <= 0 selects the default.
func New(repo *storage.LedgerRepository, starterCredits int64) *Ledger {
	if starterCredits <= 0 {
		starterCredits = DefaultStarterCredits
	}
	return &Ledger{repo: repo, starterCredits: starterCredits}
}

// Balance describes an owner's spendable credits.
type Balance struct {
	Amount   int64 `json:"amount"`
	HasFunds bool  `json:"has_funds"`
}

// CheckBalance returns the current balance. Unknown owners read as
// zero; no account row is created.
func (l *Ledger) CheckBalance(ctx context.Context, ownerID string) (Balance, error) {
	account, err := l.repo.GetAccount(ctx, ownerID)
	if err != nil {
		return Balance{}, err
	}
	if account == nil {
		return Balance{}, nil
	}
	return Balance{Amount: account.Balance, HasFunds: account.Balance > 0}, nil
}

// Debit atomically removes amount credits. The whole amount is taken
// in one conditional update: a multi-credit charge can never leave the
// account half-charged. Returns the remaining balance, or
// ErrInsufficientFunds with the balance untouched.
func (l *Ledger) Debit(ctx context.Context, ownerID string, amount int64, reason, relatedJobID string) (int64, error) {
	remaining, ok, err := l.repo.CompareAndDebit(ctx, ownerID, amount, reason, relatedJobID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrInsufficientFunds
	}
	return remaining, nil
}

// Credit unconditionally adds credits (purchases, transfers).
func (l *Ledger) Credit(ctx context.Context, ownerID string, amount int64, reason, relatedJobID string, isFreeTier bool) (int64, error) {
	return l.repo.Credit(ctx, ownerID, amount, reason, relatedJobID, isFreeTier)
}

// GrantStarterCredit applies the one-time starter grant. Safe to call
// on every sign-in: only the first call writes an entry. Returns true
// iff the grant applied on this call.
func (l *Ledger) GrantStarterCredit(ctx context.Context, ownerID string) (bool, error) {
	return l.repo.GrantStarter(ctx, ownerID, l.starterCredits)
}

// ClaimFingerprint records which anonymous fingerprint this account
// absorbed; applies at most once per account.
func (l *Ledger) ClaimFingerprint(ctx context.Context, ownerID, fingerprint string) (bool, error) {
	return l.repo.ClaimTransferFingerprint(ctx, ownerID, fingerprint)
}

// Summary returns the balance together with recent history.
func (l *Ledger) Summary(ctx context.Context, ownerID string, historyLimit int) (*models.LedgerSummary, error) {
	balance, err := l.CheckBalance(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	entries, err := l.repo.ListEntries(ctx, ownerID, historyLimit)
	if err != nil {
		return nil, err
	}
	return &models.LedgerSummary{
		OwnerID:  ownerID,
		Balance:  balance.Amount,
		HasFunds: balance.HasFunds,
		Entries:  entries,
	}, nil
}
