package usage

import (
	"context"
	"fmt"
	"log"

	"github.com/kukshaus/transcribe-sub000/internal/ledger"
	"github.com/kukshaus/transcribe-sub000/internal/models"
	"github.com/kukshaus/transcribe-sub000/internal/storage"
)

// Reconciler migrates anonymous history into an authenticated account.
// Every step is guarded by a conditional update, so running it on each
// sign-in is safe: repeat calls are no-ops.
type Reconciler struct {
	ledger    *ledger.Ledger
	usageRepo *storage.UsageRepository
	jobRepo   *storage.JobRepository
	tracker   *Tracker
}

// NewReconciler creates a Reconciler.
func NewReconciler(l *ledger.Ledger, usageRepo *storage.UsageRepository, jobRepo *storage.JobRepository, tracker *Tracker) *Reconciler {
	return &Reconciler{ledger: l, usageRepo: usageRepo, jobRepo: jobRepo, tracker: tracker}
}

// Result reports what a reconciliation call actually changed.
type Result struct {
	StarterGranted     bool  `json:"starter_granted"`
	TransferredCredits int64 `json:"transferred_credits"`
	ReassignedJobs     int64 `json:"reassigned_jobs"`
}

// Reconcile runs once per authenticated action: grants the starter
// credit, migrates the fingerprint's remaining free allowance into a
// credit top-up, and claims the fingerprint's jobs for the account.
// The fingerprint may be empty for callers that signed up on a new
// device; only the starter grant applies then.
func (r *Reconciler) Reconcile(ctx context.Context, ownerID, fingerprint string) (*Result, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("reconcile: owner id is required")
	}

	result := &Result{}

	granted, err := r.ledger.GrantStarterCredit(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("starter grant: %w", err)
	}
	result.StarterGranted = granted
	if granted {
		log.Printf("Starter credit granted to %s", ownerID)
	}

	if fingerprint == "" {
		return result, nil
	}

	// Migrate the unused part of the anonymous allowance. The transfer
	// flag flips false->true exactly once; losers of the race see no
	// rows updated and skip the credit.
	usageCount, applied, err := r.usageRepo.ConsumeTransfer(ctx, fingerprint, ownerID)
	if err != nil {
		return nil, fmt.Errorf("consume transfer: %w", err)
	}
	if applied {
		remaining := r.tracker.Limit() - usageCount
		if remaining > 0 {
			if _, err := r.ledger.Credit(ctx, ownerID, remaining, models.ReasonAnonymousTransfer, "", true); err != nil {
				return nil, fmt.Errorf("transfer credit: %w", err)
			}
			result.TransferredCredits = remaining
			log.Printf("Transferred %d anonymous credits from %s to %s", remaining, fingerprint, ownerID)
		}
	}

	// Claim the fingerprint's jobs. Guarded by the account's transfer
	// fingerprint so a second call (or a second fingerprint) is a
	// no-op.
	claimed, err := r.ledger.ClaimFingerprint(ctx, ownerID, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("claim fingerprint: %w", err)
	}
	if claimed {
		moved, err := r.jobRepo.ReassignFingerprintJobs(ctx, fingerprint, ownerID)
		if err != nil {
			return nil, fmt.Errorf("reassign jobs: %w", err)
		}
		result.ReassignedJobs = moved
		if moved > 0 {
			log.Printf("Reassigned %d anonymous jobs from %s to %s", moved, fingerprint, ownerID)
		}
	}

	return result, nil
}
