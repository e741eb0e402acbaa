package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kukshaus/transcribe-sub000/internal/models"
)

// LedgerRepository is the data access layer for credit balances and
// their append-only transaction history. All balance mutations go
// through single conditional updates so concurrent requests for the
// same owner serialize on the account row instead of an application
// lock.
type LedgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// EnsureAccount creates the account row with a zero balance if it does
// not exist yet.
func (r *LedgerRepository) EnsureAccount(ctx context.Context, ownerID string) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ledger_accounts (owner_id, balance, has_received_starter_grant, created_at, updated_at)
		VALUES (?, 0, 0, ?, ?)
		ON CONFLICT(owner_id) DO NOTHING`,
		ownerID, now, now,
	)
	return err
}

// GetAccount returns an account, or nil if it does not exist.
func (r *LedgerRepository) GetAccount(ctx context.Context, ownerID string) (*models.LedgerAccount, error) {
	var a models.LedgerAccount
	var transferFP sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT owner_id, balance, has_received_starter_grant, transfer_fingerprint, created_at, updated_at
		FROM ledger_accounts WHERE owner_id = ?`, ownerID,
	).Scan(&a.OwnerID, &a.Balance, &a.HasReceivedStarterGrant, &transferFP, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.TransferFingerprint = transferFP.String
	return &a, nil
}

// CompareAndDebit decrements the balance by amount iff the balance
// covers it, and appends the matching ledger entry in the same
// transaction. Returns (remaining balance, true) when the debit
// applied, and (_, false) when funds were insufficient. This is the
// no-overdraft serialization point: the WHERE clause, not a
// read-then-write, decides the outcome.
func (r *LedgerRepository) CompareAndDebit(ctx context.Context, ownerID string, amount int64, reason, relatedJobID string) (int64, bool, error) {
	if amount <= 0 {
		return 0, false, fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback()

	var balanceAfter int64
	err = tx.QueryRowContext(ctx, `
		UPDATE ledger_accounts
		SET balance = balance - ?, updated_at = ?
		WHERE owner_id = ? AND balance >= ?
		RETURNING balance`,
		amount, time.Now(), ownerID, amount,
	).Scan(&balanceAfter)
	if err == sql.ErrNoRows {
		// Insufficient funds (or unknown account); nothing changed.
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	if err := insertEntry(ctx, tx, models.LedgerEntry{
		OwnerID:      ownerID,
		Delta:        -amount,
		Reason:       reason,
		RelatedJobID: relatedJobID,
		BalanceAfter: balanceAfter,
	}); err != nil {
		return 0, false, err
	}

	if err := tx.Commit(); err != nil {
		return 0, false, err
	}
	return balanceAfter, true, nil
}

// Credit unconditionally increments the balance and appends the
// matching entry, creating the account row if needed.
func (r *LedgerRepository) Credit(ctx context.Context, ownerID string, amount int64, reason, relatedJobID string, isFreeTier bool) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	if err := r.EnsureAccount(ctx, ownerID); err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var balanceAfter int64
	err = tx.QueryRowContext(ctx, `
		UPDATE ledger_accounts
		SET balance = balance + ?, updated_at = ?
		WHERE owner_id = ?
		RETURNING balance`,
		amount, time.Now(), ownerID,
	).Scan(&balanceAfter)
	if err != nil {
		return 0, err
	}

	if err := insertEntry(ctx, tx, models.LedgerEntry{
		OwnerID:      ownerID,
		Delta:        amount,
		Reason:       reason,
		RelatedJobID: relatedJobID,
		BalanceAfter: balanceAfter,
		IsFreeTier:   isFreeTier,
	}); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return balanceAfter, nil
}

// GrantStarter applies the one-time starter grant. The conditional
// update sets the balance and the grant flag together, so a second
// call finds the flag set and does nothing. Returns true iff the grant
// applied on this call.
func (r *LedgerRepository) GrantStarter(ctx context.Context, ownerID string, amount int64) (bool, error) {
	if err := r.EnsureAccount(ctx, ownerID); err != nil {
		return false, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var balanceAfter int64
	err = tx.QueryRowContext(ctx, `
		UPDATE ledger_accounts
		SET balance = balance + ?, has_received_starter_grant = 1, updated_at = ?
		WHERE owner_id = ? AND has_received_starter_grant = 0
		RETURNING balance`,
		amount, time.Now(), ownerID,
	).Scan(&balanceAfter)
	if err == sql.ErrNoRows {
		// Already granted.
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := insertEntry(ctx, tx, models.LedgerEntry{
		OwnerID:      ownerID,
		Delta:        amount,
		Reason:       models.ReasonStarterGrant,
		BalanceAfter: balanceAfter,
		IsFreeTier:   true,
	}); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// ClaimTransferFingerprint records which anonymous fingerprint an
// account absorbed. The guard on NULL makes job reassignment a
// once-per-account operation.
func (r *LedgerRepository) ClaimTransferFingerprint(ctx context.Context, ownerID, fingerprint string) (bool, error) {
	if err := r.EnsureAccount(ctx, ownerID); err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE ledger_accounts
		SET transfer_fingerprint = ?, updated_at = ?
		WHERE owner_id = ? AND transfer_fingerprint IS NULL`,
		fingerprint, time.Now(), ownerID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListEntries returns an owner's transaction history, newest first.
func (r *LedgerRepository) ListEntries(ctx context.Context, ownerID string, limit int) ([]models.LedgerEntry, error) {
	if limit == 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, delta, reason, related_job_id, balance_after, is_free_tier, created_at
		FROM ledger_entries
		WHERE owner_id = ?
		ORDER BY id DESC
		LIMIT ?`,
		ownerID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		var relatedJobID sql.NullString
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Delta, &e.Reason, &relatedJobID, &e.BalanceAfter, &e.IsFreeTier, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.RelatedJobID = relatedJobID.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SumEntries returns sum(delta) for an owner. Used by tests and the
// consistency check: it must always equal the account balance.
func (r *LedgerRepository) SumEntries(ctx context.Context, ownerID string) (int64, error) {
	var sum int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(delta), 0) FROM ledger_entries WHERE owner_id = ?`,
		ownerID,
	).Scan(&sum)
	return sum, err
}

func insertEntry(ctx context.Context, tx *sql.Tx, e models.LedgerEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (owner_id, delta, reason, related_job_id, balance_after, is_free_tier, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.OwnerID, e.Delta, e.Reason, nullStr(e.RelatedJobID), e.BalanceAfter, e.IsFreeTier, time.Now(),
	)
	return err
}
