package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/kukshaus/transcribe-sub000/internal/models"
)

// UsageRepository is the data access layer for anonymous free-tier
// usage records, keyed by device fingerprint.
type UsageRepository struct {
	db *DB
}

// NewUsageRepository creates a new UsageRepository.
func NewUsageRepository(db *DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// Get returns the record for a fingerprint, or nil if unseen.
func (r *UsageRepository) Get(ctx context.Context, fingerprint string) (*models.AnonymousUsage, error) {
	var u models.AnonymousUsage
	var transferredTo sql.NullString
	var transferredAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT fingerprint, client_ip, user_agent, usage_count,
		       transferred_to, transferred_at, is_transfer_used,
		       created_at, updated_at
		FROM anonymous_usage WHERE fingerprint = ?`, fingerprint,
	).Scan(&u.Fingerprint, &u.ClientIP, &u.UserAgent, &u.UsageCount,
		&transferredTo, &transferredAt, &u.IsTransferUsed,
		&u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.TransferredTo = transferredTo.String
	if transferredAt.Valid {
		u.TransferredAt = &transferredAt.Time
	}
	return &u, nil
}

// Ensure creates the record on first sight, refreshing the last seen
// client details otherwise.
func (r *UsageRepository) Ensure(ctx context.Context, fingerprint, clientIP, userAgent string) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO anonymous_usage (fingerprint, client_ip, user_agent, usage_count, is_transfer_used, created_at, updated_at)
		VALUES (?, ?, ?, 0, 0, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			client_ip = excluded.client_ip,
			user_agent = excluded.user_agent,
			updated_at = excluded.updated_at`,
		fingerprint, clientIP, userAgent, now, now,
	)
	return err
}

// Reserve increments the usage count iff it is still under the cap.
// Returns true when a slot was reserved. The conditional update keeps
// concurrent anonymous requests from overshooting the cap.
func (r *UsageRepository) Reserve(ctx context.Context, fingerprint string, cap int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE anonymous_usage
		SET usage_count = usage_count + 1, updated_at = ?
		WHERE fingerprint = ? AND usage_count < ?`,
		time.Now(), fingerprint, cap,
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

// ConsumeTransfer marks the fingerprint's allowance as migrated to the
// given account. Applies at most once; returns the usage count at the
// moment of transfer and whether this call was the one that applied.
func (r *UsageRepository) ConsumeTransfer(ctx context.Context, fingerprint, ownerID string) (int64, bool, error) {
	var usageCount int64
	err := r.db.QueryRowContext(ctx, `
		UPDATE anonymous_usage
		SET is_transfer_used = 1, transferred_to = ?, transferred_at = ?, updated_at = ?
		WHERE fingerprint = ? AND is_transfer_used = 0
		RETURNING usage_count`,
		ownerID, time.Now(), time.Now(), fingerprint,
	).Scan(&usageCount)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return usageCount, true, nil
}
