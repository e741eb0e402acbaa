package models

import "time"

// AnonymousUsage tracks free-tier consumption for one device
// fingerprint. UsageCount only grows; the transfer flag flips from
// false to true exactly once, when the allowance is migrated into an
// authenticated account.
type AnonymousUsage struct {
	Fingerprint     string     `json:"fingerprint"`
	ClientIP        string     `json:"client_ip,omitempty"`
	UserAgent       string     `json:"user_agent,omitempty"`
	UsageCount      int64      `json:"usage_count"`
	TransferredTo   string     `json:"transferred_to,omitempty"`
	TransferredAt   *time.Time `json:"transferred_at,omitempty"`
	IsTransferUsed  bool       `json:"is_transfer_used"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
