package models

import "time"

// LedgerAccount holds the credit balance for one authenticated owner.
// The balance is only ever changed through the ledger's conditional
// updates; it can never go negative.
type LedgerAccount struct {
	OwnerID                 string    `json:"owner_id"`
	Balance                 int64     `json:"balance"`
	HasReceivedStarterGrant bool      `json:"has_received_starter_grant"`
	TransferFingerprint     string    `json:"transfer_fingerprint,omitempty"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// LedgerEntry is one immutable row in the append-only transaction
// history. BalanceAfter records the balance the conditional update
// produced, so sum(delta) per owner always equals the current balance.
type LedgerEntry struct {
	ID           int64     `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Delta        int64     `json:"delta"`
	Reason       string    `json:"reason"`
	RelatedJobID string    `json:"related_job_id,omitempty"`
	BalanceAfter int64     `json:"balance_after"`
	IsFreeTier   bool      `json:"is_free_tier,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Ledger entry reasons
const (
	ReasonTranscriptionCreation = "transcription_creation"
	ReasonNotesGeneration       = "notes_generation"
	ReasonRequirementsDoc       = "requirements_doc_generation"
	ReasonStarterGrant          = "free_tokens_granted"
	ReasonAnonymousTransfer     = "anonymous_transfer"
	ReasonPurchase              = "purchase"
)

// LedgerSummary is the typed balance view returned to API consumers.
type LedgerSummary struct {
	OwnerID  string        `json:"owner_id"`
	Balance  int64         `json:"balance"`
	HasFunds bool          `json:"has_funds"`
	Entries  []LedgerEntry `json:"entries,omitempty"`
}
