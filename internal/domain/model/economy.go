package model

import "time"

// EntryType classifies a ledger line.
type EntryType string

const (
	EntryGenesis         EntryType = "genesis"
	EntryTransfer        EntryType = "transfer"
	EntryAward           EntryType = "award"
	EntrySpend           EntryType = "spend"
	EntryExternalPayment EntryType = "external_payment"
)

// Valid returns true if the EntryType is known.
func (t EntryType) Valid() bool {
	switch t {
	case EntryGenesis, EntryTransfer, EntryAward, EntrySpend, EntryExternalPayment:
		return true
	}
	return false
}

// EconomyEntry is an immutable ledger line. Balances are derived from entries and never stored.
type EconomyEntry struct {
	ID     string    `json:"id"`
	Seq    int64     `json:"seq"`
	Type   EntryType `json:"type"`
	Amount float64   `json:"amount"`
	FromID string    `json:"from_id,omitempty"`
	ToID   string    `json:"to_id,omitempty"`
	Memo   string    `json:"memo,omitempty"`
	// RefKey makes system-generated entries idempotent; empty for voluntary transfers.
	RefKey    string    `json:"ref_key,omitempty"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Balance folds entries into the balance of account.
func Balance(entries []*EconomyEntry, account string) float64 {
	var bal float64
	for _, e := range entries {
		if e.ToID == account {
			bal += e.Amount
		}
		if e.FromID == account {
			bal -= e.Amount
		}
	}
	return bal
}

// TransferRequest moves funds between two accounts on the owner's behalf.
type TransferRequest struct {
	FromID string  `json:"from_id"`
	ToID   string  `json:"to_id"`
	Amount float64 `json:"amount"`
	Memo   string  `json:"memo,omitempty"`
}

// AwardRequest credits an account from the treasury.
type AwardRequest struct {
	ToID   string  `json:"to_id"`
	Amount float64 `json:"amount"`
	Reason string  `json:"reason,omitempty"`
	By     string  `json:"by"`
}

// Settlement summarizes the ledger effects of a review.
type Settlement struct {
	JobID    string          `json:"job_id"`
	Approved bool            `json:"approved"`
	Entries  []*EconomyEntry `json:"entries"`
	// Skipped lists ref keys that had already been settled.
	Skipped []string `json:"skipped,omitempty"`
}
