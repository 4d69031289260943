package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DonationStatus represents the lifecycle state of a donation record.
type DonationStatus string

const (
	DonationStatusPending   DonationStatus = "pending"
	DonationStatusConfirmed DonationStatus = "confirmed"
	DonationStatusFailed    DonationStatus = "failed"
)

// AnonymousDonor is recorded when no donor is given.
const AnonymousDonor = "Anonymous"

// ParseDonationStatus validates a status string.
func ParseDonationStatus(s string) (DonationStatus, bool) {
	switch st := DonationStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case DonationStatusPending, DonationStatusConfirmed, DonationStatusFailed:
		return st, true
	}
	return "", false
}

// IsTerminal reports whether no further transition is allowed.
func (s DonationStatus) IsTerminal() bool {
	return s == DonationStatusConfirmed || s == DonationStatusFailed
}

// CanTransitionTo enforces pending -> confirmed | failed.
func (s DonationStatus) CanTransitionTo(next DonationStatus) bool {
	return s == DonationStatusPending && next.IsTerminal()
}

// Donation is the application-side record of a donation and its ledger outcome.
type Donation struct {
	ID              string          `json:"id"`
	Amount          decimal.Decimal `json:"amount"`
	Donor           string          `json:"donor"`
	Recipient       string          `json:"recipient"`
	Memo            string          `json:"memo,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
	Status          DonationStatus  `json:"status"`
	StellarTxID     *string         `json:"stellar_tx_id,omitempty"`
	StellarLedger   *int64          `json:"stellar_ledger,omitempty"`
	StatusUpdatedAt time.Time       `json:"status_updated_at"`
	ConfirmedAt     *time.Time      `json:"confirmed_at,omitempty"`
	FailureReason   string          `json:"failure_reason,omitempty"`
	IdempotencyKey  string          `json:"idempotency_key,omitempty"`
}

// DonationStatusUpdate carries the ledger outcome applied on a status change.
type DonationStatusUpdate struct {
	TransactionID *string
	Ledger        *int64
	ConfirmedAt   *time.Time
	Reason        string
}

// Apply moves the donation to status and copies the update fields.
func (d *Donation) Apply(status DonationStatus, upd DonationStatusUpdate, now time.Time) {
	d.Status = status
	d.StatusUpdatedAt = now
	if upd.TransactionID != nil {
		d.StellarTxID = upd.TransactionID
	}
	if upd.Ledger != nil {
		d.StellarLedger = upd.Ledger
	}
	if upd.ConfirmedAt != nil {
		d.ConfirmedAt = upd.ConfirmedAt
	}
	if upd.Reason != "" {
		d.FailureReason = upd.Reason
	}
}
