package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits every ledger amount carries.
const AmountScale = 7

// LedgerTxStatus is the settlement state reported by the ledger.
type LedgerTxStatus string

const (
	LedgerTxConfirmed LedgerTxStatus = "confirmed"
)

// AccountKeys is the credential pair handed out when an account is created.
// The secret is returned exactly once.
type AccountKeys struct {
	PublicKey string `json:"public_key"`
	SecretKey string `json:"secret_key"`
}

// LedgerAccount is a balance-holding account on the ledger.
type LedgerAccount struct {
	PublicKey string          `json:"public_key"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	FundedAt  *time.Time      `json:"funded_at,omitempty"`
}

// AccountBalance is the answer to a balance query.
type AccountBalance struct {
	Balance decimal.Decimal `json:"balance"`
	Asset   string          `json:"asset"`
}

// FundingStatus reports whether an account exists and holds a positive balance.
type FundingStatus struct {
	Funded  bool            `json:"funded"`
	Balance decimal.Decimal `json:"balance"`
	Exists  bool            `json:"exists"`
}

// LedgerTransaction is an immutable record of a committed transfer.
type LedgerTransaction struct {
	ID          string          `json:"id"`
	Source      string          `json:"source"`
	Destination string          `json:"destination"`
	Amount      decimal.Decimal `json:"amount"`
	Memo        string          `json:"memo"`
	Ledger      int64           `json:"ledger"`
	CreatedAt   time.Time       `json:"timestamp"`
	Status      LedgerTxStatus  `json:"status"`
	ConfirmedAt time.Time       `json:"confirmed_at"`
}

// Involves reports whether accountID is either side of the transfer.
func (t LedgerTransaction) Involves(accountID string) bool {
	return t.Source == accountID || t.Destination == accountID
}

// TransferRequest asks the ledger to move value between two accounts.
type TransferRequest struct {
	SourceSecret string
	Destination  string
	Amount       string
	Memo         string
}

// TransferResult is returned once a transfer has been committed.
type TransferResult struct {
	TransactionID string          `json:"transaction_id"`
	Ledger        int64           `json:"ledger"`
	Status        LedgerTxStatus  `json:"status"`
	ConfirmedAt   time.Time       `json:"confirmed_at"`
	Amount        decimal.Decimal `json:"amount"`
}

// TransactionVerification is the answer to a lookup by transaction id.
type TransactionVerification struct {
	Verified    bool              `json:"verified"`
	Status      LedgerTxStatus    `json:"status"`
	Transaction LedgerTransaction `json:"transaction"`
}

// LedgerStats summarises the simulator state for diagnostics.
type LedgerStats struct {
	Accounts     int `json:"accounts"`
	Transactions int `json:"transactions"`
	Subscribers  int `json:"subscribers"`
}

// TransactionHandler receives committed transactions.
type TransactionHandler func(tx LedgerTransaction) error
