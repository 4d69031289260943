package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"stellar-micro-donation/internal/core/domain"

	"github.com/shopspring/decimal"
)

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// --- Service Ports (Business Logic) ---

// DonationService records donations and settles them on the ledger.
type DonationService interface {
	Create(ctx context.Context, req CreateDonationRequest) (*domain.Donation, bool, error) // donation, replayed, error
	Get(ctx context.Context, id string) (*domain.Donation, error)
	GetByTransaction(ctx context.Context, txID string) (*domain.Donation, error)
	List(ctx context.Context, params DonationListParams) ([]domain.Donation, int64, error)
	UpdateStatus(ctx context.Context, id string, status domain.DonationStatus, upd domain.DonationStatusUpdate) (*domain.Donation, error)
	Verify(ctx context.Context, txID string) (*VerificationResult, error)
}

// CreateDonationRequest holds validated input for a new donation.
// When SourceSecret is set the donation is submitted to the ledger immediately.
type CreateDonationRequest struct {
	Amount         string
	Donor          string
	Recipient      string
	Memo           string
	IdempotencyKey string
	SourceSecret   string
}

// VerificationResult pairs a ledger lookup with the donation that references it.
type VerificationResult struct {
	domain.TransactionVerification
	Donation *domain.Donation `json:"donation,omitempty"`
}

// WalletService manages wallet records and their ledger accounts.
type WalletService interface {
	Create(ctx context.Context, req CreateWalletRequest) (*CreatedWallet, error)
	Get(ctx context.Context, id string) (*domain.Wallet, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Wallet, error)
	SetActive(ctx context.Context, id string, active bool) (*domain.Wallet, error)
	Balance(ctx context.Context, id string) (*domain.AccountBalance, error)
	Fund(ctx context.Context, id string) (*domain.AccountBalance, error)
	History(ctx context.Context, id string, limit int) ([]domain.LedgerTransaction, error)
	Watch(ctx context.Context, id string, handler domain.TransactionHandler) (func(), error)
}

// CreateWalletRequest holds input for wallet registration.
// An empty Address provisions a fresh ledger account.
type CreateWalletRequest struct {
	Address   string
	Label     string
	OwnerName string
	Fund      bool
}

// CreatedWallet is the registration result. SecretKey is only set for
// provisioned accounts and is shown once.
type CreatedWallet struct {
	Wallet    *domain.Wallet
	SecretKey string
	Balance   *domain.AccountBalance
}

// ReportingService aggregates donation statistics.
type ReportingService interface {
	Summary(ctx context.Context, window StatsWindow) (*DonationSummary, error)
	Daily(ctx context.Context, window StatsWindow) ([]DonationBucket, error)
	Weekly(ctx context.Context, window StatsWindow) ([]DonationBucket, error)
}

// StatsWindow bounds a stats query. Nil ends are open.
type StatsWindow struct {
	From *time.Time
	To   *time.Time
}

// DonationSummary holds aggregate figures over a window.
type DonationSummary struct {
	TotalAmount    decimal.Decimal
	Count          int64
	Confirmed      int64
	Pending        int64
	UniqueDonors   int64
	ByRecipient    map[string]decimal.Decimal
	AverageAmount  decimal.Decimal
	LargestAmount  decimal.Decimal
	FirstDonation  *time.Time
	LatestDonation *time.Time
}

// DonationBucket is one period of a time series.
type DonationBucket struct {
	Start       time.Time
	End         time.Time
	TotalAmount decimal.Decimal
	Count       int64
}

// ReceiptService issues signed receipts for confirmed donations.
type ReceiptService interface {
	Issue(ctx context.Context, donationID string) (*Receipt, error)
	Verify(token string) (*ReceiptClaims, error)
}

// Receipt is a signed receipt token.
type Receipt struct {
	Token     string
	ExpiresAt time.Time
	Claims    ReceiptClaims
}

// ReceiptClaims holds the donation facts a receipt attests to.
type ReceiptClaims struct {
	DonationID    string
	TransactionID string
	Amount        string
	Donor         string
	Recipient     string
	ConfirmedAt   time.Time
}

// AuditService records audited actions.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
