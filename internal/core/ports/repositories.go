package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"stellar-micro-donation/internal/core/domain"
)

// ErrDuplicateKey is returned by repositories when a unique field collides
// (donation idempotency key, wallet address).
var ErrDuplicateKey = errors.New("duplicate key")

// ErrRecordNotFound is returned by update operations on a missing record.
// Lookups return nil, nil instead.
var ErrRecordNotFound = errors.New("record not found")

// ErrStatusConflict is returned by DonationRepository.UpdateStatus when the
// stored status cannot move to the requested one. The check and the write are
// a single step.
var ErrStatusConflict = errors.New("status transition not allowed")

// DonationRepository defines persistence operations for donation records.
type DonationRepository interface {
	Create(ctx context.Context, donation *domain.Donation) error
	GetByID(ctx context.Context, id string) (*domain.Donation, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Donation, error)
	GetByStellarTxID(ctx context.Context, txID string) (*domain.Donation, error)
	List(ctx context.Context, params DonationListParams) ([]domain.Donation, int64, error)
	UpdateStatus(ctx context.Context, id string, status domain.DonationStatus, upd domain.DonationStatusUpdate) (*domain.Donation, error)
}

// DonationListParams holds filter + pagination for listing donations.
// Results are ordered newest first.
type DonationListParams struct {
	Status *domain.DonationStatus
	From   *time.Time
	To     *time.Time
	Limit  int // 0 = no limit
	Offset int
}

// WalletRepository defines persistence operations for wallet records.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id string) (*domain.Wallet, error)
	GetByAddress(ctx context.Context, address string) (*domain.Wallet, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Wallet, error)
	Update(ctx context.Context, wallet *domain.Wallet) error
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}
