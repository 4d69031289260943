package ports

//go:generate mockgen -source=ledger.go -destination=mocks/mock_ledger.go -package=mocks

import (
	"context"

	"stellar-micro-donation/internal/core/domain"
)

// Ledger is the value-transfer network the donation flow settles on.
// Errors are *apperror.AppError values (LED_*, RES_001, SYS_002).
type Ledger interface {
	CreateAccount(ctx context.Context) (*domain.AccountKeys, error)
	GetBalance(ctx context.Context, publicKey string) (*domain.AccountBalance, error)
	FundAccount(ctx context.Context, publicKey string) (*domain.AccountBalance, error)
	IsFunded(ctx context.Context, publicKey string) (*domain.FundingStatus, error)
	Transfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferResult, error)
	History(ctx context.Context, publicKey string, limit int) ([]domain.LedgerTransaction, error)
	VerifyTransaction(ctx context.Context, txID string) (*domain.TransactionVerification, error)

	// Subscribe registers handler for transactions touching publicKey.
	// The returned function removes exactly this registration.
	Subscribe(publicKey string, handler domain.TransactionHandler) (unsubscribe func())
	// SubscribeAll registers handler for every committed transaction.
	SubscribeAll(handler domain.TransactionHandler) (unsubscribe func())

	Stats() domain.LedgerStats
}

// EventPublisher ships domain events to an external stream.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
	Close() error
}
