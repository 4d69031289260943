package postgres

import (
	"context"
	"errors"
	"fmt"

	"stellar-micro-donation/internal/core/domain"
	"stellar-micro-donation/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

const walletColumns = `id, address, label, owner_name, active, created_at, updated_at, deactivated_at`

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet into the database.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (` + walletColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.Address, w.Label, w.OwnerName, w.Active,
		w.CreatedAt, w.UpdatedAt, w.DeactivatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrDuplicateKey
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByID fetches a wallet by ID.
func (r *WalletRepo) GetByID(ctx context.Context, id string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	return r.scanWallet(r.pool.QueryRow(ctx, query, id))
}

// GetByAddress fetches a wallet by its ledger address.
func (r *WalletRepo) GetByAddress(ctx context.Context, address string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE address = $1`
	return r.scanWallet(r.pool.QueryRow(ctx, query, address))
}

// List fetches wallets in registration order.
func (r *WalletRepo) List(ctx context.Context, activeOnly bool) ([]domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	wallets := make([]domain.Wallet, 0)
	for rows.Next() {
		var w domain.Wallet
		if err := rows.Scan(&w.ID, &w.Address, &w.Label, &w.OwnerName, &w.Active,
			&w.CreatedAt, &w.UpdatedAt, &w.DeactivatedAt); err != nil {
			return nil, fmt.Errorf("scan wallet row: %w", err)
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet rows: %w", err)
	}
	return wallets, nil
}

// Update writes the mutable wallet fields.
func (r *WalletRepo) Update(ctx context.Context, w *domain.Wallet) error {
	query := `UPDATE wallets SET label = $2, owner_name = $3, active = $4, updated_at = $5, deactivated_at = $6
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, w.ID, w.Label, w.OwnerName, w.Active, w.UpdatedAt, w.DeactivatedAt)
	if err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrRecordNotFound
	}
	return nil
}

func (r *WalletRepo) scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(&w.ID, &w.Address, &w.Label, &w.OwnerName, &w.Active,
		&w.CreatedAt, &w.UpdatedAt, &w.DeactivatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	return w, nil
}
