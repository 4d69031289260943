package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stellar-micro-donation/internal/core/domain"
	"stellar-micro-donation/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const donationColumns = `id, amount::text, donor, recipient, memo, status, stellar_tx_id, stellar_ledger,
		failure_reason, idempotency_key, created_at, status_updated_at, confirmed_at`

// DonationRepo implements ports.DonationRepository.
type DonationRepo struct {
	pool Pool
}

// NewDonationRepo creates a new DonationRepo.
func NewDonationRepo(pool Pool) *DonationRepo {
	return &DonationRepo{pool: pool}
}

// Create inserts a donation. Unique violations map to ports.ErrDuplicateKey.
func (r *DonationRepo) Create(ctx context.Context, d *domain.Donation) error {
	query := `INSERT INTO donations (id, amount, donor, recipient, memo, status, stellar_tx_id, stellar_ledger,
		failure_reason, idempotency_key, created_at, status_updated_at, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		d.ID, d.Amount.StringFixed(domain.AmountScale), d.Donor, d.Recipient, d.Memo, string(d.Status),
		d.StellarTxID, d.StellarLedger, d.FailureReason, nullIfEmpty(d.IdempotencyKey),
		d.Timestamp, d.StatusUpdatedAt, d.ConfirmedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrDuplicateKey
		}
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

// GetByID fetches a donation by ID.
func (r *DonationRepo) GetByID(ctx context.Context, id string) (*domain.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE id = $1`
	return r.scanDonation(r.pool.QueryRow(ctx, query, id))
}

// GetByIdempotencyKey fetches the donation created under key.
func (r *DonationRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Donation, error) {
	if key == "" {
		return nil, nil
	}
	query := `SELECT ` + donationColumns + ` FROM donations WHERE idempotency_key = $1`
	return r.scanDonation(r.pool.QueryRow(ctx, query, key))
}

// GetByStellarTxID fetches the donation settled by a ledger transaction.
func (r *DonationRepo) GetByStellarTxID(ctx context.Context, txID string) (*domain.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE stellar_tx_id = $1`
	return r.scanDonation(r.pool.QueryRow(ctx, query, txID))
}

// List fetches donations with filtering and pagination, newest first.
func (r *DonationRepo) List(ctx context.Context, params ports.DonationListParams) ([]domain.Donation, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, string(*params.Status))
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Count total
	var total int64
	err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM donations %s", where), args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count donations: %w", err)
	}

	// Fetch page
	dataQuery := fmt.Sprintf(`SELECT %s FROM donations %s ORDER BY created_at DESC`, donationColumns, where)
	if params.Limit > 0 {
		dataQuery += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, params.Limit)
		argIdx++
	}
	if params.Offset > 0 {
		dataQuery += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, params.Offset)
	}

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list donations: %w", err)
	}
	defer rows.Close()

	donations := make([]domain.Donation, 0)
	for rows.Next() {
		d, err := scanDonationRow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan donation row: %w", err)
		}
		donations = append(donations, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate donation rows: %w", err)
	}
	return donations, total, nil
}

// UpdateStatus applies a status change to a pending donation and returns the
// updated row. Nil update fields keep their stored value. A row that exists
// but is no longer pending yields ports.ErrStatusConflict.
func (r *DonationRepo) UpdateStatus(ctx context.Context, id string, status domain.DonationStatus, upd domain.DonationStatusUpdate) (*domain.Donation, error) {
	if !domain.DonationStatusPending.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: -> %s", ports.ErrStatusConflict, status)
	}

	query := `UPDATE donations SET
		status = $2,
		status_updated_at = $3,
		stellar_tx_id = COALESCE($4, stellar_tx_id),
		stellar_ledger = COALESCE($5, stellar_ledger),
		confirmed_at = COALESCE($6, confirmed_at),
		failure_reason = COALESCE(NULLIF($7, ''), failure_reason)
		WHERE id = $1 AND status = $8
		RETURNING ` + donationColumns

	d, err := r.scanDonation(r.pool.QueryRow(ctx, query,
		id, string(status), time.Now().UTC(), upd.TransactionID, upd.Ledger, upd.ConfirmedAt, upd.Reason,
		string(domain.DonationStatusPending),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ports.ErrDuplicateKey
		}
		return nil, err
	}
	if d == nil {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM donations WHERE id = $1)`, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check donation %s: %w", id, err)
		}
		if exists {
			return nil, ports.ErrStatusConflict
		}
		return nil, ports.ErrRecordNotFound
	}
	return d, nil
}

func (r *DonationRepo) scanDonation(row pgx.Row) (*domain.Donation, error) {
	d, err := scanDonationRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan donation: %w", err)
	}
	return d, nil
}

func scanDonationRow(row pgx.Row) (*domain.Donation, error) {
	var (
		d              domain.Donation
		amount         string
		status         string
		idempotencyKey *string
	)
	err := row.Scan(
		&d.ID, &amount, &d.Donor, &d.Recipient, &d.Memo, &status, &d.StellarTxID, &d.StellarLedger,
		&d.FailureReason, &idempotencyKey, &d.Timestamp, &d.StatusUpdatedAt, &d.ConfirmedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	d.Status = domain.DonationStatus(status)
	if idempotencyKey != nil {
		d.IdempotencyKey = *idempotencyKey
	}
	return &d, nil
}
