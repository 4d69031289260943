package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"stellar-micro-donation/internal/core/domain"
	"stellar-micro-donation/internal/core/ports"
	"stellar-micro-donation/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const idempotencyTTL = 24 * time.Hour

// DonationServiceImpl implements ports.DonationService.
type DonationServiceImpl struct {
	repo   ports.DonationRepository
	cache  ports.IdempotencyCache
	ledger ports.Ledger
	now    func() time.Time
	log    zerolog.Logger
}

// NewDonationService creates a new DonationServiceImpl. cache may be nil.
func NewDonationService(
	repo ports.DonationRepository,
	cache ports.IdempotencyCache,
	ledger ports.Ledger,
	log zerolog.Logger,
) *DonationServiceImpl {
	return &DonationServiceImpl{
		repo:   repo,
		cache:  cache,
		ledger: ledger,
		now:    time.Now,
		log:    log,
	}
}

// Create records a donation. A repeated idempotency key returns the original
// record with replayed set. With a source secret the donation is settled on
// the ledger before returning; a ledger rejection marks it failed and the
// ledger error is returned.
func (s *DonationServiceImpl) Create(ctx context.Context, req ports.CreateDonationRequest) (*domain.Donation, bool, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return nil, false, apperror.Validation("amount must be a decimal number")
	}
	amount = amount.Round(domain.AmountScale)
	if !amount.IsPositive() {
		return nil, false, apperror.Validation("amount must be greater than zero")
	}

	recipient := strings.TrimSpace(req.Recipient)
	if recipient == "" {
		return nil, false, apperror.Validation("recipient is required")
	}
	donor := strings.TrimSpace(req.Donor)
	if donor == "" {
		donor = domain.AnonymousDonor
	}
	if donor == recipient {
		return nil, false, apperror.ErrSelfTransfer()
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		if existing := s.replay(ctx, key); existing != nil {
			return existing, true, nil
		}
		existing, err := s.repo.GetByIdempotencyKey(ctx, key)
		if err != nil {
			return nil, false, apperror.ErrStorage(fmt.Errorf("idempotency lookup: %w", err))
		}
		if existing != nil {
			s.remember(ctx, existing)
			return existing, true, nil
		}
	}

	now := s.now().UTC()
	d := &domain.Donation{
		ID:              uuid.NewString(),
		Amount:          amount,
		Donor:           donor,
		Recipient:       recipient,
		Memo:            strings.TrimSpace(req.Memo),
		Timestamp:       now,
		Status:          domain.DonationStatusPending,
		StatusUpdatedAt: now,
		IdempotencyKey:  key,
	}

	if err := s.repo.Create(ctx, d); err != nil {
		if errors.Is(err, ports.ErrDuplicateKey) && key != "" {
			// Lost a race with a concurrent request carrying the same key.
			existing, lookupErr := s.repo.GetByIdempotencyKey(ctx, key)
			if lookupErr == nil && existing != nil {
				return existing, true, nil
			}
		}
		return nil, false, apperror.ErrStorage(fmt.Errorf("create donation: %w", err))
	}

	var settleErr error
	if req.SourceSecret != "" {
		d, settleErr = s.settle(ctx, d, req.SourceSecret)
	}

	s.remember(ctx, d)

	s.log.Info().
		Str("donation_id", d.ID).
		Str("amount", d.Amount.StringFixed(domain.AmountScale)).
		Str("recipient", d.Recipient).
		Str("status", string(d.Status)).
		Msg("donation recorded")

	if settleErr != nil {
		return nil, false, settleErr
	}
	return d, false, nil
}

// settle submits the donation to the ledger and records the outcome.
func (s *DonationServiceImpl) settle(ctx context.Context, d *domain.Donation, secret string) (*domain.Donation, error) {
	res, err := s.ledger.Transfer(ctx, domain.TransferRequest{
		SourceSecret: secret,
		Destination:  d.Recipient,
		Amount:       d.Amount.StringFixed(domain.AmountScale),
		Memo:         d.Memo,
	})
	if err != nil {
		failed, uerr := s.repo.UpdateStatus(ctx, d.ID, domain.DonationStatusFailed, domain.DonationStatusUpdate{
			Reason: failureReason(err),
		})
		if uerr != nil {
			s.log.Error().Err(uerr).Str("donation_id", d.ID).Msg("failed to mark donation as failed")
			return d, err
		}
		return failed, err
	}

	confirmed, err := s.repo.UpdateStatus(ctx, d.ID, domain.DonationStatusConfirmed, domain.DonationStatusUpdate{
		TransactionID: &res.TransactionID,
		Ledger:        &res.Ledger,
		ConfirmedAt:   &res.ConfirmedAt,
	})
	if err != nil {
		if errors.Is(err, ports.ErrStatusConflict) {
			s.log.Error().
				Str("donation_id", d.ID).
				Str("tx_id", res.TransactionID).
				Msg("donation left pending before the ledger transfer was recorded")
			return d, s.transitionConflict(ctx, d.ID, domain.DonationStatusConfirmed)
		}
		return d, apperror.ErrStorage(fmt.Errorf("confirm donation %s: %w", d.ID, err))
	}
	return confirmed, nil
}

// transitionConflict builds the RES_003 error for a write the repository
// refused, reporting the status it holds now.
func (s *DonationServiceImpl) transitionConflict(ctx context.Context, id string, to domain.DonationStatus) error {
	from := "unknown"
	if current, err := s.repo.GetByID(ctx, id); err == nil && current != nil {
		from = string(current.Status)
	}
	return apperror.ErrInvalidTransition(from, string(to))
}

func (s *DonationServiceImpl) Get(ctx context.Context, id string) (*domain.Donation, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrStorage(err)
	}
	if d == nil {
		return nil, apperror.ErrNotFound("Donation")
	}
	return d, nil
}

func (s *DonationServiceImpl) GetByTransaction(ctx context.Context, txID string) (*domain.Donation, error) {
	d, err := s.repo.GetByStellarTxID(ctx, txID)
	if err != nil {
		return nil, apperror.ErrStorage(err)
	}
	if d == nil {
		return nil, apperror.ErrNotFound("Donation")
	}
	return d, nil
}

func (s *DonationServiceImpl) List(ctx context.Context, params ports.DonationListParams) ([]domain.Donation, int64, error) {
	list, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrStorage(err)
	}
	return list, total, nil
}

// UpdateStatus moves a pending donation to a terminal status.
func (s *DonationServiceImpl) UpdateStatus(ctx context.Context, id string, status domain.DonationStatus, upd domain.DonationStatusUpdate) (*domain.Donation, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Status.CanTransitionTo(status) {
		return nil, apperror.ErrInvalidTransition(string(d.Status), string(status))
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status, upd)
	if err != nil {
		switch {
		case errors.Is(err, ports.ErrRecordNotFound):
			return nil, apperror.ErrNotFound("Donation")
		case errors.Is(err, ports.ErrStatusConflict):
			return nil, s.transitionConflict(ctx, id, status)
		}
		return nil, apperror.ErrStorage(err)
	}

	s.log.Info().
		Str("donation_id", id).
		Str("from", string(d.Status)).
		Str("to", string(status)).
		Msg("donation status updated")
	return updated, nil
}

// Verify looks the transaction up on the ledger and attaches the donation
// settled by it, if any.
func (s *DonationServiceImpl) Verify(ctx context.Context, txID string) (*ports.VerificationResult, error) {
	v, err := s.ledger.VerifyTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	d, err := s.repo.GetByStellarTxID(ctx, txID)
	if err != nil {
		return nil, apperror.ErrStorage(err)
	}
	return &ports.VerificationResult{TransactionVerification: *v, Donation: d}, nil
}

func (s *DonationServiceImpl) replay(ctx context.Context, key string) *domain.Donation {
	if s.cache == nil {
		return nil
	}
	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to store")
		return nil
	}
	if cached == nil {
		return nil
	}
	var d domain.Donation
	if err := json.Unmarshal(cached, &d); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("discarding unreadable idempotency entry")
		return nil
	}
	return &d
}

func (s *DonationServiceImpl) remember(ctx context.Context, d *domain.Donation) {
	if s.cache == nil || d.IdempotencyKey == "" {
		return
	}
	data, err := json.Marshal(d)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, d.IdempotencyKey, data, idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", d.IdempotencyKey).Msg("failed to cache idempotency in redis")
	}
}

func failureReason(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
