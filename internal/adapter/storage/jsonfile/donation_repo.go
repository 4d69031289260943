package jsonfile

import (
	"context"
	"fmt"
	"sort"
	"time"

	"stellar-micro-donation/internal/core/domain"
	"stellar-micro-donation/internal/core/ports"
)

// DonationRepo implements ports.DonationRepository on donations.json.
type DonationRepo struct {
	c *collection[domain.Donation]
}

// Create appends a donation. IDs and non-empty idempotency keys are unique.
func (r *DonationRepo) Create(_ context.Context, d *domain.Donation) error {
	return r.c.mutate(func(items []domain.Donation) ([]domain.Donation, error) {
		for _, existing := range items {
			if existing.ID == d.ID {
				return nil, ports.ErrDuplicateKey
			}
			if d.IdempotencyKey != "" && existing.IdempotencyKey == d.IdempotencyKey {
				return nil, ports.ErrDuplicateKey
			}
		}
		return append(items, *d), nil
	})
}

// GetByID returns nil, nil when no donation matches.
func (r *DonationRepo) GetByID(_ context.Context, id string) (*domain.Donation, error) {
	return r.find(func(d domain.Donation) bool { return d.ID == id }), nil
}

func (r *DonationRepo) GetByIdempotencyKey(_ context.Context, key string) (*domain.Donation, error) {
	if key == "" {
		return nil, nil
	}
	return r.find(func(d domain.Donation) bool { return d.IdempotencyKey == key }), nil
}

func (r *DonationRepo) GetByStellarTxID(_ context.Context, txID string) (*domain.Donation, error) {
	return r.find(func(d domain.Donation) bool {
		return d.StellarTxID != nil && *d.StellarTxID == txID
	}), nil
}

// List filters, orders newest first and paginates. The total ignores pagination.
func (r *DonationRepo) List(_ context.Context, params ports.DonationListParams) ([]domain.Donation, int64, error) {
	items := r.c.snapshot()

	matched := make([]domain.Donation, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		d := items[i]
		if params.Status != nil && d.Status != *params.Status {
			continue
		}
		if params.From != nil && d.Timestamp.Before(*params.From) {
			continue
		}
		if params.To != nil && d.Timestamp.After(*params.To) {
			continue
		}
		matched = append(matched, d)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	total := int64(len(matched))
	if params.Offset > 0 {
		if params.Offset >= len(matched) {
			return []domain.Donation{}, total, nil
		}
		matched = matched[params.Offset:]
	}
	if params.Limit > 0 && params.Limit < len(matched) {
		matched = matched[:params.Limit]
	}
	return matched, total, nil
}

// UpdateStatus applies upd and returns the stored donation. It fails with
// ports.ErrStatusConflict unless the stored status can move to status.
func (r *DonationRepo) UpdateStatus(_ context.Context, id string, status domain.DonationStatus, upd domain.DonationStatusUpdate) (*domain.Donation, error) {
	var updated domain.Donation
	err := r.c.mutate(func(items []domain.Donation) ([]domain.Donation, error) {
		for i := range items {
			if items[i].ID == id {
				if !items[i].Status.CanTransitionTo(status) {
					return nil, fmt.Errorf("%w: %s -> %s", ports.ErrStatusConflict, items[i].Status, status)
				}
				items[i].Apply(status, upd, time.Now().UTC())
				updated = items[i]
				return items, nil
			}
		}
		return nil, ports.ErrRecordNotFound
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *DonationRepo) find(match func(domain.Donation) bool) *domain.Donation {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	for _, d := range r.c.items {
		if match(d) {
			found := d
			return &found
		}
	}
	return nil
}
