package jsonfile

import (
	"context"

	"stellar-micro-donation/internal/core/domain"
	"stellar-micro-donation/internal/core/ports"
)

// WalletRepo implements ports.WalletRepository on wallets.json.
type WalletRepo struct {
	c *collection[domain.Wallet]
}

// Create appends a wallet. IDs and addresses are unique.
func (r *WalletRepo) Create(_ context.Context, w *domain.Wallet) error {
	return r.c.mutate(func(items []domain.Wallet) ([]domain.Wallet, error) {
		for _, existing := range items {
			if existing.ID == w.ID || existing.Address == w.Address {
				return nil, ports.ErrDuplicateKey
			}
		}
		return append(items, *w), nil
	})
}

func (r *WalletRepo) GetByID(_ context.Context, id string) (*domain.Wallet, error) {
	return r.find(func(w domain.Wallet) bool { return w.ID == id }), nil
}

func (r *WalletRepo) GetByAddress(_ context.Context, address string) (*domain.Wallet, error) {
	return r.find(func(w domain.Wallet) bool { return w.Address == address }), nil
}

// List returns wallets in registration order.
func (r *WalletRepo) List(_ context.Context, activeOnly bool) ([]domain.Wallet, error) {
	items := r.c.snapshot()
	if !activeOnly {
		if items == nil {
			items = []domain.Wallet{}
		}
		return items, nil
	}
	out := make([]domain.Wallet, 0, len(items))
	for _, w := range items {
		if w.Active {
			out = append(out, w)
		}
	}
	return out, nil
}

// Update replaces the stored wallet with the same ID.
func (r *WalletRepo) Update(_ context.Context, w *domain.Wallet) error {
	return r.c.mutate(func(items []domain.Wallet) ([]domain.Wallet, error) {
		for i := range items {
			if items[i].ID == w.ID {
				items[i] = *w
				return items, nil
			}
		}
		return nil, ports.ErrRecordNotFound
	})
}

func (r *WalletRepo) find(match func(domain.Wallet) bool) *domain.Wallet {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	for _, w := range r.c.items {
		if match(w) {
			found := w
			return &found
		}
	}
	return nil
}
