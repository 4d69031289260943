package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stellar-micro-donation/internal/core/domain"
	"stellar-micro-donation/internal/core/ports"
	"stellar-micro-donation/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	repo   ports.WalletRepository
	ledger ports.Ledger
	now    func() time.Time
	log    zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(repo ports.WalletRepository, ledger ports.Ledger, log zerolog.Logger) *WalletServiceImpl {
	return &WalletServiceImpl{
		repo:   repo,
		ledger: ledger,
		now:    time.Now,
		log:    log,
	}
}

// Create registers an existing ledger address, or provisions a new account
// when req.Address is empty. The secret of a provisioned account is returned
// once and never stored.
func (s *WalletServiceImpl) Create(ctx context.Context, req ports.CreateWalletRequest) (*ports.CreatedWallet, error) {
	address := strings.TrimSpace(req.Address)
	var secret string

	if address == "" {
		keys, err := s.ledger.CreateAccount(ctx)
		if err != nil {
			return nil, err
		}
		address, secret = keys.PublicKey, keys.SecretKey
	} else {
		existing, err := s.repo.GetByAddress(ctx, address)
		if err != nil {
			return nil, apperror.ErrStorage(err)
		}
		if existing != nil {
			return nil, apperror.ErrAlreadyExists("Wallet")
		}
		status, err := s.ledger.IsFunded(ctx, address)
		if err != nil {
			return nil, err
		}
		if !status.Exists {
			return nil, apperror.ErrNotFound("Ledger account")
		}
	}

	w := &domain.Wallet{
		ID:        uuid.NewString(),
		Address:   address,
		Label:     strings.TrimSpace(req.Label),
		OwnerName: strings.TrimSpace(req.OwnerName),
		Active:    true,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, w); err != nil {
		if secret != "" {
			s.log.Warn().
				Err(err).
				Str("address", address).
				Msg("ledger account provisioned but wallet not stored, account orphaned")
		}
		if errors.Is(err, ports.ErrDuplicateKey) {
			return nil, apperror.ErrAlreadyExists("Wallet")
		}
		return nil, apperror.ErrStorage(fmt.Errorf("create wallet: %w", err))
	}

	out := &ports.CreatedWallet{Wallet: w, SecretKey: secret}
	if req.Fund {
		bal, err := s.ledger.FundAccount(ctx, address)
		if err != nil {
			return nil, err
		}
		out.Balance = bal
	}

	s.log.Info().
		Str("wallet_id", w.ID).
		Str("address", w.Address).
		Bool("provisioned", secret != "").
		Bool("funded", req.Fund).
		Msg("wallet registered")

	return out, nil
}

func (s *WalletServiceImpl) Get(ctx context.Context, id string) (*domain.Wallet, error) {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrStorage(err)
	}
	if w == nil {
		return nil, apperror.ErrNotFound("Wallet")
	}
	return w, nil
}

func (s *WalletServiceImpl) List(ctx context.Context, activeOnly bool) ([]domain.Wallet, error) {
	list, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, apperror.ErrStorage(err)
	}
	return list, nil
}

// SetActive activates or deactivates a wallet. Repeating the current state
// is a no-op.
func (s *WalletServiceImpl) SetActive(ctx context.Context, id string, active bool) (*domain.Wallet, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.Active == active {
		return w, nil
	}

	w.SetActive(active, s.now().UTC())
	if err := s.repo.Update(ctx, w); err != nil {
		if errors.Is(err, ports.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound("Wallet")
		}
		return nil, apperror.ErrStorage(err)
	}

	s.log.Info().Str("wallet_id", id).Bool("active", active).Msg("wallet state changed")
	return w, nil
}

func (s *WalletServiceImpl) Balance(ctx context.Context, id string) (*domain.AccountBalance, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.ledger.GetBalance(ctx, w.Address)
}

func (s *WalletServiceImpl) Fund(ctx context.Context, id string) (*domain.AccountBalance, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	bal, err := s.ledger.FundAccount(ctx, w.Address)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("wallet_id", id).Str("address", w.Address).Msg("wallet funded")
	return bal, nil
}

func (s *WalletServiceImpl) History(ctx context.Context, id string, limit int) ([]domain.LedgerTransaction, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.ledger.History(ctx, w.Address, limit)
}

// Watch subscribes handler to transactions touching the wallet's address.
func (s *WalletServiceImpl) Watch(ctx context.Context, id string, handler domain.TransactionHandler) (func(), error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.ledger.Subscribe(w.Address, handler), nil
}
