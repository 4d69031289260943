package simulator

import (
	"context"
	"errors"

	"stellar-micro-donation/internal/core/domain"
	"stellar-micro-donation/pkg/apperror"
)

// Client adapts a Simulator to ports.Ledger. Contexts are accepted for
// interface parity; no simulator operation blocks.
type Client struct {
	sim *Simulator
}

// NewClient wraps sim.
func NewClient(sim *Simulator) *Client {
	return &Client{sim: sim}
}

func (c *Client) CreateAccount(_ context.Context) (*domain.AccountKeys, error) {
	keys, err := c.sim.Registry.CreateAccount()
	if err != nil {
		return nil, mapError(err, "Wallet")
	}
	return &keys, nil
}

func (c *Client) GetBalance(_ context.Context, publicKey string) (*domain.AccountBalance, error) {
	bal, err := c.sim.Registry.GetBalance(publicKey)
	if err != nil {
		return nil, mapError(err, "Wallet")
	}
	return &bal, nil
}

func (c *Client) FundAccount(_ context.Context, publicKey string) (*domain.AccountBalance, error) {
	bal, err := c.sim.Registry.FundAccount(publicKey)
	if err != nil {
		return nil, mapError(err, "Wallet")
	}
	return &bal, nil
}

func (c *Client) IsFunded(_ context.Context, publicKey string) (*domain.FundingStatus, error) {
	st := c.sim.Registry.IsFunded(publicKey)
	return &st, nil
}

func (c *Client) Transfer(_ context.Context, req domain.TransferRequest) (*domain.TransferResult, error) {
	res, err := c.sim.Engine.Transfer(req)
	if err != nil {
		return nil, mapError(err, "Destination wallet")
	}
	return &res, nil
}

func (c *Client) History(_ context.Context, publicKey string, limit int) ([]domain.LedgerTransaction, error) {
	txs, err := c.sim.Log.History(publicKey, limit)
	if err != nil {
		return nil, mapError(err, "Wallet")
	}
	return txs, nil
}

func (c *Client) VerifyTransaction(_ context.Context, txID string) (*domain.TransactionVerification, error) {
	v, err := c.sim.Log.FindByID(txID)
	if err != nil {
		return nil, mapError(err, "Transaction")
	}
	return &v, nil
}

func (c *Client) Subscribe(publicKey string, handler domain.TransactionHandler) func() {
	return c.sim.Hub.Subscribe(publicKey, handler)
}

func (c *Client) SubscribeAll(handler domain.TransactionHandler) func() {
	return c.sim.Hub.SubscribeAll(handler)
}

func (c *Client) Stats() domain.LedgerStats {
	return c.sim.Stats()
}

// mapError converts simulator sentinels to application errors. entity names
// the missing object for ErrNotFound.
func mapError(err error, entity string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		e := apperror.ErrNotFound(entity)
		e.Err = err
		return e
	case errors.Is(err, ErrInvalidCredential):
		return apperror.ErrInvalidCredential()
	case errors.Is(err, ErrSelfTransfer):
		return apperror.ErrSelfTransfer()
	case errors.Is(err, ErrUnfundedDestination):
		e := apperror.ErrUnfundedDestination()
		e.Err = err
		return e
	case errors.Is(err, ErrInvalidAmount):
		e := apperror.ErrInvalidAmount()
		e.Err = err
		return e
	default:
		return apperror.ErrLedgerInvariant(err)
	}
}

// HealthCheck implements ports.HealthChecker for the simulator.
type HealthCheck struct {
	sim *Simulator
}

// NewHealthCheck creates a simulator health checker.
func NewHealthCheck(sim *Simulator) *HealthCheck {
	return &HealthCheck{sim: sim}
}

// Ping succeeds while the state lock can be taken.
func (h *HealthCheck) Ping(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.sim.Stats()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "ledger"
}
