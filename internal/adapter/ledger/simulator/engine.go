package simulator

import (
	"fmt"
	"io"
	"time"

	"stellar-micro-donation/internal/core/domain"

	"github.com/rs/zerolog"
)

// LedgerEngine executes transfers atomically against the shared state and
// notifies the hub once a transfer is committed.
type LedgerEngine struct {
	st       *state
	registry *AccountRegistry
	txlog    *TransactionLog
	hub      *EventHub
	now      func() time.Time
	entropy  io.Reader
	log      zerolog.Logger
}

// Transfer moves req.Amount from the account owning req.SourceSecret to
// req.Destination.
//
// Checks run in a fixed order: credential, self-transfer, destination exists,
// destination funded, amount. The source balance is not checked and may go
// negative.
func (e *LedgerEngine) Transfer(req domain.TransferRequest) (domain.TransferResult, error) {
	tx, err := e.commit(req)
	if err != nil {
		return domain.TransferResult{}, err
	}

	e.log.Info().
		Str("tx_id", tx.ID).
		Str("source", tx.Source).
		Str("destination", tx.Destination).
		Str("amount", FormatAmount(tx.Amount)).
		Int64("ledger", tx.Ledger).
		Msg("transfer committed")

	e.hub.Publish(tx.Source, tx)
	e.hub.Publish(tx.Destination, tx)
	e.hub.publishAll(tx)

	return domain.TransferResult{
		TransactionID: tx.ID,
		Ledger:        tx.Ledger,
		Status:        tx.Status,
		ConfirmedAt:   tx.ConfirmedAt,
		Amount:        tx.Amount,
	}, nil
}

// commit validates and applies the transfer under the write lock.
func (e *LedgerEngine) commit(req domain.TransferRequest) (domain.LedgerTransaction, error) {
	e.st.mu.Lock()
	defer e.st.mu.Unlock()

	source, ok := e.registry.resolveByPrivateCredential(req.SourceSecret)
	if !ok {
		return domain.LedgerTransaction{}, ErrInvalidCredential
	}
	if source.PublicKey == req.Destination {
		return domain.LedgerTransaction{}, ErrSelfTransfer
	}
	dest, ok := e.st.accounts[req.Destination]
	if !ok {
		return domain.LedgerTransaction{}, fmt.Errorf("%w: destination wallet %s", ErrNotFound, req.Destination)
	}
	if !dest.Balance.IsPositive() {
		return domain.LedgerTransaction{}, fmt.Errorf("%w: %s", ErrUnfundedDestination, req.Destination)
	}

	amount, err := ParseAmount(req.Amount)
	if err != nil {
		return domain.LedgerTransaction{}, err
	}


	id, err := e.allocateID()
	if err != nil {
		return domain.LedgerTransaction{}, err
	}

	now := e.now().UTC()
	tx := domain.LedgerTransaction{
		ID:          id,
		Source:      source.PublicKey,
		Destination: dest.PublicKey,
		Amount:      amount,
		Memo:        req.Memo,
		Ledger:      e.st.nextSequence(),
		CreatedAt:   now,
		Status:      domain.LedgerTxConfirmed,
		ConfirmedAt: now,
	}

	source.Balance = source.Balance.Sub(amount)
	dest.Balance = dest.Balance.Add(amount)
	e.txlog.record(tx)
	return tx, nil
}

// allocateID returns a transaction id not present in the index.
// Caller holds the write lock.
func (e *LedgerEngine) allocateID() (string, error) {
	for attempt := 0; attempt < maxAllocAttempts; attempt++ {
		id, err := newTransactionID(e.entropy)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInternal, err)
		}
		if _, taken := e.st.index[id]; !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: no unique transaction id after %d attempts", ErrInternal, maxAllocAttempts)
}
