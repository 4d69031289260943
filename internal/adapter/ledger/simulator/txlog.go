package simulator

import (
	"fmt"

	"stellar-micro-donation/internal/core/domain"
)

// TransactionLog keeps per-account histories in commit order plus a global
// index by transaction id.
type TransactionLog struct {
	st           *state
	defaultLimit int
}

// record appends tx to both parties' histories and indexes it.
// Caller holds the write lock.
func (l *TransactionLog) record(tx domain.LedgerTransaction) {
	l.st.histories[tx.Source] = append(l.st.histories[tx.Source], tx)
	if tx.Destination != tx.Source {
		l.st.histories[tx.Destination] = append(l.st.histories[tx.Destination], tx)
	}
	l.st.index[tx.ID] = tx
}

// History returns up to limit transactions touching publicKey, newest first.
// A non-positive limit selects the default.
func (l *TransactionLog) History(publicKey string, limit int) ([]domain.LedgerTransaction, error) {
	if limit <= 0 {
		limit = l.defaultLimit
	}

	l.st.mu.RLock()
	defer l.st.mu.RUnlock()

	if _, ok := l.st.accounts[publicKey]; !ok {
		return nil, fmt.Errorf("%w: wallet %s", ErrNotFound, publicKey)
	}

	entries := l.st.histories[publicKey]
	if limit > len(entries) {
		limit = len(entries)
	}
	out := make([]domain.LedgerTransaction, 0, limit)
	for i := len(entries) - 1; i >= len(entries)-limit; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

// FindByID looks a transaction up in the global index.
func (l *TransactionLog) FindByID(txID string) (domain.TransactionVerification, error) {
	l.st.mu.RLock()
	defer l.st.mu.RUnlock()

	tx, ok := l.st.index[txID]
	if !ok {
		return domain.TransactionVerification{}, fmt.Errorf("%w: transaction %s", ErrNotFound, txID)
	}
	return domain.TransactionVerification{
		Verified:    true,
		Status:      tx.Status,
		Transaction: tx,
	}, nil
}

// Count returns the number of committed transactions.
func (l *TransactionLog) Count() int {
	l.st.mu.RLock()
	defer l.st.mu.RUnlock()
	return len(l.st.index)
}
