package simulator

import (
	"sync"

	"stellar-micro-donation/internal/core/domain"
)

// state is the single mutable store shared by the registry, the log and the
// engine. Every field is guarded by mu.
type state struct {
	mu sync.RWMutex

	accounts    map[string]*domain.LedgerAccount // public key -> account
	credentials map[string]string                // secret key -> public key
	histories   map[string][]domain.LedgerTransaction
	index       map[string]domain.LedgerTransaction // tx id -> tx
	sequence    int64
}

func newState(sequenceBase int64) *state {
	s := &state{}
	s.reset(sequenceBase)
	return s
}

// reset drops all data. Caller holds the write lock.
func (s *state) reset(sequenceBase int64) {
	s.accounts = make(map[string]*domain.LedgerAccount)
	s.credentials = make(map[string]string)
	s.histories = make(map[string][]domain.LedgerTransaction)
	s.index = make(map[string]domain.LedgerTransaction)
	s.sequence = sequenceBase
}

// nextSequence allocates the next ledger sequence. Caller holds the write lock.
func (s *state) nextSequence() int64 {
	s.sequence++
	return s.sequence
}
