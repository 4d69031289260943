// Package simulator is an in-process stand-in for the Stellar network.
//
// It reproduces the contract the donation flow relies on: unique accounts,
// exact balances at seven decimals, atomic transfers, immutable per-account
// history and push notification of committed transfers. State lives for the
// lifetime of the process only.
package simulator

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"time"

	"stellar-micro-donation/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultAsset        = "XLM"
	defaultHistoryLimit = 10

	// Ledger sequences start at a random point in [sequenceFloor, sequenceFloor+sequenceSpan).
	sequenceFloor = 1_000_000
	sequenceSpan  = 1_000_000
)

// DefaultBootstrapBalance is the faucet amount handed to funded accounts.
var DefaultBootstrapBalance = decimal.RequireFromString("10000.0000000")

// Options configures a Simulator. Zero values select defaults.
type Options struct {
	Asset            string
	BootstrapBalance decimal.Decimal
	HistoryLimit     int
	Clock            func() time.Time
	Entropy          io.Reader
	Logger           zerolog.Logger
}

// Simulator owns the ledger state and the components operating on it.
type Simulator struct {
	st       *state
	seqBase  func() int64
	Registry *AccountRegistry
	Log      *TransactionLog
	Hub      *EventHub
	Engine   *LedgerEngine
}

// New builds a Simulator with empty state.
func New(opts Options) *Simulator {
	if opts.Asset == "" {
		opts.Asset = defaultAsset
	}
	if !opts.BootstrapBalance.IsPositive() {
		opts.BootstrapBalance = DefaultBootstrapBalance
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Entropy == nil {
		opts.Entropy = rand.Reader
	}

	seqBase := func() int64 {
		var b [8]byte
		if _, err := io.ReadFull(opts.Entropy, b[:]); err != nil {
			return sequenceFloor
		}
		return sequenceFloor + int64(binary.BigEndian.Uint64(b[:])%sequenceSpan)
	}

	st := newState(seqBase())
	registry := &AccountRegistry{
		st:        st,
		asset:     opts.Asset,
		bootstrap: opts.BootstrapBalance.Round(domain.AmountScale),
		now:       opts.Clock,
		entropy:   opts.Entropy,
	}
	txlog := &TransactionLog{st: st, defaultLimit: opts.HistoryLimit}
	hub := newEventHub(opts.Logger.With().Str("component", "event_hub").Logger())

	return &Simulator{
		st:       st,
		seqBase:  seqBase,
		Registry: registry,
		Log:      txlog,
		Hub:      hub,
		Engine: &LedgerEngine{
			st:       st,
			registry: registry,
			txlog:    txlog,
			hub:      hub,
			now:      opts.Clock,
			entropy:  opts.Entropy,
			log:      opts.Logger.With().Str("component", "ledger_engine").Logger(),
		},
	}
}

// Clear wipes accounts, histories and subscriptions.
func (s *Simulator) Clear() {
	s.st.mu.Lock()
	s.st.reset(s.seqBase())
	s.st.mu.Unlock()
	s.Hub.reset()
}

// Stats reports current counts.
func (s *Simulator) Stats() domain.LedgerStats {
	s.st.mu.RLock()
	accounts, txs := len(s.st.accounts), len(s.st.index)
	s.st.mu.RUnlock()

	return domain.LedgerStats{
		Accounts:     accounts,
		Transactions: txs,
		Subscribers:  s.Hub.Count(),
	}
}
