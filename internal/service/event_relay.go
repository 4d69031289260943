package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"stellar-micro-donation/internal/core/domain"
	"stellar-micro-donation/internal/core/ports"

	"github.com/rs/zerolog"
)

const (
	EventTransactionCommitted = "transaction_committed"

	publishTimeout = 5 * time.Second
)

var errRelayBackpressure = errors.New("event relay buffer full")

// TransactionCommittedEvent is the wire form of a committed ledger transfer.
type TransactionCommittedEvent struct {
	Type          string    `json:"type"`
	TransactionID string    `json:"transaction_id"`
	Source        string    `json:"source"`
	Destination   string    `json:"destination"`
	Amount        string    `json:"amount"`
	Memo          string    `json:"memo,omitempty"`
	Ledger        int64     `json:"ledger"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
}

// EventRelay follows every committed ledger transaction, logs it and forwards
// it to the publisher from a background worker. Publishing never blocks the
// transfer that produced the event.
type EventRelay struct {
	ledger    ports.Ledger
	publisher ports.EventPublisher
	log       zerolog.Logger

	mu          sync.RWMutex
	closed      bool
	events      chan TransactionCommittedEvent
	done        chan struct{}
	unsubscribe func()
	stopOnce    sync.Once
}

// NewEventRelay creates a relay. publisher may be nil, in which case events
// are only logged.
func NewEventRelay(ledger ports.Ledger, publisher ports.EventPublisher, buffer int, log zerolog.Logger) *EventRelay {
	if buffer <= 0 {
		buffer = 256
	}
	return &EventRelay{
		ledger:    ledger,
		publisher: publisher,
		log:       log,
		events:    make(chan TransactionCommittedEvent, buffer),
		done:      make(chan struct{}),
	}
}

// Start subscribes to the ledger and starts the publish worker.
func (r *EventRelay) Start() {
	if r.publisher != nil {
		go r.run()
	} else {
		close(r.done)
	}
	r.unsubscribe = r.ledger.SubscribeAll(r.handle)
}

// Stop unsubscribes and waits for queued events to be published.
func (r *EventRelay) Stop() {
	r.stopOnce.Do(func() {
		if r.unsubscribe != nil {
			r.unsubscribe()
		}
		r.mu.Lock()
		r.closed = true
		close(r.events)
		r.mu.Unlock()
		<-r.done
	})
}

func (r *EventRelay) handle(tx domain.LedgerTransaction) error {
	r.log.Info().
		Str("transaction_id", tx.ID).
		Str("source", tx.Source).
		Str("destination", tx.Destination).
		Str("amount", tx.Amount.StringFixed(domain.AmountScale)).
		Int64("ledger", tx.Ledger).
		Msg("ledger transaction committed")

	if r.publisher == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil
	}
	select {
	case r.events <- newCommittedEvent(tx):
		return nil
	default:
		return errRelayBackpressure
	}
}

func (r *EventRelay) run() {
	defer close(r.done)
	for evt := range r.events {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := r.publisher.Publish(ctx, evt.Source, evt)
		cancel()
		if err != nil {
			r.log.Warn().Err(err).Str("transaction_id", evt.TransactionID).Msg("failed to publish ledger event")
		}
	}
}

func newCommittedEvent(tx domain.LedgerTransaction) TransactionCommittedEvent {
	return TransactionCommittedEvent{
		Type:          EventTransactionCommitted,
		TransactionID: tx.ID,
		Source:        tx.Source,
		Destination:   tx.Destination,
		Amount:        tx.Amount.StringFixed(domain.AmountScale),
		Memo:          tx.Memo,
		Ledger:        tx.Ledger,
		ConfirmedAt:   tx.ConfirmedAt,
	}
}
