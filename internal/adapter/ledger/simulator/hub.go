package simulator

import (
	"fmt"
	"sync"

	"stellar-micro-donation/internal/core/domain"

	"github.com/rs/zerolog"
)

type subscription struct {
	id      uint64
	handler domain.TransactionHandler
}

// EventHub delivers committed transactions to subscribers, synchronously and
// in registration order. A failing handler never affects the others or the
// publisher.
type EventHub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string][]subscription
	all    []subscription
	log    zerolog.Logger
}

func newEventHub(log zerolog.Logger) *EventHub {
	return &EventHub{
		subs: make(map[string][]subscription),
		log:  log,
	}
}

// Subscribe registers handler for transactions touching accountID. The
// account does not need to exist yet.
func (h *EventHub) Subscribe(accountID string, handler domain.TransactionHandler) func() {
	h.mu.Lock()
	id := h.register()
	h.subs[accountID] = append(h.subs[accountID], subscription{id: id, handler: handler})
	h.mu.Unlock()

	return unsubscribeOnce(func() { h.remove(accountID, id) })
}

// SubscribeAll registers handler for every committed transaction.
func (h *EventHub) SubscribeAll(handler domain.TransactionHandler) func() {
	h.mu.Lock()
	id := h.register()
	h.all = append(h.all, subscription{id: id, handler: handler})
	h.mu.Unlock()

	return unsubscribeOnce(func() { h.removeAll(id) })
}

// Publish invokes accountID's handlers with tx.
func (h *EventHub) Publish(accountID string, tx domain.LedgerTransaction) {
	h.mu.RLock()
	snapshot := h.subs[accountID]
	h.mu.RUnlock()

	h.deliver(snapshot, accountID, tx)
}

func (h *EventHub) publishAll(tx domain.LedgerTransaction) {
	h.mu.RLock()
	snapshot := h.all
	h.mu.RUnlock()

	h.deliver(snapshot, "*", tx)
}

// register allocates a subscription id. Caller holds the write lock.
func (h *EventHub) register() uint64 {
	h.nextID++
	return h.nextID
}

func unsubscribeOnce(fn func()) func() {
	var once sync.Once
	return func() { once.Do(fn) }
}

func (h *EventHub) remove(accountID string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	next, ok := without(h.subs[accountID], id)
	if !ok {
		return
	}
	if len(next) == 0 {
		delete(h.subs, accountID)
	} else {
		h.subs[accountID] = next
	}
}

func (h *EventHub) removeAll(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if next, ok := without(h.all, id); ok {
		h.all = next
	}
}

// without returns a copy of list minus the subscription with id, so snapshots
// taken by in-flight deliveries stay intact.
func without(list []subscription, id uint64) ([]subscription, bool) {
	for i, s := range list {
		if s.id != id {
			continue
		}
		next := make([]subscription, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		return next, true
	}
	return list, false
}

func (h *EventHub) deliver(snapshot []subscription, account string, tx domain.LedgerTransaction) {
	for _, s := range snapshot {
		if err := h.invoke(s, tx); err != nil {
			h.log.Warn().
				Err(err).
				Str("account", account).
				Uint64("subscription", s.id).
				Str("tx_id", tx.ID).
				Msg("transaction subscriber failed")
		}
	}
}

func (h *EventHub) invoke(s subscription, tx domain.LedgerTransaction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panicked: %v", r)
		}
	}()
	return s.handler(tx)
}

// reset drops every subscription.
func (h *EventHub) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs = make(map[string][]subscription)
	h.all = nil
}

// Count returns the number of live subscriptions.
func (h *EventHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := len(h.all)
	for _, list := range h.subs {
		n += len(list)
	}
	return n
}
