package realtime

import (
	"sync"

	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/outbox"
)

// Hub fans table changes out to subscribers. Notifications coalesce: a
// subscriber that has not drained its channel yet sees a single pending signal
// no matter how many changes arrived in between.
type Hub struct {
	mu     sync.RWMutex
	tables map[string]map[*Subscription]struct{}
}

type Subscription struct {
	C <-chan struct{}

	ch     chan struct{}
	hub    *Hub
	tables []string
	once   sync.Once
}

func NewHub() *Hub {
	return &Hub{tables: map[string]map[*Subscription]struct{}{}}
}

// Subscribe registers interest in changes to any of the tables.
func (h *Hub) Subscribe(tables ...string) *Subscription {
	ch := make(chan struct{}, 1)
	sub := &Subscription{C: ch, ch: ch, hub: h, tables: tables}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range tables {
		set := h.tables[t]
		if set == nil {
			set = map[*Subscription]struct{}{}
			h.tables[t] = set
		}
		set[sub] = struct{}{}
	}
	return sub
}

// Close removes the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range sub.tables {
		set := h.tables[t]
		if set == nil {
			continue
		}
		delete(set, sub)
		if len(set) == 0 {
			delete(h.tables, t)
		}
	}
}

// Publish signals every subscriber of the changed table.
func (h *Hub) Publish(c outbox.Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.tables[c.Table] {
		select {
		case sub.ch <- struct{}{}:
		default:
		}
	}
}

// Subscribers counts distinct subscriptions across all tables.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := map[*Subscription]struct{}{}
	for _, set := range h.tables {
		for sub := range set {
			seen[sub] = struct{}{}
		}
	}
	return len(seen)
}
