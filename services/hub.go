package services

import (
	"context"
	"sync"

	"qube-quest/models"
)

// AccountPublisher receives committed account state. Publish is called after
// the store commit and must not block the caller for long.
type AccountPublisher interface {
	Publish(ctx context.Context, snap models.AccountSnapshot)
}

// Hub fans committed account snapshots out to in-process observers.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]func(models.AccountSnapshot)
}

func NewHub() *Hub {
	return &Hub{subs: map[string]map[uint64]func(models.AccountSnapshot){}}
}

// Subscribe registers onChange for address and returns the function that removes it.
// onChange runs on the publisher's goroutine; it should hand off and return.
func (h *Hub) Subscribe(address string, onChange func(models.AccountSnapshot)) (unsubscribe func()) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[address] == nil {
		h.subs[address] = map[uint64]func(models.AccountSnapshot){}
	}
	h.subs[address][id] = onChange
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[address], id)
			if len(h.subs[address]) == 0 {
				delete(h.subs, address)
			}
		})
	}
}

func (h *Hub) Publish(_ context.Context, snap models.AccountSnapshot) {
	h.mu.RLock()
	fns := make([]func(models.AccountSnapshot), 0, len(h.subs[snap.Address]))
	for _, fn := range h.subs[snap.Address] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Subscribers returns how many observers are registered for address.
func (h *Hub) Subscribers(address string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[address])
}
