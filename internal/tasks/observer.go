// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// =============================================================================
// OBSERVERS
// =============================================================================

// Observer receives a snapshot after every task mutation.
// It is called synchronously from the task goroutine and must not block.
type Observer interface {
	TaskUpdated(s Snapshot)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(s Snapshot)

// TaskUpdated calls f(s).
func (f ObserverFunc) TaskUpdated(s Snapshot) { f(s) }

// Hub fans snapshots out to subscribed observers.
type Hub struct {
	mu        sync.RWMutex
	observers map[int]Observer
	nextID    int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{observers: make(map[int]Observer)}
}

// Subscribe registers o and returns a function that removes it.
func (h *Hub) Subscribe(o Observer) (unsubscribe func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.observers[id] = o
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.observers, id)
			h.mu.Unlock()
		})
	}
}

// Publish delivers s to every observer, in subscription order.
func (h *Hub) Publish(s Snapshot) {
	h.mu.RLock()
	targets := make([]Observer, 0, len(h.observers))
	for id := 0; id < h.nextID; id++ {
		if o, ok := h.observers[id]; ok {
			targets = append(targets, o)
		}
	}
	h.mu.RUnlock()

	for _, o := range targets {
		o.TaskUpdated(s)
	}
}

// Channel subscribes a buffered channel. When the consumer falls behind,
// intermediate snapshots are dropped; terminal snapshots are always delivered
// by evicting the oldest queued one.
func (h *Hub) Channel(buffer int) (<-chan Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Snapshot, buffer)
	var mu sync.Mutex

	unsubscribe := h.Subscribe(ObserverFunc(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()

		select {
		case ch <- s:
			return
		default:
		}
		if !s.State.Terminal() {
			log.Debug().Str("task_id", s.ID).Msg("snapshot channel full, dropped update")
			return
		}
		// Make room for the terminal snapshot.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
			log.Warn().Str("task_id", s.ID).Msg("snapshot channel full, dropped terminal update")
		}
	}))
	return ch, unsubscribe
}
