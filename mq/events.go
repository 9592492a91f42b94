// Package mq carries order events from the lifecycle engine to whoever listens, either in
// process or across instances over Redis pub/sub.
package mq

import (
	"context"
	"sync"
	"time"

	"campuscrave/models"
)

const (
	EventOrderPlaced    = "order-placed"
	EventStatusChanged  = "order-status-changed"
	EventOrderClaimed   = "order-claimed"
	EventOrderCancelled = "order-cancelled"
)

// OrderEvent describes one accepted change to an order. Seq grows by one with every change to
// the same order, so consumers can drop events that arrive after a newer one.
type OrderEvent struct {
	Type      string       `json:"type"`
	Order     models.Order `json:"order"`
	Seq       int          `json:"seq"`
	ActorID   string       `json:"actorId"`
	ActorRole models.Role  `json:"actorRole"`
	At        time.Time    `json:"at"`
}

type Handler func(OrderEvent)

// Bus publishes order events and fans them out to subscribers.
type Bus interface {
	Publish(ctx context.Context, ev OrderEvent)
	Subscribe(fn Handler)
}

// LocalBus delivers events synchronously to in-process subscribers.
type LocalBus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewLocalBus() *LocalBus {
	return &LocalBus{}
}

func (b *LocalBus) Subscribe(fn Handler) {
	b.mu.Lock()
	b.handlers = append(b.handlers, fn)
	b.mu.Unlock()
}

func (b *LocalBus) Publish(_ context.Context, ev OrderEvent) {
	b.dispatch(ev)
}

func (b *LocalBus) dispatch(ev OrderEvent) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers...)
	b.mu.RUnlock()
	for _, fn := range handlers {
		fn(ev)
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, OrderEvent) {}
func (Discard) Subscribe(Handler)                   {}
