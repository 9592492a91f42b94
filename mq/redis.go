package mq

import (
	"context"
	"encoding/json"
	"time"

	"campuscrave/rdx"

	log "github.com/sirupsen/logrus"
)

// RedisBus publishes events to a Redis channel. Run relays everything on that channel, this
// instance's own events included, to local subscribers.
type RedisBus struct {
	store   *rdx.Store
	channel string
	local   LocalBus
}

func NewRedisBus(store *rdx.Store, channel string) *RedisBus {
	return &RedisBus{store: store, channel: channel}
}

func (b *RedisBus) Subscribe(fn Handler) {
	b.local.Subscribe(fn)
}

func (b *RedisBus) Publish(ctx context.Context, ev OrderEvent) {
	entry := log.WithFields(log.Fields{"event": ev.Type, "orderId": ev.Order.ID})

	data, err := json.Marshal(ev)
	if err != nil {
		entry.WithError(err).Error("mq: marshal event")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := b.store.Publish(ctx, b.channel, data); err != nil {
		entry.WithError(err).Error("mq: publish failed")
		return
	}
	entry.Debug("mq: event published")
}

// Run blocks until ctx is done.
func (b *RedisBus) Run(ctx context.Context) error {
	log.WithField("channel", b.channel).Info("mq: listening for order events")
	return b.store.Subscribe(ctx, b.channel, func(payload []byte) {
		var ev OrderEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			log.WithError(err).Warn("mq: dropping malformed event")
			return
		}
		b.local.dispatch(ev)
	})
}
