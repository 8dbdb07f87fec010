package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const relayBatchSize = 100

// Relay moves committed outbox events to the broker.  Events are published
// in id order; a failed publish stops the batch so ordering per queue is
// kept, and the event is retried on the next tick.
type Relay struct {
	store     OutboxStore
	publisher EventPublisher
	interval  time.Duration
	log       *logrus.Logger
	now       func() time.Time
	wake      chan struct{}
}

func NewRelay(store OutboxStore, publisher EventPublisher, interval time.Duration, log *logrus.Logger) *Relay {
	if interval <= 0 {
		interval = time.Second
	}
	return &Relay{
		store:     store,
		publisher: publisher,
		interval:  interval,
		log:       log,
		now:       time.Now,
		wake:      make(chan struct{}, 1),
	}
}

// Notify asks the relay to flush without waiting for the next tick.  It
// never blocks.
func (r *Relay) Notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run flushes the outbox until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-r.wake:
		}

		if _, err := r.FlushOnce(ctx); err != nil && ctx.Err() == nil {
			r.log.WithError(err).Warn("outbox relay: flush failed")
		}
	}
}

// FlushOnce publishes one batch of pending events and returns how many
// were marked published.
func (r *Relay) FlushOnce(ctx context.Context) (int, error) {
	events, err := r.store.PendingEvents(ctx, relayBatchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, env := range events {
		if err := r.publisher.Publish(ctx, env); err != nil {
			return sent, err
		}

		if err := r.store.MarkPublished(ctx, env.ID, r.now().UTC()); err != nil {
			return sent, err
		}

		sent++
	}

	return sent, nil
}
