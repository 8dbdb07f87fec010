package memory

import (
	"context"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/booking"
	"github.com/iliyamo/hotel-reservation/internal/queue"
)

// PendingEvents returns up to limit unpublished events in id order.
func (db *DB) PendingEvents(_ context.Context, limit int) ([]queue.Envelope, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := []queue.Envelope{}
	for _, env := range db.outbox {
		if env.PublishedAt != nil {
			continue
		}

		out = append(out, *env)
		if limit > 0 && len(out) == limit {
			break
		}
	}

	return out, nil
}

func (db *DB) MarkPublished(_ context.Context, id uint64, at time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, env := range db.outbox {
		if env.ID == id {
			env.PublishedAt = &at
			return nil
		}
	}

	return booking.ErrNotFound
}
