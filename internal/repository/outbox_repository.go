package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/queue"
)

// OutboxRepo stores events written in the same transaction as the state
// change they describe.
type OutboxRepo struct {
	db *sql.DB
}

func NewOutboxRepo(db *sql.DB) *OutboxRepo { return &OutboxRepo{db: db} }

func (r *OutboxRepo) EnqueueTx(ctx context.Context, tx *sql.Tx, env queue.Envelope) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO outbox_events (queue, payload, created_at) VALUES (?, ?, ?)`,
		env.Queue, env.Payload, env.CreatedAt.UTC())
	return err
}

func (r *OutboxRepo) PendingEvents(ctx context.Context, limit int) ([]queue.Envelope, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, queue, payload, created_at FROM outbox_events
		WHERE published_at IS NULL ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []queue.Envelope{}
	for rows.Next() {
		var env queue.Envelope
		if err := rows.Scan(&env.ID, &env.Queue, &env.Payload, &env.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, env)
	}
	return out, rows.Err()
}

func (r *OutboxRepo) MarkPublished(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE outbox_events SET published_at = ? WHERE id = ?`, at.UTC(), id)
	return err
}
