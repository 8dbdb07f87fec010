package memory

import (
	"context"
	"fmt"

	"github.com/iliyamo/hotel-reservation/internal/booking"
	"github.com/iliyamo/hotel-reservation/internal/queue"
)

// transaction stages writes until the room lock is released.  Nothing
// staged touches the shared maps, so dropping the transaction is a
// rollback.
type transaction struct {
	db           *DB
	bookings     map[uint64]*booking.Booking
	housekeeping map[uint64]string
	events       []*queue.Envelope
}

func newTransaction(db *DB) *transaction {
	return &transaction{
		db:           db,
		bookings:     make(map[uint64]*booking.Booking),
		housekeeping: make(map[uint64]string),
	}
}

func (t *transaction) HoldingBookings(_ context.Context, roomID uint64, iv booking.Interval) ([]booking.Booking, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	return holding(t.db.bookings, t.bookings, roomID, iv), nil
}

func (t *transaction) current(id uint64) (*booking.Booking, bool) {
	if b, ok := t.bookings[id]; ok {
		return b, true
	}

	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	b, ok := t.db.bookings[id]

	return b, ok
}

func (t *transaction) LockBooking(_ context.Context, id uint64) (*booking.Booking, error) {
	b, ok := t.current(id)
	if !ok {
		return nil, booking.ErrNotFound
	}

	return b.Clone(), nil
}

func (t *transaction) InsertBooking(_ context.Context, b *booking.Booking) error {
	t.db.mu.Lock()
	t.db.nextBookingID++
	b.ID = t.db.nextBookingID
	t.db.mu.Unlock()

	t.bookings[b.ID] = b.Clone()

	return nil
}

func (t *transaction) UpdateBooking(_ context.Context, b *booking.Booking, expectedVersion int64, _ *booking.HistoryEntry) error {
	cur, ok := t.current(b.ID)
	if !ok {
		return booking.ErrNotFound
	}

	if cur.Version != expectedVersion {
		return fmt.Errorf("booking %d at version %d, expected %d: %w", b.ID, cur.Version, expectedVersion, booking.ErrConcurrentUpdate)
	}

	t.bookings[b.ID] = b.Clone()

	return nil
}

func (t *transaction) SetHousekeeping(_ context.Context, roomID uint64, state string) error {
	t.db.mu.Lock()
	_, ok := t.db.rooms[roomID]
	t.db.mu.Unlock()

	if !ok {
		return booking.ErrNotFound
	}

	t.housekeeping[roomID] = state

	return nil
}

func (t *transaction) EnqueueEvent(_ context.Context, env queue.Envelope) error {
	t.events = append(t.events, &env)
	return nil
}
