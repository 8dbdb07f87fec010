// Package memory is an in-process implementation of the booking storage
// ports.  It backs the server when STORAGE_DRIVER=memory and is used by
// service and handler tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/booking"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/service"
)

type Config struct {
	Log *logrus.Logger
	Now func() time.Time
}

type DB struct {
	mu  sync.Mutex
	log *logrus.Logger
	now func() time.Time

	rooms    map[uint64]*model.Room
	services map[uint64]*model.Service
	bookings map[uint64]*booking.Booking
	outbox   []*queue.Envelope
	users    map[uint64]*model.User
	emails   map[string]uint64
	tokens   map[string]*model.RefreshToken

	nextRoomID    uint64
	nextServiceID uint64
	nextBookingID uint64
	nextEventID   uint64
	nextUserID    uint64
	nextTokenID   uint64

	locksMu   sync.Mutex
	roomLocks map[uint64]*sync.Mutex
}

var _ service.Store = (*DB)(nil)
var _ service.OutboxStore = (*DB)(nil)

func New(conf Config) *DB {
	if conf.Log == nil {
		conf.Log = logrus.StandardLogger()
	}

	if conf.Now == nil {
		conf.Now = time.Now
	}

	//nolint:exhaustruct
	return &DB{
		log:       conf.Log,
		now:       conf.Now,
		rooms:     make(map[uint64]*model.Room),
		services:  make(map[uint64]*model.Service),
		bookings:  make(map[uint64]*booking.Booking),
		users:     make(map[uint64]*model.User),
		emails:    make(map[string]uint64),
		tokens:    make(map[string]*model.RefreshToken),
		roomLocks: make(map[uint64]*sync.Mutex),
	}
}

func (db *DB) roomLock(roomID uint64) *sync.Mutex {
	db.locksMu.Lock()
	defer db.locksMu.Unlock()

	l, ok := db.roomLocks[roomID]
	if !ok {
		l = &sync.Mutex{}
		db.roomLocks[roomID] = l
	}

	return l
}

// WithRoomLock serializes fn with every other unit of work on roomID.
// Changes staged through the Tx become visible only when fn returns nil.
func (db *DB) WithRoomLock(ctx context.Context, roomID uint64, fn func(ctx context.Context, tx service.Tx) error) error {
	l := db.roomLock(roomID)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	trx := newTransaction(db)

	if err := fn(ctx, trx); err != nil {
		db.log.WithError(err).WithField("room_id", roomID).Debug("memory: transaction rolled back")
		return err
	}

	db.commit(trx)

	return nil
}

func (db *DB) commit(trx *transaction) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for id, b := range trx.bookings {
		db.bookings[id] = b
	}

	for roomID, state := range trx.housekeeping {
		if room, ok := db.rooms[roomID]; ok {
			room.Housekeeping = state
			room.UpdatedAt = db.now().UTC()
		}
	}

	for _, env := range trx.events {
		db.nextEventID++
		env.ID = db.nextEventID
		db.outbox = append(db.outbox, env)
	}
}

func (db *DB) GetBooking(_ context.Context, id uint64) (*booking.Booking, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	b, ok := db.bookings[id]
	if !ok {
		return nil, booking.ErrNotFound
	}

	return b.Clone(), nil
}

func (db *DB) ListBookingsByUser(_ context.Context, userID uint64) ([]booking.Booking, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.collect(func(b *booking.Booking) bool { return b.UserID == userID }), nil
}

// ListBookingsByRoom returns the room's bookings overlapping [from, to).
// A zero bound is open.
func (db *DB) ListBookingsByRoom(_ context.Context, roomID uint64, from, to time.Time) ([]booking.Booking, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.collect(func(b *booking.Booking) bool {
		if b.RoomID != roomID {
			return false
		}
		if !to.IsZero() && !b.Interval.CheckIn.Before(to) {
			return false
		}
		return from.IsZero() || b.Interval.CheckOut.After(from)
	}), nil
}

func (db *DB) HoldingBookings(_ context.Context, roomID uint64, iv booking.Interval) ([]booking.Booking, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return holding(db.bookings, nil, roomID, iv), nil
}

// collect must be called with db.mu held.
func (db *DB) collect(match func(b *booking.Booking) bool) []booking.Booking {
	out := []booking.Booking{}
	for _, b := range db.bookings {
		if match(b) {
			out = append(out, *b.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

func holding(committed, staged map[uint64]*booking.Booking, roomID uint64, iv booking.Interval) []booking.Booking {
	out := []booking.Booking{}

	visit := func(b *booking.Booking) {
		if b.RoomID == roomID && b.Status.HoldsCalendar() && b.Interval.Overlaps(iv) {
			out = append(out, *b.Clone())
		}
	}

	for id, b := range committed {
		if _, ok := staged[id]; ok {
			continue
		}
		visit(b)
	}

	for _, b := range staged {
		visit(b)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}
