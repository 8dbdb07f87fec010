package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/booking"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/service"
)

// Store adapts the repositories to the booking service ports.
type Store struct {
	db       *sql.DB
	log      *logrus.Logger
	now      func() time.Time
	Rooms    *RoomRepo
	Services *ServiceRepo
	Bookings *BookingRepo
	Outbox   *OutboxRepo
}

var _ service.Store = (*Store)(nil)
var _ service.OutboxStore = (*Store)(nil)

func NewStore(db *sql.DB, loc *time.Location, log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{
		db:       db,
		log:      log,
		now:      time.Now,
		Rooms:    NewRoomRepo(db),
		Services: NewServiceRepo(db),
		Bookings: NewBookingRepo(db, loc),
		Outbox:   NewOutboxRepo(db),
	}
}

// WithRoomLock runs fn in a transaction that first locks the room row.
// Concurrent writers on the same room queue behind that lock.
func (s *Store) WithRoomLock(ctx context.Context, roomID uint64, fn func(ctx context.Context, tx service.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				s.log.WithError(rbErr).WithField("room_id", roomID).Warn("rollback failed")
			}
		}
	}()

	if err := s.Rooms.LockTx(ctx, tx, roomID); err != nil {
		return err
	}

	if err := fn(ctx, &sqlTx{store: s, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true

	return nil
}

func (s *Store) GetRoom(ctx context.Context, id uint64) (*model.Room, error) {
	return s.Rooms.GetByID(ctx, id)
}

func (s *Store) ListRooms(ctx context.Context) ([]model.Room, error) {
	return s.Rooms.List(ctx)
}

func (s *Store) GetServices(ctx context.Context, ids []uint64) (map[uint64]model.Service, error) {
	return s.Services.GetByIDs(ctx, ids)
}

func (s *Store) ListServices(ctx context.Context) ([]model.Service, error) {
	return s.Services.List(ctx)
}

func (s *Store) GetBooking(ctx context.Context, id uint64) (*booking.Booking, error) {
	return s.Bookings.GetByID(ctx, id)
}

func (s *Store) ListBookingsByUser(ctx context.Context, userID uint64) ([]booking.Booking, error) {
	return s.Bookings.ListByUser(ctx, userID)
}

func (s *Store) ListBookingsByRoom(ctx context.Context, roomID uint64, from, to time.Time) ([]booking.Booking, error) {
	return s.Bookings.ListByRoom(ctx, roomID, from, to)
}

func (s *Store) HoldingBookings(ctx context.Context, roomID uint64, iv booking.Interval) ([]booking.Booking, error) {
	return s.Bookings.Holding(ctx, s.db, roomID, iv)
}

func (s *Store) PendingEvents(ctx context.Context, limit int) ([]queue.Envelope, error) {
	return s.Outbox.PendingEvents(ctx, limit)
}

func (s *Store) MarkPublished(ctx context.Context, id uint64, at time.Time) error {
	return s.Outbox.MarkPublished(ctx, id, at)
}

type sqlTx struct {
	store *Store
	tx    *sql.Tx
}

func (t *sqlTx) HoldingBookings(ctx context.Context, roomID uint64, iv booking.Interval) ([]booking.Booking, error) {
	return t.store.Bookings.Holding(ctx, t.tx, roomID, iv)
}

func (t *sqlTx) LockBooking(ctx context.Context, id uint64) (*booking.Booking, error) {
	return t.store.Bookings.LockTx(ctx, t.tx, id)
}

func (t *sqlTx) InsertBooking(ctx context.Context, b *booking.Booking) error {
	return t.store.Bookings.InsertTx(ctx, t.tx, b)
}

func (t *sqlTx) UpdateBooking(ctx context.Context, b *booking.Booking, expectedVersion int64, entry *booking.HistoryEntry) error {
	return t.store.Bookings.UpdateTx(ctx, t.tx, b, expectedVersion, entry)
}

func (t *sqlTx) SetHousekeeping(ctx context.Context, roomID uint64, state string) error {
	return t.store.Rooms.SetHousekeepingTx(ctx, t.tx, roomID, state, t.store.now())
}

func (t *sqlTx) EnqueueEvent(ctx context.Context, env queue.Envelope) error {
	return t.store.Outbox.EnqueueTx(ctx, t.tx, env)
}
