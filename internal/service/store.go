package service

import (
	"context"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/booking"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/queue"
)

type catalogReader interface {
	GetRoom(ctx context.Context, id uint64) (*model.Room, error)
	ListRooms(ctx context.Context) ([]model.Room, error)
	GetServices(ctx context.Context, ids []uint64) (map[uint64]model.Service, error)
	ListServices(ctx context.Context) ([]model.Service, error)
}

type bookingReader interface {
	GetBooking(ctx context.Context, id uint64) (*booking.Booking, error)
	ListBookingsByUser(ctx context.Context, userID uint64) ([]booking.Booking, error)
	ListBookingsByRoom(ctx context.Context, roomID uint64, from, to time.Time) ([]booking.Booking, error)
	HoldingBookings(ctx context.Context, roomID uint64, iv booking.Interval) ([]booking.Booking, error)
}

// Tx is the write side of a room-locked unit of work.  Everything done
// through a Tx is committed together or not at all.
type Tx interface {
	HoldingBookings(ctx context.Context, roomID uint64, iv booking.Interval) ([]booking.Booking, error)
	LockBooking(ctx context.Context, id uint64) (*booking.Booking, error)
	InsertBooking(ctx context.Context, b *booking.Booking) error
	// UpdateBooking persists b if its stored version still equals
	// expectedVersion and appends entry to the history when non-nil.
	UpdateBooking(ctx context.Context, b *booking.Booking, expectedVersion int64, entry *booking.HistoryEntry) error
	SetHousekeeping(ctx context.Context, roomID uint64, state string) error
	EnqueueEvent(ctx context.Context, env queue.Envelope) error
}

// Store is the persistence port of BookingService.  WithRoomLock runs fn
// while holding an exclusive lock on one room's calendar; different rooms
// never wait on each other.  Missing rows are reported as
// booking.ErrNotFound.
type Store interface {
	catalogReader
	bookingReader
	WithRoomLock(ctx context.Context, roomID uint64, fn func(ctx context.Context, tx Tx) error) error
}

// OutboxStore is read by the Relay.
type OutboxStore interface {
	PendingEvents(ctx context.Context, limit int) ([]queue.Envelope, error)
	MarkPublished(ctx context.Context, id uint64, at time.Time) error
}
