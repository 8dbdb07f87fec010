package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/iliyamo/hotel-reservation/internal/booking"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/queue"
)

// Config holds the pricing and policy knobs of BookingService.
type Config struct {
	TaxRate  booking.TaxRate
	Location *time.Location
	Policy   booking.CancellationPolicy

	// Optional.
	Tracer   trace.Tracer
	Now      func() time.Time
	OnCommit func()
}

// BookingService is the single entry point to the booking core for every
// caller path: quoting, creating, lifecycle changes and cancellation.
type BookingService struct {
	store    Store
	machine  booking.Machine
	taxRate  booking.TaxRate
	loc      *time.Location
	log      *logrus.Logger
	tracer   trace.Tracer
	now      func() time.Time
	onCommit func()
}

func NewBookingService(store Store, cfg Config, log *logrus.Logger) (*BookingService, error) {
	if store == nil {
		return nil, errors.New("nil store passed to NewBookingService")
	}

	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("cancellation policy: %w", err)
	}

	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("booking")
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if log == nil {
		log = logrus.StandardLogger()
	}

	return &BookingService{
		store:    store,
		machine:  booking.NewMachine(cfg.Policy),
		taxRate:  cfg.TaxRate,
		loc:      cfg.Location,
		log:      log,
		tracer:   cfg.Tracer,
		now:      cfg.Now,
		onCommit: cfg.OnCommit,
	}, nil
}

// Location is the hotel time zone wall-clock input is interpreted in.
func (s *BookingService) Location() *time.Location {
	return s.loc
}

type QuoteRequest struct {
	RoomID   uint64
	Interval booking.Interval
	Services []booking.ServiceRequest
	Guests   booking.Guests
}

type CreateRequest struct {
	QuoteRequest
	UserID  uint64
	Payment booking.Payment
	Actor   booking.Actor
}

func (s *BookingService) Rooms(ctx context.Context) ([]model.Room, error) {
	return s.store.ListRooms(ctx)
}

func (s *BookingService) Room(ctx context.Context, id uint64) (*model.Room, error) {
	return s.store.GetRoom(ctx, id)
}

func (s *BookingService) Services(ctx context.Context) ([]model.Service, error) {
	return s.store.ListServices(ctx)
}

// CheckAvailability reports whether roomID is free for iv.  It takes no
// lock; CreateBooking repeats the check under the room lock.
func (s *BookingService) CheckAvailability(ctx context.Context, roomID uint64, iv booking.Interval) (booking.Availability, error) {
	if err := iv.Validate(); err != nil {
		return booking.Availability{}, err
	}

	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return booking.Availability{}, fmt.Errorf("room %d: %w", roomID, err)
	}

	existing, err := s.store.HoldingBookings(ctx, roomID, iv)
	if err != nil {
		return booking.Availability{}, fmt.Errorf("load bookings of room %d: %w", roomID, err)
	}

	return booking.CheckAvailability(roomID, iv, existing, 0), nil
}

// Quote prices a prospective booking without persisting anything.
func (s *BookingService) Quote(ctx context.Context, req QuoteRequest) (booking.Quote, error) {
	room, err := s.store.GetRoom(ctx, req.RoomID)
	if err != nil {
		return booking.Quote{}, fmt.Errorf("room %d: %w", req.RoomID, err)
	}

	catalog := map[uint64]model.Service{}

	if ids := booking.ServiceIDs(req.Services); len(ids) > 0 {
		catalog, err = s.store.GetServices(ctx, ids)
		if err != nil {
			return booking.Quote{}, fmt.Errorf("load services: %w", err)
		}
	}

	return booking.BuildQuote(booking.QuoteInput{
		Room:     *room,
		Interval: req.Interval,
		Guests:   req.Guests,
		Services: req.Services,
		Catalog:  catalog,
		TaxRate:  s.taxRate,
	})
}

// CreateBooking prices the request exactly like Quote, then checks the
// room calendar and inserts the pending booking under the room lock.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateRequest) (*booking.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "booking.create")
	defer span.End()

	q, err := s.Quote(ctx, req.QuoteRequest)
	if err != nil {
		return nil, err
	}

	b, err := booking.NewPending(q, req.UserID, req.Payment, req.Actor, s.now().In(s.loc))
	if err != nil {
		return nil, err
	}

	b.Reference = uuid.NewString()

	err = s.store.WithRoomLock(ctx, req.RoomID, func(ctx context.Context, tx Tx) error {
		existing, err := tx.HoldingBookings(ctx, req.RoomID, q.Interval)
		if err != nil {
			return fmt.Errorf("load bookings of room %d: %w", req.RoomID, err)
		}

		if err := booking.CheckAvailability(req.RoomID, q.Interval, existing, 0).Err(); err != nil {
			return err
		}

		if err := tx.InsertBooking(ctx, b); err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}

		return s.enqueueStatus(ctx, tx, b, "", b.History[0])
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"reference":  b.Reference,
		"room_id":    b.RoomID,
		"total":      b.TotalAmount,
		"actor":      req.Actor.String(),
	}).Info("booking created")

	s.committed()

	return b, nil
}

// Transition moves a booking to target.  Asking for the current status
// succeeds without changing anything.  Moving to cancelled applies the
// cancellation policy with an empty reason.
func (s *BookingService) Transition(ctx context.Context, bookingID uint64, target booking.Status, actor booking.Actor) (*booking.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "booking.transition")
	defer span.End()

	b, res, err := s.mutate(ctx, bookingID, func(b *booking.Booking, now time.Time) (booking.TransitionResult, error) {
		return s.machine.Transition(b, target, actor, "", now)
	})
	if err != nil {
		return nil, err
	}

	if res.Changed {
		s.logTransition(b, res, actor)
	}

	return b, nil
}

// Cancel cancels a pending or confirmed booking and returns the fee and
// refund.  now is the instant the lead time is measured from.
func (s *BookingService) Cancel(ctx context.Context, bookingID uint64, reason string, actor booking.Actor, now time.Time) (booking.Cancellation, error) {
	ctx, span := s.tracer.Start(ctx, "booking.cancel")
	defer span.End()

	b, res, err := s.mutate(ctx, bookingID, func(b *booking.Booking, _ time.Time) (booking.TransitionResult, error) {
		return s.machine.Cancel(b, actor, reason, now.In(s.loc))
	})
	if err != nil {
		return booking.Cancellation{}, err
	}

	s.logTransition(b, res, actor)

	return *res.Cancellation, nil
}

// RecordPayment marks a booking as paid.  Payment is not a lifecycle
// status, so no history entry is written.
func (s *BookingService) RecordPayment(ctx context.Context, bookingID uint64, method booking.PaymentMethod, actor booking.Actor) (*booking.Booking, error) {
	if method != "" && !method.IsValid() {
		verr := booking.NewValidationError()
		verr.Add("method", "unknown payment method")
		return nil, verr
	}

	b, _, err := s.mutate(ctx, bookingID, func(b *booking.Booking, now time.Time) (booking.TransitionResult, error) {
		if b.Status == booking.StatusCancelled || b.Status == booking.StatusNoShow {
			return booking.TransitionResult{}, fmt.Errorf("booking %d is %s: %w", b.ID, b.Status, booking.ErrAlreadyFinalized)
		}

		if b.Payment.Status == booking.PaymentPaid && (method == "" || method == b.Payment.Method) {
			return booking.TransitionResult{}, nil
		}

		if method != "" {
			b.Payment.Method = method
		}

		b.Payment.Status = booking.PaymentPaid
		b.Version++
		b.UpdatedAt = now

		return booking.TransitionResult{Changed: true, From: b.Status, To: b.Status}, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"method":     b.Payment.Method,
		"actor":      actor.String(),
	}).Info("payment recorded")

	return b, nil
}

// mutate locks the booking's room and the booking itself, applies fn and
// persists the result together with its history entry, housekeeping
// change and outbox events.
func (s *BookingService) mutate(
	ctx context.Context,
	bookingID uint64,
	fn func(b *booking.Booking, now time.Time) (booking.TransitionResult, error),
) (*booking.Booking, booking.TransitionResult, error) {
	current, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, booking.TransitionResult{}, fmt.Errorf("booking %d: %w", bookingID, err)
	}

	var (
		out *booking.Booking
		res booking.TransitionResult
	)

	err = s.store.WithRoomLock(ctx, current.RoomID, func(ctx context.Context, tx Tx) error {
		b, err := tx.LockBooking(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("lock booking %d: %w", bookingID, err)
		}

		expected := b.Version

		res, err = fn(b, s.now().In(s.loc))
		if err != nil {
			return err
		}

		out = b
		if !res.Changed {
			return nil
		}

		if res.From != res.To && res.To.HoldsCalendar() {
			existing, err := tx.HoldingBookings(ctx, b.RoomID, b.Interval)
			if err != nil {
				return fmt.Errorf("load bookings of room %d: %w", b.RoomID, err)
			}

			if err := booking.CheckAvailability(b.RoomID, b.Interval, existing, b.ID).Err(); err != nil {
				return err
			}
		}

		var entry *booking.HistoryEntry
		if res.From != res.To {
			entry = &res.Entry
		}

		if err := tx.UpdateBooking(ctx, b, expected, entry); err != nil {
			return fmt.Errorf("update booking %d: %w", b.ID, err)
		}

		if res.Effect != nil {
			if err := tx.SetHousekeeping(ctx, res.Effect.RoomID, res.Effect.State); err != nil {
				return fmt.Errorf("set housekeeping of room %d: %w", res.Effect.RoomID, err)
			}

			env, err := queue.NewEnvelope(queue.RoomStateQueue, queue.RoomStateChanged{
				RoomID:    res.Effect.RoomID,
				BookingID: b.ID,
				State:     res.Effect.State,
				Actor:     res.Entry.Actor,
				At:        res.Entry.At.Format(time.RFC3339),
			}, res.Entry.At)
			if err != nil {
				return err
			}

			if err := tx.EnqueueEvent(ctx, env); err != nil {
				return fmt.Errorf("enqueue room event: %w", err)
			}
		}

		if entry != nil {
			return s.enqueueStatus(ctx, tx, b, res.From, *entry)
		}

		return nil
	})
	if err != nil {
		return nil, booking.TransitionResult{}, err
	}

	if res.Changed {
		s.committed()
	}

	return out, res, nil
}

func (s *BookingService) enqueueStatus(ctx context.Context, tx Tx, b *booking.Booking, from booking.Status, entry booking.HistoryEntry) error {
	env, err := queue.NewEnvelope(queue.BookingStatusQueue, queue.BookingStatusChanged{
		BookingID:   b.ID,
		Reference:   b.Reference,
		RoomID:      b.RoomID,
		From:        string(from),
		To:          string(entry.Status),
		Actor:       entry.Actor,
		Reason:      entry.Reason,
		TotalAmount: b.TotalAmount,
		Fee:         entry.Fee,
		Refund:      entry.Refund,
		At:          entry.At.Format(time.RFC3339),
	}, entry.At)
	if err != nil {
		return err
	}

	if err := tx.EnqueueEvent(ctx, env); err != nil {
		return fmt.Errorf("enqueue status event: %w", err)
	}

	return nil
}

func (s *BookingService) logTransition(b *booking.Booking, res booking.TransitionResult, actor booking.Actor) {
	fields := logrus.Fields{
		"booking_id": b.ID,
		"room_id":    b.RoomID,
		"from":       res.From,
		"to":         res.To,
		"actor":      actor.String(),
	}

	if res.Cancellation != nil {
		fields["fee"] = res.Cancellation.Fee
		fields["refund"] = res.Cancellation.Refund
	}

	s.log.WithFields(fields).Info("booking status changed")
}

func (s *BookingService) committed() {
	if s.onCommit != nil {
		s.onCommit()
	}
}

func (s *BookingService) GetBooking(ctx context.Context, id uint64) (*booking.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("booking %d: %w", id, err)
	}
	return b, nil
}

func (s *BookingService) ListBookingsByUser(ctx context.Context, userID uint64) ([]booking.Booking, error) {
	return s.store.ListBookingsByUser(ctx, userID)
}

// ListBookingsByRoom returns every booking of a room whose interval
// overlaps [from, to), terminal ones included.
func (s *BookingService) ListBookingsByRoom(ctx context.Context, roomID uint64, from, to time.Time) ([]booking.Booking, error) {
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return nil, fmt.Errorf("room %d: %w", roomID, err)
	}
	return s.store.ListBookingsByRoom(ctx, roomID, from, to)
}
