package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-reservation/internal/booking"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/service"
	"github.com/iliyamo/hotel-reservation/internal/storage/memory"
)

var (
	clock = time.Date(2030, 2, 1, 10, 0, 0, 0, time.UTC)
	guest = booking.Actor{UserID: 7, Role: model.RoleGuest}
	staff = booking.Actor{UserID: 1, Role: model.RoleStaff}
)

const deluxeRoom = 2

type fixture struct {
	svc     *service.BookingService
	db      *memory.DB
	commits atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	db := memory.New(memory.Config{Log: log, Now: func() time.Time { return clock }})
	require.NoError(t, memory.Seed(context.Background(), db))

	f := &fixture{db: db}

	svc, err := service.NewBookingService(db, service.Config{
		TaxRate:  1000,
		Location: time.UTC,
		Policy:   booking.DefaultCancellationPolicy(),
		Now:      func() time.Time { return clock },
		OnCommit: func() { f.commits.Add(1) },
	}, log)
	require.NoError(t, err)

	f.svc = svc

	return f
}

func stay(t *testing.T, in, out string) booking.Interval {
	t.Helper()

	iv, err := booking.ParseInterval(in, "", out, "", time.UTC)
	require.NoError(t, err)

	return iv
}

func createReq(t *testing.T, in, out string) service.CreateRequest {
	return service.CreateRequest{
		QuoteRequest: service.QuoteRequest{
			RoomID:   deluxeRoom,
			Interval: stay(t, in, out),
			Guests:   booking.Guests{Adults: 2},
			Services: []booking.ServiceRequest{{ServiceID: 1, Quantity: 1}},
		},
		UserID: guest.UserID,
		Actor:  guest,
	}
}

func TestQuoteMatchesCreatedBooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := createReq(t, "2030-03-01", "2030-03-03")

	q, err := f.svc.Quote(ctx, req.QuoteRequest)
	require.NoError(t, err)
	assert.Equal(t, int64(2000000), q.RoomCharge)
	assert.Equal(t, int64(100000), q.ServiceCharge)
	assert.Equal(t, int64(210000), q.Tax)
	assert.Equal(t, int64(2310000), q.Total)

	b, err := f.svc.CreateBooking(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, q.Total, b.TotalAmount)
	assert.Equal(t, booking.StatusPending, b.Status)
	assert.Equal(t, booking.PaymentUnpaid, b.Payment.Status)
	assert.NotEmpty(t, b.Reference)
	require.Len(t, b.History, 1)
	assert.Equal(t, "guest:7", b.History[0].Actor)
	assert.Equal(t, int32(1), f.commits.Load())

	events, err := f.db.PendingEvents(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, queue.BookingStatusQueue, events[0].Queue)
}

func TestCreateBookingRejectsOverlap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.svc.CreateBooking(ctx, createReq(t, "2030-03-01", "2030-03-03"))
	require.NoError(t, err)

	_, err = f.svc.CreateBooking(ctx, createReq(t, "2030-03-02", "2030-03-04"))
	conflict := booking.AsConflictError(err)
	require.NotNil(t, conflict)
	assert.Equal(t, []uint64{first.ID}, conflict.BookingIDs)

	_, err = f.svc.CreateBooking(ctx, createReq(t, "2030-03-03", "2030-03-05"))
	assert.NoError(t, err, "stay starting on the previous check-out day fits")

	avail, err := f.svc.CheckAvailability(ctx, deluxeRoom, stay(t, "2030-03-01", "2030-03-02"))
	require.NoError(t, err)
	assert.False(t, avail.Available)
	assert.Equal(t, []uint64{first.ID}, avail.Conflicts)
}

func TestCreateBookingConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := createReq(t, "2030-03-10", "2030-03-12")

	const workers = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := f.svc.CreateBooking(ctx, req)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				ok++
			case booking.AsConflictError(err) != nil:
				conflicts++
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, conflicts)
}

func TestCreateBookingValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	req := createReq(t, "2030-03-01", "2030-03-03")
	req.Guests = booking.Guests{Adults: 4}
	_, err := f.svc.CreateBooking(ctx, req)
	assert.NotNil(t, booking.AsValidationError(err))

	req = createReq(t, "2030-03-01", "2030-03-03")
	req.RoomID = 99
	_, err = f.svc.CreateBooking(ctx, req)
	assert.ErrorIs(t, err, booking.ErrNotFound)

	req = createReq(t, "2030-03-01", "2030-03-03")
	req.Services = []booking.ServiceRequest{{ServiceID: 3, Quantity: 3}}
	_, err = f.svc.CreateBooking(ctx, req)
	assert.ErrorIs(t, err, booking.ErrQuantityExceeded)

	req = createReq(t, "2030-03-01", "2030-03-03")
	req.Services = []booking.ServiceRequest{{ServiceID: 42, Quantity: 1}}
	_, err = f.svc.CreateBooking(ctx, req)
	assert.ErrorIs(t, err, booking.ErrNotFound)

	list, err := f.svc.ListBookingsByRoom(ctx, deluxeRoom, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLifecycleUpdatesHousekeeping(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	b, err := f.svc.CreateBooking(ctx, createReq(t, "2030-03-01", "2030-03-03"))
	require.NoError(t, err)

	b, err = f.svc.Transition(ctx, b.ID, booking.StatusConfirmed, staff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), b.Version)

	b, err = f.svc.Transition(ctx, b.ID, booking.StatusCheckedIn, staff)
	require.NoError(t, err)

	room, err := f.svc.Room(ctx, deluxeRoom)
	require.NoError(t, err)
	assert.Equal(t, model.HousekeepingOccupied, room.Housekeeping)

	b, err = f.svc.Transition(ctx, b.ID, booking.StatusCheckedOut, staff)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCheckedOut, b.Status)

	room, err = f.svc.Room(ctx, deluxeRoom)
	require.NoError(t, err)
	assert.Equal(t, model.HousekeepingCleaningRequired, room.Housekeeping)

	stored, err := f.svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, stored.History, 4)
	assert.Equal(t, booking.StatusCheckedOut, stored.LastEntry().Status)

	events, err := f.db.PendingEvents(ctx, 0)
	require.NoError(t, err)

	var roomEvents int
	for _, e := range events {
		if e.Queue == queue.RoomStateQueue {
			roomEvents++
		}
	}
	assert.Equal(t, 2, roomEvents)

	avail, err := f.svc.CheckAvailability(ctx, deluxeRoom, b.Interval)
	require.NoError(t, err)
	assert.True(t, avail.Available, "checked-out booking releases the calendar")
}

func TestTransitionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	b, err := f.svc.CreateBooking(ctx, createReq(t, "2030-03-01", "2030-03-03"))
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, b.ID, booking.StatusConfirmed, staff)
	require.NoError(t, err)

	again, err := f.svc.Transition(ctx, b.ID, booking.StatusConfirmed, staff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), again.Version)
	assert.Len(t, again.History, 2)
}

func TestTransitionRejectsIllegalMoves(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	b, err := f.svc.CreateBooking(ctx, createReq(t, "2030-03-01", "2030-03-03"))
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, b.ID, booking.StatusCheckedOut, staff)
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)

	_, err = f.svc.Transition(ctx, 999, booking.StatusConfirmed, staff)
	assert.ErrorIs(t, err, booking.ErrNotFound)

	stored, err := f.svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, stored.Status)
	assert.Len(t, stored.History, 1)
}

func TestCancelAppliesPolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	b, err := f.svc.CreateBooking(ctx, createReq(t, "2030-03-01", "2030-03-03"))
	require.NoError(t, err)

	_, err = f.svc.RecordPayment(ctx, b.ID, booking.PaymentCard, staff)
	require.NoError(t, err)

	// Five days before check-in: 10% fee.
	now := time.Date(2030, 2, 24, 14, 0, 0, 0, time.UTC)
	c, err := f.svc.Cancel(ctx, b.ID, "plans changed", guest, now)
	require.NoError(t, err)
	assert.Equal(t, 10, c.FeePercent)
	assert.Equal(t, int64(231000), c.Fee)
	assert.Equal(t, b.TotalAmount-c.Fee, c.Refund)

	stored, err := f.svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, stored.Status)
	assert.Equal(t, booking.PaymentPartiallyRefunded, stored.Payment.Status)

	last := stored.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, "plans changed", last.Reason)
	require.NotNil(t, last.Fee)
	assert.Equal(t, c.Fee, *last.Fee)

	_, err = f.svc.Cancel(ctx, b.ID, "", guest, now)
	assert.ErrorIs(t, err, booking.ErrAlreadyFinalized)

	avail, err := f.svc.CheckAvailability(ctx, deluxeRoom, b.Interval)
	require.NoError(t, err)
	assert.True(t, avail.Available)
}

func TestCancelInsideLeadTime(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	b, err := f.svc.CreateBooking(ctx, createReq(t, "2030-03-01", "2030-03-03"))
	require.NoError(t, err)

	now := b.Interval.CheckIn.Add(-24 * time.Hour)
	_, err = f.svc.Cancel(ctx, b.ID, "", guest, now)
	assert.ErrorIs(t, err, booking.ErrCancellationNotAllowed)

	stored, err := f.svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, stored.Status)
}

func TestRecordPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	b, err := f.svc.CreateBooking(ctx, createReq(t, "2030-03-01", "2030-03-03"))
	require.NoError(t, err)

	_, err = f.svc.RecordPayment(ctx, b.ID, "cheque", staff)
	assert.NotNil(t, booking.AsValidationError(err))

	paid, err := f.svc.RecordPayment(ctx, b.ID, booking.PaymentCash, staff)
	require.NoError(t, err)
	assert.Equal(t, booking.PaymentPaid, paid.Payment.Status)
	assert.Equal(t, booking.PaymentCash, paid.Payment.Method)
	assert.Len(t, paid.History, 1, "payment does not add history")

	_, err = f.svc.Transition(ctx, b.ID, booking.StatusCancelled, staff)
	require.NoError(t, err)

	_, err = f.svc.RecordPayment(ctx, b.ID, booking.PaymentCash, staff)
	assert.ErrorIs(t, err, booking.ErrAlreadyFinalized)
}

func TestListBookings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.svc.CreateBooking(ctx, createReq(t, "2030-03-01", "2030-03-03"))
	require.NoError(t, err)

	other := createReq(t, "2030-03-05", "2030-03-06")
	other.UserID = 8
	_, err = f.svc.CreateBooking(ctx, other)
	require.NoError(t, err)

	mine, err := f.svc.ListBookingsByUser(ctx, guest.UserID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)

	march4 := time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC)
	early, err := f.svc.ListBookingsByRoom(ctx, deluxeRoom, time.Time{}, march4)
	require.NoError(t, err)
	require.Len(t, early, 1)

	_, err = f.svc.ListBookingsByRoom(ctx, 99, time.Time{}, time.Time{})
	assert.True(t, errors.Is(err, booking.ErrNotFound))
}

func TestTransitionRechecksCalendar(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	q, err := f.svc.Quote(ctx, createReq(t, "2030-03-01", "2030-03-03").QuoteRequest)
	require.NoError(t, err)

	// Rows written straight through the store skip the overlap check
	// CreateBooking runs, leaving two holders on the same nights.
	var confirmed, pending *booking.Booking
	require.NoError(t, f.db.WithRoomLock(ctx, deluxeRoom, func(ctx context.Context, tx service.Tx) error {
		var err error
		if confirmed, err = booking.NewPending(q, guest.UserID, booking.Payment{}, guest, clock); err != nil {
			return err
		}
		confirmed.Status = booking.StatusConfirmed
		if pending, err = booking.NewPending(q, 8, booking.Payment{}, staff, clock); err != nil {
			return err
		}
		if err := tx.InsertBooking(ctx, confirmed); err != nil {
			return err
		}
		return tx.InsertBooking(ctx, pending)
	}))

	before, err := f.db.PendingEvents(ctx, 0)
	require.NoError(t, err)

	cases := []struct {
		id     uint64
		target booking.Status
		from   booking.Status
		other  uint64
	}{
		{confirmed.ID, booking.StatusCheckedIn, booking.StatusConfirmed, pending.ID},
		{pending.ID, booking.StatusConfirmed, booking.StatusPending, confirmed.ID},
	}

	for _, tc := range cases {
		_, err := f.svc.Transition(ctx, tc.id, tc.target, staff)
		conflict := booking.AsConflictError(err)
		require.NotNil(t, conflict, tc.target)
		assert.Equal(t, []uint64{tc.other}, conflict.BookingIDs)

		stored, err := f.svc.GetBooking(ctx, tc.id)
		require.NoError(t, err)
		assert.Equal(t, tc.from, stored.Status)
		assert.Len(t, stored.History, 1)
		assert.Equal(t, int64(1), stored.Version)
	}

	after, err := f.db.PendingEvents(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, after, len(before))
	assert.Zero(t, f.commits.Load())

	room, err := f.db.GetRoom(ctx, deluxeRoom)
	require.NoError(t, err)
	assert.NotEqual(t, model.HousekeepingOccupied, room.Housekeeping)

	_, err = f.svc.Transition(ctx, pending.ID, booking.StatusCancelled, staff)
	require.NoError(t, err)

	in, err := f.svc.Transition(ctx, confirmed.ID, booking.StatusCheckedIn, staff)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCheckedIn, in.Status)
}
