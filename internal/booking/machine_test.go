package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

var (
	staff = Actor{UserID: 9, Role: model.RoleStaff}
	guest = Actor{UserID: 3, Role: model.RoleGuest}
)

func pendingBooking(t *testing.T, now time.Time) *Booking {
	t.Helper()

	q := Quote{
		RoomID:     7,
		Interval:   Interval{CheckIn: now.Add(10 * day), CheckOut: now.Add(12 * day)},
		Guests:     Guests{Adults: 2},
		RoomCharge: 2_000_000,
		Tax:        200_000,
		Total:      2_200_000,
	}

	b, err := NewPending(q, guest.UserID, Payment{Method: PaymentCard}, guest, now)
	require.NoError(t, err)
	b.ID = 1

	return b
}

func TestTransitionTable(t *testing.T) {
	legal := map[Status][]Status{
		StatusPending:   {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusCheckedIn, StatusCancelled, StatusNoShow},
		StatusCheckedIn: {StatusCheckedOut},
	}

	all := []Status{StatusPending, StatusConfirmed, StatusCheckedIn, StatusCheckedOut, StatusCancelled, StatusNoShow}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, l := range legal[from] {
				if l == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}

	assert.True(t, StatusCheckedOut.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusNoShow.IsTerminal())
	assert.False(t, StatusConfirmed.IsTerminal())

	_, err := ParseStatus("archived")
	assert.Error(t, err)
}

func TestMachineTransition(t *testing.T) {
	now := at(t, "2025-01-01 12:00")
	m := NewMachine(DefaultCancellationPolicy())

	t.Run("invalid transition leaves booking untouched", func(t *testing.T) {
		b := pendingBooking(t, now)

		_, err := m.Transition(b, StatusCheckedIn, staff, "", now)
		require.ErrorIs(t, err, ErrInvalidTransition)

		assert.Equal(t, StatusPending, b.Status)
		assert.Len(t, b.History, 1)
		assert.Equal(t, int64(1), b.Version)
	})

	t.Run("full stay emits room effects", func(t *testing.T) {
		b := pendingBooking(t, now)

		res, err := m.Transition(b, StatusConfirmed, staff, "", now)
		require.NoError(t, err)
		assert.True(t, res.Changed)
		assert.Nil(t, res.Effect)

		res, err = m.Transition(b, StatusCheckedIn, staff, "", now.Add(10*day))
		require.NoError(t, err)
		require.NotNil(t, res.Effect)
		assert.Equal(t, model.HousekeepingOccupied, res.Effect.State)
		assert.Equal(t, uint64(7), res.Effect.RoomID)

		res, err = m.Transition(b, StatusCheckedOut, staff, "", now.Add(12*day))
		require.NoError(t, err)
		require.NotNil(t, res.Effect)
		assert.Equal(t, model.HousekeepingCleaningRequired, res.Effect.State)

		require.Len(t, b.History, 4)
		assert.Equal(t, "staff:9", b.History[3].Actor)
		assert.Equal(t, int64(4), b.Version)
	})

	t.Run("same target twice appends once", func(t *testing.T) {
		b := pendingBooking(t, now)

		_, err := m.Transition(b, StatusConfirmed, staff, "", now)
		require.NoError(t, err)

		res, err := m.Transition(b, StatusConfirmed, staff, "", now)
		require.NoError(t, err)
		assert.False(t, res.Changed)
		assert.Len(t, b.History, 2)
	})

	t.Run("cancel through transition records fee", func(t *testing.T) {
		b := pendingBooking(t, now)
		b.Interval.CheckIn = now.Add(5 * day)
		b.TotalAmount = 2_000_000

		res, err := m.Transition(b, StatusCancelled, guest, "change of plans", now)
		require.NoError(t, err)
		require.NotNil(t, res.Cancellation)
		assert.Equal(t, int64(200_000), res.Cancellation.Fee)

		last := b.LastEntry()
		require.NotNil(t, last)
		assert.Equal(t, StatusCancelled, last.Status)
		assert.Equal(t, "change of plans", last.Reason)
		require.NotNil(t, last.Fee)
		require.NotNil(t, last.Refund)
		assert.Equal(t, int64(200_000), *last.Fee)
		assert.Equal(t, int64(1_800_000), *last.Refund)
	})

	t.Run("cancelled is outside the table after check-in", func(t *testing.T) {
		for _, from := range []Status{StatusCheckedIn, StatusCheckedOut, StatusNoShow} {
			b := pendingBooking(t, now)
			b.Status = from

			_, err := m.Transition(b, StatusCancelled, staff, "", now)
			require.ErrorIs(t, err, ErrInvalidTransition, from)
			assert.NotErrorIs(t, err, ErrCancellationNotAllowed, from)
			assert.NotErrorIs(t, err, ErrAlreadyFinalized, from)

			assert.Equal(t, from, b.Status)
			assert.Len(t, b.History, 1)
			assert.Equal(t, int64(1), b.Version)
		}
	})

	t.Run("cancel is not idempotent", func(t *testing.T) {
		b := pendingBooking(t, now)

		_, err := m.Cancel(b, guest, "", now)
		require.NoError(t, err)

		_, err = m.Cancel(b, guest, "", now)
		assert.ErrorIs(t, err, ErrAlreadyFinalized)
		assert.Len(t, b.History, 2)
	})

	t.Run("refund updates a paid booking", func(t *testing.T) {
		b := pendingBooking(t, now)
		b.Payment.Status = PaymentPaid

		_, err := m.Cancel(b, guest, "", now)
		require.NoError(t, err)
		assert.Equal(t, PaymentRefunded, b.Payment.Status)

		b = pendingBooking(t, now)
		b.Payment.Status = PaymentPaid
		b.Interval.CheckIn = now.Add(2 * day)

		_, err = m.Cancel(b, guest, "", now)
		require.NoError(t, err)
		assert.Equal(t, PaymentPartiallyRefunded, b.Payment.Status)
	})

	t.Run("actor is required", func(t *testing.T) {
		b := pendingBooking(t, now)

		_, err := m.Transition(b, StatusConfirmed, Actor{}, "", now)
		assert.NotNil(t, AsValidationError(err))
		assert.Equal(t, StatusPending, b.Status)
	})

	t.Run("unknown target", func(t *testing.T) {
		b := pendingBooking(t, now)

		_, err := m.Transition(b, Status("archived"), staff, "", now)
		assert.NotNil(t, AsValidationError(err))
	})
}

func TestCloneDoesNotShareHistory(t *testing.T) {
	now := at(t, "2025-01-01 12:00")
	b := pendingBooking(t, now)

	c := b.Clone()
	c.History = append(c.History, HistoryEntry{Status: StatusConfirmed})
	c.History[0].Actor = "changed"

	assert.Len(t, b.History, 1)
	assert.Equal(t, "guest:3", b.History[0].Actor)
}
