package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-reservation/internal/booking"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/service"
)

var (
	checkIn  = time.Date(2030, 3, 1, 14, 0, 0, 0, time.UTC)
	checkOut = time.Date(2030, 3, 3, 12, 0, 0, 0, time.UTC)
	created  = time.Date(2030, 2, 1, 10, 0, 0, 0, time.UTC)
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return NewStore(db, time.UTC, log), mock
}

var bookingCols = []string{"id", "reference", "room_id", "user_id", "adults", "children", "check_in", "check_out", "status",
	"payment_method", "payment_status", "room_charge", "service_charge", "tax", "total_amount", "version", "created_at", "updated_at"}

func bookingRow(rows *sqlmock.Rows, id uint64, status booking.Status, version int64) *sqlmock.Rows {
	return rows.AddRow(id, "ref-1", 2, 7, 2, 0, checkIn, checkOut, string(status),
		"", "unpaid", 2000000, 100000, 210000, 2310000, version, created, created)
}

func TestWithRoomLockCommits(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM rooms WHERE id = ? FOR UPDATE")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_events (queue, payload, created_at)")).
		WithArgs(queue.BookingStatusQueue, []byte(`{}`), created).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := s.WithRoomLock(context.Background(), 2, func(ctx context.Context, tx service.Tx) error {
		return tx.EnqueueEvent(ctx, queue.Envelope{Queue: queue.BookingStatusQueue, Payload: []byte(`{}`), CreatedAt: created})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithRoomLockRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM rooms WHERE id = ? FOR UPDATE")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectRollback()

	err := s.WithRoomLock(context.Background(), 2, func(context.Context, service.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithRoomLockUnknownRoom(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM rooms WHERE id = ? FOR UPDATE")).
		WithArgs(9).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := s.WithRoomLock(context.Background(), 9, func(context.Context, service.Tx) error {
		t.Fatal("fn must not run")
		return nil
	})
	require.ErrorIs(t, err, booking.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldingBookingsQuery(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM bookings\s+WHERE room_id = \? AND status IN \(\?,\?,\?\) AND check_in < \? AND check_out > \?`).
		WithArgs(2, "pending", "confirmed", "checked_in", checkOut, checkIn).
		WillReturnRows(bookingRow(sqlmock.NewRows(bookingCols), 5, booking.StatusConfirmed, 2))

	got, err := s.HoldingBookings(context.Background(), 2, booking.Interval{CheckIn: checkIn, CheckOut: checkOut})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(5), got[0].ID)
	assert.Equal(t, booking.StatusConfirmed, got[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBookingHydrates(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = ?")).
		WithArgs(5).
		WillReturnRows(bookingRow(sqlmock.NewRows(bookingCols), 5, booking.StatusCancelled, 3))
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_services WHERE booking_id IN (?)")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"booking_id", "service_id", "name", "unit", "unit_price", "quantity", "amount"}).
			AddRow(5, 1, "Breakfast", "per_person", 50000, 1, 100000))
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_status_history WHERE booking_id IN (?)")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"booking_id", "status", "at", "actor", "reason", "fee", "refund"}).
			AddRow(5, "pending", created, "guest:7", "", nil, nil).
			AddRow(5, "cancelled", created, "guest:7", "plans changed", 231000, 2079000))

	b, err := s.GetBooking(context.Background(), 5)
	require.NoError(t, err)

	require.Len(t, b.Services, 1)
	assert.Equal(t, model.UnitPerPerson, b.Services[0].Unit)
	require.Len(t, b.History, 2)
	assert.Nil(t, b.History[0].Fee)
	require.NotNil(t, b.History[1].Fee)
	assert.Equal(t, int64(231000), *b.History[1].Fee)
	assert.Equal(t, int64(2079000), *b.History[1].Refund)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBookingNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = ?")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(bookingCols))

	_, err := s.GetBooking(context.Background(), 5)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestInsertBookingWritesChildren(t *testing.T) {
	s, mock := newMockStore(t)

	b := &booking.Booking{
		Reference: "ref-1", RoomID: 2, UserID: 7,
		Guests:   booking.Guests{Adults: 2},
		Interval: booking.Interval{CheckIn: checkIn, CheckOut: checkOut},
		Status:   booking.StatusPending,
		Payment:  booking.Payment{Status: booking.PaymentUnpaid},
		Services: []booking.ServiceLine{
			{ServiceID: 1, Name: "Breakfast", Unit: model.UnitPerPerson, UnitPrice: 50000, Quantity: 1, Amount: 100000},
		},
		TotalAmount: 2310000,
		Version:     1,
		History:     []booking.HistoryEntry{{Status: booking.StatusPending, At: created, Actor: "guest:7"}},
		CreatedAt:   created,
		UpdatedAt:   created,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM rooms").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_services")).
		WithArgs(11, 1, "Breakfast", "per_person", 50000, 1, 100000).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_status_history")).
		WithArgs(11, "pending", created, "guest:7", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := s.WithRoomLock(context.Background(), 2, func(ctx context.Context, tx service.Tx) error {
		return tx.InsertBooking(ctx, b)
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(11), b.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBookingVersionMismatch(t *testing.T) {
	s, mock := newMockStore(t)

	b := &booking.Booking{ID: 5, Status: booking.StatusConfirmed, Version: 3, UpdatedAt: created}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM rooms").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = ?")).
		WithArgs("confirmed", "", "", 3, created, 5, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.WithRoomLock(context.Background(), 2, func(ctx context.Context, tx service.Tx) error {
		return tx.UpdateBooking(ctx, b, 2, &booking.HistoryEntry{Status: booking.StatusConfirmed})
	})
	require.ErrorIs(t, err, booking.ErrConcurrentUpdate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetHousekeepingSameState(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM rooms").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET housekeeping = ?")).
		WithArgs(model.HousekeepingOccupied, sqlmock.AnyArg(), 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := s.WithRoomLock(context.Background(), 2, func(ctx context.Context, tx service.Tx) error {
		return tx.SetHousekeeping(ctx, 2, model.HousekeepingOccupied)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO users").
		WithArgs("guest@example.com", "hash", model.RoleGuest).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err = NewUserRepo(db).CreateUser(context.Background(), " Guest@Example.com", "hash", model.RoleGuest)
	assert.ErrorIs(t, err, model.ErrEmailExists)
}

func TestValidateRefreshRejectsRevoked(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens").
		WithArgs("h").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
			AddRow(7, time.Now().Add(time.Hour), time.Now()))

	_, err = NewTokenRepo(db).ValidateRefresh(context.Background(), "h")
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestPendingEvents(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM outbox_events\s+WHERE published_at IS NULL ORDER BY id LIMIT \?`).
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "queue", "payload", "created_at"}).
			AddRow(1, queue.RoomStateQueue, []byte(`{"room_id":2}`), created))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE outbox_events SET published_at = ? WHERE id = ?")).
		WithArgs(created, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	events, err := s.PendingEvents(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.JSONEq(t, `{"room_id":2}`, string(events[0].Payload))

	require.NoError(t, s.MarkPublished(context.Background(), 1, created))
	assert.NoError(t, mock.ExpectationsWereMet())
}
