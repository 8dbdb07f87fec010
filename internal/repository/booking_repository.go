package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/booking"
)

// BookingRepo persists bookings together with their add-on lines and
// status history.  Times are stored in UTC and returned in loc.
type BookingRepo struct {
	db  *sql.DB
	loc *time.Location
}

func NewBookingRepo(db *sql.DB, loc *time.Location) *BookingRepo {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingRepo{db: db, loc: loc}
}

const bookingColumns = `id, reference, room_id, user_id, adults, children, check_in, check_out, status,
	payment_method, payment_status, room_charge, service_charge, tax, total_amount, version, created_at, updated_at`

func (r *BookingRepo) scan(row interface{ Scan(...any) error }) (*booking.Booking, error) {
	var b booking.Booking
	err := row.Scan(&b.ID, &b.Reference, &b.RoomID, &b.UserID, &b.Guests.Adults, &b.Guests.Children,
		&b.Interval.CheckIn, &b.Interval.CheckOut, &b.Status, &b.Payment.Method, &b.Payment.Status,
		&b.RoomCharge, &b.ServiceCharge, &b.Tax, &b.TotalAmount, &b.Version, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}

	b.Interval.CheckIn = b.Interval.CheckIn.In(r.loc)
	b.Interval.CheckOut = b.Interval.CheckOut.In(r.loc)
	b.CreatedAt = b.CreatedAt.In(r.loc)
	b.UpdatedAt = b.UpdatedAt.In(r.loc)

	return &b, nil
}

func (r *BookingRepo) list(ctx context.Context, q querier, query string, args ...any) ([]*booking.Booking, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*booking.Booking{}
	for rows.Next() {
		b, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// hydrate loads add-on lines and history for bs with one query each.
func (r *BookingRepo) hydrate(ctx context.Context, q querier, bs []*booking.Booking) error {
	if len(bs) == 0 {
		return nil
	}

	byID := make(map[uint64]*booking.Booking, len(bs))
	args := make([]any, len(bs))
	for i, b := range bs {
		byID[b.ID] = b
		b.Services = []booking.ServiceLine{}
		b.History = []booking.HistoryEntry{}
		args[i] = b.ID
	}
	in := placeholders(len(bs))

	rows, err := q.QueryContext(ctx, `SELECT booking_id, service_id, name, unit, unit_price, quantity, amount
		FROM booking_services WHERE booking_id IN (`+in+`) ORDER BY booking_id, service_id`, args...)
	if err != nil {
		return fmt.Errorf("load booking services: %w", err)
	}
	for rows.Next() {
		var (
			id uint64
			l  booking.ServiceLine
		)
		if err := rows.Scan(&id, &l.ServiceID, &l.Name, &l.Unit, &l.UnitPrice, &l.Quantity, &l.Amount); err != nil {
			rows.Close()
			return err
		}
		byID[id].Services = append(byID[id].Services, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q.QueryContext(ctx, `SELECT booking_id, status, at, actor, reason, fee, refund
		FROM booking_status_history WHERE booking_id IN (`+in+`) ORDER BY booking_id, id`, args...)
	if err != nil {
		return fmt.Errorf("load booking history: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id          uint64
			h           booking.HistoryEntry
			fee, refund sql.NullInt64
		)
		if err := rows.Scan(&id, &h.Status, &h.At, &h.Actor, &h.Reason, &fee, &refund); err != nil {
			return err
		}
		h.At = h.At.In(r.loc)
		if fee.Valid {
			h.Fee = &fee.Int64
		}
		if refund.Valid {
			h.Refund = &refund.Int64
		}
		byID[id].History = append(byID[id].History, h)
	}
	return rows.Err()
}

func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*booking.Booking, error) {
	return r.get(ctx, r.db, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
}

// LockTx reads a booking with a row lock held until tx ends.
func (r *BookingRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (*booking.Booking, error) {
	return r.get(ctx, tx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id)
}

func (r *BookingRepo) get(ctx context.Context, q querier, query string, id uint64) (*booking.Booking, error) {
	b, err := r.scan(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "booking", id)
	}
	if err := r.hydrate(ctx, q, []*booking.Booking{b}); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]booking.Booking, error) {
	return r.listHydrated(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY id`, userID)
}

// ListByRoom returns bookings of roomID overlapping [from, to).  Zero
// bounds are open.
func (r *BookingRepo) ListByRoom(ctx context.Context, roomID uint64, from, to time.Time) ([]booking.Booking, error) {
	where := []string{"room_id = ?"}
	args := []any{roomID}
	if !to.IsZero() {
		where = append(where, "check_in < ?")
		args = append(args, to.UTC())
	}
	if !from.IsZero() {
		where = append(where, "check_out > ?")
		args = append(args, from.UTC())
	}
	return r.listHydrated(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE `+strings.Join(where, " AND ")+` ORDER BY check_in, id`, args...)
}

func (r *BookingRepo) listHydrated(ctx context.Context, query string, args ...any) ([]booking.Booking, error) {
	bs, err := r.list(ctx, r.db, query, args...)
	if err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, r.db, bs); err != nil {
		return nil, err
	}
	out := make([]booking.Booking, len(bs))
	for i, b := range bs {
		out[i] = *b
	}
	return out, nil
}

// Holding returns the bookings of roomID that occupy its calendar and
// overlap iv.  Add-on lines and history are not loaded.
func (r *BookingRepo) Holding(ctx context.Context, q querier, roomID uint64, iv booking.Interval) ([]booking.Booking, error) {
	statuses := booking.HoldingStatuses()
	args := []any{roomID}
	for _, s := range statuses {
		args = append(args, string(s))
	}
	args = append(args, iv.CheckOut.UTC(), iv.CheckIn.UTC())

	bs, err := r.list(ctx, q, `SELECT `+bookingColumns+` FROM bookings
		WHERE room_id = ? AND status IN (`+placeholders(len(statuses))+`) AND check_in < ? AND check_out > ?
		ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}

	out := make([]booking.Booking, len(bs))
	for i, b := range bs {
		out[i] = *b
	}
	return out, nil
}

// InsertTx stores b with its add-on lines and history and sets b.ID.
func (r *BookingRepo) InsertTx(ctx context.Context, tx *sql.Tx, b *booking.Booking) error {
	res, err := tx.ExecContext(ctx, `INSERT INTO bookings (reference, room_id, user_id, adults, children, check_in, check_out,
		status, payment_method, payment_status, room_charge, service_charge, tax, total_amount, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Reference, b.RoomID, b.UserID, b.Guests.Adults, b.Guests.Children, b.Interval.CheckIn.UTC(), b.Interval.CheckOut.UTC(),
		string(b.Status), string(b.Payment.Method), string(b.Payment.Status), b.RoomCharge, b.ServiceCharge, b.Tax, b.TotalAmount,
		b.Version, b.CreatedAt.UTC(), b.UpdatedAt.UTC())
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	if len(b.Services) > 0 {
		query := `INSERT INTO booking_services (booking_id, service_id, name, unit, unit_price, quantity, amount) VALUES `
		args := make([]any, 0, len(b.Services)*7)
		for i, l := range b.Services {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?, ?, ?, ?)"
			args = append(args, b.ID, l.ServiceID, l.Name, string(l.Unit), l.UnitPrice, l.Quantity, l.Amount)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert booking services: %w", err)
		}
	}

	for _, h := range b.History {
		if err := r.insertHistory(ctx, tx, b.ID, h); err != nil {
			return err
		}
	}

	return nil
}

// UpdateTx writes the mutable columns of b if the stored version is still
// expected, then appends entry when given.
func (r *BookingRepo) UpdateTx(ctx context.Context, tx *sql.Tx, b *booking.Booking, expected int64, entry *booking.HistoryEntry) error {
	res, err := tx.ExecContext(ctx, `UPDATE bookings SET status = ?, payment_method = ?, payment_status = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		string(b.Status), string(b.Payment.Method), string(b.Payment.Status), b.Version, b.UpdatedAt.UTC(), b.ID, expected)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("booking %d version %d: %w", b.ID, expected, booking.ErrConcurrentUpdate)
	}

	if entry != nil {
		return r.insertHistory(ctx, tx, b.ID, *entry)
	}
	return nil
}

func (r *BookingRepo) insertHistory(ctx context.Context, tx *sql.Tx, bookingID uint64, h booking.HistoryEntry) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO booking_status_history (booking_id, status, at, actor, reason, fee, refund)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		bookingID, string(h.Status), h.At.UTC(), h.Actor, h.Reason, nullInt(h.Fee), nullInt(h.Refund))
	if err != nil {
		return fmt.Errorf("insert booking history: %w", err)
	}
	return nil
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
