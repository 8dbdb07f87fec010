package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// RoomRepo reads rooms and updates their housekeeping state.
type RoomRepo struct {
	db *sql.DB
}

func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

const roomColumns = `id, number, type, base_price, hourly_first, hourly_additional, max_occupancy, housekeeping, active, created_at, updated_at`

func scanRoom(row interface{ Scan(...any) error }) (model.Room, error) {
	var r model.Room
	err := row.Scan(&r.ID, &r.Number, &r.Type, &r.Rates.BasePrice, &r.Rates.Hourly.FirstHour,
		&r.Rates.Hourly.AdditionalHour, &r.MaxOccupancy, &r.Housekeeping, &r.Active, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	room, err := scanRoom(r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "room", id)
	}
	return &room, nil
}

func (r *RoomRepo) List(ctx context.Context) ([]model.Room, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Room{}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	return out, rows.Err()
}

// LockTx takes the row lock that serializes every booking write on the
// room.
func (r *RoomRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	var got uint64
	err := tx.QueryRowContext(ctx, `SELECT id FROM rooms WHERE id = ? FOR UPDATE`, id).Scan(&got)
	return notFound(err, "room", id)
}

// SetHousekeepingTx expects the room row to be locked already; a
// repeated state may report zero affected rows.
func (r *RoomRepo) SetHousekeepingTx(ctx context.Context, tx *sql.Tx, id uint64, state string, now time.Time) error {
	_, err := tx.ExecContext(ctx, `UPDATE rooms SET housekeeping = ?, updated_at = ? WHERE id = ?`, state, now.UTC(), id)
	return err
}
