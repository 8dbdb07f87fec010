package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// ServiceRepo reads the add-on catalog.
type ServiceRepo struct {
	db *sql.DB
}

func NewServiceRepo(db *sql.DB) *ServiceRepo { return &ServiceRepo{db: db} }

const serviceColumns = `id, name, price, unit, max_quantity, active`

func scanService(row interface{ Scan(...any) error }) (model.Service, error) {
	var (
		s   model.Service
		max sql.NullInt64
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Price, &s.Unit, &max, &s.Active); err != nil {
		return s, err
	}
	if max.Valid {
		n := int(max.Int64)
		s.MaxQuantity = &n
	}
	return s, nil
}

func (r *ServiceRepo) List(ctx context.Context) ([]model.Service, error) {
	return r.query(ctx, `SELECT `+serviceColumns+` FROM services ORDER BY id`)
}

// GetByIDs returns the services that exist, keyed by id.
func (r *ServiceRepo) GetByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Service, error) {
	out := make(map[uint64]model.Service, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	list, err := r.query(ctx, `SELECT `+serviceColumns+` FROM services WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	for _, s := range list {
		out[s.ID] = s
	}
	return out, nil
}

func (r *ServiceRepo) query(ctx context.Context, q string, args ...any) ([]model.Service, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Service{}
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
