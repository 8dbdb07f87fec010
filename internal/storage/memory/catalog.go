package memory

import (
	"context"
	"sort"

	"github.com/iliyamo/hotel-reservation/internal/booking"
	"github.com/iliyamo/hotel-reservation/internal/model"
)

// AddRoom stores room, assigning an id when ID is zero.
func (db *DB) AddRoom(_ context.Context, room model.Room) (model.Room, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if room.ID == 0 {
		db.nextRoomID++
		room.ID = db.nextRoomID
	} else if room.ID > db.nextRoomID {
		db.nextRoomID = room.ID
	}

	if room.Housekeeping == "" {
		room.Housekeeping = model.HousekeepingAvailable
	}

	now := db.now().UTC()
	room.CreatedAt, room.UpdatedAt = now, now
	db.rooms[room.ID] = &room

	return room, nil
}

// AddService stores svc, assigning an id when ID is zero.
func (db *DB) AddService(_ context.Context, svc model.Service) (model.Service, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if svc.ID == 0 {
		db.nextServiceID++
		svc.ID = db.nextServiceID
	} else if svc.ID > db.nextServiceID {
		db.nextServiceID = svc.ID
	}

	db.services[svc.ID] = &svc

	return svc, nil
}

func (db *DB) GetRoom(_ context.Context, id uint64) (*model.Room, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	room, ok := db.rooms[id]
	if !ok {
		return nil, booking.ErrNotFound
	}

	out := *room

	return &out, nil
}

func (db *DB) ListRooms(_ context.Context) ([]model.Room, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]model.Room, 0, len(db.rooms))
	for _, room := range db.rooms {
		out = append(out, *room)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

// GetServices returns the requested services that exist.  Unknown ids are
// left out of the map.
func (db *DB) GetServices(_ context.Context, ids []uint64) (map[uint64]model.Service, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make(map[uint64]model.Service, len(ids))
	for _, id := range ids {
		if svc, ok := db.services[id]; ok {
			out[id] = *svc
		}
	}

	return out, nil
}

func (db *DB) ListServices(_ context.Context) ([]model.Service, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]model.Service, 0, len(db.services))
	for _, svc := range db.services {
		out = append(out, *svc)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}
