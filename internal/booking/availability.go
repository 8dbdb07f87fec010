package booking

import "sort"

// Availability is the answer to "is this room free for this interval".
type Availability struct {
	RoomID    uint64   `json:"room_id"`
	Interval  Interval `json:"interval"`
	Available bool     `json:"available"`
	Conflicts []uint64 `json:"conflicts,omitempty"`
}

// CheckAvailability compares iv against already-fetched bookings.  Only
// bookings of roomID in a calendar-holding status take part; exclude lets
// a booking be re-verified against everyone but itself.  It has no side
// effects, so callers must run it under the room lock together with the
// write that depends on it.
func CheckAvailability(roomID uint64, iv Interval, existing []Booking, exclude uint64) Availability {
	res := Availability{RoomID: roomID, Interval: iv, Available: true}

	for i := range existing {
		b := &existing[i]

		if b.RoomID != roomID || b.ID == exclude || !b.Status.HoldsCalendar() {
			continue
		}

		if b.Interval.Overlaps(iv) {
			res.Conflicts = append(res.Conflicts, b.ID)
		}
	}

	if len(res.Conflicts) > 0 {
		res.Available = false
		sort.Slice(res.Conflicts, func(i, j int) bool { return res.Conflicts[i] < res.Conflicts[j] })
	}

	return res
}

// Err converts an unavailable result into a ConflictError.
func (a Availability) Err() error {
	if a.Available {
		return nil
	}
	return &ConflictError{RoomID: a.RoomID, BookingIDs: a.Conflicts}
}
