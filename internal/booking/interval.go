package booking

import (
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"

	// Wall-clock times used when a request carries a date only.
	DefaultCheckInClock  = "14:00"
	DefaultCheckOutClock = "12:00"
)

// Interval is the half-open range [CheckIn, CheckOut) a room is held for.
// Both ends are wall-clock instants in the hotel time zone.
type Interval struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

// NewInterval returns an interval after checking that checkOut is strictly
// after checkIn.
func NewInterval(checkIn, checkOut time.Time) (Interval, error) {
	iv := Interval{CheckIn: checkIn, CheckOut: checkOut}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}

	return iv, nil
}

// ParseInterval builds an interval from calendar dates (YYYY-MM-DD) and
// local times (HH:MM) interpreted in loc.  Empty times fall back to the
// default check-in and check-out clocks.
func ParseInterval(inDate, inClock, outDate, outClock string, loc *time.Location) (Interval, error) {
	if loc == nil {
		loc = time.UTC
	}

	verr := NewValidationError()

	checkIn, ok := parseWallClock(verr, "check_in", inDate, inClock, DefaultCheckInClock, loc)
	checkOut, ok2 := parseWallClock(verr, "check_out", outDate, outClock, DefaultCheckOutClock, loc)

	if !ok || !ok2 {
		return Interval{}, verr
	}

	return NewInterval(checkIn, checkOut)
}

func parseWallClock(verr *ValidationError, field, date, clock, def string, loc *time.Location) (time.Time, bool) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)

	if date == "" {
		verr.Add(field+"_date", "date is required")
		return time.Time{}, false
	}

	if clock == "" {
		clock = def
	}

	d, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		verr.Add(field+"_date", "date must be YYYY-MM-DD")
		return time.Time{}, false
	}

	c, err := time.Parse(ClockLayout, clock)
	if err != nil {
		verr.Add(field+"_time", "time must be HH:MM")
		return time.Time{}, false
	}

	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, loc), true
}

func (iv Interval) Validate() error {
	verr := NewValidationError()

	switch {
	case iv.CheckIn.IsZero() || iv.CheckOut.IsZero():
		verr.Add("interval", "check_in and check_out are required")
	case !iv.CheckOut.After(iv.CheckIn):
		verr.Add("interval", "check_out must be after check_in")
	}

	return verr.Err()
}

// Overlaps applies the half-open rule: [s1,e1) and [s2,e2) conflict iff
// s1 < e2 and s2 < e1.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(iv.CheckOut)
}

func (iv Interval) Duration() time.Duration {
	return iv.CheckOut.Sub(iv.CheckIn)
}

// calendarDays counts whole calendar days between the dates of a and b,
// ignoring the clock and DST shifts.
func calendarDays(a, b time.Time) int {
	b = b.In(a.Location())

	ay, am, ad := a.Date()
	by, bm, bd := b.Date()

	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)

	return int(to.Sub(from) / (24 * time.Hour))
}
