package model

import "time"

// Housekeeping states a room moves through as guests arrive and leave.
// The booking core only ever emits Occupied (on check-in) and
// CleaningRequired (on check-out); the other values are set by staff.
const (
	HousekeepingAvailable        = "available"
	HousekeepingOccupied         = "occupied"
	HousekeepingCleaningRequired = "cleaning_required"
	HousekeepingMaintenance      = "maintenance"
)

// HourlyRate holds the sub-day pricing of a room.  FirstHour is charged
// once for any same-day stay; AdditionalHour is charged for every hour
// after the first.
type HourlyRate struct {
	FirstHour      int64 `json:"first_hour"`
	AdditionalHour int64 `json:"additional_hour"`
}

// RateCard is a room's pricing definition.  All amounts are in the
// smallest unit of the hotel currency.
type RateCard struct {
	BasePrice int64      `json:"base_price"` // per night
	Hourly    HourlyRate `json:"hourly"`
}

// Room represents a row in the `rooms` table.
//
// Fields:
//
//	ID           – primary key identifier.
//	Number       – door number shown to guests (e.g. "204").
//	Type         – free-form room category (e.g. "deluxe").
//	Rates        – nightly and hourly prices.
//	MaxOccupancy – upper bound for adults + children.
//	Housekeeping – current housekeeping state.
//	Active       – inactive rooms cannot be booked.
type Room struct {
	ID           uint64    `json:"id"`
	Number       string    `json:"number"`
	Type         string    `json:"type"`
	Rates        RateCard  `json:"rates"`
	MaxOccupancy int       `json:"max_occupancy"`
	Housekeeping string    `json:"housekeeping"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
