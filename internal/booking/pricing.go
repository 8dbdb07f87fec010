package booking

import (
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// RoomCharge is the priced breakdown of a stay.  Exactly one of Nights or
// Hours is non-zero.
type RoomCharge struct {
	Nights int   `json:"nights,omitempty"`
	Hours  int   `json:"hours,omitempty"`
	Amount int64 `json:"amount"`
}

// PriceRoom applies the rate card to a stay.  Stays that cross midnight
// are billed per calendar night; same-day stays are billed per started
// hour with a one-hour minimum.  Partial units always round up.
func PriceRoom(rates model.RateCard, iv Interval) RoomCharge {
	nights := calendarDays(iv.CheckIn, iv.CheckOut)
	if nights < 0 {
		nights = 0
	}

	if nights > 0 {
		return RoomCharge{Nights: nights, Amount: int64(nights) * rates.BasePrice}
	}

	hours := ceilHours(iv.Duration())
	if hours < 1 {
		hours = 1
	}

	amount := rates.Hourly.FirstHour + int64(hours-1)*rates.Hourly.AdditionalHour

	return RoomCharge{Hours: hours, Amount: amount}
}

func ceilHours(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Hour - 1) / time.Hour)
}
