package booking

import (
	"fmt"
	"math"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// TaxRate is expressed in basis points (1000 = 10%).
type TaxRate int64

const basisPoints = 10000

// TaxRateFromFraction converts a fraction such as 0.1 into basis points.
func TaxRateFromFraction(f float64) (TaxRate, error) {
	if math.IsNaN(f) || f < 0 || f > 1 {
		return 0, fmt.Errorf("tax rate must be within [0, 1], got %v", f)
	}
	return TaxRate(math.Round(f * basisPoints)), nil
}

// Apply returns amount × rate rounded half up.
func (r TaxRate) Apply(amount int64) int64 {
	return roundDiv(amount*int64(r), basisPoints)
}

// roundDiv divides and rounds half away from zero.
func roundDiv(num, den int64) int64 {
	if num < 0 {
		return -((-num + den/2) / den)
	}
	return (num + den/2) / den
}

// Quote is the price of a prospective booking.  Total is exactly what a
// booking created from the same input stores as TotalAmount.
type Quote struct {
	RoomID        uint64        `json:"room_id"`
	Interval      Interval      `json:"interval"`
	Guests        Guests        `json:"guests"`
	Room          RoomCharge    `json:"room"`
	Services      []ServiceLine `json:"services"`
	RoomCharge    int64         `json:"room_charge"`
	ServiceCharge int64         `json:"service_charge"`
	Tax           int64         `json:"tax"`
	Total         int64         `json:"total"`
}

// QuoteInput holds everything the price depends on.  Catalog must hold
// every service referenced by Services.
type QuoteInput struct {
	Room     model.Room
	Interval Interval
	Guests   Guests
	Services []ServiceRequest
	Catalog  map[uint64]model.Service
	TaxRate  TaxRate
}

// BuildQuote validates the request and prices it.
func BuildQuote(in QuoteInput) (Quote, error) {
	verr := NewValidationError()

	if err := in.Interval.Validate(); err != nil {
		verr.Merge(AsValidationError(err))
	}

	verr.Merge(in.Guests.Validate(in.Room.MaxOccupancy))

	if !in.Room.Active {
		verr.Add("room_id", "room is not available for booking")
	}

	if err := verr.Err(); err != nil {
		return Quote{}, err
	}

	room := PriceRoom(in.Room.Rates, in.Interval)

	lines, serviceCharge, err := PriceServices(in.Services, in.Catalog, in.Guests)
	if err != nil {
		return Quote{}, err
	}

	subtotal := room.Amount + serviceCharge
	tax := in.TaxRate.Apply(subtotal)

	return Quote{
		RoomID:        in.Room.ID,
		Interval:      in.Interval,
		Guests:        in.Guests,
		Room:          room,
		Services:      lines,
		RoomCharge:    room.Amount,
		ServiceCharge: serviceCharge,
		Tax:           tax,
		Total:         subtotal + tax,
	}, nil
}
