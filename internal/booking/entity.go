package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentCard         PaymentMethod = "card"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentEWallet      PaymentMethod = "e_wallet"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentBankTransfer, PaymentEWallet:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentUnpaid            PaymentStatus = "unpaid"
	PaymentPaid              PaymentStatus = "paid"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentRefunded          PaymentStatus = "refunded"
)

type Payment struct {
	Method PaymentMethod `json:"method"`
	Status PaymentStatus `json:"status"`
}

type Guests struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
}

func (g Guests) Total() int {
	return g.Adults + g.Children
}

// Validate checks the party against a room's occupancy limit.  A
// maxOccupancy of zero disables the upper bound.
func (g Guests) Validate(maxOccupancy int) *ValidationError {
	verr := NewValidationError()

	if g.Adults < 0 {
		verr.Add("guests.adults", "must not be negative")
	}

	if g.Children < 0 {
		verr.Add("guests.children", "must not be negative")
	}

	if g.Total() < 1 {
		verr.Add("guests", "at least one guest is required")
	}

	if maxOccupancy > 0 && g.Total() > maxOccupancy {
		verr.Add("guests", fmt.Sprintf("room allows at most %d guests", maxOccupancy))
	}

	return verr
}

// Actor identifies who requested a mutation.  It is always passed in
// explicitly by the caller.
type Actor struct {
	UserID uint64 `json:"user_id"`
	Role   string `json:"role"`
}

func (a Actor) String() string {
	role := strings.ToLower(a.Role)
	if a.UserID == 0 {
		return role
	}
	return fmt.Sprintf("%s:%d", role, a.UserID)
}

func (a Actor) IsStaff() bool {
	return a.Role == model.RoleStaff
}

func (a Actor) validate() error {
	if strings.TrimSpace(a.Role) == "" {
		verr := NewValidationError()
		verr.Add("actor", "actor is required")
		return verr
	}
	return nil
}

// HistoryEntry is one append-only record of a status change.  Fee and
// Refund are set only on the cancellation entry.
type HistoryEntry struct {
	Status Status    `json:"status"`
	At     time.Time `json:"at"`
	Actor  string    `json:"actor"`
	Reason string    `json:"reason,omitempty"`
	Fee    *int64    `json:"fee,omitempty"`
	Refund *int64    `json:"refund,omitempty"`
}

// ServiceLine is an add-on frozen at the price it had when booked.
type ServiceLine struct {
	ServiceID uint64            `json:"service_id"`
	Name      string            `json:"name"`
	Unit      model.ServiceUnit `json:"unit"`
	UnitPrice int64             `json:"unit_price"`
	Quantity  int               `json:"quantity"`
	Amount    int64             `json:"amount"`
}

type Booking struct {
	ID            uint64         `json:"id"`
	Reference     string         `json:"reference"`
	RoomID        uint64         `json:"room_id"`
	UserID        uint64         `json:"user_id"`
	Guests        Guests         `json:"guests"`
	Interval      Interval       `json:"interval"`
	Status        Status         `json:"status"`
	Payment       Payment        `json:"payment"`
	Services      []ServiceLine  `json:"services"`
	RoomCharge    int64          `json:"room_charge"`
	ServiceCharge int64          `json:"service_charge"`
	Tax           int64          `json:"tax"`
	TotalAmount   int64          `json:"total_amount"`
	Version       int64          `json:"version"`
	History       []HistoryEntry `json:"history"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Clone returns a deep copy so stores never share slices with callers.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}

	c := *b
	c.Services = append([]ServiceLine(nil), b.Services...)
	c.History = make([]HistoryEntry, len(b.History))

	for i, h := range b.History {
		c.History[i] = h
		if h.Fee != nil {
			fee := *h.Fee
			c.History[i].Fee = &fee
		}
		if h.Refund != nil {
			refund := *h.Refund
			c.History[i].Refund = &refund
		}
	}

	return &c
}

// LastEntry returns the newest history entry, or nil.
func (b *Booking) LastEntry() *HistoryEntry {
	if len(b.History) == 0 {
		return nil
	}
	return &b.History[len(b.History)-1]
}
