package booking

import (
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// RoomEffect is a housekeeping change the caller must persist together
// with the status change that produced it.
type RoomEffect struct {
	RoomID uint64
	State  string
}

// TransitionResult describes what a state machine call did.  When Changed
// is false the booking was already in the requested status and nothing
// was appended.
type TransitionResult struct {
	Changed      bool
	From         Status
	To           Status
	Entry        HistoryEntry
	Effect       *RoomEffect
	Cancellation *Cancellation
}

// Machine applies status changes to bookings.  Cancellations are priced
// by Policy.
type Machine struct {
	Policy CancellationPolicy
}

func NewMachine(policy CancellationPolicy) Machine {
	return Machine{Policy: policy}
}

// Transition moves b to target.  Requesting the current status is a no-op,
// so retries never duplicate history.  On error b is left untouched.
func (m Machine) Transition(b *Booking, target Status, actor Actor, reason string, now time.Time) (TransitionResult, error) {
	if err := actor.validate(); err != nil {
		return TransitionResult{}, err
	}

	if !target.IsValid() {
		verr := NewValidationError()
		verr.Add("status", "unknown status "+string(target))
		return TransitionResult{}, verr
	}

	if b.Status == target {
		return TransitionResult{From: b.Status, To: target}, nil
	}

	if !b.Status.CanTransitionTo(target) {
		return TransitionResult{}, &TransitionError{From: b.Status, To: target}
	}

	if target == StatusCancelled {
		return m.Cancel(b, actor, reason, now)
	}

	return apply(b, target, actor, reason, now, nil), nil
}

// Cancel runs the cancellation policy and, when permitted, moves b to
// cancelled with the fee and refund recorded on the history entry.
// Unlike Transition it reports AlreadyFinalized for a cancelled booking.
func (m Machine) Cancel(b *Booking, actor Actor, reason string, now time.Time) (TransitionResult, error) {
	if err := actor.validate(); err != nil {
		return TransitionResult{}, err
	}

	c, err := m.Policy.Evaluate(b, now)
	if err != nil {
		return TransitionResult{}, err
	}

	if b.Payment.Status == PaymentPaid {
		switch {
		case c.Refund == b.TotalAmount && c.Refund > 0:
			b.Payment.Status = PaymentRefunded
		case c.Refund > 0:
			b.Payment.Status = PaymentPartiallyRefunded
		}
	}

	return apply(b, StatusCancelled, actor, reason, now, &c), nil
}

func apply(b *Booking, target Status, actor Actor, reason string, now time.Time, c *Cancellation) TransitionResult {
	entry := HistoryEntry{
		Status: target,
		At:     now,
		Actor:  actor.String(),
		Reason: reason,
	}

	if c != nil {
		fee, refund := c.Fee, c.Refund
		entry.Fee = &fee
		entry.Refund = &refund
	}

	res := TransitionResult{
		Changed:      true,
		From:         b.Status,
		To:           target,
		Entry:        entry,
		Cancellation: c,
	}

	switch target {
	case StatusCheckedIn:
		res.Effect = &RoomEffect{RoomID: b.RoomID, State: model.HousekeepingOccupied}
	case StatusCheckedOut:
		res.Effect = &RoomEffect{RoomID: b.RoomID, State: model.HousekeepingCleaningRequired}
	}

	b.Status = target
	b.History = append(b.History, entry)
	b.Version++
	b.UpdatedAt = now

	return res
}

// NewPending builds a pending booking from a quote.  The first history
// entry records who created it.
func NewPending(q Quote, userID uint64, payment Payment, actor Actor, now time.Time) (*Booking, error) {
	if err := actor.validate(); err != nil {
		return nil, err
	}

	if payment.Method != "" && !payment.Method.IsValid() {
		verr := NewValidationError()
		verr.Add("payment.method", "unknown payment method")
		return nil, verr
	}

	if payment.Status == "" {
		payment.Status = PaymentUnpaid
	}

	b := &Booking{
		RoomID:        q.RoomID,
		UserID:        userID,
		Guests:        q.Guests,
		Interval:      q.Interval,
		Status:        StatusPending,
		Payment:       payment,
		Services:      append([]ServiceLine(nil), q.Services...),
		RoomCharge:    q.RoomCharge,
		ServiceCharge: q.ServiceCharge,
		Tax:           q.Tax,
		TotalAmount:   q.Total,
		Version:       1,
		History: []HistoryEntry{{
			Status: StatusPending,
			At:     now,
			Actor:  actor.String(),
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	return b, nil
}
