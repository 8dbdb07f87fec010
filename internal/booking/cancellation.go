package booking

import (
	"errors"
	"fmt"
	"time"
)

const day = 24 * time.Hour

// FeeTier charges Percent of the total when the check-in is at least
// MinDays away.
type FeeTier struct {
	MinDays int `json:"min_days"`
	Percent int `json:"percent"`
}

// CancellationPolicy decides whether a booking may be cancelled and what
// it costs.  The lead-time gate and the fee tiers are independent checks.
type CancellationPolicy struct {
	// MinLead is the lead time that must be strictly exceeded.
	MinLead time.Duration
	// Tiers are ordered by MinDays, descending.
	Tiers []FeeTier
	// LatePercent applies when no tier matches.
	LatePercent int
}

// Cancellation is the outcome of a permitted cancellation.
type Cancellation struct {
	DaysUntilCheckIn int   `json:"days_until_check_in"`
	FeePercent       int   `json:"fee_percent"`
	Fee              int64 `json:"fee"`
	Refund           int64 `json:"refund"`
}

func DefaultCancellationPolicy() CancellationPolicy {
	return CancellationPolicy{
		MinLead: 24 * time.Hour,
		Tiers: []FeeTier{
			{MinDays: 7, Percent: 0},
			{MinDays: 3, Percent: 10},
			{MinDays: 1, Percent: 30},
		},
		LatePercent: 50,
	}
}

// Validate enforces that the fee never decreases as lead time shrinks.
func (p CancellationPolicy) Validate() error {
	if p.MinLead < 0 {
		return errors.New("cancellation min lead must not be negative")
	}

	prev := FeeTier{MinDays: int(^uint(0) >> 1), Percent: 0}

	for i, t := range p.Tiers {
		if t.Percent < 0 || t.Percent > 100 {
			return fmt.Errorf("tier %d: percent %d out of range", i, t.Percent)
		}
		if t.MinDays >= prev.MinDays {
			return fmt.Errorf("tier %d: min days must be strictly descending", i)
		}
		if t.Percent < prev.Percent {
			return fmt.Errorf("tier %d: fee must not decrease as lead time shrinks", i)
		}
		prev = t
	}

	if p.LatePercent < prev.Percent || p.LatePercent > 100 {
		return fmt.Errorf("late percent %d must be within [%d, 100]", p.LatePercent, prev.Percent)
	}

	return nil
}

// DaysUntil is the lead time in days, rounded up.
func DaysUntil(checkIn, now time.Time) int {
	lead := checkIn.Sub(now)
	if lead > 0 {
		return int((lead + day - 1) / day)
	}
	// integer division truncates toward zero, which is the ceiling here
	return int(lead / day)
}

func (p CancellationPolicy) FeePercent(daysUntil int) int {
	for _, t := range p.Tiers {
		if daysUntil >= t.MinDays {
			return t.Percent
		}
	}
	return p.LatePercent
}

// Evaluate gates the cancellation and computes fee and refund.
func (p CancellationPolicy) Evaluate(b *Booking, now time.Time) (Cancellation, error) {
	if b.Status.IsTerminal() {
		return Cancellation{}, fmt.Errorf("booking %d is %s: %w", b.ID, b.Status, ErrAlreadyFinalized)
	}

	if !b.Status.CanTransitionTo(StatusCancelled) {
		return Cancellation{}, fmt.Errorf("booking %d is %s: %w", b.ID, b.Status, ErrCancellationNotAllowed)
	}

	if lead := b.Interval.CheckIn.Sub(now); lead <= p.MinLead {
		return Cancellation{}, fmt.Errorf("check-in is %s away, need more than %s: %w",
			lead.Truncate(time.Minute), p.MinLead, ErrCancellationNotAllowed)
	}

	days := DaysUntil(b.Interval.CheckIn, now)
	pct := p.FeePercent(days)
	fee := roundDiv(b.TotalAmount*int64(pct), 100)

	return Cancellation{
		DaysUntilCheckIn: days,
		FeePercent:       pct,
		Fee:              fee,
		Refund:           b.TotalAmount - fee,
	}, nil
}
