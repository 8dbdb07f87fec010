package booking

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrCancellationNotAllowed = errors.New("cancellation not allowed")
	ErrAlreadyFinalized       = errors.New("booking already finalized")
	ErrQuantityExceeded       = errors.New("service quantity exceeded")
	ErrConcurrentUpdate       = errors.New("booking was modified concurrently")
)

// ValidationError collects per-field messages for malformed input.
type ValidationError struct {
	fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{fields: make(map[string][]string)}
}

// AsValidationError returns the ValidationError wrapped in err, or nil.
func AsValidationError(err error) *ValidationError {
	if err == nil {
		return nil
	}

	var validationErr *ValidationError

	if errors.As(err, &validationErr) {
		return validationErr
	}

	return nil
}

func (e *ValidationError) Add(field, msg string) {
	e.fields[field] = append(e.fields[field], msg)
}

// Merge copies every message of other into e.
func (e *ValidationError) Merge(other *ValidationError) {
	if other == nil {
		return
	}

	for field, msgs := range other.fields {
		e.fields[field] = append(e.fields[field], msgs...)
	}
}

func (e *ValidationError) Len() int {
	return len(e.fields)
}

// Err returns e when it holds at least one message and nil otherwise.
func (e *ValidationError) Err() error {
	if e.Len() == 0 {
		return nil
	}

	return e
}

func (e *ValidationError) Fields() map[string][]string {
	return e.fields
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.fields))
	for k := range e.fields {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.fields[k], ", ")))
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

// ConflictError reports that a room is already held for an overlapping
// interval by the listed bookings.
type ConflictError struct {
	RoomID     uint64
	BookingIDs []uint64
}

func AsConflictError(err error) *ConflictError {
	if err == nil {
		return nil
	}

	var conflictErr *ConflictError

	if errors.As(err, &conflictErr) {
		return conflictErr
	}

	return nil
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("room %d is unavailable, conflicting bookings %v", e.RoomID, e.BookingIDs)
}

// TransitionError is returned when a status change is not in the
// transition table.  It unwraps to ErrInvalidTransition.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move booking from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
