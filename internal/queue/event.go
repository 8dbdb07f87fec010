// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Queue names.  Both queues are durable.
const (
	RoomStateQueue     = "room.state"
	BookingStatusQueue = "booking.status"
)

// RoomStateChanged is emitted when a check-in or check-out changes the
// housekeeping state of a room.
type RoomStateChanged struct {
	RoomID    uint64 `json:"room_id"`
	BookingID uint64 `json:"booking_id"`
	State     string `json:"state"`
	Actor     string `json:"actor"`
	At        string `json:"at"`
}

// BookingStatusChanged is emitted for every persisted status change,
// including creation (From is empty).  Fee and Refund are set on
// cancellation only.
type BookingStatusChanged struct {
	BookingID   uint64 `json:"booking_id"`
	Reference   string `json:"reference"`
	RoomID      uint64 `json:"room_id"`
	From        string `json:"from,omitempty"`
	To          string `json:"to"`
	Actor       string `json:"actor"`
	Reason      string `json:"reason,omitempty"`
	TotalAmount int64  `json:"total_amount"`
	Fee         *int64 `json:"fee,omitempty"`
	Refund      *int64 `json:"refund,omitempty"`
	At          string `json:"at"`
}

// Envelope is an outbox row: a serialized event waiting to be relayed to
// its queue.
type Envelope struct {
	ID          uint64     `json:"id"`
	Queue       string     `json:"queue"`
	Payload     []byte     `json:"payload"`
	CreatedAt   time.Time  `json:"created_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// NewEnvelope marshals v for the given queue.
func NewEnvelope(queue string, v any, now time.Time) (Envelope, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s event: %w", queue, err)
	}
	return Envelope{Queue: queue, Payload: body, CreatedAt: now}, nil
}
