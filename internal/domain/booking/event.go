package booking

import (
	"encoding/json"
	"errors"
	"maps"
	"strings"
	"time"
)

// EventType is a journal entry type as stored in `booking_events.event_type`.
type EventType string

const (
	EventCreated         EventType = "BOOKING_CREATED"
	EventRecallRequested EventType = "RECALL_REQUESTED"
	EventETASet          EventType = "ETA_SET"
	EventCarArrived      EventType = "CAR_ARRIVED"
	EventCompleted       EventType = "BOOKING_COMPLETED"
	EventPaymentRecorded EventType = "PAYMENT_RECORDED"
	EventCancelled       EventType = "BOOKING_CANCELLED"
)

var (
	ErrInvalidEventType  = errors.New("invalid booking event type")
	ErrBookingIDRequired = errors.New("booking id is required")
	ErrEventDataNil      = errors.New("event data must not be nil")
)

func (t EventType) Valid() bool {
	switch t {
	case EventCreated, EventRecallRequested, EventETASet, EventCarArrived,
		EventCompleted, EventPaymentRecorded, EventCancelled:
		return true
	default:
		return false
	}
}

func (t EventType) String() string {
	return string(t)
}

// Event is the domain entity corresponding to the `booking_events` table.
type Event struct {
	ID        int64
	CreatedAt time.Time
	BookingID string
	Type      EventType
	Data      map[string]any
}

// NewEvent constructs a journal entry.
func NewEvent(bookingID string, eventType EventType, data map[string]any, now time.Time) (*Event, error) {
	if bookingID = strings.TrimSpace(bookingID); bookingID == "" {
		return nil, ErrBookingIDRequired
	}
	if !eventType.Valid() {
		return nil, ErrInvalidEventType
	}
	if data == nil {
		return nil, ErrEventDataNil
	}

	return &Event{
		BookingID: bookingID,
		Type:      eventType,
		Data:      maps.Clone(data),
		CreatedAt: now.UTC(),
	}, nil
}

// Validate mirrors the table constraints.
func (e *Event) Validate() error {
	if e.BookingID == "" {
		return ErrBookingIDRequired
	}
	if !e.Type.Valid() {
		return ErrInvalidEventType
	}
	if e.Data == nil {
		return ErrEventDataNil
	}
	return nil
}

// DataJSON returns Data encoded as JSON.
func (e *Event) DataJSON() ([]byte, error) {
	if e.Data == nil {
		return nil, ErrEventDataNil
	}
	return json.Marshal(e.Data)
}
