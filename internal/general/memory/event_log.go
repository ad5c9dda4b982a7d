package memory

import (
	"context"
	"maps"
	"sync"

	"valet/internal/domain/booking"
	"valet/internal/ports"
)

// EventLog is the in-process booking journal.
type EventLog struct {
	mu     sync.Mutex
	nextID int64
	events map[string][]*booking.Event
}

func NewEventLog() *EventLog {
	return &EventLog{events: make(map[string][]*booking.Event)}
}

var _ ports.BookingEventRepository = (*EventLog)(nil)

func (l *EventLog) Append(ctx context.Context, e *booking.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	e.ID = l.nextID
	stored := *e
	stored.Data = maps.Clone(e.Data)
	l.events[e.BookingID] = append(l.events[e.BookingID], &stored)
	return nil
}

func (l *EventLog) ListByBooking(ctx context.Context, bookingID string) ([]*booking.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	src := l.events[bookingID]
	out := make([]*booking.Event, 0, len(src))
	for _, e := range src {
		c := *e
		c.Data = maps.Clone(e.Data)
		out = append(out, &c)
	}
	return out, nil
}
