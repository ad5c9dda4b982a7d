package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"valet/internal/domain/booking"
	"valet/internal/ports"
)

// BookingEventRepo persists the booking journal using pgx and plain SQL.
type BookingEventRepo struct{}

// NewBookingEventRepo constructs a new BookingEventRepo.
func NewBookingEventRepo() ports.BookingEventRepository {
	return &BookingEventRepo{}
}

// Append inserts a new booking_events row.
func (repo *BookingEventRepo) Append(ctx context.Context, event *booking.Event) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	if err := event.Validate(); err != nil {
		return err
	}

	data, err := event.DataJSON()
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO booking_events (booking_id, event_type, event_data, created_at)
		VALUES ($1, $2, $3::jsonb, $4)
		RETURNING id
	`,
		event.BookingID,
		event.Type.String(),
		string(data),
		event.CreatedAt,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("insert booking event: %w", err)
	}
	return nil
}

// ListByBooking returns the journal of one booking, oldest first.
func (repo *BookingEventRepo) ListByBooking(ctx context.Context, bookingID string) ([]*booking.Event, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, booking_id, event_type, event_data, created_at
		FROM booking_events
		WHERE booking_id = $1
		ORDER BY id
	`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("query booking events: %w", err)
	}
	defer rows.Close()

	var out []*booking.Event
	for rows.Next() {
		var (
			e         booking.Event
			eventType string
			raw       []byte
		)
		if err := rows.Scan(&e.ID, &e.BookingID, &eventType, &raw, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan booking event: %w", err)
		}
		e.Type = booking.EventType(eventType)
		if err := json.Unmarshal(raw, &e.Data); err != nil {
			return nil, fmt.Errorf("decode booking event %d: %w", e.ID, err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}
