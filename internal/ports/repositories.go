package ports

import (
	"context"
	"time"

	"valet/internal/domain/booking"
	"valet/internal/domain/user"
)

// UnitOfWork interface is used to manage transactions across multiple repository operations.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// BookingFilter narrows List. Zero values mean "no constraint".
type BookingFilter struct {
	DriverIDs       []string
	Statuses        []booking.Status
	ExcludeStatuses []booking.Status
	CustomerPhone   string
	CreatedFrom     *time.Time // inclusive
	CreatedTo       *time.Time // exclusive
	Limit           int
}

// BookingRepository is the durable store of bookings.
type BookingRepository interface {
	// Create assigns a fresh id and access token and stores the booking.
	// Collisions are retried up to booking.MaxKeyAttempts, then booking.ErrConflict.
	Create(ctx context.Context, b *booking.Booking) (*booking.Booking, error)
	GetByID(ctx context.Context, id string) (*booking.Booking, error)
	GetByToken(ctx context.Context, token string) (*booking.Booking, error)
	// Mutate runs fn on the current record under per-booking mutual exclusion.
	// If fn returns an error nothing is persisted and the error is returned as-is.
	Mutate(ctx context.Context, id string, fn func(b *booking.Booking) error) (*booking.Booking, error)
	// List returns bookings newest first.
	List(ctx context.Context, f BookingFilter) ([]*booking.Booking, error)
	// CountByStatus and SumRevenue aggregate over the filter without loading rows; Limit is ignored.
	CountByStatus(ctx context.Context, f BookingFilter) (map[booking.Status]int, error)
	SumRevenue(ctx context.Context, f BookingFilter) (float64, error)
}

// BookingEventRepository defines the methods for managing the booking journal.
type BookingEventRepository interface {
	Append(ctx context.Context, e *booking.Event) error
	ListByBooking(ctx context.Context, bookingID string) ([]*booking.Event, error)
}

// CustomerDirectory provisions customer identities keyed by phone.
type CustomerDirectory interface {
	FindOrCreate(ctx context.Context, phone, name, email string) (*user.Customer, error)
}
