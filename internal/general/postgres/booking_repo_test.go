package postgres

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valet/internal/domain/booking"
	"valet/internal/ports"
)

// argsRow feeds the values bookingArgs produced back into Scan, the way the
// database would return them.
type argsRow []any

func (r argsRow) Scan(dest ...any) error {
	if len(dest) != len(r) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(r))
	}
	for i, d := range dest {
		dv := reflect.ValueOf(d).Elem()
		sv := reflect.ValueOf(r[i])
		if !sv.IsValid() {
			dv.SetZero()
			continue
		}
		if !sv.Type().AssignableTo(dv.Type()) {
			return fmt.Errorf("scan: column %d: %s into %s", i, sv.Type(), dv.Type())
		}
		dv.Set(sv)
	}
	return nil
}

func sampleBooking(t *testing.T) *booking.Booking {
	t.Helper()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	b, err := booking.New(booking.Draft{
		DriverID:                 "D1",
		Customer:                 booking.Customer{Phone: "9000000001", Name: "Asha", Email: "asha@example.com"},
		Vehicle:                  booking.Vehicle{Type: booking.VehicleSUV, Number: "ka01ab1234", ImageRefs: []string{"/uploads/car-1.jpg"}, Valuables: []string{"laptop"}},
		EstimatedDurationMinutes: 90,
		Location:                 booking.Location{Venue: "Grand Hall", ParkingSpot: "B2"},
	}, now)
	require.NoError(t, err)
	b.ID, b.AccessToken = "VLT123456780001", strings.Repeat("ab", 32)
	return b
}

func TestBookingColumnsMatchArgs(t *testing.T) {
	cols := strings.Split(bookingColumns, ",")
	assert.Len(t, bookingArgs(sampleBooking(t)), len(cols))
}

func TestScanBookingReadsWhatArgsWrite(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)

	parked := sampleBooking(t)
	got, err := scanBooking(argsRow(bookingArgs(parked)))
	require.NoError(t, err)
	assert.Equal(t, parked, got)

	arrived := sampleBooking(t)
	require.NoError(t, arrived.RequestRecall(now))
	require.NoError(t, arrived.SetEstimatedArrival(15, now))
	require.NoError(t, arrived.MarkArrived("000042", now))
	got, err = scanBooking(argsRow(bookingArgs(arrived)))
	require.NoError(t, err)
	assert.Equal(t, arrived, got)
	assert.Equal(t, "000042", got.Verification.OTP)

	cancelled := sampleBooking(t)
	require.NoError(t, cancelled.Cancel("customer left", now))
	got, err = scanBooking(argsRow(bookingArgs(cancelled)))
	require.NoError(t, err)
	require.NotNil(t, got.Cancellation)
	assert.Equal(t, "customer left", got.Cancellation.Reason)
	assert.Empty(t, got.Verification.OTP)
}

func TestIsUniqueViolation(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "bookings_access_token_key"})
	assert.True(t, isUniqueViolation(dup))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23514"}))
	assert.False(t, isUniqueViolation(booking.ErrConflict))
}

func TestReposRequireTransaction(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepo(nil)

	_, err := repo.GetByID(ctx, "VLT1")
	assert.ErrorIs(t, err, ErrNoTx)
	_, err = repo.List(ctx, ports.BookingFilter{})
	assert.ErrorIs(t, err, ErrNoTx)
	_, err = repo.CountByStatus(ctx, ports.BookingFilter{})
	assert.ErrorIs(t, err, ErrNoTx)
	_, err = repo.SumRevenue(ctx, ports.BookingFilter{})
	assert.ErrorIs(t, err, ErrNoTx)
	_, err = NewCustomerRepo().FindOrCreate(ctx, "9000000001", "", "")
	assert.ErrorIs(t, err, ErrNoTx)

	_, err = repo.GetByToken(ctx, "")
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestFilterClause(t *testing.T) {
	where, args := filterClause(ports.BookingFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	where, args = filterClause(ports.BookingFilter{
		Statuses:    []booking.Status{booking.StatusCompleted},
		CreatedFrom: &from,
		CreatedTo:   &to,
		Limit:       10,
	})
	assert.Equal(t, " WHERE status = ANY($1) AND created_at >= $2 AND created_at < $3", where)
	assert.Equal(t, []any{[]string{"completed"}, from, to}, args)
}
