package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valet/internal/domain/booking"
	"valet/internal/domain/user"
)

func TestCustomerDirectoryFindOrCreate(t *testing.T) {
	d := NewCustomerDirectory()
	ctx := context.Background()

	first, err := d.FindOrCreate(ctx, " 9000000001 ", "Asha", "")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	assert.Equal(t, "9000000001", first.Phone)

	again, err := d.FindOrCreate(ctx, "9000000001", "Someone Else", "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Asha", again.Name)
	assert.Equal(t, "asha@example.com", again.Email)

	_, err = d.FindOrCreate(ctx, "", "x", "")
	assert.ErrorIs(t, err, user.ErrPhoneRequired)
}

func TestEventLogAppend(t *testing.T) {
	l := NewEventLog()
	ctx := context.Background()

	e, err := booking.NewEvent("VLT1", booking.EventCreated, map[string]any{"driver_id": "D1"}, time.Now())
	require.NoError(t, err)
	require.NoError(t, l.Append(ctx, e))
	assert.Equal(t, int64(1), e.ID)

	require.Error(t, l.Append(ctx, &booking.Event{BookingID: "VLT1", Type: "NOPE", Data: map[string]any{}}))

	got, err := l.ListByBooking(ctx, "VLT1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, booking.EventCreated, got[0].Type)
	assert.Equal(t, "D1", got[0].Data["driver_id"])
}
