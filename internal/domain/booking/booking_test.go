package booking

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func sampleDraft() Draft {
	return Draft{
		DriverID:                 " D1 ",
		Customer:                 Customer{Phone: "+919000000001", Name: " Asha ", Email: "asha@example.com"},
		Vehicle:                  Vehicle{Type: VehicleSUV, Number: " ka01ab1234 ", Valuables: []string{"laptop"}},
		EstimatedDurationMinutes: 30,
		Location:                 Location{Venue: " Grand Hall "},
	}
}

func TestStatusGraph(t *testing.T) {
	edges := map[Status][]Status{
		StatusParked:          {StatusRecallRequested, StatusCancelled},
		StatusRecallRequested: {StatusInTransit, StatusCancelled},
		StatusInTransit:       {StatusInTransit, StatusArrived, StatusCancelled},
		StatusArrived:         {StatusCompleted, StatusCancelled},
		StatusCompleted:       nil,
		StatusCancelled:       nil,
	}
	all := []Status{StatusParked, StatusRecallRequested, StatusInTransit, StatusArrived, StatusCompleted, StatusCancelled}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, e := range edges[from] {
				want = want || e == to
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.False(t, Status("lost").CanTransitionTo(StatusParked))
	assert.ElementsMatch(t, []Status{StatusParked, StatusRecallRequested, StatusInTransit, StatusArrived}, ActiveStatuses())
}

func TestMutatorsFollowStatusGraph(t *testing.T) {
	mutators := map[Status]func(b *Booking) error{
		StatusRecallRequested: func(b *Booking) error { return b.RequestRecall(t0) },
		StatusInTransit:       func(b *Booking) error { return b.SetEstimatedArrival(5, t0) },
		StatusArrived:         func(b *Booking) error { return b.MarkArrived("000042", t0) },
		StatusCompleted:       func(b *Booking) error { return b.Complete("000042", PaymentCash, 10, t0) },
		StatusCancelled:       func(b *Booking) error { return b.Cancel("", t0) },
	}
	all := []Status{StatusParked, StatusRecallRequested, StatusInTransit, StatusArrived, StatusCompleted, StatusCancelled}

	for _, from := range all {
		for to, mutate := range mutators {
			b, err := New(sampleDraft(), t0)
			require.NoError(t, err)
			b.Status = from
			expiry := t0.Add(OTPTTL)
			b.Verification = Verification{OTP: "000042", OTPExpiry: &expiry}

			err = mutate(b)
			if from.CanTransitionTo(to) {
				assert.NoError(t, err, "%s -> %s", from, to)
				assert.Equal(t, to, b.Status)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", from, to)
				assert.Equal(t, from, b.Status)
			}
		}
	}
}

func TestParse(t *testing.T) {
	s, err := ParseStatus(" In-Transit ")
	require.NoError(t, err)
	assert.Equal(t, StatusInTransit, s)
	_, err = ParseStatus("in_transit")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	vt, err := ParseVehicleType("SUV")
	require.NoError(t, err)
	assert.Equal(t, VehicleSUV, vt)
	_, err = ParseVehicleType("truck")
	assert.ErrorIs(t, err, ErrInvalidVehicleType)

	m, ok := ParsePaymentMethod(" UPI ")
	assert.True(t, ok)
	assert.True(t, m.Settles())
	m, ok = ParsePaymentMethod("pending")
	assert.True(t, ok)
	assert.False(t, m.Settles())
	_, ok = ParsePaymentMethod("cheque")
	assert.False(t, ok)
}

func TestNewNormalizes(t *testing.T) {
	b, err := New(sampleDraft(), t0.In(time.FixedZone("IST", 19800)))
	require.NoError(t, err)

	assert.Equal(t, "D1", b.DriverID)
	assert.Equal(t, "Asha", b.Customer.Name)
	assert.Equal(t, "KA01AB1234", b.Vehicle.Number)
	assert.True(t, b.Vehicle.HasValuables)
	assert.Equal(t, "Grand Hall", b.Location.Venue)
	assert.Equal(t, StatusParked, b.Status)
	assert.Equal(t, PaymentPending, b.Payment.Method)
	assert.Equal(t, PaymentStatePending, b.Payment.Status)
	assert.Equal(t, Unpaid, b.PaymentStatus)
	assert.Equal(t, time.UTC, b.CreatedAt.Location())
	assert.True(t, b.CreatedAt.Equal(t0))
	assert.Empty(t, b.ID)
	assert.Empty(t, b.AccessToken)
}

func TestDraftValidation(t *testing.T) {
	cases := map[string]func(d *Draft){
		"no driver":      func(d *Draft) { d.DriverID = "" },
		"short phone":    func(d *Draft) { d.Customer.Phone = "12345" },
		"letters phone":  func(d *Draft) { d.Customer.Phone = "90000abc01" },
		"no name":        func(d *Draft) { d.Customer.Name = "  " },
		"bad email":      func(d *Draft) { d.Customer.Email = "asha.example.com" },
		"no domain":      func(d *Draft) { d.Customer.Email = "asha@" },
		"no local part":  func(d *Draft) { d.Customer.Email = "@example.com" },
		"spaced email":   func(d *Draft) { d.Customer.Email = "asha smith@example.com" },
		"double at":      func(d *Draft) { d.Customer.Email = "asha@@example.com" },
		"display name":   func(d *Draft) { d.Customer.Email = "Asha <asha@example.com>" },
		"bad type":       func(d *Draft) { d.Vehicle.Type = "truck" },
		"no number":      func(d *Draft) { d.Vehicle.Number = " " },
		"zero duration":  func(d *Draft) { d.EstimatedDurationMinutes = 0 },
		"empty imageref": func(d *Draft) { d.Vehicle.ImageRefs = []string{"/uploads/a.png", " "} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			d := sampleDraft()
			mutate(&d)
			_, err := New(d, t0)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func arrivedBooking(t *testing.T) *Booking {
	t.Helper()
	b, err := New(sampleDraft(), t0)
	require.NoError(t, err)
	require.NoError(t, b.RequestRecall(t0.Add(time.Minute)))
	require.NoError(t, b.SetEstimatedArrival(15, t0.Add(2*time.Minute)))
	require.NoError(t, b.MarkArrived("000042", t0.Add(10*time.Minute)))
	return b
}

func TestHappyPathMutators(t *testing.T) {
	b := arrivedBooking(t)
	arrivedAt := t0.Add(10 * time.Minute)

	assert.Equal(t, StatusArrived, b.Status)
	assert.Equal(t, 15, *b.Recall.EstimatedArrivalMinutes)
	assert.Equal(t, arrivedAt, *b.Recall.ArrivedAt)
	assert.Equal(t, "000042", b.Verification.OTP)
	assert.Equal(t, arrivedAt.Add(OTPTTL), *b.Verification.OTPExpiry)

	done := arrivedAt.Add(OTPTTL)
	require.NoError(t, b.Complete("000042", PaymentCash, 150, done))
	assert.Equal(t, StatusCompleted, b.Status)
	assert.True(t, b.Verification.Verified)
	assert.Empty(t, b.Verification.OTP)
	assert.Nil(t, b.Verification.OTPExpiry)
	assert.Equal(t, Payment{Method: PaymentCash, Amount: ptr(150.0), Status: PaymentStateCompleted, PaidAt: &done}, b.Payment)
	assert.Equal(t, Paid, b.PaymentStatus)
	assert.Equal(t, done, *b.Parking.ActualEndTime)
	assert.Equal(t, done, b.UpdatedAt)
}

func TestCompleteCheckOrder(t *testing.T) {
	b := arrivedBooking(t)
	expiry := *b.Verification.OTPExpiry

	// a wrong code is reported as such even after expiry
	assert.ErrorIs(t, b.Complete("000041", PaymentCash, 1, expiry.Add(time.Hour)), ErrInvalidOTP)
	assert.ErrorIs(t, b.Complete("000042", PaymentCash, 1, expiry.Add(time.Nanosecond)), ErrOTPExpired)
	assert.Equal(t, StatusArrived, b.Status)

	parked, err := New(sampleDraft(), t0)
	require.NoError(t, err)
	err = parked.Complete("000042", PaymentCash, 1, t0)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, CodeInvalidTransition, derr.Code)
	assert.Equal(t, StatusParked, derr.From)
	assert.Equal(t, StatusCompleted, derr.To)
}

func TestRejectedMutationsLeaveBookingUntouched(t *testing.T) {
	b, err := New(sampleDraft(), t0)
	require.NoError(t, err)
	before := b.Clone()

	assert.ErrorIs(t, b.SetEstimatedArrival(5, t0), ErrInvalidTransition)
	assert.ErrorIs(t, b.MarkArrived("000042", t0), ErrInvalidTransition)
	assert.ErrorIs(t, b.SetEstimatedArrival(0, t0), ErrInvalidArgument)
	assert.Equal(t, before, b)

	require.NoError(t, b.RequestRecall(t0))
	require.NoError(t, b.SetEstimatedArrival(5, t0))
	before = b.Clone()
	assert.ErrorIs(t, b.MarkArrived("42", t0), ErrInvalidArgument)
	assert.ErrorIs(t, b.RequestRecall(t0), ErrInvalidTransition)
	assert.Equal(t, before, b)
}

func TestCancelDisarmsCode(t *testing.T) {
	b := arrivedBooking(t)
	at := t0.Add(11 * time.Minute)

	require.NoError(t, b.Cancel("  customer left  ", at))
	assert.Equal(t, StatusCancelled, b.Status)
	assert.Equal(t, &Cancellation{Reason: "customer left", CancelledAt: at}, b.Cancellation)
	assert.Empty(t, b.Verification.OTP)
	assert.Nil(t, b.Verification.OTPExpiry)

	assert.ErrorIs(t, b.Cancel("again", at), ErrInvalidTransition)
	assert.ErrorIs(t, b.ApplyPayment(PaymentUpdate{Amount: ptr(1.0)}, at), ErrInvalidTransition)
}

func TestApplyPaymentMerges(t *testing.T) {
	b, err := New(sampleDraft(), t0)
	require.NoError(t, err)
	qr := PaymentQR
	paid := Paid

	require.NoError(t, b.ApplyPayment(PaymentUpdate{Method: &qr, PaymentStatus: &paid}, t0.Add(time.Minute)))
	assert.Equal(t, PaymentQR, b.Payment.Method)
	assert.Nil(t, b.Payment.Amount)
	assert.Equal(t, Paid, b.PaymentStatus)
	assert.Equal(t, StatusParked, b.Status)
	assert.Equal(t, t0.Add(time.Minute), b.UpdatedAt)
	assert.True(t, PaymentUpdate{}.Empty())
}

func TestCloneIsDeep(t *testing.T) {
	b := arrivedBooking(t)
	b.Vehicle.ImageRefs = []string{"/uploads/a.png"}
	c := b.Clone()

	c.Vehicle.ImageRefs[0] = "changed"
	c.Vehicle.Valuables[0] = "changed"
	*c.Recall.EstimatedArrivalMinutes = 99
	*c.Verification.OTPExpiry = time.Time{}

	assert.Equal(t, "/uploads/a.png", b.Vehicle.ImageRefs[0])
	assert.Equal(t, "laptop", b.Vehicle.Valuables[0])
	assert.Equal(t, 15, *b.Recall.EstimatedArrivalMinutes)
	assert.False(t, b.Verification.OTPExpiry.IsZero())
	assert.Nil(t, (*Booking)(nil).Clone())
}

func TestOTPFormatting(t *testing.T) {
	assert.Equal(t, "000042", FormatOTP(42))
	assert.Equal(t, "999999", FormatOTP(999999))
	assert.Equal(t, "000000", FormatOTP(1_000_000))

	for _, ok := range []string{"000000", "123456"} {
		assert.True(t, ValidOTPFormat(ok), ok)
	}
	for _, bad := range []string{"", "12345", "1234567", "12345a", "١٢٣٤٥٦"} {
		assert.False(t, ValidOTPFormat(bad), bad)
	}

	for range 200 {
		n, err := RandomOTP()
		require.NoError(t, err)
		require.True(t, n >= 0 && n < 1_000_000)
		require.True(t, ValidOTPFormat(FormatOTP(n)))
	}
}

func TestRandomKeys(t *testing.T) {
	keys := RandomKeys{Now: func() time.Time { return time.UnixMilli(1_761_234_567_890) }}
	idPattern := regexp.MustCompile(`^VLT\d{12}$`)

	seen := map[string]bool{}
	for range 1000 {
		id := keys.NewID()
		require.Regexp(t, idPattern, id)
		assert.Equal(t, "VLT34567890", id[:11])
		require.False(t, seen[id], id)
		seen[id] = true
	}

	tok := keys.NewToken()
	assert.Regexp(t, `^[0-9a-f]{64}$`, tok)
	assert.NotEqual(t, tok, keys.NewToken())
}

func TestErrorCodes(t *testing.T) {
	wrapped := fmt.Errorf("repo: %w", InvalidTransition(StatusParked, StatusArrived))
	assert.ErrorIs(t, wrapped, ErrInvalidTransition)
	assert.NotErrorIs(t, wrapped, ErrInvalidArgument)
	assert.Equal(t, CodeInvalidTransition, CodeOf(wrapped))

	infra := Unavailable(context.DeadlineExceeded)
	assert.ErrorIs(t, infra, ErrUnavailable)
	assert.ErrorIs(t, infra, context.DeadlineExceeded)

	assert.Equal(t, CodeUnavailable, CodeOf(errors.New("connection reset")))
	assert.Equal(t, Code(""), CodeOf(nil))
	assert.Nil(t, AsError(nil))
	assert.Equal(t, "INVALID_ARGUMENT: amount must be >= 0", InvalidArgument("amount must be >= %d", 0).Error())
}

func TestEventValidation(t *testing.T) {
	data := map[string]any{"status": "parked"}
	e, err := NewEvent(" VLT1 ", EventCreated, data, t0)
	require.NoError(t, err)
	assert.Equal(t, "VLT1", e.BookingID)
	data["status"] = "mutated"
	assert.Equal(t, "parked", e.Data["status"])

	raw, err := e.DataJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"parked"}`, string(raw))

	_, err = NewEvent("", EventCreated, data, t0)
	assert.ErrorIs(t, err, ErrBookingIDRequired)
	_, err = NewEvent("VLT1", "RIDE_STARTED", data, t0)
	assert.ErrorIs(t, err, ErrInvalidEventType)
	_, err = NewEvent("VLT1", EventCreated, nil, t0)
	assert.ErrorIs(t, err, ErrEventDataNil)
}

func ptr[T any](v T) *T { return &v }
