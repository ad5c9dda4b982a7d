package booking

import (
	"slices"
	"strings"
	"time"

	"valet/internal/domain/user"
)

// Customer is the contact the vehicle belongs to. Phone is the identity key.
type Customer struct {
	Phone string
	Name  string
	Email string
}

// Parking holds the drop-off timeline.
type Parking struct {
	StartTime                time.Time
	EstimatedDurationMinutes int
	ActualEndTime            *time.Time
}

// Recall is filled in as the vehicle is brought back.
type Recall struct {
	RequestedAt             *time.Time
	EstimatedArrivalMinutes *int
	ArrivedAt               *time.Time
}

// Verification gates completion with a one-time code.
type Verification struct {
	OTP       string
	OTPExpiry *time.Time
	Verified  bool
}

// Location is where the vehicle was parked.
type Location struct {
	ParkingSpot string
	Venue       string
}

// Cancellation is set once the booking is cancelled.
type Cancellation struct {
	Reason      string
	CancelledAt time.Time
}

// Booking is the domain entity corresponding to the `bookings` table.
type Booking struct {
	// Identity & audit
	ID          string
	AccessToken string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Actors
	DriverID string
	Customer Customer

	Vehicle  Vehicle
	Parking  Parking
	Location Location
	Notes    string

	// Workflow
	Status       Status
	Recall       Recall
	Verification Verification
	Cancellation *Cancellation

	Payment       Payment
	PaymentStatus PaymentStatus
}

// Draft is the validated input for a new booking.
type Draft struct {
	DriverID                 string
	Customer                 Customer
	Vehicle                  Vehicle
	EstimatedDurationMinutes int
	Location                 Location
	Notes                    string
}

// New builds a parked booking from a draft. ID and AccessToken are assigned by the repository.
func New(d Draft, now time.Time) (*Booking, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	now = now.UTC()
	vehicle := d.Vehicle
	vehicle.Number = strings.ToUpper(strings.TrimSpace(vehicle.Number))
	vehicle.ImageRefs = slices.Clone(vehicle.ImageRefs)
	vehicle.Valuables = slices.Clone(vehicle.Valuables)
	if len(vehicle.Valuables) > 0 {
		vehicle.HasValuables = true
	}

	return &Booking{
		CreatedAt: now,
		UpdatedAt: now,
		DriverID:  strings.TrimSpace(d.DriverID),
		Customer: Customer{
			Phone: strings.TrimSpace(d.Customer.Phone),
			Name:  strings.TrimSpace(d.Customer.Name),
			Email: strings.TrimSpace(d.Customer.Email),
		},
		Vehicle: vehicle,
		Parking: Parking{
			StartTime:                now,
			EstimatedDurationMinutes: d.EstimatedDurationMinutes,
		},
		Location: Location{
			ParkingSpot: strings.TrimSpace(d.Location.ParkingSpot),
			Venue:       strings.TrimSpace(d.Location.Venue),
		},
		Notes:  strings.TrimSpace(d.Notes),
		Status: StatusParked,
		Payment: Payment{
			Method: PaymentPending,
			Status: PaymentStatePending,
		},
		PaymentStatus: Unpaid,
	}, nil
}

// Validate checks the draft fields the engine relies on.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.DriverID) == "" {
		return InvalidArgument("driver id is required")
	}
	if !validPhone(d.Customer.Phone) {
		return InvalidArgument("invalid customer phone")
	}
	if strings.TrimSpace(d.Customer.Name) == "" {
		return InvalidArgument("customer name is required")
	}
	if email := strings.TrimSpace(d.Customer.Email); email != "" && !user.ValidEmail(email) {
		return InvalidArgument("invalid customer email")
	}
	if !d.Vehicle.Type.Valid() {
		return InvalidArgument("invalid vehicle type %q", d.Vehicle.Type)
	}
	if strings.TrimSpace(d.Vehicle.Number) == "" {
		return InvalidArgument("vehicle number is required")
	}
	if d.EstimatedDurationMinutes < 1 {
		return InvalidArgument("estimated duration must be at least 1 minute")
	}
	for _, ref := range d.Vehicle.ImageRefs {
		if strings.TrimSpace(ref) == "" {
			return InvalidArgument("image references must not be empty")
		}
	}
	return nil
}

// OwnedBy reports whether driverID owns the booking.
func (b *Booking) OwnedBy(driverID string) bool {
	return driverID != "" && b.DriverID == driverID
}

// BelongsTo reports whether phone is the booking's customer.
func (b *Booking) BelongsTo(phone string) bool {
	return phone != "" && b.Customer.Phone == phone
}

// RequestRecall moves parked -> recall-requested.
func (b *Booking) RequestRecall(now time.Time) error {
	if !b.Status.CanTransitionTo(StatusRecallRequested) {
		return InvalidTransition(b.Status, StatusRecallRequested)
	}
	t := now.UTC()
	b.Recall.RequestedAt = &t
	b.setStatus(StatusRecallRequested, now)
	return nil
}

// SetEstimatedArrival moves recall-requested -> in-transit, or revises the ETA while in-transit.
func (b *Booking) SetEstimatedArrival(minutes int, now time.Time) error {
	if minutes < 1 {
		return InvalidArgument("estimated minutes must be at least 1")
	}
	if !b.Status.CanTransitionTo(StatusInTransit) {
		return InvalidTransition(b.Status, StatusInTransit)
	}
	m := minutes
	b.Recall.EstimatedArrivalMinutes = &m
	b.setStatus(StatusInTransit, now)
	return nil
}

// MarkArrived moves in-transit -> arrived and arms the one-time code.
func (b *Booking) MarkArrived(otp string, now time.Time) error {
	if !b.Status.CanTransitionTo(StatusArrived) {
		return InvalidTransition(b.Status, StatusArrived)
	}
	if !ValidOTPFormat(otp) {
		return InvalidArgument("otp must be %d digits", OTPLength)
	}
	t := now.UTC()
	expiry := t.Add(OTPTTL)
	b.Recall.ArrivedAt = &t
	b.Verification = Verification{OTP: otp, OTPExpiry: &expiry}
	b.setStatus(StatusArrived, now)
	return nil
}

// Complete checks the submitted code and closes the booking with the payment.
// Checks run in order: status, exact code match, expiry (inclusive).
func (b *Booking) Complete(otp string, method PaymentMethod, amount float64, now time.Time) error {
	if !b.Status.CanTransitionTo(StatusCompleted) {
		return InvalidTransition(b.Status, StatusCompleted)
	}
	if b.Verification.OTP == "" || otp != b.Verification.OTP {
		return ErrInvalidOTP
	}
	if b.Verification.OTPExpiry == nil || now.After(*b.Verification.OTPExpiry) {
		return ErrOTPExpired
	}

	t := now.UTC()
	amt := amount
	b.Verification = Verification{Verified: true}
	b.Payment = Payment{
		Method: method,
		Amount: &amt,
		Status: PaymentStateCompleted,
		PaidAt: &t,
	}
	b.PaymentStatus = Paid
	b.Parking.ActualEndTime = &t
	b.setStatus(StatusCompleted, now)
	return nil
}

// ApplyPayment merges a payment update. Allowed in any non-terminal state.
func (b *Booking) ApplyPayment(u PaymentUpdate, now time.Time) error {
	if b.Status.Terminal() {
		return &Error{
			Code:    CodeInvalidTransition,
			Message: "payment cannot change once booking is " + b.Status.String(),
			From:    b.Status,
			To:      b.Status,
		}
	}
	if u.Method != nil {
		b.Payment.Method = *u.Method
	}
	if u.Amount != nil {
		amt := *u.Amount
		b.Payment.Amount = &amt
	}
	if u.State != nil {
		b.Payment.Status = *u.State
	}
	if u.PaidAt != nil {
		t := u.PaidAt.UTC()
		b.Payment.PaidAt = &t
	}
	if u.PaymentStatus != nil {
		b.PaymentStatus = *u.PaymentStatus
	}
	b.touch(now)
	return nil
}

// Cancel moves any non-terminal booking to cancelled and disarms the code.
func (b *Booking) Cancel(reason string, now time.Time) error {
	if !b.Status.CanTransitionTo(StatusCancelled) {
		return InvalidTransition(b.Status, StatusCancelled)
	}
	b.Cancellation = &Cancellation{Reason: strings.TrimSpace(reason), CancelledAt: now.UTC()}
	b.Verification.OTP = ""
	b.Verification.OTPExpiry = nil
	b.setStatus(StatusCancelled, now)
	return nil
}

// Clone returns a deep copy, so stores never hand out shared records.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	out := *b
	out.Vehicle.ImageRefs = slices.Clone(b.Vehicle.ImageRefs)
	out.Vehicle.Valuables = slices.Clone(b.Vehicle.Valuables)
	out.Parking.ActualEndTime = cloneTime(b.Parking.ActualEndTime)
	out.Recall.RequestedAt = cloneTime(b.Recall.RequestedAt)
	out.Recall.ArrivedAt = cloneTime(b.Recall.ArrivedAt)
	if b.Recall.EstimatedArrivalMinutes != nil {
		m := *b.Recall.EstimatedArrivalMinutes
		out.Recall.EstimatedArrivalMinutes = &m
	}
	out.Verification.OTPExpiry = cloneTime(b.Verification.OTPExpiry)
	if b.Payment.Amount != nil {
		a := *b.Payment.Amount
		out.Payment.Amount = &a
	}
	out.Payment.PaidAt = cloneTime(b.Payment.PaidAt)
	if b.Cancellation != nil {
		c := *b.Cancellation
		out.Cancellation = &c
	}
	return &out
}

// Touch refreshes UpdatedAt. Repositories call it on every persisted mutation.
func (b *Booking) Touch(now time.Time) {
	b.touch(now)
}

// ----- internal helpers -----

func (b *Booking) setStatus(status Status, now time.Time) {
	b.Status = status
	b.touch(now)
}

func (b *Booking) touch(now time.Time) {
	b.UpdatedAt = now.UTC()
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// validPhone accepts an optional leading '+' followed by 7..15 digits.
func validPhone(p string) bool {
	p = strings.TrimSpace(p)
	p = strings.TrimPrefix(p, "+")
	if len(p) < 7 || len(p) > 15 {
		return false
	}
	for i := 0; i < len(p); i++ {
		if p[i] < '0' || p[i] > '9' {
			return false
		}
	}
	return true
}
