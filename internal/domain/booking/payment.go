package booking

import (
	"strings"
	"time"
)

// PaymentMethod is how the customer paid (or will pay).
type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "cash"
	PaymentQR      PaymentMethod = "qr"
	PaymentUPI     PaymentMethod = "upi"
	PaymentCard    PaymentMethod = "card"
	PaymentPending PaymentMethod = "pending"
)

// ParsePaymentMethod normalizes and validates a payment method.
func ParsePaymentMethod(in string) (PaymentMethod, bool) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(in)))
	return m, m.Valid()
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentQR, PaymentUPI, PaymentCard, PaymentPending:
		return true
	default:
		return false
	}
}

// Settles reports whether the method can close a booking at handover.
func (m PaymentMethod) Settles() bool {
	return m.Valid() && m != PaymentPending
}

// PaymentState is the state of the payment record itself.
type PaymentState string

const (
	PaymentStatePending   PaymentState = "pending"
	PaymentStateCompleted PaymentState = "completed"
	PaymentStateFailed    PaymentState = "failed"
)

func (s PaymentState) Valid() bool {
	switch s {
	case PaymentStatePending, PaymentStateCompleted, PaymentStateFailed:
		return true
	default:
		return false
	}
}

// PaymentStatus is the booking-level paid flag, independent of Status.
type PaymentStatus string

const (
	Unpaid PaymentStatus = "unpaid"
	Paid   PaymentStatus = "paid"
)

func (s PaymentStatus) Valid() bool {
	return s == Unpaid || s == Paid
}

// Payment is the payment record of a booking.
type Payment struct {
	Method PaymentMethod
	Amount *float64
	Status PaymentState
	PaidAt *time.Time
}

// PaymentUpdate carries the fields RecordPayment merges; nil fields are left as-is.
type PaymentUpdate struct {
	Method        *PaymentMethod
	Amount        *float64
	State         *PaymentState
	PaidAt        *time.Time
	PaymentStatus *PaymentStatus
}

// Empty reports whether the update carries nothing to merge.
func (u PaymentUpdate) Empty() bool {
	return u.Method == nil && u.Amount == nil && u.State == nil && u.PaidAt == nil && u.PaymentStatus == nil
}
