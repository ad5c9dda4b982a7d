package contracts

import "valet/internal/domain/booking"

// BookingEvent is the payload of every lifecycle event on a channel.
// OTP is only ever set on car-arrived, which goes to the customer channel alone.
type BookingEvent struct {
	Booking          BookingView `json:"booking"`
	EstimatedMinutes *int        `json:"estimated_minutes,omitempty"`
	OTP              string      `json:"otp,omitempty"`
	Reason           string      `json:"reason,omitempty"`
	Message          string      `json:"message,omitempty"`
}

// NewBookingEvent wraps a booking for publication.
func NewBookingEvent(b *booking.Booking, message string) BookingEvent {
	return BookingEvent{Booking: NewBookingView(b), Message: message}
}
