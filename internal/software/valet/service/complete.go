package service

import (
	"context"
	"math"
	"time"

	"valet/internal/domain/booking"
	"valet/internal/domain/user"
	"valet/internal/general/contracts"
	"valet/internal/ports"
)

// VerifyAndComplete closes the booking once the customer's code checks out.
func (s *bookingService) VerifyAndComplete(ctx context.Context, actor user.Actor, id string, in ports.CompleteInput) (*booking.Booking, error) {
	if err := validateCompletion(in); err != nil {
		return nil, s.fail(ctx, "booking_complete", err)
	}

	b, err := s.transition(ctx, id, step{
		op:    "booking_complete",
		event: booking.EventCompleted,
		allow: owningDriver(actor),
		apply: func(b *booking.Booking, now time.Time) error {
			return b.Complete(in.OTP, in.Method, in.Amount, now)
		},
		data: func(*booking.Booking) map[string]any {
			return map[string]any{"payment_method": string(in.Method), "amount": in.Amount}
		},
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logger.WithBookingID(ctx, b.ID)
	s.dispatch.Publish(ctx, contracts.CustomerChannel(b.Customer.Phone), contracts.EventBookingCompleted,
		contracts.NewBookingEvent(b, "Thank you for using our valet service"))
	s.publishUpdate(ctx, b)
	return b, nil
}

func validateCompletion(in ports.CompleteInput) error {
	if !booking.ValidOTPFormat(in.OTP) {
		return booking.InvalidArgument("otp must be exactly %d digits", booking.OTPLength)
	}
	if !in.Method.Settles() {
		return booking.InvalidArgument("payment method must be one of cash, qr, upi, card")
	}
	if in.Amount < 0 || math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) {
		return booking.InvalidArgument("amount must be a non-negative number")
	}
	return nil
}

// RecordPayment merges a payment update without touching the workflow status.
func (s *bookingService) RecordPayment(ctx context.Context, actor user.Actor, id string, u booking.PaymentUpdate) (*booking.Booking, error) {
	if err := validatePayment(u); err != nil {
		return nil, s.fail(ctx, "payment_record", err)
	}

	b, err := s.transition(ctx, id, step{
		op:    "payment_record",
		event: booking.EventPaymentRecorded,
		allow: owningDriver(actor),
		apply: func(b *booking.Booking, now time.Time) error {
			return b.ApplyPayment(u, now)
		},
		data: func(b *booking.Booking) map[string]any {
			return map[string]any{
				"payment_method": string(b.Payment.Method),
				"payment_state":  string(b.Payment.Status),
				"payment_status": string(b.PaymentStatus),
				"amount":         b.Payment.Amount,
			}
		},
	})
	if err != nil {
		return nil, err
	}

	s.publishUpdate(s.logger.WithBookingID(ctx, b.ID), b)
	return b, nil
}

func validatePayment(u booking.PaymentUpdate) error {
	if u.Empty() {
		return booking.InvalidArgument("payment update carries no fields")
	}
	if u.Method != nil && !u.Method.Valid() {
		return booking.InvalidArgument("invalid payment method %q", *u.Method)
	}
	if u.Amount != nil && (*u.Amount < 0 || math.IsNaN(*u.Amount) || math.IsInf(*u.Amount, 0)) {
		return booking.InvalidArgument("amount must be a non-negative number")
	}
	if u.State != nil && !u.State.Valid() {
		return booking.InvalidArgument("invalid payment state %q", *u.State)
	}
	if u.PaymentStatus != nil && !u.PaymentStatus.Valid() {
		return booking.InvalidArgument("invalid payment status %q", *u.PaymentStatus)
	}
	return nil
}
