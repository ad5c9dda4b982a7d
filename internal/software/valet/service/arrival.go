package service

import (
	"context"
	"time"

	"valet/internal/domain/booking"
	"valet/internal/domain/user"
	"valet/internal/general/contracts"
	"valet/internal/ports"
)

// MarkArrived hands the vehicle over to the pickup point and arms a fresh
// one-time code. Only an in-transit booking can arrive, so a second call fails
// and the first code stays the only live one.
func (s *bookingService) MarkArrived(ctx context.Context, actor user.Actor, id string) (*booking.Booking, error) {
	n, err := s.otp()
	if err != nil {
		return nil, s.fail(ctx, "car_arrived", booking.Unavailable(err))
	}
	otp := booking.FormatOTP(n)

	b, err := s.transition(ctx, id, step{
		op:    "car_arrived",
		event: booking.EventCarArrived,
		allow: owningDriver(actor),
		apply: func(b *booking.Booking, now time.Time) error {
			return b.MarkArrived(otp, now)
		},
		data: func(b *booking.Booking) map[string]any {
			return map[string]any{"otp_expiry": b.Verification.OTPExpiry}
		},
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logger.WithBookingID(ctx, b.ID)
	ev := contracts.NewBookingEvent(b, "Your car has arrived. Share the code with the driver.")
	ev.OTP = otp
	s.dispatch.Publish(ctx, contracts.CustomerChannel(b.Customer.Phone), contracts.EventCarArrived, ev)
	s.publishUpdate(ctx, b)

	notice := contracts.ArrivalNotice{
		BookingID:    b.ID,
		CustomerName: b.Customer.Name,
		Phone:        b.Customer.Phone,
		Email:        b.Customer.Email,
		OTP:          otp,
	}
	s.notify(ctx, "arrival_notification", func(ctx context.Context, sink ports.NotificationSink) error {
		return sink.SendArrivalNotification(ctx, notice)
	})
	return b, nil
}
