package service

import (
	"context"
	"strings"
	"time"

	"valet/internal/domain/booking"
	"valet/internal/domain/user"
	"valet/internal/general/contracts"
)

const maxCancelReason = 500

// Cancel resolves any open booking to cancelled.
func (s *bookingService) Cancel(ctx context.Context, actor user.Actor, id, reason string) (*booking.Booking, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) > maxCancelReason {
		return nil, s.fail(ctx, "booking_cancel", booking.InvalidArgument("reason must be at most %d characters", maxCancelReason))
	}

	b, err := s.transition(ctx, id, step{
		op:    "booking_cancel",
		event: booking.EventCancelled,
		allow: ownerOrOverseer(actor),
		apply: func(b *booking.Booking, now time.Time) error {
			return b.Cancel(reason, now)
		},
		data: func(*booking.Booking) map[string]any {
			return map[string]any{"reason": reason, "cancelled_by": actor.Role.String()}
		},
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logger.WithBookingID(ctx, b.ID)
	ev := contracts.NewBookingEvent(b, "Booking cancelled")
	ev.Reason = reason
	s.dispatch.Publish(ctx, contracts.DriverChannel(b.DriverID), contracts.EventBookingCancelled, ev)
	s.dispatch.Publish(ctx, contracts.CustomerChannel(b.Customer.Phone), contracts.EventBookingCancelled, ev)
	s.publishUpdate(ctx, b)
	return b, nil
}
