package service

import (
	"context"
	"fmt"
	"time"

	"valet/internal/domain/booking"
	"valet/internal/domain/user"
	"valet/internal/general/contracts"
	"valet/internal/ports"
)

// RequestRecall asks for the parked vehicle back. The driver's channel only
// hears about it when the customer asked.
func (s *bookingService) RequestRecall(ctx context.Context, actor user.Actor, id string) (*booking.Booking, error) {
	b, err := s.transition(ctx, id, step{
		op:    "recall_request",
		event: booking.EventRecallRequested,
		allow: ownerOrCustomer(actor),
		apply: func(b *booking.Booking, now time.Time) error {
			return b.RequestRecall(now)
		},
		data: func(*booking.Booking) map[string]any {
			return map[string]any{"requested_by": actor.Role.String()}
		},
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logger.WithBookingID(ctx, b.ID)
	if actor.Role == user.RoleCustomer {
		s.dispatch.Publish(ctx, contracts.DriverChannel(b.DriverID), contracts.EventRecallRequest,
			contracts.NewBookingEvent(b, fmt.Sprintf("Customer requested car %s", b.Vehicle.Number)))
	}
	s.publishUpdate(ctx, b)
	return b, nil
}

// SetEstimatedArrival puts the vehicle in transit, or revises the ETA of one already in transit.
func (s *bookingService) SetEstimatedArrival(ctx context.Context, actor user.Actor, id string, minutes int) (*booking.Booking, error) {
	if minutes < 1 {
		return nil, s.fail(ctx, "eta_set", booking.InvalidArgument("estimated minutes must be at least 1"))
	}

	b, err := s.transition(ctx, id, step{
		op:    "eta_set",
		event: booking.EventETASet,
		allow: owningDriver(actor),
		apply: func(b *booking.Booking, now time.Time) error {
			return b.SetEstimatedArrival(minutes, now)
		},
		data: func(*booking.Booking) map[string]any {
			return map[string]any{"estimated_minutes": minutes}
		},
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logger.WithBookingID(ctx, b.ID)
	ev := contracts.NewBookingEvent(b, fmt.Sprintf("Your car will arrive in %d minutes", minutes))
	ev.EstimatedMinutes = &minutes
	s.dispatch.Publish(ctx, contracts.CustomerChannel(b.Customer.Phone), contracts.EventCarInTransit, ev)
	s.publishUpdate(ctx, b)

	notice := contracts.RecallNotice{
		BookingID:        b.ID,
		CustomerName:     b.Customer.Name,
		Phone:            b.Customer.Phone,
		Email:            b.Customer.Email,
		EstimatedMinutes: minutes,
	}
	s.notify(ctx, "recall_notification", func(ctx context.Context, sink ports.NotificationSink) error {
		return sink.SendRecallNotification(ctx, notice)
	})
	return b, nil
}
