package service

import (
	"context"

	"valet/internal/domain/booking"
	"valet/internal/general/contracts"
	"valet/internal/ports"
)

// publishUpdate keeps the supervisor dashboard in step with every transition.
func (s *bookingService) publishUpdate(ctx context.Context, b *booking.Booking) {
	s.dispatch.Publish(ctx, contracts.Supervisors, contracts.EventBookingUpdated,
		contracts.NewBookingEvent(b, "Booking "+b.ID+" is "+b.Status.String()))
}

// notify hands one call per configured sink to the dispatcher. Each runs on
// its own, so one medium failing never blocks another.
func (s *bookingService) notify(ctx context.Context, kind string, call func(ctx context.Context, sink ports.NotificationSink) error) {
	for _, ns := range s.sinks {
		sink := ns.sink
		s.dispatch.Notify(ctx, kind+"_"+ns.name, func(ctx context.Context) error {
			return call(ctx, sink)
		})
	}
}
