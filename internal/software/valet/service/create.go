package service

import (
	"context"
	"fmt"

	"valet/internal/domain/booking"
	"valet/internal/domain/user"
	"valet/internal/general/contracts"
	"valet/internal/ports"
)

// Create parks a vehicle for the calling driver and hands back the customer's access link.
func (s *bookingService) Create(ctx context.Context, actor user.Actor, d booking.Draft) (ports.CreateBookingResult, error) {
	if actor.Role != user.RoleDriver || actor.ID == "" {
		return ports.CreateBookingResult{}, s.fail(ctx, "booking_create", booking.ErrUnauthorized)
	}
	d.DriverID = actor.ID

	draft, err := booking.New(d, s.now())
	if err != nil {
		return ports.CreateBookingResult{}, s.fail(ctx, "booking_create", err)
	}

	var created *booking.Booking
	err = s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		b, err := s.repo.Create(txCtx, draft)
		if err != nil {
			return err
		}
		ev, err := booking.NewEvent(b.ID, booking.EventCreated, map[string]any{
			"status":         b.Status.String(),
			"driver_id":      b.DriverID,
			"vehicle_number": b.Vehicle.Number,
			"venue":          b.Location.Venue,
		}, b.CreatedAt)
		if err != nil {
			return err
		}
		if err := s.journal.Append(txCtx, ev); err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return ports.CreateBookingResult{}, s.fail(ctx, "booking_create", err)
	}

	ctx = s.logger.WithBookingID(ctx, created.ID)
	link := s.links.AccessLink(created.AccessToken)

	s.dispatch.Publish(ctx, contracts.Supervisors, contracts.EventNewBooking,
		contracts.NewBookingEvent(created, fmt.Sprintf("New booking %s for %s", created.ID, created.Vehicle.Number)))

	confirmation := contracts.BookingConfirmation{
		BookingID:     created.ID,
		CustomerName:  created.Customer.Name,
		Phone:         created.Customer.Phone,
		Email:         created.Customer.Email,
		AccessLink:    link,
		VehicleNumber: created.Vehicle.Number,
		Venue:         created.Location.Venue,
	}
	s.notify(ctx, "booking_confirmation", func(ctx context.Context, sink ports.NotificationSink) error {
		return sink.SendBookingConfirmation(ctx, confirmation)
	})

	s.logger.Info(ctx, "booking_created", "Booking "+created.ID+" created", map[string]any{
		"driver_id": created.DriverID,
		"vehicle":   created.Vehicle.Number,
	})

	return ports.CreateBookingResult{Booking: created, AccessLink: link}, nil
}
