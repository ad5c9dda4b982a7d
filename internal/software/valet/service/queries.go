package service

import (
	"context"
	"errors"

	"valet/internal/domain/booking"
	"valet/internal/domain/user"
	"valet/internal/ports"
)

// GetBooking returns a booking to its driver, its customer, or an overseer.
// Only overseers can tell a missing booking from a foreign one.
func (s *bookingService) GetBooking(ctx context.Context, actor user.Actor, id string) (*booking.Booking, error) {
	var out *booking.Booking
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		b, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if !viewer(actor)(b) {
			return booking.ErrUnauthorized
		}
		out = b
		return nil
	})
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) && !actor.Role.Oversees() {
			err = booking.ErrUnauthorized
		}
		return nil, s.fail(s.logger.WithBookingID(ctx, id), "booking_get", err)
	}
	return out, nil
}

// ListDriverBookings lists the calling driver's bookings; open ones only unless a status is given.
func (s *bookingService) ListDriverBookings(ctx context.Context, actor user.Actor, status *booking.Status) ([]*booking.Booking, error) {
	if actor.Role != user.RoleDriver || actor.ID == "" {
		return nil, s.fail(ctx, "driver_bookings", booking.ErrUnauthorized)
	}
	f := ports.BookingFilter{DriverIDs: []string{actor.ID}}
	if status != nil {
		if !status.Valid() {
			return nil, s.fail(ctx, "driver_bookings", booking.InvalidArgument("invalid status %q", *status))
		}
		f.Statuses = []booking.Status{*status}
	} else {
		f.Statuses = booking.ActiveStatuses()
	}
	return s.list(ctx, "driver_bookings", f)
}

// ListCustomerBookings lists every booking under the calling customer's phone.
func (s *bookingService) ListCustomerBookings(ctx context.Context, actor user.Actor) ([]*booking.Booking, error) {
	if actor.Role != user.RoleCustomer || actor.Phone == "" {
		return nil, s.fail(ctx, "customer_bookings", booking.ErrUnauthorized)
	}
	return s.list(ctx, "customer_bookings", ports.BookingFilter{CustomerPhone: actor.Phone})
}

func (s *bookingService) list(ctx context.Context, op string, f ports.BookingFilter) ([]*booking.Booking, error) {
	var out []*booking.Booking
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		out, err = s.repo.List(txCtx, f)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	return out, nil
}
