package service

import (
	"context"
	"fmt"

	"valet/internal/domain/booking"
	"valet/internal/general/contracts"
	"valet/internal/ports"
)

// ListBookings returns bookings newest first, optionally narrowed to one status
// and one calendar day.
func (service *dashboardService) ListBookings(ctx context.Context, in ports.ListBookingsInput) (ports.ListBookingsResult, error) {
	f := ports.BookingFilter{Limit: in.Limit}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	f.Limit = min(f.Limit, maxListLimit)

	if in.Status != nil {
		if !in.Status.Valid() {
			return ports.ListBookingsResult{}, booking.InvalidArgument("invalid status %q", *in.Status)
		}
		f.Statuses = []booking.Status{*in.Status}
	}
	if in.Day != nil {
		from, to := dayRange(*in.Day, service.loc)
		f.CreatedFrom, f.CreatedTo = &from, &to
	}

	var list []*booking.Booking
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		list, err = service.repo.List(txCtx, f)
		return err
	})
	if err != nil {
		return ports.ListBookingsResult{}, fmt.Errorf("dashboard list: %w", err)
	}

	views := contracts.NewBookingViews(list)
	return ports.ListBookingsResult{Bookings: views, TotalCount: len(views)}, nil
}
