package service

import (
	"context"
	"fmt"
	"time"

	"valet/internal/domain/booking"
	"valet/internal/ports"
)

// statusOrder is the order rows appear in the per-status breakdown.
var statusOrder = []booking.Status{
	booking.StatusParked,
	booking.StatusRecallRequested,
	booking.StatusInTransit,
	booking.StatusArrived,
	booking.StatusCompleted,
	booking.StatusCancelled,
}

// Overview collects the booking KPIs. Today's count and the per-status breakdown
// cover the calendar day of day; the remaining figures are all-time.
func (service *dashboardService) Overview(ctx context.Context, day time.Time) (ports.OverviewResult, error) {
	if day.IsZero() {
		day = service.now()
	}
	from, to := dayRange(day, service.loc)

	var res ports.OverviewResult
	res.Timestamp = service.now().UTC()
	res.Day = from.Format(time.DateOnly)

	// collect the metrics within a transaction
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		today, err := service.repo.CountByStatus(txCtx, ports.BookingFilter{CreatedFrom: &from, CreatedTo: &to})
		if err != nil {
			return err
		}
		res.ByStatus = make([]ports.StatusCount, 0, len(statusOrder))
		for _, st := range statusOrder {
			res.Metrics.TodayBookings += today[st]
			res.ByStatus = append(res.ByStatus, ports.StatusCount{Status: st.String(), Count: today[st]})
		}

		allTime, err := service.repo.CountByStatus(txCtx, ports.BookingFilter{})
		if err != nil {
			return err
		}
		for _, st := range booking.ActiveStatuses() {
			res.Metrics.ActiveBookings += allTime[st]
		}
		res.Metrics.CompletedBookings = allTime[booking.StatusCompleted]
		res.Metrics.CancelledBookings = allTime[booking.StatusCancelled]

		res.Metrics.TotalRevenue, err = service.repo.SumRevenue(txCtx,
			ports.BookingFilter{Statuses: []booking.Status{booking.StatusCompleted}})
		return err
	})
	if err != nil {
		return ports.OverviewResult{}, fmt.Errorf("dashboard overview: %w", err)
	}

	return res, nil
}
