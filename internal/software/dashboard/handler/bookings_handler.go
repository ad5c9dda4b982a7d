package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"valet/internal/domain/booking"
	"valet/internal/ports"
)

// ----- Handler: GET /supervisor/bookings?status=X&date=YYYY-MM-DD&limit=N -----

func (handler *DashboardHTTPHandler) handleListBookings(w http.ResponseWriter, r *http.Request) {
	// generate a context with request ID
	ctx := handler.withReqID(r.Context(), r)

	in, err := parseListQuery(r)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, string(booking.CodeInvalidArgument), booking.AsError(err).Message, err)
		return
	}

	// bound service call
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.ListBookings(ctxWithTimeout, in)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, "bookings", err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

func parseListQuery(r *http.Request) (ports.ListBookingsInput, error) {
	q := r.URL.Query()
	var in ports.ListBookingsInput

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		st, err := booking.ParseStatus(raw)
		if err != nil {
			return in, booking.InvalidArgument("invalid status %q", raw)
		}
		in.Status = &st
	}
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return in, booking.InvalidArgument("date must be YYYY-MM-DD")
		}
		in.Day = &d
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return in, booking.InvalidArgument("limit must be a positive integer")
		}
		in.Limit = n
	}
	return in, nil
}
