package handler

import (
	"net/http"
	"strings"

	"valet/internal/domain/booking"
	"valet/internal/general/contracts"
)

// ----- Handler: GET /bookings/{id} -----

func (handler *BookingHTTPHandler) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	actor, ok := handler.actor(ctx, w, r)
	if !ok {
		return
	}

	b, err := handler.svc.GetBooking(ctx, actor, r.PathValue("id"))
	if err != nil {
		handler.domainError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, bookingResponse{Booking: contracts.NewBookingView(b)})
}

// ----- Handler: GET /bookings/my-bookings?status= -----

func (handler *BookingHTTPHandler) handleDriverBookings(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	actor, ok := handler.actor(ctx, w, r)
	if !ok {
		return
	}

	var status *booking.Status
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		s, err := booking.ParseStatus(raw)
		if err != nil {
			handler.httpError(ctx, w, http.StatusBadRequest, "invalid status filter", err)
			return
		}
		status = &s
	}

	list, err := handler.svc.ListDriverBookings(ctx, actor, status)
	if err != nil {
		handler.domainError(ctx, w, err)
		return
	}
	views := contracts.NewBookingViews(list)
	handler.jsonResponse(ctx, w, http.StatusOK, bookingListResponse{Bookings: views, Count: len(views)})
}

// ----- Handler: GET /bookings/customer-bookings -----

func (handler *BookingHTTPHandler) handleCustomerBookings(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	actor, ok := handler.actor(ctx, w, r)
	if !ok {
		return
	}

	list, err := handler.svc.ListCustomerBookings(ctx, actor)
	if err != nil {
		handler.domainError(ctx, w, err)
		return
	}
	views := contracts.NewBookingViews(list)
	handler.jsonResponse(ctx, w, http.StatusOK, bookingListResponse{Bookings: views, Count: len(views)})
}
