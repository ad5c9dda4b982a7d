package handler

import (
	"net/http"

	"valet/internal/domain/booking"
	"valet/internal/general/contracts"
)

// ----- Handler: POST /bookings -----

func (handler *BookingHTTPHandler) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req createBookingRequest
	if !handler.decodeJSON(ctx, w, r, &req, false) {
		return
	}

	actor, ok := handler.actor(ctx, w, r)
	if !ok {
		return
	}

	vt, err := booking.ParseVehicleType(req.VehicleType)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "vehicle_type must be one of: car, bike, suv", err)
		return
	}

	res, err := handler.svc.Create(ctx, actor, booking.Draft{
		DriverID: actor.ID,
		Customer: booking.Customer{
			Phone: req.CustomerPhone,
			Name:  req.CustomerName,
			Email: req.CustomerEmail,
		},
		Vehicle: booking.Vehicle{
			Type:         vt,
			Number:       req.VehicleNumber,
			Model:        req.VehicleModel,
			Color:        req.VehicleColor,
			ImageRefs:    req.Images,
			HasValuables: req.HasValuables,
			Valuables:    req.Valuables,
		},
		EstimatedDurationMinutes: req.EstimatedDuration,
		Location:                 booking.Location{ParkingSpot: req.ParkingSpot, Venue: req.Venue},
		Notes:                    req.Notes,
	})
	if err != nil {
		handler.domainError(ctx, w, err)
		return
	}

	handler.jsonResponse(ctx, w, http.StatusCreated, createBookingResponse{
		Message:    "Booking created successfully",
		Booking:    contracts.NewBookingView(res.Booking),
		AccessLink: res.AccessLink,
	})
}
