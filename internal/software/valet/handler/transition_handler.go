package handler

import (
	"context"
	"net/http"

	"valet/internal/domain/booking"
	"valet/internal/general/contracts"
	"valet/internal/ports"
)

// ----- Handler: POST /bookings/{id}/recall -----

func (handler *BookingHTTPHandler) handleRecall(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	actor, ok := handler.actor(ctx, w, r)
	if !ok {
		return
	}

	b, err := handler.svc.RequestRecall(ctx, actor, r.PathValue("id"))
	handler.respond(ctx, w, b, err, "Recall request sent to driver")
}

// ----- Handler: POST /bookings/{id}/estimate-arrival -----

func (handler *BookingHTTPHandler) handleEstimateArrival(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req estimateArrivalRequest
	if !handler.decodeJSON(ctx, w, r, &req, false) {
		return
	}
	actor, ok := handler.actor(ctx, w, r)
	if !ok {
		return
	}

	b, err := handler.svc.SetEstimatedArrival(ctx, actor, r.PathValue("id"), req.EstimatedMinutes)
	handler.respond(ctx, w, b, err, "Estimated arrival time set")
}

// ----- Handler: POST /bookings/{id}/arrived -----

func (handler *BookingHTTPHandler) handleArrived(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	actor, ok := handler.actor(ctx, w, r)
	if !ok {
		return
	}

	// the code goes to the customer only; the driver's view never carries it
	b, err := handler.svc.MarkArrived(ctx, actor, r.PathValue("id"))
	handler.respond(ctx, w, b, err, "Car marked as arrived and OTP sent to customer")
}

// ----- Handler: POST /bookings/{id}/verify-complete -----

func (handler *BookingHTTPHandler) handleVerifyComplete(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req verifyCompleteRequest
	if !handler.decodeJSON(ctx, w, r, &req, false) {
		return
	}
	actor, ok := handler.actor(ctx, w, r)
	if !ok {
		return
	}
	if req.Amount == nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "amount is required", nil)
		return
	}
	method, ok := booking.ParsePaymentMethod(req.PaymentMethod)
	if !ok || !method.Settles() {
		handler.httpError(ctx, w, http.StatusBadRequest, "payment_method must be one of cash, qr, upi, card", nil)
		return
	}

	b, err := handler.svc.VerifyAndComplete(ctx, actor, r.PathValue("id"), ports.CompleteInput{
		OTP:    req.OTP,
		Method: method,
		Amount: *req.Amount,
	})
	handler.respond(ctx, w, b, err, "Booking completed successfully")
}

// ----- Handler: PUT /bookings/{id}/payment -----

func (handler *BookingHTTPHandler) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req recordPaymentRequest
	if !handler.decodeJSON(ctx, w, r, &req, false) {
		return
	}
	actor, ok := handler.actor(ctx, w, r)
	if !ok {
		return
	}

	var u booking.PaymentUpdate
	if req.PaymentMethod != nil {
		m, ok := booking.ParsePaymentMethod(*req.PaymentMethod)
		if !ok {
			handler.httpError(ctx, w, http.StatusBadRequest, "payment_method must be one of cash, qr, upi, card, pending", nil)
			return
		}
		u.Method = &m
	}
	u.Amount = req.Amount
	if req.PaymentState != nil {
		s := booking.PaymentState(*req.PaymentState)
		u.State = &s
	}
	u.PaidAt = req.PaidAt
	if req.PaymentStatus != nil {
		s := booking.PaymentStatus(*req.PaymentStatus)
		u.PaymentStatus = &s
	}

	b, err := handler.svc.RecordPayment(ctx, actor, r.PathValue("id"), u)
	handler.respond(ctx, w, b, err, "Booking updated successfully")
}

// ----- Handler: POST /bookings/{id}/cancel -----

func (handler *BookingHTTPHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req cancelRequest
	if !handler.decodeJSON(ctx, w, r, &req, true) {
		return
	}
	actor, ok := handler.actor(ctx, w, r)
	if !ok {
		return
	}

	b, err := handler.svc.Cancel(ctx, actor, r.PathValue("id"), req.Reason)
	handler.respond(ctx, w, b, err, "Booking cancelled")
}

// respond writes the outcome of a transition.
func (handler *BookingHTTPHandler) respond(ctx context.Context, w http.ResponseWriter, b *booking.Booking, err error, msg string) {
	if err != nil {
		handler.domainError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, bookingResponse{Message: msg, Booking: contracts.NewBookingView(b)})
}
