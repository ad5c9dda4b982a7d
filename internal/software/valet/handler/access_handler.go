package handler

import (
	"net/http"

	"valet/internal/general/contracts"
)

// ----- Handler: GET /auth/customer/access/{token} -----

// handleCustomerAccess exchanges a booking access token for a customer session.
func (handler *BookingHTTPHandler) handleCustomerAccess(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	res, err := handler.resolver.Resolve(ctx, r.PathValue("token"))
	if err != nil {
		handler.domainError(ctx, w, err)
		return
	}

	token, claims, err := handler.auth.IssueCustomerToken(res.Customer.ID, res.Customer.Phone)
	if err != nil {
		handler.httpError(ctx, w, http.StatusInternalServerError, "failed to issue customer token", err)
		return
	}

	handler.logger.Info(handler.logger.WithBookingID(ctx, res.Booking.ID), "customer_access_granted",
		"Customer session issued", map[string]any{"customer_id": res.Customer.ID})

	handler.jsonResponse(ctx, w, http.StatusOK, customerAccessResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		Customer: customerView{
			ID:    res.Customer.ID,
			Name:  res.Customer.Name,
			Phone: res.Customer.Phone,
			Email: res.Customer.Email,
		},
		Booking: contracts.NewBookingView(res.Booking),
	})
}
