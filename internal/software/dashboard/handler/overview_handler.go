package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"valet/internal/domain/booking"
)

// ----- Handler: GET /supervisor/stats?day=YYYY-MM-DD -----

func (handler *DashboardHTTPHandler) handleOverview(w http.ResponseWriter, r *http.Request) {
	// generate a context with request ID
	ctx := handler.withReqID(r.Context(), r)

	var day time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("day")); raw != "" {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			handler.httpError(ctx, w, http.StatusBadRequest, string(booking.CodeInvalidArgument), "day must be YYYY-MM-DD", err)
			return
		}
		day = d
	}

	// bound service call
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	overview, err := handler.svc.Overview(ctxWithTimeout, day)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, "statistics", err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, overview)
}
