package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"valet/internal/domain/booking"
	"valet/internal/domain/user"
	"valet/internal/general/jwt"
	"valet/internal/general/logger"
	"valet/internal/general/websocket"
	"valet/internal/ports"
)

// DashboardHTTPHandler adapts HTTP requests to the DashboardService.
type DashboardHTTPHandler struct {
	svc    ports.DashboardService
	logger *logger.Logger
	auth   *jwt.Manager
	hub    *websocket.Hub
}

// NewDashboardHTTPHandler wires an HTTP handler around the DashboardService.
// hub is nil when another handler on the same mux already serves the WebSocket routes.
func NewDashboardHTTPHandler(svc ports.DashboardService, logger *logger.Logger, auth *jwt.Manager, hub *websocket.Hub) *DashboardHTTPHandler {
	return &DashboardHTTPHandler{svc: svc, logger: logger, auth: auth, hub: hub}
}

// RegisterRoutes mounts supervisor endpoints on the provided mux.
func (handler *DashboardHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /supervisor/stats",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleSupervisor, user.RoleAdmin)(handler.handleOverview),
	)
	mux.HandleFunc("GET /supervisor/bookings",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleSupervisor, user.RoleAdmin)(handler.handleListBookings),
	)
	mux.HandleFunc("GET /supervisor/health", handler.handleHealth)

	if handler.hub != nil {
		handler.hub.RegisterRoutes(mux)
	}
}

// ----- general helpers -----

// jsonResponse takes any type of data and encode it to HTTP response.
func (handler *DashboardHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	// encode to buffer first so we can control status on failure
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// httpError sends a JSON error response with a message.
func (handler *DashboardHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, code, msg string, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	}
	handler.logger.Error(ctx, action, msg, err, nil)

	type errBody struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg, Code: code})
}

// serviceError distinguishes bad input and store outages from other failures.
func (handler *DashboardHTTPHandler) serviceError(ctx context.Context, w http.ResponseWriter, what string, err error) {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, booking.ErrInvalidArgument):
		handler.httpError(ctx, w, http.StatusBadRequest, string(booking.CodeInvalidArgument), booking.AsError(err).Message, err)
	case errors.Is(err, booking.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		handler.httpError(ctx, w, http.StatusServiceUnavailable, string(booking.CodeUnavailable), "service temporarily unavailable", err)
	case errors.As(err, &pgErr):
		handler.httpError(ctx, w, http.StatusInternalServerError, string(booking.CodeUnavailable), "database error", err)
	default:
		handler.httpError(ctx, w, http.StatusInternalServerError, string(booking.CodeUnavailable), "failed to fetch "+what, err)
	}
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *DashboardHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = randID()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}

// randID generates a random 24-char hex string suitable for request IDs.
func randID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
