package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"valet/internal/domain/booking"
	"valet/internal/domain/user"
	"valet/internal/general/jwt"
	"valet/internal/general/logger"
	"valet/internal/general/websocket"
	"valet/internal/ports"
)

// Uploads configures the vehicle photo endpoint and the static file route.
type Uploads struct {
	Store    ports.ImageStore
	Dir      string // served under /uploads/ when set
	MaxBytes int64
	MaxFiles int
}

// BookingHTTPHandler adapts HTTP requests to the BookingService.
type BookingHTTPHandler struct {
	svc      ports.BookingService
	resolver ports.AccessResolver
	uploads  Uploads
	logger   *logger.Logger
	auth     *jwt.Manager
	hub      *websocket.Hub
}

// NewBookingHTTPHandler wires an HTTP handler around the BookingService. hub may be nil.
func NewBookingHTTPHandler(
	svc ports.BookingService,
	resolver ports.AccessResolver,
	uploads Uploads,
	logger *logger.Logger,
	auth *jwt.Manager,
	hub *websocket.Hub,
) *BookingHTTPHandler {
	if uploads.MaxFiles <= 0 {
		uploads.MaxFiles = 4
	}
	if uploads.MaxBytes <= 0 {
		uploads.MaxBytes = 5 << 20
	}
	return &BookingHTTPHandler{svc: svc, resolver: resolver, uploads: uploads, logger: logger, auth: auth, hub: hub}
}

// RegisterRoutes mounts booking endpoints on the provided mux.
func (handler *BookingHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	driver := jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver)
	customer := jwt.AuthMiddlewareFunc(handler.auth, user.RoleCustomer)
	anyone := jwt.AuthMiddlewareFunc(handler.auth)

	mux.HandleFunc("POST /bookings", driver(handler.handleCreateBooking))
	mux.HandleFunc("POST /bookings/images", driver(handler.handleUploadImages))
	mux.HandleFunc("GET /bookings/my-bookings", driver(handler.handleDriverBookings))
	mux.HandleFunc("GET /bookings/customer-bookings", customer(handler.handleCustomerBookings))
	mux.HandleFunc("GET /bookings/{id}", anyone(handler.handleGetBooking))

	mux.HandleFunc("POST /bookings/{id}/recall",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleCustomer, user.RoleDriver)(handler.handleRecall))
	mux.HandleFunc("POST /bookings/{id}/estimate-arrival", driver(handler.handleEstimateArrival))
	mux.HandleFunc("POST /bookings/{id}/arrived", driver(handler.handleArrived))
	mux.HandleFunc("POST /bookings/{id}/verify-complete", driver(handler.handleVerifyComplete))
	mux.HandleFunc("PUT /bookings/{id}/payment", driver(handler.handleRecordPayment))
	mux.HandleFunc("POST /bookings/{id}/cancel",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver, user.RoleSupervisor, user.RoleAdmin)(handler.handleCancel))

	// the access token in the path is the credential
	mux.HandleFunc("GET /auth/customer/access/{token}", handler.handleCustomerAccess)

	if handler.uploads.Dir != "" {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(handler.uploads.Dir))))
	}

	// WebSocket endpoints authenticate with their first frame
	if handler.hub != nil {
		handler.hub.RegisterRoutes(mux)
	}

	mux.HandleFunc("GET /health", handler.handleHealth)
}

func (handler *BookingHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	handler.jsonResponse(r.Context(), w, http.StatusOK, map[string]string{"status": "ok", "service": "booking-service"})
}

// ----- general helpers -----

// errorBody is the shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps a domain error code onto its HTTP status.
func statusFor(code booking.Code) int {
	switch code {
	case booking.CodeNotFound:
		return http.StatusNotFound
	case booking.CodeUnauthorized:
		return http.StatusForbidden
	case booking.CodeInvalidTransition:
		return http.StatusConflict
	case booking.CodeInvalidArgument:
		return http.StatusBadRequest
	case booking.CodeInvalidOTP, booking.CodeOTPExpired:
		return http.StatusUnauthorized
	case booking.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// domainError writes a service error with its stable code.
func (handler *BookingHTTPHandler) domainError(ctx context.Context, w http.ResponseWriter, err error) {
	derr := booking.AsError(err)
	status := statusFor(derr.Code)
	msg := derr.Message
	if status >= 500 {
		handler.logger.Error(ctx, "http_internal_error", msg, err, map[string]any{"code": string(derr.Code)})
		if derr.Code == booking.CodeUnavailable {
			msg = "service temporarily unavailable"
		}
	}
	handler.jsonResponse(ctx, w, status, errorBody{Error: msg, Code: string(derr.Code)})
}

// httpError sends a JSON error response for failures caught at the HTTP boundary.
func (handler *BookingHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	code := string(booking.CodeInvalidArgument)
	switch {
	case status >= 500:
		action, code = "http_internal_error", string(booking.CodeUnavailable)
	case status == http.StatusBadRequest:
		action = "validation_failed"
	case status == http.StatusUnsupportedMediaType:
		action = "unsupported_media_type"
	case status == http.StatusUnauthorized:
		code = "UNAUTHENTICATED"
	}
	handler.logger.Warn(ctx, action, msg, err, nil)
	handler.jsonResponse(ctx, w, status, errorBody{Error: msg, Code: code})
}

func (handler *BookingHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response","code":"UNAVAILABLE"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// decodeJSON strictly decodes a bounded JSON body into dst. An empty body is
// accepted when allowEmpty is set.
func (handler *BookingHTTPHandler) decodeJSON(ctx context.Context, w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	if r.ContentLength == 0 && allowEmpty {
		return true
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return false
		}
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return false
	}
	return true
}

// actor reads the verified identity the auth middleware injected.
func (handler *BookingHTTPHandler) actor(ctx context.Context, w http.ResponseWriter, r *http.Request) (user.Actor, bool) {
	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return user.Actor{}, false
	}
	return claims.Actor(), true
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *BookingHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
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
