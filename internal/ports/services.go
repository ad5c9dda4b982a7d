package ports

import (
	"context"
	"time"

	"valet/internal/domain/booking"
	"valet/internal/domain/user"
	"valet/internal/general/contracts"
)

// ----- DTOs for Booking Service -----

// CompleteInput is the validated input for VerifyAndComplete.
type CompleteInput struct {
	OTP    string
	Method booking.PaymentMethod
	Amount float64
}

// CreateBookingResult is returned by BookingService.Create.
type CreateBookingResult struct {
	Booking    *booking.Booking
	AccessLink string
}

// AccessResolution is what an access token unlocks.
type AccessResolution struct {
	Booking  *booking.Booking
	Customer *user.Customer
}

// ----- Booking Service Interface -----

// BookingService is the lifecycle engine.
type BookingService interface {
	Create(ctx context.Context, actor user.Actor, d booking.Draft) (CreateBookingResult, error)
	RequestRecall(ctx context.Context, actor user.Actor, id string) (*booking.Booking, error)
	SetEstimatedArrival(ctx context.Context, actor user.Actor, id string, minutes int) (*booking.Booking, error)
	MarkArrived(ctx context.Context, actor user.Actor, id string) (*booking.Booking, error)
	VerifyAndComplete(ctx context.Context, actor user.Actor, id string, in CompleteInput) (*booking.Booking, error)
	RecordPayment(ctx context.Context, actor user.Actor, id string, u booking.PaymentUpdate) (*booking.Booking, error)
	Cancel(ctx context.Context, actor user.Actor, id, reason string) (*booking.Booking, error)

	GetBooking(ctx context.Context, actor user.Actor, id string) (*booking.Booking, error)
	ListDriverBookings(ctx context.Context, actor user.Actor, status *booking.Status) ([]*booking.Booking, error)
	ListCustomerBookings(ctx context.Context, actor user.Actor) ([]*booking.Booking, error)
}

// AccessResolver turns a customer access token into a booking and an identity.
type AccessResolver interface {
	Resolve(ctx context.Context, token string) (AccessResolution, error)
}

// ----- Collaborators -----

// EventDispatcher fans lifecycle events out to channels and runs sink calls
// off the caller's path. Neither method blocks on delivery nor returns an error.
type EventDispatcher interface {
	Publish(ctx context.Context, ch contracts.Channel, event string, payload any)
	Notify(ctx context.Context, action string, fn func(ctx context.Context) error)
}

// NotificationSink delivers customer notifications over one medium.
type NotificationSink interface {
	SendBookingConfirmation(ctx context.Context, n contracts.BookingConfirmation) error
	SendRecallNotification(ctx context.Context, n contracts.RecallNotice) error
	SendArrivalNotification(ctx context.Context, n contracts.ArrivalNotice) error
}

// ImageStore persists vehicle photos and returns an opaque reference.
type ImageStore interface {
	Save(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// LinkBuilder renders the customer access link for a token.
type LinkBuilder interface {
	AccessLink(token string) string
}

// ---------------------------------------------------------------------------------------------------------------

// ----- DTOs for Supervisor Dashboard -----

// OverviewMetrics groups the booking KPIs.
type OverviewMetrics struct {
	TodayBookings     int     `json:"today_bookings"`
	ActiveBookings    int     `json:"active_bookings"`
	CompletedBookings int     `json:"completed_bookings"`
	CancelledBookings int     `json:"cancelled_bookings"`
	TotalRevenue      float64 `json:"total_revenue"`
}

// StatusCount is one row of the per-status breakdown.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// OverviewResult is the response DTO for GET /supervisor/stats.
type OverviewResult struct {
	Timestamp time.Time       `json:"timestamp"`
	Day       string          `json:"day"`
	Metrics   OverviewMetrics `json:"metrics"`
	ByStatus  []StatusCount   `json:"by_status"`
}

// ListBookingsInput is the validated query of GET /supervisor/bookings.
type ListBookingsInput struct {
	Status *booking.Status
	Day    *time.Time
	Limit  int
}

// ListBookingsResult is the response DTO for GET /supervisor/bookings.
type ListBookingsResult struct {
	Bookings   []contracts.BookingView `json:"bookings"`
	TotalCount int                     `json:"total_count"`
}

// ----- Dashboard Service Interface -----

// DashboardService exposes the supervisor views.
type DashboardService interface {
	Overview(ctx context.Context, day time.Time) (OverviewResult, error)
	ListBookings(ctx context.Context, in ListBookingsInput) (ListBookingsResult, error)
}
