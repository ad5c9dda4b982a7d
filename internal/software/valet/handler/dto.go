package handler

import (
	"time"

	"valet/internal/general/contracts"
)

// ----- Request DTOs (HTTP boundary) -----

type createBookingRequest struct {
	CustomerPhone     string   `json:"customer_phone"`
	CustomerName      string   `json:"customer_name"`
	CustomerEmail     string   `json:"customer_email"`
	VehicleType       string   `json:"vehicle_type"` // car | bike | suv
	VehicleNumber     string   `json:"vehicle_number"`
	VehicleModel      string   `json:"vehicle_model"`
	VehicleColor      string   `json:"vehicle_color"`
	EstimatedDuration int      `json:"estimated_duration"` // minutes
	ParkingSpot       string   `json:"parking_spot"`
	Venue             string   `json:"venue"`
	Notes             string   `json:"notes"`
	HasValuables      bool     `json:"has_valuables"`
	Valuables         []string `json:"valuables"`
	Images            []string `json:"images"` // references from POST /bookings/images
}

type estimateArrivalRequest struct {
	EstimatedMinutes int `json:"estimated_minutes"`
}

type verifyCompleteRequest struct {
	OTP           string   `json:"otp"`
	PaymentMethod string   `json:"payment_method"`
	Amount        *float64 `json:"amount"`
}

type recordPaymentRequest struct {
	PaymentMethod *string    `json:"payment_method"`
	Amount        *float64   `json:"amount"`
	PaymentState  *string    `json:"payment_state"` // pending | completed | failed
	PaidAt        *time.Time `json:"paid_at"`
	PaymentStatus *string    `json:"payment_status"` // unpaid | paid
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// ----- Response DTOs -----

type bookingResponse struct {
	Message string                `json:"message,omitempty"`
	Booking contracts.BookingView `json:"booking"`
}

type createBookingResponse struct {
	Message    string                `json:"message"`
	Booking    contracts.BookingView `json:"booking"`
	AccessLink string                `json:"access_link"`
}

type bookingListResponse struct {
	Bookings []contracts.BookingView `json:"bookings"`
	Count    int                     `json:"count"`
}

type uploadResponse struct {
	Images []string `json:"images"`
}

type customerView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

type customerAccessResponse struct {
	Token     string                `json:"token"`
	ExpiresAt time.Time             `json:"expires_at"`
	Customer  customerView          `json:"customer"`
	Booking   contracts.BookingView `json:"booking"`
}
