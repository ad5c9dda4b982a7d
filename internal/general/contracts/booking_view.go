package contracts

import (
	"time"

	"valet/internal/domain/booking"
)

// BookingView is the wire shape of a booking. It never carries the access token
// or the live one-time code.
type BookingView struct {
	ID            string         `json:"id"`
	DriverID      string         `json:"driver_id"`
	Customer      CustomerView   `json:"customer"`
	Vehicle       VehicleView    `json:"vehicle"`
	Parking       ParkingView    `json:"parking"`
	Status        string         `json:"status"`
	Recall        RecallView     `json:"recall"`
	Verified      bool           `json:"verified"`
	OTPExpiry     *time.Time     `json:"otp_expiry,omitempty"`
	Payment       PaymentView    `json:"payment"`
	PaymentStatus string         `json:"payment_status"`
	Location      LocationView   `json:"location"`
	Notes         string         `json:"notes,omitempty"`
	Cancellation  *CancelledView `json:"cancellation,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type CustomerView struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type VehicleView struct {
	Type         string   `json:"type"`
	Number       string   `json:"number"`
	Model        string   `json:"model,omitempty"`
	Color        string   `json:"color,omitempty"`
	Images       []string `json:"images"`
	HasValuables bool     `json:"has_valuables"`
	Valuables    []string `json:"valuables"`
}

type ParkingView struct {
	StartTime                time.Time  `json:"start_time"`
	EstimatedDurationMinutes int        `json:"estimated_duration_minutes"`
	ActualEndTime            *time.Time `json:"actual_end_time,omitempty"`
}

type RecallView struct {
	RequestedAt             *time.Time `json:"requested_at,omitempty"`
	EstimatedArrivalMinutes *int       `json:"estimated_arrival_minutes,omitempty"`
	ArrivedAt               *time.Time `json:"arrived_at,omitempty"`
}

type PaymentView struct {
	Method string     `json:"method"`
	Amount *float64   `json:"amount,omitempty"`
	Status string     `json:"status"`
	PaidAt *time.Time `json:"paid_at,omitempty"`
}

type LocationView struct {
	ParkingSpot string `json:"parking_spot,omitempty"`
	Venue       string `json:"venue,omitempty"`
}

type CancelledView struct {
	Reason      string    `json:"reason,omitempty"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// NewBookingView maps a booking onto its wire shape.
func NewBookingView(b *booking.Booking) BookingView {
	v := BookingView{
		ID:       b.ID,
		DriverID: b.DriverID,
		Customer: CustomerView{
			Phone: b.Customer.Phone,
			Name:  b.Customer.Name,
			Email: b.Customer.Email,
		},
		Vehicle: VehicleView{
			Type:         b.Vehicle.Type.String(),
			Number:       b.Vehicle.Number,
			Model:        b.Vehicle.Model,
			Color:        b.Vehicle.Color,
			Images:       nonNil(b.Vehicle.ImageRefs),
			HasValuables: b.Vehicle.HasValuables,
			Valuables:    nonNil(b.Vehicle.Valuables),
		},
		Parking: ParkingView{
			StartTime:                b.Parking.StartTime,
			EstimatedDurationMinutes: b.Parking.EstimatedDurationMinutes,
			ActualEndTime:            b.Parking.ActualEndTime,
		},
		Status: b.Status.String(),
		Recall: RecallView{
			RequestedAt:             b.Recall.RequestedAt,
			EstimatedArrivalMinutes: b.Recall.EstimatedArrivalMinutes,
			ArrivedAt:               b.Recall.ArrivedAt,
		},
		Verified:  b.Verification.Verified,
		OTPExpiry: b.Verification.OTPExpiry,
		Payment: PaymentView{
			Method: string(b.Payment.Method),
			Amount: b.Payment.Amount,
			Status: string(b.Payment.Status),
			PaidAt: b.Payment.PaidAt,
		},
		PaymentStatus: string(b.PaymentStatus),
		Location: LocationView{
			ParkingSpot: b.Location.ParkingSpot,
			Venue:       b.Location.Venue,
		},
		Notes:     b.Notes,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if b.Cancellation != nil {
		v.Cancellation = &CancelledView{Reason: b.Cancellation.Reason, CancelledAt: b.Cancellation.CancelledAt}
	}
	return v
}

// NewBookingViews maps a list.
func NewBookingViews(list []*booking.Booking) []BookingView {
	out := make([]BookingView, 0, len(list))
	for _, b := range list {
		out = append(out, NewBookingView(b))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
