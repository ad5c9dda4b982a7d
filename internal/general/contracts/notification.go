package contracts

// NotificationKind names one of the three customer notifications.
type NotificationKind string

const (
	NotifyBookingConfirmation NotificationKind = "booking_confirmation"
	NotifyRecall              NotificationKind = "recall"
	NotifyArrival             NotificationKind = "arrival"
)

// Medium selects the delivery channel of a queued notification.
type Medium string

const (
	MediumSMS   Medium = "sms"
	MediumEmail Medium = "email"
)

// BookingConfirmation is sent once a vehicle is parked.
type BookingConfirmation struct {
	BookingID     string `json:"booking_id"`
	CustomerName  string `json:"customer_name"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	AccessLink    string `json:"access_link"`
	VehicleNumber string `json:"vehicle_number"`
	Venue         string `json:"venue,omitempty"`
}

// RecallNotice is sent when the driver commits to an ETA.
type RecallNotice struct {
	BookingID        string `json:"booking_id"`
	CustomerName     string `json:"customer_name"`
	Phone            string `json:"phone,omitempty"`
	Email            string `json:"email,omitempty"`
	EstimatedMinutes int    `json:"estimated_minutes"`
}

// ArrivalNotice carries the handover code.
type ArrivalNotice struct {
	BookingID    string `json:"booking_id"`
	CustomerName string `json:"customer_name"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	OTP          string `json:"otp"`
}

// NotificationCommand is the queued form of a notification.
// Exactly one of the payload pointers is set, matching Kind.
type NotificationCommand struct {
	Kind         NotificationKind     `json:"kind"`
	Medium       Medium               `json:"medium"`
	Confirmation *BookingConfirmation `json:"confirmation,omitempty"`
	Recall       *RecallNotice        `json:"recall,omitempty"`
	Arrival      *ArrivalNotice       `json:"arrival,omitempty"`
	Envelope
}
