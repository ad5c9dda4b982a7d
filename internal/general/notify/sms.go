package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"valet/internal/general/config"
	"valet/internal/general/contracts"
	"valet/internal/general/logger"
	"valet/internal/ports"
)

// SMSSender delivers notifications as text messages through MSG91. Without an
// auth key and sender id it runs in mock mode and only logs what it would send.
type SMSSender struct {
	client   *http.Client
	logger   *logger.Logger
	authKey  string
	senderID string
	baseURL  string
}

var _ ports.NotificationSink = (*SMSSender)(nil)

// NewSMSSender builds the sender from the notifications config. client may be nil.
func NewSMSSender(cfg *config.Config, logger *logger.Logger, client *http.Client) *SMSSender {
	if client == nil {
		client = http.DefaultClient
	}
	n := cfg.Notifications.MSG91
	return &SMSSender{
		client:   client,
		logger:   logger,
		authKey:  n.AuthKey,
		senderID: n.SenderID,
		baseURL:  n.BaseURL,
	}
}

// Mock reports whether the sender only logs.
func (s *SMSSender) Mock() bool {
	return s.authKey == "" || s.senderID == ""
}

func (s *SMSSender) SendBookingConfirmation(ctx context.Context, n contracts.BookingConfirmation) error {
	return s.Send(ctx, n.Phone, fmt.Sprintf("Valet: your booking %s is confirmed. Track and recall your car: %s",
		n.BookingID, n.AccessLink))
}

func (s *SMSSender) SendRecallNotification(ctx context.Context, n contracts.RecallNotice) error {
	return s.Send(ctx, n.Phone, fmt.Sprintf("Valet: your car (%s) will arrive in %d minutes.",
		n.BookingID, n.EstimatedMinutes))
}

func (s *SMSSender) SendArrivalNotification(ctx context.Context, n contracts.ArrivalNotice) error {
	return s.Send(ctx, n.Phone, fmt.Sprintf("Valet: your car has arrived. Your verification OTP: %s. Valid for 10 minutes. Do not share this code.",
		n.OTP))
}

// Send texts message to phone. A blank phone is a no-op.
func (s *SMSSender) Send(ctx context.Context, phone, message string) error {
	to := FormatIndianMobile(phone)
	if to == "" {
		return nil
	}
	if s.Mock() {
		s.logger.Info(ctx, "sms_mock", "MSG91 not configured; SMS not sent", map[string]any{"to": to, "message": message})
		return nil
	}

	q := url.Values{}
	q.Set("authkey", s.authKey)
	q.Set("mobiles", to)
	q.Set("message", message)
	q.Set("sender", s.senderID)
	q.Set("route", "4") // transactional
	q.Set("country", "91")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("msg91: build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("msg91: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("msg91: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	s.logger.Debug(ctx, "sms_sent", "SMS sent", map[string]any{"to": to})
	return nil
}

// FormatIndianMobile keeps the digits of phone and prefixes the 91 country code
// to bare 10-digit numbers.
func FormatIndianMobile(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 10 {
		return "91" + digits
	}
	return digits
}
