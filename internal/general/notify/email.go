package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"

	"valet/internal/general/config"
	"valet/internal/general/contracts"
	"valet/internal/general/logger"
	"valet/internal/ports"
)

var emailTemplates = template.Must(template.New("email").Parse(`
{{define "confirmation"}}<h2>Booking confirmed</h2>
<p>Hi <b>{{.Name}}</b>,</p>
<p>Your parking booking has been created.</p>
<hr/>
<p><b>Booking ID:</b> {{.BookingID}}</p>
<p><b>Vehicle No:</b> {{.VehicleNumber}}</p>
<p><b>Venue:</b> {{.Venue}}</p>
<p>Track and recall your car here: <a href="{{.AccessLink}}">{{.AccessLink}}</a></p>{{end}}
{{define "recall"}}<h2>Your car is on the way</h2>
<p>Hi <b>{{.Name}}</b>,</p>
<p><b>Booking ID:</b> {{.BookingID}}</p>
<p><b>Estimated arrival:</b> {{.EstimatedMinutes}} minutes</p>{{end}}
{{define "arrival"}}<h2>Your car has arrived</h2>
<p>Hi <b>{{.Name}}</b>,</p>
<p>Share this code with the driver to collect your car.</p>
<p><b>Booking ID:</b> {{.BookingID}}</p>
<h1 style="letter-spacing: 4px;">{{.OTP}}</h1>
<p>The code is valid for 10 minutes. Do not share it with anyone except the driver.</p>{{end}}
`))

// EmailSender delivers notifications through the Brevo transactional email API.
// Without an API key it runs in mock mode.
type EmailSender struct {
	client   *http.Client
	logger   *logger.Logger
	apiKey   string
	baseURL  string
	from     string
	fromName string
}

var _ ports.NotificationSink = (*EmailSender)(nil)

// NewEmailSender builds the sender from the notifications config. client may be nil.
func NewEmailSender(cfg *config.Config, logger *logger.Logger, client *http.Client) *EmailSender {
	if client == nil {
		client = http.DefaultClient
	}
	e := cfg.Notifications.Email
	return &EmailSender{
		client:   client,
		logger:   logger,
		apiKey:   e.APIKey,
		baseURL:  e.BaseURL,
		from:     e.From,
		fromName: e.FromName,
	}
}

func (s *EmailSender) Mock() bool {
	return s.apiKey == ""
}

func (s *EmailSender) SendBookingConfirmation(ctx context.Context, n contracts.BookingConfirmation) error {
	return s.render(ctx, n.Email, fmt.Sprintf("Booking confirmed (%s)", n.BookingID), "confirmation", map[string]any{
		"Name":          nameOrDefault(n.CustomerName),
		"BookingID":     n.BookingID,
		"VehicleNumber": orDash(n.VehicleNumber),
		"Venue":         orDash(n.Venue),
		"AccessLink":    n.AccessLink,
	})
}

func (s *EmailSender) SendRecallNotification(ctx context.Context, n contracts.RecallNotice) error {
	return s.render(ctx, n.Email, fmt.Sprintf("Your car is on the way (%s)", n.BookingID), "recall", map[string]any{
		"Name":             nameOrDefault(n.CustomerName),
		"BookingID":        n.BookingID,
		"EstimatedMinutes": n.EstimatedMinutes,
	})
}

func (s *EmailSender) SendArrivalNotification(ctx context.Context, n contracts.ArrivalNotice) error {
	return s.render(ctx, n.Email, fmt.Sprintf("Code for car handover (%s)", n.BookingID), "arrival", map[string]any{
		"Name":      nameOrDefault(n.CustomerName),
		"BookingID": n.BookingID,
		"OTP":       n.OTP,
	})
}

func (s *EmailSender) render(ctx context.Context, to, subject, tmpl string, data map[string]any) error {
	if strings.TrimSpace(to) == "" {
		return nil
	}
	var html bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&html, tmpl, data); err != nil {
		return fmt.Errorf("render %s email: %w", tmpl, err)
	}
	return s.Send(ctx, to, subject, html.String())
}

type brevoAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoMessage struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

// Send posts one email. A blank recipient is a no-op.
func (s *EmailSender) Send(ctx context.Context, to, subject, html string) error {
	if strings.TrimSpace(to) == "" {
		return nil
	}
	if s.Mock() {
		s.logger.Info(ctx, "email_mock", "Email API not configured; email not sent",
			map[string]any{"to": to, "subject": subject})
		return nil
	}

	body, err := json.Marshal(brevoMessage{
		Sender:      brevoAddress{Name: s.fromName, Email: s.from},
		To:          []brevoAddress{{Email: to}},
		Subject:     subject,
		HTMLContent: html,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("email: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("email: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("email: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	s.logger.Debug(ctx, "email_sent", "Email sent", map[string]any{"to": to, "subject": subject})
	return nil
}

func nameOrDefault(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Customer"
	}
	return name
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
