package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"valet/internal/general/config"
	"valet/internal/general/contracts"
	"valet/internal/general/logger"
)

type recordedRequest struct {
	Method string
	Query  url.Values
	Header http.Header
	Body   []byte
}

func recorder(t *testing.T, status int) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{Method: r.Method, Query: r.URL.Query(), Header: r.Header.Clone(), Body: body})
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), reqs...)
	}
}

func smsConfig(baseURL, key string) *config.Config {
	cfg := &config.Config{}
	cfg.Notifications.MSG91.AuthKey = key
	cfg.Notifications.MSG91.SenderID = "VALETP"
	cfg.Notifications.MSG91.BaseURL = baseURL
	return cfg
}

func emailConfig(baseURL, key string) *config.Config {
	cfg := &config.Config{}
	cfg.Notifications.Email.APIKey = key
	cfg.Notifications.Email.BaseURL = baseURL
	cfg.Notifications.Email.From = "no-reply@valet.local"
	cfg.Notifications.Email.FromName = "Valet Parking"
	return cfg
}

func TestFormatIndianMobile(t *testing.T) {
	tests := map[string]string{
		"9000000001":      "919000000001",
		"+91 90000 00001": "919000000001",
		"919000000001":    "919000000001",
		"":                "",
		"+44 7700 900123": "447700900123",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatIndianMobile(in), in)
	}
}

func TestSMSSenderSendsArrivalCode(t *testing.T) {
	srv, requests := recorder(t, http.StatusOK)
	s := NewSMSSender(smsConfig(srv.URL, "auth-1"), logger.Nop(), srv.Client())

	err := s.SendArrivalNotification(context.Background(), contracts.ArrivalNotice{
		BookingID: "VLT123456780001", Phone: "9000000001", OTP: "000042",
	})
	require.NoError(t, err)

	reqs := requests()
	require.Len(t, reqs, 1)
	q := reqs[0].Query
	assert.Equal(t, http.MethodGet, reqs[0].Method)
	assert.Equal(t, "auth-1", q.Get("authkey"))
	assert.Equal(t, "919000000001", q.Get("mobiles"))
	assert.Equal(t, "VALETP", q.Get("sender"))
	assert.Equal(t, "4", q.Get("route"))
	assert.Equal(t, "91", q.Get("country"))
	assert.Contains(t, q.Get("message"), "000042")
}

func TestSMSSenderReportsProviderFailure(t *testing.T) {
	srv, _ := recorder(t, http.StatusUnauthorized)
	s := NewSMSSender(smsConfig(srv.URL, "bad"), logger.Nop(), srv.Client())

	err := s.SendRecallNotification(context.Background(), contracts.RecallNotice{BookingID: "B", Phone: "9000000001", EstimatedMinutes: 15})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestSMSSenderMockModeSkipsNetwork(t *testing.T) {
	srv, requests := recorder(t, http.StatusOK)
	s := NewSMSSender(smsConfig(srv.URL, ""), logger.Nop(), srv.Client())
	require.True(t, s.Mock())

	require.NoError(t, s.SendBookingConfirmation(context.Background(), contracts.BookingConfirmation{BookingID: "B", Phone: "9000000001"}))
	assert.Empty(t, requests())
}

func TestSMSSenderBlankPhoneIsNoop(t *testing.T) {
	srv, requests := recorder(t, http.StatusOK)
	s := NewSMSSender(smsConfig(srv.URL, "auth-1"), logger.Nop(), srv.Client())

	require.NoError(t, s.Send(context.Background(), " ", "hello"))
	assert.Empty(t, requests())
}

func TestEmailSenderPostsConfirmation(t *testing.T) {
	srv, requests := recorder(t, http.StatusCreated)
	s := NewEmailSender(emailConfig(srv.URL, "key-1"), logger.Nop(), srv.Client())

	err := s.SendBookingConfirmation(context.Background(), contracts.BookingConfirmation{
		BookingID:     "VLT123456780001",
		CustomerName:  "Asha <b>",
		Email:         "asha@example.com",
		AccessLink:    "http://localhost:3000/customer/access/abc",
		VehicleNumber: "KA01AB1234",
	})
	require.NoError(t, err)

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "key-1", reqs[0].Header.Get("api-key"))
	assert.Equal(t, "application/json", reqs[0].Header.Get("Content-Type"))

	var msg brevoMessage
	require.NoError(t, json.Unmarshal(reqs[0].Body, &msg))
	assert.Equal(t, brevoAddress{Name: "Valet Parking", Email: "no-reply@valet.local"}, msg.Sender)
	assert.Equal(t, []brevoAddress{{Email: "asha@example.com"}}, msg.To)
	assert.Equal(t, "Booking confirmed (VLT123456780001)", msg.Subject)
	assert.Contains(t, msg.HTMLContent, "KA01AB1234")
	assert.Contains(t, msg.HTMLContent, "http://localhost:3000/customer/access/abc")
	assert.Contains(t, msg.HTMLContent, "Asha &lt;b&gt;")
	assert.Contains(t, msg.HTMLContent, "<b>Venue:</b> -")
}

func TestEmailSenderSkipsCustomersWithoutEmail(t *testing.T) {
	srv, requests := recorder(t, http.StatusOK)
	s := NewEmailSender(emailConfig(srv.URL, "key-1"), logger.Nop(), srv.Client())

	require.NoError(t, s.SendArrivalNotification(context.Background(), contracts.ArrivalNotice{BookingID: "B", OTP: "123456"}))
	assert.Empty(t, requests())
}

func TestEmailSenderReportsProviderFailure(t *testing.T) {
	srv, _ := recorder(t, http.StatusBadRequest)
	s := NewEmailSender(emailConfig(srv.URL, "key-1"), logger.Nop(), srv.Client())

	err := s.SendRecallNotification(context.Background(), contracts.RecallNotice{BookingID: "B", Email: "a@b.c", EstimatedMinutes: 5})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "email: status 400"))
}

func TestEmailSenderMockMode(t *testing.T) {
	srv, requests := recorder(t, http.StatusOK)
	s := NewEmailSender(emailConfig(srv.URL, ""), logger.Nop(), srv.Client())

	require.NoError(t, s.SendArrivalNotification(context.Background(), contracts.ArrivalNotice{BookingID: "B", Email: "a@b.c", OTP: "123456"}))
	assert.Empty(t, requests())
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishMessage(ctx context.Context, exchange, routingKey string, body []byte) error {
	return m.Called(ctx, exchange, routingKey, body).Error(0)
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) SendBookingConfirmation(ctx context.Context, n contracts.BookingConfirmation) error {
	return m.Called(ctx, n).Error(0)
}

func (m *mockSink) SendRecallNotification(ctx context.Context, n contracts.RecallNotice) error {
	return m.Called(ctx, n).Error(0)
}

func (m *mockSink) SendArrivalNotification(ctx context.Context, n contracts.ArrivalNotice) error {
	return m.Called(ctx, n).Error(0)
}

func TestQueueSinkRoundTripsThroughApply(t *testing.T) {
	pub := &mockPublisher{}
	var body []byte
	pub.On("PublishMessage", mock.Anything, contracts.ExchangeNotifications, contracts.RouteNotifySend, mock.Anything).
		Run(func(args mock.Arguments) { body = args.Get(3).([]byte) }).
		Return(nil).Once()

	q := NewQueueSink(pub, contracts.MediumEmail, "booking-service")
	ctx := logger.Nop().WithRequestID(context.Background(), "req-1")
	notice := contracts.RecallNotice{BookingID: "B1", Email: "a@b.c", EstimatedMinutes: 15}
	require.NoError(t, q.SendRecallNotification(ctx, notice))
	pub.AssertExpectations(t)

	var cmd contracts.NotificationCommand
	require.NoError(t, json.Unmarshal(body, &cmd))
	assert.Equal(t, contracts.NotifyRecall, cmd.Kind)
	assert.Equal(t, contracts.MediumEmail, cmd.Medium)
	assert.Equal(t, "req-1", cmd.CorrelationID)
	assert.Equal(t, "booking-service", cmd.Producer)

	sink := &mockSink{}
	sink.On("SendRecallNotification", mock.Anything, notice).Return(nil).Once()
	require.NoError(t, Apply(context.Background(), sink, cmd))
	sink.AssertExpectations(t)
}

func TestApplyRejectsMismatchedPayload(t *testing.T) {
	sink := &mockSink{}
	err := Apply(context.Background(), sink, contracts.NotificationCommand{Kind: contracts.NotifyArrival})
	assert.ErrorIs(t, err, ErrMalformedCommand)
	err = Apply(context.Background(), sink, contracts.NotificationCommand{Kind: "other", Recall: &contracts.RecallNotice{}})
	assert.ErrorIs(t, err, ErrMalformedCommand)
	sink.AssertNotCalled(t, "SendArrivalNotification", mock.Anything, mock.Anything)
}
