package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"valet/internal/general/contracts"
	"valet/internal/general/logger"
	"valet/internal/general/notify"
)

type replayConsumer struct {
	deliveries []amqp.Delivery
	results    []error
	queue      string
}

func (c *replayConsumer) ConsumeForever(ctx context.Context, queue, _ string, _ int, handler func(context.Context, amqp.Delivery) error) {
	c.queue = queue
	for _, d := range c.deliveries {
		c.results = append(c.results, handler(ctx, d))
	}
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) SendBookingConfirmation(ctx context.Context, n contracts.BookingConfirmation) error {
	return m.Called(n).Error(0)
}

func (m *mockSink) SendRecallNotification(ctx context.Context, n contracts.RecallNotice) error {
	return m.Called(n).Error(0)
}

func (m *mockSink) SendArrivalNotification(ctx context.Context, n contracts.ArrivalNotice) error {
	return m.Called(n).Error(0)
}

func command(t *testing.T, cmd contracts.NotificationCommand) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(cmd)
	require.NoError(t, err)
	return amqp.Delivery{RoutingKey: contracts.RouteNotifySend, Body: body}
}

func TestCommandsRouteByMedium(t *testing.T) {
	sms, email := &mockSink{}, &mockSink{}
	arrival := contracts.ArrivalNotice{BookingID: "VLT1", Phone: "9000000001", OTP: "000042"}
	recall := contracts.RecallNotice{BookingID: "VLT1", Email: "asha@example.com", EstimatedMinutes: 7}
	sms.On("SendArrivalNotification", arrival).Return(nil).Once()
	email.On("SendRecallNotification", recall).Return(nil).Once()

	consumer := &replayConsumer{deliveries: []amqp.Delivery{
		command(t, contracts.NotificationCommand{Kind: contracts.NotifyArrival, Medium: contracts.MediumSMS, Arrival: &arrival}),
		command(t, contracts.NotificationCommand{Kind: contracts.NotifyRecall, Medium: contracts.MediumEmail, Recall: &recall}),
	}}
	svc := NewNotificationService(consumer, logger.Nop(), 4,
		WithSender(contracts.MediumSMS, sms),
		WithSender(contracts.MediumEmail, email),
	)
	svc.Run(context.Background())

	assert.Equal(t, contracts.QueueNotifications, consumer.queue)
	assert.Equal(t, []error{nil, nil}, consumer.results)
	assert.Equal(t, Stats{Delivered: 2}, svc.Stats())
	sms.AssertExpectations(t)
	email.AssertExpectations(t)
}

func TestBadCommandsAreDropped(t *testing.T) {
	sms := &mockSink{}
	confirmation := contracts.BookingConfirmation{BookingID: "VLT1", Phone: "9000000001"}
	sms.On("SendBookingConfirmation", confirmation).Return(errors.New("msg91: status 500")).Once()

	consumer := &replayConsumer{deliveries: []amqp.Delivery{
		{Body: []byte("{")},
		command(t, contracts.NotificationCommand{Kind: contracts.NotifyArrival, Medium: contracts.MediumEmail}),
		command(t, contracts.NotificationCommand{Kind: contracts.NotifyArrival, Medium: contracts.MediumSMS}),
		command(t, contracts.NotificationCommand{Kind: contracts.NotifyBookingConfirmation, Medium: contracts.MediumSMS, Confirmation: &confirmation}),
	}}
	svc := NewNotificationService(consumer, logger.Nop(), 1, WithSender(contracts.MediumSMS, sms))
	svc.Run(context.Background())

	require.Len(t, consumer.results, 4)
	for _, err := range consumer.results {
		assert.Error(t, err)
	}
	assert.ErrorIs(t, consumer.results[1], notify.ErrMalformedCommand)
	assert.ErrorIs(t, consumer.results[2], notify.ErrMalformedCommand)
	assert.Equal(t, Stats{Failed: 2, Rejected: 2}, svc.Stats())
	sms.AssertExpectations(t)
}
