package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/posture/internal/pkg/instrument"
	"github.com/shandysiswandi/posture/internal/pkg/messaging"
	"github.com/shandysiswandi/posture/internal/shared/event"
	"github.com/shandysiswandi/posture/internal/twofactor/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, destination string, msg messaging.OutgoingMessage) (messaging.PublishResult, error) {
	args := m.Called(ctx, destination, msg)
	return args.Get(0).(messaging.PublishResult), args.Error(1)
}

func (m *mockPublisher) Close() error { return nil }

func TestMessaging_PublishTOTPEnabled(t *testing.T) {
	pub := &mockPublisher{}
	m := NewMessaging(pub, nil)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	var sent messaging.OutgoingMessage
	pub.On("Publish", mock.Anything, event.TwoFactorEnabledDestination, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(2).(messaging.OutgoingMessage) }).
		Return(messaging.PublishResult{}, nil).Once()

	ctx := instrument.SetCorrelationID(context.Background(), "cid-42")
	require.NoError(t, m.PublishTOTPEnabled(ctx, usecase.EnrollmentEvent{Identity: "user-1", OccurredAt: at}))
	pub.AssertExpectations(t)

	var body event.TwoFactorMessage
	require.NoError(t, json.Unmarshal(sent.Body, &body))
	assert.Equal(t, event.TwoFactorMessage{Identity: "user-1", Method: "totp", OccurredAt: at.Unix()}, body)
	assert.Equal(t, []byte("user-1"), sent.Key)
	assert.Equal(t, []messaging.Header{{Key: "cID", Value: "cid-42"}}, sent.Headers)
}

func TestMessaging_PublishTOTPDisabledError(t *testing.T) {
	pub := &mockPublisher{}
	m := NewMessaging(pub, nil)
	boom := errors.New("broker unavailable")

	pub.On("Publish", mock.Anything, event.TwoFactorDisabledDestination, mock.Anything).
		Return(messaging.PublishResult{}, boom).Once()

	err := m.PublishTOTPDisabled(context.Background(), usecase.EnrollmentEvent{Identity: "user-1"})
	assert.ErrorIs(t, err, boom)
}
