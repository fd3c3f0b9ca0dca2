package mq

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/posture/internal/pkg/instrument"
	"github.com/shandysiswandi/posture/internal/pkg/messaging"
	"github.com/shandysiswandi/posture/internal/shared/event"
	"github.com/shandysiswandi/posture/internal/twofactor/usecase"
	"go.opentelemetry.io/otel/codes"
)

const (
	keyOfCorrelationID string = "cID"
	methodTOTP         string = "totp"
)

type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation) *Messaging {
	if ins == nil {
		ins = instrument.NewNoop()
	}
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishTOTPEnabled(ctx context.Context, msg usecase.EnrollmentEvent) error {
	return m.publish(ctx, "PublishTOTPEnabled", event.TwoFactorEnabledDestination, msg)
}

func (m *Messaging) PublishTOTPDisabled(ctx context.Context, msg usecase.EnrollmentEvent) error {
	return m.publish(ctx, "PublishTOTPDisabled", event.TwoFactorDisabledDestination, msg)
}

func (m *Messaging) publish(ctx context.Context, span, destination string, msg usecase.EnrollmentEvent) error {
	ctx, sp := m.ins.Tracer("twofactor.outbound.mq").Start(ctx, span)
	defer sp.End()

	body, err := json.Marshal(event.TwoFactorMessage{
		Identity:   msg.Identity,
		Method:     methodTOTP,
		OccurredAt: msg.OccurredAt.Unix(),
	})
	if err != nil {
		sp.RecordError(err)
		sp.SetStatus(codes.Error, err.Error())
		return err
	}

	if _, err := m.client.Publish(ctx, destination, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(msg.Identity),
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: instrument.GetCorrelationID(ctx)}},
	}); err != nil {
		sp.RecordError(err)
		sp.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
