package mq

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/shandysiswandi/taskdeck/internal/identity/usecase"
	"github.com/shandysiswandi/taskdeck/internal/pkg/instrument"
	"github.com/shandysiswandi/taskdeck/internal/pkg/messaging"
	"github.com/shandysiswandi/taskdeck/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishVerificationCodeRequested(ctx context.Context, msg usecase.VerificationCodeRequestedEvent) error {
	ctx, span := m.ins.Tracer("identity.outbound.mq").Start(ctx, "PublishVerificationCodeRequested")
	defer span.End()

	body, err := json.Marshal(event.VerificationCodeRequestedMessage{
		UserID:      msg.UserID,
		PhoneNumber: msg.PhoneNumber,
		CountryCode: msg.CountryCode,
		PhoneHint:   msg.PhoneHint,
		Code:        msg.Code,
		Channel:     msg.Channel.String(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	if _, err := m.client.Publish(ctx, event.VerificationCodeRequestedDestination, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(strconv.FormatInt(msg.UserID, 10)),
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(cID)}},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
