package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/taskdeck/internal/notification/usecase"
	"github.com/shandysiswandi/taskdeck/internal/pkg/instrument"
	"github.com/shandysiswandi/taskdeck/internal/pkg/messaging"
	"github.com/shandysiswandi/taskdeck/internal/pkg/uid"
	"github.com/shandysiswandi/taskdeck/internal/shared/event"
)

const keyOfCorrelationID string = "cID"

type MQHandler struct {
	uc   ucConsumer
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, headers []messaging.Header) context.Context {
	if cID := messaging.HeaderValue(headers, keyOfCorrelationID); cID != "" {
		return instrument.SetCorrelationID(ctx, cID)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

// VerificationCodeRequested never logs the message body, it carries the code.
func (h *MQHandler) VerificationCodeRequested(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg.Headers())

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "VerificationCodeRequested")
	defer span.End()

	var payload event.VerificationCodeRequestedMessage
	if err := json.Unmarshal(msg.Body(), &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of verification code requested", "msg_id", msg.ID(), "error", err)
		return nil
	}

	slog.InfoContext(ctx, "consume: verification code requested", "user_id", payload.UserID, "channel", payload.Channel)

	if err := h.uc.ConsumeVerificationCode(ctx, usecase.ConsumeVerificationCodeInput{
		UserID:      payload.UserID,
		PhoneNumber: payload.PhoneNumber,
		CountryCode: payload.CountryCode,
		PhoneHint:   payload.PhoneHint,
		Code:        payload.Code,
		Channel:     payload.Channel,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume verification code requested", "user_id", payload.UserID, "error", err)
		return err
	}

	return nil
}
