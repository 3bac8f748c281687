package sender

import (
	"context"

	"github.com/shandysiswandi/taskdeck/internal/pkg/instrument"
	"github.com/shandysiswandi/taskdeck/internal/pkg/sms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Sender traces deliveries made through an sms.Sender.
type Sender struct {
	client sms.Sender
	ins    instrument.Instrumentation
}

func New(client sms.Sender, ins instrument.Instrumentation) *Sender {
	return &Sender{client: client, ins: ins}
}

func (s *Sender) finish(span trace.Span, rec sms.Receipt, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.String("sms.provider_ref", rec.ID))
	}
	span.End()
}

func (s *Sender) Message(ctx context.Context, msg sms.Message) (rec sms.Receipt, err error) {
	ctx, span := s.ins.Tracer("notification.outbound.sender").Start(ctx, "Message")
	defer func() { s.finish(span, rec, err) }()

	return s.client.Message(ctx, msg)
}

func (s *Sender) Call(ctx context.Context, call sms.Call) (rec sms.Receipt, err error) {
	ctx, span := s.ins.Tracer("notification.outbound.sender").Start(ctx, "Call")
	defer func() { s.finish(span, rec, err) }()

	return s.client.Call(ctx, call)
}
