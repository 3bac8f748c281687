package sms

import (
	"context"
	"log/slog"
	"strconv"

	"go.uber.org/atomic"
)

// Log is a Sender that writes every delivery to the default slog logger.
type Log struct {
	seq atomic.Uint64
}

// NewLog returns a logging Sender.
func NewLog() *Log { return &Log{} }

func (l *Log) Message(ctx context.Context, msg Message) (Receipt, error) {
	if err := validate(msg.To, msg.Body); err != nil {
		return Receipt{}, err
	}

	id := "log-" + strconv.FormatUint(l.seq.Inc(), 10)
	slog.InfoContext(ctx, "sms message", "sms_id", id, "to", msg.To, "body", msg.Body)
	return Receipt{ID: id, Status: "logged"}, nil
}

func (l *Log) Call(ctx context.Context, call Call) (Receipt, error) {
	if err := validate(call.To, call.Say); err != nil {
		return Receipt{}, err
	}

	id := "log-" + strconv.FormatUint(l.seq.Inc(), 10)
	slog.InfoContext(ctx, "sms voice call", "sms_id", id, "to", call.To, "say", call.Say)
	return Receipt{ID: id, Status: "logged"}, nil
}
