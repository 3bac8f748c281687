package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/shandysiswandi/taskdeck/internal/pkg/stacktrace"
)

// callHandler runs fn and turns a panic into an error so one poisoned
// message cannot take down the consumer.
func callHandler(ctx context.Context, driver string, fn func() error) (err error) {
	defer func() {
		rvr := recover()
		if rvr == nil {
			return
		}

		stack := debug.Stack()
		slog.ErrorContext(ctx, "panic in messaging handler",
			"driver", driver,
			"panic", rvr,
			"stack", stacktrace.Frames(stack),
		)
		err = fmt.Errorf("messaging: panic in %s handler: %v", driver, rvr)
	}()

	return fn()
}

// settle applies the auto-ack policy once the handler has returned.
func settle(ctx context.Context, msg interface {
	Ack(context.Context) error
	Nack(context.Context) error
	hasResponded() bool
}, autoAck bool, handlerErr error) error {
	if !autoAck || msg.hasResponded() {
		return nil
	}
	if handlerErr == nil {
		return msg.Ack(ctx)
	}
	return msg.Nack(ctx)
}
