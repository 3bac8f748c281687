package sms

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	// DriverTwilio selects the Twilio implementation.
	DriverTwilio = "twilio"
	// DriverLog selects the logging implementation.
	DriverLog = "log"
)

var (
	// ErrNoRecipient is returned when the destination number is empty.
	ErrNoRecipient = errors.New("sms: recipient is required")
	// ErrEmptyBody is returned when there is nothing to send or say.
	ErrEmptyBody = errors.New("sms: body is required")
	// ErrRejected wraps provider errors that will not succeed on retry,
	// such as an invalid or unreachable number.
	ErrRejected = errors.New("sms: rejected by provider")
	// ErrUnknownDriver indicates an unsupported sms driver.
	ErrUnknownDriver = errors.New("sms: unknown driver")
)

// Message is a text message.
type Message struct {
	To   string
	Body string
}

// Call is a voice call that reads Say aloud.
type Call struct {
	To  string
	Say string
}

// Receipt identifies an accepted delivery.
type Receipt struct {
	// ID is the provider reference (the Twilio SID).
	ID     string
	Status string
}

// Sender delivers messages and calls.
type Sender interface {
	Message(ctx context.Context, msg Message) (Receipt, error)
	Call(ctx context.Context, call Call) (Receipt, error)
}

// Config selects and configures a Sender.
type Config struct {
	Driver string
	Twilio TwilioConfig
}

// New constructs a Sender by driver name.
func New(cfg Config) (Sender, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverTwilio:
		return NewTwilio(cfg.Twilio)
	case DriverLog, "":
		return NewLog(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// IsTransient reports whether a delivery error is worth retrying.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return !errors.Is(err, ErrRejected) && !errors.Is(err, ErrNoRecipient) && !errors.Is(err, ErrEmptyBody)
}

func validate(to, body string) error {
	if strings.TrimSpace(to) == "" {
		return ErrNoRecipient
	}
	if strings.TrimSpace(body) == "" {
		return ErrEmptyBody
	}
	return nil
}
