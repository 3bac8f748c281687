package sms

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/twilio/twilio-go/twiml"
)

// ErrTwilioConfig is returned when credentials or the sender number are missing.
var ErrTwilioConfig = errors.New("sms: twilio account sid, auth token and from number are required")

// TwilioConfig configures the Twilio implementation.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	// From is the Twilio number messages and calls originate from.
	From string
	// Voice is the TwiML <Say> voice, "alice" when empty.
	Voice string
}

type twilioAPI interface {
	CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error)
	CreateCall(params *twilioapi.CreateCallParams) (*twilioapi.ApiV2010Call, error)
}

// Twilio is a Sender backed by the Twilio REST API.
type Twilio struct {
	api   twilioAPI
	from  string
	voice string
}

// NewTwilio builds a Twilio sender.
func NewTwilio(cfg TwilioConfig) (*Twilio, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" {
		return nil, ErrTwilioConfig
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return newTwilio(client.Api, cfg), nil
}

func newTwilio(api twilioAPI, cfg TwilioConfig) *Twilio {
	voice := cfg.Voice
	if voice == "" {
		voice = "alice"
	}
	return &Twilio{api: api, from: cfg.From, voice: voice}
}

// Message sends a text message.
func (t *Twilio) Message(ctx context.Context, msg Message) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	if err := validate(msg.To, msg.Body); err != nil {
		return Receipt{}, err
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(msg.To)
	params.SetFrom(t.from)
	params.SetBody(msg.Body)

	resp, err := t.api.CreateMessage(params)
	if err != nil {
		return Receipt{}, classify("message", err)
	}

	return Receipt{ID: deref(resp.Sid), Status: deref(resp.Status)}, nil
}

// Call places a voice call that reads call.Say once. Repeating the code is
// up to the caller's text.
func (t *Twilio) Call(ctx context.Context, call Call) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	if err := validate(call.To, call.Say); err != nil {
		return Receipt{}, err
	}

	doc, err := sayTwiML(t.voice, call.Say)
	if err != nil {
		return Receipt{}, err
	}

	params := &twilioapi.CreateCallParams{}
	params.SetTo(call.To)
	params.SetFrom(t.from)
	params.SetTwiml(doc)

	resp, err := t.api.CreateCall(params)
	if err != nil {
		return Receipt{}, classify("call", err)
	}

	return Receipt{ID: deref(resp.Sid), Status: deref(resp.Status)}, nil
}

func sayTwiML(voice, text string) (string, error) {
	doc, err := twiml.Voice([]twiml.Element{
		twiml.VoiceSay{Message: text, Voice: voice},
	})
	if err != nil {
		return "", fmt.Errorf("sms: build twiml: %w", err)
	}
	return doc, nil
}

// classify marks 4xx responses other than 429 as permanent.
func classify(op string, err error) error {
	var restErr *twilioclient.TwilioRestError
	if errors.As(err, &restErr) &&
		restErr.Status >= http.StatusBadRequest &&
		restErr.Status < http.StatusInternalServerError &&
		restErr.Status != http.StatusTooManyRequests {
		return fmt.Errorf("%w: twilio %s: %d %s", ErrRejected, op, restErr.Status, restErr.Message)
	}
	return fmt.Errorf("sms: twilio %s: %w", op, err)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
