package entity

import "strings"

// Channel is how a verification code reaches the user.
type Channel int16

const (
	// ChannelUnknown is mean the channel is not set.
	ChannelUnknown Channel = 0

	// ChannelSMS delivers the code as a text message.
	ChannelSMS Channel = 1

	// ChannelCall reads the code out in a voice call.
	ChannelCall Channel = 2
)

func (c Channel) String() string {
	switch c {
	case ChannelSMS:
		return "sms"
	case ChannelCall:
		return "call"
	default:
		return "unknown"
	}
}

// ChannelFromString falls back to ChannelSMS for anything unrecognised.
func ChannelFromString(s string) Channel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "voice":
		return ChannelCall
	default:
		return ChannelSMS
	}
}

// Reasons sent as the error "code" field. Clients branch on them.
const (
	ReasonVerificationExpired = "VERIFICATION_EXPIRED"
	ReasonAccountNotFound     = "ACCOUNT_NOT_FOUND"
	ReasonTOTPNotConfigured   = "TOTP_NOT_CONFIGURED"
	ReasonSetupNotStarted     = "SETUP_NOT_STARTED"
)

// Redirect targets after a session is established.
const (
	RedirectApp     = "/app"
	RedirectAccount = "/account"
)
