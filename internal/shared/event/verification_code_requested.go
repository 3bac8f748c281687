package event

const VerificationCodeRequestedDestination string = "identity.verification_code.requested"
const VerificationCodeRequestedConsumerNotification string = "verification_code_requested_notification"

// Delivery channels for a verification code.
const (
	ChannelSMS  string = "sms"
	ChannelCall string = "call"
)

type VerificationCodeRequestedMessage struct {
	UserID      int64  `json:"user_id,string"`
	PhoneNumber string `json:"phone_number"`
	CountryCode string `json:"country_code"`
	PhoneHint   string `json:"phone_hint"`
	Code        string `json:"code"`
	Channel     string `json:"channel"`
}
