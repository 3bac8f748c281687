package entity

import "time"

// PendingLogin is a started two-step login waiting for its code. It is
// stored under the HMAC of the token handed to the client.
type PendingLogin struct {
	UserID    int64     `json:"user_id,string"`
	CodeHash  string    `json:"code_hash"`
	PhoneHint string    `json:"phone_hint"`
	Channel   Channel   `json:"channel"`
	Attempts  int       `json:"attempts"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the pending login can no longer be verified.
func (p PendingLogin) Expired(now time.Time, maxAttempts int) bool {
	if !now.Before(p.ExpiresAt) {
		return true
	}
	return maxAttempts > 0 && p.Attempts >= maxAttempts
}

// SetupSession holds a sealed authenticator secret until the first code
// confirms it, for first-time setup and for the account page.
type SetupSession struct {
	Secret          []byte    `json:"secret"`
	ProvisioningURI string    `json:"provisioning_uri,omitempty"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// Session is a signed session token and when it stops being accepted.
type Session struct {
	Token     string
	ExpiresAt time.Time
}
