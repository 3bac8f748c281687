package mfa

type Purpose string

const (
	// PurposeTOTPSecret seals a user's authenticator secret in the users table.
	PurposeTOTPSecret Purpose = "totp_secret"
	// PurposeSetupSecret seals the not-yet-confirmed secret of first-time
	// setup while it waits in Redis. UserID is zero for it.
	PurposeSetupSecret Purpose = "setup_secret"
)

// Scope is bound to the ciphertext as AES-GCM additional data.
type Scope struct {
	UserID  int64
	Purpose Purpose
}
