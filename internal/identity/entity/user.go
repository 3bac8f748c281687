package entity

import (
	"strings"
	"time"
	"unicode"
)

type User struct {
	ID                    int64
	Username              string
	Email                 string
	PasswordHash          string
	PhoneNumber           string
	CountryCode           string
	MustUpdateCredentials bool
	IsAdmin               bool
	TOTPSecret            []byte
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// HasPhone reports whether a code can be delivered to the user.
func (u User) HasPhone() bool {
	return strings.TrimSpace(u.PhoneNumber) != ""
}

// HasTOTP reports whether an authenticator secret is on file.
func (u User) HasTOTP() bool {
	return len(u.TOTPSecret) > 0
}

// Redirect is where the user lands after signing in.
func (u User) Redirect() string {
	if u.MustUpdateCredentials {
		return RedirectAccount
	}
	return RedirectApp
}

type NewUser struct {
	ID                    int64
	Username              string
	Email                 string
	PasswordHash          string
	PhoneNumber           string
	CountryCode           string
	MustUpdateCredentials bool
	IsAdmin               bool
	TOTPSecret            []byte
}

// PhoneHint masks a phone number as +<cc>…<last4>. The country code is
// kept as given apart from a leading plus, and only digits of the number
// count towards the last four.
func PhoneHint(countryCode, number string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, number)
	if digits == "" {
		return ""
	}

	last := digits
	if len(last) > 4 {
		last = last[len(last)-4:]
	}

	cc := strings.TrimPrefix(strings.TrimSpace(countryCode), "+")
	return "+" + cc + "…" + last
}

// AccountUpdate is a change of credentials from the account page. An empty
// PasswordHash or nil TOTPSecret keeps the stored value, and
// MustUpdateCredentials is always cleared.
type AccountUpdate struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	TOTPSecret   []byte
}

// OAuthProfile is what an external provider tells about the signed-in user.
type OAuthProfile struct {
	Email             string
	Name              string
	PreferredUsername string
}

// UsernameBase turns a display name into a username candidate: lowercase
// letters, digits, dots, dashes and underscores, "user" when nothing is
// left. Longer names are cut to leave room for a numeric suffix.
func UsernameBase(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.' {
			b.WriteRune(r)
		}
	}

	base := b.String()
	if base == "" {
		return "user"
	}
	if runes := []rune(base); len(runes) > 28 {
		base = string(runes[:28])
	}
	return base
}
