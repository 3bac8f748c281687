package entity

import (
	"strings"
	"time"
	"unicode"

	"github.com/shandysiswandi/taskdeck/internal/pkg/valueobject"
)

// Delivery tracks getting one verification code to a phone. The code
// itself is never stored.
type Delivery struct {
	ID               int64
	UserID           int64
	Channel          Channel
	PhoneHint        string
	Status           DeliveryStatus
	Attempts         int
	ProviderRef      string
	ProviderResponse valueobject.JSONMap
	CorrelationID    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type CreateDelivery struct {
	ID            int64
	UserID        int64
	Channel       Channel
	PhoneHint     string
	CorrelationID string
}

type UpdateDelivery struct {
	ID               int64
	Status           DeliveryStatus
	Attempts         int
	ProviderRef      string
	ProviderResponse valueobject.JSONMap
}

func digitsOf(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// E164 joins a country code and a local number into +<cc><digits>. A
// number that already starts with + only loses its separators.
func E164(countryCode, number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, "+") {
		return "+" + digitsOf(number)
	}

	local := digitsOf(number)
	if local == "" {
		return ""
	}
	return "+" + digitsOf(countryCode) + local
}

// SpokenDigits spaces out a code so a voice reads it digit by digit.
func SpokenDigits(code string) string {
	return strings.Join(strings.Split(digitsOf(code), ""), " ")
}
