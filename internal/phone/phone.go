// Package phone canonicalizes user-supplied phone numbers into the
// +<countrycode><digits> form stored and broadcast by the bot.
package phone

import (
	"errors"
	"strings"
)

// ErrFormat is returned when the input cannot be mapped to a canonical number.
var ErrFormat = errors.New("phone: unrecognized format")

// Source tells the normalizer where the raw value came from. Contact values
// are platform-verified and trusted more than free text.
type Source int

const (
	SourceText Source = iota
	SourceContact
)

const (
	// countryCode is the default calling code prefixed to local numbers.
	countryCode = "998"
	// trunkDigit marks a secondary supported country's domestic format.
	trunkDigit = "8"
	// trunkCountryCode replaces the trunk digit for that country.
	trunkCountryCode = "7"
	// localDigits is the length of a subscriber number without country code.
	localDigits = 9
)

// Normalize maps raw input to a canonical phone number.
// Rules are ordered; the first match wins.
func Normalize(raw string, src Source) (string, error) {
	if src == SourceContact {
		return fromContact(raw), nil
	}
	return fromText(raw)
}

// fromContact trusts the platform-supplied value and only fixes the prefix.
// It cannot fail: a contact number is self-reporting.
func fromContact(raw string) string {
	switch {
	case strings.HasPrefix(raw, "+"):
		return raw
	case strings.HasPrefix(raw, countryCode):
		return "+" + raw
	default:
		digits := digitsOnly(raw)
		if len(digits) > localDigits {
			digits = digits[len(digits)-localDigits:]
		}
		return "+" + countryCode + digits
	}
}

func fromText(raw string) (string, error) {
	digits := digitsOnly(raw)
	switch {
	case len(digits) == localDigits:
		return "+" + countryCode + digits, nil
	case len(digits) == 12 && strings.HasPrefix(digits, countryCode):
		return "+" + digits, nil
	// A stray duplicated leading digit is tolerated on purpose.
	case len(digits) == 13 && strings.HasPrefix(digits, countryCode):
		return "+" + digits, nil
	case len(digits) == 10 && strings.HasPrefix(digits, trunkDigit):
		return "+" + trunkCountryCode + digits[1:], nil
	case strings.HasPrefix(raw, "+"):
		return raw, nil
	}
	return "", ErrFormat
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
