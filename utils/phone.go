package utils

import (
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D`)

// DigitsOnly strips everything but 0-9.
func DigitsOnly(phone string) string {
	return nonDigits.ReplaceAllString(phone, "")
}

// FormatPhoneNumber normalizes a Saudi number to +966 form.
// Numbers that are not recognizably Saudi are returned as +<digits>.
func FormatPhoneNumber(phone string) string {
	clean := DigitsOnly(phone)

	switch {
	case strings.HasPrefix(clean, "966"):
		return "+" + clean
	case strings.HasPrefix(clean, "05"):
		return "+966" + clean[1:]
	case len(clean) == 9 && strings.HasPrefix(clean, "5"):
		return "+966" + clean
	}
	return "+" + clean
}

// ValidateSaudiPhone accepts 05xxxxxxxx, 5xxxxxxxx and 9665xxxxxxxx,
// ignoring any non-digit characters such as a leading +.
func ValidateSaudiPhone(phone string) bool {
	clean := DigitsOnly(phone)

	switch {
	case len(clean) == 10 && strings.HasPrefix(clean, "05"):
		return true
	case len(clean) == 9 && strings.HasPrefix(clean, "5"):
		return true
	case len(clean) == 12 && strings.HasPrefix(clean, "9665"):
		return true
	}
	return false
}

// WhatsAppLink builds a wa.me deep link with a prefilled message.
func WhatsAppLink(phone, message string) string {
	return "https://wa.me/" + DigitsOnly(FormatPhoneNumber(phone)) + "?text=" + urlQueryEscape(message)
}
