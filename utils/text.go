package utils

import (
	"net/mail"
	"net/url"
	"regexp"
	"strings"
)

var (
	slugSeparators = regexp.MustCompile(`[\s_]+`)
	slugInvalid    = regexp.MustCompile(`[^\w\x{0600}-\x{06FF}-]`)
	slugDashes     = regexp.MustCompile(`-+`)

	usernameInvalid = regexp.MustCompile(`[^\w\s\x{0600}-\x{06FF}]`)
	whitespace      = regexp.MustCompile(`\s+`)

	tashkeel = regexp.MustCompile(`[\x{064B}-\x{065F}\x{0670}]`)

	arabicLetters = strings.NewReplacer(
		"أ", "ا", "إ", "ا", "آ", "ا", "ٱ", "ا",
		"ؤ", "و",
		"ئ", "ي",
		"ة", "ه",
		"ى", "ي",
	)
)

// GenerateSlug produces a URL slug that keeps Arabic letters.
func GenerateSlug(text string) string {
	slug := strings.TrimSpace(strings.ToLower(text))
	slug = slugSeparators.ReplaceAllString(slug, "-")
	slug = slugInvalid.ReplaceAllString(slug, "")
	slug = slugDashes.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// BaseUsername derives the username stem from a display name.
// Uniqueness suffixes are added by the caller.
func BaseUsername(name string) string {
	clean := strings.TrimSpace(usernameInvalid.ReplaceAllString(name, ""))
	return strings.ToLower(whitespace.ReplaceAllString(clean, "_"))
}

// NormalizeArabic folds letter variants and diacritics so searches match
// regardless of how a name was typed.
func NormalizeArabic(text string) string {
	if text == "" {
		return ""
	}
	out := tashkeel.ReplaceAllString(text, "")
	out = arabicLetters.Replace(out)
	out = strings.TrimSpace(strings.ToLower(out))
	return whitespace.ReplaceAllString(out, " ")
}

// NormalizedContains reports whether text contains term after normalization.
func NormalizedContains(text, term string) bool {
	if text == "" || term == "" {
		return false
	}
	return strings.Contains(NormalizeArabic(text), NormalizeArabic(term))
}

// SanitizeFilename keeps letters, digits, dot, dash and underscore.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// TruncateWords keeps at most n whitespace-separated words.
func TruncateWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ")
}

func urlQueryEscape(s string) string {
	return url.QueryEscape(s)
}

// ValidEmail accepts a bare address such as user@example.com.
func ValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func ValidHexColor(s string) bool {
	return hexColor.MatchString(s)
}
