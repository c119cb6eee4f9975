package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSlug(t *testing.T) {
	cases := map[string]string{
		"Hello World":           "hello-world",
		"  Business_Tuesday  ":  "business-tuesday",
		"ثلوثية الأعمال":        "ثلوثية-الأعمال",
		"What?! Is -- this":     "what-is-this",
		"--edge--":              "edge",
		"Session #12 (2025)":    "session-12-2025",
	}
	for in, want := range cases {
		assert.Equal(t, want, GenerateSlug(in), in)
	}
}

func TestBaseUsername(t *testing.T) {
	assert.Equal(t, "john_doe", BaseUsername("John  Doe!"))
	assert.Equal(t, "محمد_علي", BaseUsername(" محمد علي. "))
	assert.Equal(t, "a_b", BaseUsername("a b"))
}

func TestNormalizeArabic(t *testing.T) {
	assert.Equal(t, "احمد", NormalizeArabic("أحمد"))
	assert.Equal(t, "اسلام", NormalizeArabic("إسلام"))
	assert.Equal(t, "فاطمه", NormalizeArabic("فاطمة"))
	assert.Equal(t, "مصطفي", NormalizeArabic("مصطفى"))
	assert.Equal(t, "مسوول", NormalizeArabic("مسؤول"))
	assert.Equal(t, "قاري", NormalizeArabic("قارئ"))
	assert.Equal(t, "محمد", NormalizeArabic("مُحَمَّد"))
	assert.Equal(t, "hello world", NormalizeArabic("  Hello   World "))
	assert.Equal(t, "", NormalizeArabic(""))
}

func TestNormalizedContains(t *testing.T) {
	assert.True(t, NormalizedContains("عبدالله الأحمد", "الاحمد"))
	assert.True(t, NormalizedContains("Sara Ali", "sara"))
	assert.False(t, NormalizedContains("", "x"))
	assert.False(t, NormalizedContains("abc", ""))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "my_photo_1.jpg", SanitizeFilename("my photo 1.jpg"))
	assert.Equal(t, "____.png", SanitizeFilename("صورة.png"))
}

func TestTruncateWords(t *testing.T) {
	assert.Equal(t, "a b c", TruncateWords("a  b c", 5))
	assert.Equal(t, "a b", TruncateWords("a b c d", 2))
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("sara@example.com"))
	assert.False(t, ValidEmail("Sara <sara@example.com>"))
	assert.False(t, ValidEmail("not-an-email"))
}

func TestValidHexColor(t *testing.T) {
	assert.True(t, ValidHexColor("#3b82f6"))
	assert.False(t, ValidHexColor("3b82f6"))
	assert.False(t, ValidHexColor("#fff"))
}
