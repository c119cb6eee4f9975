package qr

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckIn_EncodeParse(t *testing.T) {
	payload := NewCheckIn("reg-1", "sess-1").Encode()
	assert.JSONEq(t, `{"type":"attendance","registrationId":"reg-1","sessionId":"sess-1"}`, payload)

	parsed, err := ParseCheckIn(payload)
	require.NoError(t, err)
	assert.Equal(t, "reg-1", parsed.RegistrationID)
	assert.Equal(t, "sess-1", parsed.SessionID)
}

func TestParseCheckIn_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":        "checkin:abc",
		"wrong type":      `{"type":"valet","registrationId":"r","sessionId":"s"}`,
		"missing reg":     `{"type":"attendance","sessionId":"s"}`,
		"missing session": `{"type":"attendance","registrationId":"r"}`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCheckIn(data)
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestDataURL(t *testing.T) {
	url, err := DataURL("hello")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "data:image/png;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), raw[:4])
}
