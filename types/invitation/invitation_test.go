package invitation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSendRequest(t *testing.T) {
	req := SendRequest{SessionID: "s1", Emails: []string{"A@x.com", " a@x.com", "b@x.com"}}
	assert.NoError(t, req.Validate())
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, req.Recipients())

	assert.Error(t, SendRequest{SessionID: "s1"}.Validate())
	assert.Error(t, SendRequest{SessionID: "s1", Emails: []string{"nope"}}.Validate())
	assert.Error(t, SendRequest{SessionID: "s1", Emails: []string{"   "}}.Validate())
	assert.NoError(t, SendRequest{SessionID: "s1", Emails: []string{"  padded@x.com\t"}}.Validate())
}

func TestWhatsAppRequest(t *testing.T) {
	assert.NoError(t, WhatsAppRequest{SessionID: "s1", Phones: []string{"0501234567"}}.Validate())
	assert.Error(t, WhatsAppRequest{SessionID: "s1", Phones: []string{"123"}}.Validate())
}
