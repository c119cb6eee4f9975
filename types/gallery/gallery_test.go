package gallery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUploadURLRequest(t *testing.T) {
	assert.NoError(t, UploadURLRequest{Filename: "a.jpg", ContentType: "image/jpeg"}.Validate())
	assert.Error(t, UploadURLRequest{Filename: "a.gif", ContentType: "image/gif"}.Validate())
	assert.Error(t, UploadURLRequest{ContentType: "image/png"}.Validate())
}

func TestConfirmUploadRequest(t *testing.T) {
	req := ConfirmUploadRequest{Filename: "a.jpg", S3Key: "galleries/g1/1700000000000-a.jpg"}
	assert.NoError(t, req.Validate("g1"))
	assert.Error(t, req.Validate("g2"))
}

func TestShareRequest(t *testing.T) {
	assert.NoError(t, ShareRequest{Channel: ChannelEmail}.Validate())
	assert.Error(t, ShareRequest{Channel: "sms"}.Validate())
}
