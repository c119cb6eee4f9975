package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresignRequestValidate(t *testing.T) {
	kind, err := PresignRequest{Kind: "avatar", EntityID: "u1", Filename: "me.png", ContentType: "image/png", FileSize: 1024}.Validate()
	require.NoError(t, err)
	assert.Equal(t, "avatars", kind.Folder)

	_, err = PresignRequest{Kind: "avatar", EntityID: "u1", Filename: "me.png", ContentType: "image/png", FileSize: 6 << 20}.Validate()
	assert.Error(t, err)

	_, err = PresignRequest{Kind: "avatar", EntityID: "u1", Filename: "cv.pdf", ContentType: "application/pdf", FileSize: 1024}.Validate()
	assert.Error(t, err)

	_, err = PresignRequest{Kind: "sponsorAttachment", EntityID: "s1", Filename: "cv.pdf", ContentType: "application/pdf", FileSize: 1024}.Validate()
	assert.NoError(t, err)

	_, err = PresignRequest{Kind: "unknown", EntityID: "x", Filename: "a", ContentType: "image/png", FileSize: 1}.Validate()
	assert.Error(t, err)
}
