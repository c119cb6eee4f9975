package email

import (
	"testing"

	emailModel "eventpilot/models/email"

	"github.com/stretchr/testify/assert"
)

func TestCleanupRequest(t *testing.T) {
	assert.Error(t, CleanupRequest{OlderThanDays: 0}.Validate())
	assert.Error(t, CleanupRequest{OlderThanDays: 366}.Validate())
	assert.Error(t, CleanupRequest{OlderThanDays: 30, Status: "pending"}.Validate())
	assert.NoError(t, CleanupRequest{OlderThanDays: 30}.Validate())

	assert.Equal(t, []emailModel.Status{emailModel.StatusFailed}, CleanupRequest{Status: "failed"}.Statuses())
	assert.Len(t, CleanupRequest{Status: "all"}.Statuses(), 2)
}
