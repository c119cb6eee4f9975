package suggestion

import (
	"strings"
	"testing"

	suggestionModel "eventpilot/models/suggestion"

	"github.com/stretchr/testify/assert"
)

func TestCreateRequestValidate(t *testing.T) {
	assert.Error(t, CreateRequest{Content: "قصير"}.Validate())
	assert.Error(t, CreateRequest{Content: strings.Repeat("أ", 1001)}.Validate())
	assert.NoError(t, CreateRequest{Content: "اقتراح بتوفير مواقف إضافية"}.Validate())
}

func TestStatsAdd(t *testing.T) {
	var s Stats
	s.Add(suggestionModel.StatusPending, 3)
	s.Add(suggestionModel.StatusDismissed, 2)
	assert.Equal(t, Stats{Total: 5, Pending: 3, Dismissed: 2}, s)
}
