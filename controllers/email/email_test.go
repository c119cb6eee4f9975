package email

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eventpilot/internal/testdb"
	emailModel "eventpilot/models/email"
	"eventpilot/types"
	emailTypes "eventpilot/types/email"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := testdb.New(t)
	h := NewEmailController(db, nil)

	app := fiber.New()
	app.Get("/stats", h.GetStats)
	app.Get("/logs", h.GetLogs)
	app.Get("/failed", h.GetFailedEmails)
	app.Post("/retry", h.MarkForRetry)
	app.Post("/cleanup", h.Cleanup)
	return app, db
}

func call(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, types.ApiResponse) {
	t.Helper()
	var req *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, strings.NewReader(string(raw)))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out types.ApiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func decode(t *testing.T, data interface{}, target interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, target))
}

func seed(t *testing.T, db *gorm.DB, to string, status emailModel.Status, age time.Duration) *emailModel.Log {
	t.Helper()
	at := time.Now().Add(-age)
	row := emailModel.Log{
		To:        to,
		Subject:   "Your registration",
		Type:      emailModel.KindConfirmed,
		Status:    status,
		Attempts:  2,
		CreatedAt: at,
	}
	if status == emailModel.StatusSent {
		row.SentAt = &at
	}
	if status == emailModel.StatusFailed {
		msg := "mailbox full"
		row.ErrorMessage = &msg
	}
	require.NoError(t, db.Create(&row).Error)
	return &row
}

func TestGetStats(t *testing.T) {
	app, db := setup(t)
	seed(t, db, "a@example.com", emailModel.StatusSent, time.Minute)
	seed(t, db, "b@example.com", emailModel.StatusSent, 72*time.Hour)
	seed(t, db, "c@example.com", emailModel.StatusFailed, time.Minute)
	seed(t, db, "d@example.com", emailModel.StatusPending, time.Minute)

	status, resp := call(t, app, "GET", "/stats", nil)
	require.Equal(t, fiber.StatusOK, status)
	var stats emailTypes.Stats
	decode(t, resp.Data, &stats)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(2), stats.Sent)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.SentToday)
	assert.Equal(t, int64(1), stats.FailedToday)
}

func TestGetLogs_CursorAndFilters(t *testing.T) {
	app, db := setup(t)
	for i, to := range []string{"one@example.com", "two@example.com", "three@example.com"} {
		seed(t, db, to, emailModel.StatusSent, time.Duration(i+1)*time.Hour)
	}
	seed(t, db, "broken@example.com", emailModel.StatusFailed, 10*time.Minute)

	var page struct {
		Items      []emailModel.Log `json:"items"`
		NextCursor *string          `json:"nextCursor"`
	}
	status, resp := call(t, app, "GET", "/logs?limit=2&status=sent", nil)
	require.Equal(t, fiber.StatusOK, status)
	decode(t, resp.Data, &page)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "one@example.com", page.Items[0].To)
	require.NotNil(t, page.NextCursor)

	status, resp = call(t, app, "GET", "/logs?limit=2&status=sent&cursor="+*page.NextCursor, nil)
	require.Equal(t, fiber.StatusOK, status)
	decode(t, resp.Data, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "three@example.com", page.Items[0].To)
	assert.Nil(t, page.NextCursor)

	status, resp = call(t, app, "GET", "/logs?search=BROKEN", nil)
	require.Equal(t, fiber.StatusOK, status)
	decode(t, resp.Data, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, emailModel.StatusFailed, page.Items[0].Status)

	status, _ = call(t, app, "GET", "/logs?status=lost", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestMarkForRetry_OnlyFailed(t *testing.T) {
	app, db := setup(t)
	failed := seed(t, db, "a@example.com", emailModel.StatusFailed, time.Hour)
	sent := seed(t, db, "b@example.com", emailModel.StatusSent, time.Hour)

	status, _ := call(t, app, "POST", "/retry", map[string][]string{"ids": {}})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, resp := call(t, app, "POST", "/retry", map[string][]string{"ids": {failed.ID, sent.ID}})
	require.Equal(t, fiber.StatusOK, status)
	var out struct {
		Count int64 `json:"count"`
	}
	decode(t, resp.Data, &out)
	assert.Equal(t, int64(1), out.Count)

	var row emailModel.Log
	require.NoError(t, db.Where("id = ?", failed.ID).First(&row).Error)
	assert.Equal(t, emailModel.StatusPending, row.Status)
	assert.Zero(t, row.Attempts)
	assert.Nil(t, row.ErrorMessage)

	var untouched emailModel.Log
	require.NoError(t, db.Where("id = ?", sent.ID).First(&untouched).Error)
	assert.Equal(t, emailModel.StatusSent, untouched.Status)
}

func TestCleanup_KeepsPending(t *testing.T) {
	app, db := setup(t)
	seed(t, db, "old-sent@example.com", emailModel.StatusSent, 40*24*time.Hour)
	seed(t, db, "old-failed@example.com", emailModel.StatusFailed, 40*24*time.Hour)
	seed(t, db, "old-pending@example.com", emailModel.StatusPending, 40*24*time.Hour)
	seed(t, db, "new-sent@example.com", emailModel.StatusSent, time.Hour)

	status, _ := call(t, app, "POST", "/cleanup", map[string]interface{}{"olderThanDays": 0})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, resp := call(t, app, "POST", "/cleanup", map[string]interface{}{"olderThanDays": 30, "status": "failed"})
	require.Equal(t, fiber.StatusOK, status)
	var out struct {
		Deleted int64 `json:"deleted"`
	}
	decode(t, resp.Data, &out)
	assert.Equal(t, int64(1), out.Deleted)

	status, resp = call(t, app, "POST", "/cleanup", map[string]interface{}{"olderThanDays": 30})
	require.Equal(t, fiber.StatusOK, status)
	decode(t, resp.Data, &out)
	assert.Equal(t, int64(1), out.Deleted)

	var remaining []emailModel.Log
	require.NoError(t, db.Order("to_address").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	assert.Equal(t, "new-sent@example.com", remaining[0].To)
	assert.Equal(t, "old-pending@example.com", remaining[1].To)
}
