package attendance

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eventpilot/internal/testdb"
	"eventpilot/middleware"
	"eventpilot/models/registration"
	"eventpilot/models/session"
	"eventpilot/models/user"
	"eventpilot/services/auth"
	"eventpilot/services/qr"
	"eventpilot/types"
	attendanceTypes "eventpilot/types/attendance"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const secret = "test-secret"

func setup(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := testdb.New(t)
	h := NewAttendanceController(db, nil)
	authn := middleware.NewAuthenticator(db, secret)

	app := fiber.New()
	app.Post("/mark", h.MarkAttendance)
	app.Post("/qr", h.MarkAttendanceQR)
	app.Get("/session/:id", h.GetSessionAttendance)
	app.Get("/my-qr/:id", authn.RequireAuth(), h.GetMyQR)
	return app, db
}

func call(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, types.ApiResponse) {
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
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
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

type fixture struct {
	session  *session.Session
	user     *user.User
	token    string
	approved *registration.Registration
	pending  *registration.Registration
}

func seed(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	s := session.Session{SessionNumber: 7, Title: "Tuesday Meetup", Date: time.Now().Add(time.Hour)}
	require.NoError(t, db.Create(&s).Error)

	u := user.User{Name: "Sara Ali", Username: "sara", Email: "sara@example.com", Phone: "+966551234567"}
	require.NoError(t, db.Create(&u).Error)
	token, err := auth.IssueUserToken(secret, time.Hour, &u)
	require.NoError(t, err)

	approved := registration.Registration{SessionID: s.ID, UserID: &u.ID, IsApproved: true}
	require.NoError(t, db.Create(&approved).Error)

	guest := "Walk In"
	pending := registration.Registration{SessionID: s.ID, GuestName: &guest}
	require.NoError(t, db.Create(&pending).Error)

	return fixture{session: &s, user: &u, token: token, approved: &approved, pending: &pending}
}

func TestMarkAttendance(t *testing.T) {
	app, db := setup(t)
	f := seed(t, db)

	status, _ := call(t, app, "POST", "/mark", "", map[string]string{})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = call(t, app, "POST", "/mark", "", map[string]string{"registrationId": "missing"})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = call(t, app, "POST", "/mark", "", map[string]string{"registrationId": f.pending.ID})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, resp := call(t, app, "POST", "/mark", "", map[string]string{"registrationId": f.approved.ID})
	require.Equal(t, fiber.StatusOK, status, resp.Message)
	var row registration.Attendance
	decode(t, resp.Data, &row)
	assert.True(t, row.Attended)
	require.NotNil(t, row.CheckInTime)
	require.NotNil(t, row.CheckInMethod)
	assert.Equal(t, "manual", *row.CheckInMethod)

	// Unmarking keeps a single row.
	status, resp = call(t, app, "POST", "/mark", "", map[string]interface{}{"registrationId": f.approved.ID, "attended": false})
	require.Equal(t, fiber.StatusOK, status)
	decode(t, resp.Data, &row)
	assert.False(t, row.Attended)

	var count int64
	require.NoError(t, db.Model(&registration.Attendance{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestMarkAttendanceQR(t *testing.T) {
	app, db := setup(t)
	f := seed(t, db)
	payload := qr.NewCheckIn(f.approved.ID, f.session.ID).Encode()

	status, _ := call(t, app, "POST", "/qr", "", map[string]string{"qrData": "{}", "sessionId": f.session.ID})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = call(t, app, "POST", "/qr", "", map[string]string{"qrData": payload, "sessionId": "other"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	var out struct {
		AlreadyCheckedIn bool   `json:"alreadyCheckedIn"`
		Name             string `json:"name"`
		Email            string `json:"email"`
	}
	status, resp := call(t, app, "POST", "/qr", "", map[string]string{"qrData": payload, "sessionId": f.session.ID})
	require.Equal(t, fiber.StatusOK, status, resp.Message)
	decode(t, resp.Data, &out)
	assert.False(t, out.AlreadyCheckedIn)
	assert.Equal(t, "Sara Ali", out.Name)
	assert.Equal(t, "sara@example.com", out.Email)

	status, resp = call(t, app, "POST", "/qr", "", map[string]string{"qrData": payload, "sessionId": f.session.ID})
	require.Equal(t, fiber.StatusOK, status)
	decode(t, resp.Data, &out)
	assert.True(t, out.AlreadyCheckedIn)
}

func TestGetSessionAttendance(t *testing.T) {
	app, db := setup(t)
	f := seed(t, db)

	status, _ := call(t, app, "POST", "/mark", "", map[string]string{"registrationId": f.approved.ID})
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, db.Model(f.pending).Update("is_approved", true).Error)

	status, resp := call(t, app, "GET", "/session/"+f.session.ID, "", nil)
	require.Equal(t, fiber.StatusOK, status)
	var out struct {
		Stats attendanceTypes.Stats `json:"stats"`
	}
	decode(t, resp.Data, &out)
	assert.Equal(t, attendanceTypes.Stats{Total: 2, Attended: 1, NotAttended: 1, Rate: 50}, out.Stats)
}

func TestGetMyQR(t *testing.T) {
	app, db := setup(t)
	f := seed(t, db)

	status, resp := call(t, app, "GET", "/my-qr/"+f.approved.ID, f.token, nil)
	require.Equal(t, fiber.StatusOK, status, resp.Message)
	var out struct {
		QRCode string `json:"qrCode"`
	}
	decode(t, resp.Data, &out)
	assert.True(t, strings.HasPrefix(out.QRCode, "data:image/png;base64,"))

	// Another user's registration is not visible.
	status, _ = call(t, app, "GET", "/my-qr/"+f.pending.ID, f.token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	require.NoError(t, db.Model(f.approved).Update("is_approved", false).Error)
	status, _ = call(t, app, "GET", "/my-qr/"+f.approved.ID, f.token, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}
