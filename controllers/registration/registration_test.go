package registration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eventpilot/internal/testdb"
	"eventpilot/middleware"
	regModel "eventpilot/models/registration"
	"eventpilot/models/session"
	"eventpilot/models/user"
	"eventpilot/services/auth"
	regService "eventpilot/services/registration"
	"eventpilot/types"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const secret = "test-secret"

func setup(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := testdb.New(t)
	h := NewRegistrationController(db, nil, regService.NewService(db, nil))
	authn := middleware.NewAuthenticator(db, secret)

	app := fiber.New()
	app.Post("/register", authn.RequireAuth(), h.RegisterForSession)
	app.Get("/mine", authn.RequireAuth(), h.GetMyRegistrations)
	app.Get("/confirmation/:id", h.GetConfirmation)
	app.Get("/session/:id", h.GetSessionRegistrations)
	app.Post("/:id/approve", h.Approve)
	app.Post("/session/:id/approve-all", h.ApproveAll)
	app.Post("/companions", authn.RequireAuth(), h.AddCompanion)
	app.Get("/:id/companions", authn.RequireAuth(), h.ListCompanions)
	app.Delete("/companions/:id", authn.RequireAuth(), h.RemoveCompanion)
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

func newUser(t *testing.T, db *gorm.DB, username, phone string) (*user.User, string) {
	t.Helper()
	u := user.User{Name: "User " + username, Username: username, Email: username + "@example.com", Phone: phone}
	require.NoError(t, db.Create(&u).Error)
	token, err := auth.IssueUserToken(secret, time.Hour, &u)
	require.NoError(t, err)
	return &u, token
}

func newSession(t *testing.T, db *gorm.DB, number int, mutate func(*session.Session)) *session.Session {
	t.Helper()
	s := session.Session{SessionNumber: number, Title: "Tuesday Meetup", Date: time.Now().Add(72 * time.Hour), MaxCompanions: 1}
	if mutate != nil {
		mutate(&s)
	}
	require.NoError(t, db.Create(&s).Error)
	return &s
}

type result struct {
	ID             string  `json:"id"`
	IsApproved     bool    `json:"isApproved"`
	CompanionCount int     `json:"companionCount"`
	QRCode         *string `json:"qrCode"`
}

func TestRegisterForSession(t *testing.T) {
	app, db := setup(t)
	_, token := newUser(t, db, "sara", "+966551234567")
	s := newSession(t, db, 1, nil)

	status, _ := call(t, app, "POST", "/register", "", map[string]string{"sessionId": s.ID})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = call(t, app, "POST", "/register", token, map[string]string{})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = call(t, app, "POST", "/register", token, map[string]string{"sessionId": "missing"})
	assert.Equal(t, fiber.StatusNotFound, status)

	body := map[string]interface{}{
		"sessionId":  s.ID,
		"companions": []map[string]string{{"name": "Omar", "phone": "0559876543"}},
	}
	status, resp := call(t, app, "POST", "/register", token, body)
	require.Equal(t, fiber.StatusCreated, status, resp.Message)
	var out result
	decode(t, resp.Data, &out)
	assert.True(t, out.IsApproved)
	assert.Equal(t, 1, out.CompanionCount)
	require.NotNil(t, out.QRCode)
	assert.True(t, strings.HasPrefix(*out.QRCode, "data:image/png;base64,"))

	status, _ = call(t, app, "POST", "/register", token, map[string]string{"sessionId": s.ID})
	assert.Equal(t, fiber.StatusConflict, status)

	status, resp = call(t, app, "GET", "/mine", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	var mine []regModel.Registration
	decode(t, resp.Data, &mine)
	require.Len(t, mine, 1)
	assert.Len(t, mine[0].Companions, 1)
}

func TestRegisterForSession_AdmissionErrors(t *testing.T) {
	app, db := setup(t)
	_, token := newUser(t, db, "sara", "+966551234567")
	closed := newSession(t, db, 1, func(s *session.Session) { s.Status = session.StatusClosed })
	inviteOnly := newSession(t, db, 2, func(s *session.Session) { s.InviteOnly = true })
	passed := time.Now().Add(-time.Hour)
	late := newSession(t, db, 3, func(s *session.Session) { s.RegistrationDeadline = &passed })
	open := newSession(t, db, 4, nil)

	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
	}{
		{"closed", map[string]interface{}{"sessionId": closed.ID}, fiber.StatusBadRequest},
		{"invite only", map[string]interface{}{"sessionId": inviteOnly.ID}, fiber.StatusForbidden},
		{"bad invite", map[string]interface{}{"sessionId": inviteOnly.ID, "inviteToken": "nope"}, fiber.StatusForbidden},
		{"deadline passed", map[string]interface{}{"sessionId": late.ID}, fiber.StatusBadRequest},
		{"too many companions", map[string]interface{}{
			"sessionId":  open.ID,
			"companions": []map[string]string{{"name": "Omar"}, {"name": "Ali"}},
		}, fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := call(t, app, "POST", "/register", token, tt.body)
			assert.Equal(t, tt.status, status)
		})
	}

	var count int64
	require.NoError(t, db.Model(&regModel.Registration{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestApproveAndConfirmation(t *testing.T) {
	app, db := setup(t)
	_, token := newUser(t, db, "sara", "+966551234567")
	s := newSession(t, db, 1, func(s *session.Session) { s.RequiresApproval = true })

	status, resp := call(t, app, "POST", "/register", token, map[string]string{"sessionId": s.ID})
	require.Equal(t, fiber.StatusCreated, status, resp.Message)
	var out result
	decode(t, resp.Data, &out)
	assert.False(t, out.IsApproved)
	assert.Nil(t, out.QRCode)

	var confirmation struct {
		IsApproved bool    `json:"isApproved"`
		Name       string  `json:"name"`
		QRCode     *string `json:"qrCode"`
		Session    struct {
			Title string `json:"title"`
		} `json:"session"`
	}
	status, resp = call(t, app, "GET", "/confirmation/"+out.ID, "", nil)
	require.Equal(t, fiber.StatusOK, status)
	decode(t, resp.Data, &confirmation)
	assert.False(t, confirmation.IsApproved)
	assert.Nil(t, confirmation.QRCode)
	assert.Equal(t, "User sara", confirmation.Name)
	assert.Equal(t, "Tuesday Meetup", confirmation.Session.Title)

	status, _ = call(t, app, "POST", "/"+out.ID+"/approve", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = call(t, app, "POST", "/"+out.ID+"/approve", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, resp = call(t, app, "GET", "/confirmation/"+out.ID, "", nil)
	require.Equal(t, fiber.StatusOK, status)
	decode(t, resp.Data, &confirmation)
	assert.True(t, confirmation.IsApproved)
	assert.NotNil(t, confirmation.QRCode)

	status, _ = call(t, app, "GET", "/confirmation/missing", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestApproveAll(t *testing.T) {
	app, db := setup(t)
	s := newSession(t, db, 1, func(s *session.Session) { s.RequiresApproval = true })
	for _, name := range []string{"a", "b"} {
		_, token := newUser(t, db, name, "")
		status, resp := call(t, app, "POST", "/register", token, map[string]string{"sessionId": s.ID})
		require.Equal(t, fiber.StatusCreated, status, resp.Message)
	}

	status, resp := call(t, app, "POST", "/session/"+s.ID+"/approve-all", "", nil)
	require.Equal(t, fiber.StatusOK, status, resp.Message)
	assert.Equal(t, map[string]interface{}{"approved": float64(2)}, resp.Data)

	status, resp = call(t, app, "GET", "/session/"+s.ID+"?isApproved=false", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	var page struct {
		Items []regModel.Registration `json:"items"`
	}
	decode(t, resp.Data, &page)
	assert.Empty(t, page.Items)

	status, _ = call(t, app, "POST", "/session/missing/approve-all", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestCompanions_OwnerOnly(t *testing.T) {
	app, db := setup(t)
	_, token := newUser(t, db, "sara", "+966551234567")
	_, otherToken := newUser(t, db, "noura", "+966557654321")
	s := newSession(t, db, 1, nil)

	status, resp := call(t, app, "POST", "/register", token, map[string]string{"sessionId": s.ID})
	require.Equal(t, fiber.StatusCreated, status, resp.Message)
	var reg result
	decode(t, resp.Data, &reg)

	add := map[string]string{"registrationId": reg.ID, "name": "Omar", "phone": "0559876543"}
	status, _ = call(t, app, "POST", "/companions", otherToken, add)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, resp = call(t, app, "POST", "/companions", token, add)
	require.Equal(t, fiber.StatusCreated, status, resp.Message)
	var companion regModel.Registration
	decode(t, resp.Data, &companion)
	require.NotNil(t, companion.GuestPhone)
	assert.Equal(t, "+966559876543", *companion.GuestPhone)

	// The limit of one is reached.
	status, _ = call(t, app, "POST", "/companions", token, add)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = call(t, app, "GET", "/"+reg.ID+"/companions", otherToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	status, resp = call(t, app, "GET", "/"+reg.ID+"/companions", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	var list []regModel.Registration
	decode(t, resp.Data, &list)
	assert.Len(t, list, 1)

	status, _ = call(t, app, "DELETE", "/companions/"+reg.ID, token, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = call(t, app, "DELETE", "/companions/"+companion.ID, otherToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	status, _ = call(t, app, "DELETE", "/companions/"+companion.ID, token, nil)
	require.Equal(t, fiber.StatusOK, status)

	var left int64
	require.NoError(t, db.Model(&regModel.Registration{}).Where("invited_by_registration_id = ?", reg.ID).Count(&left).Error)
	assert.Zero(t, left)
}
