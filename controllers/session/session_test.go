package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eventpilot/config"
	"eventpilot/internal/testdb"
	"eventpilot/middleware"
	"eventpilot/models/registration"
	"eventpilot/models/session"
	"eventpilot/models/user"
	"eventpilot/services/auth"
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
	h := NewSessionController(db, nil, &config.Config{BaseURL: "https://events.example.com/"})
	authn := middleware.NewAuthenticator(db, secret)

	app := fiber.New()
	app.Get("/", h.List)
	app.Get("/upcoming", h.GetUpcoming)
	app.Get("/slug/:slug", h.GetBySlug)
	app.Get("/:id", h.GetByID)
	app.Get("/:id/countdown", h.GetCountdown)
	app.Get("/:id/embed", h.GetEmbedCode)
	app.Get("/:id/check-registration", authn.RequireAuth(), h.CheckRegistration)
	app.Post("/", h.Create)
	app.Put("/:id", h.Update)
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

func create(t *testing.T, app *fiber.App, body map[string]interface{}) (int, *session.Session) {
	t.Helper()
	if _, ok := body["date"]; !ok {
		body["date"] = time.Now().Add(48 * time.Hour)
	}
	status, resp := call(t, app, "POST", "/", "", body)
	if status != fiber.StatusCreated {
		return status, nil
	}
	var s session.Session
	decode(t, resp.Data, &s)
	return status, &s
}

func TestCreate_Validation(t *testing.T) {
	app, _ := setup(t)

	status, _ := call(t, app, "POST", "/", "", map[string]interface{}{"title": "No number", "date": time.Now()})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = create(t, app, map[string]interface{}{"sessionNumber": 1, "title": "   "})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = create(t, app, map[string]interface{}{"sessionNumber": 1, "title": "Meetup", "status": "archived"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, s := create(t, app, map[string]interface{}{"sessionNumber": 1, "title": "  Meetup  "})
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "Meetup", s.Title)
	assert.Equal(t, session.StatusOpen, s.Status)
	assert.Equal(t, session.DefaultMaxParticipants, s.MaxParticipants)
	assert.Equal(t, session.DefaultMaxCompanions, s.MaxCompanions)

	status, _ = create(t, app, map[string]interface{}{"sessionNumber": 1, "title": "Again"})
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestCreate_SlugRules(t *testing.T) {
	app, _ := setup(t)

	_, first := create(t, app, map[string]interface{}{"sessionNumber": 1, "title": "Tuesday Meetup"})
	require.NotNil(t, first)
	require.NotNil(t, first.Slug)
	assert.Equal(t, "tuesday-meetup", *first.Slug)

	_, second := create(t, app, map[string]interface{}{"sessionNumber": 2, "title": "Tuesday Meetup"})
	require.NotNil(t, second)
	assert.Equal(t, "tuesday-meetup-2", *second.Slug)

	status, _ := create(t, app, map[string]interface{}{"sessionNumber": 3, "title": "Other", "slug": "Tuesday Meetup"})
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = create(t, app, map[string]interface{}{"sessionNumber": 3, "title": "Other", "slug": "!!!"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	// Both the generated slug and its numbered form are taken.
	_, squatter := create(t, app, map[string]interface{}{"sessionNumber": 4, "title": "Other", "slug": "tuesday-meetup-5"})
	require.NotNil(t, squatter)
	status, _ = create(t, app, map[string]interface{}{"sessionNumber": 5, "title": "Tuesday Meetup"})
	assert.Equal(t, fiber.StatusConflict, status)

	status, resp := call(t, app, "GET", "/slug/tuesday-meetup-2", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	var found session.Session
	decode(t, resp.Data, &found)
	assert.Equal(t, second.ID, found.ID)

	status, _ = call(t, app, "GET", "/slug/missing", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestUpdate(t *testing.T) {
	app, _ := setup(t)
	_, a := create(t, app, map[string]interface{}{"sessionNumber": 1, "title": "Alpha"})
	_, b := create(t, app, map[string]interface{}{"sessionNumber": 2, "title": "Beta"})
	require.NotNil(t, a)
	require.NotNil(t, b)

	status, _ := call(t, app, "PUT", "/"+b.ID, "", map[string]interface{}{"sessionNumber": 1})
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = call(t, app, "PUT", "/"+b.ID, "", map[string]interface{}{"slug": "alpha"})
	assert.Equal(t, fiber.StatusConflict, status)

	status, resp := call(t, app, "PUT", "/"+b.ID, "", map[string]interface{}{"title": "Beta Night", "slug": "beta-night", "maxParticipants": 20})
	require.Equal(t, fiber.StatusOK, status, resp.Message)
	var updated session.Session
	decode(t, resp.Data, &updated)
	assert.Equal(t, "Beta Night", updated.Title)
	assert.Equal(t, "beta-night", *updated.Slug)
	assert.Equal(t, 20, updated.MaxParticipants)
	assert.Equal(t, 2, updated.SessionNumber)

	status, _ = call(t, app, "PUT", "/missing", "", map[string]interface{}{"title": "x"})
	assert.Equal(t, fiber.StatusNotFound, status)
}

type listItem struct {
	ID                string `json:"id"`
	SessionNumber     int    `json:"sessionNumber"`
	RegistrationCount *int64 `json:"registrationCount"`
	IsFull            bool   `json:"isFull"`
	CanRegister       bool   `json:"canRegister"`
}

func TestList_CursorAndCapacity(t *testing.T) {
	app, db := setup(t)
	base := time.Now().Add(24 * time.Hour)
	var ids []string
	for i := 1; i <= 3; i++ {
		_, s := create(t, app, map[string]interface{}{
			"sessionNumber":   i,
			"title":           fmt.Sprintf("Session %d", i),
			"date":            base.Add(time.Duration(i) * time.Hour),
			"maxParticipants": 1,
		})
		require.NotNil(t, s)
		ids = append(ids, s.ID)
	}
	require.NoError(t, db.Create(&registration.Registration{SessionID: ids[2], IsApproved: true}).Error)

	var page struct {
		Items      []listItem `json:"items"`
		NextCursor *string    `json:"nextCursor"`
	}
	status, resp := call(t, app, "GET", "/?limit=2", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	decode(t, resp.Data, &page)
	require.Len(t, page.Items, 2)
	assert.Equal(t, 3, page.Items[0].SessionNumber)
	assert.True(t, page.Items[0].IsFull)
	assert.False(t, page.Items[0].CanRegister)
	require.NotNil(t, page.Items[0].RegistrationCount)
	assert.Equal(t, int64(1), *page.Items[0].RegistrationCount)
	assert.True(t, page.Items[1].CanRegister)
	require.NotNil(t, page.NextCursor)

	status, resp = call(t, app, "GET", "/?limit=2&cursor="+*page.NextCursor, "", nil)
	require.Equal(t, fiber.StatusOK, status)
	decode(t, resp.Data, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 1, page.Items[0].SessionNumber)
	assert.Nil(t, page.NextCursor)

	status, _ = call(t, app, "GET", "/?status=archived", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestGetUpcoming(t *testing.T) {
	app, _ := setup(t)
	create(t, app, map[string]interface{}{"sessionNumber": 1, "title": "Past", "date": time.Now().Add(-time.Hour)})
	create(t, app, map[string]interface{}{"sessionNumber": 2, "title": "Closed", "status": "closed"})
	create(t, app, map[string]interface{}{"sessionNumber": 3, "title": "Later", "date": time.Now().Add(72 * time.Hour)})
	create(t, app, map[string]interface{}{"sessionNumber": 4, "title": "Soon", "date": time.Now().Add(2 * time.Hour)})

	status, resp := call(t, app, "GET", "/upcoming", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	var items []listItem
	decode(t, resp.Data, &items)
	require.Len(t, items, 2)
	assert.Equal(t, 4, items[0].SessionNumber)
	assert.Equal(t, 3, items[1].SessionNumber)
}

func TestCountdownAndEmbed(t *testing.T) {
	app, _ := setup(t)
	_, s := create(t, app, map[string]interface{}{"sessionNumber": 1, "title": "Meetup", "enableMiniView": true})
	require.NotNil(t, s)

	status, resp := call(t, app, "GET", "/"+s.ID+"/countdown", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	var cd session.Countdown
	decode(t, resp.Data, &cd)
	assert.False(t, cd.Expired)
	assert.Equal(t, int64(1), cd.Days)

	status, resp = call(t, app, "GET", "/"+s.ID+"/embed", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	var code struct {
		EmbedURL string  `json:"embedUrl"`
		MiniURL  *string `json:"miniUrl"`
	}
	decode(t, resp.Data, &code)
	assert.Equal(t, "https://events.example.com/event/meetup/embed", code.EmbedURL)
	require.NotNil(t, code.MiniURL)

	_, hidden := create(t, app, map[string]interface{}{"sessionNumber": 2, "title": "Private", "embedEnabled": false})
	require.NotNil(t, hidden)
	status, _ = call(t, app, "GET", "/"+hidden.ID+"/embed", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = call(t, app, "GET", "/missing/countdown", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestCheckRegistration(t *testing.T) {
	app, db := setup(t)
	_, s := create(t, app, map[string]interface{}{"sessionNumber": 1, "title": "Meetup"})
	require.NotNil(t, s)

	u := user.User{Name: "Sara", Username: "sara", Email: "sara@example.com"}
	require.NoError(t, db.Create(&u).Error)
	token, err := auth.IssueUserToken(secret, time.Hour, &u)
	require.NoError(t, err)

	var out struct {
		Registered bool `json:"registered"`
	}
	status, resp := call(t, app, "GET", "/"+s.ID+"/check-registration", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	decode(t, resp.Data, &out)
	assert.False(t, out.Registered)

	require.NoError(t, db.Create(&registration.Registration{SessionID: s.ID, UserID: &u.ID}).Error)
	status, resp = call(t, app, "GET", "/"+s.ID+"/check-registration", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	decode(t, resp.Data, &out)
	assert.True(t, out.Registered)

	status, _ = call(t, app, "GET", "/"+s.ID+"/check-registration", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}
