package suggestion

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eventpilot/constants"
	"eventpilot/internal/testdb"
	"eventpilot/middleware"
	suggestionModel "eventpilot/models/suggestion"
	"eventpilot/models/user"
	"eventpilot/services/auth"
	"eventpilot/types"
	suggestionTypes "eventpilot/types/suggestion"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const secret = "test-secret"

func setup(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := testdb.New(t)
	h := NewSuggestionController(db, nil)
	authn := middleware.NewAuthenticator(db, secret)

	app := fiber.New()
	app.Post("/", authn.RequireAuth(), h.Create)
	app.Get("/", authn.RequireAdmin(constants.PermSuggestions), h.GetAll)
	app.Get("/stats", authn.RequireAdmin(constants.PermSuggestions), h.GetStats)
	app.Put("/:id/status", authn.RequireAdmin(constants.PermSuggestions), h.UpdateStatus)
	app.Delete("/:id", authn.RequireAdmin(constants.PermSuggestions), h.Delete)
	return app, db
}

func login(t *testing.T, db *gorm.DB, u user.User) string {
	t.Helper()
	require.NoError(t, db.Create(&u).Error)
	token, err := auth.IssueUserToken(secret, time.Hour, &u)
	require.NoError(t, err)
	return token
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

func TestSuggestionLifecycle(t *testing.T) {
	app, db := setup(t)
	member := login(t, db, user.User{Name: "Member", Username: "member", Email: "member@example.com"})
	admin := login(t, db, user.User{Name: "Admin", Username: "admin", Email: "admin@example.com", Role: user.RoleAdmin, CanAccessSuggestions: true})

	status, _ := call(t, app, "POST", "/", member, map[string]string{"content": "short"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, resp := call(t, app, "POST", "/", member, map[string]string{"content": "  Please add an evening session  "})
	require.Equal(t, fiber.StatusCreated, status, resp.Message)
	var created suggestionModel.Suggestion
	decode(t, resp.Data, &created)
	assert.Equal(t, "Please add an evening session", created.Content)
	assert.Equal(t, suggestionModel.StatusPending, created.Status)

	status, _ = call(t, app, "GET", "/", member, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, resp = call(t, app, "PUT", "/"+created.ID+"/status", admin, map[string]string{"status": "implemented"})
	require.Equal(t, fiber.StatusOK, status, resp.Message)

	status, _ = call(t, app, "PUT", "/"+created.ID+"/status", admin, map[string]string{"status": "bogus"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = call(t, app, "PUT", "/missing/status", admin, map[string]string{"status": "reviewed"})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, resp = call(t, app, "GET", "/stats", admin, nil)
	require.Equal(t, fiber.StatusOK, status)
	var stats suggestionTypes.Stats
	decode(t, resp.Data, &stats)
	assert.Equal(t, suggestionTypes.Stats{Total: 1, Implemented: 1}, stats)

	status, _ = call(t, app, "DELETE", "/"+created.ID, admin, nil)
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = call(t, app, "DELETE", "/"+created.ID, admin, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestGetAll_PagesAndFilters(t *testing.T) {
	app, db := setup(t)
	admin := login(t, db, user.User{Name: "Root", Username: "root", Email: "root@example.com", Role: user.RoleSuperAdmin})

	var author user.User
	require.NoError(t, db.Where("username = ?", "root").First(&author).Error)
	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&suggestionModel.Suggestion{UserID: author.ID, Content: "A long enough idea"}).Error)
	}
	require.NoError(t, db.Create(&suggestionModel.Suggestion{UserID: author.ID, Content: "Already reviewed", Status: suggestionModel.StatusReviewed}).Error)

	status, resp := call(t, app, "GET", "/?limit=2&page=1", admin, nil)
	require.Equal(t, fiber.StatusOK, status)
	var page struct {
		Items      []suggestionModel.Suggestion `json:"items"`
		Total      int64                        `json:"total"`
		TotalPages int                          `json:"totalPages"`
	}
	decode(t, resp.Data, &page)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(4), page.Total)
	assert.Equal(t, 2, page.TotalPages)

	status, resp = call(t, app, "GET", "/?status=reviewed", admin, nil)
	require.Equal(t, fiber.StatusOK, status)
	decode(t, resp.Data, &page)
	assert.Equal(t, int64(1), page.Total)

	status, _ = call(t, app, "GET", "/?status=nope", admin, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}
