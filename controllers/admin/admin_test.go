package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eventpilot/config"
	"eventpilot/constants"
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
	h := NewAdminController(db, nil, &config.Config{BaseURL: "https://events.example.com/"})
	authn := middleware.NewAuthenticator(db, secret)

	app := fiber.New()
	app.Post("/bootstrap", h.BootstrapSuperAdmin)
	app.Get("/settings", h.GetSettings)

	admin := app.Group("", authn.RequireAdmin())
	admin.Get("/dashboard", h.GetDashboard)
	admin.Get("/recommendations", h.GetRecommendations)
	admin.Get("/sessions/:id/qr", h.GetSessionQR)
	admin.Get("/sessions/:id/export", h.ExportSessionRegistrations)
	admin.Put("/settings", h.UpdateSettings)

	users := app.Group("/users", authn.RequireAdmin(constants.PermUsers))
	users.Get("/", h.GetUsers)
	users.Get("/:id", h.GetUserByID)
	users.Patch("/:id/toggle-active", h.ToggleUserActive)

	labels := app.Group("/labels", authn.RequireAdmin(constants.PermUsers))
	labels.Get("/", h.GetLabels)
	labels.Post("/", h.CreateLabel)
	labels.Put("/:id", h.UpdateLabel)
	labels.Delete("/:id", h.DeleteLabel)
	labels.Post("/assign", h.AssignLabelsToUser)
	labels.Post("/create-and-assign", h.CreateAndAssignLabel)

	notes := app.Group("/notes", authn.RequireAdmin(constants.PermUsers))
	notes.Get("/:userId", h.GetUserNotes)
	notes.Post("/", h.CreateNote)
	notes.Delete("/:id", h.DeleteNote)

	super := app.Group("/super", authn.RequireSuperAdmin())
	super.Get("/admins", h.GetAdminUsers)
	super.Post("/admins", h.CreateAdmin)
	super.Put("/users/:id/role", h.UpdateUserRole)
	super.Put("/users/:id/permissions", h.UpdateUserPermissions)
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

func newUser(t *testing.T, db *gorm.DB, username string, mutate func(*user.User)) (*user.User, string) {
	t.Helper()
	u := user.User{Name: "User " + username, Username: username, Email: username + "@example.com"}
	if mutate != nil {
		mutate(&u)
	}
	require.NoError(t, db.Create(&u).Error)
	token, err := auth.IssueUserToken(secret, time.Hour, &u)
	require.NoError(t, err)
	return &u, token
}

func asSuper(u *user.User) { u.Role = user.RoleSuperAdmin }

func asUserAdmin(u *user.User) {
	u.Role = user.RoleAdmin
	u.CanAccessUsers = true
}

func TestPermissionGates(t *testing.T) {
	app, db := setup(t)
	_, plain := newUser(t, db, "plain", nil)
	_, bare := newUser(t, db, "bare", func(u *user.User) { u.Role = user.RoleAdmin })
	_, userAdmin := newUser(t, db, "useradmin", asUserAdmin)

	status, _ := call(t, app, "GET", "/users/", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	status, _ = call(t, app, "GET", "/dashboard", plain, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	status, _ = call(t, app, "GET", "/dashboard", bare, nil)
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = call(t, app, "GET", "/users/", bare, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	status, _ = call(t, app, "GET", "/users/", userAdmin, nil)
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = call(t, app, "GET", "/super/admins", userAdmin, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestToggleUserActive(t *testing.T) {
	app, db := setup(t)
	admin, adminToken := newUser(t, db, "useradmin", asUserAdmin)
	super, superToken := newUser(t, db, "root", asSuper)
	member, _ := newUser(t, db, "member", nil)

	status, _ := call(t, app, "PATCH", "/users/"+admin.ID+"/toggle-active", adminToken, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = call(t, app, "PATCH", "/users/"+super.ID+"/toggle-active", adminToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, resp := call(t, app, "PATCH", "/users/"+member.ID+"/toggle-active", adminToken, nil)
	require.Equal(t, fiber.StatusOK, status, resp.Message)
	assert.Equal(t, false, resp.Data.(map[string]interface{})["isActive"])
	var saved user.User
	require.NoError(t, db.Where("id = ?", member.ID).First(&saved).Error)
	assert.False(t, saved.IsActive)

	status, _ = call(t, app, "PATCH", "/users/"+admin.ID+"/toggle-active", superToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = call(t, app, "GET", "/users/", adminToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = call(t, app, "PATCH", "/users/missing/toggle-active", superToken, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestCreateAdminAndPermissions(t *testing.T) {
	app, db := setup(t)
	_, superToken := newUser(t, db, "root", asSuper)
	member, _ := newUser(t, db, "member", nil)

	body := map[string]interface{}{"name": "Nasser", "email": "nasser@example.com", "password": "secret123", "permissions": []string{"sessions"}}
	status, _ := call(t, app, "POST", "/super/admins", superToken, map[string]interface{}{
		"name": "Nasser", "email": "nasser@example.com", "password": "secret123", "permissions": []string{"everything"},
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, resp := call(t, app, "POST", "/super/admins", superToken, body)
	require.Equal(t, fiber.StatusCreated, status, resp.Message)
	var created struct {
		User        user.User `json:"user"`
		Permissions []string  `json:"permissions"`
	}
	decode(t, resp.Data, &created)
	assert.Equal(t, user.RoleAdmin, created.User.Role)
	assert.Equal(t, []string{"sessions"}, created.Permissions)

	status, _ = call(t, app, "POST", "/super/admins", superToken, body)
	assert.Equal(t, fiber.StatusConflict, status)

	status, resp = call(t, app, "PUT", "/super/users/"+created.User.ID+"/permissions", superToken,
		map[string]interface{}{"permissions": []string{"users", "checkin"}})
	require.Equal(t, fiber.StatusOK, status, resp.Message)
	var view struct {
		Permissions []string `json:"permissions"`
	}
	decode(t, resp.Data, &view)
	assert.Equal(t, []string{"users", "checkin"}, view.Permissions)

	var saved user.User
	require.NoError(t, db.Where("id = ?", created.User.ID).First(&saved).Error)
	assert.False(t, saved.CanAccessSessions)
	assert.True(t, saved.CanAccessUsers)
	assert.True(t, saved.CanAccessCheckin)

	status, _ = call(t, app, "PUT", "/super/users/"+member.ID+"/permissions", superToken,
		map[string]interface{}{"permissions": []string{"users"}})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, resp = call(t, app, "GET", "/super/admins", superToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	var admins []map[string]interface{}
	decode(t, resp.Data, &admins)
	assert.Len(t, admins, 2)
}

func TestUpdateUserRole(t *testing.T) {
	app, db := setup(t)
	super, superToken := newUser(t, db, "root", asSuper)
	admin, _ := newUser(t, db, "useradmin", asUserAdmin)

	status, _ := call(t, app, "PUT", "/super/users/"+super.ID+"/role", superToken, map[string]string{"role": "USER"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = call(t, app, "PUT", "/super/users/"+admin.ID+"/role", superToken, map[string]string{"role": "OWNER"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	// Demotion clears the stored permission flags.
	status, resp := call(t, app, "PUT", "/super/users/"+admin.ID+"/role", superToken, map[string]string{"role": "USER"})
	require.Equal(t, fiber.StatusOK, status, resp.Message)
	var saved user.User
	require.NoError(t, db.Where("id = ?", admin.ID).First(&saved).Error)
	assert.Equal(t, user.RoleUser, saved.Role)
	assert.False(t, saved.CanAccessUsers)
}

func TestLabels(t *testing.T) {
	app, db := setup(t)
	_, token := newUser(t, db, "useradmin", asUserAdmin)
	member, _ := newUser(t, db, "member", nil)

	status, _ := call(t, app, "POST", "/labels/", token, map[string]string{"name": "VIP", "color": "red"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, resp := call(t, app, "POST", "/labels/", token, map[string]string{"name": " VIP ", "color": "#FF0000"})
	require.Equal(t, fiber.StatusCreated, status, resp.Message)
	var vip user.Label
	decode(t, resp.Data, &vip)
	assert.Equal(t, "VIP", vip.Name)
	assert.Equal(t, "#ff0000", vip.Color)

	status, _ = call(t, app, "POST", "/labels/", token, map[string]string{"name": "vip"})
	assert.Equal(t, fiber.StatusConflict, status)

	status, resp = call(t, app, "POST", "/labels/create-and-assign", token, map[string]string{"userId": member.ID, "name": "Speaker"})
	require.Equal(t, fiber.StatusCreated, status, resp.Message)
	var speaker user.Label
	decode(t, resp.Data, &speaker)
	assert.Equal(t, user.DefaultLabelColor, speaker.Color)

	status, _ = call(t, app, "PUT", "/labels/"+speaker.ID, token, map[string]string{"name": "VIP"})
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = call(t, app, "POST", "/labels/assign", token, map[string]interface{}{"userId": member.ID, "labelIds": []string{vip.ID, "missing"}})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, resp = call(t, app, "POST", "/labels/assign", token, map[string]interface{}{"userId": member.ID, "labelIds": []string{vip.ID}})
	require.Equal(t, fiber.StatusOK, status, resp.Message)
	var assigned []user.Label
	decode(t, resp.Data, &assigned)
	require.Len(t, assigned, 1)
	assert.Equal(t, vip.ID, assigned[0].ID)

	status, resp = call(t, app, "GET", "/labels/", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	var views []struct {
		Name      string `json:"name"`
		UserCount int64  `json:"userCount"`
	}
	decode(t, resp.Data, &views)
	require.Len(t, views, 2)
	counts := map[string]int64{}
	for _, v := range views {
		counts[v.Name] = v.UserCount
	}
	assert.Equal(t, map[string]int64{"VIP": 1, "Speaker": 0}, counts)

	status, resp = call(t, app, "GET", "/users/?labelId="+vip.ID, token, nil)
	require.Equal(t, fiber.StatusOK, status)
	var page struct {
		Items []user.User `json:"items"`
	}
	decode(t, resp.Data, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, member.ID, page.Items[0].ID)

	status, _ = call(t, app, "DELETE", "/labels/"+vip.ID, token, nil)
	require.Equal(t, fiber.StatusOK, status)
	var links int64
	require.NoError(t, db.Table("user_label_assignments").Count(&links).Error)
	assert.Zero(t, links)
	status, _ = call(t, app, "DELETE", "/labels/"+vip.ID, token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestNotes_AuthorOrSuperAdmin(t *testing.T) {
	app, db := setup(t)
	_, authorToken := newUser(t, db, "author", asUserAdmin)
	_, otherToken := newUser(t, db, "other", asUserAdmin)
	_, superToken := newUser(t, db, "root", asSuper)
	member, _ := newUser(t, db, "member", nil)

	status, _ := call(t, app, "POST", "/notes/", authorToken, map[string]string{"userId": member.ID, "content": "  "})
	assert.Equal(t, fiber.StatusBadRequest, status)

	note := func() user.Note {
		status, resp := call(t, app, "POST", "/notes/", authorToken, map[string]string{"userId": member.ID, "content": " Met at the dinner "})
		require.Equal(t, fiber.StatusCreated, status, resp.Message)
		var n user.Note
		decode(t, resp.Data, &n)
		return n
	}
	first, second := note(), note()
	assert.Equal(t, "Met at the dinner", first.Content)
	require.NotNil(t, first.CreatedBy)
	assert.Equal(t, "User author", first.CreatedBy.Name)

	status, _ = call(t, app, "DELETE", "/notes/"+first.ID, otherToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	status, _ = call(t, app, "DELETE", "/notes/"+first.ID, authorToken, nil)
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = call(t, app, "DELETE", "/notes/"+second.ID, superToken, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, resp := call(t, app, "GET", "/notes/"+member.ID, authorToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, resp.Data)
}

func TestBootstrapSuperAdmin(t *testing.T) {
	app, _ := setup(t)

	status, _ := call(t, app, "POST", "/bootstrap", "", map[string]string{"email": "root@example.com", "password": "123"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, resp := call(t, app, "POST", "/bootstrap", "", map[string]string{"email": "Root@Example.com", "password": "secret123"})
	require.Equal(t, fiber.StatusCreated, status, resp.Message)
	var u user.User
	decode(t, resp.Data, &u)
	assert.Equal(t, user.RoleSuperAdmin, u.Role)
	assert.Equal(t, "root@example.com", u.Email)

	status, _ = call(t, app, "POST", "/bootstrap", "", map[string]string{"email": "second@example.com", "password": "secret123"})
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestDashboardAndSessionTools(t *testing.T) {
	app, db := setup(t)
	_, token := newUser(t, db, "root", asSuper)
	member, _ := newUser(t, db, "member", nil)
	slug := "july-meetup"
	s := session.Session{SessionNumber: 4, Title: "July Meetup", Slug: &slug, Date: time.Now().Add(24 * time.Hour)}
	require.NoError(t, db.Create(&s).Error)
	approved := registration.Registration{SessionID: s.ID, UserID: &member.ID, IsApproved: true}
	require.NoError(t, db.Create(&approved).Error)
	walkIn := "Walk In"
	require.NoError(t, db.Create(&registration.Registration{SessionID: s.ID, GuestName: &walkIn}).Error)

	status, resp := call(t, app, "GET", "/dashboard", token, nil)
	require.Equal(t, fiber.StatusOK, status, resp.Message)
	var dash struct {
		Totals   dashboardTotals   `json:"totals"`
		Upcoming []session.Session `json:"upcomingSessions"`
	}
	decode(t, resp.Data, &dash)
	assert.Equal(t, dashboardTotals{Users: 1, Sessions: 1, Registrations: 2, Pending: 1}, dash.Totals)
	require.Len(t, dash.Upcoming, 1)

	status, resp = call(t, app, "GET", "/sessions/"+s.ID+"/qr", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	var qr struct {
		URL    string `json:"url"`
		QRCode string `json:"qrCode"`
	}
	decode(t, resp.Data, &qr)
	assert.Equal(t, "https://events.example.com/event/july-meetup/checkin", qr.URL)
	assert.True(t, strings.HasPrefix(qr.QRCode, "data:image/png;base64,"))

	status, resp = call(t, app, "GET", "/sessions/"+s.ID+"/export", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	var export struct {
		CSV      string `json:"csv"`
		Filename string `json:"filename"`
	}
	decode(t, resp.Data, &export)
	assert.True(t, strings.HasPrefix(export.Filename, "session-july-meetup-registrations-"), export.Filename)
	lines := strings.Split(export.CSV, "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "User member,member@example.com,"), lines[1])
	assert.Contains(t, lines[1], "مؤكد")
	assert.True(t, strings.HasPrefix(lines[2], "Walk In,"), lines[2])
	assert.Contains(t, lines[2], "بانتظار الموافقة")

	status, resp = call(t, app, "GET", "/recommendations", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	var recs []struct {
		Type string `json:"type"`
	}
	decode(t, resp.Data, &recs)
	kinds := []string{}
	for _, r := range recs {
		kinds = append(kinds, r.Type)
	}
	assert.Equal(t, []string{"growth", "content"}, kinds)

	status, _ = call(t, app, "GET", "/sessions/missing/qr", token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestSettings(t *testing.T) {
	app, db := setup(t)
	_, token := newUser(t, db, "root", asSuper)

	status, resp := call(t, app, "PUT", "/settings", token, map[string]interface{}{"siteName": "Business Tuesdays", "showCateringInterest": false})
	require.Equal(t, fiber.StatusOK, status, resp.Message)

	status, resp = call(t, app, "GET", "/settings", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	var out map[string]interface{}
	decode(t, resp.Data, &out)
	assert.Equal(t, "Business Tuesdays", out["siteName"])
	assert.Equal(t, false, out["showCateringInterest"])
}
