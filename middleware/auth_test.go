package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"eventpilot/constants"
	"eventpilot/internal/testdb"
	"eventpilot/models/user"
	"eventpilot/services/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const secret = "middleware-secret"

func createUser(t *testing.T, db *gorm.DB, u user.User) (*user.User, string) {
	t.Helper()
	require.NoError(t, db.Create(&u).Error)
	token, err := auth.IssueUserToken(secret, time.Hour, &u)
	require.NoError(t, err)
	return &u, token
}

func status(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestAuthenticatorGuards(t *testing.T) {
	db := testdb.New(t)
	a := NewAuthenticator(db, secret)

	app := fiber.New()
	echo := func(c *fiber.Ctx) error { return c.SendString(CurrentUserID(c)) }
	app.Get("/auth", a.RequireAuth(), echo)
	app.Get("/optional", a.OptionalAuth(), echo)
	app.Get("/admin", a.RequireAdmin(), echo)
	app.Get("/users", a.RequireAdmin(constants.PermUsers), echo)
	app.Get("/super", a.RequireSuperAdmin(), echo)

	_, member := createUser(t, db, user.User{Name: "Member", Username: "member", Email: "member@example.com", Role: user.RoleUser})
	_, admin := createUser(t, db, user.User{Name: "Admin", Username: "admin", Email: "admin@example.com", Role: user.RoleAdmin, CanAccessSessions: true})
	_, usersAdmin := createUser(t, db, user.User{Name: "Users", Username: "users", Email: "users@example.com", Role: user.RoleAdmin, CanAccessUsers: true})
	_, super := createUser(t, db, user.User{Name: "Root", Username: "root", Email: "root@example.com", Role: user.RoleSuperAdmin})

	cases := []struct {
		path  string
		token string
		want  int
	}{
		{"/auth", "", fiber.StatusUnauthorized},
		{"/auth", "not-a-jwt", fiber.StatusUnauthorized},
		{"/auth", member, fiber.StatusOK},
		{"/optional", "", fiber.StatusOK},
		{"/optional", "not-a-jwt", fiber.StatusOK},
		{"/admin", member, fiber.StatusForbidden},
		{"/admin", admin, fiber.StatusOK},
		{"/users", admin, fiber.StatusForbidden},
		{"/users", usersAdmin, fiber.StatusOK},
		{"/users", super, fiber.StatusOK},
		{"/super", admin, fiber.StatusForbidden},
		{"/super", super, fiber.StatusOK},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, status(t, app, tc.path, tc.token), tc.path)
	}
}

func TestRequireAuth_InactiveAccount(t *testing.T) {
	db := testdb.New(t)
	a := NewAuthenticator(db, secret)
	app := fiber.New()
	app.Get("/auth", a.RequireAuth(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	u, token := createUser(t, db, user.User{Name: "Member", Username: "member", Email: "member@example.com"})
	assert.Equal(t, fiber.StatusOK, status(t, app, "/auth", token))

	require.NoError(t, db.Model(u).Update("is_active", false).Error)
	assert.Equal(t, fiber.StatusForbidden, status(t, app, "/auth", token))
}

func TestRequireAdmin_UsesStoredRole(t *testing.T) {
	db := testdb.New(t)
	a := NewAuthenticator(db, secret)
	app := fiber.New()
	app.Get("/admin", a.RequireAdmin(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	u, token := createUser(t, db, user.User{Name: "Admin", Username: "admin", Email: "admin@example.com", Role: user.RoleAdmin})
	assert.Equal(t, fiber.StatusOK, status(t, app, "/admin", token))

	// A demotion takes effect without a new token.
	require.NoError(t, db.Model(u).Update("role", user.RoleUser).Error)
	assert.Equal(t, fiber.StatusForbidden, status(t, app, "/admin", token))
}

func TestBearerFallsBackToCookie(t *testing.T) {
	db := testdb.New(t)
	a := NewAuthenticator(db, secret)
	app := fiber.New()
	app.Get("/auth", a.RequireAuth(), func(c *fiber.Ctx) error { return c.SendString(CurrentUser(c).Username) })

	_, token := createUser(t, db, user.User{Name: "Member", Username: "member", Email: "member@example.com"})
	req := httptest.NewRequest("GET", "/auth", nil)
	req.Header.Set("Cookie", "access="+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
