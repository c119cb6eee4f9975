package permission

import (
	"eventpilot/constants"
	"eventpilot/models/user"
)

// flag returns a pointer to the user's stored flag for key, or nil.
func flag(u *user.User, key string) *bool {
	switch key {
	case constants.PermDashboard:
		return &u.CanAccessDashboard
	case constants.PermSessions:
		return &u.CanAccessSessions
	case constants.PermUsers:
		return &u.CanAccessUsers
	case constants.PermHosts:
		return &u.CanAccessHosts
	case constants.PermAnalytics:
		return &u.CanAccessAnalytics
	case constants.PermCheckin:
		return &u.CanAccessCheckin
	case constants.PermSettings:
		return &u.CanAccessSettings
	case constants.PermSuggestions:
		return &u.CanAccessSuggestions
	case constants.PermEmailCampaigns:
		return &u.CanAccessEmailCampaigns
	}
	return nil
}

// Has reports whether u holds the permission key.
func Has(u *user.User, key string) bool {
	if u == nil {
		return false
	}
	switch u.Role {
	case user.RoleSuperAdmin:
		return constants.IsPermission(key)
	case user.RoleAdmin:
		f := flag(u, key)
		return f != nil && *f
	}
	return false
}

// HasAll reports whether u holds every key. An empty list only requires an
// admin role.
func HasAll(u *user.User, keys ...string) bool {
	if u == nil || !u.Role.IsAdmin() {
		return false
	}
	for _, k := range keys {
		if !Has(u, k) {
			return false
		}
	}
	return true
}

// List returns the keys u holds, in display order.
func List(u *user.User) []string {
	out := []string{}
	for _, k := range constants.AllPermissions {
		if Has(u, k) {
			out = append(out, k)
		}
	}
	return out
}

// Apply replaces the stored flags of u with keys. Unknown keys are ignored.
func Apply(u *user.User, keys []string) {
	for _, k := range constants.AllPermissions {
		*flag(u, k) = false
	}
	for _, k := range keys {
		if f := flag(u, k); f != nil {
			*f = true
		}
	}
}

// Columns returns the column updates that persist the stored flags of u.
func Columns(u *user.User) map[string]interface{} {
	return map[string]interface{}{
		"can_access_dashboard":       u.CanAccessDashboard,
		"can_access_sessions":        u.CanAccessSessions,
		"can_access_users":           u.CanAccessUsers,
		"can_access_hosts":           u.CanAccessHosts,
		"can_access_analytics":       u.CanAccessAnalytics,
		"can_access_checkin":         u.CanAccessCheckin,
		"can_access_settings":        u.CanAccessSettings,
		"can_access_suggestions":     u.CanAccessSuggestions,
		"can_access_email_campaigns": u.CanAccessEmailCampaigns,
	}
}
