package constants

// Admin permission keys. SUPER_ADMIN holds all of them implicitly.
const (
	PermDashboard      = "dashboard"
	PermSessions       = "sessions"
	PermUsers          = "users"
	PermHosts          = "hosts"
	PermAnalytics      = "analytics"
	PermCheckin        = "checkin"
	PermSettings       = "settings"
	PermSuggestions    = "suggestions"
	PermEmailCampaigns = "emailCampaigns"
)

// AllPermissions in display order.
var AllPermissions = []string{
	PermDashboard,
	PermSessions,
	PermUsers,
	PermHosts,
	PermAnalytics,
	PermCheckin,
	PermSettings,
	PermSuggestions,
	PermEmailCampaigns,
}

var PermissionLabels = map[string]string{
	PermDashboard:      "لوحة التحكم",
	PermSessions:       "إدارة الأحداث",
	PermUsers:          "إدارة المستخدمين",
	PermHosts:          "إدارة الرعاة",
	PermAnalytics:      "الإحصائيات",
	PermCheckin:        "تسجيل الحضور",
	PermSettings:       "الإعدادات",
	PermSuggestions:    "الاقتراحات",
	PermEmailCampaigns: "حملات البريد",
}

func IsPermission(key string) bool {
	_, ok := PermissionLabels[key]
	return ok
}
