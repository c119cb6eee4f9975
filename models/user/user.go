package user

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"eventpilot/models/common"
	"eventpilot/utils"

	"gorm.io/gorm"
)

type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User is an account holder. Guests who register without an account live
// on the registration row instead.
type User struct {
	ID           string             `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name         string             `gorm:"type:varchar(255);not null" json:"name"`
	Username     string             `gorm:"type:varchar(255);not null;uniqueIndex" json:"username"`
	Email        string             `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Phone        string             `gorm:"type:varchar(20);index" json:"phone"`
	PasswordHash string             `gorm:"type:varchar(255)" json:"-"`
	Role         Role               `gorm:"type:varchar(20);not null;default:USER" json:"role"`
	IsActive     bool               `gorm:"not null;default:true" json:"isActive"`
	AvatarURL    *string            `gorm:"type:varchar(2048)" json:"avatarUrl"`
	Bio          *string            `gorm:"type:text" json:"bio"`
	CompanyName  *string            `gorm:"type:varchar(255)" json:"companyName"`
	Position     *string            `gorm:"type:varchar(255)" json:"position"`
	ActivityType *string            `gorm:"type:varchar(255)" json:"activityType"`
	Gender       *string            `gorm:"type:varchar(10)" json:"gender"`
	Goal         *string            `gorm:"type:text" json:"goal"`
	Instagram    *string            `gorm:"type:varchar(255)" json:"instagram"`
	Snapchat     *string            `gorm:"type:varchar(255)" json:"snapchat"`
	Twitter      *string            `gorm:"type:varchar(255)" json:"twitter"`
	WantsToHost  bool               `gorm:"not null;default:false" json:"wantsToHost"`
	HostingTypes common.StringSlice `gorm:"type:text" json:"hostingTypes"`

	CanAccessDashboard      bool `gorm:"not null;default:false" json:"canAccessDashboard"`
	CanAccessSessions       bool `gorm:"not null;default:false" json:"canAccessSessions"`
	CanAccessUsers          bool `gorm:"not null;default:false" json:"canAccessUsers"`
	CanAccessHosts          bool `gorm:"not null;default:false" json:"canAccessHosts"`
	CanAccessAnalytics      bool `gorm:"not null;default:false" json:"canAccessAnalytics"`
	CanAccessCheckin        bool `gorm:"not null;default:false" json:"canAccessCheckin"`
	CanAccessSettings       bool `gorm:"not null;default:false" json:"canAccessSettings"`
	CanAccessSuggestions    bool `gorm:"not null;default:false" json:"canAccessSuggestions"`
	CanAccessEmailCampaigns bool `gorm:"not null;default:false" json:"canAccessEmailCampaigns"`

	Labels []Label `gorm:"many2many:user_label_assignments;constraint:OnDelete:CASCADE" json:"labels,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = common.NewID()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// PublicProfile is what anonymous visitors may see.
type PublicProfile struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Username    string  `json:"username"`
	AvatarURL   *string `json:"avatarUrl"`
	Bio         *string `json:"bio"`
	CompanyName *string `json:"companyName"`
	Position    *string `json:"position"`
	Instagram   *string `json:"instagram"`
	Snapchat    *string `json:"snapchat"`
	Twitter     *string `json:"twitter"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:          u.ID,
		Name:        u.Name,
		Username:    u.Username,
		AvatarURL:   u.AvatarURL,
		Bio:         u.Bio,
		CompanyName: u.CompanyName,
		Position:    u.Position,
		Instagram:   u.Instagram,
		Snapchat:    u.Snapchat,
		Twitter:     u.Twitter,
	}
}

// GenerateUniqueUsername derives a username from name and appends _N until
// no existing user holds it.
func GenerateUniqueUsername(db *gorm.DB, name string) (string, error) {
	base := utils.BaseUsername(name)
	if base == "" {
		base = "user"
	}

	username := base
	for counter := 1; ; counter++ {
		var count int64
		if err := db.Model(&User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return "", fmt.Errorf("check username: %w", err)
		}
		if count == 0 {
			return username, nil
		}
		username = fmt.Sprintf("%s_%d", base, counter)
	}
}

// FindByLogin looks a user up by email or username.
func FindByLogin(db *gorm.DB, login string) (*User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	var u User
	err := db.Where("email = ? OR username = ?", login, login).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

var ErrEmailTaken = errors.New("email already registered")

// PasswordResetToken stores only the hash of the emailed token.
type PasswordResetToken struct {
	ID        string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string     `gorm:"type:varchar(36);not null;index" json:"userId"`
	TokenHash string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expiresAt"`
	UsedAt    *time.Time `json:"usedAt"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"createdAt"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (t *PasswordResetToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = common.NewID()
	}
	return nil
}

// Usable reports whether the token can still reset a password.
func (t *PasswordResetToken) Usable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
