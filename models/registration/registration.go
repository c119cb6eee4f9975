package registration

import (
	"strings"
	"time"

	"eventpilot/models/common"
	"eventpilot/models/session"
	"eventpilot/models/user"

	"gorm.io/gorm"
)

// Registration binds a user or a walk-in guest to a session. Companions are
// registrations whose InvitedByRegistrationID points at the primary one.
type Registration struct {
	ID                      string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	SessionID               string  `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_registration_user_session" json:"sessionId"`
	UserID                  *string `gorm:"type:varchar(36);index;uniqueIndex:idx_registration_user_session" json:"userId"`
	InvitedByRegistrationID *string `gorm:"type:varchar(36);index" json:"invitedByRegistrationId"`
	IsApproved              bool    `gorm:"not null;default:false;index" json:"isApproved"`
	ApprovalNotes           *string `gorm:"type:text" json:"approvalNotes"`
	NeedsValet              bool    `gorm:"not null;default:false" json:"needsValet"`

	GuestName         *string            `gorm:"type:varchar(255)" json:"guestName"`
	GuestEmail        *string            `gorm:"type:varchar(255);index" json:"guestEmail"`
	GuestPhone        *string            `gorm:"type:varchar(20);index" json:"guestPhone"`
	GuestInstagram    *string            `gorm:"type:varchar(255)" json:"guestInstagram"`
	GuestSnapchat     *string            `gorm:"type:varchar(255)" json:"guestSnapchat"`
	GuestTwitter      *string            `gorm:"type:varchar(255)" json:"guestTwitter"`
	GuestCompanyName  *string            `gorm:"type:varchar(255)" json:"guestCompanyName"`
	GuestPosition     *string            `gorm:"type:varchar(255)" json:"guestPosition"`
	GuestActivityType *string            `gorm:"type:varchar(255)" json:"guestActivityType"`
	GuestGender       *string            `gorm:"type:varchar(10)" json:"guestGender"`
	GuestGoal         *string            `gorm:"type:text" json:"guestGoal"`
	GuestWantsToHost  bool               `gorm:"not null;default:false" json:"guestWantsToHost"`
	GuestHostingTypes common.StringSlice `gorm:"type:text" json:"guestHostingTypes"`

	RegisteredAt time.Time `gorm:"autoCreateTime;index" json:"registeredAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	Session               *session.Session `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"session,omitempty"`
	User                  *user.User       `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"user,omitempty"`
	InvitedByRegistration *Registration    `gorm:"foreignKey:InvitedByRegistrationID;constraint:OnDelete:CASCADE" json:"invitedByRegistration,omitempty"`
	Companions            []Registration   `gorm:"foreignKey:InvitedByRegistrationID" json:"companions,omitempty"`
	Attendance            *Attendance      `gorm:"foreignKey:RegistrationID" json:"attendance,omitempty"`
}

func (r *Registration) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = common.NewID()
	}
	if r.GuestEmail != nil {
		email := strings.ToLower(strings.TrimSpace(*r.GuestEmail))
		r.GuestEmail = &email
	}
	return nil
}

func (r *Registration) IsCompanion() bool {
	return r.InvitedByRegistrationID != nil
}

// DisplayName prefers the account name over the guest name.
func (r *Registration) DisplayName() string {
	if r.User != nil {
		return r.User.Name
	}
	return deref(r.GuestName)
}

func (r *Registration) ContactEmail() string {
	if r.User != nil {
		return r.User.Email
	}
	return deref(r.GuestEmail)
}

func (r *Registration) ContactPhone() string {
	if r.User != nil {
		return r.User.Phone
	}
	return deref(r.GuestPhone)
}

func (r *Registration) CompanyName() string {
	if r.User != nil && r.User.CompanyName != nil {
		return *r.User.CompanyName
	}
	return deref(r.GuestCompanyName)
}

func (r *Registration) Position() string {
	if r.User != nil && r.User.Position != nil {
		return *r.User.Position
	}
	return deref(r.GuestPosition)
}

// Attendance records check-in for a registration. One row per registration.
type Attendance struct {
	ID             string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	RegistrationID string     `gorm:"type:varchar(36);not null;uniqueIndex" json:"registrationId"`
	SessionID      string     `gorm:"type:varchar(36);not null;index" json:"sessionId"`
	Attended       bool       `gorm:"not null;default:false" json:"attended"`
	CheckInTime    *time.Time `json:"checkInTime"`
	CheckInMethod  *string    `gorm:"type:varchar(20)" json:"checkInMethod"`
	MarkedByID     *string    `gorm:"type:varchar(36)" json:"markedById"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`

	Registration *Registration `gorm:"foreignKey:RegistrationID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Attendance) TableName() string {
	return "attendances"
}

func (a *Attendance) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = common.NewID()
	}
	return nil
}

// CountApprovedPrimary is the number that capacity checks compare against
// maxParticipants. Companions are not counted.
func CountApprovedPrimary(db *gorm.DB, sessionID string) (int64, error) {
	var count int64
	err := db.Model(&Registration{}).
		Where("session_id = ? AND is_approved = ? AND invited_by_registration_id IS NULL", sessionID, true).
		Count(&count).Error
	return count, err
}

// CountApproved counts every approved registration including companions.
func CountApproved(db *gorm.DB, sessionID string) (int64, error) {
	var count int64
	err := db.Model(&Registration{}).
		Where("session_id = ? AND is_approved = ?", sessionID, true).
		Count(&count).Error
	return count, err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
