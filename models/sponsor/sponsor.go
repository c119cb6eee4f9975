package sponsor

import (
	"time"

	"eventpilot/models/common"
	"eventpilot/models/session"
	"eventpilot/models/user"

	"gorm.io/gorm"
)

type Type string

const (
	TypePerson  Type = "person"
	TypeCompany Type = "company"
)

func (t Type) IsValid() bool {
	return t == TypePerson || t == TypeCompany
}

func (t Type) Label() string {
	switch t {
	case TypePerson:
		return "فرد"
	case TypeCompany:
		return "شركة"
	}
	return string(t)
}

// Sponsor is a person or company that sponsors sessions.
type Sponsor struct {
	ID                   string             `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name                 string             `gorm:"type:varchar(255);not null;index" json:"name"`
	Type                 Type               `gorm:"type:varchar(20);not null" json:"type"`
	Email                *string            `gorm:"type:varchar(255)" json:"email"`
	Phone                *string            `gorm:"type:varchar(20)" json:"phone"`
	LogoURL              *string            `gorm:"type:varchar(2048)" json:"logoUrl"`
	SponsorshipTypes     common.StringSlice `gorm:"type:text" json:"sponsorshipTypes"`
	SponsorshipOtherText *string            `gorm:"type:text" json:"sponsorshipOtherText"`
	IsActive             bool               `gorm:"not null;index" json:"isActive"`
	UserID               *string            `gorm:"type:varchar(36);index" json:"userId"`
	CreatedAt            time.Time          `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt            time.Time          `gorm:"autoUpdateTime" json:"updatedAt"`

	User         *user.User    `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"user,omitempty"`
	Sponsorships []Sponsorship `gorm:"foreignKey:SponsorID" json:"eventSponsorships,omitempty"`
}

func (s *Sponsor) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = common.NewID()
	}
	if s.Type == "" {
		s.Type = TypePerson
	}
	return nil
}

// Sponsorship links a sponsor to a session for one sponsorship type. A nil
// SponsorID means the session sponsored itself.
type Sponsorship struct {
	ID              string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	SessionID       string    `gorm:"type:varchar(36);not null;index" json:"sessionId"`
	SponsorID       *string   `gorm:"type:varchar(36);index" json:"sponsorId"`
	SponsorshipType string    `gorm:"type:varchar(50);not null" json:"sponsorshipType"`
	IsSelfSponsored bool      `gorm:"not null;default:false" json:"isSelfSponsored"`
	Notes           *string   `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	Session *session.Session `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"session,omitempty"`
	Sponsor *Sponsor         `gorm:"foreignKey:SponsorID;constraint:OnDelete:CASCADE" json:"sponsor,omitempty"`
}

func (Sponsorship) TableName() string {
	return "event_sponsorships"
}

func (s *Sponsorship) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = common.NewID()
	}
	return nil
}
