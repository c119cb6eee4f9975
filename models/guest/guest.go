package guest

import (
	"time"

	"eventpilot/models/common"
	"eventpilot/models/session"

	"gorm.io/gorm"
)

// Guest is a speaker or featured guest shown on session pages.
type Guest struct {
	ID               string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name             string         `gorm:"type:varchar(255);not null;index" json:"name"`
	Title            *string        `gorm:"type:varchar(100)" json:"title"`
	JobTitle         *string        `gorm:"type:varchar(255)" json:"jobTitle"`
	Company          *string        `gorm:"type:varchar(255)" json:"company"`
	Description      *string        `gorm:"type:text" json:"description"`
	ImageURL         *string        `gorm:"type:varchar(2048)" json:"imageUrl"`
	SocialMediaLinks common.JSONMap `gorm:"type:text" json:"socialMediaLinks"`
	IsPublic         bool           `gorm:"not null;default:false" json:"isPublic"`
	IsActive         bool           `gorm:"not null;index" json:"isActive"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`

	SessionGuests []SessionGuest `gorm:"foreignKey:GuestID" json:"sessionGuests,omitempty"`
}

func (g *Guest) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = common.NewID()
	}
	return nil
}

// SessionGuest orders guests on a session.
type SessionGuest struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	SessionID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_session_guest" json:"sessionId"`
	GuestID      string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_session_guest;index" json:"guestId"`
	DisplayOrder int       `gorm:"not null;default:0" json:"displayOrder"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`

	Session *session.Session `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"session,omitempty"`
	Guest   *Guest           `gorm:"foreignKey:GuestID;constraint:OnDelete:CASCADE" json:"guest,omitempty"`
}

func (SessionGuest) TableName() string {
	return "session_guests"
}

func (sg *SessionGuest) BeforeCreate(tx *gorm.DB) error {
	if sg.ID == "" {
		sg.ID = common.NewID()
	}
	return nil
}
