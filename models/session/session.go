package session

import (
	"time"

	"eventpilot/models/common"

	"gorm.io/gorm"
)

type Status string

const (
	StatusOpen      Status = "open"
	StatusClosed    Status = "closed"
	StatusCompleted Status = "completed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusClosed, StatusCompleted:
		return true
	}
	return false
}

const (
	DefaultMaxParticipants      = 50
	DefaultMaxCompanions        = 5
	DefaultValetRetrievalNotice = 5
)

// Session is a single event occurrence that people register for.
type Session struct {
	ID                        string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	SessionNumber             int        `gorm:"not null;uniqueIndex" json:"sessionNumber"`
	Title                     string     `gorm:"type:varchar(255);not null" json:"title"`
	Slug                      *string    `gorm:"type:varchar(255);uniqueIndex" json:"slug"`
	Description               *string    `gorm:"type:text" json:"description"`
	Date                      time.Time  `gorm:"not null;index" json:"date"`
	GuestName                 *string    `gorm:"type:varchar(255)" json:"guestName"`
	GuestProfile              *string    `gorm:"type:text" json:"guestProfile"`
	MaxParticipants           int        `gorm:"not null;default:50" json:"maxParticipants"`
	MaxCompanions             int        `gorm:"not null" json:"maxCompanions"`
	Status                    Status     `gorm:"type:varchar(20);not null;default:open;index" json:"status"`
	RequiresApproval          bool       `gorm:"not null;default:false" json:"requiresApproval"`
	ShowParticipantCount      bool       `gorm:"not null" json:"showParticipantCount"`
	Location                  *string    `gorm:"type:varchar(500)" json:"location"`
	LocationURL               *string    `gorm:"type:varchar(2048)" json:"locationUrl"`
	RegistrationDeadline      *time.Time `json:"registrationDeadline"`
	ShowCountdown             bool       `gorm:"not null" json:"showCountdown"`
	ShowGuestProfile          bool       `gorm:"not null" json:"showGuestProfile"`
	EnableMiniView            bool       `gorm:"not null;default:false" json:"enableMiniView"`
	CustomConfirmationMessage *string    `gorm:"type:text" json:"customConfirmationMessage"`
	EmbedEnabled              bool       `gorm:"not null" json:"embedEnabled"`
	InviteOnly                bool       `gorm:"not null;default:false" json:"inviteOnly"`
	InviteMessage             *string    `gorm:"type:text" json:"inviteMessage"`
	SendQrInEmail             bool       `gorm:"not null" json:"sendQrInEmail"`
	ValetEnabled              bool       `gorm:"not null;default:false" json:"valetEnabled"`
	ValetLotCapacity          int        `gorm:"not null;default:0" json:"valetLotCapacity"`
	ValetRetrievalNotice      int        `gorm:"not null;default:5" json:"valetRetrievalNotice"`
	CreatedAt                 time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt                 time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = common.NewID()
	}
	if s.Status == "" {
		s.Status = StatusOpen
	}
	if s.MaxParticipants == 0 {
		s.MaxParticipants = DefaultMaxParticipants
	}
	if s.ValetRetrievalNotice == 0 {
		s.ValetRetrievalNotice = DefaultValetRetrievalNotice
	}
	return nil
}

// PathKey is the slug when one is set, otherwise the id.
func (s *Session) PathKey() string {
	if s.Slug != nil && *s.Slug != "" {
		return *s.Slug
	}
	return s.ID
}

// DeadlinePassed reports whether registration closed by deadline.
func (s *Session) DeadlinePassed(now time.Time) bool {
	return s.RegistrationDeadline != nil && now.After(*s.RegistrationDeadline)
}

// CanRegister applies the open, capacity and deadline rules against the
// number of approved primary registrations.
func (s *Session) CanRegister(approvedPrimary int64, now time.Time) bool {
	return s.Status == StatusOpen &&
		approvedPrimary < int64(s.MaxParticipants) &&
		!s.DeadlinePassed(now)
}

// Countdown is the time remaining until the session starts.
type Countdown struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Date    time.Time `json:"date"`
	Expired bool      `json:"expired"`
	Days    int64     `json:"days"`
	Hours   int64     `json:"hours"`
	Minutes int64     `json:"minutes"`
	Seconds int64     `json:"seconds"`
}

func (s *Session) CountdownAt(now time.Time) Countdown {
	cd := Countdown{ID: s.ID, Title: s.Title, Date: s.Date}

	diff := s.Date.Sub(now)
	if diff <= 0 {
		cd.Expired = true
		return cd
	}

	total := int64(diff / time.Second)
	cd.Days = total / 86400
	cd.Hours = (total % 86400) / 3600
	cd.Minutes = (total % 3600) / 60
	cd.Seconds = total % 60
	return cd
}
