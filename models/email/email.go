package email

import (
	"time"

	"eventpilot/models/common"

	"gorm.io/gorm"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusSent || s == StatusFailed
}

// Kind names the template an email was rendered from.
type Kind string

const (
	KindConfirmation  Kind = "confirmation"
	KindPending       Kind = "pending"
	KindConfirmed     Kind = "confirmed"
	KindCompanion     Kind = "companion"
	KindWelcome       Kind = "welcome"
	KindPasswordReset Kind = "password_reset"
	KindInvitation    Kind = "invitation"
	KindValetParked   Kind = "valet_parked"
	KindValetReady    Kind = "valet_ready"
	KindValetNotice   Kind = "valet_broadcast"
	KindGalleryShare  Kind = "gallery_share"
)

// MaxAttempts bounds automatic resends of pending rows.
const MaxAttempts = 3

// Log is the delivery record of one outgoing email. The rendered HTML is
// kept so pending rows can be resent.
type Log struct {
	ID             string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	To             string     `gorm:"column:to_address;type:varchar(255);not null;index" json:"to"`
	Subject        string     `gorm:"type:varchar(500);not null" json:"subject"`
	Type           Kind       `gorm:"type:varchar(50);not null;index" json:"type"`
	Status         Status     `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	HTML           string     `gorm:"type:text" json:"-"`
	SessionID      *string    `gorm:"type:varchar(36);index" json:"sessionId"`
	RegistrationID *string    `gorm:"type:varchar(36);index" json:"registrationId"`
	ErrorMessage   *string    `gorm:"type:text" json:"errorMessage"`
	Attempts       int        `gorm:"not null;default:0" json:"attempts"`
	SentAt         *time.Time `json:"sentAt"`
	CreatedAt      time.Time  `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Log) TableName() string {
	return "email_logs"
}

func (l *Log) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = common.NewID()
	}
	if l.Status == "" {
		l.Status = StatusPending
	}
	return nil
}
