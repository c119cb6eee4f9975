package suggestion

import (
	"time"

	"eventpilot/models/common"
	"eventpilot/models/user"

	"gorm.io/gorm"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusReviewed    Status = "reviewed"
	StatusImplemented Status = "implemented"
	StatusDismissed   Status = "dismissed"
)

var Statuses = []Status{StatusPending, StatusReviewed, StatusImplemented, StatusDismissed}

func (s Status) IsValid() bool {
	for _, st := range Statuses {
		if st == s {
			return true
		}
	}
	return false
}

const (
	MinContentLength = 10
	MaxContentLength = 1000
)

type Suggestion struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);not null;index" json:"userId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Status    Status    `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	User *user.User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

func (s *Suggestion) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = common.NewID()
	}
	if s.Status == "" {
		s.Status = StatusPending
	}
	return nil
}
