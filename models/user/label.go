package user

import (
	"time"

	"eventpilot/models/common"

	"gorm.io/gorm"
)

const DefaultLabelColor = "#3b82f6"

// Label tags users for filtering in admin screens.
type Label struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	Color     string    `gorm:"type:varchar(7);not null;default:'#3b82f6'" json:"color"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`

	Users []User `gorm:"many2many:user_label_assignments;constraint:OnDelete:CASCADE" json:"-"`
}

func (Label) TableName() string {
	return "user_labels"
}

func (l *Label) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = common.NewID()
	}
	if l.Color == "" {
		l.Color = DefaultLabelColor
	}
	return nil
}

// Note is an internal admin remark about a user.
type Note struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string    `gorm:"type:varchar(36);not null;index" json:"userId"`
	CreatedByID string    `gorm:"type:varchar(36);not null;index" json:"createdById"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`

	User      *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedBy *User `gorm:"foreignKey:CreatedByID;constraint:OnDelete:CASCADE" json:"createdBy,omitempty"`
}

func (Note) TableName() string {
	return "user_notes"
}

func (n *Note) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = common.NewID()
	}
	return nil
}
