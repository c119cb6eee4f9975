package settings

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

const GlobalKey = "global"

// Settings is a keyed singleton row of site-wide options.
type Settings struct {
	Key                     string    `gorm:"type:varchar(50);primaryKey" json:"key"`
	ShowSocialMediaFields   bool      `gorm:"not null" json:"showSocialMediaFields"`
	ShowRegistrationPurpose bool      `gorm:"not null" json:"showRegistrationPurpose"`
	ShowCateringInterest    bool      `gorm:"not null" json:"showCateringInterest"`
	SiteName                *string   `gorm:"type:varchar(255)" json:"siteName"`
	ContactEmail            *string   `gorm:"type:varchar(255)" json:"contactEmail"`
	ContactPhone            *string   `gorm:"type:varchar(20)" json:"contactPhone"`
	TwitterHandle           *string   `gorm:"type:varchar(100)" json:"twitterHandle"`
	InstagramHandle         *string   `gorm:"type:varchar(100)" json:"instagramHandle"`
	SnapchatHandle          *string   `gorm:"type:varchar(100)" json:"snapchatHandle"`
	LinkedinURL             *string   `gorm:"type:varchar(2048)" json:"linkedinUrl"`
	WhatsappNumber          *string   `gorm:"type:varchar(20)" json:"whatsappNumber"`
	CreatedAt               time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt               time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Defaults is the row created on first read.
func Defaults() Settings {
	return Settings{
		Key:                     GlobalKey,
		ShowSocialMediaFields:   true,
		ShowRegistrationPurpose: true,
		ShowCateringInterest:    true,
	}
}

// LoadOrCreate returns the global row, creating it with defaults if absent.
func LoadOrCreate(db *gorm.DB) (*Settings, error) {
	var s Settings
	err := db.Where("key = ?", GlobalKey).First(&s).Error
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	s = Defaults()
	if err := db.Create(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
