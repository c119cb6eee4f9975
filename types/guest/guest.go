package guest

import (
	"fmt"
	"strings"

	"eventpilot/models/common"
	guestModel "eventpilot/models/guest"
)

// GuestRequest creates or partially updates a guest profile.
type GuestRequest struct {
	Name             *string           `json:"name"`
	Title            *string           `json:"title"`
	JobTitle         *string           `json:"jobTitle"`
	Company          *string           `json:"company"`
	Description      *string           `json:"description"`
	ImageURL         *string           `json:"imageUrl"`
	SocialMediaLinks map[string]string `json:"socialMediaLinks"`
	IsPublic         *bool             `json:"isPublic"`
	IsActive         *bool             `json:"isActive"`
}

func (r GuestRequest) ValidateCreate() error {
	if r.Name == nil || len([]rune(strings.TrimSpace(*r.Name))) < 2 {
		return fmt.Errorf("اسم الضيف مطلوب")
	}
	return nil
}

func (r GuestRequest) ValidateUpdate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return fmt.Errorf("اسم الضيف مطلوب")
	}
	return nil
}

func text(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// CleanLinks drops empty entries.
func CleanLinks(links map[string]string) common.JSONMap {
	out := common.JSONMap{}
	for k, v := range links {
		if v = strings.TrimSpace(v); v != "" {
			out[k] = v
		}
	}
	return out
}

func (r GuestRequest) Model() guestModel.Guest {
	return guestModel.Guest{
		Name:             strings.TrimSpace(*r.Name),
		Title:            text(r.Title),
		JobTitle:         text(r.JobTitle),
		Company:          text(r.Company),
		Description:      text(r.Description),
		ImageURL:         text(r.ImageURL),
		SocialMediaLinks: CleanLinks(r.SocialMediaLinks),
		IsPublic:         r.IsPublic != nil && *r.IsPublic,
		IsActive:         r.IsActive == nil || *r.IsActive,
	}
}

func (r GuestRequest) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if r.Name != nil {
		cols["name"] = strings.TrimSpace(*r.Name)
	}
	for col, v := range map[string]*string{
		"title":       r.Title,
		"job_title":   r.JobTitle,
		"company":     r.Company,
		"description": r.Description,
		"image_url":   r.ImageURL,
	} {
		if v != nil {
			cols[col] = text(v)
		}
	}
	if r.SocialMediaLinks != nil {
		cols["social_media_links"] = CleanLinks(r.SocialMediaLinks)
	}
	if r.IsPublic != nil {
		cols["is_public"] = *r.IsPublic
	}
	if r.IsActive != nil {
		cols["is_active"] = *r.IsActive
	}
	return cols
}

type QuickCreateRequest struct {
	Name string `json:"name"`
}

func (r QuickCreateRequest) Validate() error {
	if len([]rune(strings.TrimSpace(r.Name))) < 2 {
		return fmt.Errorf("اسم الضيف مطلوب")
	}
	return nil
}

type SocialMediaRequest struct {
	SocialMediaLinks map[string]string `json:"socialMediaLinks"`
}

type LinkRequest struct {
	SessionID    string `json:"sessionId"`
	GuestID      string `json:"guestId"`
	DisplayOrder *int   `json:"displayOrder"`
}

func (r LinkRequest) Validate() error {
	if r.SessionID == "" || r.GuestID == "" {
		return fmt.Errorf("sessionId and guestId are required")
	}
	return nil
}

type DisplayOrderRequest struct {
	DisplayOrder int `json:"displayOrder"`
}

// SetSessionGuestsRequest replaces a session's guests; order follows the list.
type SetSessionGuestsRequest struct {
	GuestIDs []string `json:"guestIds"`
}

func (r SetSessionGuestsRequest) Validate() error {
	seen := map[string]bool{}
	for _, id := range r.GuestIDs {
		if id == "" {
			return fmt.Errorf("guestIds must not contain empty ids")
		}
		if seen[id] {
			return fmt.Errorf("guestIds must be unique")
		}
		seen[id] = true
	}
	return nil
}
