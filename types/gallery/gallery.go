package gallery

import (
	"fmt"
	"strings"

	"eventpilot/services/storage"
	"eventpilot/utils"
)

type CreateRequest struct {
	SessionID string `json:"sessionId"`
	Title     string `json:"title"`
}

func (r CreateRequest) Validate() error {
	if r.SessionID == "" {
		return fmt.Errorf("معرف الجلسة مطلوب")
	}
	return nil
}

type UploadURLRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

func (r UploadURLRequest) Validate() error {
	if strings.TrimSpace(r.Filename) == "" {
		return fmt.Errorf("اسم الملف مطلوب")
	}
	if !storage.GalleryContentTypes.Allows(r.ContentType) {
		return fmt.Errorf("نوع الملف غير مدعوم")
	}
	return nil
}

type ConfirmUploadRequest struct {
	Filename    string `json:"filename"`
	S3Key       string `json:"s3Key"`
	FileSize    int64  `json:"fileSize"`
	ContentType string `json:"contentType"`
}

// Validate also checks that the key belongs to the gallery.
func (r ConfirmUploadRequest) Validate(galleryID string) error {
	if strings.TrimSpace(r.Filename) == "" {
		return fmt.Errorf("اسم الملف مطلوب")
	}
	if !strings.HasPrefix(r.S3Key, "galleries/"+galleryID+"/") {
		return fmt.Errorf("مفتاح الملف غير صالح")
	}
	return nil
}

type AssignUserRequest struct {
	UserID string `json:"userId"`
}

type AssignManualRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (r AssignManualRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("الاسم مطلوب")
	}
	if r.Email != "" && !utils.ValidEmail(r.Email) {
		return fmt.Errorf("البريد الإلكتروني غير صالح")
	}
	if r.Phone != "" && !utils.ValidateSaudiPhone(r.Phone) {
		return fmt.Errorf("رقم الهاتف غير صالح")
	}
	return nil
}

const (
	ChannelWhatsApp = "whatsapp"
	ChannelEmail    = "email"
)

type ShareRequest struct {
	Channel string `json:"channel"`
}

func (r ShareRequest) Validate() error {
	if r.Channel != ChannelWhatsApp && r.Channel != ChannelEmail {
		return fmt.Errorf("قناة المشاركة غير صالحة")
	}
	return nil
}

const (
	ClusterFilterAll        = "all"
	ClusterFilterAssigned   = "assigned"
	ClusterFilterUnassigned = "unassigned"
)
