package upload

import (
	"fmt"
	"strings"

	"eventpilot/services/storage"
)

type PresignRequest struct {
	Kind        string `json:"kind"`
	EntityID    string `json:"entityId"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	FileSize    int64  `json:"fileSize"`
}

// Validate resolves the upload kind and checks type and size against it.
func (r PresignRequest) Validate() (storage.Kind, error) {
	kind, ok := storage.Kinds[r.Kind]
	if !ok {
		return storage.Kind{}, fmt.Errorf("نوع الرفع غير صالح")
	}
	if strings.TrimSpace(r.EntityID) == "" {
		return storage.Kind{}, fmt.Errorf("المعرف مطلوب")
	}
	if strings.TrimSpace(r.Filename) == "" {
		return storage.Kind{}, fmt.Errorf("اسم الملف مطلوب")
	}
	if !kind.Allows(r.ContentType) {
		return storage.Kind{}, fmt.Errorf("نوع الملف غير مدعوم")
	}
	if r.FileSize <= 0 || r.FileSize > kind.MaxSizeBytes {
		return storage.Kind{}, fmt.Errorf("حجم الملف يجب ألا يتجاوز %d ميجابايت", kind.MaxSizeBytes>>20)
	}
	return kind, nil
}
