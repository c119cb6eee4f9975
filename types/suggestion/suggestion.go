package suggestion

import (
	"fmt"
	"strings"

	suggestionModel "eventpilot/models/suggestion"
)

type CreateRequest struct {
	Content string `json:"content"`
}

func (r CreateRequest) Validate() error {
	n := len([]rune(strings.TrimSpace(r.Content)))
	if n < suggestionModel.MinContentLength {
		return fmt.Errorf("الاقتراح يجب أن يكون %d أحرف على الأقل", suggestionModel.MinContentLength)
	}
	if n > suggestionModel.MaxContentLength {
		return fmt.Errorf("الاقتراح يجب ألا يتجاوز %d حرف", suggestionModel.MaxContentLength)
	}
	return nil
}

type StatusRequest struct {
	Status suggestionModel.Status `json:"status"`
}

func (r StatusRequest) Validate() error {
	if !r.Status.IsValid() {
		return fmt.Errorf("الحالة غير صالحة")
	}
	return nil
}

// Stats counts suggestions per status.
type Stats struct {
	Total       int64 `json:"total"`
	Pending     int64 `json:"pending"`
	Reviewed    int64 `json:"reviewed"`
	Implemented int64 `json:"implemented"`
	Dismissed   int64 `json:"dismissed"`
}

func (s *Stats) Add(status suggestionModel.Status, n int64) {
	s.Total += n
	switch status {
	case suggestionModel.StatusPending:
		s.Pending += n
	case suggestionModel.StatusReviewed:
		s.Reviewed += n
	case suggestionModel.StatusImplemented:
		s.Implemented += n
	case suggestionModel.StatusDismissed:
		s.Dismissed += n
	}
}
