package email

import (
	"fmt"

	emailModel "eventpilot/models/email"
)

type RetryRequest struct {
	IDs []string `json:"ids"`
}

func (r RetryRequest) Validate() error {
	if len(r.IDs) == 0 {
		return fmt.Errorf("يجب تحديد رسالة واحدة على الأقل")
	}
	return nil
}

// CleanupRequest deletes logs older than OlderThanDays. Status is sent,
// failed or all.
type CleanupRequest struct {
	OlderThanDays int    `json:"olderThanDays"`
	Status        string `json:"status"`
}

func (r CleanupRequest) Validate() error {
	if r.OlderThanDays < 1 || r.OlderThanDays > 365 {
		return fmt.Errorf("عدد الأيام يجب أن يكون بين 1 و 365")
	}
	switch r.Status {
	case "", "all", string(emailModel.StatusSent), string(emailModel.StatusFailed):
		return nil
	}
	return fmt.Errorf("الحالة غير صالحة")
}

// Statuses returns the statuses to delete; pending rows are never removed.
func (r CleanupRequest) Statuses() []emailModel.Status {
	switch r.Status {
	case string(emailModel.StatusSent):
		return []emailModel.Status{emailModel.StatusSent}
	case string(emailModel.StatusFailed):
		return []emailModel.Status{emailModel.StatusFailed}
	}
	return []emailModel.Status{emailModel.StatusSent, emailModel.StatusFailed}
}

type Stats struct {
	Total       int64 `json:"total"`
	Pending     int64 `json:"pending"`
	Sent        int64 `json:"sent"`
	Failed      int64 `json:"failed"`
	SentToday   int64 `json:"sentToday"`
	FailedToday int64 `json:"failedToday"`
}
