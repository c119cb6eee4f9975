package invitation

import (
	"fmt"
	"strings"

	"eventpilot/utils"
)

type SendRequest struct {
	SessionID     string   `json:"sessionId"`
	Emails        []string `json:"emails"`
	CustomMessage string   `json:"customMessage"`
}

func (r SendRequest) Validate() error {
	if r.SessionID == "" {
		return fmt.Errorf("معرف الجلسة مطلوب")
	}
	if len(r.Emails) == 0 {
		return fmt.Errorf("يجب تحديد بريد إلكتروني واحد على الأقل")
	}
	for _, e := range r.Emails {
		if !utils.ValidEmail(strings.TrimSpace(e)) {
			return fmt.Errorf("البريد الإلكتروني غير صالح: %s", e)
		}
	}
	return nil
}

// Recipients lowercases, trims and deduplicates the email list.
func (r SendRequest) Recipients() []string {
	seen := make(map[string]bool, len(r.Emails))
	out := make([]string, 0, len(r.Emails))
	for _, e := range r.Emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

type WhatsAppRequest struct {
	SessionID     string   `json:"sessionId"`
	Phones        []string `json:"phones"`
	CustomMessage string   `json:"customMessage"`
}

func (r WhatsAppRequest) Validate() error {
	if r.SessionID == "" {
		return fmt.Errorf("معرف الجلسة مطلوب")
	}
	if len(r.Phones) == 0 {
		return fmt.Errorf("يجب تحديد رقم واحد على الأقل")
	}
	for _, p := range r.Phones {
		if !utils.ValidateSaudiPhone(p) {
			return fmt.Errorf("رقم الهاتف غير صالح: %s", p)
		}
	}
	return nil
}

type ValidateTokenRequest struct {
	SessionID string `json:"sessionId"`
	Token     string `json:"token"`
}

// SendResult reports the outcome of a bulk send.
type SendResult struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type WhatsAppLink struct {
	Phone string `json:"phone"`
	Link  string `json:"link"`
}
