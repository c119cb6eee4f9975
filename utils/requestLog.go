package utils

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"eventpilot/types"

	"github.com/gofiber/fiber/v2"
)

const maxLoggedBody = 4096

var (
	secretHeaders = regexp.MustCompile(`(?im)^(authorization|x-valet-token|cookie):.*$`)
	secretFields  = map[string]bool{
		"password":        true,
		"currentPassword": true,
		"newPassword":     true,
		"token":           true,
		"inviteToken":     true,
	}
)

// CreateSanitizedLogEntry snapshots the request and response for the
// request log. Credentials are redacted and large bodies truncated.
func CreateSanitizedLogEntry(c *fiber.Ctx) types.LogEntry {
	entry := types.LogEntry{
		Method:          string([]byte(c.Method())),
		URL:             string([]byte(c.OriginalURL())),
		RequestBody:     sanitizeBody(c.Get(fiber.HeaderContentType), c.Body()),
		ResponseBody:    truncate(string(c.Response().Body())),
		RequestHeaders:  secretHeaders.ReplaceAllString(string(c.Request().Header.Header()), "$1: [REDACTED]"),
		ResponseHeaders: string(c.Response().Header.Header()),
		StatusCode:      c.Response().StatusCode(),
		CreatedAt:       time.Now(),
	}
	if userID, ok := c.Locals("userID").(string); ok && userID != "" {
		entry.UserID = &userID
	}
	return entry
}

func sanitizeBody(contentType string, body []byte) string {
	if strings.Contains(contentType, fiber.MIMEMultipartForm) {
		return "[MULTIPART_FORM_DATA]"
	}
	if len(body) == 0 {
		return ""
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return truncate(string(body))
	}
	for key := range payload {
		if secretFields[key] {
			payload[key] = "[REDACTED]"
		}
	}
	out, err := json.Marshal(payload)
	if err != nil {
		return "[UNSERIALIZABLE_BODY]"
	}
	return truncate(string(out))
}

func truncate(s string) string {
	if len(s) > maxLoggedBody {
		return s[:maxLoggedBody] + "...[TRUNCATED]"
	}
	return s
}
