package ai

import (
	"fmt"
	"strings"
)

type DescriptionRequest struct {
	Goal         string `json:"goal"`
	ActivityType string `json:"activityType"`
}

func (r DescriptionRequest) Validate() error {
	if strings.TrimSpace(r.Goal) == "" && strings.TrimSpace(r.ActivityType) == "" {
		return fmt.Errorf("يجب إدخال الهدف أو نوع النشاط")
	}
	return nil
}

type AnalyzeRequest struct {
	Type string `json:"type"`
}
