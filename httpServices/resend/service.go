package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the Resend REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	from       string
}

func NewClient(baseURL, apiKey, from string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
		from:    from,
	}
}

// SendEmail posts to /emails and returns the provider message id.
func (c *Client) SendEmail(ctx context.Context, req SendEmailRequest) (string, error) {
	if req.From == "" {
		req.From = c.from
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var apiErr errorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return "", fmt.Errorf("resend API returned %s: %s", resp.Status, apiErr.Message)
		}
		return "", fmt.Errorf("resend API returned non-OK status: %s", resp.Status)
	}

	var apiResp SendEmailResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", err
	}
	return apiResp.ID, nil
}
