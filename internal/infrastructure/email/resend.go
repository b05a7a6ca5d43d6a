// Package email implements the transactional-email transport.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"newsbot/internal/ports"
)

const defaultBaseURL = "https://api.resend.com"

// ResendMailer sends through the Resend API. The message id it returns is
// the run's completion token; a response without one is an error.
type ResendMailer struct {
	baseURL string
	client  *http.Client
}

var _ ports.Mailer = (*ResendMailer)(nil)

// NewResendMailer wires an HTTP client; empty baseURL selects the real API.
func NewResendMailer(client *http.Client, baseURL string) *ResendMailer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &ResendMailer{baseURL: baseURL, client: client}
}

// Send posts one email and returns the provider message id. The key comes
// from global settings and so is passed per call.
func (m *ResendMailer) Send(ctx context.Context, apiKey string, msg ports.Email) (string, error) {
	payload := map[string]any{
		"from":    msg.From,
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTML,
	}
	if strings.TrimSpace(msg.Text) != "" {
		payload["text"] = msg.Text
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("resend request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return "", fmt.Errorf("resend API failed (HTTP %d %s): %s",
			resp.StatusCode, http.StatusText(resp.StatusCode), strings.TrimSpace(string(detail)))
	}

	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode resend response: %w", err)
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("resend API response missing email id")
	}
	return parsed.ID, nil
}
