// Package email delivers the rendered digest through a transactional email
// HTTP API. Delivery is an optional, independent output: a failure here is
// reported but never invalidates the digest files already on disk.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Message is one digest email: HTML body plus a plain-text fallback.
type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

// Sender posts messages to a Resend-style transactional email endpoint.
type Sender struct {
	apiURL string
	apiKey string
	client *http.Client
}

func NewSender(apiURL, apiKey string) *Sender {
	return &Sender{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Send delivers one message. Non-2xx responses are errors carrying a body
// snippet for the logs.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("email API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("email API %d: %s", resp.StatusCode, string(snippet))
	}
	return nil
}
