package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIMailer posts messages to a JSON transactional email API (Resend-compatible /emails endpoint).
type APIMailer struct {
	baseURL    string
	apiKey     string
	from       Sender
	httpClient *http.Client
}

type Option func(*APIMailer)

func WithHTTPClient(c *http.Client) Option {
	return func(m *APIMailer) {
		m.httpClient = c
	}
}

func NewAPIMailer(baseURL, apiKey string, from Sender, opts ...Option) *APIMailer {
	m := &APIMailer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		from:       from,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *APIMailer) Configured() bool {
	return m != nil && m.apiKey != "" && m.baseURL != "" && m.from.Email != ""
}

type apiEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Name    string `json:"name"`
}

func (m *APIMailer) Send(ctx context.Context, msg Message) error {
	if !m.Configured() {
		return ErrNotConfigured
	}
	if err := msg.validate(); err != nil {
		return err
	}

	body, err := json.Marshal(apiEmail{
		From:    m.from.String(),
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && ae.Message != "" {
			return fmt.Errorf("email API error: status %d: %s", resp.StatusCode, ae.Message)
		}
		return fmt.Errorf("email API error: status %d", resp.StatusCode)
	}
	return nil
}
