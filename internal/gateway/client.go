package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the hosted auth service's REST API (/auth/v1).
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(baseURL, anonKey string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Configured() bool {
	return c != nil && c.baseURL != "" && c.anonKey != ""
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SignInWithOTP asks the gateway to mail a one-time code. With createUser=false an unknown
// email is refused instead of registering a new account.
func (c *Client) SignInWithOTP(ctx context.Context, email string, createUser bool) error {
	body := map[string]any{"email": email, "create_user": createUser}
	return c.do(ctx, http.MethodPost, "/auth/v1/otp", "", body, nil)
}

func (c *Client) VerifyOTP(ctx context.Context, email, token string, kind OTPType) (*Session, error) {
	var s Session
	body := map[string]string{"email": email, "token": token, "type": string(kind)}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/verify", "", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// VerifyTokenHash completes the email-link flow.
func (c *Client) VerifyTokenHash(ctx context.Context, tokenHash string, kind OTPType) (*Session, error) {
	var s Session
	body := map[string]string{"token_hash": tokenHash, "type": string(kind)}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/verify", "", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Introspect implements SessionIntrospector by asking the gateway.
func (c *Client) Introspect(ctx context.Context, accessToken string) (*User, error) {
	return c.GetUser(ctx, accessToken)
}

func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	path := "/auth/v1/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	return c.do(ctx, http.MethodPost, path, "", map[string]string{"email": email}, nil)
}

func (c *Client) UpdatePassword(ctx context.Context, accessToken, password string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodPut, "/auth/v1/user", accessToken, map[string]string{"password": password}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	var rdr io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", path, err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("create request %s: %w", path, err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer == "" {
		bearer = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 400 {
		return parseError(resp.StatusCode, respBody)
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
