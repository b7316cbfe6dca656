package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotConfigured is returned by every call when the gateway URL or anon key is missing.
var ErrNotConfigured = errors.New("auth gateway not configured")

// Error is an upstream failure. Message is shown to users as-is.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("auth gateway: %s (status=%d code=%s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("auth gateway: %s (status=%d)", e.Message, e.Status)
}

type errorBody struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func parseError(status int, body []byte) *Error {
	e := &Error{Status: status}
	var b errorBody
	if err := json.Unmarshal(body, &b); err == nil {
		e.Code = b.ErrorCode
		if e.Code == "" {
			if s, ok := b.Code.(string); ok {
				e.Code = s
			} else if b.Error != "" && b.ErrorDescription != "" {
				e.Code = b.Error
			}
		}
		for _, m := range []string{b.Msg, b.Message, b.ErrorDescription, b.Error} {
			if strings.TrimSpace(m) != "" {
				e.Message = m
				break
			}
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// UserMessage extracts the text to show a user for any error returned by this package.
func UserMessage(err error) string {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Message
	}
	if errors.Is(err, ErrNotConfigured) {
		return "Authentication service is not configured"
	}
	return err.Error()
}

// IsKindMismatch reports whether a verify call failed in a way that another verification kind may accept.
func IsKindMismatch(err error) bool {
	var ge *Error
	if !errors.As(err, &ge) {
		return false
	}
	if ge.Code == "otp_expired" || ge.Code == "invalid_token" {
		return true
	}
	return ge.Status == http.StatusUnauthorized || ge.Status == http.StatusForbidden
}

// IsUserNotFound reports a code request refused because the identity does not exist.
func IsUserNotFound(err error) bool {
	var ge *Error
	if !errors.As(err, &ge) {
		return false
	}
	if ge.Code == "otp_disabled" || ge.Code == "user_not_found" {
		return true
	}
	return ge.Status == http.StatusUnprocessableEntity &&
		strings.Contains(strings.ToLower(ge.Message), "signups not allowed")
}

func IsRateLimited(err error) bool {
	var ge *Error
	if !errors.As(err, &ge) {
		return false
	}
	return ge.Status == http.StatusTooManyRequests || strings.HasPrefix(ge.Code, "over_")
}
