package models

import "time"

// AttemptState is the progress of the current code submission.
type AttemptState string

const (
	StateIdle      AttemptState = "idle"
	StateVerifying AttemptState = "verifying"
	StateVerified  AttemptState = "verified"
	StateFailed    AttemptState = "failed"
)

// VerificationSession tracks one email OTP challenge. SubjectEmail never changes once set;
// switching identity discards the session.
type VerificationSession struct {
	ID              string       `json:"id"`
	SubjectEmail    string       `json:"subject_email"`
	Digits          string       `json:"-"`
	IssuedAt        time.Time    `json:"issued_at"`
	ExpiresAt       time.Time    `json:"expires_at"`
	ResendLockUntil time.Time    `json:"resend_lock_until"`
	State           AttemptState `json:"state"`
	LastError       string       `json:"last_error,omitempty"`
	ReturnTo        string       `json:"return_to,omitempty"`
}

// LockRemaining is how long resend stays disabled, never negative.
func (s *VerificationSession) LockRemaining(now time.Time) time.Duration {
	if d := s.ResendLockUntil.Sub(now); d > 0 {
		return d
	}
	return 0
}

func (s *VerificationSession) CanResend(now time.Time) bool {
	return !now.Before(s.ResendLockUntil)
}
