package models

import "time"

// Profile mirrors a row in the profiles table. The id is the gateway user id.
type Profile struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FullName      string     `json:"full_name"`
	Role          string     `json:"role"`
	EmailVerified bool       `json:"email_verified"`
	LoginCount    int        `json:"login_count"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	Balance       float64    `json:"balance"`
	CreatedAt     time.Time  `json:"created_at"`
}
