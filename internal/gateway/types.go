package gateway

import (
	"context"
	"time"
)

// OTPType selects which class of one-time code the gateway checks against.
type OTPType string

const (
	OTPSignup      OTPType = "signup"
	OTPEmail       OTPType = "email"
	OTPMagicLink   OTPType = "magiclink"
	OTPRecovery    OTPType = "recovery"
	OTPInvite      OTPType = "invite"
	OTPEmailChange OTPType = "email_change"
)

func ParseOTPType(s string) (OTPType, bool) {
	switch t := OTPType(s); t {
	case OTPSignup, OTPEmail, OTPMagicLink, OTPRecovery, OTPInvite, OTPEmailChange:
		return t, true
	}
	return "", false
}

type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Role             string     `json:"role"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	LastSignInAt     *time.Time `json:"last_sign_in_at,omitempty"`
}

type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	User         *User  `json:"user"`
}

// SessionIntrospector resolves an access token to the user it belongs to.
type SessionIntrospector interface {
	Introspect(ctx context.Context, accessToken string) (*User, error)
}
