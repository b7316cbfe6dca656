package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"finportal/internal/gateway"
	"finportal/internal/utils"
)

const minPasswordLength = 8

var (
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	ErrMissingToken = errors.New("recovery session token is required")
)

// RequestPasswordReset asks the gateway to mail a recovery link. Unknown emails succeed silently
// so the endpoint does not reveal which addresses have accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email, redirectTo string) error {
	email = utils.NormalizeEmail(email)
	if !utils.IsEmail(email) {
		return ErrInvalidEmail
	}
	if err := s.gw.ResetPasswordForEmail(ctx, email, redirectTo); err != nil {
		if gateway.IsUserNotFound(err) {
			log.Info().Str("email", email).Msg("[password-reset] unknown email")
			return nil
		}
		log.Warn().Err(err).Str("email", email).Msg("[password-reset] request failed")
		return err
	}
	log.Info().Str("email", email).Msg("[password-reset] link sent")
	return nil
}

// CompletePasswordReset sets a new password using the access token of a recovery session.
func (s *AuthService) CompletePasswordReset(ctx context.Context, accessToken, newPassword string) error {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return ErrMissingToken
	}
	if len([]rune(newPassword)) < minPasswordLength {
		return ErrWeakPassword
	}
	u, err := s.gw.UpdatePassword(ctx, accessToken, newPassword)
	if err != nil {
		log.Warn().Err(err).Msg("[password-reset] update failed")
		return err
	}
	log.Info().Str("user_id", u.ID).Msg("[password-reset] password updated")
	return nil
}
