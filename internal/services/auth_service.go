package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"finportal/internal/gateway"
	"finportal/internal/models"
	"finportal/internal/utils"
)

var ErrMissingCredentials = errors.New("email and password are required")

type PasswordGateway interface {
	SignInWithPassword(ctx context.Context, email, password string) (*gateway.Session, error)
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	UpdatePassword(ctx context.Context, accessToken, password string) (*gateway.User, error)
}

type ProfileReader interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	RecordLogin(ctx context.Context, id string, at time.Time) error
}

// CodeIssuer starts, or continues, an email verification for an existing identity.
type CodeIssuer interface {
	Begin(ctx context.Context, email, returnTo string) (*models.VerificationSession, error)
	Status(ctx context.Context, sid string) (*models.VerificationSession, error)
	ResendCode(ctx context.Context, sid string) (*models.VerificationSession, error)
	SwitchIdentity(ctx context.Context, sid string) error
}

// LoginResult carries either a usable session or, for an unverified profile, the verification
// session the caller must complete first. Tokens are withheld in the second case.
type LoginResult struct {
	Session      *gateway.Session
	Profile      *models.Profile
	Verification *models.VerificationSession
}

func (r *LoginResult) NeedsVerification() bool { return r != nil && r.Verification != nil }

type AuthService struct {
	gw         PasswordGateway
	profiles   ProfileReader
	codes      CodeIssuer
	bestEffort *BestEffortRunner
	clock      Clock
}

func NewAuthService(gw PasswordGateway, profiles ProfileReader, codes CodeIssuer, bestEffort *BestEffortRunner, clock Clock) *AuthService {
	if clock == nil {
		clock = SystemClock
	}
	return &AuthService{gw: gw, profiles: profiles, codes: codes, bestEffort: bestEffort, clock: clock}
}

func (s *AuthService) Login(ctx context.Context, email, password, returnTo string) (*LoginResult, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	if !utils.IsEmail(email) {
		return nil, ErrInvalidEmail
	}

	sess, err := s.gw.SignInWithPassword(ctx, email, password)
	if err != nil {
		log.Warn().Err(err).Str("email", email).Msg("[auth][login] rejected")
		return nil, err
	}
	if sess.User == nil || sess.User.ID == "" {
		return nil, errors.New("gateway returned a session without a user")
	}

	userID := sess.User.ID
	at := s.clock.Now()
	s.bestEffort.Go(ctx, BestEffort{
		Name: "profile.record_login",
		Run:  func(ctx context.Context) error { return s.profiles.RecordLogin(ctx, userID, at) },
	})

	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		// same policy as the route guard: an unknown verification status does not block
		log.Warn().Err(err).Str("user_id", userID).Msg("[auth][login] profile lookup failed")
	}

	res := &LoginResult{Session: sess, Profile: profile}
	if profile != nil && !profile.EmailVerified {
		v, err := s.codes.Begin(ctx, email, returnTo)
		if err != nil {
			return nil, err
		}
		res.Session = nil
		res.Verification = v
		log.Info().Str("user_id", userID).Msg("[auth][login] email not verified, code issued")
		return res, nil
	}
	log.Info().Str("user_id", userID).Msg("[auth][login] ok")
	return res, nil
}

// ResendVerificationCode issues a fresh code to an existing identity. When sid names a live session
// for the same email it is resent in place and the resend lock applies; a session for another
// email is discarded before a new one is opened.
func (s *AuthService) ResendVerificationCode(ctx context.Context, email, sid string) (*models.VerificationSession, error) {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidEmail
	}
	if sid != "" {
		if cur, err := s.codes.Status(ctx, sid); err == nil {
			if cur.SubjectEmail == email {
				return s.codes.ResendCode(ctx, sid)
			}
			if err := s.codes.SwitchIdentity(ctx, sid); err != nil {
				log.Warn().Err(err).Str("sid", sid).Msg("[auth][resend] discard previous session failed")
			}
		}
	}
	return s.codes.Begin(ctx, email, "")
}
