package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"finportal/internal/gateway"
	"finportal/internal/models"
	"finportal/internal/repositories"
	"finportal/internal/utils"
)

var (
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrInvalidCodeFormat = errors.New("code must be exactly 6 digits")
	ErrResendLocked      = errors.New("resend not available yet")
	ErrSessionNotFound   = errors.New("verification session not found")
)

const (
	defaultCodeTTL = 5 * time.Minute
	// sessions outlive the code so a user can still resend after expiry
	sessionTTL = 30 * time.Minute
)

// verificationKinds is tried in order; the first kind the gateway accepts wins.
// Codes sent right after signup are "signup" codes, later ones are plain "email" codes.
var verificationKinds = []gateway.OTPType{gateway.OTPSignup, gateway.OTPEmail}

type OTPGateway interface {
	SignInWithOTP(ctx context.Context, email string, createUser bool) error
	VerifyOTP(ctx context.Context, email, token string, kind gateway.OTPType) (*gateway.Session, error)
}

type EmailVerifiedMarker interface {
	MarkEmailVerifiedByEmail(ctx context.Context, email string) error
}

type VerifyResult struct {
	Session  *models.VerificationSession
	Redirect string
	Auth     *gateway.Session
}

type VerificationOptions struct {
	CodeTTL     time.Duration
	LandingPath string
	Clock       Clock
	Tick        time.Duration
}

// VerificationService drives the email OTP challenge: code entry, resend lock, and redirect on success.
type VerificationService struct {
	gw         OTPGateway
	profiles   EmailVerifiedMarker
	store      repositories.VerificationSessionStore
	bestEffort *BestEffortRunner

	ttl         time.Duration
	landingPath string
	clock       Clock
	tick        time.Duration

	ctx        context.Context
	cancel     context.CancelFunc
	mu         sync.Mutex
	countdowns map[string]*Countdown
}

func NewVerificationService(
	gw OTPGateway,
	profiles EmailVerifiedMarker,
	store repositories.VerificationSessionStore,
	bestEffort *BestEffortRunner,
	opts VerificationOptions,
) *VerificationService {
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = defaultCodeTTL
	}
	if opts.LandingPath == "" {
		opts.LandingPath = "/dashboard"
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &VerificationService{
		gw:          gw,
		profiles:    profiles,
		store:       store,
		bestEffort:  bestEffort,
		ttl:         opts.CodeTTL,
		landingPath: opts.LandingPath,
		clock:       opts.Clock,
		tick:        opts.Tick,
		ctx:         ctx,
		cancel:      cancel,
		countdowns:  make(map[string]*Countdown),
	}
}

// Begin requests a code for an existing identity and opens a session for it.
func (s *VerificationService) Begin(ctx context.Context, email, returnTo string) (*models.VerificationSession, error) {
	email = utils.NormalizeEmail(email)
	if !utils.IsEmail(email) {
		return nil, ErrInvalidEmail
	}
	if err := s.gw.SignInWithOTP(ctx, email, false); err != nil {
		log.Warn().Err(err).Str("email", email).Msg("[verify][begin] code request failed")
		return nil, err
	}
	return s.open(ctx, email, returnTo)
}

// Attach opens a session for a code another flow already sent (signup, password login).
func (s *VerificationService) Attach(ctx context.Context, email, returnTo string) (*models.VerificationSession, error) {
	email = utils.NormalizeEmail(email)
	if !utils.IsEmail(email) {
		return nil, ErrInvalidEmail
	}
	return s.open(ctx, email, returnTo)
}

func (s *VerificationService) open(ctx context.Context, email, returnTo string) (*models.VerificationSession, error) {
	if !utils.IsLocalPath(returnTo) {
		returnTo = ""
	}
	now := s.clock.Now()
	sess := &models.VerificationSession{
		ID:           uuid.NewString(),
		SubjectEmail: email,
		State:        models.StateIdle,
		ReturnTo:     returnTo,
	}
	s.resetWindow(sess, now)
	if err := s.store.Save(ctx, sess, sessionTTL); err != nil {
		return nil, fmt.Errorf("save verification session: %w", err)
	}
	s.startCountdown(sess)
	log.Info().Str("sid", sess.ID).Str("email", email).Msg("[verify][open] session started")
	return sess, nil
}

func (s *VerificationService) resetWindow(sess *models.VerificationSession, now time.Time) {
	sess.IssuedAt = now
	sess.ExpiresAt = now.Add(s.ttl)
	sess.ResendLockUntil = sess.ExpiresAt
}

func (s *VerificationService) load(ctx context.Context, sid string) (*models.VerificationSession, error) {
	if sid == "" {
		return nil, ErrSessionNotFound
	}
	sess, err := s.store.Get(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("load verification session: %w", err)
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *VerificationService) save(ctx context.Context, sess *models.VerificationSession) {
	if err := s.store.Save(ctx, sess, sessionTTL); err != nil {
		log.Error().Err(err).Str("sid", sess.ID).Msg("[verify] save session failed")
	}
}

// SubmitCode checks a code with the gateway. A malformed code fails without any network call.
// The returned session reflects the final state even when err is non-nil.
func (s *VerificationService) SubmitCode(ctx context.Context, sid, code string) (*VerifyResult, error) {
	sess, err := s.load(ctx, sid)
	if err != nil {
		return nil, err
	}
	if sess.State == models.StateFailed {
		sess.State = models.StateIdle
	}
	sess.Digits = code

	if !utils.IsOTPCode(code) {
		sess.State = models.StateFailed
		sess.LastError = "format: " + ErrInvalidCodeFormat.Error()
		s.save(ctx, sess)
		return &VerifyResult{Session: sess}, ErrInvalidCodeFormat
	}

	sess.State = models.StateVerifying
	sess.LastError = ""
	s.save(ctx, sess)

	var auth *gateway.Session
	for _, kind := range verificationKinds {
		auth, err = s.gw.VerifyOTP(ctx, sess.SubjectEmail, code, kind)
		if err == nil || !gateway.IsKindMismatch(err) {
			break
		}
		log.Debug().Str("sid", sess.ID).Str("kind", string(kind)).Msg("[verify][submit] kind rejected, trying next")
	}
	if err != nil {
		sess.State = models.StateFailed
		sess.LastError = gateway.UserMessage(err)
		s.save(ctx, sess)
		log.Warn().Err(err).Str("sid", sess.ID).Str("email", sess.SubjectEmail).Msg("[verify][submit] rejected")
		return &VerifyResult{Session: sess}, err
	}

	email := sess.SubjectEmail
	s.bestEffort.Go(ctx, BestEffort{
		Name: "profile.mark_email_verified",
		Run: func(ctx context.Context) error {
			return s.profiles.MarkEmailVerifiedByEmail(ctx, email)
		},
	})

	if err := s.store.Delete(ctx, sess.ID); err != nil {
		log.Warn().Err(err).Str("sid", sess.ID).Msg("[verify][submit] clear session failed")
	}
	s.stopCountdown(sess.ID)

	sess.State = models.StateVerified
	sess.Digits = ""
	redirect := sess.ReturnTo
	if redirect == "" {
		redirect = s.landingPath
	}
	log.Info().Str("sid", sess.ID).Str("email", email).Msg("[verify][submit] verified")
	return &VerifyResult{Session: sess, Redirect: redirect, Auth: auth}, nil
}

// ResendCode issues a fresh code once the lock has elapsed. A failed request leaves the window untouched.
func (s *VerificationService) ResendCode(ctx context.Context, sid string) (*models.VerificationSession, error) {
	sess, err := s.load(ctx, sid)
	if err != nil {
		return nil, err
	}
	if !sess.CanResend(s.clock.Now()) {
		return sess, ErrResendLocked
	}

	if err := s.gw.SignInWithOTP(ctx, sess.SubjectEmail, false); err != nil {
		sess.LastError = gateway.UserMessage(err)
		s.save(ctx, sess)
		log.Warn().Err(err).Str("sid", sess.ID).Msg("[verify][resend] failed")
		return sess, err
	}

	s.resetWindow(sess, s.clock.Now())
	sess.Digits = ""
	sess.State = models.StateIdle
	sess.LastError = ""
	s.save(ctx, sess)
	s.startCountdown(sess)
	log.Info().Str("sid", sess.ID).Str("email", sess.SubjectEmail).Msg("[verify][resend] code sent")
	return sess, nil
}

// Retry moves a failed session back to idle so the user can enter a new code.
func (s *VerificationService) Retry(ctx context.Context, sid string) (*models.VerificationSession, error) {
	sess, err := s.load(ctx, sid)
	if err != nil {
		return nil, err
	}
	if sess.State == models.StateFailed {
		sess.State = models.StateIdle
		sess.Digits = ""
		s.save(ctx, sess)
	}
	return sess, nil
}

// SwitchIdentity abandons the session so the user can enter another email. No network call.
func (s *VerificationService) SwitchIdentity(ctx context.Context, sid string) error {
	s.stopCountdown(sid)
	if sid == "" {
		return nil
	}
	if err := s.store.Delete(ctx, sid); err != nil {
		return fmt.Errorf("discard verification session: %w", err)
	}
	return nil
}

func (s *VerificationService) Status(ctx context.Context, sid string) (*models.VerificationSession, error) {
	return s.load(ctx, sid)
}

func (s *VerificationService) Now() time.Time { return s.clock.Now() }

// Countdown returns the running resend countdown for a session, restarting it if this
// process has none (e.g. sessions restored from Redis after a restart).
func (s *VerificationService) Countdown(ctx context.Context, sid string) (*Countdown, error) {
	sess, err := s.load(ctx, sid)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	cd, ok := s.countdowns[sid]
	s.mu.Unlock()
	if ok && cd.Until().Equal(sess.ResendLockUntil) {
		return cd, nil
	}
	return s.startCountdown(sess), nil
}

func (s *VerificationService) startCountdown(sess *models.VerificationSession) *Countdown {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.countdowns[sess.ID]; ok {
		old.Stop()
	}
	cd := StartCountdown(s.ctx, sess.ResendLockUntil, s.clock, s.tick)
	s.countdowns[sess.ID] = cd

	id := sess.ID
	go func() {
		<-cd.Done()
		s.mu.Lock()
		if s.countdowns[id] == cd {
			delete(s.countdowns, id)
		}
		s.mu.Unlock()
	}()
	return cd
}

func (s *VerificationService) stopCountdown(sid string) {
	s.mu.Lock()
	cd, ok := s.countdowns[sid]
	delete(s.countdowns, sid)
	s.mu.Unlock()
	if ok {
		cd.Stop()
	}
}

// Close stops every countdown. Call on shutdown.
func (s *VerificationService) Close() {
	s.cancel()
}
