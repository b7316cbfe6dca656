package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"finportal/internal/gateway"
	"finportal/internal/models"
	"finportal/internal/repositories"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type verifyCall struct {
	email, token string
	kind         gateway.OTPType
}

type fakeOTPGateway struct {
	mu          sync.Mutex
	sendCalls   []string
	verifyCalls []verifyCall
	sendErr     error
	// verifyErrs maps a kind to the error the gateway returns for it; missing means success.
	verifyErrs map[gateway.OTPType]error
}

func (f *fakeOTPGateway) SignInWithOTP(_ context.Context, email string, createUser bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if createUser {
		return errors.New("createUser must be false")
	}
	f.sendCalls = append(f.sendCalls, email)
	return f.sendErr
}

func (f *fakeOTPGateway) VerifyOTP(_ context.Context, email, token string, kind gateway.OTPType) (*gateway.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls = append(f.verifyCalls, verifyCall{email, token, kind})
	if err := f.verifyErrs[kind]; err != nil {
		return nil, err
	}
	return &gateway.Session{AccessToken: "at", RefreshToken: "rt", User: &gateway.User{ID: "u1", Email: email}}, nil
}

func (f *fakeOTPGateway) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sendCalls), len(f.verifyCalls)
}

type fakeMarker struct {
	mu     sync.Mutex
	emails []string
	err    error
}

func (m *fakeMarker) MarkEmailVerifiedByEmail(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails = append(m.emails, email)
	return m.err
}

type verifyFixture struct {
	svc    *VerificationService
	gw     *fakeOTPGateway
	marker *fakeMarker
	store  *repositories.MemorySessionStore
	clock  *fakeClock
	runner *BestEffortRunner
}

func newVerifyFixture(t *testing.T) *verifyFixture {
	t.Helper()
	f := &verifyFixture{
		gw:     &fakeOTPGateway{verifyErrs: map[gateway.OTPType]error{}},
		marker: &fakeMarker{},
		store:  repositories.NewMemorySessionStore(),
		clock:  newFakeClock(),
		runner: NewBestEffortRunner(time.Second),
	}
	f.svc = NewVerificationService(f.gw, f.marker, f.store, f.runner, VerificationOptions{
		CodeTTL:     5 * time.Minute,
		LandingPath: "/dashboard",
		Clock:       f.clock,
		Tick:        time.Hour,
	})
	t.Cleanup(f.svc.Close)
	return f
}

func (f *verifyFixture) begin(t *testing.T, email string) *models.VerificationSession {
	t.Helper()
	sess, err := f.svc.Begin(context.Background(), email, "")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	return sess
}

func TestBeginRequestsCodeWithoutAccountCreation(t *testing.T) {
	f := newVerifyFixture(t)
	sess := f.begin(t, "  A@B.com ")

	if sess.SubjectEmail != "a@b.com" {
		t.Errorf("SubjectEmail = %q, want a@b.com", sess.SubjectEmail)
	}
	if sess.State != models.StateIdle {
		t.Errorf("State = %q, want idle", sess.State)
	}
	if got := sess.ExpiresAt.Sub(sess.IssuedAt); got != 5*time.Minute {
		t.Errorf("ExpiresAt - IssuedAt = %v, want 5m", got)
	}
	if !sess.ResendLockUntil.Equal(sess.ExpiresAt) {
		t.Errorf("ResendLockUntil = %v, want %v", sess.ResendLockUntil, sess.ExpiresAt)
	}
	if sends, _ := f.gw.calls(); sends != 1 {
		t.Errorf("send calls = %d, want 1", sends)
	}
}

func TestBeginRejectsBadEmailWithoutNetwork(t *testing.T) {
	f := newVerifyFixture(t)
	if _, err := f.svc.Begin(context.Background(), "not-an-email", ""); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("err = %v, want ErrInvalidEmail", err)
	}
	if sends, _ := f.gw.calls(); sends != 0 {
		t.Errorf("send calls = %d, want 0", sends)
	}
}

func TestSubmitCodeNonDigitFailsWithoutNetwork(t *testing.T) {
	for _, code := range []string{"12345a", "abcdef", "12 456", "1234-6", "١٢٣٤٥٦"} {
		t.Run(code, func(t *testing.T) {
			f := newVerifyFixture(t)
			sess := f.begin(t, "a@b.com")

			res, err := f.svc.SubmitCode(context.Background(), sess.ID, code)
			if !errors.Is(err, ErrInvalidCodeFormat) {
				t.Fatalf("err = %v, want ErrInvalidCodeFormat", err)
			}
			if res.Session.State != models.StateFailed {
				t.Errorf("State = %q, want failed", res.Session.State)
			}
			if _, verifies := f.gw.calls(); verifies != 0 {
				t.Errorf("verify calls = %d, want 0", verifies)
			}
		})
	}
}

func TestSubmitCodeSingleCallOnSuccess(t *testing.T) {
	f := newVerifyFixture(t)
	sess := f.begin(t, "a@b.com")

	res, err := f.svc.SubmitCode(context.Background(), sess.ID, "123456")
	if err != nil {
		t.Fatalf("SubmitCode: %v", err)
	}
	f.runner.Wait()

	if res.Session.State != models.StateVerified {
		t.Errorf("State = %q, want verified", res.Session.State)
	}
	if res.Redirect != "/dashboard" {
		t.Errorf("Redirect = %q, want /dashboard", res.Redirect)
	}
	if res.Auth == nil || res.Auth.AccessToken != "at" {
		t.Errorf("Auth = %+v, want gateway session", res.Auth)
	}
	if len(f.gw.verifyCalls) != 1 || f.gw.verifyCalls[0].kind != gateway.OTPSignup {
		t.Errorf("verify calls = %+v, want one signup call", f.gw.verifyCalls)
	}
	if len(f.marker.emails) != 1 || f.marker.emails[0] != "a@b.com" {
		t.Errorf("marked = %v, want [a@b.com]", f.marker.emails)
	}
	if got, _ := f.store.Get(context.Background(), sess.ID); got != nil {
		t.Error("session should be cleared after verification")
	}
}

func TestSubmitCodeFallsBackToSecondKind(t *testing.T) {
	f := newVerifyFixture(t)
	f.gw.verifyErrs[gateway.OTPSignup] = &gateway.Error{Status: 403, Code: "otp_expired", Message: "Token has expired or is invalid"}
	sess := f.begin(t, "a@b.com")

	res, err := f.svc.SubmitCode(context.Background(), sess.ID, "123456")
	if err != nil {
		t.Fatalf("SubmitCode: %v", err)
	}
	if res.Session.State != models.StateVerified {
		t.Errorf("State = %q, want verified", res.Session.State)
	}
	if len(f.gw.verifyCalls) != 2 {
		t.Fatalf("verify calls = %d, want 2", len(f.gw.verifyCalls))
	}
	if f.gw.verifyCalls[1].kind != gateway.OTPEmail {
		t.Errorf("second kind = %q, want email", f.gw.verifyCalls[1].kind)
	}
}

func TestSubmitCodeSurfacesLastErrorAfterBothKinds(t *testing.T) {
	f := newVerifyFixture(t)
	mismatch := &gateway.Error{Status: 403, Code: "otp_expired", Message: "Token has expired or is invalid"}
	f.gw.verifyErrs[gateway.OTPSignup] = mismatch
	f.gw.verifyErrs[gateway.OTPEmail] = mismatch
	sess := f.begin(t, "a@b.com")

	res, err := f.svc.SubmitCode(context.Background(), sess.ID, "123456")
	if err == nil {
		t.Fatal("expected error")
	}
	if res.Session.State != models.StateFailed {
		t.Errorf("State = %q, want failed", res.Session.State)
	}
	if res.Session.LastError != "Token has expired or is invalid" {
		t.Errorf("LastError = %q, want gateway message", res.Session.LastError)
	}
	if len(f.gw.verifyCalls) != 2 {
		t.Errorf("verify calls = %d, want 2", len(f.gw.verifyCalls))
	}
}

func TestSubmitCodeNoFallbackOnOtherErrors(t *testing.T) {
	f := newVerifyFixture(t)
	f.gw.verifyErrs[gateway.OTPSignup] = &gateway.Error{Status: 429, Code: "over_request_rate_limit", Message: "Too many requests"}
	sess := f.begin(t, "a@b.com")

	if _, err := f.svc.SubmitCode(context.Background(), sess.ID, "123456"); err == nil {
		t.Fatal("expected error")
	}
	if len(f.gw.verifyCalls) != 1 {
		t.Errorf("verify calls = %d, want 1", len(f.gw.verifyCalls))
	}
}

func TestSubmitCodeRetryAfterFailure(t *testing.T) {
	f := newVerifyFixture(t)
	sess := f.begin(t, "a@b.com")

	if _, err := f.svc.SubmitCode(context.Background(), sess.ID, "12"); err == nil {
		t.Fatal("expected format error")
	}
	retried, err := f.svc.Retry(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retried.State != models.StateIdle {
		t.Errorf("State after retry = %q, want idle", retried.State)
	}
	res, err := f.svc.SubmitCode(context.Background(), sess.ID, "654321")
	if err != nil {
		t.Fatalf("SubmitCode: %v", err)
	}
	if res.Session.State != models.StateVerified {
		t.Errorf("State = %q, want verified", res.Session.State)
	}
}

func TestSubmitCodeProfileUpdateFailureDoesNotBlock(t *testing.T) {
	f := newVerifyFixture(t)
	f.marker.err = errors.New("db down")
	var outcomes []Outcome
	var mu sync.Mutex
	f.runner.OnOutcome(func(o Outcome) {
		mu.Lock()
		outcomes = append(outcomes, o)
		mu.Unlock()
	})
	sess := f.begin(t, "a@b.com")

	res, err := f.svc.SubmitCode(context.Background(), sess.ID, "123456")
	if err != nil {
		t.Fatalf("SubmitCode: %v", err)
	}
	f.runner.Wait()
	if res.Session.State != models.StateVerified {
		t.Errorf("State = %q, want verified", res.Session.State)
	}
	if len(outcomes) != 1 || outcomes[0].Err == nil {
		t.Errorf("outcomes = %+v, want one failed outcome", outcomes)
	}
}

func TestResendBeforeLockIsRejectedLocally(t *testing.T) {
	f := newVerifyFixture(t)
	sess := f.begin(t, "a@b.com")
	issued := sess.IssuedAt

	f.clock.Advance(299 * time.Second)
	got, err := f.svc.ResendCode(context.Background(), sess.ID)
	if !errors.Is(err, ErrResendLocked) {
		t.Fatalf("err = %v, want ErrResendLocked", err)
	}
	if !got.IssuedAt.Equal(issued) {
		t.Errorf("IssuedAt changed: %v -> %v", issued, got.IssuedAt)
	}
	if sends, _ := f.gw.calls(); sends != 1 {
		t.Errorf("send calls = %d, want 1 (begin only)", sends)
	}
}

func TestResendAfterLockResetsWindow(t *testing.T) {
	f := newVerifyFixture(t)
	sess := f.begin(t, "a@b.com")

	// leave some digits behind
	f.svc.SubmitCode(context.Background(), sess.ID, "12x")

	f.clock.Advance(301 * time.Second)
	now := f.clock.Now()
	got, err := f.svc.ResendCode(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("ResendCode: %v", err)
	}
	if !got.IssuedAt.Equal(now) {
		t.Errorf("IssuedAt = %v, want %v", got.IssuedAt, now)
	}
	if got.ExpiresAt.Sub(got.IssuedAt) != 300*time.Second {
		t.Errorf("ExpiresAt - IssuedAt = %v, want 300s", got.ExpiresAt.Sub(got.IssuedAt))
	}
	if !got.ResendLockUntil.Equal(now.Add(300 * time.Second)) {
		t.Errorf("ResendLockUntil = %v, want t+300s", got.ResendLockUntil)
	}
	if got.Digits != "" {
		t.Errorf("Digits = %q, want cleared", got.Digits)
	}
	if got.State != models.StateIdle {
		t.Errorf("State = %q, want idle", got.State)
	}
	stored, _ := f.store.Get(context.Background(), sess.ID)
	if stored.Digits != "" || !stored.IssuedAt.Equal(now) {
		t.Errorf("stored session not updated: %+v", stored)
	}
	if sends, _ := f.gw.calls(); sends != 2 {
		t.Errorf("send calls = %d, want 2", sends)
	}
}

func TestResendFailureKeepsLock(t *testing.T) {
	f := newVerifyFixture(t)
	sess := f.begin(t, "a@b.com")
	f.clock.Advance(301 * time.Second)
	f.gw.sendErr = &gateway.Error{Status: 429, Message: "For security purposes, you can only request this after 60 seconds."}

	got, err := f.svc.ResendCode(context.Background(), sess.ID)
	if err == nil {
		t.Fatal("expected error")
	}
	if !got.IssuedAt.Equal(sess.IssuedAt) || !got.ResendLockUntil.Equal(sess.ResendLockUntil) {
		t.Errorf("window changed on failed resend: %+v", got)
	}
	if got.LastError == "" {
		t.Error("LastError should carry the gateway message")
	}
}

func TestSwitchIdentityDiscardsSession(t *testing.T) {
	f := newVerifyFixture(t)
	sess := f.begin(t, "a@b.com")

	if err := f.svc.SwitchIdentity(context.Background(), sess.ID); err != nil {
		t.Fatalf("SwitchIdentity: %v", err)
	}
	if _, err := f.svc.Status(context.Background(), sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Status err = %v, want ErrSessionNotFound", err)
	}
	if sends, verifies := f.gw.calls(); sends != 1 || verifies != 0 {
		t.Errorf("calls = %d/%d, want 1/0", sends, verifies)
	}
}

func TestAttachKeepsReturnTo(t *testing.T) {
	f := newVerifyFixture(t)
	sess, err := f.svc.Attach(context.Background(), "a@b.com", "/transfers?id=7")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if sends, _ := f.gw.calls(); sends != 0 {
		t.Errorf("send calls = %d, want 0", sends)
	}
	res, err := f.svc.SubmitCode(context.Background(), sess.ID, "123456")
	if err != nil {
		t.Fatalf("SubmitCode: %v", err)
	}
	if res.Redirect != "/transfers?id=7" {
		t.Errorf("Redirect = %q, want /transfers?id=7", res.Redirect)
	}
}

func TestAttachDropsExternalReturnTo(t *testing.T) {
	f := newVerifyFixture(t)
	sess, err := f.svc.Attach(context.Background(), "a@b.com", "https://evil.example")
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if sess.ReturnTo != "" {
		t.Errorf("ReturnTo = %q, want empty", sess.ReturnTo)
	}
}

func TestCountdownForSession(t *testing.T) {
	f := newVerifyFixture(t)
	sess := f.begin(t, "a@b.com")

	cd, err := f.svc.Countdown(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("Countdown: %v", err)
	}
	if cd.Seconds() != 300 {
		t.Errorf("Seconds = %d, want 300", cd.Seconds())
	}
	f.clock.Advance(100 * time.Second)
	if cd.Seconds() != 200 {
		t.Errorf("Seconds = %d, want 200", cd.Seconds())
	}

	f.svc.SwitchIdentity(context.Background(), sess.ID)
	select {
	case <-cd.Done():
	case <-time.After(time.Second):
		t.Fatal("countdown not stopped on switch")
	}
}
