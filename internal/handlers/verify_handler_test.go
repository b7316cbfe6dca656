package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"finportal/internal/gateway"
	"finportal/internal/middleware"
	"finportal/internal/models"
	"finportal/internal/services"
)

var handlerNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeController struct {
	sess      *models.VerificationSession
	submitRes *services.VerifyResult
	submitErr error
	resendErr error
	begunWith string
	attached  string
	switched  string
}

func (f *fakeController) Begin(_ context.Context, email, returnTo string) (*models.VerificationSession, error) {
	f.begunWith = email + "|" + returnTo
	return f.sess, nil
}

func (f *fakeController) Attach(_ context.Context, email, returnTo string) (*models.VerificationSession, error) {
	if email == "bad" {
		return nil, services.ErrInvalidEmail
	}
	f.attached = email + "|" + returnTo
	return f.sess, nil
}

func (f *fakeController) SubmitCode(_ context.Context, sid, code string) (*services.VerifyResult, error) {
	if sid == "" {
		return nil, services.ErrSessionNotFound
	}
	return f.submitRes, f.submitErr
}

func (f *fakeController) ResendCode(_ context.Context, sid string) (*models.VerificationSession, error) {
	return f.sess, f.resendErr
}

func (f *fakeController) Retry(_ context.Context, sid string) (*models.VerificationSession, error) {
	return f.sess, nil
}

func (f *fakeController) SwitchIdentity(_ context.Context, sid string) error {
	f.switched = sid
	return nil
}

func (f *fakeController) Status(_ context.Context, sid string) (*models.VerificationSession, error) {
	if sid == "" {
		return nil, services.ErrSessionNotFound
	}
	return f.sess, nil
}

func (f *fakeController) Countdown(_ context.Context, sid string) (*services.Countdown, error) {
	return nil, services.ErrSessionNotFound
}

func (f *fakeController) Now() time.Time { return handlerNow }

func newSession() *models.VerificationSession {
	return &models.VerificationSession{
		ID:              "sid-1",
		SubjectEmail:    "a@b.co",
		State:           models.StateIdle,
		IssuedAt:        handlerNow.Add(-60 * time.Second),
		ExpiresAt:       handlerNow.Add(240 * time.Second),
		ResendLockUntil: handlerNow.Add(240 * time.Second),
	}
}

func verifyRouter(ctrl *fakeController) *gin.Engine {
	h := NewVerifyHandler(ctrl, middleware.CookieOptions{})
	r := gin.New()
	r.POST("/start", h.Start)
	r.POST("/attach", h.Attach)
	r.POST("/submit", h.Submit)
	r.POST("/resend", h.Resend)
	r.POST("/switch", h.Switch)
	r.GET("/status", h.Status)
	return r
}

func doJSON(r http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

var sidCookie = &http.Cookie{Name: verifySessionCookie, Value: "sid-1"}

func TestVerifyStartSetsSessionCookie(t *testing.T) {
	ctrl := &fakeController{sess: newSession()}
	w := doJSON(verifyRouter(ctrl), http.MethodPost, "/start", `{"email":"a@b.co","redirectTo":"/cards"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	if ctrl.begunWith != "a@b.co|/cards" {
		t.Errorf("Begin args = %q", ctrl.begunWith)
	}
	c := findCookie(w, verifySessionCookie)
	if c == nil || c.Value != "sid-1" {
		t.Fatalf("verify cookie = %+v", c)
	}
	var body struct {
		Verification verificationView `json:"verification"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Verification.ResendIn != 240 || body.Verification.CanResend {
		t.Errorf("view = %+v, want 240s left and resend locked", body.Verification)
	}
}

func TestVerifyStartRejectsExternalRedirect(t *testing.T) {
	ctrl := &fakeController{sess: newSession()}
	w := doJSON(verifyRouter(ctrl), http.MethodPost, "/start", `{"email":"a@b.co","redirectTo":"https://evil.example"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if ctrl.begunWith != "" {
		t.Error("Begin must not be called for an invalid request")
	}
}

func TestVerifySubmitSuccessSwapsCookies(t *testing.T) {
	sess := newSession()
	sess.State = models.StateVerified
	ctrl := &fakeController{submitRes: &services.VerifyResult{
		Session:  sess,
		Redirect: "/dashboard",
		Auth:     &gateway.Session{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 3600},
	}}
	w := doJSON(verifyRouter(ctrl), http.MethodPost, "/submit", `{"code":"123456"}`, sidCookie)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	if c := findCookie(w, verifySessionCookie); c == nil || c.MaxAge >= 0 {
		t.Errorf("verify cookie not cleared: %+v", c)
	}
	if c := findCookie(w, middleware.AccessTokenCookie); c == nil || c.Value != "at" {
		t.Errorf("access cookie = %+v", c)
	}
	if !strings.Contains(w.Body.String(), `"redirect":"/dashboard"`) {
		t.Errorf("body = %s", w.Body)
	}
}

func TestVerifySubmitFailureIncludesState(t *testing.T) {
	sess := newSession()
	sess.State = models.StateFailed
	sess.LastError = "Invalid or expired code"
	ctrl := &fakeController{
		submitRes: &services.VerifyResult{Session: sess},
		submitErr: services.ErrInvalidCodeFormat,
	}
	w := doJSON(verifyRouter(ctrl), http.MethodPost, "/submit", `{"code":"12ab56"}`, sidCookie)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"state":"failed"`) {
		t.Errorf("body missing failed state: %s", w.Body)
	}
}

func TestVerifySubmitWithoutSession(t *testing.T) {
	w := doJSON(verifyRouter(&fakeController{}), http.MethodPost, "/submit", `{"code":"123456"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestVerifyResendLocked(t *testing.T) {
	ctrl := &fakeController{sess: newSession(), resendErr: services.ErrResendLocked}
	w := doJSON(verifyRouter(ctrl), http.MethodPost, "/resend", ``, sidCookie)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "240" {
		t.Errorf("Retry-After = %q, want 240", got)
	}
}

func TestVerifySwitchClearsCookie(t *testing.T) {
	ctrl := &fakeController{}
	w := doJSON(verifyRouter(ctrl), http.MethodPost, "/switch", ``, sidCookie)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ctrl.switched != "sid-1" {
		t.Errorf("switched = %q", ctrl.switched)
	}
	if c := findCookie(w, verifySessionCookie); c == nil || c.MaxAge >= 0 {
		t.Errorf("verify cookie not cleared: %+v", c)
	}
}

func TestVerifyStatus(t *testing.T) {
	r := verifyRouter(&fakeController{sess: newSession()})
	if w := doJSON(r, http.MethodGet, "/status", ``); w.Code != http.StatusNotFound {
		t.Errorf("no cookie: status = %d, want 404", w.Code)
	}
	w := doJSON(r, http.MethodGet, "/status", ``, sidCookie)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"email":"a@b.co"`) {
		t.Errorf("status = %d, body %s", w.Code, w.Body)
	}
}

func TestVerifyAttachOpensSessionWithoutNewCode(t *testing.T) {
	ctrl := &fakeController{sess: newSession()}
	w := doJSON(verifyRouter(ctrl), http.MethodPost, "/attach", `{"email":"a@b.co","redirectTo":"/loans"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	if ctrl.attached != "a@b.co|/loans" || ctrl.begunWith != "" {
		t.Errorf("attached = %q, begun = %q", ctrl.attached, ctrl.begunWith)
	}
	if c := findCookie(w, verifySessionCookie); c == nil || c.Value != "sid-1" {
		t.Errorf("verify cookie = %+v", c)
	}
}

func TestVerifyAttachInvalidEmail(t *testing.T) {
	w := doJSON(verifyRouter(&fakeController{}), http.MethodPost, "/attach", `{"email":"bad"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
