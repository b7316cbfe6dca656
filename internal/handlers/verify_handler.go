package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"finportal/internal/middleware"
	"finportal/internal/models"
	"finportal/internal/services"
)

const verifySessionCookie = "verify_sid"

type VerificationController interface {
	Begin(ctx context.Context, email, returnTo string) (*models.VerificationSession, error)
	Attach(ctx context.Context, email, returnTo string) (*models.VerificationSession, error)
	SubmitCode(ctx context.Context, sid, code string) (*services.VerifyResult, error)
	ResendCode(ctx context.Context, sid string) (*models.VerificationSession, error)
	Retry(ctx context.Context, sid string) (*models.VerificationSession, error)
	SwitchIdentity(ctx context.Context, sid string) error
	Status(ctx context.Context, sid string) (*models.VerificationSession, error)
	Countdown(ctx context.Context, sid string) (*services.Countdown, error)
	Now() time.Time
}

type VerifyHandler struct {
	verification VerificationController
	cookies      middleware.CookieOptions
}

func NewVerifyHandler(v VerificationController, cookies middleware.CookieOptions) *VerifyHandler {
	return &VerifyHandler{verification: v, cookies: cookies}
}

type verificationView struct {
	Email           string    `json:"email"`
	State           string    `json:"state"`
	IssuedAt        time.Time `json:"issued_at"`
	ExpiresAt       time.Time `json:"expires_at"`
	ResendLockUntil time.Time `json:"resend_lock_until"`
	ResendIn        int       `json:"resend_in"`
	CanResend       bool      `json:"can_resend"`
	LastError       string    `json:"last_error,omitempty"`
}

func (h *VerifyHandler) view(s *models.VerificationSession) verificationView {
	now := h.verification.Now()
	left := s.LockRemaining(now)
	secs := int(left / time.Second)
	if left%time.Second > 0 {
		secs++
	}
	return verificationView{
		Email:           s.SubjectEmail,
		State:           string(s.State),
		IssuedAt:        s.IssuedAt,
		ExpiresAt:       s.ExpiresAt,
		ResendLockUntil: s.ResendLockUntil,
		ResendIn:        secs,
		CanResend:       s.CanResend(now),
		LastError:       s.LastError,
	}
}

func setVerifyCookie(c *gin.Context, sid string, opts middleware.CookieOptions) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(verifySessionCookie, sid, int((30 * time.Minute).Seconds()), "/", opts.Domain, opts.Secure, true)
}

func clearVerifyCookie(c *gin.Context, opts middleware.CookieOptions) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(verifySessionCookie, "", -1, "/", opts.Domain, opts.Secure, true)
}

func verifySID(c *gin.Context) string {
	sid, _ := c.Cookie(verifySessionCookie)
	return sid
}

type startVerificationRequest struct {
	Email      string `json:"email" binding:"required"`
	RedirectTo string `json:"redirectTo" binding:"omitempty,localpath"`
}

// @Summary      Start email verification
// @Description  Sends a one-time code to an existing account and opens a verification session (verify_sid cookie).
// @Tags         Verification
// @Accept       json
// @Produce      json
// @Param        body  body      startVerificationRequest  true  "Email to verify"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /api/verification/start [post]
func (h *VerifyHandler) Start(c *gin.Context) {
	var req startVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	sess, err := h.verification.Begin(c.Request.Context(), req.Email, req.RedirectTo)
	if err != nil {
		respondError(c, err)
		return
	}
	setVerifyCookie(c, sess.ID, h.cookies)
	c.JSON(http.StatusOK, gin.H{"success": true, "verification": h.view(sess)})
}

// @Summary      Continue a verification started elsewhere
// @Description  Opens a verification session for a code the signup flow already sent. No new code is issued.
// @Tags         Verification
// @Accept       json
// @Produce      json
// @Param        body  body      startVerificationRequest  true  "Email the code was sent to"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Router       /api/verification/attach [post]
func (h *VerifyHandler) Attach(c *gin.Context) {
	var req startVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	sess, err := h.verification.Attach(c.Request.Context(), req.Email, req.RedirectTo)
	if err != nil {
		respondError(c, err)
		return
	}
	setVerifyCookie(c, sess.ID, h.cookies)
	c.JSON(http.StatusOK, gin.H{"success": true, "verification": h.view(sess)})
}

type submitCodeRequest struct {
	Code string `json:"code"`
}

// @Summary      Submit verification code
// @Tags         Verification
// @Accept       json
// @Produce      json
// @Param        body  body      submitCodeRequest  true  "Six digit code"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/verification/submit [post]
func (h *VerifyHandler) Submit(c *gin.Context) {
	var req submitCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.verification.SubmitCode(c.Request.Context(), verifySID(c), req.Code)
	if err != nil {
		status, body := errorResponse(c, err)
		if res != nil && res.Session != nil {
			body["verification"] = h.view(res.Session)
		}
		c.JSON(status, body)
		return
	}

	clearVerifyCookie(c, h.cookies)
	middleware.SetSessionCookies(c, res.Auth, h.cookies)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"state":    string(res.Session.State),
		"redirect": res.Redirect,
	})
}

func (h *VerifyHandler) Resend(c *gin.Context) {
	sess, err := h.verification.ResendCode(c.Request.Context(), verifySID(c))
	if errors.Is(err, services.ErrResendLocked) {
		v := h.view(sess)
		c.Header("Retry-After", strconv.Itoa(v.ResendIn))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error(), "retry_after": v.ResendIn, "verification": v})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "verification": h.view(sess)})
}

func (h *VerifyHandler) Retry(c *gin.Context) {
	sess, err := h.verification.Retry(c.Request.Context(), verifySID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "verification": h.view(sess)})
}

func (h *VerifyHandler) Switch(c *gin.Context) {
	if err := h.verification.SwitchIdentity(c.Request.Context(), verifySID(c)); err != nil {
		respondError(c, err)
		return
	}
	clearVerifyCookie(c, h.cookies)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *VerifyHandler) Status(c *gin.Context) {
	sess, err := h.verification.Status(c.Request.Context(), verifySID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "verification": h.view(sess)})
}

// Countdown streams the seconds left until resend unlocks as server-sent "tick" events,
// then a final "unlocked" event.
func (h *VerifyHandler) Countdown(c *gin.Context) {
	cd, err := h.verification.Countdown(c.Request.Context(), verifySID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ticks, unsubscribe := cd.Subscribe()
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("tick", cd.Seconds())
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case left, ok := <-ticks:
			if !ok || left == 0 {
				if cd.Remaining() == 0 {
					c.SSEvent("unlocked", 0)
				}
				return false
			}
			c.SSEvent("tick", left)
			return true
		}
	})
}
