package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"finportal/internal/middleware"
	"finportal/internal/models"
	"finportal/internal/services"
	"finportal/internal/utils"
)

type Authenticator interface {
	Login(ctx context.Context, email, password, returnTo string) (*services.LoginResult, error)
	ResendVerificationCode(ctx context.Context, email, sid string) (*models.VerificationSession, error)
	RequestPasswordReset(ctx context.Context, email, redirectTo string) error
	CompletePasswordReset(ctx context.Context, accessToken, newPassword string) error
}

type AuthHandler struct {
	auth        Authenticator
	cookies     middleware.CookieOptions
	landingPath string
	verifyPath  string
}

func NewAuthHandler(auth Authenticator, cookies middleware.CookieOptions, landingPath, verifyPath string) *AuthHandler {
	return &AuthHandler{auth: auth, cookies: cookies, landingPath: landingPath, verifyPath: verifyPath}
}

type loginRequest struct {
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	RedirectTo string `json:"redirectTo" binding:"omitempty,localpath"`
}

// @Summary      Sign in
// @Description  Password sign-in. Unverified accounts get a code and are sent to the verification step instead of receiving tokens.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        login  body      loginRequest  true  "Credentials"
// @Success      200    {object}  map[string]interface{}
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Failure      500    {object}  map[string]string
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, req.RedirectTo)
	if err != nil {
		respondError(c, err)
		return
	}

	if res.NeedsVerification() {
		setVerifyCookie(c, res.Verification.ID, h.cookies)
		c.JSON(http.StatusOK, gin.H{
			"success":               true,
			"verification_required": true,
			"redirect":              h.verifyPath,
		})
		return
	}

	middleware.SetSessionCookies(c, res.Session, h.cookies)
	redirect := req.RedirectTo
	if redirect == "" {
		redirect = h.landingPath
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"redirect":      redirect,
		"access_token":  res.Session.AccessToken,
		"refresh_token": res.Session.RefreshToken,
		"expires_in":    res.Session.ExpiresIn,
		"user":          res.Session.User,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	middleware.ClearSessionCookies(c, h.cookies)
	clearVerifyCookie(c, h.cookies)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type emailRequest struct {
	Email string `json:"email"`
}

// @Summary      Resend verification code
// @Description  Sends a new code to an existing account. Never creates an account.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      emailRequest  true  "Account email"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/auth/resend-verification-code [post]
func (h *AuthHandler) ResendVerificationCode(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !utils.IsEmail(utils.NormalizeEmail(req.Email)) {
		badRequest(c, services.ErrInvalidEmail.Error())
		return
	}
	sess, err := h.auth.ResendVerificationCode(c.Request.Context(), req.Email, verifySID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	setVerifyCookie(c, sess.ID, h.cookies)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type passwordResetRequest struct {
	Email      string `json:"email"`
	RedirectTo string `json:"redirectTo"`
}

func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req passwordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.auth.RequestPasswordReset(c.Request.Context(), req.Email, req.RedirectTo); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type passwordUpdateRequest struct {
	Password string `json:"password"`
}

// UpdatePassword completes a reset; the recovery session's access token comes as a bearer token or cookie.
func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	var req passwordUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.auth.CompletePasswordReset(c.Request.Context(), middleware.AccessToken(c), req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
