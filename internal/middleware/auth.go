package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"finportal/internal/gateway"
)

const (
	AccessTokenCookie  = "sb-access-token"
	RefreshTokenCookie = "sb-refresh-token"

	ctxUser = "user"

	refreshTokenTTL = 30 * 24 * time.Hour
)

// CookieOptions controls the session cookies written after sign-in.
type CookieOptions struct {
	Domain string
	Secure bool
}

// AccessToken reads the session token from the Authorization header or the session cookie.
func AccessToken(c *gin.Context) string {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if tok := strings.TrimSpace(parts[1]); tok != "" {
				return tok
			}
		}
	}
	if tok, err := c.Cookie(AccessTokenCookie); err == nil {
		return strings.TrimSpace(tok)
	}
	return ""
}

// CurrentUser returns the user a previous middleware resolved for this request.
func CurrentUser(c *gin.Context) (*gateway.User, bool) {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil, false
	}
	u, ok := v.(*gateway.User)
	return u, ok && u != nil
}

func setUser(c *gin.Context, u *gateway.User) {
	c.Set(ctxUser, u)
}

// resolveSession introspects the request's token. Any failure means no session.
func resolveSession(c *gin.Context, in gateway.SessionIntrospector) (*gateway.User, bool) {
	if u, ok := CurrentUser(c); ok {
		return u, true
	}
	token := AccessToken(c)
	if token == "" || in == nil {
		return nil, false
	}
	u, err := in.Introspect(c.Request.Context(), token)
	if err != nil || u == nil || u.ID == "" {
		if err != nil {
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("[auth] introspection failed, treating as signed out")
		}
		return nil, false
	}
	setUser(c, u)
	return u, true
}

// RequireSession guards JSON API routes: no valid session means 401.
func RequireSession(in gateway.SessionIntrospector) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if _, ok := resolveSession(c, in); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

func SetSessionCookies(c *gin.Context, s *gateway.Session, opts CookieOptions) {
	if s == nil || s.AccessToken == "" {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	maxAge := s.ExpiresIn
	if maxAge <= 0 {
		maxAge = 3600
	}
	c.SetCookie(AccessTokenCookie, s.AccessToken, maxAge, "/", opts.Domain, opts.Secure, true)
	if s.RefreshToken != "" {
		c.SetCookie(RefreshTokenCookie, s.RefreshToken, int(refreshTokenTTL.Seconds()), "/", opts.Domain, opts.Secure, true)
	}
}

func ClearSessionCookies(c *gin.Context, opts CookieOptions) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessTokenCookie, "", -1, "/", opts.Domain, opts.Secure, true)
	c.SetCookie(RefreshTokenCookie, "", -1, "/", opts.Domain, opts.Secure, true)
}
