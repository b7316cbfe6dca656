package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"finportal/internal/gateway"
)

type PathClass int

const (
	ClassPublic PathClass = iota
	ClassAuthOnly
	ClassProtected
)

func (p PathClass) String() string {
	switch p {
	case ClassAuthOnly:
		return "auth-only"
	case ClassProtected:
		return "protected"
	}
	return "public"
}

type GuardOptions struct {
	LoginPath         string
	LandingPath       string
	VerifyPath        string
	ReturnParam       string
	ProtectedPrefixes []string
	AuthPrefixes      []string
	// RequireVerifiedEmail sends signed-in users with an unverified profile to VerifyPath.
	RequireVerifiedEmail bool
	Cookies              CookieOptions
}

type LinkVerifier interface {
	VerifyTokenHash(ctx context.Context, tokenHash string, kind gateway.OTPType) (*gateway.Session, error)
}

type EmailVerifiedChecker interface {
	IsEmailVerified(ctx context.Context, userID string) (bool, error)
}

type RouteGuard struct {
	opts     GuardOptions
	sessions gateway.SessionIntrospector
	links    LinkVerifier
	verified EmailVerifiedChecker
	// onLinkVerified runs after a legacy email link succeeds, e.g. to flag the profile.
	onLinkVerified func(ctx context.Context, u *gateway.User)
}

func NewRouteGuard(opts GuardOptions, sessions gateway.SessionIntrospector, links LinkVerifier, verified EmailVerifiedChecker, onLinkVerified func(context.Context, *gateway.User)) *RouteGuard {
	if opts.LoginPath == "" {
		opts.LoginPath = "/login"
	}
	if opts.LandingPath == "" {
		opts.LandingPath = "/dashboard"
	}
	if opts.VerifyPath == "" {
		opts.VerifyPath = "/verify"
	}
	if opts.ReturnParam == "" {
		opts.ReturnParam = "redirectTo"
	}
	return &RouteGuard{
		opts:           opts,
		sessions:       sessions,
		links:          links,
		verified:       verified,
		onLinkVerified: onLinkVerified,
	}
}

func hasPrefix(path, prefix string) bool {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return false
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// Classify maps a request path to its access class. Unlisted paths are public.
func (g *RouteGuard) Classify(path string) PathClass {
	for _, p := range g.opts.ProtectedPrefixes {
		if hasPrefix(path, p) {
			return ClassProtected
		}
	}
	for _, p := range g.opts.AuthPrefixes {
		if hasPrefix(path, p) {
			return ClassAuthOnly
		}
	}
	return ClassPublic
}

// LoginRedirect builds the login URL carrying the original path and query as the return target.
func (g *RouteGuard) LoginRedirect(u *url.URL) string {
	target := u.Path
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	q := url.Values{}
	q.Set(g.opts.ReturnParam, target)
	return g.opts.LoginPath + "?" + q.Encode()
}

func (g *RouteGuard) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		if g.tryLegacyLink(c) {
			return
		}

		path := c.Request.URL.Path
		class := g.Classify(path)
		if class != ClassProtected {
			if AccessToken(c) != "" {
				resolveSession(c, g.sessions)
			}
			c.Next()
			return
		}

		u, ok := resolveSession(c, g.sessions)
		if !ok {
			log.Debug().Str("path", path).Msg("[guard] no session, redirecting to login")
			c.Redirect(http.StatusSeeOther, g.LoginRedirect(c.Request.URL))
			c.Abort()
			return
		}

		if g.opts.RequireVerifiedEmail && g.verified != nil && !hasPrefix(path, g.opts.VerifyPath) {
			ok, err := g.verified.IsEmailVerified(c.Request.Context(), u.ID)
			switch {
			case err != nil:
				log.Warn().Err(err).Str("user_id", u.ID).Msg("[guard] verified check failed, allowing")
			case !ok:
				c.Redirect(http.StatusSeeOther, g.opts.VerifyPath)
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

// tryLegacyLink completes the email-link flow when token_hash and type are present.
// It reports whether the response has been written.
func (g *RouteGuard) tryLegacyLink(c *gin.Context) bool {
	if g.links == nil {
		return false
	}
	q := c.Request.URL.Query()
	hash := q.Get("token_hash")
	rawType := q.Get("type")
	if hash == "" || rawType == "" {
		return false
	}
	kind, ok := gateway.ParseOTPType(rawType)
	if !ok {
		log.Warn().Str("type", rawType).Msg("[guard][link] unknown link type")
		return false
	}

	sess, err := g.links.VerifyTokenHash(c.Request.Context(), hash, kind)
	if err != nil {
		log.Warn().Err(err).Str("type", rawType).Msg("[guard][link] verification failed")
		return false
	}

	SetSessionCookies(c, sess, g.opts.Cookies)
	if sess.User != nil {
		setUser(c, sess.User)
		if g.onLinkVerified != nil {
			g.onLinkVerified(c.Request.Context(), sess.User)
		}
	}
	log.Info().Str("type", rawType).Msg("[guard][link] verified")
	c.Redirect(http.StatusSeeOther, g.opts.LandingPath)
	c.Abort()
	return true
}
