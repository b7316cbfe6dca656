package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"finportal/internal/authz"
	"finportal/internal/models"
)

const ctxProfile = "profile"

type ProfileLookup interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

// RequireRole lets the request through only when the signed-in user's profile has one of allowed.
// Must run after RequireSession.
func RequireRole(profiles ProfileLookup, allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		p, err := profiles.GetByID(c.Request.Context(), u.ID)
		if err != nil {
			log.Error().Err(err).Str("user_id", u.ID).Msg("[authz] profile lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "could not load profile"})
			return
		}
		if p == nil || !authz.Allowed(p.Role, allowed...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Set(ctxProfile, p)
		c.Next()
	}
}

func CurrentProfile(c *gin.Context) (*models.Profile, bool) {
	v, ok := c.Get(ctxProfile)
	if !ok {
		return nil, false
	}
	p, ok := v.(*models.Profile)
	return p, ok
}
