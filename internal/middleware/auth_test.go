package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"finportal/internal/gateway"
	"finportal/internal/models"
)

type fakeProfileLookup struct {
	profile *models.Profile
	err     error
}

func (f fakeProfileLookup) GetByID(context.Context, string) (*models.Profile, error) {
	return f.profile, f.err
}

func apiRouter(in gateway.SessionIntrospector, profiles ProfileLookup) *gin.Engine {
	r := gin.New()
	api := r.Group("/api", RequireSession(in))
	api.GET("/me", func(c *gin.Context) {
		u, _ := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"id": u.ID})
	})
	api.GET("/admin", RequireRole(profiles, "admin"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func bearer(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireSession(t *testing.T) {
	in := &fakeIntrospector{users: map[string]*gateway.User{"tok": {ID: "u1"}}}
	r := apiRouter(in, fakeProfileLookup{})

	if w := bearer(r, "/api/me", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: %d", w.Code)
	}
	if w := bearer(r, "/api/me", "bad"); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token: %d", w.Code)
	}
	w := bearer(r, "/api/me", "tok")
	if w.Code != http.StatusOK || w.Body.String() != `{"id":"u1"}` {
		t.Errorf("good token: %d %s", w.Code, w.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	in := &fakeIntrospector{users: map[string]*gateway.User{"tok": {ID: "u1"}}}

	tests := []struct {
		name     string
		profiles ProfileLookup
		want     int
	}{
		{"admin", fakeProfileLookup{profile: &models.Profile{ID: "u1", Role: "admin"}}, http.StatusNoContent},
		{"user", fakeProfileLookup{profile: &models.Profile{ID: "u1", Role: "user"}}, http.StatusForbidden},
		{"no profile", fakeProfileLookup{}, http.StatusForbidden},
		{"lookup error", fakeProfileLookup{err: errors.New("db")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := bearer(apiRouter(in, tt.profiles), "/api/admin", "tok"); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
