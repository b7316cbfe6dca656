package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"finportal/internal/gateway"
	"finportal/internal/mailer"
	"finportal/internal/services"
	"finportal/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		utils.RegisterCustomValidations(v)
	}
}

func TestRespondErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", services.ErrInvalidEmail, http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("%w: x", services.ErrInvalidNotification), http.StatusBadRequest},
		{"gateway not configured", gateway.ErrNotConfigured, http.StatusInternalServerError},
		{"mailer not configured", mailer.ErrNotConfigured, http.StatusInternalServerError},
		{"session missing", services.ErrSessionNotFound, http.StatusNotFound},
		{"locked", services.ErrResendLocked, http.StatusTooManyRequests},
		{"rate limited", &gateway.Error{Status: 429, Message: "slow down"}, http.StatusTooManyRequests},
		{"unknown user", &gateway.Error{Status: 422, Code: "otp_disabled", Message: "Signups not allowed for otp"}, http.StatusNotFound},
		{"bad code", &gateway.Error{Status: 403, Code: "otp_expired", Message: "Token has expired or is invalid"}, http.StatusBadRequest},
		{"bad password", &gateway.Error{Status: 401, Message: "Invalid login credentials"}, http.StatusUnauthorized},
		{"upstream down", &gateway.Error{Status: 503, Message: "unavailable"}, http.StatusBadGateway},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/x", nil)
			respondError(c, tt.err)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}
