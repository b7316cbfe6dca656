package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"finportal/internal/gateway"
	"finportal/internal/mailer"
	"finportal/internal/receipt"
	"finportal/internal/services"
	"finportal/internal/storage"
)

var validationErrors = []error{
	services.ErrInvalidEmail,
	services.ErrInvalidCodeFormat,
	services.ErrMissingCredentials,
	services.ErrInvalidNotification,
	services.ErrUnknownTemplate,
	services.ErrWeakPassword,
	services.ErrMissingToken,
	services.ErrInvalidSetting,
	receipt.ErrInvalidReceipt,
	storage.ErrUnknownBucket,
}

// configHints maps configuration errors to the fixed hint returned with the 500.
var configHints = []struct {
	err  error
	hint string
}{
	{gateway.ErrNotConfigured, "set GATEWAY_URL and GATEWAY_ANON_KEY"},
	{mailer.ErrNotConfigured, "set the email provider credentials (SMTP_PASSWORD or EMAIL_API_KEY) and email.from_email"},
	{storage.ErrNotConfigured, "set STORAGE_ACCESS_KEY_ID and STORAGE_SECRET_ACCESS_KEY"},
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// respondError writes the {error, details?} body for err using one status mapping for every route.
func respondError(c *gin.Context, err error) {
	status, body := errorResponse(c, err)
	c.JSON(status, body)
}

func errorResponse(c *gin.Context, err error) (int, gin.H) {
	for _, ve := range validationErrors {
		if errors.Is(err, ve) {
			return http.StatusBadRequest, gin.H{"error": err.Error()}
		}
	}
	for _, ch := range configHints {
		if errors.Is(err, ch.err) {
			log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("[http] configuration error")
			return http.StatusInternalServerError, gin.H{"error": ch.err.Error(), "details": ch.hint}
		}
	}

	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return http.StatusNotFound, gin.H{"error": "verification session not found", "details": "start verification again"}
	case errors.Is(err, services.ErrSettingNotFound):
		return http.StatusNotFound, gin.H{"error": err.Error()}
	case errors.Is(err, services.ErrResendLocked):
		return http.StatusTooManyRequests, gin.H{"error": err.Error()}
	}

	var ge *gateway.Error
	if errors.As(err, &ge) {
		return gatewayStatus(ge), gin.H{"error": ge.Message}
	}

	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("[http] internal error")
	return http.StatusInternalServerError, gin.H{"error": "internal server error"}
}

func gatewayStatus(ge *gateway.Error) int {
	switch {
	case gateway.IsRateLimited(ge):
		return http.StatusTooManyRequests
	case gateway.IsUserNotFound(ge):
		return http.StatusNotFound
	case ge.Status == http.StatusUnauthorized:
		return http.StatusUnauthorized
	case ge.Status >= 400 && ge.Status < 500:
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}
