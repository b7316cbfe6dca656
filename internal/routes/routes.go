package routes

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"finportal/internal/authz"
	"finportal/internal/gateway"
	"finportal/internal/handlers"
	"finportal/internal/middleware"
)

type Handlers struct {
	Auth          *handlers.AuthHandler
	Verify        *handlers.VerifyHandler
	Notifications *handlers.NotificationHandler
	Receipts      *handlers.ReceiptHandler
	Prices        *handlers.PriceHandler
	Uploads       *handlers.UploadHandler
	Settings      *handlers.SettingsHandler
	Pages         *handlers.PageHandler
}

func SetupRoutes(
	r *gin.Engine,
	h Handlers,
	guard *middleware.RouteGuard,
	sessions gateway.SessionIntrospector,
	profiles middleware.ProfileLookup,
) *gin.Engine {

	r.GET("/healthz", handlers.Health)

	// page requests pass the guard; /api routes are public to it and use RequireSession instead
	r.Use(guard.Handler())

	api := r.Group("/api")

	// ---- public
	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/logout", h.Auth.Logout)
		auth.POST("/password-reset", h.Auth.RequestPasswordReset)
		auth.POST("/password-update", h.Auth.UpdatePassword)
		auth.POST("/resend-verification-code", h.Auth.ResendVerificationCode)
	}

	verify := api.Group("/verification")
	{
		verify.POST("/start", h.Verify.Start)
		verify.POST("/attach", h.Verify.Attach)
		verify.POST("/submit", h.Verify.Submit)
		verify.POST("/resend", h.Verify.Resend)
		verify.POST("/retry", h.Verify.Retry)
		verify.POST("/switch", h.Verify.Switch)
		verify.GET("/status", h.Verify.Status)
		verify.GET("/countdown", h.Verify.Countdown)
	}

	api.GET("/prices", h.Prices.Get)

	// ---- session required
	authed := api.Group("", middleware.RequireSession(sessions))
	{
		authed.POST("/notifications/email", h.Notifications.SendEmail)
		authed.GET("/notifications", h.Notifications.List)
		authed.POST("/receipts", h.Receipts.Generate)
		authed.POST("/uploads/:bucket", h.Uploads.Upload)
	}

	// ---- admin
	admin := api.Group("/admin", middleware.RequireSession(sessions), middleware.RequireRole(profiles, authz.RoleAdmin))
	{
		admin.GET("/settings", h.Settings.List)
		admin.PUT("/settings/:key", h.Settings.Update)
	}

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		h.Pages.Serve(c)
	})

	return r
}
