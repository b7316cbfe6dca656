package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "finportal/docs"
	"finportal/internal/config"
	"finportal/internal/gateway"
	"finportal/internal/handlers"
	"finportal/internal/logging"
	"finportal/internal/mailer"
	"finportal/internal/middleware"
	"finportal/internal/notify"
	"finportal/internal/receipt"
	"finportal/internal/repositories"
	"finportal/internal/routes"
	"finportal/internal/services"
	"finportal/internal/storage"
	"finportal/internal/utils"
)

func Run() {
	cfg := config.MustLoad()
	logging.Setup(cfg.Log.Level, cfg.Log.Pretty)

	// === DB ===
	if cfg.Database.DSN == "" {
		log.Warn().Msg("[app] DATABASE_URL is empty, profile and settings queries will fail")
	}
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("[app] open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("[app] close database")
		}
	}()

	// === Repos ===
	profileRepo := repositories.NewProfileRepository(db)
	settingsRepo := repositories.NewSettingsRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)

	sessionStore, stopStore := newSessionStore(cfg)
	defer stopStore()

	// === Gateway ===
	gw := gateway.NewClient(cfg.Gateway.URL, cfg.Gateway.AnonKey, cfg.GatewayTimeout())
	if !gw.Configured() {
		log.Warn().Msg("[app] gateway url or anon key missing, auth calls will fail with a config error")
	}
	var introspector gateway.SessionIntrospector = gw
	if cfg.Gateway.LocalIntrospection {
		introspector = gateway.NewJWTIntrospector(cfg.Gateway.JWTSecret)
	}

	// === Services ===
	bestEffort := services.NewBestEffortRunner(15 * time.Second)

	verification := services.NewVerificationService(gw, profileRepo, sessionStore, bestEffort, services.VerificationOptions{
		CodeTTL:     cfg.CodeTTL(),
		LandingPath: cfg.Guard.LandingPath,
	})
	authService := services.NewAuthService(gw, profileRepo, verification, bestEffort, services.SystemClock)

	alerter := notify.NewTelegramAlerter(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID)
	if !alerter.Enabled() {
		log.Info().Msg("[app] telegram alerts disabled")
	}
	notificationService := services.NewNotificationService(
		newMailer(cfg),
		notificationRepo,
		alerter,
		bestEffort,
		cfg.Receipt.CompanyName,
		services.SystemClock,
	)
	settingsService := services.NewSettingsService(settingsRepo)
	priceService := services.NewPriceService(
		cfg.Prices.BaseURL,
		cfg.Prices.Coins,
		cfg.Prices.Currency,
		&http.Client{Timeout: 10 * time.Second},
		services.SystemClock,
	)
	storageClient := storage.NewClient(storage.Config{
		URL:       cfg.Storage.URL,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
	})
	receipts := receipt.NewGenerator(cfg.Receipt.CompanyName, cfg.Receipt.FontPath)

	// === Handlers ===
	cookies := middleware.CookieOptions{Domain: cfg.Guard.CookieDomain, Secure: cfg.Guard.SecureCookies}
	pages, err := handlers.NewPageHandler(cfg.Frontend.URL)
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.Frontend.URL).Msg("[app] bad frontend url")
	}
	h := routes.Handlers{
		Auth:          handlers.NewAuthHandler(authService, cookies, cfg.Guard.LandingPath, cfg.Guard.VerifyPath),
		Verify:        handlers.NewVerifyHandler(verification, cookies),
		Notifications: handlers.NewNotificationHandler(notificationService),
		Receipts:      handlers.NewReceiptHandler(receipts, cfg.Receipt.CompanyName),
		Prices:        handlers.NewPriceHandler(priceService),
		Uploads:       handlers.NewUploadHandler(storageClient),
		Settings:      handlers.NewSettingsHandler(settingsService),
		Pages:         pages,
	}

	guard := middleware.NewRouteGuard(middleware.GuardOptions{
		LoginPath:            cfg.Guard.LoginPath,
		LandingPath:          cfg.Guard.LandingPath,
		VerifyPath:           cfg.Guard.VerifyPath,
		ReturnParam:          cfg.Guard.ReturnParam,
		ProtectedPrefixes:    cfg.Guard.ProtectedPrefixes,
		AuthPrefixes:         cfg.Guard.AuthPrefixes,
		RequireVerifiedEmail: cfg.Guard.RequireVerifiedEmail,
		Cookies:              cookies,
	}, introspector, gw, profileRepo, func(ctx context.Context, u *gateway.User) {
		bestEffort.Go(ctx, services.BestEffort{
			Name: "profile.mark_email_verified",
			Run: func(ctx context.Context) error {
				return profileRepo.MarkEmailVerified(ctx, u.ID)
			},
		})
	})

	// === Router ===
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		utils.RegisterCustomValidations(v)
	}

	r := gin.New()
	r.Use(gin.Recovery(), logging.GinLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	routes.SetupRoutes(r, h, guard, introspector, profileRepo)

	// === Server ===
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("[app] listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("[app] server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("[app] shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("[app] forced shutdown")
	}
	verification.Close()
	bestEffort.Wait()
	log.Info().Msg("[app] stopped")
}

// newSessionStore picks the verification session backend. The returned func releases it.
func newSessionStore(cfg *config.Config) (repositories.VerificationSessionStore, func()) {
	if cfg.Verification.Store == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("[app] redis unreachable")
		}
		return repositories.NewRedisSessionStore(rdb), func() { _ = rdb.Close() }
	}

	store := repositories.NewMemorySessionStore()
	ticker := time.NewTicker(time.Minute)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				store.Cleanup()
			case <-done:
				return
			}
		}
	}()
	return store, func() {
		ticker.Stop()
		close(done)
	}
}

func newMailer(cfg *config.Config) mailer.Mailer {
	from := mailer.Sender{Email: cfg.Email.FromEmail, Name: cfg.Email.FromName}
	if cfg.Email.Provider == "api" {
		return mailer.NewAPIMailer(cfg.Email.APIURL, cfg.Email.APIKey, from)
	}
	return mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPUser, cfg.Email.SMTPPassword, from)
}
