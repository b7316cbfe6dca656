package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "config/config.yaml"

type GatewayConfig struct {
	URL       string `yaml:"url"`
	AnonKey   string `yaml:"anon_key"`
	JWTSecret string `yaml:"jwt_secret"`
	// LocalIntrospection validates access tokens with JWTSecret instead of calling the gateway.
	LocalIntrospection bool `yaml:"local_introspection"`
	Timeout            int  `yaml:"timeout_seconds"`
}

type EmailConfig struct {
	Provider     string `yaml:"provider"` // "smtp" | "api"
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	APIURL       string `yaml:"api_url"`
	APIKey       string `yaml:"api_key"`
	FromEmail    string `yaml:"from_email"`
	FromName     string `yaml:"from_name"`
}

type GuardConfig struct {
	LoginPath         string   `yaml:"login_path"`
	LandingPath       string   `yaml:"landing_path"`
	VerifyPath        string   `yaml:"verify_path"`
	ReturnParam       string   `yaml:"return_param"`
	ProtectedPrefixes []string `yaml:"protected_prefixes"`
	AuthPrefixes      []string `yaml:"auth_prefixes"`
	CookieDomain      string   `yaml:"cookie_domain"`
	SecureCookies     bool     `yaml:"secure_cookies"`
	// RequireVerifiedEmail keeps signed-in but unverified users on VerifyPath.
	RequireVerifiedEmail bool `yaml:"require_verified_email"`
}

type VerificationConfig struct {
	CodeTTLSeconds int    `yaml:"code_ttl_seconds"`
	Store          string `yaml:"store"` // "memory" | "redis"
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// StorageConfig holds the S3 access keys issued by the hosted storage service.
type StorageConfig struct {
	URL       string `yaml:"url"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key_id"`
	SecretKey string `yaml:"secret_access_key"`
}

type PricesConfig struct {
	BaseURL  string   `yaml:"base_url"`
	Coins    []string `yaml:"coins"`
	Currency string   `yaml:"currency"`
}

type TelegramConfig struct {
	BotToken    string `yaml:"bot_token"`
	AdminChatID int64  `yaml:"admin_chat_id"`
}

type ReceiptConfig struct {
	CompanyName string `yaml:"company_name"`
	FontPath    string `yaml:"font_path"`
}

type Config struct {
	Server struct {
		Port        int      `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`
	Frontend struct {
		URL string `yaml:"url"`
	} `yaml:"frontend"`
	Gateway      GatewayConfig      `yaml:"gateway"`
	Email        EmailConfig        `yaml:"email"`
	Guard        GuardConfig        `yaml:"guard"`
	Verification VerificationConfig `yaml:"verification"`
	Redis        RedisConfig        `yaml:"redis"`
	Storage      StorageConfig      `yaml:"storage"`
	Prices       PricesConfig       `yaml:"prices"`
	Telegram     TelegramConfig     `yaml:"telegram"`
	Receipt      ReceiptConfig      `yaml:"receipt"`
}

// Load reads .env (if present) and the YAML file at path, then applies env overrides and defaults.
// A missing YAML file is not an error: the service can run from env alone.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("FINPORTAL_CONFIG")
	}
	if path == "" {
		path = defaultConfigPath
	}

	var cfg Config
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, cfg.validate()
}

// MustLoad is Load for main: it panics on a broken config.
func MustLoad() *Config {
	cfg, err := Load("")
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}
	return cfg
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&c.Gateway.URL, "GATEWAY_URL")
	override(&c.Gateway.AnonKey, "GATEWAY_ANON_KEY")
	override(&c.Gateway.JWTSecret, "GATEWAY_JWT_SECRET")
	override(&c.Database.DSN, "DATABASE_URL")
	override(&c.Email.SMTPPassword, "SMTP_PASSWORD")
	override(&c.Email.APIKey, "EMAIL_API_KEY")
	override(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	override(&c.Redis.Addr, "REDIS_ADDR")
	override(&c.Redis.Password, "REDIS_PASSWORD")
	override(&c.Storage.AccessKey, "STORAGE_ACCESS_KEY_ID")
	override(&c.Storage.SecretKey, "STORAGE_SECRET_ACCESS_KEY")
	override(&c.Frontend.URL, "FRONTEND_URL")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Gateway.Timeout <= 0 {
		c.Gateway.Timeout = 10
	}
	if c.Email.Provider == "" {
		c.Email.Provider = "smtp"
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Guard.LoginPath == "" {
		c.Guard.LoginPath = "/login"
	}
	if c.Guard.LandingPath == "" {
		c.Guard.LandingPath = "/dashboard"
	}
	if c.Guard.VerifyPath == "" {
		c.Guard.VerifyPath = "/verify"
	}
	if c.Guard.ReturnParam == "" {
		c.Guard.ReturnParam = "redirectTo"
	}
	if len(c.Guard.ProtectedPrefixes) == 0 {
		c.Guard.ProtectedPrefixes = []string{"/dashboard", "/admin", "/settings", "/transfers", "/loans", "/cards"}
	}
	if len(c.Guard.AuthPrefixes) == 0 {
		c.Guard.AuthPrefixes = []string{"/login", "/signup", "/verify", "/forgot-password", "/reset-password"}
	}
	if c.Verification.CodeTTLSeconds <= 0 {
		c.Verification.CodeTTLSeconds = 300
	}
	if c.Verification.Store == "" {
		c.Verification.Store = "memory"
	}
	if c.Storage.URL == "" {
		c.Storage.URL = c.Gateway.URL
	}
	if c.Storage.Region == "" {
		c.Storage.Region = "us-east-1"
	}
	if c.Prices.BaseURL == "" {
		c.Prices.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if len(c.Prices.Coins) == 0 {
		c.Prices.Coins = []string{"bitcoin", "ethereum", "tether", "binancecoin", "solana", "ripple"}
	}
	if c.Prices.Currency == "" {
		c.Prices.Currency = "usd"
	}
	if c.Receipt.CompanyName == "" {
		c.Receipt.CompanyName = "FinPortal"
	}
}

func (c *Config) validate() error {
	if c.Verification.Store != "memory" && c.Verification.Store != "redis" {
		return fmt.Errorf("config: verification.store must be memory or redis, got %q", c.Verification.Store)
	}
	if c.Verification.Store == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when verification.store=redis")
	}
	if c.Gateway.LocalIntrospection && c.Gateway.JWTSecret == "" {
		return fmt.Errorf("config: gateway.jwt_secret is required with local_introspection")
	}
	if c.Email.Provider != "smtp" && c.Email.Provider != "api" {
		return fmt.Errorf("config: email.provider must be smtp or api, got %q", c.Email.Provider)
	}
	return nil
}

func (c *Config) CodeTTL() time.Duration {
	return time.Duration(c.Verification.CodeTTLSeconds) * time.Second
}

func (c *Config) GatewayTimeout() time.Duration {
	return time.Duration(c.Gateway.Timeout) * time.Second
}
