package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the service
type Config struct {
	Addr    string
	DB      DBConfig
	Auth    AuthConfig
	Logs    LogConfig
	Google  GoogleConfig
	OpenAI  OpenAIConfig
	Stripe  StripeConfig
	Scraper ScraperConfig

	FreeAnalysisLimit int
	OTLPEndpoint      string
}

type DBConfig struct {
	Driver string // sqlite or postgres
	URL    string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type LogConfig struct {
	Style string
	Level string
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	PriceIDPro    string
	PriceIDElite  string
	FrontendURL   string
}

type ScraperConfig struct {
	UseBrowser bool
	Retries    int
	Timeout    time.Duration
	CacheTTL   time.Duration
}

// Load reads configuration from environment variables (.env file included)
func Load() (*Config, error) {
	// .env is optional; production sets variables directly
	_ = godotenv.Load()

	tokenTTL, err := getDuration("JWT_TTL", 72*time.Hour)
	if err != nil {
		return nil, err
	}
	freeLimit, err := getInt("FREE_ANALYSIS_LIMIT", 5)
	if err != nil {
		return nil, err
	}
	useBrowser, err := getBool("SCRAPER_BROWSER", false)
	if err != nil {
		return nil, err
	}
	retries, err := getInt("SCRAPER_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	timeout, err := getDuration("SCRAPER_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getDuration("SCRAPER_CACHE_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	return &Config{
		Addr: getEnv("ADDR", ":8080"),
		DB: DBConfig{
			Driver: getEnv("DB_DRIVER", "sqlite"),
			URL:    getEnv("DATABASE_URL", "investcalc.db"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  tokenTTL,
		},
		Logs: LogConfig{
			Style: getEnv("LOG_STYLE", "pretty"),
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Google: GoogleConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/auth/google/callback"),
		},
		OpenAI: OpenAIConfig{
			APIKey: getEnv("OPENAI_API_KEY", ""),
			Model:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			PriceIDPro:    getEnv("STRIPE_PRICE_PRO", ""),
			PriceIDElite:  getEnv("STRIPE_PRICE_ELITE", ""),
			FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		Scraper: ScraperConfig{
			UseBrowser: useBrowser,
			Retries:    retries,
			Timeout:    timeout,
			CacheTTL:   cacheTTL,
		},
		FreeAnalysisLimit: freeLimit,
		OTLPEndpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}, nil
}

// ErrMissingJWTSecret is returned by Validate when tokens would be signed
// with an empty key.
var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set to serve the API")

// Validate checks what the HTTP server needs beyond Load. Offline commands
// such as calc and scrape do not call it.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

// Helper function to get env var or return default
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
