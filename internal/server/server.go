// Package server wires the HTTP API together and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"investment-calculator/internal/analysis"
	"investment-calculator/internal/auth"
	"investment-calculator/internal/billing"
	"investment-calculator/internal/calculator"
	"investment-calculator/internal/config"
	"investment-calculator/internal/insight"
	"investment-calculator/internal/logging"
	"investment-calculator/internal/models"
	"investment-calculator/internal/respond"
	"investment-calculator/internal/scraper"
	"investment-calculator/internal/storage"
	"investment-calculator/internal/telemetry"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/gorm"
)

const serviceName = "investcalc"

// Deps are the services the router dispatches to. Google may be nil when
// Google sign-in is not configured.
type Deps struct {
	Users    *storage.UserStore
	Analyses *storage.AnalysisStore
	Auth     *auth.Service
	Google   *auth.Google
	Scraper  *scraper.Scraper
	Insight  insight.Generator
	Billing  *billing.Service
}

// NewDeps builds every service from configuration over an open database.
func NewDeps(cfg *config.Config, db *gorm.DB) (Deps, error) {
	users := storage.NewUserStore(db)
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	s, err := NewScraper(cfg.Scraper)
	if err != nil {
		return Deps{}, err
	}

	deps := Deps{
		Users:    users,
		Analyses: storage.NewAnalysisStore(db, cfg.FreeAnalysisLimit),
		Auth:     auth.NewService(users, issuer),
		Scraper:  s,
		Insight:  insight.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model),
		Billing:  billing.NewService(users, cfg.Stripe),
	}
	if cfg.Google.Enabled() {
		deps.Google = auth.NewGoogle(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL, users, issuer)
	}
	return deps, nil
}

// NewScraper picks the headless browser or plain HTTP fetcher.
func NewScraper(cfg config.ScraperConfig) (*scraper.Scraper, error) {
	var fetcher scraper.Fetcher
	if cfg.UseBrowser {
		fetcher = scraper.NewBrowserFetcher(cfg.Timeout)
	} else {
		f, err := scraper.NewHTTPFetcher(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("scraper: %w", err)
		}
		fetcher = f
	}
	return scraper.New(fetcher, scraper.Options{
		Retries:  cfg.Retries,
		CacheTTL: cfg.CacheTTL,
	}), nil
}

func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()
	requireAuth := auth.Middleware(d.Auth.Issuer())

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusNotFound, "not found")
	})

	mux.Handle("POST /api/auth/register", auth.RegisterHandler(d.Auth))
	mux.Handle("POST /api/auth/login", auth.LoginHandler(d.Auth))
	if d.Google != nil {
		mux.Handle("GET /api/auth/google/login", d.Google.LoginHandler())
		mux.Handle("GET /api/auth/google/callback", d.Google.CallbackHandler())
	}

	mux.Handle("POST /api/calculate/expression", calculator.ExpressionHandler())
	mux.Handle("POST /api/calculate/{type}", calculator.CalculateHandler())

	analysis.NewHandler(d.Analyses, d.Users, d.Insight).Register(mux, requireAuth)

	mux.Handle("POST /api/scrape", requireAuth(scraper.Handler(d.Scraper)))
	mux.Handle("POST /api/insight", requireAuth(auth.RequireFeature(d.Users, models.FeatureInsight)(insight.Handler(d.Insight))))

	mux.Handle("POST /api/billing/checkout", requireAuth(d.Billing.CheckoutHandler()))
	mux.Handle("POST /api/billing/portal", requireAuth(d.Billing.PortalHandler()))
	mux.Handle("POST /api/billing/webhook", d.Billing.WebhookHandler())

	return otelhttp.NewHandler(logging.Middleware(mux), serviceName)
}

// Run serves the API until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	tel, err := telemetry.Setup(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown failed", "err", err)
		}
	}()

	db, err := storage.Open(cfg.DB.Driver, cfg.DB.URL)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	deps, err := NewDeps(cfg, db)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.Addr,
			"google", deps.Google != nil,
			"billing", deps.Billing.Enabled(),
			"browser_import", cfg.Scraper.UseBrowser,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
