// Package app wires configuration, storage, the registry client and the
// HTTP API into a runnable service.
package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/annuaire-entreprises/annuaire-engine/pkg/auth"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/config"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/handlers"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/logging"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/metrics"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/middleware"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/searchapi"
	"github.com/annuaire-entreprises/annuaire-engine/pkg/services"
)

// App holds the long-lived components of a running service.
type App struct {
	Config    *config.Config
	Metrics   *metrics.Metrics
	Source    searchapi.Source
	Store     *Store
	Companies services.CompanyService
	Annotated services.AnnotatedCompanyService
	Verifier  *auth.Verifier

	logger *zap.Logger
}

// New opens the store and builds every service. Close releases what New opened.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	m := metrics.New()

	store, err := OpenStore(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open annotation store: %w", err)
	}

	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWTSecret:          cfg.Auth.JWTSecret,
		JWKSURL:            cfg.Auth.JWKSURL,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize token verification: %w", err)
	}

	source := NewSource(&cfg.SearchAPI, m, logger)

	return &App{
		Config:    cfg,
		Metrics:   m,
		Source:    source,
		Store:     store,
		Companies: services.NewCompanyService(source, store.Repo, m, logger),
		Annotated: services.NewAnnotatedCompanyService(source, store.Repo, cfg.Lookup.RetryConfig(), m, logger),
		Verifier:  verifier,
		logger:    logger,
	}, nil
}

// NewSource returns a proxy client when a proxy URL is configured and a
// direct registry client otherwise.
func NewSource(cfg *config.SearchAPIConfig, m *metrics.Metrics, logger *zap.Logger) searchapi.Source {
	opts := searchapi.Options{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
		Metrics:   m,
	}
	if cfg.ProxyURL != "" {
		logger.Info("Searching through proxy", zap.String("proxy_url", logging.SanitizeURL(cfg.ProxyURL)))
		return searchapi.NewProxyClient(cfg.ProxyURL, opts, logger)
	}
	logger.Info("Searching registry directly", zap.String("base_url", cfg.BaseURL))
	return searchapi.NewClient(opts, logger)
}

// Handler returns the full HTTP API with its middleware chain.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()

	authMiddleware := auth.NewMiddleware(
		auth.NewAuthService(a.Verifier, a.logger),
		a.Config.Auth.EnableVerification,
		a.logger,
	)

	handlers.NewHealthHandler(a.Config, a.Store.Pinger, a.logger).RegisterRoutes(mux)
	mux.Handle("GET /metrics", a.Metrics.Handler())

	handlers.NewCompanyHandler(a.Companies, a.Annotated, a.logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewProxyHandler(a.Source, a.Companies, a.logger).RegisterRoutes(mux, authMiddleware)

	return middleware.Chain(mux,
		middleware.RequestID(),
		middleware.RequestLogger(a.logger),
		middleware.Recover(a.logger),
		middleware.CORS(a.Config.CORS.AllowedOrigin),
	)
}

// Close stops background work and closes the store.
func (a *App) Close() {
	a.Verifier.Close()
	a.Store.Close()
}
