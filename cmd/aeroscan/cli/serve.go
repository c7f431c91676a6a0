package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aeroscan/aeroscan/config"
	"github.com/aeroscan/aeroscan/flow"
	"github.com/aeroscan/aeroscan/flow/memory"
	"github.com/aeroscan/aeroscan/instrumentation"
	"github.com/aeroscan/aeroscan/profile/bolt"
	"github.com/aeroscan/aeroscan/security"
	"github.com/aeroscan/aeroscan/server"
	"github.com/aeroscan/aeroscan/upstream"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	logger.Info("aeroscan starting",
		"version", Version,
		"listen", cfg.ListenAddr,
		"upstream", cfg.PartnerBaseURL,
		"oauth", cfg.OAuthEnabled(),
		"metrics", cfg.MetricsEnabled)

	inst, err := instrumentation.New(instrumentation.Config{
		ServiceName:    "aeroscan",
		ServiceVersion: Version,
		Enabled:        cfg.MetricsEnabled,
	})
	if err != nil {
		return fmt.Errorf("creating instrumentation: %w", err)
	}

	store := memory.New(
		memory.WithTTL(cfg.StateTTL),
		memory.WithLogger(logger),
	)
	defer store.Stop()

	var exchanger *flow.Exchanger
	if cfg.OAuthEnabled() {
		exchanger, err = flow.NewExchanger(flow.ExchangerConfig{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
			AuthURL:      cfg.OAuthAuthURL,
			TokenURL:     cfg.OAuthTokenURL,
			UserInfoURL:  cfg.OAuthUserInfoURL,
			Scopes:       cfg.Scopes(),
		})
		if err != nil {
			return fmt.Errorf("creating token exchanger: %w", err)
		}
	} else {
		logger.Warn("OAuth endpoints disabled", "missing", cfg.MissingOAuthSettings())
	}

	strategies, err := cfg.BearerStrategies()
	if err != nil {
		return fmt.Errorf("loading auth fallback strategies: %w", err)
	}

	client := upstream.New(cfg.PartnerBaseURL,
		upstream.WithBearerStrategies(strategies),
		upstream.WithFallbackRecorder(inst.Metrics().RecordUpstreamFallback),
		upstream.WithLogger(logger),
	)

	profiles, err := bolt.Open(cfg.ProfileDBPath)
	if err != nil {
		return fmt.Errorf("opening profile store: %w", err)
	}
	defer func() {
		if err := profiles.Close(); err != nil {
			logger.Error("Failed to close profile store", "error", err)
		}
	}()

	var limiter *security.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = security.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)
		defer limiter.Stop()
	}

	srv, err := server.New(server.Options{
		Config:      cfg,
		States:      store,
		Results:     store,
		Exchanger:   exchanger,
		Upstream:    client,
		Profiles:    profiles,
		RateLimiter: limiter,
		Inst:        inst,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "addr", cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		if err := inst.Shutdown(shutdownCtx); err != nil {
			logger.Error("Instrumentation shutdown failed", "error", err)
		}
		return nil
	})

	return g.Wait()
}

// newLogger builds the process logger: text output in development, JSON
// everywhere else.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
