package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/quickpick/backend/config"
	httpDelivery "github.com/quickpick/backend/internal/delivery/http"
	"github.com/quickpick/backend/internal/domain"
	"github.com/quickpick/backend/internal/infrastructure/cache"
	"github.com/quickpick/backend/internal/infrastructure/geocode"
	"github.com/quickpick/backend/internal/infrastructure/scraper"
	"github.com/quickpick/backend/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}
}

// run wires the service and serves until an interrupt or a server error.
// Deferred cleanup always runs before it returns.
func run(cfg *config.Config, logger zerolog.Logger) error {
	logger.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("cache", cfg.Cache.Type).
		Dur("cache_ttl", cfg.Cache.TTL).
		Msg("Starting QuickPick backend v1.0.0")

	debug := cfg.Server.Environment == "development"

	// Initialize infrastructure dependencies
	memoryCache := cache.NewMemoryCache(10 * time.Minute)
	defer memoryCache.Close()

	geocoder := geocode.NewClient(cfg.Geocode.APIKey, cfg.Geocode.BaseURL, cfg.RateLimit.Geocode, logger)
	geocoder.SetDebug(debug)

	var sources []domain.ProviderSource
	for _, provider := range domain.Providers {
		url, ok := cfg.ProviderURLs()[provider]
		if !ok {
			logger.Warn().Str("provider", string(provider)).Msg("no scraper configured, provider disabled")
			continue
		}

		source := scraper.NewClient(provider, url, scraper.Options{
			Timeout:       cfg.Providers.Timeout,
			RatePerSecond: cfg.RateLimit.Scraper,
			MaxProducts:   cfg.Providers.MaxProducts,
		}, logger)
		source.SetDebug(debug)
		sources = append(sources, source)
		logger.Info().Str("provider", string(provider)).Str("url", url).Msg("provider source configured")
	}

	// Initialize usecase layer
	comparator := usecase.NewComparator(usecase.ComparatorConfig{
		Match: usecase.MatchConfig{
			Threshold:          cfg.Matching.Threshold,
			NameWeight:         cfg.Matching.NameWeight,
			QuantityWeight:     cfg.Matching.QuantityWeight,
			PivotProvider:      cfg.PivotProvider(),
			IndexMinRecords:    cfg.Matching.IndexMinRecords,
			EnableDebugLogging: cfg.Matching.DebugLogging,
		},
	}, logger)

	logger.Info().
		Float64("threshold", cfg.Matching.Threshold).
		Float64("name_weight", cfg.Matching.NameWeight).
		Float64("quantity_weight", cfg.Matching.QuantityWeight).
		Str("pivot", cfg.Matching.PivotProvider).
		Msg("Matching configured")

	searchService := usecase.NewSearchService(
		memoryCache,
		geocoder,
		sources,
		comparator,
		usecase.SearchServiceConfig{LocationTTL: cfg.Cache.TTL},
		logger,
	)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(searchService)
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Providers.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, server, shutdownTimeout, logger)
}

const shutdownTimeout = 30 * time.Second

// serve runs the server until ctx ends, then shuts it down gracefully.
// A listen failure is returned immediately.
func serve(ctx context.Context, server *http.Server, timeout time.Duration, logger zerolog.Logger) error {
	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info().Msg("Shutting down server gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	logger.Info().Msg("Server stopped")
	return nil
}

// newLogger builds the root logger from the log configuration
func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	var logger zerolog.Logger
	if cfg.Format == "json" {
		logger = zerolog.New(os.Stdout)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"})
	}
	return logger.Level(level).With().Timestamp().Str("service", "quickpick").Logger()
}
