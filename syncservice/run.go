// Package syncservice wires and runs the account sync service: the
// credential store, the OAuth linking flow, the sync scheduler, and the
// HTTP surface that exposes snapshots and health.
package syncservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mythosaz/destiny2-ha/internal/api"
	"github.com/mythosaz/destiny2-ha/internal/authflow"
	"github.com/mythosaz/destiny2-ha/internal/bungie"
	"github.com/mythosaz/destiny2-ha/internal/config"
	"github.com/mythosaz/destiny2-ha/internal/credstore"
	"github.com/mythosaz/destiny2-ha/internal/logger"
	"github.com/mythosaz/destiny2-ha/internal/metrics"
	"github.com/rs/zerolog"
)

// Run starts the sync service HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("destiny2-sync")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("credstore_driver", cfg.CredStoreDriver).
		Int("http_port", cfg.HTTPPort).
		Int("update_interval_minutes", cfg.UpdateIntervalMinutes).
		Msg("Sync service starting")

	// Create cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	store, err := credstore.New(cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Credential store unavailable")
		return err
	}
	defer func() { _ = store.Close() }()

	registry := prometheus.NewRegistry()
	mets := metrics.New(registry)

	sup := newSupervisor(cfg, store, mets, log)

	// The link client only talks to the token endpoint; the account API key
	// is not known until the handshake completes, and the token endpoint
	// does not require it.
	linkClient := bungie.New(bungie.Options{
		BaseURL:  cfg.APIBaseURL,
		TokenURL: cfg.OAuthTokenURL,
		Timeout:  cfg.RequestTimeout(),
	}, log)

	flow := authflow.New(linkClient, store, cfg.OAuthAuthURL, cfg.ExternalURL+"/api/destiny2/callback", log)
	flow.OnLinked = func(rec *credstore.Record) { sup.Start(ctx, rec) }

	// Adopt an account linked in a previous run.
	switch rec, err := store.Load(ctx); {
	case err == nil:
		sup.Start(ctx, rec)
	case errors.Is(err, credstore.ErrNotLinked):
		log.Info().Msg("no linked account; waiting for authorization")
	default:
		log.Error().Stack().Err(err).Msg("Failed to load stored credential")
		return err
	}

	router := api.NewRouter(api.Deps{
		Snapshot:   sup.Snapshot,
		CacheStats: sup.CacheStats,
		Available:  sup.Available,
		Flow:       flow,
		Metrics:    promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Log:        log,
	})

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	// Graceful shutdown on context cancel or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
