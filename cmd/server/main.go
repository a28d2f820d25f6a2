package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RahulUpadhay-art/consents-denied/internal/admintoken"
	"github.com/RahulUpadhay-art/consents-denied/internal/analytics"
	"github.com/RahulUpadhay-art/consents-denied/internal/audit"
	"github.com/RahulUpadhay-art/consents-denied/internal/consent/bridge"
	"github.com/RahulUpadhay-art/consents-denied/internal/consent/buffer"
	"github.com/RahulUpadhay-art/consents-denied/internal/consent/coordinator"
	"github.com/RahulUpadhay-art/consents-denied/internal/consent/gate"
	"github.com/RahulUpadhay-art/consents-denied/internal/consent/metrics"
	"github.com/RahulUpadhay-art/consents-denied/internal/consent/store"
	"github.com/RahulUpadhay-art/consents-denied/internal/consent/tracer"
	"github.com/RahulUpadhay-art/consents-denied/internal/platform/config"
	"github.com/RahulUpadhay-art/consents-denied/internal/platform/httpserver"
	"github.com/RahulUpadhay-art/consents-denied/internal/platform/logger"
	httptransport "github.com/RahulUpadhay-art/consents-denied/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Consent semantics live in the coordinator package.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing consent gateway",
		"addr", cfg.Addr,
		"platform", cfg.Platform,
		"redis", cfg.RedisURL != "",
	)

	flagStore, err := newFlagStore(cfg)
	if err != nil {
		log.Error("flag store setup failed", "error", err)
		os.Exit(1)
	}

	auditor := audit.NewPublisher(
		audit.NewInMemoryStore(),
		audit.WithAsyncBuffer(256),
		audit.WithPublisherLogger(log),
	)
	defer auditor.Close()

	coord := coordinator.New(
		flagStore,
		bridge.NewHTTP(cfg.BridgeURL),
		gate.ForPlatform(cfg.Platform, cfg.MandatoryGatePlatforms, gate.NewHTTPAuthorizer(cfg.BridgeURL)),
		analytics.NewCollector(cfg.CollectorURL),
		buffer.New(buffer.WithExtraPIIKeys(cfg.ExtraPIIKeys...)),
		log,
		coordinator.WithMetrics(metrics.New()),
		coordinator.WithAuditor(auditor),
		coordinator.WithTracer(tracer.NewOTel()),
	)

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	state := coord.Load(loadCtx)
	cancelLoad()
	log.Info("consent state replayed", "state", state)

	tokens := admintoken.NewService(cfg.JWTSigningKey, cfg.TokenTTL)
	handler := httptransport.NewHandler(coord, tokens, cfg.AdminSecretHash, log)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler, tokens, log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	coord.Teardown(context.Background())
	log.Info("server stopped")
}

// newFlagStore picks Redis when configured and verifies connectivity before
// the coordinator replays state from it.
func newFlagStore(cfg config.Server) (coordinator.Store, error) {
	if cfg.RedisURL == "" {
		return store.NewInMemory(), nil
	}
	redisStore, err := store.NewRedis(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisStore.Ping(pingCtx); err != nil {
		return nil, err
	}
	return redisStore, nil
}
