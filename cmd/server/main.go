package main

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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"sgr/internal/audit"
	"sgr/internal/auth/login"
	"sgr/internal/auth/session"
	"sgr/internal/auth/store"
	"sgr/internal/auth/token"
	"sgr/internal/backend"
	"sgr/internal/platform/config"
	"sgr/internal/platform/httpserver"
	"sgr/internal/platform/logger"
	"sgr/internal/platform/metrics"
	"sgr/internal/platform/postgres"
	"sgr/internal/platform/redis"
	"sgr/internal/ratelimit"
	"sgr/internal/screens"
	httptransport "sgr/internal/transport/http"
	"sgr/pkg/platform/circuit"
	"sgr/pkg/platform/middleware/sessioncookie"
)

const (
	auditQueueSize  = 1024
	shutdownTimeout = 10 * time.Second

	sessionPurgeInterval = 10 * time.Minute
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("sgr stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	stores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.close()

	registry, err := screens.LoadFile(cfg.ScreensFile)
	if err != nil {
		return fmt.Errorf("load screens: %w", err)
	}
	views, err := screens.NewViews()
	if err != nil {
		return err
	}

	sinks := audit.Multi{audit.NewLogPublisher(log)}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := audit.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return fmt.Errorf("kafka audit publisher: %w", err)
		}
		defer kafka.Close()
		sinks = append(sinks, kafka)
	}
	auditWorker := audit.NewWorker(sinks, auditQueueSize, log)

	sessions := session.NewRegistry(stores.sessions, token.NewDecoder(), log)
	sessions.OnChange(func(sessionID string, snap session.Snapshot) {
		log.Debug("session state published",
			"session_id", sessionID,
			"authenticated", snap.Authenticated,
		)
	})

	onCircuit := func(name string, state circuit.State) {
		m.SetCircuitOpen(name, state == circuit.StateOpen)
		log.Warn("circuit breaker changed state", "circuit", name, "state", state.String())
	}
	backendBreaker := circuit.New("backend", circuit.WithOnStateChange(onCircuit))

	var loginLimiter *ratelimit.Limiter
	fallback := ratelimit.NewMemoryStore()
	if cfg.LoginThrottle.MaxAttempts > 0 {
		var primary ratelimit.Store = fallback
		if stores.redis != nil {
			primary = ratelimit.NewRedisStore(stores.redis)
		}
		loginLimiter, err = ratelimit.New(primary, cfg.LoginThrottle.MaxAttempts, cfg.LoginThrottle.Window,
			ratelimit.WithFallback(fallback),
			ratelimit.WithBreaker(circuit.New("ratelimit", circuit.WithOnStateChange(onCircuit))),
			ratelimit.WithLogger(log),
		)
		if err != nil {
			return err
		}
	}

	httpClient := &http.Client{Timeout: cfg.BackendTimeout}
	router := httptransport.NewRouter(httptransport.Deps{
		Sessions: sessions,
		Screens:  registry,
		Views:    views,
		Auth: login.New(login.Config{
			BackendURL:   cfg.BackendURL,
			TokenPath:    cfg.OAuth.TokenPath,
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
		}, httpClient),
		Backend: backend.New(cfg.BackendURL, httpClient,
			backend.WithProfilePath(cfg.ProfilePath),
			backend.WithBreaker(backendBreaker),
		),
		Audit:        auditWorker,
		Metrics:      m,
		Gatherer:     reg,
		MetricsToken: cfg.MetricsToken,
		Health:       stores.health,
		Cookie: sessioncookie.Config{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.CookieSecure,
			TTL:    cfg.Session.TTL,
		},
		LoginLimiter: loginLimiter,
		Logger:       log,
	})
	srv := httpserver.New(cfg.Addr, router,
		// the backend timeout plus room to render the page
		httpserver.WithWriteTimeout(cfg.BackendTimeout+15*time.Second),
		httpserver.WithErrorLog(log),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := auditWorker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if loginLimiter == nil {
			return nil
		}
		if err := fallback.RunSweeper(gctx, cfg.LoginThrottle.Window, cfg.LoginThrottle.Window); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(sessionPurgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case now := <-ticker.C:
				if dropped := sessions.Sweep(now, cfg.Session.TTL); dropped > 0 {
					log.Debug("released idle session contexts", "count", dropped)
				}
				m.SetSessionContexts(sessions.Len())
				if stores.purge == nil {
					continue
				}
				n, err := stores.purge(gctx)
				if err != nil {
					log.Warn("session purge failed", "error", err)
					continue
				}
				log.Debug("purged stale session entries", "rows", n)
			}
		}
	})
	g.Go(func() error {
		log.Info("starting sgr",
			"addr", cfg.Addr,
			"backend", cfg.BackendURL,
			"session_backend", cfg.Session.Backend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		log.Info("sgr stopped", "audit_events_dropped", auditWorker.Dropped())
		return nil
	})
	return g.Wait()
}

// backends holds the opened persistence backends. redis is nil unless the
// session backend is Redis; the login limiter shares it when present.
type backends struct {
	sessions store.Provider
	redis    *goredis.Client
	// health is nil for the in-memory store.
	health func(context.Context) error
	// purge drops expired entries for stores without native expiry; nil for Redis.
	purge func(context.Context) (int64, error)
	close func()
}

func openStores(ctx context.Context, cfg config.Server) (backends, error) {
	switch cfg.Session.Backend {
	case config.SessionBackendRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return backends{}, fmt.Errorf("redis session store: %w", err)
		}
		return backends{
			sessions: store.NewRedisProvider(client.Client, store.WithRedisTTL(cfg.Session.TTL)),
			redis:    client.Client,
			health:   client.Health,
			close:    func() { _ = client.Close() },
		}, nil
	case config.SessionBackendPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return backends{}, fmt.Errorf("postgres session store: %w", err)
		}
		provider := store.NewPostgresProvider(db)
		if err := provider.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return backends{}, err
		}
		return backends{
			sessions: provider,
			health:   db.PingContext,
			purge: func(ctx context.Context) (int64, error) {
				return provider.PurgeStale(ctx, cfg.Session.TTL)
			},
			close: func() { _ = db.Close() },
		}, nil
	default:
		provider := store.NewInMemoryProvider(store.WithMemoryTTL(cfg.Session.TTL))
		return backends{
			sessions: provider,
			purge: func(ctx context.Context) (int64, error) {
				return provider.PurgeStale(ctx, cfg.Session.TTL)
			},
			close: func() {},
		}, nil
	}
}
