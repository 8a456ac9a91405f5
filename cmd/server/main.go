package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"perfprime/internal/api"
	"perfprime/internal/bookingstore"
	"perfprime/internal/config"
	"perfprime/internal/database"
	"perfprime/internal/events"
	"perfprime/internal/metrics"
	"perfprime/internal/rollout"
	"perfprime/internal/session"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	if err := config.LoadEnv(os.Getenv("PERFPRIME_ENV_FILE")); err != nil {
		logger.Fatal().Err(err).Msg("failed to load .env")
	}

	cfg, err := config.Load(os.Getenv("PERFPRIME_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	checks := map[string]api.CheckFunc{
		"sqlite": db.PingContext,
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	reader, err := newBookingReader(cfg, db, rdb, checks)
	if err != nil {
		logger.Fatal().Err(err).Msg("booking store error")
	}

	sessions := newSessionBackend(ctx, cfg, db, rdb, &logger)

	bus := events.NewEventBus()
	bus.OnError(func(ev events.Event, err error) {
		logger.Error().Err(err).Str("event", ev.Type).Msg("event handler failed")
	})
	exposures := database.NewExposureLog(db)
	exposures.Subscribe(bus)

	assigner := rollout.NewAssigner(cfg.Rollout, &logger, rollout.WithPublisher(bus))
	if cfg.RolloutFile != "" {
		if err := rollout.Watch(ctx, cfg.RolloutFile, cfg.RolloutWatchInterval(), &logger, func(updated rollout.Config) {
			assigner.SetConfig(updated)
			logger.Info().Time("reloaded_at", time.Now()).Msg("rollout config reloaded")
		}); err != nil {
			logger.Error().Err(err).Str("path", cfg.RolloutFile).Msg("rollout watch failed, keeping inline config")
		}
	}

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.Backup.Enabled {
		go database.NewBackupService(db, cfg.Backup, &logger).Start(ctx)
	}

	server := api.NewServer(api.Options{
		Bookings:   reader,
		Assigner:   assigner,
		Sessions:   sessions,
		Exposures:  exposures,
		Checks:     checks,
		CookieName: cfg.Session.CookieName,
		SessionTTL: cfg.SessionTTL(),
		Location:   cfg.Location(),
	}, &logger)

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().
		Str("addr", cfg.Server.Address).
		Str("booking_store", cfg.BookingStore.Driver).
		Str("session_backend", cfg.Session.Backend).
		Msg("perfprime server started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("http server error")
	}
}

func newBookingReader(cfg *config.Config, db *database.DB, rdb *redis.Client, checks map[string]api.CheckFunc) (bookingstore.Reader, error) {
	switch cfg.BookingStore.Driver {
	case "rest":
		client := bookingstore.NewRESTClient(cfg.Supabase.URL, cfg.Supabase.AnonKey)
		if rdb != nil && cfg.BookingCacheTTL() > 0 {
			client.UseRedisCache(rdb, cfg.BookingCacheTTL())
		}
		client.UseRateLimit(cfg.BookingStore.RateLimitRPS, cfg.BookingStore.RateLimitBurst)
		checks["booking_store"] = client.HealthCheck
		return client, nil

	case "postgres":
		pg, err := sql.Open("postgres", cfg.BookingStore.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		reader := bookingstore.NewSQLReader(pg, "postgres")
		checks["booking_store"] = reader.Ping
		return reader, nil

	case "sqlite":
		if cfg.BookingStore.DSN == cfg.Database.Path {
			return bookingstore.NewSQLReader(db.DB, "sqlite3"), nil
		}
		lite, err := sql.Open("sqlite3", cfg.BookingStore.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite booking store: %w", err)
		}
		reader := bookingstore.NewSQLReader(lite, "sqlite3")
		checks["booking_store"] = reader.Ping
		return reader, nil
	}
	return nil, fmt.Errorf("unknown booking store driver %q", cfg.BookingStore.Driver)
}

func newSessionBackend(ctx context.Context, cfg *config.Config, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) session.Store {
	switch cfg.Session.Backend {
	case "redis":
		fallback := session.NewMemoryStore(cfg.SessionTTL())
		go fallback.RunCleanup(ctx, 10*time.Minute)
		return session.NewFailoverStore(session.NewRedisStore(rdb, cfg.SessionTTL()), fallback, logger)

	case "sqlite":
		store := database.NewSessionStore(db, cfg.SessionTTL())
		go store.RunPrune(ctx, 10*time.Minute)
		return store
	}

	store := session.NewMemoryStore(cfg.SessionTTL())
	go store.RunCleanup(ctx, 10*time.Minute)
	return store
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
