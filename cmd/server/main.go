package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/newstaq/portal/internal/api"
	"github.com/newstaq/portal/internal/api/metrics"
	"github.com/newstaq/portal/internal/core/ports"
	"github.com/newstaq/portal/internal/core/service"
	"github.com/newstaq/portal/internal/devapi"
	"github.com/newstaq/portal/internal/infrastructure/apiclient"
	"github.com/newstaq/portal/internal/infrastructure/db/memory"
	mongostore "github.com/newstaq/portal/internal/infrastructure/db/mongo"
	redisstore "github.com/newstaq/portal/internal/infrastructure/db/redis"
	"github.com/newstaq/portal/internal/infrastructure/queue"
	"github.com/newstaq/portal/internal/pkg/config"
	"github.com/newstaq/portal/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "wms-portal",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("portal stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	backend, closeBackend, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeBackend()

	var servers []*http.Server

	if cfg.DevAPI.Enabled {
		dev, err := devapi.New(ctx, devapi.Config{JWTSecret: cfg.DevAPI.JWTSecret}, logger.Component(log, "devapi"))
		if err != nil {
			return err
		}
		servers = append(servers, &http.Server{Addr: ":" + cfg.DevAPI.Port, Handler: dev.Echo})
		log.Warn().Str("port", cfg.DevAPI.Port).Msg("development API enabled, do not use in production")
	}

	authClient := apiclient.NewAuthClient(cfg.API.BaseURL, nil, cfg.API.LoginTimeout)
	registry := service.NewRegistry(backend, authClient, log,
		service.WithIdleTTL(cfg.Session.ProfileIdleTTL),
		service.WithMaxProfiles(cfg.Session.MaxProfiles),
	)

	dispatcher := queue.NewDispatcher(0, queue.AuditHandler(logger.Component(log, "audit")), log)
	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	dispatcher.Start(dispatcherCtx)
	defer func() {
		stopDispatcher()
		dispatcher.Wait()
	}()
	registry.OnCreate(dispatcher.Attach)
	registry.OnCreate(func(string, *service.AuthContext) {
		metrics.ActiveProfiles.Inc()
	})
	registry.OnEvict(func(string, *service.AuthContext) {
		metrics.ActiveProfiles.Dec()
	})

	router := api.NewRouter(api.Deps{
		Registry:      registry,
		Recovery:      authClient,
		Backend:       backend,
		BackendName:   cfg.Session.Backend,
		APIBaseURL:    cfg.API.BaseURL,
		APITimeout:    cfg.API.Timeout,
		LoginTimeout:  cfg.API.LoginTimeout,
		BootstrapWait: cfg.API.BootstrapWait,
		CookieSecure:  cfg.Session.CookieSecure,
		Log:           log,
	})
	servers = append(servers, &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	})

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			log.Info().Str("addr", srv.Addr).Msg("listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(srv)
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err = <-errCh:
		log.Error().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			log.Error().Err(serr).Str("addr", srv.Addr).Msg("graceful shutdown failed")
		}
	}
	return err
}

// openBackend connects the configured session backend and returns the
// function that releases it.
func openBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.SessionBackend, func(), error) {
	switch cfg.Session.Backend {
	case config.BackendMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, nil, err
		}
		backend := mongostore.NewSessionBackend(db)
		if err := backend.EnsureIndexes(ctx, cfg.Session.TTL); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("sessions stored in MongoDB")
		return backend, func() { _ = client.Disconnect(context.Background()) }, nil

	case config.BackendMemory:
		log.Warn().Msg("sessions kept in memory, they will not survive a restart")
		return memory.NewSessionBackend(), func() {}, nil

	default:
		client, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("sessions stored in Redis")
		return redisstore.NewSessionBackend(client, cfg.Session.TTL), func() { _ = client.Close() }, nil
	}
}
