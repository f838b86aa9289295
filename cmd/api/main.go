package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"openbook/internal/assignment"
	"openbook/internal/auth"
	"openbook/internal/book"
	"openbook/internal/favorite"
	"openbook/internal/httpx"
	"openbook/internal/ingest"
	"openbook/internal/platform/config"
	"openbook/internal/platform/events"
	"openbook/internal/platform/logging"
	"openbook/internal/platform/openlibrary"
	"openbook/internal/platform/postgres"
	"openbook/internal/platform/schedule"
	"openbook/internal/user"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Open(ctx, postgres.Options{DSN: cfg.Database.DSN, MaxConns: cfg.Database.MaxConns})
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("database connection OK", zap.String("dsn", postgres.RedactDSN(cfg.Database.DSN)))

	var publisher *events.Publisher
	if cfg.NATS.URL != "" {
		nc, err := events.Connect(events.ConnOptions{URL: cfg.NATS.URL, Name: "openbook-api"})
		if err != nil {
			logger.Warn("nats unavailable, events disabled", zap.Error(err))
		} else {
			publisher = events.NewPublisher(nc, logger)
			defer publisher.Close()
		}
	}

	timeout := cfg.Database.QueryTimeout
	userSvc := user.NewService(user.NewPostgresRepo(pool, timeout))
	blacklist := auth.NewPostgresBlacklist(pool, timeout)
	authSvc := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, userSvc, blacklist, publisher, logger.Named("auth"))
	bookSvc := book.NewService(book.NewPostgresRepo(pool, timeout))
	favoriteSvc := favorite.NewService(favorite.NewPostgresRepo(pool, timeout))
	assignmentSvc := assignment.NewService(assignment.NewPostgresRepo(pool, timeout), userSvc, favoriteSvc)

	client := openlibrary.NewClient(openlibrary.Options{
		BaseURL:    cfg.Sync.APIBaseURL,
		UserAgent:  cfg.Sync.UserAgent,
		RPS:        cfg.Sync.RPS,
		MaxRetries: openlibrary.DefaultMaxRetries,
	})
	importer := ingest.NewImporter(pool,
		ingest.Config{Genres: cfg.Sync.Genres, TargetPerGenre: cfg.Sync.TargetPerGenre},
		ingest.Deps{Client: client, Publisher: publisher, Log: logger.Named("ingest"), PageSize: cfg.Sync.PageSize, Pacing: ingest.DefaultPacing()},
	)

	limiter := httpx.NewRateLimitMiddleware(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)
	defer limiter.Close()

	router := newRouter(handlers{
		auth:        auth.NewHTTPHandler(authSvc, logger),
		users:       user.NewHTTPHandler(userSvc, logger),
		books:       book.NewHTTPHandler(bookSvc, logger),
		favorites:   favorite.NewHTTPHandler(favoriteSvc, logger),
		assignments: assignment.NewHTTPHandler(assignmentSvc, logger),
		sync:        ingest.NewHTTPHandler(importer, cfg.HTTP.InternalSecret),
	}, routerConfig{
		JWTSecret:    cfg.Auth.JWTSecret,
		Blacklist:    blacklist,
		CORSOrigins:  cfg.HTTP.CORSOrigins,
		HSTS:         cfg.HTTP.HSTS,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		RateLimiter:  limiter,
		FrontendDir:  cfg.Frontend.Dir,
		Ready:        pool.Ping,
	}, logger)

	scheduler := schedule.New(logger.Named("schedule"))
	if err := registerJobs(scheduler, cfg.Sync.Schedule, importer, authSvc, logger); err != nil {
		return err
	}
	scheduler.Start()

	if cfg.Sync.OnStartup {
		// Detached from ctx: an interrupted startup import would leave a RUNNING row.
		go func() {
			ran, err := importer.RunIfEmpty(context.Background())
			if err != nil {
				logger.Error("startup sync failed", zap.Error(err))
				return
			}
			logger.Info("startup sync check done", zap.Bool("ran", ran))
		}()
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server starting", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		scheduler.Stop(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// registerJobs adds the hourly blacklist cleanup and, when spec is set, the periodic re-sync.
func registerJobs(s *schedule.Scheduler, spec string, importer *ingest.Service, authSvc *auth.Service, logger *zap.Logger) error {
	if err := s.Add("token-blacklist-cleanup", "@hourly", authSvc.CleanupBlacklist); err != nil {
		return err
	}
	if spec == "" {
		return nil
	}
	return s.Add("catalog-sync", spec, func(ctx context.Context) {
		if _, err := importer.Run(ctx, ingest.TriggerSchedule); err != nil {
			if errors.Is(err, ingest.ErrAlreadyRunning) {
				logger.Info("scheduled sync skipped, a run is in progress")
				return
			}
			logger.Error("scheduled sync failed", zap.Error(err))
		}
	})
}
