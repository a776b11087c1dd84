package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ride-auth-service/internal/api/http"
	"github.com/spec-kit/ride-auth-service/internal/api/http/handlers"
	"github.com/spec-kit/ride-auth-service/internal/auth"
	"github.com/spec-kit/ride-auth-service/internal/config"
	"github.com/spec-kit/ride-auth-service/internal/domain"
	"github.com/spec-kit/ride-auth-service/internal/events"
	"github.com/spec-kit/ride-auth-service/internal/observability"
	"github.com/spec-kit/ride-auth-service/internal/persistence"
	"github.com/spec-kit/ride-auth-service/internal/repository"
	"github.com/spec-kit/ride-auth-service/internal/service"
	"github.com/spec-kit/ride-auth-service/internal/worker"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	pflag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hasher, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatal("invalid bcrypt cost", zap.Error(err))
	}
	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret)
	if err != nil {
		logger.Fatal("token signing unavailable", zap.Error(err))
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	readiness := map[string]handlers.Pinger{}
	var userRepo, captainRepo repository.ActorRepository
	if pg != nil {
		userRepo = repository.NewUserRepository(pg.Pool)
		captainRepo = repository.NewCaptainRepository(pg.Pool)
		readiness["postgres"] = pg
	} else {
		userRepo = repository.NewMemoryActorRepository(domain.ActorKindUser)
		captainRepo = repository.NewMemoryActorRepository(domain.ActorKindCaptain)
		readiness["postgres"] = nil
	}

	var (
		revocations repository.RevocationStore
		sweepable   repository.Sweeper
	)
	switch cfg.Auth.RevocationBackend {
	case config.RevocationBackendRedis:
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		revocations = repository.NewRedisRevocationStore(redis.Client, cfg.Auth.RevocationKeyPrefix)
		readiness["redis"] = redis
	case config.RevocationBackendPostgres:
		store := repository.NewPostgresRevocationStore(pg.Pool)
		revocations, sweepable = store, store
	default:
		store := repository.NewMemoryRevocationStore()
		revocations, sweepable = store, store
	}

	if sweepable != nil {
		sweeper := worker.NewRevocationSweeper(sweepable, cfg.Auth.SweepInterval(), logger)
		sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	directory := service.NewDirectory(hasher, userRepo, captainRepo)
	authService := service.NewAuthService(service.AuthDependencies{
		Directory:   directory,
		Hasher:      hasher,
		Tokens:      tokens,
		Revocations: revocations,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	gate := auth.NewGate(tokens, revocations, directory, metrics, logger)

	mwCfg := httptransport.MiddlewareConfig{
		Logger:      logger,
		Metrics:     metrics,
		Timeout:     cfg.App.RequestTimeout(),
		Development: cfg.App.IsDevelopment(),
	}
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.NewErrorResponder(mwCfg).Handle,
	})
	httptransport.RegisterMiddlewares(app, mwCfg)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
		Users:    handlers.NewActorHandler(domain.ActorKindUser, authService, cfg.Auth.CookieSecure),
		Captains: handlers.NewActorHandler(domain.ActorKindCaptain, authService, cfg.Auth.CookieSecure),
		Gate:     gate,
		Gatherer: registry,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
