package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/catalog/api/handler"
	"github.com/fastygo/catalog/domain"
	"github.com/fastygo/catalog/internal/config"
	"github.com/fastygo/catalog/internal/infrastructure/buffer"
	"github.com/fastygo/catalog/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/catalog/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/catalog/internal/infrastructure/redis"
	"github.com/fastygo/catalog/internal/middleware"
	"github.com/fastygo/catalog/internal/router"
	"github.com/fastygo/catalog/internal/services"
	"github.com/fastygo/catalog/internal/services/lifecycle"
	"github.com/fastygo/catalog/internal/session"
	"github.com/fastygo/catalog/pkg/httpcontext"
	"github.com/fastygo/catalog/pkg/logger"
	"github.com/fastygo/catalog/pkg/password"
	"github.com/fastygo/catalog/pkg/sessionid"
	"github.com/fastygo/catalog/repository/postgres"
	redisRepo "github.com/fastygo/catalog/repository/redis"
	accountUC "github.com/fastygo/catalog/usecase/account"
	authUC "github.com/fastygo/catalog/usecase/auth"
	productUC "github.com/fastygo/catalog/usecase/product"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger = zapLogger.With(zap.String("app", cfg.AppName), zap.String("env", cfg.Environment))

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pgInfra.Close(pool, zapLogger)
		return nil
	})

	redisClient, err := redisInfra.NewClient(appCtx, cfg.Redis, zapLogger)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		redisInfra.Close(redisClient, zapLogger)
		return nil
	})

	bufferStore, err := buffer.Open(cfg.Buffer.Path, buffer.Options{MaxSize: cfg.Buffer.MaxSize})
	if err != nil {
		zapLogger.Fatal("failed to open buffer store", zap.Error(err))
	}
	manager.Register("buffer", func(ctx context.Context) error {
		return bufferStore.Close()
	})

	mon := monitor.New(pool, redisClient, bufferStore, monitor.Options{
		Interval:     10 * time.Second,
		ProbeTimeout: cfg.Redis.OpTimeout * 4,
	}, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	userRepo := postgres.NewUserRepository(pool)
	productRepo := postgres.NewProductRepository(pool)

	guestSessions := redisRepo.NewGuestSessionRepository(redisClient, redisRepo.SessionOptions{
		TTL:       cfg.Session.GuestTTL,
		OpTimeout: cfg.Redis.OpTimeout,
	})
	authSessions := redisRepo.NewAuthSessionRepository(redisClient, redisRepo.SessionOptions{
		TTL:       cfg.Session.AuthTTL,
		OpTimeout: cfg.Redis.OpTimeout,
	})
	loginAttempts := redisRepo.NewAttemptRepository(redisClient, redisRepo.AttemptOptions{
		FailureWindow:   cfg.Auth.FailureWindow,
		LockoutDuration: cfg.Auth.LockoutDuration,
		OpTimeout:       cfg.Redis.OpTimeout,
	})

	hasher, err := password.NewHasher(password.Params{
		Time:      cfg.Auth.Argon2Time,
		MemoryKiB: cfg.Auth.Argon2MemoryKiB,
		Threads:   cfg.Auth.Argon2Threads,
	}, cfg.Auth.PasswordPepper)
	if err != nil {
		zapLogger.Fatal("invalid password hashing parameters", zap.Error(err))
	}

	bufferProcessor := services.NewBufferProcessor(
		bufferStore,
		mon,
		productRepo,
		zapLogger,
		services.ProcessorConfig{
			Interval:   cfg.Buffer.SyncInterval,
			BatchSize:  50,
			MaxRetries: cfg.Buffer.MaxRetry,
			MaxAge:     cfg.Buffer.MaxAge,
		},
	)
	bufferProcessor.Start()
	manager.Register("buffer_processor", bufferProcessor.Stop)

	bufferBridge := services.NewBufferBridge(bufferProcessor)

	authUseCase := authUC.New(userRepo, loginAttempts, hasher, authUC.Options{
		FailureThreshold: int64(cfg.Auth.FailureThreshold),
	}, zapLogger)
	accountUseCase := accountUC.New(userRepo, hasher, authUseCase, zapLogger)
	productUseCase := productUC.New(productRepo, bufferBridge, zapLogger)

	if !cfg.Maintenance.DisablePurging {
		purgeJob, err := services.NewPurgeJob(accountUseCase, services.PurgeConfig{
			Schedule:  cfg.Maintenance.PurgeSchedule,
			Retention: time.Duration(cfg.Maintenance.RetentionDays) * 24 * time.Hour,
		}, zapLogger)
		if err != nil {
			zapLogger.Fatal("invalid purge schedule", zap.Error(err))
		}
		purgeJob.Start()
		manager.Register("purge_job", purgeJob.Stop)
	}

	sessionManager := session.NewManager(
		guestSessions,
		authSessions,
		session.NewCorrelator(session.CookieOptions{
			Secure: cfg.IsProduction(),
			Domain: cfg.Session.CookieDomain,
		}),
		sessionid.NewGenerator(),
		session.Options{GuestTTL: cfg.Session.GuestTTL, AuthTTL: cfg.Session.AuthTTL},
		zapLogger,
	)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:    apiHandler.NewAuthHandler(authUseCase, sessionManager, ctxAdapter, zapLogger),
		Session: apiHandler.NewSessionHandler(ctxAdapter, zapLogger),
		Account: apiHandler.NewAccountHandler(accountUseCase, sessionManager, ctxAdapter, zapLogger),
		Product: apiHandler.NewProductHandler(productUseCase, ctxAdapter, zapLogger),
		Health:  apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	r := router.New(handlers, router.Middlewares{
		Session:     middleware.Session(sessionManager, ctxAdapter, zapLogger),
		RequireAuth: middleware.RequireAuth(zapLogger),
		Staff:       middleware.RequireRole(userRepo, ctxAdapter, zapLogger, domain.RoleAdmin, domain.RoleEditor),
		Admin:       middleware.RequireRole(userRepo, ctxAdapter, zapLogger, domain.RoleAdmin),
	}, zapLogger)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	manager.Go("http_server", func() error {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		return server.ListenAndServe(cfg.Address())
	})
	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	if err := manager.Wait(appCtx); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
