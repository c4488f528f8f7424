package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/d60-Lab/roadmap-api/internal/api"
	"github.com/d60-Lab/roadmap-api/internal/api/handler"
	"github.com/d60-Lab/roadmap-api/internal/cache"
	"github.com/d60-Lab/roadmap-api/internal/config"
	"github.com/d60-Lab/roadmap-api/internal/identity"
	"github.com/d60-Lab/roadmap-api/internal/repository"
	"github.com/d60-Lab/roadmap-api/internal/service"
	"github.com/d60-Lab/roadmap-api/pkg/logger"
	"github.com/d60-Lab/roadmap-api/pkg/tracing"
)

// @title Roadmap API
// @version 1.0
// @description 学习路线与问答服务
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			AttachStacktrace: true,
		}); err != nil {
			return err
		}
		defer sentry.Flush(2 * time.Second)
	}

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRatio: cfg.Tracing.SampleRatio,
		Insecure:    cfg.Tracing.Insecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	mongoClient, db, err := repository.Connect(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		return err
	}
	logger.Info("connected to MongoDB", zap.String("database", cfg.Mongo.Database))

	rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()
	logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

	repos := repository.NewRepositories(db)
	pageCache := cache.NewRedisCache(rdb)

	provider, err := newIdentityProvider(ctx, cfg.Auth, repos.Users)
	if err != nil {
		return err
	}
	resolver := identity.NewResolver(provider, pageCache, cfg.Cache.TTL)

	h := handler.NewHandler(
		service.NewUserService(repos.Users),
		service.NewRoadmapService(repos.Users, repos.Roadmaps),
		service.NewQnAService(repos.Questions, repos.Replies, pageCache, resolver, cfg.Cache.TTL),
		service.NewCaseService(repos.Cases),
		handler.HealthCheck{Name: "mongo", Check: func(ctx context.Context) error {
			return mongoClient.Ping(ctx, readpref.Primary())
		}},
		handler.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}},
	)

	if cfg.Reconciler.Enabled {
		stopReconciler := service.NewReconciler(repos.Roadmaps, cfg.Reconciler.Backoff).Start()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := stopReconciler(sctx); err != nil {
				logger.Warn("reconciler stop", zap.Error(err))
			}
		}()
	}

	gin.SetMode(cfg.Server.Mode)
	router, err := api.NewRouter(cfg, h, provider)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

func newIdentityProvider(ctx context.Context, cfg config.AuthConfig, users repository.UserRepository) (identity.Provider, error) {
	if cfg.Provider == config.AuthProviderJWT {
		logger.Warn("using local JWT identity provider")
		return identity.NewJWTProvider(cfg.JWTSecret, users), nil
	}
	return identity.NewFirebaseProvider(ctx, cfg)
}
