package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"memorial-service/internal/auth"
	"memorial-service/internal/classmate"
	"memorial-service/internal/comment"
	"memorial-service/internal/config"
	"memorial-service/internal/db"
	"memorial-service/internal/events"
	"memorial-service/internal/health"
	"memorial-service/internal/message"
	"memorial-service/internal/middleware"
	"memorial-service/internal/province"
	"memorial-service/internal/telemetry"
	"memorial-service/internal/upload"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const healthCheckInterval = 15 * time.Second

type App struct {
	config     *config.Config
	logger     *slog.Logger
	db         *bun.DB
	telemetry  *telemetry.Telemetry
	notifier   *events.Notifier
	checker    *health.Checker
	router     chi.Router
	server     *http.Server
	grpcServer *grpc.Server
	closers    []func() error

	shutdownOnce sync.Once
	shutdownErr  error
}

// Migrations lists the schema in dependency order.
func Migrations() []db.Migration {
	return []db.Migration{
		province.Migration(),
		classmate.Migration(),
		message.Migration(),
		comment.Migration(),
		auth.Migration(),
	}
}

// New connects to the database and builds the application.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	database, err := db.New(cfg.Database)
	if err != nil {
		return nil, err
	}

	a, err := NewWithDB(ctx, cfg, logger, database)
	if err != nil {
		db.Close(database)
		return nil, err
	}
	return a, nil
}

// NewWithDB builds the application on an existing connection. The App owns
// database afterwards and closes it on Shutdown.
func NewWithDB(ctx context.Context, cfg *config.Config, logger *slog.Logger, database *bun.DB) (*App, error) {
	logger.Info("initializing application", "env", cfg.Env)

	a := &App{
		config: cfg,
		logger: logger,
		db:     database,
	}

	tel, err := telemetry.Init(ctx, cfg.Telemetry.Enabled, cfg.Telemetry.OTLPEndpoint, ServiceName, Version, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.telemetry = tel
	m := tel.Metrics

	if err := m.Database.RegisterDB(database.DB, otel.Meter(ServiceName)); err != nil {
		logger.Warn("failed to register connection pool metrics", "error", err)
	}

	if err := db.RunMigrations(ctx, database, Migrations()...); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	a.checker = health.NewChecker(m.Health, logger)
	a.checker.Add("postgres", func(ctx context.Context) error {
		return db.Ping(ctx, database)
	})

	store, err := newImageStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize image store: %w", err)
	}
	uploader := upload.NewUploader(store)
	logger.Info("image store initialized", "driver", cfg.Storage.Driver)

	publisher, err := events.New(cfg.Events, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize events publisher: %w", err)
	}
	a.notifier = events.NewNotifier(publisher, logger)
	logger.Info("events publisher initialized", "driver", cfg.Events.Driver)

	revoker, err := a.newRevoker(ctx, cfg.Auth)
	if err != nil {
		a.notifier.Close()
		return nil, fmt.Errorf("failed to initialize token revoker: %w", err)
	}

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	authService := auth.NewService(auth.NewRepository(database, m), tokens, revoker, m)
	requireAdmin := auth.RequireAdmin(authService, logger)

	provinceService := province.NewService(province.NewRepository(database, m))
	classmateService := classmate.NewService(classmate.NewRepository(database, m), provinceService, uploader, logger)
	commentService := comment.NewService(comment.NewRepository(database, m), a.notifier, m)
	messageService := message.NewService(message.NewRepository(database, m), commentService, a.notifier, m)

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.RequestLogger(logger))
	router.Use(chimw.Recoverer)
	router.Use(middleware.CORS(cfg.Server.CORSOrigins))

	health.NewHandler(a.checker).RegisterRoutes(router)
	upload.NewHandler(uploader, logger).RegisterRoutes(router)

	router.Route(basePath(cfg.Server.BasePath), func(r chi.Router) {
		province.NewHandler(provinceService, logger).RegisterRoutes(r, requireAdmin)
		classmate.NewHandler(classmateService, logger).RegisterRoutes(r, requireAdmin)
		message.NewHandler(messageService, logger).RegisterRoutes(r, requireAdmin)
		comment.NewHandler(commentService, logger).RegisterRoutes(r, requireAdmin)
		auth.NewHandler(authService, logger).RegisterRoutes(r, requireAdmin)
	})
	a.router = router

	if cfg.Server.GrpcPort != "" {
		a.grpcServer, _ = health.NewGRPCServer(a.checker)
	}

	logger.Info("application initialized successfully")
	return a, nil
}

func (a *App) Handler() http.Handler {
	return a.router
}

// Run serves HTTP (and gRPC health when configured) until ctx is cancelled or
// a server fails.
func (a *App) Run(ctx context.Context) error {
	a.server = &http.Server{
		Addr:         ":" + a.config.Server.Port,
		Handler:      a.router,
		ReadTimeout:  seconds(a.config.Server.ReadTimeout),
		WriteTimeout: seconds(a.config.Server.WriteTimeout),
		IdleTimeout:  seconds(a.config.Server.IdleTimeout),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("server starting", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if a.grpcServer != nil {
		lis, err := net.Listen("tcp", ":"+a.config.Server.GrpcPort)
		if err != nil {
			return fmt.Errorf("failed to listen on gRPC port: %w", err)
		}
		g.Go(func() error {
			a.logger.Info("gRPC health server starting", "port", a.config.Server.GrpcPort)
			if err := a.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		a.checker.Start(ctx, healthCheckInterval)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown stops the servers and releases every client the App opened. Only
// the first call has an effect.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownOnce.Do(func() {
		a.shutdownErr = a.shutdown(ctx)
	})
	return a.shutdownErr
}

func (a *App) shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if a.grpcServer != nil {
		a.grpcServer.GracefulStop()
	}
	if err := a.notifier.Close(); err != nil {
		errs = append(errs, fmt.Errorf("events close: %w", err))
	}
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.telemetry.Shutdown(ctx, a.logger); err != nil {
		errs = append(errs, err)
	}
	db.Close(a.db)

	return errors.Join(errs...)
}

func (a *App) newRevoker(ctx context.Context, cfg config.AuthConfig) (auth.Revoker, error) {
	if cfg.Revoker != "redis" {
		return auth.NewMemoryRevoker(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	revoker := auth.NewRedisRevoker(client, time.Duration(cfg.TokenTTLHours)*time.Hour)
	a.closers = append(a.closers, revoker.Close)
	a.checker.Add("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	return revoker, nil
}

func newImageStore(ctx context.Context, cfg config.StorageConfig) (upload.Store, error) {
	switch cfg.Driver {
	case "minio":
		return upload.NewMinioStore(ctx, cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, cfg.MinIO.Bucket, cfg.MinIO.UseSSL)
	default:
		return upload.NewDiskStore(cfg.Dir)
	}
}

func basePath(p string) string {
	return "/" + strings.Trim(p, "/")
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
