package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"filevault/internal/auth"
	"filevault/internal/config"
	"filevault/internal/database"
	"filevault/internal/handler"
	"filevault/internal/logging"
	"filevault/internal/ratelimit"
	"filevault/internal/repository"
	"filevault/internal/security"
	"filevault/internal/service"
	"filevault/internal/service/gcs"
	"filevault/internal/service/s3"
)

const rateLimitCleanupInterval = 5 * time.Minute

func newObjectStore(ctx context.Context, cfg config.BlobConfig) (service.ObjectStore, func(), error) {
	switch cfg.Provider {
	case "s3":
		client, err := s3.NewClient(ctx, cfg.S3, cfg.URLTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		return client, func() {}, nil
	case "gcs":
		store := gcs.NewStore(ctx, cfg.GCS, cfg.URLTTL)
		return store, func() { store.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}

func newRateLimitStore(cfg config.RateLimitConfig, db *sqlx.DB) ratelimit.Store {
	if cfg.Store == "sql" {
		return ratelimit.NewSQLStore(db)
	}
	return ratelimit.NewMemoryStore()
}

func main() {
	configPath := flag.String("config", ".app.env", "path to config file")
	flag.Parse()

	// Загружаем конфигурацию
	appConfig, err := config.NewConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logging.Init(appConfig.Log.Level, appConfig.Log.Development); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Подключаемся к базе данных
	db, err := database.Connect(ctx, appConfig.Database, 5, 5*time.Second)
	if err != nil {
		logging.L().Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logging.L().Fatal("failed to run migrations", zap.Error(err))
	}

	store, closeStore, err := newObjectStore(ctx, appConfig.Blob)
	if err != nil {
		logging.L().Fatal("failed to init object store", zap.Error(err))
	}
	defer closeStore()

	// Инициализация репозиториев
	folderRepo := repository.NewFolderRepository(db)
	fileRepo := repository.NewFileRepository(db)
	shareRepo := repository.NewShareRepository(db)
	usageRepo := repository.NewUsageRepository(db)

	// Инициализация сервисов
	folderService := service.NewFolderService(folderRepo)
	fileService := service.NewFileService(fileRepo, folderRepo)
	shareService := service.NewShareService(shareRepo, security.NewPasswordHasher(appConfig.Security.BcryptCost))
	usageService := service.NewUsageService(usageRepo)
	permissionService := service.NewPermissionService(folderService, fileService, shareService, store)

	verifier := auth.NewVerifier(appConfig.Auth)

	limitStore := newRateLimitStore(appConfig.RateLimit, db)
	apiLimiter := ratelimit.New(limitStore, "api", appConfig.RateLimit.API, ratelimit.MessageAPI)
	shareLimiter := ratelimit.New(limitStore, "share", appConfig.RateLimit.Share, ratelimit.MessageShare)

	router := handler.NewRouter(handler.Handlers{
		Folders: handler.NewFolderHandler(permissionService),
		Files:   handler.NewFileHandler(permissionService),
		Shares:  handler.NewShareHandler(permissionService),
		Usage:   handler.NewUsageHandler(usageService),
		CSRF:    handler.NewCSRFHandler(appConfig.Security.CSRFEnabled, !appConfig.Log.Development),
		Health:  handler.NewHealthHandler(db),
	}, handler.RouterOptions{
		AllowedOrigins: appConfig.Server.AllowedOrigins,
		RequestTimeout: appConfig.Server.RequestTimeout,
		Authenticate:   verifier.Middleware,
		APILimit:       apiLimiter.Middleware,
		ShareLimit:     shareLimiter.Middleware,
	})

	// gRPC сервер отдает только состояние сервиса
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%s", appConfig.Server.GRPCPort))
		if err != nil {
			logging.L().Fatal("failed to listen for gRPC", zap.Error(err))
		}
		logging.Info("starting gRPC server", zap.String("port", appConfig.Server.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			logging.Error("gRPC server stopped", zap.Error(err))
		}
	}()

	go func() {
		logging.Info("starting HTTP server", zap.String("port", appConfig.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.L().Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	// Очистка истекших окон ограничителя
	cleanupTicker := time.NewTicker(rateLimitCleanupInterval)
	go func() {
		defer cleanupTicker.Stop()
		for {
			select {
			case <-cleanupTicker.C:
				if err := limitStore.Cleanup(ctx); err != nil {
					logging.Warn("rate limit cleanup failed", zap.Error(err))
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logging.Info("shutting down servers")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	grpcServer.GracefulStop()

	logging.Info("server exited properly")
}
