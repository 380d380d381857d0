package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"user-service/internal/config"
	apphttp "user-service/internal/http"
	"user-service/internal/password"
	"user-service/internal/repository"
	"user-service/internal/repository/mongodb"
	"user-service/internal/repository/postgres"
	"user-service/internal/repository/sqlite"
	"user-service/internal/service"
	"user-service/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	configureLogger(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	userRepo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer closeRepo()

	if err := initRepository(ctx, userRepo, logger); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}

	hasher, err := password.New(password.Options{
		Scheme:     cfg.Auth.Hasher,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	if err != nil {
		logger.Fatalf("setup password hasher: %v", err)
	}
	userService := service.NewUserService(userRepo, hasher)

	storageSvc, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}
	exportService := service.NewExportService(userRepo, storageSvc, service.ExportConfig{
		Bucket:    cfg.Export.Bucket,
		KeyPrefix: cfg.Export.KeyPrefix,
		URLTTL:    cfg.Export.URLTTL,
	})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	handler := apphttp.NewHandler(userService, exportService, logger, cfg.Origins())
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) {
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

// openRepository connects the configured store and returns a func releasing it.
func openRepository(ctx context.Context, cfg config.Config, logger *logrus.Logger) (repository.UserRepository, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.Database.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Infof("using sqlite database %s", cfg.Database.Path)
		return sqlite.NewUserRepository(db), closer(db, logger), nil

	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using postgres database")
		return postgres.NewUserRepository(db), closer(db, logger), nil

	case config.DriverMongo:
		client, err := mongodb.Connect(ctx, cfg.Database.URI)
		if err != nil {
			return nil, nil, err
		}
		logger.Infof("using mongo collection %s.%s", cfg.Database.Name, cfg.Database.Collection)
		users := client.Database(cfg.Database.Name).Collection(cfg.Database.Collection)
		release := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				logger.Warnf("mongo disconnect: %v", err)
			}
		}
		return mongodb.NewUserRepository(users), release, nil
	}
	return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
}

// initRepository prepares the store. Stored duplicate emails block the unique
// index; the service still starts and relies on the lookup before insert.
func initRepository(ctx context.Context, repo repository.UserRepository, logger *logrus.Logger) error {
	err := repo.Init(ctx)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		logger.WithError(err).Warn("users collection holds duplicate emails, unique index not created; remove the duplicates and restart to enforce it")
		return nil
	}
	return err
}

func closer(c io.Closer, logger *logrus.Logger) func() {
	return func() {
		if err := c.Close(); err != nil {
			logger.Warnf("close database: %v", err)
		}
	}
}

// buildStorage returns nil when exports are not configured.
func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Export.Bucket == "" {
		logger.Info("export bucket not configured, user exports disabled")
		return nil, nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Export.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Export.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Export.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Export.Bucket, cfg.Export.Region)
	return storage.NewS3Service(client), nil
}
