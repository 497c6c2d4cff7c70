package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"receiptvault/internal/api"
	"receiptvault/internal/auth"
	"receiptvault/internal/config"
	"receiptvault/internal/report"
	"receiptvault/internal/repository"
	"receiptvault/internal/stats"
	"receiptvault/internal/storage"
	"receiptvault/pkg/database"
	"receiptvault/pkg/logger"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting receipt vault",
		zap.Int("port", cfg.Server.Port),
		zap.String("database", cfg.Database.Path))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, log)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	imageStore, err := storage.NewImageStore(cfg.Storage.ImagesDir, log)
	if err != nil {
		log.Fatal("Failed to initialize image store", zap.Error(err))
	}

	userRepo := repository.NewUserRepository(db.DB, log)
	receiptRepo := repository.NewReceiptRepository(db.DB, log)
	authService := auth.NewService(userRepo, log)

	resolver := report.NewImageResolver(imageStore, log)
	layout := report.NewPageLayoutEngine()
	composer := report.NewComposer(receiptRepo, resolver, layout, cfg.Report.RenderWorkers, log)
	serializer, err := report.NewDocumentSerializer(cfg.Storage.ReportsDir, log)
	if err != nil {
		log.Fatal("Failed to initialize report serializer", zap.Error(err))
	}

	handlers := api.NewHandlers(
		authService,
		receiptRepo,
		imageStore,
		composer,
		serializer,
		stats.NewExporter(log),
		log,
	)

	server := api.NewServer(api.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		log.Fatal("HTTP server failed", zap.Error(err))
	}

	log.Info("Server exited successfully")
}
