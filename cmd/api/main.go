package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/catalogsync/internal/api"
	"github.com/timmy/catalogsync/internal/api/middleware"
	"github.com/timmy/catalogsync/internal/config"
	"github.com/timmy/catalogsync/internal/domain"
	"github.com/timmy/catalogsync/internal/ingest"
	"github.com/timmy/catalogsync/internal/logger"
	"github.com/timmy/catalogsync/internal/notify"
	"github.com/timmy/catalogsync/internal/repository"
	"github.com/timmy/catalogsync/internal/runner"
	"github.com/timmy/catalogsync/internal/storage"
	"golang.org/x/sync/errgroup"
)

func main() {
	appLogger := logger.NewFromEnv(logger.LoadFromEnv())
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to get database handle")
	}
	defer sqlDB.Close()

	uploads := repository.NewUploadRepository(db)
	products := repository.NewProductRepository(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	files, err := storage.NewFileStore(&cfg.Storage)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}
	if s3Store, ok := files.(*storage.S3Storage); ok {
		if err := s3Store.EnsureBucket(ctx); err != nil {
			appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
		}
	}

	hub := notify.NewHub(func(origin string) bool {
		return middleware.IsOriginAllowed(origin, cfg.Server.CORS)
	})
	notifiers := notify.Multi{notify.LogNotifier{}}
	var events http.Handler
	if cfg.Notify.WebSocket {
		notifiers = append(notifiers, hub)
		events = hub
	}
	if cfg.Notify.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.WebhookTimeout))
		appLogger.WithField("url", cfg.Notify.WebhookURL).Info("Webhook notifications enabled")
	}

	pipeline := ingest.NewPipeline(files, uploads, products, notifiers, ingest.Options{
		ChunkSize: cfg.Ingest.ChunkSize,
		Columns:   ingest.ColumnsFromMap(cfg.Ingest.Columns),
		Topic:     cfg.Notify.Topic,
		Event:     cfg.Notify.Event,

		NotifyQueueSize: cfg.Notify.QueueSize,
		NotifyTimeout:   cfg.Notify.PublishTimeout,
	})
	jobRunner := runner.New(pipeline.Run, runner.Config{
		Workers:     cfg.Ingest.Workers,
		QueueSize:   cfg.Ingest.QueueSize,
		Timeout:     cfg.Ingest.Timeout,
		MaxAttempts: cfg.Ingest.MaxAttempts,
	})
	maxBytes := cfg.Ingest.MaxUploadMB << 20
	uploader := ingest.NewUploader(files, uploads, cfg.Ingest.AllowedExtensions, maxBytes)

	requeueUnfinished(ctx, uploads, jobRunner, cfg.Ingest.QueueSize)

	router := api.SetupRouter(api.Dependencies{
		Registrar:      uploader,
		Queue:          jobRunner,
		Uploads:        uploads,
		DB:             sqlDB,
		Events:         events,
		MaxUploadBytes: maxBytes,
	}, cfg.Server)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return jobRunner.Start(groupCtx)
	})
	group.Go(func() error {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		appLogger.Info("Shutting down server...")
		hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	waitErr := group.Wait()

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelDrain()
	if err := pipeline.Close(drainCtx); err != nil {
		appLogger.WithError(err).Warn("Pending notifications dropped at shutdown")
	}

	if waitErr != nil {
		appLogger.WithError(waitErr).Error("Server stopped with error")
		os.Exit(1)
	}
	appLogger.Info("Server exited")
}

// requeueUnfinished queues jobs left pending or processing by a previous run.
func requeueUnfinished(ctx context.Context, uploads *repository.UploadRepository, queue *runner.Runner, limit int) {
	for _, status := range []domain.UploadStatus{domain.UploadStatusProcessing, domain.UploadStatusPending} {
		jobs, err := uploads.ListByStatus(ctx, status, limit)
		if err != nil {
			logger.GetDefault().WithError(err).Warn("Failed to list unfinished uploads")
			return
		}
		for _, job := range jobs {
			if err := queue.Enqueue(ctx, job.ID); err != nil {
				logger.GetDefault().WithField(logger.FieldUploadID, job.ID).WithError(err).Warn("Failed to requeue upload")
				return
			}
		}
		if len(jobs) > 0 {
			logger.With(logger.Fields{logger.FieldStatus: status, logger.FieldCount: len(jobs)}).Info(ctx, "Requeued unfinished uploads")
		}
	}
}
