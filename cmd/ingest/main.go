package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/catalogsync/internal/config"
	"github.com/timmy/catalogsync/internal/ingest"
	"github.com/timmy/catalogsync/internal/logger"
	"github.com/timmy/catalogsync/internal/notify"
	"github.com/timmy/catalogsync/internal/repository"
	"github.com/timmy/catalogsync/internal/storage"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "catalogsync-ingest",
	})
	logger.SetDefaultLogger(appLogger)

	jobID := flag.String("job", "", "ID of an existing upload to process")
	filePath := flag.String("file", "", "Local file to register as a new upload and process")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if (*jobID == "") == (*filePath == "") {
		appLogger.Fatal("Exactly one of -job or -file is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	uploads := repository.NewUploadRepository(db)
	products := repository.NewProductRepository(db)

	files, err := storage.NewFileStore(&cfg.Storage)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	notifiers := notify.Multi{notify.LogNotifier{}}
	if cfg.Notify.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.WebhookTimeout))
	}

	if *filePath != "" {
		id, err := registerLocalFile(ctx, *filePath, files, uploads, cfg)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to register file")
		}
		*jobID = id
	}

	pipeline := ingest.NewPipeline(files, uploads, products, notifiers, ingest.Options{
		ChunkSize: cfg.Ingest.ChunkSize,
		Columns:   ingest.ColumnsFromMap(cfg.Ingest.Columns),
		Topic:     cfg.Notify.Topic,
		Event:     cfg.Notify.Event,

		NotifyQueueSize: cfg.Notify.QueueSize,
		NotifyTimeout:   cfg.Notify.PublishTimeout,
	})

	runCtx := ctx
	if cfg.Ingest.Timeout > 0 {
		var cancelRun context.CancelFunc
		runCtx, cancelRun = context.WithTimeout(ctx, cfg.Ingest.Timeout)
		defer cancelRun()
	}
	runErr := pipeline.Run(runCtx, *jobID)

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.Notify.PublishTimeout)
	defer cancelDrain()
	if err := pipeline.Close(drainCtx); err != nil {
		appLogger.WithError(err).Warn("Pending notifications dropped")
	}
	if runErr != nil {
		appLogger.WithError(runErr).Fatal("Ingestion failed")
	}

	job, err := uploads.Load(context.Background(), *jobID)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load upload")
	}
	fields := logger.Fields{
		logger.FieldUploadID:  job.ID,
		logger.FieldStatus:    job.Status,
		logger.FieldProcessed: job.ProcessedRecords,
		logger.FieldFailed:    job.FailedRecords,
	}
	if job.TotalRecords != nil {
		fields["total"] = *job.TotalRecords
	}
	if job.ErrorMessage != nil {
		fields["error_message"] = *job.ErrorMessage
	}
	appLogger.WithFields(fields).Info("Ingestion finished")
}

func registerLocalFile(ctx context.Context, path string, files storage.FileStore, uploads *repository.UploadRepository, cfg *config.Config) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	uploader := ingest.NewUploader(files, uploads, cfg.Ingest.AllowedExtensions, cfg.Ingest.MaxUploadMB<<20)
	job, err := uploader.Register(ctx, info.Name(), info.Size(), f)
	if err != nil {
		return "", err
	}
	return job.ID, nil
}
