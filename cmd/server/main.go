package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pilotos/fleetcore/internal"
	"github.com/pilotos/fleetcore/internal/chat"
	"github.com/pilotos/fleetcore/internal/handler"
	"github.com/pilotos/fleetcore/internal/metrics"
	"github.com/pilotos/fleetcore/internal/middleware"
	"github.com/pilotos/fleetcore/internal/notify"
	"github.com/pilotos/fleetcore/internal/ocr"
	ocrmock "github.com/pilotos/fleetcore/internal/ocr/mock"
	"github.com/pilotos/fleetcore/internal/ocr/tesseract"
	"github.com/pilotos/fleetcore/internal/repository"
	"github.com/pilotos/fleetcore/internal/service"
	"github.com/pilotos/fleetcore/internal/storage"
	"github.com/pilotos/fleetcore/internal/worker"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	repo := repository.New(db)

	// Initialize file storage
	files, err := newStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	logger.Info("Storage ready", "provider", cfg.StorageProvider)

	// Initialize OCR provider
	ocrProvider, err := newOCRProvider(cfg, files, logger)
	if err != nil {
		return fmt.Errorf("ocr initialization failed: %w", err)
	}
	logger.Info("OCR ready", "provider", cfg.OCRProvider, "threshold", cfg.OCRConfidenceThreshold)

	// Initialize outbound notifications
	sender, err := newSender(cfg, logger)
	if err != nil {
		return fmt.Errorf("notify initialization failed: %w", err)
	}
	notifier := notify.New(sender, cfg.NotifyRetryDelay, logger)

	// Initialize services
	gate := service.NewTaskGate(repo)
	evidenceService := service.NewEvidenceService(repo, gate, ocrProvider, cfg.OCRConfidenceThreshold, cfg.EvidenceMaxReplacements, logger)
	reportService := service.NewReportService(repo, gate, evidenceService, logger)
	anomalyService := service.NewAnomalyService(repo, notifier, cfg.AnomalyNotifyThreshold, logger)
	maintenanceService := service.NewMaintenanceService(repo, notifier, service.LookaheadConfig{
		Km:   cfg.MaintenanceLookaheadKm,
		Days: cfg.MaintenanceLookaheadDays,
	}, logger)
	incidentService := service.NewIncidentService(repo, notifier, logger)
	personService := service.NewPersonService(repo, logger)
	vehicleService := service.NewVehicleService(repo, logger)
	expenseService := service.NewExpenseService(repo, logger)
	taskService := service.NewTaskService(repo, logger)
	exportService := service.NewExportService(repo, files, logger)
	thumbnails := service.NewImagingProcessor()

	// Initialize handlers
	reportHandler := handler.NewReportHandler(reportService, evidenceService, logger)
	evidenceHandler := handler.NewEvidenceHandler(evidenceService, files, thumbnails, logger)
	taskHandler := handler.NewTaskHandler(taskService, logger)
	anomalyHandler := handler.NewAnomalyHandler(anomalyService, logger)
	maintenanceHandler := handler.NewMaintenanceHandler(maintenanceService, logger)
	incidentHandler := handler.NewIncidentHandler(incidentService, logger)
	personHandler := handler.NewPersonHandler(personService, logger)
	vehicleHandler := handler.NewVehicleHandler(vehicleService, expenseService, exportService, logger)
	healthHandler := handler.NewHealthHandler(db, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	reportHandler.RegisterRoutes(mux)
	evidenceHandler.RegisterRoutes(mux)
	taskHandler.RegisterRoutes(mux)
	anomalyHandler.RegisterRoutes(mux)
	maintenanceHandler.RegisterRoutes(mux)
	incidentHandler.RegisterRoutes(mux)
	personHandler.RegisterRoutes(mux)
	vehicleHandler.RegisterRoutes(mux)
	healthHandler.RegisterRoutes(mux)

	// Local storage serves photos directly; R2 hands out presigned URLs
	if cfg.StorageProvider == "local" {
		handler.NewFileHandler(files, logger).RegisterRoutes(mux)
	}

	// Metrics endpoint, optionally behind basic auth
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	requestLogging := middleware.NewRequestLoggingMiddleware(logger)
	root := requestLogging.Handler(metrics.Middleware(mux))

	// ==========================================================================
	// Background workers
	// ==========================================================================

	var sweeper *worker.Sweeper
	if cfg.SweepEnabled {
		sweepConfig := worker.DefaultConfig()
		sweepConfig.Interval = cfg.SweepInterval
		sweeper, err = worker.New(maintenanceService, sweepConfig, logger)
		if err != nil {
			return fmt.Errorf("sweeper initialization failed: %w", err)
		}
		sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	var bot *chat.Bot
	if cfg.ChatEnabled {
		bot, err = chat.New(chat.Config{Token: cfg.TelegramBotToken}, personService, taskService, evidenceService, files, logger)
		if err != nil {
			return fmt.Errorf("chat initialization failed: %w", err)
		}
		bot.Start(ctx)
		defer bot.Stop()
	}

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: root,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newStorage builds the file storage backend selected by configuration.
func newStorage(cfg *internal.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageProvider {
	case "r2":
		return storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		}, logger)
	default:
		return storage.NewLocalStorage(storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		}, logger)
	}
}

// newOCRProvider builds the OCR provider selected by configuration.
func newOCRProvider(cfg *internal.Config, files storage.Storage, logger *slog.Logger) (ocr.Provider, error) {
	switch cfg.OCRProvider {
	case "tesseract":
		return tesseract.New(tesseract.Config{
			Endpoint:       cfg.OCRBaseURL,
			RequestTimeout: cfg.OCRRequestTimeout,
		}, storageOpener{files}, logger)
	default:
		return ocrmock.New(logger), nil
	}
}

// newSender builds the outbound message sender selected by configuration.
func newSender(cfg *internal.Config, logger *slog.Logger) (notify.Sender, error) {
	switch cfg.NotifyProvider {
	case "whatsapp":
		return notify.NewWhatsAppSender(notify.WhatsAppConfig{
			Token:         cfg.WhatsAppToken,
			PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		}, logger)
	default:
		return notify.NewMockSender(logger), nil
	}
}

// storageOpener adapts storage.Storage to the narrower read interface the
// Tesseract provider wants.
type storageOpener struct {
	files storage.Storage
}

func (o storageOpener) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, _, err := o.files.Get(ctx, key)
	return rc, err
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
