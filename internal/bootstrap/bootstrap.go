package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirillkom/kyc-validator/internal/config"
	"github.com/kirillkom/kyc-validator/internal/core/kyc"
	"github.com/kirillkom/kyc-validator/internal/core/ports"
	"github.com/kirillkom/kyc-validator/internal/core/usecase"
	"github.com/kirillkom/kyc-validator/internal/infrastructure/extractor"
	"github.com/kirillkom/kyc-validator/internal/infrastructure/extractor/ocr"
	"github.com/kirillkom/kyc-validator/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/kyc-validator/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/kyc-validator/internal/infrastructure/queue/nats"
	"github.com/kirillkom/kyc-validator/internal/infrastructure/report/xlsx"
	"github.com/kirillkom/kyc-validator/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/kyc-validator/internal/infrastructure/resilience"
	"github.com/kirillkom/kyc-validator/internal/infrastructure/storage/localfs"
)

// Observer receives verdict, retry and breaker events. Both the API and the
// worker metrics satisfy it.
type Observer interface {
	ports.VerdictObserver
	resilience.Observer
}

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     ports.MessageQueue
	Documents ports.DocumentReader

	IngestUC     ports.DocumentIngestor
	ProcessUC    ports.DocumentProcessor
	ComplianceUC ports.ComplianceChecker
	ReportUC     ports.ReportExporter
	BatchUC      ports.BatchValidator

	queue   *nats.Queue
	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, observer Observer) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	kycRules, err := config.LoadRules(cfg.RulesPath, cfg.StrictMode)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	executorOpts := []resilience.Option{resilience.WithLogger(logger)}
	if observer != nil {
		executorOpts = append(executorOpts, resilience.WithObserver(observer))
	}
	executor := resilience.NewExecutor(cfg.Resilience, executorOpts...)

	db, err := postgres.OpenDB(ctx, cfg.PostgresDSN, executor)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	docRepo := postgres.NewDocumentRepository(db)
	complianceRepo := postgres.NewComplianceRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	validator := kyc.NewDocumentValidator(kycRules, nil)
	engine := kyc.NewComplianceEngine(kycRules)

	// Only the worker metrics count OCR fallbacks.
	fallbacks, _ := observer.(extractor.FallbackObserver)
	textExtractor := NewTextExtractor(cfg, storage, logger, fallbacks)

	ingestUC := usecase.NewIngestDocumentUseCase(docRepo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(docRepo, storage, textExtractor, validator)
	complianceUC := usecase.NewComplianceUseCase(docRepo, complianceRepo, engine)
	reportUC := usecase.NewReportUseCase(docRepo, engine, xlsx.NewWriter())
	batchUC := usecase.NewBatchUseCase(kycRules, cfg.ValidateConcurrency, cfg.ValidateMaxDocuments)
	if observer != nil {
		processUC.WithObserver(observer)
		complianceUC.WithObserver(observer)
		batchUC.WithObserver(observer)
	}

	logger.Info("bootstrap_ready",
		"strict_mode", kycRules.StrictMode(),
		"ocr_enabled", cfg.OCREnabled,
		"nats_subject", cfg.NATSSubject,
	)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:     queue,
		Documents: docRepo,

		IngestUC:     ingestUC,
		ProcessUC:    processUC,
		ComplianceUC: complianceUC,
		ReportUC:     reportUC,
		BatchUC:      batchUC,

		queue: queue,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// NewTextExtractor routes documents to the plain text, PDF text-layer and
// OCR extractors. OCR is left out when cfg.OCREnabled is false. fallbacks may
// be nil.
func NewTextExtractor(cfg config.Config, storage ports.ObjectStorage, logger *slog.Logger, fallbacks extractor.FallbackObserver) ports.TextExtractor {
	opts := extractor.RouterOptions{
		Plain:          plaintext.NewExtractor(storage),
		PDF:            pdftext.NewExtractor(storage),
		MinNativeChars: cfg.OCRMinNativeChars,
		Fallbacks:      fallbacks,
		Logger:         logger,
	}
	if cfg.OCREnabled {
		opts.OCR = ocr.NewExtractor(storage, ocr.ExecRunner{}, ocr.Config{
			Tesseract: cfg.TesseractBin,
			Pdftoppm:  cfg.PdftoppmBin,
			Lang:      cfg.TesseractLang,
			DPI:       cfg.OCRDPI,
			MaxPages:  cfg.OCRMaxPages,
			Timeout:   cfg.OCRTimeout,
		})
	}
	return extractor.NewRouter(opts)
}

// Ready reports whether the message queue connection is usable.
func (a *App) Ready(context.Context) error {
	if a.queue != nil && !a.queue.Healthy() {
		return errors.New("nats connection is not available")
	}
	return nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
