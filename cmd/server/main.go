package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/epharmacy/internal/config"
	"github.com/mamadbah2/epharmacy/internal/metrics"
	"github.com/mamadbah2/epharmacy/internal/repository/mongodb"
	"github.com/mamadbah2/epharmacy/internal/repository/sheets"
	"github.com/mamadbah2/epharmacy/internal/scheduler"
	"github.com/mamadbah2/epharmacy/internal/server/handlers"
	"github.com/mamadbah2/epharmacy/internal/server/router"
	"github.com/mamadbah2/epharmacy/internal/service/expiry"
	"github.com/mamadbah2/epharmacy/internal/service/matcher"
	"github.com/mamadbah2/epharmacy/internal/service/notify"
	"github.com/mamadbah2/epharmacy/internal/service/prescriptions"
	"github.com/mamadbah2/epharmacy/internal/service/reporting"
	"github.com/mamadbah2/epharmacy/internal/service/scan"
	"github.com/mamadbah2/epharmacy/internal/service/stock"
	"github.com/mamadbah2/epharmacy/pkg/clients/cloudinary"
	"github.com/mamadbah2/epharmacy/pkg/clients/mail"
	"github.com/mamadbah2/epharmacy/pkg/clients/tesseract"
	whatsappclient "github.com/mamadbah2/epharmacy/pkg/clients/whatsapp"
	"github.com/mamadbah2/epharmacy/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(logger.Options{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding}))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)
	metrics.Register()

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancelConnect()

	mongoRepo, err := mongodb.NewRepository(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName, baseLogger.Named("repo.mongodb"))
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()
	if err := mongoRepo.EnsureIndexes(connectCtx); err != nil {
		baseLogger.Warn("failed to ensure mongodb indexes", zap.Error(err))
	}

	var reportSheet sheets.Repository
	if cfg.Sheets.Enabled() {
		sheetRepo, err := sheets.NewGoogleSheetRepository(connectCtx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		reportSheet = sheetRepo
	} else {
		baseLogger.Warn("google sheets not configured, weekly report export disabled")
	}

	var whatsClient whatsappclient.Client
	if cfg.WhatsApp.Enabled() {
		whatsClient = whatsappclient.NewClient(cfg.WhatsApp)
		baseLogger.Info("whatsapp notification channel enabled")
	} else {
		baseLogger.Warn("whatsapp credentials missing, expiry alerts go by email only")
	}

	matcherSvc := matcher.NewService(mongoRepo, baseLogger.Named("svc.matcher"))

	normalizer, err := scan.NewNormalizer(scan.NormalizerOptions{Threshold: cfg.Scan.Threshold, KernelSize: cfg.Scan.KernelSize})
	if err != nil {
		baseLogger.Fatal("invalid normalizer configuration", zap.Error(err))
	}
	extractor := scan.NewExtractor(tesseract.NewEngine(), cfg.Scan.Language, cfg.Scan.PageSegMode)
	scanSvc := scan.NewService(
		normalizer,
		extractor,
		cloudinary.NewClient(cfg.Storage),
		matcherSvc,
		scan.NewPool(cfg.Scan.Workers),
		scan.Options{
			OriginalFolder:  cfg.Storage.OriginalFolder,
			ProcessedFolder: cfg.Storage.ProcessedFolder,
			DefaultTimeout:  cfg.Scan.DefaultTimeout,
		},
		baseLogger.Named("svc.scan"),
	)

	resolver := stock.NewResolver(mongoRepo, matcherSvc, baseLogger.Named("svc.resolver"))
	ledger := stock.NewLedger(mongoRepo, baseLogger.Named("svc.ledger"))
	prescriptionSvc := prescriptions.NewService(mongoRepo, baseLogger.Named("svc.prescriptions"))
	reportingSvc := reporting.NewService(mongoRepo, mongoRepo, reportSheet, cfg.Reporting.TopN, baseLogger.Named("svc.reporting"))

	dispatcher := notify.NewDispatcher(mail.NewClient(cfg.Mail), whatsClient, baseLogger.Named("svc.notify"))
	horizon := time.Duration(cfg.Sweep.HorizonDays) * 24 * time.Hour
	sweeper := expiry.NewSweeper(mongoRepo, dispatcher, horizon, baseLogger.Named("svc.expiry"))

	engine := router.New(router.Handlers{
		Scan:         handlers.NewScanHandler(scanSvc, cfg.Scan.MaxUploadBytes, cfg.Scan.MaxTimeout, baseLogger.Named("handlers.scan")),
		Prescription: handlers.NewPrescriptionHandler(prescriptionSvc, reportingSvc, baseLogger.Named("handlers.prescriptions")),
		Pharmacy:     handlers.NewPharmacyHandler(matcherSvc, resolver, ledger, sweeper, baseLogger.Named("handlers.pharmacy")),
	}, mongoRepo, baseLogger.Named("router"))

	var exporter scheduler.ReportExporter
	if reportSheet != nil {
		exporter = reportingSvc
	}
	sched, err := scheduler.NewScheduler(*cfg, sweeper, exporter, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Scan.MaxTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
