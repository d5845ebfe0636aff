package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"neighborfit/server/config"
	"neighborfit/server/internal/api"
	"neighborfit/server/internal/bootstrap"
	"neighborfit/server/internal/geocoding"
	"neighborfit/server/internal/neighborhood"
	"neighborfit/server/internal/processor"
	"neighborfit/server/internal/queue"
	"neighborfit/server/internal/scheduler"
	"neighborfit/server/internal/seed"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		// No configured logger yet
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := cfg.NewLogger()
	logger.SetOutput(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeStore, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open neighborhood store")
	}
	defer closeStore()

	service := neighborhood.NewService(repo, logger)

	if cfg.Database.SeedOnStart {
		items, err := seed.Samples()
		if err != nil {
			logger.WithError(err).Fatal("Failed to load sample neighborhoods")
		}
		result, err := seed.Run(ctx, service, items, logger)
		if err != nil {
			logger.WithError(err).Error("Failed to seed sample neighborhoods")
		} else {
			logger.WithField("created", result.Created).WithField("skipped", result.Skipped).Info("Seeded sample neighborhoods")
		}
	}

	geocoder := geocoding.NewGeocoder(logger, geocoding.Options{
		BaseURL:  cfg.Geocoding.BaseURL,
		CacheDir: cfg.Geocoding.CacheDir,
		Interval: cfg.Geocoding.Interval,
	})
	if cfg.Geocoding.OnStart {
		go func() {
			logger.Info("Starting initial geocoding of neighborhoods without coordinates...")
			if _, err := service.FillMissingCoordinates(ctx, geocoder); err != nil {
				logger.WithError(err).Error("Failed to update coordinates")
			}
		}()
	}

	// Bulk import pipeline
	importQueue := queue.NewImportQueue(cfg.BatchProcessing.QueueSize, logger)
	batchProcessor := processor.NewBatchProcessor(service, importQueue, cfg, logger)
	batchProcessor.Start()

	reports := scheduler.NewScheduler(service, cfg.Scheduler.StatsReportCron, logger)
	if err := reports.Start(); err != nil {
		logger.WithError(err).Fatal("Failed to start statistics scheduler")
	}

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(service, repo, importQueue, api.Options{
		SearchLimit:   cfg.Search.DefaultLimit,
		MaxImportSize: cfg.BatchProcessing.MaxBatchSize,
		Locator:       geocoder,
	}, logger)
	router := api.NewRouter(handler, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Infof("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shut down")
	}

	reports.Stop()
	batchProcessor.Stop()
	logger.Info("Server stopped")
}
