package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/docrender/internal/app"
	"github.com/odyssey-erp/docrender/internal/downloads"
	printhttp "github.com/odyssey-erp/docrender/internal/printing/http"
	"github.com/odyssey-erp/docrender/jobs"
	"github.com/odyssey-erp/docrender/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	services, err := app.NewServices(ctx, cfg, logger)
	if err != nil {
		logger.Error("init services", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := services.Close(); err != nil {
			logger.Warn("close services", slog.Any("error", err))
		}
	}()

	redisOpts := cfg.QueueRedis()
	printConfig := printhttp.Config{
		Renderer:      services.Printing,
		Logger:        logger,
		Timeout:       cfg.AppRequestTimeout,
		RatePerMinute: cfg.RateLimitPerMin,
	}
	if cfg.DownloadSecret == "" {
		logger.Warn("DOWNLOAD_SECRET not set, asynchronous exports disabled")
	} else {
		exports, err := jobs.NewExports(cfg.ExportDir)
		if err != nil {
			logger.Error("init export dir", slog.Any("error", err))
			os.Exit(1)
		}
		queue, err := jobs.NewClient(redisOpts)
		if err != nil {
			logger.Error("init job client", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := queue.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		printConfig.Queue = queue
		printConfig.Exports = exports
		printConfig.Signer = downloads.NewSigner(cfg.DownloadSecret, cfg.DownloadTTL)
	}

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		Metrics:       services.Metrics,
		Database:      services.Store,
		PrintHandler:  printhttp.NewHandler(printConfig),
		ReportHandler: report.NewHandler(services.Report, logger),
		JobHandler:    jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
