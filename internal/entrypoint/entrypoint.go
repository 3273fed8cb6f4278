package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/config"
	http_controllers "github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/http"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/importers"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/scheduler"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/tasks"
)

const browserSessionCleanupInterval = 5 * time.Minute

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT or SIGTERM, then shuts it down.
func Serve(router *gin.Engine, cfg *config.Config, logger *zap.Logger, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case sig := <-quit:
		logger.Info("shutting down server", zap.String("signal", sig.String()), zap.Duration("timeout", timeout))
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Background work stops before the listener.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server exiting")
	return nil
}

// Run wires every component from cfg and serves until interrupted.
func Run(cfg *config.Config, version string, logger *zap.Logger) error {
	logger.Info("starting card import service", zap.String("version", version))

	storage, err := OpenStorage(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := storage.Close(); err != nil {
			logger.Error("error closing database", zap.Error(err))
		}
	}()

	orchestrator, err := NewPipeline(cfg, logger,
		importers.WithAuditor(storage.Audit),
		importers.WithCardSaver(storage.Cards),
		importers.WithNotifier(importers.NewLogNotifier(logger.Named("notify"))),
	)
	if err != nil {
		return err
	}
	sessions := importers.NewStore()

	bgCtx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	sweeper := scheduler.NewSessionSweepScheduler(sessions, cfg.Import.SessionTTL, cfg.Import.SweepSchedule, logger)
	if err := sweeper.Start(bgCtx); err != nil {
		return fmt.Errorf("failed to start session sweep: %w", err)
	}

	// taskQueue stays a nil interface when tasks are disabled.
	var taskClient *tasks.Client
	var taskQueue http_controllers.TaskQueue
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks), logger)
		if err != nil {
			return fmt.Errorf("failed to initialize task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				logger.Error("error closing task client", zap.Error(err))
			}
		}()

		taskClient.Register(
			tasks.NewProcessImportFileQueue(sessions, orchestrator, logger),
			tasks.NewCleanupAuditEventsQueue(storage.Audit, logger),
		)
		go taskClient.Start(bgCtx)

		if _, err := taskClient.Enqueue(bgCtx, tasks.CleanupAuditEventsTask{RetentionDays: cfg.Audit.RetentionDays}); err != nil {
			logger.Warn("failed to schedule audit cleanup", zap.Error(err))
		}
		taskQueue = taskClient
	}

	sqlDB, err := storage.DB.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get SQL DB for sessions: %w", err)
	}
	browser, err := http_controllers.NewBrowserSessions(sqlDB, cfg.Session, browserSessionCleanupInterval)
	if err != nil {
		return fmt.Errorf("failed to initialize browser sessions: %w", err)
	}
	defer browser.Close()

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Sessions:        sessions,
		Orchestrator:    orchestrator,
		DefaultCategory: DefaultCategory(cfg),
		MaxFileSize:     cfg.Import.MaxFileSize,
		Cards:           storage.Cards,
		Audit:           storage.Audit,
		TaskQueue:       taskQueue,
		BrowserSessions: browser,
		Database:        sqlDB,
		Version:         version,
		Logger:          logger.Named("http"),
	})

	onShutdown := func(ctx context.Context) {
		sweeper.Stop()
		if taskClient != nil {
			taskClient.Stop(ctx)
		}
		cancelBackground()
	}

	return Serve(router, cfg, logger, onShutdown)
}
