package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(requestLogger(logger))
	router.Use(gin.Recovery())
	router.Use(securityHeaders())

	if cfg.BrowserSessions != nil {
		router.Use(cfg.BrowserSessions.LoadSave())
	}

	if cfg.MaxFileSize > 0 {
		router.MaxMultipartMemory = cfg.MaxFileSize
	}

	health := NewHealthController(cfg.Database, cfg.Sessions, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	api := router.Group("/api")

	imports := NewImportsController(cfg.Sessions, cfg.Orchestrator, cfg.TaskQueue, cfg.BrowserSessions, cfg.DefaultCategory, cfg.MaxFileSize, logger)
	api.POST("/imports", imports.Create)
	api.GET("/imports/current", imports.Current)
	api.GET("/imports/:id", imports.Get)
	api.DELETE("/imports/:id", imports.Delete)
	api.POST("/imports/:id/detect", imports.Detect)
	api.POST("/imports/:id/file", imports.ProcessFile)
	api.POST("/imports/:id/suggestions/:index/apply", imports.ApplySuggestion)
	api.POST("/imports/:id/suggestions/:index/ignore", imports.IgnoreSuggestion)
	api.POST("/imports/:id/commit", imports.Commit)

	if cfg.Cards != nil {
		cards := NewCardsController(cfg.Cards, logger)
		api.GET("/cards", cards.List)
		api.GET("/runs", cards.ListRuns)
		api.GET("/runs/:id", cards.GetRun)
	}

	if cfg.Audit != nil {
		audit := NewAuditController(cfg.Audit, logger)
		api.GET("/audit", audit.List)
	}

	if cfg.TaskQueue != nil {
		tasks := NewTasksController(cfg.TaskQueue, logger)
		api.GET("/tasks/:id", tasks.GetTaskStatus)
	}

	return router
}

// requestLogger logs one line per request.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= 500:
			logger.Error("request", fields...)
		case c.Writer.Status() >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}
