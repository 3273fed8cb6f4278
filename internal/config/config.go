package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Audit
		Tasks
		Session
		Import
		AI
		Log
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Audit struct {
		RetentionDays int // Days to keep audit events (default: 30)
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Session struct {
		Lifetime      time.Duration
		SecureCookies bool // Set to false for local dev without HTTPS
	}
	Import struct {
		MaxFileSize     int64
		DefaultCategory string
		SessionTTL      time.Duration // Idle import sessions older than this are evicted
		SweepSchedule   string        // Cron format: "*/15 * * * *" = every 15 minutes
		CategoriesFile  string        // Optional YAML overriding the builtin category defaults
		AIEnabled       bool
	}
	AI struct {
		Provider         string // none, openai or gemini
		APIKey           string
		BaseURL          string
		Models           []string // Tried in order until one succeeds
		BatchThreshold   int
		BatchSize        int
		MaxAttempts      int
		RetryBackoff     time.Duration
		MaxBackoff       time.Duration
		MaxFailedBatches int // 0 = never give up
		RequestTimeout   time.Duration
	}
	Log struct {
		Level       string
		Development bool
	}
)

// splitModels accepts "a,b" as well as a list value.
func splitModels(v *viper.Viper) []string {
	var models []string
	for _, raw := range v.GetStringSlice("AI_MODELS") {
		for _, m := range strings.Split(raw, ",") {
			if m = strings.TrimSpace(m); m != "" {
				models = append(models, m)
			}
		}
	}
	return models
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("audit_retention_days", 30)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "20m")
	v.SetDefault("task_cleanup_interval", "1h")

	// Browser session defaults
	v.SetDefault("session_lifetime", "24h")
	v.SetDefault("session_secure_cookies", true)

	// Import pipeline defaults
	v.SetDefault("import_max_file_size", DefaultMaxFileSize)
	v.SetDefault("import_default_category", "gear")
	v.SetDefault("import_session_ttl", "2h")
	v.SetDefault("import_sweep_schedule", "*/15 * * * *")
	v.SetDefault("import_categories_file", "")
	v.SetDefault("import_ai_enabled", true)

	// AI gateway defaults
	v.SetDefault("ai_provider", AIProviderNone)
	v.SetDefault("ai_api_key", "")
	v.SetDefault("ai_base_url", "")
	v.SetDefault("ai_models", "gpt-4o-mini,gpt-4o")
	v.SetDefault("ai_batch_threshold", 100)
	v.SetDefault("ai_batch_size", 50)
	v.SetDefault("ai_max_attempts", 3)
	v.SetDefault("ai_retry_backoff", "2s")
	v.SetDefault("ai_max_backoff", "30s")
	v.SetDefault("ai_max_failed_batches", 2)
	v.SetDefault("ai_request_timeout", "90s")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_development", false)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Session: Session{
			Lifetime:      v.GetDuration("SESSION_LIFETIME"),
			SecureCookies: v.GetBool("SESSION_SECURE_COOKIES"),
		},
		Import: Import{
			MaxFileSize:     v.GetInt64("IMPORT_MAX_FILE_SIZE"),
			DefaultCategory: v.GetString("IMPORT_DEFAULT_CATEGORY"),
			SessionTTL:      v.GetDuration("IMPORT_SESSION_TTL"),
			SweepSchedule:   v.GetString("IMPORT_SWEEP_SCHEDULE"),
			CategoriesFile:  v.GetString("IMPORT_CATEGORIES_FILE"),
			AIEnabled:       v.GetBool("IMPORT_AI_ENABLED"),
		},
		AI: AI{
			Provider:         strings.ToLower(v.GetString("AI_PROVIDER")),
			APIKey:           v.GetString("AI_API_KEY"),
			BaseURL:          v.GetString("AI_BASE_URL"),
			Models:           splitModels(v),
			BatchThreshold:   v.GetInt("AI_BATCH_THRESHOLD"),
			BatchSize:        v.GetInt("AI_BATCH_SIZE"),
			MaxAttempts:      v.GetInt("AI_MAX_ATTEMPTS"),
			RetryBackoff:     v.GetDuration("AI_RETRY_BACKOFF"),
			MaxBackoff:       v.GetDuration("AI_MAX_BACKOFF"),
			MaxFailedBatches: v.GetInt("AI_MAX_FAILED_BATCHES"),
			RequestTimeout:   v.GetDuration("AI_REQUEST_TIMEOUT"),
		},
		Log: Log{
			Level:       v.GetString("LOG_LEVEL"),
			Development: v.GetBool("LOG_DEVELOPMENT"),
		},
	}
}
