package tasks

import (
	"time"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/config"
)

// Config holds configuration for the task queue system.
type Config struct {
	// Workers is the number of concurrent task workers. Default: 2
	Workers int

	// ReleaseAfter is when stuck tasks are released back to queue. Default: 20m
	ReleaseAfter time.Duration

	// CleanupInterval is how often to clean up completed tasks. Default: 1h
	CleanupInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:         2,
		ReleaseAfter:    20 * time.Minute,
		CleanupInterval: 1 * time.Hour,
	}
}

// ConfigFrom maps the application settings onto a queue Config.
func ConfigFrom(c config.Tasks) Config {
	return Config{
		Workers:         c.Workers,
		ReleaseAfter:    c.ReleaseAfter,
		CleanupInterval: c.CleanupInterval,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.ReleaseAfter <= 0 {
		c.ReleaseAfter = d.ReleaseAfter
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	return c
}
