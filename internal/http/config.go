package http

import (
	"go.uber.org/zap"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/importers"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Import pipeline
	Sessions     *importers.Store
	Orchestrator *importers.Orchestrator

	// DefaultCategory applies when an upload names no category.
	DefaultCategory entities.Category
	MaxFileSize     int64

	// Optional collaborators; routes that need a missing one are not registered.
	Cards           CardStore
	Audit           AuditReader
	TaskQueue       TaskQueue
	BrowserSessions *BrowserSessions
	Database        Pinger

	// Application info
	Version string

	Logger *zap.Logger
}
