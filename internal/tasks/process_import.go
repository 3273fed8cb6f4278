package tasks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/importers"
)

const ProcessImportFileQueue = "process_import_file"

// ProcessImportFileTask runs an uploaded file through the import pipeline
// outside the request. The file travels inside the task.
type ProcessImportFileTask struct {
	SessionID string            `json:"session_id"`
	FileName  string            `json:"file_name"`
	Content   []byte            `json:"content"`
	Category  entities.Category `json:"category"`
	// AI overrides the configured enhancement switch when set.
	AI *bool `json:"ai,omitempty"`
}

// Config returns the queue configuration for import tasks. A busy session
// fails the attempt and is retried after the backoff.
func (t ProcessImportFileTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        ProcessImportFileQueue,
		MaxAttempts: 3,
		Backoff:     10 * time.Second,
		Timeout:     30 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// SessionLookup finds live import sessions.
type SessionLookup interface {
	Get(id string) (*importers.Session, error)
}

// FileProcessor is the part of the orchestrator the queue drives.
type FileProcessor interface {
	ProcessFile(ctx context.Context, s *importers.Session, file importers.RawFile, category entities.Category, opts ...importers.ProcessOption) (importers.Outcome, error)
}

// ProcessImportFileProcessor creates a processor function for ProcessImportFileTask.
func ProcessImportFileProcessor(sessions SessionLookup, processor FileProcessor, logger *zap.Logger) backlite.QueueProcessor[ProcessImportFileTask] {
	return func(ctx context.Context, task ProcessImportFileTask) error {
		if sessions == nil || processor == nil {
			return fmt.Errorf("import pipeline not configured")
		}

		s, err := sessions.Get(task.SessionID)
		if errors.Is(err, importers.ErrSessionNotFound) {
			logger.Warn("import session gone before processing",
				zap.String("session_id", task.SessionID),
				zap.String("file", task.FileName),
			)
			return nil
		}
		if err != nil {
			return fmt.Errorf("lookup session %s: %w", task.SessionID, err)
		}

		var opts []importers.ProcessOption
		if task.AI != nil {
			opts = append(opts, importers.WithAI(*task.AI))
		}

		file := importers.RawFile{Name: task.FileName, Reader: bytes.NewReader(task.Content)}
		out, err := processor.ProcessFile(ctx, s, file, task.Category, opts...)
		if err != nil {
			return fmt.Errorf("process %s for session %s: %w", task.FileName, task.SessionID, err)
		}

		logger.Info("queued import processed",
			zap.String("session_id", task.SessionID),
			zap.String("file", task.FileName),
			zap.Int("cards", len(out.ProcessedCards)),
			zap.Int("errors", len(out.Errors)),
		)
		return nil
	}
}

// NewProcessImportFileQueue creates a backlite queue for import tasks.
func NewProcessImportFileQueue(sessions SessionLookup, processor FileProcessor, logger *zap.Logger) backlite.Queue {
	return backlite.NewQueue(ProcessImportFileProcessor(sessions, processor, logger))
}
