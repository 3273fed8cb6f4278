package audit

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/database/audit"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
)

const maxErrorLen = 500

// Service provides high-level audit logging functionality.
type Service struct {
	repo   *audit.Repository
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(event); err != nil {
			s.logger.Warn("failed to log audit event",
				zap.String("action", event.Action),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until every pending LogAsync write has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// LogImport records one processed file.
func (s *Service) LogImport(sessionID, fileName, format string, result entities.ImportResult, enhanced bool, err error) {
	if format == "" {
		format = "unknown"
	}
	event := &entities.AuditEvent{
		SessionID:   sessionID,
		EventType:   entities.AuditEventImport,
		Action:      format + "_import",
		Description: truncate(fmt.Sprintf("Processed %s: %d cards ready, %d failed", fileName, result.Imported, result.Failed), maxErrorLen),
		EntityType:  "card",
		Status:      entities.AuditStatusSuccess,
	}
	event.Metadata = metadata(map[string]any{
		"file":     fileName,
		"imported": result.Imported,
		"failed":   result.Failed,
		"enhanced": enhanced,
	})

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), maxErrorLen)
	}

	s.LogAsync(event)
}

// LogCommit records cards being written to the card store.
func (s *Service) LogCommit(sessionID string, runID uint, cards int, err error) {
	event := &entities.AuditEvent{
		SessionID:   sessionID,
		EventType:   entities.AuditEventCommit,
		Action:      "cards_commit",
		Description: fmt.Sprintf("Saved %d cards", cards),
		EntityType:  "import_run",
		Status:      entities.AuditStatusSuccess,
	}
	if runID != 0 {
		event.EntityID = &runID
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.Description = fmt.Sprintf("Saving %d cards failed", cards)
		event.ErrorMsg = truncate(err.Error(), maxErrorLen)
	}

	s.LogAsync(event)
}

// LogEnhance records an AI enhancement pass.
func (s *Service) LogEnhance(sessionID string, batches, failed int, suggestions int, err error) {
	event := &entities.AuditEvent{
		SessionID:   sessionID,
		EventType:   entities.AuditEventEnhance,
		Action:      "ai_enhance",
		Description: fmt.Sprintf("%d of %d batches enhanced, %d suggestions", batches-failed, batches, suggestions),
		Status:      entities.AuditStatusSuccess,
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), maxErrorLen)
	}

	s.LogAsync(event)
}

// LogCleanup records a retention sweep.
func (s *Service) LogCleanup(action string, removed int64, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventCleanup,
		Action:      action,
		Description: fmt.Sprintf("Removed %d entries", removed),
		Status:      entities.AuditStatusSuccess,
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), maxErrorLen)
	}

	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(filter audit.Filter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(filter, limit, offset)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

func metadata(m map[string]any) string {
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
