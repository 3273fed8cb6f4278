package http

import (
	"context"

	"github.com/mikestefanello/backlite"

	auditRepo "github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/database/audit"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
)

// This file collects the store interfaces the controllers depend on.

// CardStore provides read access to committed cards.
type CardStore interface {
	ListCards(ctx context.Context, cardType entities.Category, limit, offset int) ([]entities.StoredCard, int64, error)
	GetImportRun(ctx context.Context, id uint) (*entities.ImportRun, error)
	GetCardsForRun(ctx context.Context, runID uint) ([]entities.StoredCard, error)
	ListImportRuns(ctx context.Context, limit int) ([]entities.ImportRun, error)
}

// TaskQueue enqueues background work and reports on it.
type TaskQueue interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// AuditReader lists recorded audit events.
type AuditReader interface {
	GetEvents(filter auditRepo.Filter, limit, offset int) ([]entities.AuditEvent, int64, error)
}

// Pinger reports database reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// SessionCounter reports how many import sessions are live.
type SessionCounter interface {
	Len() int
}

