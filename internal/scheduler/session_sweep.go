package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Evictor drops import sessions that have been idle for longer than ttl.
type Evictor interface {
	EvictIdle(ttl time.Duration) int
	Len() int
}

// SessionSweepScheduler periodically evicts idle import sessions so
// abandoned uploads do not pile up in memory.
type SessionSweepScheduler struct {
	store    Evictor
	ttl      time.Duration
	schedule string
	logger   *zap.Logger

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isSweeping bool
}

func NewSessionSweepScheduler(store Evictor, ttl time.Duration, schedule string, logger *zap.Logger) *SessionSweepScheduler {
	return &SessionSweepScheduler{
		store:    store,
		ttl:      ttl,
		schedule: schedule,
		logger:   logger,
		cron:     cron.New(cron.WithParser(cronParser)),
	}
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule reports whether spec is a five-field cron expression.
func ValidateSchedule(spec string) error {
	_, err := cronParser.Parse(spec)
	return err
}

// Start schedules the sweep. A non-positive TTL disables it.
func (s *SessionSweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if s.ttl <= 0 {
		s.logger.Info("session sweep disabled")
		return nil
	}

	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.RunNow()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	s.logger.Info("session sweep started",
		zap.String("schedule", s.schedule),
		zap.Duration("ttl", s.ttl),
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running sweep and stops the scheduler.
func (s *SessionSweepScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	// a sweep in flight needs s.mu to finish
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.cron.Remove(s.entryID)

	s.logger.Info("session sweep stopped")
}

// RunNow sweeps immediately and returns the number of evicted sessions.
func (s *SessionSweepScheduler) RunNow() int {
	s.mu.Lock()
	if s.isSweeping {
		s.mu.Unlock()
		return 0
	}
	s.isSweeping = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSweeping = false
		s.mu.Unlock()
	}()

	evicted := s.store.EvictIdle(s.ttl)
	if evicted > 0 {
		s.logger.Info("evicted idle import sessions",
			zap.Int("evicted", evicted),
			zap.Int("remaining", s.store.Len()),
		)
	}
	return evicted
}

func (s *SessionSweepScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next sweep will occur.
func (s *SessionSweepScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	entry := s.cron.Entry(s.entryID)
	if !entry.Valid() {
		return nil
	}
	t := entry.Next
	return &t
}
