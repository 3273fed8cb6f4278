package importers

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/enhance"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/parsers"
)

var ErrSessionBusy = errors.New("an import is already running for this session")

type State string

const (
	StateIdle           State = "idle"
	StateDetecting      State = "detecting"
	StateParsing        State = "parsing"
	StateValidating     State = "validating"
	StateEnhancing      State = "enhancing"
	StateReporting      State = "reporting"
	StateErrorReporting State = "error-reporting"
)

const (
	maxNotifications = 50
	maxCachedFormats = 32
)

// Session is the state of one user's import, from the uploaded file to the
// reviewed cards. It replaces any process-wide "current import": every
// pipeline call gets the session it works on.
type Session struct {
	ID        string
	CreatedAt time.Time

	// guard admits one mutating pipeline call at a time.
	guard *semaphore.Weighted
	now   func() time.Time

	mu            sync.RWMutex
	state         State
	trace         []State
	processing    bool
	aiProcessing  bool
	lastActive    time.Time
	fileName      string
	category      entities.Category
	format        parsers.DetectedFormat
	cards         []entities.Card
	errors        []string
	suggestions   *enhance.Suggestions
	result        *entities.ImportResult
	enhanced      bool
	startedAt     time.Time
	committedRun  *uint
	notifications []entities.Notification
	formatCache   map[string]parsers.DetectedFormat
}

func NewSession(id string) *Session {
	return newSession(id, time.Now)
}

func newSession(id string, now func() time.Time) *Session {
	t := now()
	return &Session{
		ID:          id,
		CreatedAt:   t,
		guard:       semaphore.NewWeighted(1),
		now:         now,
		state:       StateIdle,
		lastActive:  t,
		suggestions: enhance.NewSuggestions(nil),
		formatCache: make(map[string]parsers.DetectedFormat),
	}
}

func (s *Session) tryLock() bool {
	return s.guard.TryAcquire(1)
}

func (s *Session) unlock() {
	s.guard.Release(1)
}

// begin resets everything a previous import left behind.
func (s *Session) begin(fileName string, category entities.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.processing = true
	s.aiProcessing = false
	s.state = StateIdle
	s.trace = s.trace[:0]
	s.fileName = fileName
	s.category = category
	s.format = parsers.DetectedFormat{}
	s.cards = nil
	s.errors = nil
	s.suggestions.Reset(nil)
	s.result = nil
	s.enhanced = false
	s.committedRun = nil
	s.startedAt = s.now()
	s.lastActive = s.startedAt
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.trace = append(s.trace, state)
	s.lastActive = s.now()
}

func (s *Session) setAIProcessing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aiProcessing = v
}

func (s *Session) publish(o Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := o.Result
	s.format = o.Format
	s.cards = entities.CloneCards(o.ProcessedCards)
	s.errors = append([]string(nil), o.Errors...)
	s.suggestions.Reset(o.Suggestions)
	s.result = &result
	s.enhanced = o.Enhanced
}

func (s *Session) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing = false
	s.aiProcessing = false
	s.state = StateIdle
	s.trace = append(s.trace, StateIdle)
	s.lastActive = s.now()
}

func (s *Session) addNotification(n entities.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
	if len(s.notifications) > maxNotifications {
		s.notifications = append([]entities.Notification(nil), s.notifications[len(s.notifications)-maxNotifications:]...)
	}
}

func formatCacheKey(name string, content []byte) string {
	sum := sha256.Sum256(content)
	return name + "\x00" + hex.EncodeToString(sum[:])
}

func (s *Session) cachedFormat(key string) (parsers.DetectedFormat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.formatCache[key]
	return f, ok
}

func (s *Session) cacheFormat(key string, f parsers.DetectedFormat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.formatCache) >= maxCachedFormats {
		clear(s.formatCache)
	}
	s.formatCache[key] = f
	s.lastActive = s.now()
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Trace returns the states the last ProcessFile call went through.
func (s *Session) Trace() []State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]State(nil), s.trace...)
}

func (s *Session) Processing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processing
}

func (s *Session) AIProcessing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aiProcessing
}

// Cards returns a copy of the session's current cards.
func (s *Session) Cards() []entities.Card {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return entities.CloneCards(s.cards)
}

func (s *Session) Errors() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.errors...)
}

func (s *Session) Suggestions() []entities.Suggestion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.suggestions.Pending()
}

// Result returns the report of the last import, if any.
func (s *Session) Result() (entities.ImportResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return entities.ImportResult{}, false
	}
	return *s.result, true
}

func (s *Session) Notifications() []entities.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.Notification(nil), s.notifications...)
}

func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

// Snapshot is a point-in-time, JSON-friendly copy of a session.
type Snapshot struct {
	ID            string                  `json:"id"`
	State         State                   `json:"state"`
	Trace         []State                 `json:"trace,omitempty"`
	Processing    bool                    `json:"processing"`
	AIProcessing  bool                    `json:"aiProcessing"`
	FileName      string                  `json:"fileName,omitempty"`
	Category      entities.Category       `json:"category,omitempty"`
	Format        *parsers.DetectedFormat `json:"format,omitempty"`
	Cards         []entities.Card         `json:"cards"`
	Errors        []string                `json:"errors"`
	Suggestions   []entities.Suggestion   `json:"suggestions"`
	Result        *entities.ImportResult  `json:"result,omitempty"`
	CommittedRun  *uint                   `json:"committedRun,omitempty"`
	Notifications []entities.Notification `json:"notifications"`
	CreatedAt     time.Time               `json:"createdAt"`
	LastActive    time.Time               `json:"lastActive"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		ID:            s.ID,
		State:         s.state,
		Trace:         append([]State(nil), s.trace...),
		Processing:    s.processing,
		AIProcessing:  s.aiProcessing,
		FileName:      s.fileName,
		Category:      s.category,
		Cards:         entities.CloneCards(s.cards),
		Errors:        append([]string{}, s.errors...),
		Suggestions:   s.suggestions.Pending(),
		Notifications: append([]entities.Notification{}, s.notifications...),
		CreatedAt:     s.CreatedAt,
		LastActive:    s.lastActive,
	}
	if snap.Cards == nil {
		snap.Cards = []entities.Card{}
	}
	if s.format.Kind != "" {
		f := s.format
		snap.Format = &f
	}
	if s.result != nil {
		r := *s.result
		snap.Result = &r
	}
	if s.committedRun != nil {
		id := *s.committedRun
		snap.CommittedRun = &id
	}
	return snap
}
