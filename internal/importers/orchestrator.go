package importers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/enhance"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/parsers"
)

// User-facing messages reported in Outcome.Errors.
const (
	MsgUnsupportedFormat = "Unsupported file format. Please use JSON or Markdown files."
	MsgNoCards           = "No valid cards found in file. Please check the file format and try again."
	MsgUnexpectedError   = "Unexpected error while processing file."
)

var (
	ErrNothingToCommit  = errors.New("no valid cards to commit")
	ErrAlreadyCommitted = errors.New("import already committed")
	ErrNoCardStore      = errors.New("card storage is not configured")
)

// RawFile is an uploaded file. The pipeline reads it once and never keeps it.
type RawFile struct {
	Name   string
	Reader io.Reader
}

// Outcome is what one ProcessFile call hands back to the caller.
type Outcome struct {
	ProcessedCards []entities.Card        `json:"processedCards"`
	Errors         []string               `json:"errors"`
	Result         entities.ImportResult  `json:"result"`
	Suggestions    []entities.Suggestion  `json:"suggestions"`
	Format         parsers.DetectedFormat `json:"format"`
	// Enhanced is set when at least one AI batch came back usable.
	Enhanced bool `json:"enhanced"`
	Degraded bool `json:"degraded"`
}

// Enhancer is the AI review step.
type Enhancer interface {
	Enhance(ctx context.Context, cards []entities.Card, category entities.Category) enhance.Output
}

// Auditor records finished imports and commits.
type Auditor interface {
	LogImport(sessionID, fileName, format string, result entities.ImportResult, enhanced bool, err error)
	LogEnhance(sessionID string, batches, failed, suggestions int, err error)
	LogCommit(sessionID string, runID uint, cards int, err error)
}

// CardSaver persists the cards of a committed import.
type CardSaver interface {
	SaveImport(ctx context.Context, run *entities.ImportRun, cards []entities.Card) error
}

type Config struct {
	// MaxFileSize in bytes; 0 means unlimited.
	MaxFileSize int64
	AIEnabled   bool
}

type Option func(*Orchestrator)

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

func WithAuditor(a Auditor) Option {
	return func(o *Orchestrator) { o.auditor = a }
}

func WithCardSaver(cs CardSaver) Option {
	return func(o *Orchestrator) { o.saver = cs }
}

// Orchestrator sequences detection, parsing, validation, enhancement and
// reporting. It holds no per-import state; that lives in the Session.
type Orchestrator struct {
	parser   *parsers.Parser
	enhancer Enhancer
	cfg      Config
	logger   *zap.Logger
	notifier Notifier
	auditor  Auditor
	saver    CardSaver
}

// NewOrchestrator creates an orchestrator. A nil enhancer disables AI.
func NewOrchestrator(parser *parsers.Parser, enhancer Enhancer, cfg Config, logger *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		parser:   parser,
		enhancer: enhancer,
		cfg:      cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type processOptions struct {
	ai *bool
}

type ProcessOption func(*processOptions)

// WithAI turns AI enhancement on or off for a single call.
func WithAI(enabled bool) ProcessOption {
	return func(po *processOptions) { po.ai = &enabled }
}

// Detect classifies a file for a session, reusing an earlier answer for the
// same name and content. Safe to call speculatively before ProcessFile.
func (o *Orchestrator) Detect(s *Session, name string, content []byte) parsers.DetectedFormat {
	key := formatCacheKey(name, content)
	if f, ok := s.cachedFormat(key); ok {
		return f
	}
	f := parsers.Detect(name, content)
	s.cacheFormat(key, f)
	return f
}

// ProcessFile runs one file through the pipeline on the given session,
// replacing whatever the session held before. Failures of the file itself
// are reported in Outcome.Errors; the only error returned is ErrSessionBusy.
func (o *Orchestrator) ProcessFile(ctx context.Context, s *Session, file RawFile, category entities.Category, opts ...ProcessOption) (out Outcome, err error) {
	if !s.tryLock() {
		return Outcome{}, ErrSessionBusy
	}
	defer s.unlock()

	var po processOptions
	for _, opt := range opts {
		opt(&po)
	}
	useAI := o.cfg.AIEnabled
	if po.ai != nil {
		useAI = *po.ai
	}
	useAI = useAI && o.enhancer != nil

	s.begin(file.Name, category)
	defer s.finish()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("import panicked",
				zap.String("session_id", s.ID),
				zap.String("file", file.Name),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			out = o.fail(s, file.Name, out.Format, MsgUnexpectedError)
		}
	}()

	out = o.run(ctx, s, file, category, useAI)

	o.logger.Info("import processed",
		zap.String("session_id", s.ID),
		zap.String("file", file.Name),
		zap.String("format", string(out.Format.Kind)),
		zap.String("category", string(category)),
		zap.Int("cards", len(out.ProcessedCards)),
		zap.Int("errors", len(out.Errors)),
		zap.Int("suggestions", len(out.Suggestions)),
		zap.Bool("enhanced", out.Enhanced),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

func (o *Orchestrator) run(ctx context.Context, s *Session, file RawFile, category entities.Category, useAI bool) Outcome {
	s.setState(StateDetecting)
	if !parsers.AcceptedExtension(file.Name) {
		return o.fail(s, file.Name, parsers.Detect(file.Name, nil), MsgUnsupportedFormat)
	}

	content, err := readFile(file.Reader, o.cfg.MaxFileSize)
	if err != nil {
		format := parsers.DetectedFormat{Kind: parsers.FormatUnknown, Extension: strings.ToLower(filepath.Ext(file.Name))}
		return o.fail(s, file.Name, format, "Failed to read file: "+err.Error())
	}

	format := o.Detect(s, file.Name, content)
	if format.Kind == parsers.FormatUnknown {
		return o.fail(s, file.Name, format, MsgUnsupportedFormat)
	}

	s.setState(StateParsing)
	cards, err := o.parser.Parse(content, category, format)
	if err != nil {
		return o.fail(s, file.Name, format, parseFailureMessage(err))
	}

	s.setState(StateValidating)
	out := Outcome{
		ProcessedCards: cards,
		Errors:         []string{},
		Suggestions:    []entities.Suggestion{},
		Format:         format,
	}
	if out.ProcessedCards == nil {
		out.ProcessedCards = []entities.Card{}
	}

	if len(cards) == 0 {
		out.Errors = []string{MsgNoCards}
		out.Result = FailureResult(MsgNoCards)
		s.setState(StateReporting)
		o.notify(s, entities.NotificationError, "No cards found", MsgNoCards)
		o.publish(s, file.Name, out)
		return out
	}

	if errs := Validate(cards); len(errs) > 0 {
		out.Errors = errs
		out.Result = BuildResult(cards, errs)
		s.setState(StateReporting)
		o.notify(s, entities.NotificationError, "Validation failed",
			fmt.Sprintf("%d validation errors found. Nothing was imported.", len(errs)))
		o.publish(s, file.Name, out)
		return out
	}

	if useAI {
		s.setState(StateEnhancing)
		s.setAIProcessing(true)
		enhanced := o.enhancer.Enhance(ctx, cards, category)
		s.setAIProcessing(false)

		if len(enhanced.Cards) == len(cards) {
			out.ProcessedCards = enhanced.Cards
		}
		if enhanced.Suggestions != nil {
			out.Suggestions = enhanced.Suggestions
		}
		out.Enhanced = enhanced.Batches > enhanced.FailedBatches+enhanced.SkippedBatches
		out.Degraded = enhanced.Degraded
		if o.auditor != nil {
			o.auditor.LogEnhance(s.ID, enhanced.Batches, enhanced.FailedBatches+enhanced.SkippedBatches, len(enhanced.Suggestions), enhanced.Err)
		}
		if enhanced.Degraded {
			o.notify(s, entities.NotificationWarning, "AI enhancement failed", degradedMessage(enhanced))
		}
	}

	out.Result = BuildResult(out.ProcessedCards, nil)
	s.setState(StateReporting)

	description := fmt.Sprintf("%d cards ready for review.", len(out.ProcessedCards))
	if len(out.Suggestions) > 0 {
		description = fmt.Sprintf("%d cards ready for review, %d AI suggestions pending.", len(out.ProcessedCards), len(out.Suggestions))
	}
	o.notify(s, entities.NotificationSuccess, "Import successful", description)
	o.publish(s, file.Name, out)
	return out
}

func degradedMessage(out enhance.Output) string {
	failed := out.FailedBatches + out.SkippedBatches
	if out.Batches <= 1 || failed >= out.Batches {
		return "AI processing failed. Using original cards."
	}
	return fmt.Sprintf("AI processing failed for %d of %d batches. Using original cards for those.", failed, out.Batches)
}

// fail ends the call in error-reporting with no cards.
func (o *Orchestrator) fail(s *Session, fileName string, format parsers.DetectedFormat, msg string) Outcome {
	s.setState(StateErrorReporting)
	out := Outcome{
		ProcessedCards: []entities.Card{},
		Errors:         []string{msg},
		Suggestions:    []entities.Suggestion{},
		Result:         FailureResult(msg),
		Format:         format,
	}
	o.notify(s, entities.NotificationError, "Import failed", msg)
	o.publish(s, fileName, out)
	return out
}

func (o *Orchestrator) publish(s *Session, fileName string, out Outcome) {
	s.publish(out)
	if o.auditor == nil {
		return
	}
	var err error
	if len(out.Errors) > 0 {
		err = errors.New(strings.Join(out.Errors, "; "))
	}
	o.auditor.LogImport(s.ID, fileName, string(out.Format.Kind), out.Result, out.Enhanced, err)
}

func (o *Orchestrator) notify(s *Session, level entities.NotificationLevel, title, description string) {
	n := entities.Notification{
		Level:       level,
		Title:       title,
		Description: description,
		At:          time.Now(),
	}
	s.addNotification(n)
	if o.notifier != nil {
		o.notifier.Notify(s.ID, n)
	}
}

func parseFailureMessage(err error) string {
	if errors.Is(err, parsers.ErrUnsupportedFormat) {
		return MsgUnsupportedFormat
	}
	return "Error parsing file: " + err.Error()
}

func readFile(r io.Reader, maxSize int64) ([]byte, error) {
	if r == nil {
		return nil, errors.New("no content")
	}
	if maxSize > 0 {
		r = io.LimitReader(r, maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, fmt.Errorf("file exceeds the %d byte limit", maxSize)
	}
	return data, nil
}

// ApplySuggestion applies a pending suggestion to the session's cards.
func (o *Orchestrator) ApplySuggestion(s *Session, index int) (entities.Suggestion, error) {
	if !s.tryLock() {
		return entities.Suggestion{}, ErrSessionBusy
	}
	defer s.unlock()

	s.mu.Lock()
	cards, sug, err := s.suggestions.Apply(index, s.cards)
	if err == nil {
		s.cards = cards
		s.lastActive = s.now()
	}
	s.mu.Unlock()
	if err != nil {
		return entities.Suggestion{}, err
	}

	o.notify(s, entities.NotificationSuccess, "Suggestion applied",
		fmt.Sprintf("Updated %s of %s.", sug.Field, sug.CardName))
	return sug, nil
}

// IgnoreSuggestion discards a pending suggestion.
func (o *Orchestrator) IgnoreSuggestion(s *Session, index int) (entities.Suggestion, error) {
	if !s.tryLock() {
		return entities.Suggestion{}, ErrSessionBusy
	}
	defer s.unlock()

	s.mu.Lock()
	sug, err := s.suggestions.Ignore(index)
	if err == nil {
		s.lastActive = s.now()
	}
	s.mu.Unlock()
	if err != nil {
		return entities.Suggestion{}, err
	}

	o.notify(s, entities.NotificationInfo, "Suggestion ignored",
		fmt.Sprintf("Kept %s of %s unchanged.", sug.Field, sug.CardName))
	return sug, nil
}

// Commit stores the session's cards. Only an error-free import can be
// committed, and only once; every commit inserts new rows.
func (o *Orchestrator) Commit(ctx context.Context, s *Session) (*entities.ImportRun, error) {
	if o.saver == nil {
		return nil, ErrNoCardStore
	}
	if !s.tryLock() {
		return nil, ErrSessionBusy
	}
	defer s.unlock()

	s.mu.RLock()
	committed := s.committedRun != nil
	result := s.result
	cards := entities.CloneCards(s.cards)
	run := &entities.ImportRun{
		SessionID: s.ID,
		FileName:  s.fileName,
		Format:    string(s.format.Kind),
		Category:  s.category,
		Status:    entities.ImportStatusCompleted,
		Imported:  len(s.cards),
		Enhanced:  s.enhanced,
		StartedAt: s.startedAt,
	}
	s.mu.RUnlock()

	if committed {
		return nil, ErrAlreadyCommitted
	}
	if result == nil || result.HasErrors() || len(cards) == 0 {
		return nil, ErrNothingToCommit
	}

	now := time.Now()
	run.CompletedAt = &now
	err := o.saver.SaveImport(ctx, run, cards)
	if o.auditor != nil {
		o.auditor.LogCommit(s.ID, run.ID, len(cards), err)
	}
	if err != nil {
		o.notify(s, entities.NotificationError, "Saving cards failed", err.Error())
		return nil, fmt.Errorf("save import: %w", err)
	}

	s.mu.Lock()
	id := run.ID
	s.committedRun = &id
	s.lastActive = s.now()
	s.mu.Unlock()

	o.notify(s, entities.NotificationSuccess, "Cards saved", fmt.Sprintf("%d cards saved.", len(cards)))
	return run, nil
}
