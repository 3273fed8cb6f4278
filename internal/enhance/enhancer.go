// Package enhance runs imported cards past an AI reviewer. Enhancement is
// best-effort: whatever goes wrong, the caller gets its cards back.
package enhance

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/llm"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/parsers"
)

type Config struct {
	// BatchThreshold is the card count above which input is split into batches.
	BatchThreshold int
	BatchSize      int

	// MaxAttempts is the number of gateway calls per batch.
	MaxAttempts  int
	RetryBackoff time.Duration
	MaxBackoff   time.Duration

	// MaxFailedBatches stops calling the gateway once this many batches
	// failed; the remaining batches pass through. 0 never gives up.
	MaxFailedBatches int
}

func DefaultConfig() Config {
	return Config{
		BatchThreshold:   100,
		BatchSize:        50,
		MaxAttempts:      3,
		RetryBackoff:     2 * time.Second,
		MaxBackoff:       30 * time.Second,
		MaxFailedBatches: 2,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BatchThreshold <= 0 {
		c.BatchThreshold = d.BatchThreshold
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.MaxBackoff < c.RetryBackoff {
		c.MaxBackoff = c.RetryBackoff
	}
	if c.MaxFailedBatches < 0 {
		c.MaxFailedBatches = 0
	}
	return c
}

// Output is the result of one enhancement pass. Cards always has one entry
// per input card, in input order.
type Output struct {
	Cards         []entities.Card
	Suggestions   []entities.Suggestion
	Batches       int
	FailedBatches int
	// SkippedBatches passed through without a gateway call because too many
	// batches had failed or the context was done.
	SkippedBatches int
	Degraded       bool
	// Err is the last batch failure, kept for diagnostics only.
	Err error
}

type Enhancer struct {
	gateway  llm.Gateway
	defaults *parsers.Defaults
	cfg      Config
	logger   *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewEnhancer(gateway llm.Gateway, defaults *parsers.Defaults, cfg Config, logger *zap.Logger) *Enhancer {
	if defaults == nil {
		defaults = parsers.BuiltinDefaults()
	}
	return &Enhancer{
		gateway:  gateway,
		defaults: defaults,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		sleep:    sleepContext,
	}
}

// Enhance sends the cards to the gateway, batch by batch and never
// concurrently, and merges the edits it gets back. It never returns an
// error: failed batches pass through unchanged and mark the output degraded.
func (e *Enhancer) Enhance(ctx context.Context, cards []entities.Card, category entities.Category) Output {
	out := Output{Cards: make([]entities.Card, 0, len(cards))}
	if len(cards) == 0 {
		return out
	}

	batches := e.split(cards)
	out.Batches = len(batches)

	for i, batch := range batches {
		if e.givenUp(ctx, out.FailedBatches) {
			out.Cards = append(out.Cards, entities.CloneCards(batch)...)
			out.SkippedBatches++
			out.Degraded = true
			continue
		}

		enhanced, suggestions, err := e.enhanceBatch(ctx, batch, category)
		if err != nil {
			e.logger.Warn("AI enhancement failed, using original cards",
				zap.Int("batch", i+1),
				zap.Int("batches", len(batches)),
				zap.Int("cards", len(batch)),
				zap.Error(err),
			)
			out.Cards = append(out.Cards, entities.CloneCards(batch)...)
			out.FailedBatches++
			out.Degraded = true
			out.Err = err
			continue
		}

		out.Cards = append(out.Cards, enhanced...)
		out.Suggestions = append(out.Suggestions, suggestions...)
	}

	e.logger.Info("AI enhancement finished",
		zap.String("category", string(category)),
		zap.Int("cards", len(cards)),
		zap.Int("batches", out.Batches),
		zap.Int("failed_batches", out.FailedBatches),
		zap.Int("skipped_batches", out.SkippedBatches),
		zap.Int("suggestions", len(out.Suggestions)),
	)
	return out
}

func (e *Enhancer) givenUp(ctx context.Context, failed int) bool {
	if ctx.Err() != nil {
		return true
	}
	return e.cfg.MaxFailedBatches > 0 && failed >= e.cfg.MaxFailedBatches
}

// split keeps small imports in a single request.
func (e *Enhancer) split(cards []entities.Card) [][]entities.Card {
	if len(cards) <= e.cfg.BatchThreshold {
		return [][]entities.Card{cards}
	}
	batches := make([][]entities.Card, 0, (len(cards)+e.cfg.BatchSize-1)/e.cfg.BatchSize)
	for start := 0; start < len(cards); start += e.cfg.BatchSize {
		end := min(start+e.cfg.BatchSize, len(cards))
		batches = append(batches, cards[start:end])
	}
	return batches
}

func (e *Enhancer) enhanceBatch(ctx context.Context, batch []entities.Card, category entities.Category) ([]entities.Card, []entities.Suggestion, error) {
	def, _ := e.defaults.For(category)
	system := systemPrompt(category, def)
	user, err := userPrompt(batch, category, def.PromptFields)
	if err != nil {
		return nil, nil, err
	}
	messages := []llm.Message{{Role: llm.RoleUser, Content: user}}

	var (
		lastErr error
		backoff = e.cfg.RetryBackoff
	)
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := e.sleep(ctx, backoff); err != nil {
				return nil, nil, err
			}
			backoff = min(backoff*2, e.cfg.MaxBackoff)
		}

		raw, err := e.gateway.CreateChatCompletion(ctx, system, messages)
		if err == nil {
			var r *reply
			if r, err = parseReply(raw); err == nil {
				return Merge(batch, r.Cards), r.Suggestions, nil
			}
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		e.logger.Debug("AI enhancement attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", e.cfg.MaxAttempts),
			zap.Error(err),
		)
	}
	return nil, nil, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
