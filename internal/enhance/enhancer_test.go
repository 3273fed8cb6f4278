package enhance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/llm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeGateway records every call and answers through respond.
type fakeGateway struct {
	mu      sync.Mutex
	calls   int
	batches [][]map[string]any
	respond func(call int, cards []map[string]any) (string, error)
}

func (g *fakeGateway) CreateChatCompletion(_ context.Context, system string, messages []llm.Message) (string, error) {
	g.mu.Lock()
	g.calls++
	call := g.calls
	g.mu.Unlock()

	if system == "" || len(messages) != 1 {
		return "", errors.New("unexpected request shape")
	}
	_, payload, _ := strings.Cut(messages[0].Content, "\n\n")
	var cards []map[string]any
	if err := json.Unmarshal([]byte(payload), &cards); err != nil {
		return "", err
	}

	g.mu.Lock()
	g.batches = append(g.batches, cards)
	g.mu.Unlock()
	return g.respond(call, cards)
}

// renameAll answers with every card renamed and one suggestion per batch.
func renameAll(_ int, cards []map[string]any) (string, error) {
	out := make([]map[string]any, len(cards))
	for i, c := range cards {
		out[i] = map[string]any{"name": fmt.Sprintf("%s (enhanced)", c["name"])}
	}
	data, err := json.Marshal(map[string]any{
		"cards": out,
		"suggestions": []map[string]any{{
			"cardName":   cards[0]["name"],
			"field":      "flavor",
			"suggestion": "Smells like low tide.",
			"reason":     "Stronger theme",
		}},
	})
	return "```json\n" + string(data) + "\n```", err
}

func failAlways(int, []map[string]any) (string, error) {
	return "", errors.New("gateway unavailable")
}

func makeCards(n int) []entities.Card {
	cards := make([]entities.Card, n)
	for i := range cards {
		cards[i] = entities.Card{
			ID:       fmt.Sprintf("card-%03d", i),
			Name:     fmt.Sprintf("Card %03d", i),
			Type:     entities.CategoryGear,
			Category: "equipment",
			Keywords: []string{"Tool"},
			Extra:    map[string]any{"uses": float64(i % 3)},
		}
	}
	return cards
}

func newTestEnhancer(gw llm.Gateway, cfg Config) (*Enhancer, *[]time.Duration) {
	e := NewEnhancer(gw, nil, cfg, zap.NewNop())
	var slept []time.Duration
	e.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return e, &slept
}

func TestEnhanceBatchesPreserveOrderAndCount(t *testing.T) {
	gw := &fakeGateway{respond: renameAll}
	e, _ := newTestEnhancer(gw, DefaultConfig())

	cards := makeCards(120)
	out := e.Enhance(context.Background(), cards, entities.CategoryGear)

	assert.Equal(t, 3, gw.calls)
	require.Len(t, gw.batches, 3)
	assert.Len(t, gw.batches[0], 50)
	assert.Len(t, gw.batches[1], 50)
	assert.Len(t, gw.batches[2], 20)

	require.Len(t, out.Cards, 120)
	for i, c := range out.Cards {
		assert.Equal(t, fmt.Sprintf("Card %03d (enhanced)", i), c.Name)
		assert.Equal(t, cards[i].ID, c.ID)
	}
	assert.Equal(t, 3, out.Batches)
	assert.False(t, out.Degraded)
	require.Len(t, out.Suggestions, 3)
	assert.Equal(t, "Card 100", out.Suggestions[2].CardName)

	assert.Equal(t, "Card 000", cards[0].Name, "input cards must not be mutated")
}

func TestEnhanceSmallImportIsOneRequest(t *testing.T) {
	gw := &fakeGateway{respond: renameAll}
	e, _ := newTestEnhancer(gw, DefaultConfig())

	out := e.Enhance(context.Background(), makeCards(100), entities.CategoryGear)

	assert.Equal(t, 1, gw.calls)
	assert.Len(t, out.Cards, 100)
	assert.Equal(t, 1, out.Batches)
}

func TestEnhancePromptIsPruned(t *testing.T) {
	gw := &fakeGateway{respond: renameAll}
	e, _ := newTestEnhancer(gw, DefaultConfig())

	card := makeCards(1)[0]
	card.ImagePrompt = "a rusty machete"
	card.Icons = []string{"Swamp"}
	card.Extra["weight"] = map[string]any{"kg": 1}
	card.Extra["secretNotes"] = "do not send"

	e.Enhance(context.Background(), []entities.Card{card}, entities.CategoryGear)

	require.Len(t, gw.batches, 1)
	sent := gw.batches[0][0]
	assert.Equal(t, "Card 000", sent["name"])
	assert.Equal(t, "gear", sent["type"])
	assert.Equal(t, float64(0), sent["uses"])
	assert.NotContains(t, sent, "imagePrompt")
	assert.NotContains(t, sent, "icons")
	assert.NotContains(t, sent, "weight", "nested values are not scalars")
	assert.NotContains(t, sent, "secretNotes", "not a prompt field of gear")
}

func TestEnhanceGatewayAlwaysFails(t *testing.T) {
	gw := &fakeGateway{respond: failAlways}
	e, slept := newTestEnhancer(gw, Config{MaxAttempts: 3, RetryBackoff: time.Second, MaxBackoff: 10 * time.Second})

	cards := makeCards(3)
	out := e.Enhance(context.Background(), cards, entities.CategoryGear)

	assert.Empty(t, cmp.Diff(cards, out.Cards))
	assert.Empty(t, out.Suggestions)
	assert.True(t, out.Degraded)
	assert.Equal(t, 1, out.FailedBatches)
	assert.EqualError(t, out.Err, "gateway unavailable")
	assert.Equal(t, 3, gw.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
}

func TestEnhanceGivesUpAfterMaxFailedBatches(t *testing.T) {
	gw := &fakeGateway{respond: failAlways}
	e, _ := newTestEnhancer(gw, Config{MaxAttempts: 2, MaxFailedBatches: 2})

	cards := makeCards(120)
	out := e.Enhance(context.Background(), cards, entities.CategoryGear)

	assert.Equal(t, 4, gw.calls, "two batches with two attempts each, third batch skipped")
	assert.Equal(t, 2, out.FailedBatches)
	assert.Equal(t, 1, out.SkippedBatches)
	assert.Empty(t, cmp.Diff(cards, out.Cards))
}

func TestEnhanceUnlimitedFailedBatches(t *testing.T) {
	gw := &fakeGateway{respond: failAlways}
	e, _ := newTestEnhancer(gw, Config{MaxAttempts: 1, MaxFailedBatches: 0})

	out := e.Enhance(context.Background(), makeCards(120), entities.CategoryGear)

	assert.Equal(t, 3, gw.calls)
	assert.Equal(t, 3, out.FailedBatches)
	assert.Zero(t, out.SkippedBatches)
}

func TestEnhanceRetriesThenSucceeds(t *testing.T) {
	gw := &fakeGateway{respond: func(call int, cards []map[string]any) (string, error) {
		if call == 1 {
			return "", errors.New("429 too many requests")
		}
		return renameAll(call, cards)
	}}
	e, slept := newTestEnhancer(gw, Config{MaxAttempts: 3, RetryBackoff: 10 * time.Millisecond})

	out := e.Enhance(context.Background(), makeCards(2), entities.CategoryGear)

	assert.False(t, out.Degraded)
	assert.Equal(t, 2, gw.calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, *slept)
	assert.Equal(t, "Card 001 (enhanced)", out.Cards[1].Name)
}

func TestEnhanceBackoffIsCapped(t *testing.T) {
	gw := &fakeGateway{respond: failAlways}
	e, slept := newTestEnhancer(gw, Config{MaxAttempts: 4, RetryBackoff: time.Second, MaxBackoff: 3 * time.Second})

	e.Enhance(context.Background(), makeCards(1), entities.CategoryGear)

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, *slept)
}

func TestEnhanceUnparseableReplyPassesThrough(t *testing.T) {
	gw := &fakeGateway{respond: func(int, []map[string]any) (string, error) {
		return "Sorry, I cannot review cards about alligators.", nil
	}}
	e, _ := newTestEnhancer(gw, Config{MaxAttempts: 1})

	cards := makeCards(2)
	out := e.Enhance(context.Background(), cards, entities.CategoryGear)

	assert.Empty(t, cmp.Diff(cards, out.Cards))
	assert.Empty(t, out.Suggestions)
	assert.ErrorIs(t, out.Err, ErrNoJSON)
}

func TestEnhanceScalarArrayInProseStillMerges(t *testing.T) {
	gw := &fakeGateway{respond: func(_ int, cards []map[string]any) (string, error) {
		return "Per rule [1] I tightened the wording:\n" +
			`{"cards":[{"name":"Better Boots"}],"suggestions":[{"cardName":"Better Boots","field":"flavor","suggestion":"Squelch.","reason":"Theme"}]}`, nil
	}}
	e, _ := newTestEnhancer(gw, Config{MaxAttempts: 1})

	out := e.Enhance(context.Background(), makeCards(1), entities.CategoryGear)

	require.NoError(t, out.Err)
	assert.Equal(t, "Better Boots", out.Cards[0].Name)
	require.Len(t, out.Suggestions, 1)
	assert.Equal(t, "Squelch.", out.Suggestions[0].Suggestion)
}

func TestEnhanceReplyWithoutUsableCardsPassesThrough(t *testing.T) {
	gw := &fakeGateway{respond: func(int, []map[string]any) (string, error) {
		return "See rule [1].", nil
	}}
	e, _ := newTestEnhancer(gw, Config{MaxAttempts: 1})

	cards := makeCards(1)
	out := e.Enhance(context.Background(), cards, entities.CategoryGear)

	assert.Empty(t, cmp.Diff(cards, out.Cards))
	assert.ErrorIs(t, out.Err, ErrNoJSON)
}

func TestEnhanceCancelledContext(t *testing.T) {
	gw := &fakeGateway{respond: renameAll}
	e, _ := newTestEnhancer(gw, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cards := makeCards(5)
	out := e.Enhance(ctx, cards, entities.CategoryGear)

	assert.Zero(t, gw.calls)
	assert.True(t, out.Degraded)
	assert.Equal(t, 1, out.SkippedBatches)
	assert.Empty(t, cmp.Diff(cards, out.Cards))
}

func TestEnhanceCancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	gw := &fakeGateway{respond: failAlways}
	// real sleep: the backoff timer must give way to the deadline
	e := NewEnhancer(gw, nil, Config{MaxAttempts: 3, RetryBackoff: time.Hour}, zap.NewNop())

	start := time.Now()
	out := e.Enhance(ctx, makeCards(1), entities.CategoryGear)

	assert.Less(t, time.Since(start), time.Minute)
	assert.Equal(t, 1, gw.calls)
	assert.True(t, out.Degraded)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
}

func TestEnhanceEmptyInput(t *testing.T) {
	gw := &fakeGateway{respond: renameAll}
	e, _ := newTestEnhancer(gw, DefaultConfig())

	out := e.Enhance(context.Background(), nil, entities.CategoryGear)

	assert.Zero(t, gw.calls)
	assert.NotNil(t, out.Cards)
	assert.Empty(t, out.Cards)
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, sleepContext(ctx, 0), context.Canceled)
}
