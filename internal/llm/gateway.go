// Package llm is the chat-completion gateway used by AI enhancement.
// Callers see a single text-in/text-out call; model selection, model
// fallback and API keys live here.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/config"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Gateway sends a chat completion request and returns the model's text.
type Gateway interface {
	CreateChatCompletion(ctx context.Context, systemPrompt string, messages []Message) (string, error)
}

// GatewayFunc adapts a function to the Gateway interface.
type GatewayFunc func(ctx context.Context, systemPrompt string, messages []Message) (string, error)

func (f GatewayFunc) CreateChatCompletion(ctx context.Context, systemPrompt string, messages []Message) (string, error) {
	return f(ctx, systemPrompt, messages)
}

var (
	ErrDisabled      = errors.New("AI gateway is disabled")
	ErrNoModels      = errors.New("no AI models configured")
	ErrEmptyResponse = errors.New("empty completion")
)

// Disabled is the gateway used when no provider is configured.
type Disabled struct{}

func (Disabled) CreateChatCompletion(context.Context, string, []Message) (string, error) {
	return "", ErrDisabled
}

// New builds the gateway for the configured provider.
func New(cfg config.AI, logger *zap.Logger) (Gateway, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", config.AIProviderNone:
		return Disabled{}, nil
	case config.AIProviderOpenAI:
		return NewOpenAI(cfg, logger)
	case config.AIProviderGemini:
		return NewGemini(context.Background(), cfg, logger)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}

// completeFunc performs one completion against a single model.
type completeFunc func(ctx context.Context, model string) (string, error)

// withModelFallback tries each model in order and returns the first
// non-empty completion. Cancellation stops the walk immediately.
func withModelFallback(ctx context.Context, models []string, logger *zap.Logger, complete completeFunc) (string, error) {
	if len(models) == 0 {
		return "", ErrNoModels
	}

	var errs []error
	for _, model := range models {
		text, err := complete(ctx, model)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrEmptyResponse
		}
		if err == nil {
			return text, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		logger.Warn("AI model failed, trying next",
			zap.String("model", model),
			zap.Error(err),
		)
		errs = append(errs, fmt.Errorf("model %s: %w", model, err))
	}
	return "", errors.Join(errs...)
}
