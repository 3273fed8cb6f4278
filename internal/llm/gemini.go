package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/config"
)

// Gemini talks to the Gemini API through the google genai SDK.
type Gemini struct {
	client         *genai.Client
	models         []string
	requestTimeout time.Duration
	logger         *zap.Logger
}

func NewGemini(ctx context.Context, cfg config.AI, logger *zap.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key missing; set AI_API_KEY")
	}
	if len(cfg.Models) == 0 {
		return nil, ErrNoModels
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Gemini{
		client:         client,
		models:         cfg.Models,
		requestTimeout: cfg.RequestTimeout,
		logger:         logger,
	}, nil
}

func (g *Gemini) CreateChatCompletion(ctx context.Context, systemPrompt string, messages []Message) (string, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	genCfg := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	return withModelFallback(ctx, g.models, g.logger, func(ctx context.Context, model string) (string, error) {
		if g.requestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.requestTimeout)
			defer cancel()
		}

		resp, err := g.client.Models.GenerateContent(ctx, model, contents, genCfg)
		if err != nil {
			return "", fmt.Errorf("GenAI generate failed: %w", err)
		}
		return resp.Text(), nil
	})
}

var _ Gateway = (*Gemini)(nil)
