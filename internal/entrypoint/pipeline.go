package entrypoint

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/audit"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/config"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/database"
	auditRepo "github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/database/audit"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/database/cards"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/enhance"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/importers"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/llm"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/parsers"
)

// Storage bundles the database and the repositories built on it.
type Storage struct {
	DB    *database.Database
	Cards *cards.Repository
	Audit *audit.Service
}

// OpenStorage opens the main database and wires its repositories.
func OpenStorage(cfg *config.Config, logger *zap.Logger) (*Storage, error) {
	db, err := database.NewDatabase(cfg.Database.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return &Storage{
		DB:    db,
		Cards: cards.NewRepository(db.DB),
		Audit: audit.NewService(auditRepo.NewRepository(db.DB), logger),
	}, nil
}

// Close flushes pending audit writes and closes the database.
func (s *Storage) Close() error {
	s.Audit.Wait()
	return s.DB.Close()
}

// NewPipeline builds the import orchestrator. AI enhancement is wired only
// when a provider is configured and imports have AI enabled.
func NewPipeline(cfg *config.Config, logger *zap.Logger, opts ...importers.Option) (*importers.Orchestrator, error) {
	defaults, err := parsers.LoadDefaults(cfg.Import.CategoriesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load category defaults: %w", err)
	}

	var enhancer importers.Enhancer
	aiEnabled := cfg.Import.AIEnabled && cfg.AI.Provider != "" && cfg.AI.Provider != config.AIProviderNone
	if aiEnabled {
		gateway, err := llm.New(cfg.AI, logger.Named("llm"))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize AI gateway: %w", err)
		}
		enhancer = enhance.NewEnhancer(gateway, defaults, EnhanceConfig(cfg.AI), logger.Named("enhance"))
	} else {
		logger.Info("AI enhancement disabled", zap.String("provider", cfg.AI.Provider))
	}

	pipelineCfg := importers.Config{
		MaxFileSize: cfg.Import.MaxFileSize,
		AIEnabled:   aiEnabled,
	}
	return importers.NewOrchestrator(parsers.NewParser(defaults), enhancer, pipelineCfg, logger.Named("import"), opts...), nil
}

func EnhanceConfig(ai config.AI) enhance.Config {
	return enhance.Config{
		BatchThreshold:   ai.BatchThreshold,
		BatchSize:        ai.BatchSize,
		MaxAttempts:      ai.MaxAttempts,
		RetryBackoff:     ai.RetryBackoff,
		MaxBackoff:       ai.MaxBackoff,
		MaxFailedBatches: ai.MaxFailedBatches,
	}
}

// DefaultCategory resolves the configured upload category, falling back to gear.
func DefaultCategory(cfg *config.Config) entities.Category {
	if c, ok := entities.ParseCategory(cfg.Import.DefaultCategory); ok {
		return c
	}
	return entities.CategoryGear
}
