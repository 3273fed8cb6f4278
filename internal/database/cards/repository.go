package cards

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
)

var ErrNoCards = errors.New("no cards to save")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SaveImport creates the run and inserts every card under it in a single
// transaction. Existing cards are never matched or updated.
func (r *Repository) SaveImport(ctx context.Context, run *entities.ImportRun, cards []entities.Card) error {
	if len(cards) == 0 {
		return ErrNoCards
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if run.Status == "" {
			run.Status = entities.ImportStatusCompleted
		}
		run.Imported = len(cards)
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("failed to create import run: %w", err)
		}

		rows := make([]entities.StoredCard, len(cards))
		for i, c := range cards {
			rows[i] = entities.NewStoredCard(run.ID, c)
		}
		if err := tx.CreateInBatches(rows, 100).Error; err != nil {
			return fmt.Errorf("failed to insert cards: %w", err)
		}
		return nil
	})
}

// ListCards returns stored cards, newest first. An empty type lists all.
func (r *Repository) ListCards(ctx context.Context, cardType entities.Category, limit, offset int) ([]entities.StoredCard, int64, error) {
	var rows []entities.StoredCard
	var total int64

	query := r.db.WithContext(ctx).Model(&entities.StoredCard{})
	if cardType != "" {
		query = query.Where("type = ?", cardType)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	err := query.Order("id DESC").Find(&rows).Error
	return rows, total, err
}

func (r *Repository) GetCardsForRun(ctx context.Context, runID uint) ([]entities.StoredCard, error) {
	var rows []entities.StoredCard
	err := r.db.WithContext(ctx).Where("import_run_id = ?", runID).Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) GetImportRun(ctx context.Context, id uint) (*entities.ImportRun, error) {
	var run entities.ImportRun
	if err := r.db.WithContext(ctx).First(&run, id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *Repository) ListImportRuns(ctx context.Context, limit int) ([]entities.ImportRun, error) {
	var runs []entities.ImportRun
	query := r.db.WithContext(ctx).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&runs).Error
	return runs, err
}
