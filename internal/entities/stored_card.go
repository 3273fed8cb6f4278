package entities

import (
	"time"

	"gorm.io/gorm"
)

type ImportStatus string

const (
	ImportStatusPending   ImportStatus = "pending"
	ImportStatusRunning   ImportStatus = "running"
	ImportStatusCompleted ImportStatus = "completed"
	ImportStatusFailed    ImportStatus = "failed"
)

// StoredCard is the persisted form of an imported card.
type StoredCard struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CardID      string         `gorm:"index;size:128" json:"card_id"`
	ImportRunID uint           `gorm:"index" json:"import_run_id"`
	Name        string         `gorm:"index;size:256" json:"name"`
	Type        Category       `gorm:"index;size:50" json:"type"`
	Category    string         `gorm:"size:100" json:"category,omitempty"`
	Keywords    []string       `gorm:"serializer:json" json:"keywords,omitempty"`
	Rules       []string       `gorm:"serializer:json" json:"rules,omitempty"`
	Flavor      string         `gorm:"type:text" json:"flavor,omitempty"`
	Icons       []string       `gorm:"serializer:json" json:"icons,omitempty"`
	ImagePrompt string         `gorm:"type:text" json:"image_prompt,omitempty"`
	Extra       map[string]any `gorm:"serializer:json" json:"extra,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (StoredCard) TableName() string {
	return "cards"
}

// NewStoredCard copies a card into its persisted form.
func NewStoredCard(runID uint, c Card) StoredCard {
	c = c.Clone()
	return StoredCard{
		CardID:      c.ID,
		ImportRunID: runID,
		Name:        c.Name,
		Type:        c.Type,
		Category:    c.Category,
		Keywords:    c.Keywords,
		Rules:       c.Rules,
		Flavor:      c.Flavor,
		Icons:       c.Icons,
		ImagePrompt: c.ImagePrompt,
		Extra:       c.Extra,
	}
}

// Card converts the stored row back into a card record.
func (s StoredCard) Card() Card {
	return Card{
		ID:          s.CardID,
		Name:        s.Name,
		Type:        s.Type,
		Category:    s.Category,
		Keywords:    s.Keywords,
		Rules:       s.Rules,
		Flavor:      s.Flavor,
		Icons:       s.Icons,
		ImagePrompt: s.ImagePrompt,
		Extra:       s.Extra,
	}.Clone()
}

// ImportRun records one committed (or rejected) import.
type ImportRun struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	SessionID   string       `gorm:"index;size:64" json:"session_id"`
	FileName    string       `gorm:"size:512" json:"file_name"`
	Format      string       `gorm:"size:32" json:"format"`
	Category    Category     `gorm:"size:50" json:"category"`
	Status      ImportStatus `gorm:"size:20;default:'pending'" json:"status"`
	Imported    int          `json:"imported"`
	Failed      int          `json:"failed"`
	Enhanced    bool         `json:"enhanced"`
	Errors      []string     `gorm:"serializer:json" json:"errors,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

func (ImportRun) TableName() string {
	return "import_runs"
}
