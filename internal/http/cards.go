package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
)

type CardsController struct {
	store  CardStore
	logger *zap.Logger
}

func NewCardsController(store CardStore, logger *zap.Logger) *CardsController {
	return &CardsController{store: store, logger: logger}
}

// List handles GET /api/cards?type=&limit=&offset=
func (cc *CardsController) List(c *gin.Context) {
	limit, offset := parsePagination(c)

	var cardType entities.Category
	if raw := c.Query("type"); raw != "" {
		cardType, _ = entities.ParseCategory(raw)
	}

	rows, total, err := cc.store.ListCards(c.Request.Context(), cardType, limit, offset)
	if err != nil {
		respondInternalError(c, cc.logger, err, "list cards")
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    toCards(rows),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(rows)) < total,
	})
}

// ListRuns handles GET /api/runs
func (cc *CardsController) ListRuns(c *gin.Context) {
	limit, _ := parsePagination(c)
	runs, err := cc.store.ListImportRuns(c.Request.Context(), limit)
	if err != nil {
		respondInternalError(c, cc.logger, err, "list import runs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun handles GET /api/runs/:id
func (cc *CardsController) GetRun(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	run, err := cc.store.GetImportRun(c.Request.Context(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, "import run")
		return
	}
	if err != nil {
		respondInternalError(c, cc.logger, err, "get import run")
		return
	}

	rows, err := cc.store.GetCardsForRun(c.Request.Context(), id)
	if err != nil {
		respondInternalError(c, cc.logger, err, "get run cards")
		return
	}

	c.JSON(http.StatusOK, gin.H{"run": run, "cards": toCards(rows)})
}

func toCards(rows []entities.StoredCard) []entities.Card {
	cards := make([]entities.Card, len(rows))
	for i, row := range rows {
		cards[i] = row.Card()
	}
	return cards
}
