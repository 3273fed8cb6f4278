package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	auditRepo "github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/database/audit"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
)

type AuditController struct {
	events AuditReader
	logger *zap.Logger
}

func NewAuditController(events AuditReader, logger *zap.Logger) *AuditController {
	return &AuditController{events: events, logger: logger}
}

// List handles GET /api/audit?session_id=&type=&limit=&offset=
func (ac *AuditController) List(c *gin.Context) {
	limit, offset := parsePagination(c)
	filter := auditRepo.Filter{
		SessionID: c.Query("session_id"),
		EventType: entities.AuditEventType(c.Query("type")),
	}

	events, total, err := ac.events.GetEvents(filter, limit, offset)
	if err != nil {
		respondInternalError(c, ac.logger, err, "list audit events")
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    events,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(events)) < total,
	})
}
