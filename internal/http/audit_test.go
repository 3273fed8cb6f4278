package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditRepo "github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/database/audit"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
)

func TestAuditList(t *testing.T) {
	db := newTestDatabase(t)
	repo := auditRepo.NewRepository(db.DB)
	for _, e := range []entities.AuditEvent{
		{SessionID: "a", EventType: entities.AuditEventImport, Action: "markdown_import", Status: entities.AuditStatusSuccess},
		{SessionID: "a", EventType: entities.AuditEventCommit, Action: "cards_commit", Status: entities.AuditStatusSuccess},
		{SessionID: "b", EventType: entities.AuditEventImport, Action: "json_import", Status: entities.AuditStatusSuccess},
	} {
		e := e
		require.NoError(t, repo.LogEvent(&e))
	}

	ts := newTestServer(t, func(cfg *RouterConfig) { cfg.Audit = repo })

	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/audit?session_id=a", nil))
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[struct {
		Data  []entities.AuditEvent `json:"data"`
		Total int64                 `json:"total"`
	}](t, w)
	assert.EqualValues(t, 2, page.Total)
	assert.Equal(t, "cards_commit", page.Data[0].Action, "newest first")

	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/audit?type=import", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":2`)
}
