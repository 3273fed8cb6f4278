package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/database"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/database/cards"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/importers"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/parsers"
)

const gearMarkdown = `**1. Gator Wrestling Gloves**
Type: gear
Keywords: Tool
Rules: Gain +1 Brawn when fighting reptiles.

**2. Airboat Fan**
Type: gear
Keywords: Vehicle
`

type testServer struct {
	router *gin.Engine
	store  *importers.Store
	cards  *cards.Repository
}

type serverOption func(*RouterConfig)

func withEnhancer(e importers.Enhancer) serverOption {
	return func(cfg *RouterConfig) {
		cfg.Orchestrator = importers.NewOrchestrator(parsers.NewParser(nil), e, importers.Config{AIEnabled: true}, zap.NewNop(),
			importers.WithCardSaver(cfg.Cards.(*cards.Repository)))
	}
}

func withQueue(q TaskQueue) serverOption {
	return func(cfg *RouterConfig) { cfg.TaskQueue = q }
}

func newTestDatabase(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	db := newTestDatabase(t)
	repo := cards.NewRepository(db.DB)
	store := importers.NewStore()

	cfg := RouterConfig{
		Sessions:        store,
		Orchestrator:    importers.NewOrchestrator(parsers.NewParser(nil), nil, importers.Config{MaxFileSize: 1 << 20}, zap.NewNop(), importers.WithCardSaver(repo)),
		DefaultCategory: entities.CategoryGear,
		MaxFileSize:     1 << 20,
		Cards:           repo,
		Version:         "test",
		Logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &testServer{router: NewRouter(cfg), store: store, cards: repo}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) createImport(t *testing.T) string {
	t.Helper()
	w := ts.do(httptest.NewRequest(http.MethodPost, "/api/imports", nil))
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.ID)
	return body.ID
}

// uploadRequest builds a multipart request carrying one file plus form fields.
func uploadRequest(t *testing.T, url, fileName, content string, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type fakeQueue struct {
	tasks  []backlite.Task
	status backlite.TaskStatus
	err    error
}

func (q *fakeQueue) Enqueue(_ context.Context, task backlite.Task) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.tasks = append(q.tasks, task)
	return "task-1", nil
}

func (q *fakeQueue) Status(context.Context, string) (backlite.TaskStatus, error) {
	return q.status, q.err
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
