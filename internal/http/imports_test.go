package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/enhance"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/importers"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/tasks"
)

type enhancerFunc func(ctx context.Context, cards []entities.Card, category entities.Category) enhance.Output

func (f enhancerFunc) Enhance(ctx context.Context, cards []entities.Card, category entities.Category) enhance.Output {
	return f(ctx, cards, category)
}

func flavorSuggester(_ context.Context, cards []entities.Card, _ entities.Category) enhance.Output {
	return enhance.Output{
		Cards: entities.CloneCards(cards),
		Suggestions: []entities.Suggestion{
			{CardName: "Airboat Fan", Field: entities.FieldFlavor, Suggestion: "Loud enough to wake the dead.", Reason: "Missing flavor"},
			{CardName: "Gator Wrestling Gloves", Field: entities.FieldFlavor, Suggestion: "Mostly intact.", Reason: "Missing flavor"},
		},
		Batches: 1,
	}
}

func TestImportsCreateAndGet(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createImport(t)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/imports/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)

	snap := decode[importers.Snapshot](t, w)
	assert.Equal(t, id, snap.ID)
	assert.Equal(t, importers.StateIdle, snap.State)
	assert.Empty(t, snap.Cards)

	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/imports/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImportsDetect(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createImport(t)

	w := ts.do(uploadRequest(t, "/api/imports/"+id+"/detect", "cards.json", `[{"title":"A","type":"GEAR"}]`, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"format":{"kind":"json-transform","extension":".json"}}`, w.Body.String())

	w = ts.do(uploadRequest(t, "/api/imports/"+id+"/detect", "", "", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportsProcessFile(t *testing.T) {
	t.Run("MarkdownGear", func(t *testing.T) {
		ts := newTestServer(t)
		id := ts.createImport(t)

		w := ts.do(uploadRequest(t, "/api/imports/"+id+"/file", "gear.md", gearMarkdown, map[string]string{"category": "gear"}))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		out := decode[importers.Outcome](t, w)
		require.Len(t, out.ProcessedCards, 2)
		assert.Empty(t, out.Errors)
		assert.Equal(t, 2, out.Result.Imported)
		assert.Equal(t, "Gator Wrestling Gloves", out.ProcessedCards[0].Name)
	})

	t.Run("UnsupportedFormat", func(t *testing.T) {
		ts := newTestServer(t)
		id := ts.createImport(t)

		w := ts.do(uploadRequest(t, "/api/imports/"+id+"/file", "cards.txt", "hello", nil))
		require.Equal(t, http.StatusOK, w.Code)

		out := decode[importers.Outcome](t, w)
		assert.Empty(t, out.ProcessedCards)
		assert.Equal(t, []string{importers.MsgUnsupportedFormat}, out.Errors)
	})

	t.Run("MissingFile", func(t *testing.T) {
		ts := newTestServer(t)
		id := ts.createImport(t)

		w := ts.do(uploadRequest(t, "/api/imports/"+id+"/file", "", "", map[string]string{"category": "gear"}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("UnknownSession", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(uploadRequest(t, "/api/imports/nope/file", "gear.md", gearMarkdown, nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("TooLarge", func(t *testing.T) {
		ts := newTestServer(t)
		id := ts.createImport(t)

		big := make([]byte, (1<<20)+1)
		for i := range big {
			big[i] = 'a'
		}
		w := ts.do(uploadRequest(t, "/api/imports/"+id+"/file", "gear.md", string(big), nil))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestImportsProcessFileAsync(t *testing.T) {
	queue := &fakeQueue{}
	ts := newTestServer(t, withQueue(queue))
	id := ts.createImport(t)

	w := ts.do(uploadRequest(t, "/api/imports/"+id+"/file", "gear.md", gearMarkdown, map[string]string{
		"async":    "true",
		"enhance":  "false",
		"category": "hazard",
	}))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"task_id":"task-1"`)

	require.Len(t, queue.tasks, 1)
	task, ok := queue.tasks[0].(tasks.ProcessImportFileTask)
	require.True(t, ok)
	assert.Equal(t, id, task.SessionID)
	assert.Equal(t, "gear.md", task.FileName)
	assert.Equal(t, entities.CategoryHazard, task.Category)
	assert.Equal(t, gearMarkdown, string(task.Content))
	require.NotNil(t, task.AI)
	assert.False(t, *task.AI)

	// Without a queue the same request runs inline.
	inline := newTestServer(t)
	id = inline.createImport(t)
	w = inline.do(uploadRequest(t, "/api/imports/"+id+"/file", "gear.md", gearMarkdown, map[string]string{"async": "true"}))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestImportsProcessFileBusy(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	blocking := enhancerFunc(func(_ context.Context, cards []entities.Card, _ entities.Category) enhance.Output {
		close(started)
		<-release
		return enhance.Output{Cards: cards, Batches: 1}
	})

	ts := newTestServer(t, withEnhancer(blocking))
	id := ts.createImport(t)

	first := uploadRequest(t, "/api/imports/"+id+"/file", "gear.md", gearMarkdown, nil)
	done := make(chan int)
	go func() {
		done <- ts.do(first).Code
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("enhancer never started")
	}

	w := ts.do(uploadRequest(t, "/api/imports/"+id+"/file", "gear.md", gearMarkdown, nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), codeSessionBusy)

	w = ts.do(httptest.NewRequest(http.MethodPost, "/api/imports/"+id+"/commit", nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	close(release)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestImportsSuggestions(t *testing.T) {
	ts := newTestServer(t, withEnhancer(enhancerFunc(flavorSuggester)))
	id := ts.createImport(t)

	w := ts.do(uploadRequest(t, "/api/imports/"+id+"/file", "gear.md", gearMarkdown, nil))
	require.Equal(t, http.StatusOK, w.Code)
	out := decode[importers.Outcome](t, w)
	require.Len(t, out.Suggestions, 2)
	assert.True(t, out.Enhanced)

	w = ts.do(httptest.NewRequest(http.MethodPost, "/api/imports/"+id+"/suggestions/0/apply", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[struct {
		Suggestion entities.Suggestion `json:"suggestion"`
		Session    importers.Snapshot  `json:"session"`
	}](t, w)
	assert.Equal(t, "Airboat Fan", resp.Suggestion.CardName)
	require.Len(t, resp.Session.Suggestions, 1)
	assert.Equal(t, "Loud enough to wake the dead.", resp.Session.Cards[1].Flavor)

	w = ts.do(httptest.NewRequest(http.MethodPost, "/api/imports/"+id+"/suggestions/0/ignore", nil))
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[struct {
		Suggestion entities.Suggestion `json:"suggestion"`
		Session    importers.Snapshot  `json:"session"`
	}](t, w)
	assert.Empty(t, resp.Session.Suggestions)
	assert.Empty(t, resp.Session.Cards[0].Flavor)

	w = ts.do(httptest.NewRequest(http.MethodPost, "/api/imports/"+id+"/suggestions/0/apply", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(httptest.NewRequest(http.MethodPost, "/api/imports/"+id+"/suggestions/x/apply", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportsCommit(t *testing.T) {
	t.Run("CommitsOnce", func(t *testing.T) {
		ts := newTestServer(t)
		id := ts.createImport(t)

		w := ts.do(uploadRequest(t, "/api/imports/"+id+"/file", "gear.md", gearMarkdown, nil))
		require.Equal(t, http.StatusOK, w.Code)

		w = ts.do(httptest.NewRequest(http.MethodPost, "/api/imports/"+id+"/commit", nil))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		run := decode[entities.ImportRun](t, w)
		assert.NotZero(t, run.ID)
		assert.Equal(t, 2, run.Imported)
		assert.Equal(t, "gear.md", run.FileName)

		w = ts.do(httptest.NewRequest(http.MethodPost, "/api/imports/"+id+"/commit", nil))
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "already_committed")

		stored, total, err := ts.cards.ListCards(context.Background(), "", 10, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, stored, 2)
	})

	t.Run("NothingProcessed", func(t *testing.T) {
		ts := newTestServer(t)
		id := ts.createImport(t)

		w := ts.do(httptest.NewRequest(http.MethodPost, "/api/imports/"+id+"/commit", nil))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("ValidationErrors", func(t *testing.T) {
		ts := newTestServer(t)
		id := ts.createImport(t)

		w := ts.do(uploadRequest(t, "/api/imports/"+id+"/file", "cards.json", `[{"type":"gear"}]`, nil))
		require.Equal(t, http.StatusOK, w.Code)

		w = ts.do(httptest.NewRequest(http.MethodPost, "/api/imports/"+id+"/commit", nil))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestImportsDelete(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createImport(t)

	w := ts.do(httptest.NewRequest(http.MethodDelete, "/api/imports/"+id, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, ts.store.Len())

	w = ts.do(httptest.NewRequest(http.MethodDelete, "/api/imports/"+id, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImportsCurrentWithoutBrowserSessions(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/imports/current", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
