package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/enhance"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/entities"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/importers"
	"github.com/Rylee-ai/flomanji-ai-playtest-lab-sub002/internal/tasks"
)

const codeSessionBusy = "session_busy"

// ImportsController exposes import sessions to the view layer.
type ImportsController struct {
	store           *importers.Store
	orchestrator    *importers.Orchestrator
	queue           TaskQueue
	browser         *BrowserSessions
	defaultCategory entities.Category
	maxFileSize     int64
	logger          *zap.Logger
}

// NewImportsController creates the controller. queue and browser are optional.
func NewImportsController(store *importers.Store, orchestrator *importers.Orchestrator, queue TaskQueue, browser *BrowserSessions, defaultCategory entities.Category, maxFileSize int64, logger *zap.Logger) *ImportsController {
	return &ImportsController{
		store:           store,
		orchestrator:    orchestrator,
		queue:           queue,
		browser:         browser,
		defaultCategory: defaultCategory,
		maxFileSize:     maxFileSize,
		logger:          logger,
	}
}

// Create handles POST /api/imports
func (ic *ImportsController) Create(c *gin.Context) {
	s := ic.store.Create()
	if ic.browser != nil {
		ic.browser.SetCurrentImport(c.Request, s.ID)
	}
	respondCreated(c, gin.H{"id": s.ID})
}

// Current handles GET /api/imports/current
func (ic *ImportsController) Current(c *gin.Context) {
	if ic.browser == nil {
		respondNotFound(c, "current import")
		return
	}
	id := ic.browser.CurrentImport(c.Request)
	if id == "" {
		respondNotFound(c, "current import")
		return
	}
	s, err := ic.store.Get(id)
	if err != nil {
		ic.browser.ClearCurrentImport(c.Request, id)
		respondNotFound(c, "current import")
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

// Get handles GET /api/imports/:id
func (ic *ImportsController) Get(c *gin.Context) {
	s, ok := ic.loadSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

// Detect handles POST /api/imports/:id/detect
func (ic *ImportsController) Detect(c *gin.Context) {
	s, ok := ic.loadSession(c)
	if !ok {
		return
	}
	header, content, ok := ic.readUpload(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"format": ic.orchestrator.Detect(s, header.Filename, content)})
}

// ProcessFile handles POST /api/imports/:id/file
// Runs the pipeline inline, or enqueues it when async=true and a task
// queue is configured.
func (ic *ImportsController) ProcessFile(c *gin.Context) {
	s, ok := ic.loadSession(c)
	if !ok {
		return
	}

	category := ic.defaultCategory
	if raw := c.PostForm("category"); raw != "" {
		category, _ = entities.ParseCategory(raw)
	}

	var opts []importers.ProcessOption
	var aiOverride *bool
	if v, ok := parseBoolField(c, "enhance"); ok {
		opts = append(opts, importers.WithAI(v))
		aiOverride = &v
	}

	header, content, ok := ic.readUpload(c)
	if !ok {
		return
	}

	if async, _ := parseBoolField(c, "async"); async && ic.queue != nil {
		taskID, err := ic.queue.Enqueue(c.Request.Context(), tasks.ProcessImportFileTask{
			SessionID: s.ID,
			FileName:  header.Filename,
			Content:   content,
			Category:  category,
			AI:        aiOverride,
		})
		if err != nil {
			respondInternalError(c, ic.logger, err, "enqueue import")
			return
		}
		respondAccepted(c, "import queued", gin.H{"task_id": taskID, "session_id": s.ID})
		return
	}

	file := importers.RawFile{Name: header.Filename, Reader: bytes.NewReader(content)}
	out, err := ic.orchestrator.ProcessFile(c.Request.Context(), s, file, category, opts...)
	if errors.Is(err, importers.ErrSessionBusy) {
		respondConflict(c, codeSessionBusy, "an import is already running for this session")
		return
	}
	if err != nil {
		respondInternalError(c, ic.logger, err, "process import")
		return
	}
	c.JSON(http.StatusOK, out)
}

// ApplySuggestion handles POST /api/imports/:id/suggestions/:index/apply
func (ic *ImportsController) ApplySuggestion(c *gin.Context) {
	ic.resolveSuggestion(c, ic.orchestrator.ApplySuggestion)
}

// IgnoreSuggestion handles POST /api/imports/:id/suggestions/:index/ignore
func (ic *ImportsController) IgnoreSuggestion(c *gin.Context) {
	ic.resolveSuggestion(c, ic.orchestrator.IgnoreSuggestion)
}

func (ic *ImportsController) resolveSuggestion(c *gin.Context, resolve func(*importers.Session, int) (entities.Suggestion, error)) {
	s, ok := ic.loadSession(c)
	if !ok {
		return
	}
	index, ok := parseIndexParam(c, "index")
	if !ok {
		return
	}

	sug, err := resolve(s, index)
	switch {
	case errors.Is(err, importers.ErrSessionBusy):
		respondConflict(c, codeSessionBusy, "an import is already running for this session")
	case errors.Is(err, enhance.ErrSuggestionNotFound):
		respondNotFound(c, "suggestion")
	case err != nil:
		respondInternalError(c, ic.logger, err, "resolve suggestion")
	default:
		c.JSON(http.StatusOK, gin.H{"suggestion": sug, "session": s.Snapshot()})
	}
}

// Commit handles POST /api/imports/:id/commit
func (ic *ImportsController) Commit(c *gin.Context) {
	s, ok := ic.loadSession(c)
	if !ok {
		return
	}

	run, err := ic.orchestrator.Commit(c.Request.Context(), s)
	switch {
	case errors.Is(err, importers.ErrSessionBusy):
		respondConflict(c, codeSessionBusy, "an import is already running for this session")
	case errors.Is(err, importers.ErrAlreadyCommitted):
		respondConflict(c, "already_committed", err.Error())
	case errors.Is(err, importers.ErrNothingToCommit):
		respondError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, importers.ErrNoCardStore):
		respondError(c, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		respondInternalError(c, ic.logger, err, "commit import")
	default:
		respondCreated(c, run)
	}
}

// Delete handles DELETE /api/imports/:id
func (ic *ImportsController) Delete(c *gin.Context) {
	id := c.Param("id")
	if !ic.store.Delete(id) {
		respondNotFound(c, "import session")
		return
	}
	if ic.browser != nil {
		ic.browser.ClearCurrentImport(c.Request, id)
	}
	c.Status(http.StatusNoContent)
}

func (ic *ImportsController) loadSession(c *gin.Context) (*importers.Session, bool) {
	s, err := ic.store.Get(c.Param("id"))
	if errors.Is(err, importers.ErrSessionNotFound) {
		respondNotFound(c, "import session")
		return nil, false
	}
	if err != nil {
		respondInternalError(c, ic.logger, err, "load import session")
		return nil, false
	}
	return s, true
}

// readUpload reads the multipart "file" field in full.
func (ic *ImportsController) readUpload(c *gin.Context) (*multipart.FileHeader, []byte, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		respondBadRequest(c, "file is required")
		return nil, nil, false
	}
	if ic.maxFileSize > 0 && header.Size > ic.maxFileSize {
		respondError(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds the %d byte limit", ic.maxFileSize))
		return nil, nil, false
	}

	f, err := header.Open()
	if err != nil {
		respondBadRequest(c, "could not open uploaded file")
		return nil, nil, false
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		respondBadRequest(c, "could not read uploaded file")
		return nil, nil, false
	}
	return header, content, true
}
