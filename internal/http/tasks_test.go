package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
)

func TestTasksStatus(t *testing.T) {
	queue := &fakeQueue{status: backlite.TaskStatusRunning}
	ts := newTestServer(t, withQueue(queue))

	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/tasks/task-1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"task-1","status":"running"}`, w.Body.String())

	queue.err = errors.New("db locked")
	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/tasks/task-1", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTasksRouteNeedsQueue(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/tasks/task-1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
