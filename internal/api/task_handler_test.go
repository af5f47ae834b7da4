package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolaton/genqueue/internal/api"
	"github.com/tolaton/genqueue/internal/domain"
	"github.com/tolaton/genqueue/internal/lifecycle"
	"github.com/tolaton/genqueue/internal/queue"
	"github.com/tolaton/genqueue/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer wires a full producer surface over in-memory backends.
func newTestServer(t *testing.T) (*httptest.Server, *lifecycle.Manager) {
	t.Helper()

	st := store.NewMemoryStore()
	q := queue.NewMemoryQueue(16, testLogger())
	m, err := lifecycle.NewManager(st, q, time.Hour, testLogger())
	require.NoError(t, err)

	handler := api.NewTaskHandler(m, testLogger())
	srv := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv, m
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func TestCreateTask(t *testing.T) {
	t.Parallel()

	srv, m := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/tasks", map[string]any{
		"prompt":   "Write a haiku about artificial intelligence",
		"metadata": map[string]any{"source": "api_test"},
	})
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var created api.CreateTaskResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.TaskID)
	assert.Equal(t, "PENDING", created.Status)

	// The record is immediately readable through the manager.
	task, err := m.GetStatus(context.Background(), created.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, task.Status)
}

func TestCreateTaskRejectsMissingPrompt(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/tasks", map[string]any{"metadata": map[string]any{}})
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateTaskRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/tasks", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetTask(t *testing.T) {
	t.Parallel()

	srv, m := newTestServer(t)
	ctx := context.Background()

	taskID, err := m.Create(ctx, "Write a haiku", map[string]any{"source": "api_test"})
	require.NoError(t, err)
	require.NoError(t, m.MarkProcessing(ctx, taskID))
	require.NoError(t, m.MarkCompleted(ctx, taskID, "Silent circuits hum"))

	resp, err := http.Get(srv.URL + "/api/tasks/" + taskID)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got api.TaskResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, taskID, got.TaskID)
	assert.Equal(t, "COMPLETED", got.Status)
	assert.Equal(t, "Silent circuits hum", got.Result)
	assert.Empty(t, got.Error)
	require.NotNil(t, got.CompletedAt)
}

func TestGetTaskNotFound(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/tasks/00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
