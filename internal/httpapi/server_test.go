package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ent0n29/tasklist/internal/config"
	"github.com/ent0n29/tasklist/internal/events"
	"github.com/ent0n29/tasklist/internal/logging"
	"github.com/ent0n29/tasklist/internal/observability"
	"github.com/ent0n29/tasklist/internal/tasks"
)

var namespaceSeq atomic.Int64

type testEnv struct {
	ts        *httptest.Server
	hub       *events.Hub
	namespace string
}

func newTestEnv(t *testing.T, cfg config.Config, store tasks.Store) *testEnv {
	t.Helper()
	if store == nil {
		store = tasks.NewMemoryStore()
	}
	namespace := fmt.Sprintf("test_httpapi_%d_%d", time.Now().UnixNano(), namespaceSeq.Add(1))
	metrics := observability.NewMetrics(namespace)
	logger := logging.New(io.Discard, "debug", "json")
	hub := events.NewHub(16)
	service := tasks.NewService(store, hub, logger)

	ts := httptest.NewServer(New(cfg, service, hub, metrics, logger).Router())
	t.Cleanup(func() {
		hub.Close()
		ts.Close()
	})
	return &testEnv{ts: ts, hub: hub, namespace: namespace}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, data
}

func (e *testEnv) list(t *testing.T) []taskResponse {
	t.Helper()
	status, body := e.do(t, http.MethodGet, "/tasks", "")
	require.Equal(t, http.StatusOK, status)
	var out []taskResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func (e *testEnv) add(t *testing.T, text string) taskResponse {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"text": text})
	status, body := e.do(t, http.MethodPost, "/add", string(payload))
	require.Equal(t, http.StatusCreated, status, string(body))
	var out taskMessageResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotNil(t, out.Task)
	return *out.Task
}

func decodeError(t *testing.T, body []byte) errorResponse {
	t.Helper()
	var out errorResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestListTasksEmpty(t *testing.T) {
	env := newTestEnv(t, config.Config{}, nil)

	status, body := env.do(t, http.MethodGet, "/tasks", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))
}

func TestAddTaskTrimsText(t *testing.T) {
	env := newTestEnv(t, config.Config{}, nil)

	status, body := env.do(t, http.MethodPost, "/add", `{"text":"  Buy milk  "}`)
	require.Equal(t, http.StatusCreated, status)

	var out taskMessageResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "Task added", out.Message)
	require.NotNil(t, out.Task)
	assert.Equal(t, "Buy milk", out.Task.Text)
	assert.Greater(t, out.Task.ID, int64(0))

	assert.Equal(t, []taskResponse{*out.Task}, env.list(t))
}

func TestAddTaskRejectsMissingOrEmptyText(t *testing.T) {
	env := newTestEnv(t, config.Config{}, nil)

	bodies := []string{
		"",
		"{}",
		`{"text":""}`,
		`{"text":"   "}`,
		`{"text":null}`,
		`{"text":5}`,
		`{"other":"x"}`,
		"not json",
		"[]",
	}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			status, resp := env.do(t, http.MethodPost, "/add", body)
			assert.Equal(t, http.StatusBadRequest, status)
			errResp := decodeError(t, resp)
			assert.Equal(t, "Missing or empty 'text' field", errResp.Error)
			assert.Equal(t, "invalid_request", errResp.Code)
		})
	}
	assert.Empty(t, env.list(t))
}

func TestUpdateTask(t *testing.T) {
	env := newTestEnv(t, config.Config{}, nil)
	task := env.add(t, "draft")

	status, body := env.do(t, http.MethodPut, "/update/"+itoa(task.ID), `{"text":" final "}`)
	require.Equal(t, http.StatusOK, status)
	var out taskMessageResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "Task updated", out.Message)
	assert.Equal(t, &taskResponse{ID: task.ID, Text: "final"}, out.Task)

	assert.Equal(t, []taskResponse{{ID: task.ID, Text: "final"}}, env.list(t))
}

func TestUpdateTaskErrors(t *testing.T) {
	env := newTestEnv(t, config.Config{}, nil)
	task := env.add(t, "keep me")

	status, body := env.do(t, http.MethodPut, "/update/"+itoa(task.ID), `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Missing 'text' field", decodeError(t, body).Error)

	status, _ = env.do(t, http.MethodPut, "/update/"+itoa(task.ID), "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = env.do(t, http.MethodPut, "/update/9999", `{"text":"x"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Task not found", decodeError(t, body).Error)

	status, _ = env.do(t, http.MethodPut, "/update/abc", `{"text":"x"}`)
	assert.Equal(t, http.StatusNotFound, status)

	assert.Equal(t, []taskResponse{task}, env.list(t))
}

// Update does not reject whitespace-only text the way add does; the task
// ends up with empty text.
func TestUpdateTaskAcceptsBlankText(t *testing.T) {
	env := newTestEnv(t, config.Config{}, nil)
	task := env.add(t, "something")

	status, body := env.do(t, http.MethodPut, "/update/"+itoa(task.ID), `{"text":"   "}`)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, []taskResponse{{ID: task.ID, Text: ""}}, env.list(t))
}

func TestDeleteTask(t *testing.T) {
	env := newTestEnv(t, config.Config{}, nil)
	task := env.add(t, "temp")

	status, body := env.do(t, http.MethodDelete, "/delete/"+itoa(task.ID), "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Task deleted"}`, string(body))
	assert.Empty(t, env.list(t))

	status, body = env.do(t, http.MethodDelete, "/delete/"+itoa(task.ID), "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "task_not_found", decodeError(t, body).Code)

	status, _ = env.do(t, http.MethodDelete, "/delete/nope", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestListTasksSortedByID(t *testing.T) {
	env := newTestEnv(t, config.Config{}, nil)
	a := env.add(t, "a")
	b := env.add(t, "b")
	c := env.add(t, "c")

	status, _ := env.do(t, http.MethodDelete, "/delete/"+itoa(b.ID), "")
	require.Equal(t, http.StatusOK, status)
	d := env.add(t, "d")

	list := env.list(t)
	assert.Equal(t, []taskResponse{a, c, d}, list)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].ID, list[i].ID)
	}
}

func TestTaskRoundTripOnSQLite(t *testing.T) {
	store, err := tasks.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	env := newTestEnv(t, config.Config{}, store)

	task := env.add(t, "round trip")
	assert.Contains(t, env.list(t), task)

	status, _ := env.do(t, http.MethodPut, "/update/"+itoa(task.ID), `{"text":"round trip, edited"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []taskResponse{{ID: task.ID, Text: "round trip, edited"}}, env.list(t))

	status, _ = env.do(t, http.MethodDelete, "/delete/"+itoa(task.ID), "")
	require.Equal(t, http.StatusOK, status)
	for _, got := range env.list(t) {
		assert.NotEqual(t, task.ID, got.ID)
	}
}

type brokenStore struct {
	*tasks.MemoryStore
}

var errBroken = errors.New("storage offline")

func (brokenStore) ListTasks(context.Context) ([]tasks.Task, error) { return nil, errBroken }
func (brokenStore) Ping(context.Context) error                      { return errBroken }

func TestStorageFailureIsInternalError(t *testing.T) {
	env := newTestEnv(t, config.Config{}, brokenStore{tasks.NewMemoryStore()})

	status, body := env.do(t, http.MethodGet, "/tasks", "")
	assert.Equal(t, http.StatusInternalServerError, status)
	errResp := decodeError(t, body)
	assert.Equal(t, "internal_error", errResp.Code)
	assert.NotContains(t, errResp.Error, "storage offline")

	status, _ = env.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, config.Config{}, nil)

	status, body := env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok","store":"memory"}`, string(body))

	status, body = env.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ready","store":"memory"}`, string(body))
}

func TestStaticRoutes(t *testing.T) {
	env := newTestEnv(t, config.Config{}, nil)

	status, body := env.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `id="task-list"`)

	status, body = env.do(t, http.MethodGet, "/app.js", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "/events/ws")

	status, _ = env.do(t, http.MethodGet, "/missing.js", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestStaticDirOverridesEmbeddedBundle(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<p>custom</p>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "a.txt"), []byte("asset"), 0o644))

	env := newTestEnv(t, config.Config{StaticDir: dir}, nil)

	status, body := env.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "<p>custom</p>", string(body))

	status, body = env.do(t, http.MethodGet, "/assets/a.txt", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "asset", string(body))

	// Directories without an index are not listed.
	status, _ = env.do(t, http.MethodGet, "/assets/", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCORSAllowsAnyOriginByDefault(t *testing.T) {
	env := newTestEnv(t, config.Config{}, nil)

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/tasks", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://elsewhere.test")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))

	preflight, err := http.NewRequest(http.MethodOptions, env.ts.URL+"/add", nil)
	require.NoError(t, err)
	preflight.Header.Set("Origin", "http://elsewhere.test")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	preflight.Header.Set("Access-Control-Request-Headers", "Content-Type")
	res, err = http.DefaultClient.Do(preflight)
	require.NoError(t, err)
	res.Body.Close()
	assert.Less(t, res.StatusCode, 300)
	assert.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, res.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestCORSRestrictedOrigins(t *testing.T) {
	env := newTestEnv(t, config.Config{AllowedOrigins: []string{"http://ui.test"}}, nil)

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/tasks", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://evil.test")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Empty(t, res.Header.Get("Access-Control-Allow-Origin"))

	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/events/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"http://evil.test"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestEventsWebSocketStreamsChanges(t *testing.T) {
	env := newTestEnv(t, config.Config{}, nil)

	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/events/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	task := env.add(t, "watch me")
	status, _ := env.do(t, http.MethodDelete, "/delete/"+itoa(task.ID), "")
	require.Equal(t, http.StatusOK, status)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var added, deleted events.Event
	require.NoError(t, conn.ReadJSON(&added))
	require.NoError(t, conn.ReadJSON(&deleted))

	assert.Equal(t, events.TypeTaskAdded, added.Type)
	assert.Equal(t, task.ID, added.TaskID)
	assert.Equal(t, "watch me", added.Text)
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, events.TypeTaskDeleted, deleted.Type)
	assert.Equal(t, task.ID, deleted.TaskID)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, config.Config{}, nil)
	env.add(t, "counted")

	status, body := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, bytes.Contains(body, []byte(env.namespace+"_task_operations_total")))
	assert.True(t, bytes.Contains(body, []byte(env.namespace+"_http_requests_total")))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
