package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-playground/pkg/autosave"
	"github.com/mattsolo1/grove-playground/pkg/logging"
	"github.com/mattsolo1/grove-playground/pkg/service"
	"github.com/mattsolo1/grove-playground/pkg/store"
	"github.com/mattsolo1/grove-playground/pkg/tree"
)

func setupTestServer(t *testing.T, open bool) (*Server, *store.Memory) {
	t.Helper()

	mem := store.NewMemory()
	require.NoError(t, mem.Write(context.Background(), "ws", &store.Document{Items: []tree.Item{
		{ID: "1", Name: "main.go", Type: tree.TypeFile, Content: "package main"},
		{ID: "2", Name: "docs", Type: tree.TypeFolder},
	}}))

	svc, err := service.New(&service.Config{DataDir: t.TempDir(), Window: time.Hour}, mem,
		service.WithLogger(logging.Discard()),
		service.WithSchedulerOptions(autosave.WithLogger(logging.Discard())))
	require.NoError(t, err)

	srv := New(svc, Config{Addr: ":0"}, logging.Discard())
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		svc.Close(context.Background())
	})

	if open {
		_, err := svc.OpenWorkspace(context.Background(), "ws")
		require.NoError(t, err)
	}
	return srv, mem
}

func do(t *testing.T, srv *Server, method, target, body string) (int, map[string]any) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func storedContent(t *testing.T, mem *store.Memory, id string) string {
	t.Helper()
	doc, err := mem.Read(context.Background(), "ws")
	require.NoError(t, err)
	item, ok := tree.Locate(doc.Items, id)
	require.True(t, ok)
	return item.Content
}

func TestHealth(t *testing.T) {
	srv, _ := setupTestServer(t, true)

	code, body := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ws", body["workspace"])
}

func TestWorkspaceRequiresOpen(t *testing.T) {
	srv, _ := setupTestServer(t, false)

	code, body := do(t, srv, http.MethodGet, "/api/v1/workspace", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, body["error"], "no active workspace")

	code, body = do(t, srv, http.MethodPut, "/api/v1/workspace/ws", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ws", body["workspace"])
	assert.Len(t, body["items"], 2)
}

func TestEditIsAcceptedThenFlushed(t *testing.T) {
	srv, mem := setupTestServer(t, true)

	code, body := do(t, srv, http.MethodPost, "/api/v1/files/1/open", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "go", body["language"])
	assert.Equal(t, "package main", body["content"])

	code, body = do(t, srv, http.MethodPut, "/api/v1/files/1", `{"content":"package main\n\nfunc main() {}"}`)
	require.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "pending", body["status"])
	assert.EqualValues(t, 1, body["revision"])
	assert.Equal(t, "package main", storedContent(t, mem, "1"), "edits are saved later")

	code, body = do(t, srv, http.MethodGet, "/api/v1/files/1", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "package main\n\nfunc main() {}", body["content"])

	code, body = do(t, srv, http.MethodPost, "/api/v1/flush", "")
	require.Equal(t, http.StatusOK, code)
	results := body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "committed", results[0].(map[string]any)["outcome"])
	assert.Equal(t, "package main\n\nfunc main() {}", storedContent(t, mem, "1"))

	code, body = do(t, srv, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["committed"])
	assert.Equal(t, []any{"1"}, body["openFiles"])
	assert.Empty(t, body["pendingFiles"])

	code, _ = do(t, srv, http.MethodDelete, "/api/v1/files/1/open", "")
	assert.Equal(t, http.StatusNoContent, code)
}

func TestEditValidation(t *testing.T) {
	srv, _ := setupTestServer(t, true)

	code, body := do(t, srv, http.MethodPut, "/api/v1/files/1", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "content is required", body["error"])

	code, _ = do(t, srv, http.MethodPut, "/api/v1/files/1", `{"content":`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestFileErrors(t *testing.T) {
	srv, _ := setupTestServer(t, true)

	code, _ := do(t, srv, http.MethodGet, "/api/v1/files/missing", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, srv, http.MethodPost, "/api/v1/files/2/open", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, srv, http.MethodGet, "/api/v1/nothing-here", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestItemLifecycle(t *testing.T) {
	srv, _ := setupTestServer(t, true)

	code, body := do(t, srv, http.MethodPost, "/api/v1/items", `{"parentId":"2","name":"guide.md","content":"# Guide"}`)
	require.Equal(t, http.StatusCreated, code)
	id := body["id"].(string)
	assert.Equal(t, "file", body["type"])

	code, body = do(t, srv, http.MethodGet, "/api/v1/files/"+id, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "docs/guide.md", body["path"])
	assert.Equal(t, "markdown", body["language"])

	code, _ = do(t, srv, http.MethodPatch, "/api/v1/items/"+id, `{"name":"guide.txt"}`)
	require.Equal(t, http.StatusNoContent, code)

	code, body = do(t, srv, http.MethodGet, "/api/v1/files/"+id, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "plaintext", body["language"])

	code, _ = do(t, srv, http.MethodPost, "/api/v1/items", `{"parentId":"1","name":"x","type":"file"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, srv, http.MethodPost, "/api/v1/items", `{"name":"x","type":"symlink"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, srv, http.MethodDelete, "/api/v1/items/"+id, "")
	require.Equal(t, http.StatusNoContent, code)

	code, _ = do(t, srv, http.MethodGet, "/api/v1/files/"+id, "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSearch(t *testing.T) {
	srv, _ := setupTestServer(t, true)

	code, _ := do(t, srv, http.MethodGet, "/api/v1/search", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := do(t, srv, http.MethodGet, "/api/v1/search?q=package", "")
	require.Equal(t, http.StatusOK, code)
	hits := body["hits"].([]any)
	require.Len(t, hits, 1)
	assert.Equal(t, "1", hits[0].(map[string]any)["fileId"])

	code, body = do(t, srv, http.MethodGet, "/api/v1/search?q=package&lang=python", "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["hits"])
}
