// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bears-chj7/studying-vibe/internal/backend"
	"github.com/bears-chj7/studying-vibe/internal/config"
	"github.com/bears-chj7/studying-vibe/internal/settings"
)

// =============================================================================
// FAKE BACKEND
// =============================================================================

type request struct {
	method string
	path   string
	query  string
	form   map[string]string
	body   string
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []request

	// streams maps an ingestion path to its NDJSON lines.
	streams map[string][]string

	// chatStatus and chatBody answer POST /api/chat.
	chatStatus int
	chatBody   string
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{
		streams:    map[string][]string{},
		chatStatus: http.StatusOK,
		chatBody:   `{"response":"# Summary\n\nThe report covers **revenue** and costs."}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/documents", func(w http.ResponseWriter, r *http.Request) {
		fb.record(r)
		fmt.Fprint(w, `{"documents":[
			{"id":1,"filename":"report.pdf","description":"Quarterly numbers","created_at":"Mon, 02 Jun 2025 09:30:00 GMT"},
			{"id":"2","filename":"notes.pdf","description":null,"created_at":"2025-06-03T10:00:00Z"}
		],"total":12,"total_pages":2}`)
	})
	mux.HandleFunc("PUT /api/documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		fb.record(r)
		fmt.Fprint(w, `{"message":"updated"}`)
	})
	mux.HandleFunc("DELETE /api/documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		fb.record(r)
		if r.PathValue("id") == "404" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"Document not found"}`)
			return
		}
		fmt.Fprint(w, `{"message":"Document deleted"}`)
	})
	mux.HandleFunc("GET /api/documents/{id}/chunks", func(w http.ResponseWriter, r *http.Request) {
		fb.record(r)
		fmt.Fprint(w, `[
			{"id":"c1","content":"Revenue grew by 12 percent.","metadata":{"page":1,"source":"report.pdf"}},
			{"id":"c2","content":"Costs were flat.","metadata":{"page":2}}
		]`)
	})
	ingest := func(w http.ResponseWriter, r *http.Request) {
		fb.record(r)
		fb.mu.Lock()
		lines := fb.streams[r.URL.Path]
		fb.mu.Unlock()
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, line := range lines {
			fmt.Fprintln(w, line)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}
	mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		fb.record(r)
		fb.mu.Lock()
		status, body := fb.chatStatus, fb.chatBody
		fb.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	})
	mux.HandleFunc("POST /api/documents", ingest)
	mux.HandleFunc("POST /api/documents/{id}/reingest", ingest)
	mux.HandleFunc("POST /api/documents/reingest-all", ingest)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBackend) record(r *http.Request) {
	req := request{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			req.form = map[string]string{}
			for k, v := range r.MultipartForm.Value {
				req.form[k] = v[0]
			}
		}
	} else if r.Body != nil {
		var buf bytes.Buffer
		buf.ReadFrom(r.Body)
		req.body = buf.String()
	}
	fb.mu.Lock()
	fb.requests = append(fb.requests, req)
	fb.mu.Unlock()
}

func (fb *fakeBackend) stream(path string, lines ...string) {
	fb.mu.Lock()
	fb.streams[path] = lines
	fb.mu.Unlock()
}

func (fb *fakeBackend) answerChat(status int, body string) {
	fb.mu.Lock()
	fb.chatStatus, fb.chatBody = status, body
	fb.mu.Unlock()
}

func (fb *fakeBackend) recorded() []request {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]request(nil), fb.requests...)
}

func (fb *fakeBackend) count(method, path string) int {
	n := 0
	for _, r := range fb.recorded() {
		if r.method == method && r.path == path {
			n++
		}
	}
	return n
}

func info(msg string) string    { return fmt.Sprintf(`{"status":"info","message":%q}`, msg) }
func success(msg string) string { return fmt.Sprintf(`{"status":"success","message":%q}`, msg) }
func failure(msg string) string { return fmt.Sprintf(`{"status":"error","message":%q}`, msg) }

// testEnv wires an Env against srv with in-memory settings.
func testEnv(t *testing.T, srv *httptest.Server) (*Env, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Server.URL = srv.URL
	cfg.Server.Username = "alice"

	var out, errOut bytes.Buffer
	env := newEnv(cfg, settings.NewMemoryKV(), &out, &errOut)
	t.Cleanup(func() { env.Close() })
	return env, &out
}

func decodeEnvelope(t *testing.T, out *bytes.Buffer, data any) JSONResponse {
	t.Helper()
	var resp JSONResponse
	resp.Data = data
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp), "output: %s", out.String())
	return resp
}

// =============================================================================
// LIST
// =============================================================================

func TestDocsList_Table(t *testing.T) {
	fb, srv := newFakeBackend(t)
	env, out := testEnv(t, srv)

	require.NoError(t, runDocs(context.Background(), env, nil))

	text := out.String()
	assert.Contains(t, text, "FILENAME")
	assert.Contains(t, text, "report.pdf")
	assert.Contains(t, text, "Quarterly numbers")
	assert.Contains(t, text, time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC).Local().Format(createdLayout))
	assert.Contains(t, text, "Page 1 of 2 (12 documents, 10 per page)")

	reqs := fb.recorded()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].query, "username=alice")
	assert.Contains(t, reqs[0].query, "limit=10")
	assert.Contains(t, reqs[0].query, "page=1")
}

func TestDocsList_LimitAndPageJSON(t *testing.T) {
	fb, srv := newFakeBackend(t)
	env, out := testEnv(t, srv)
	env.JSON = true

	require.NoError(t, runDocs(context.Background(), env, []string{"list", "--limit", "20", "--page", "2"}))

	var data DocumentListData
	resp := decodeEnvelope(t, out, &data)
	assert.True(t, resp.Success)
	assert.Equal(t, "docs list", resp.Command)
	assert.Equal(t, 20, data.Limit)
	assert.Equal(t, 2, data.Page)
	assert.Equal(t, 12, data.TotalItems)
	require.Len(t, data.Documents, 2)
	assert.Equal(t, "1", data.Documents[0].ID)
	assert.Equal(t, "", data.Documents[1].Description)

	reqs := fb.recorded()
	require.Len(t, reqs, 2, "one fetch for the limit and one for the page")
	assert.Contains(t, reqs[1].query, "page=2")
	assert.Contains(t, reqs[1].query, "limit=20")
}

func TestDocsList_InvalidLimit(t *testing.T) {
	fb, srv := newFakeBackend(t)
	env, _ := testEnv(t, srv)

	err := runDocs(context.Background(), env, []string{"list", "--limit", "15"})
	require.Error(t, err)
	assert.True(t, backend.IsInvalidRequest(err))
	assert.Equal(t, ExitUsageError, GetExitCode(err))
	assert.Empty(t, fb.recorded())

	err = runDocs(context.Background(), env, []string{"list", "--limit", "ten"})
	var usageErr *UsageError
	assert.ErrorAs(t, err, &usageErr)
}

// =============================================================================
// STREAMED INGESTION
// =============================================================================

func TestDocsReingest_PlainSuccess(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.stream("/api/documents/7/reingest",
		info("Deleting old vectors"),
		info("Processing report.pdf"),
		success("Completed re-ingestion of report.pdf"),
	)
	env, out := testEnv(t, srv)

	err := runDocs(context.Background(), env, []string{"reingest", "7", "--plain", "--chunk-size", "800"})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Deleting old vectors\nProcessing report.pdf\n")
	assert.Contains(t, text, "[OK] Completed re-ingestion of report.pdf")
	assert.Equal(t, 1, strings.Count(text, "Processing report.pdf"), "each line printed once")

	var post request
	for _, r := range fb.recorded() {
		if r.method == http.MethodPost {
			post = r
		}
	}
	assert.Equal(t, "alice", post.form["username"])
	assert.Equal(t, "800", post.form["chunk_size"])
	assert.Equal(t, "200", post.form["chunk_overlap"])
	assert.Equal(t, 1, fb.count(http.MethodGet, "/api/documents"), "list refreshed once after the task")
}

func TestDocsReingest_ServerErrorFails(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.stream("/api/documents/7/reingest",
		info("Deleting old vectors"),
		failure("Embedding model unavailable"),
	)
	env, out := testEnv(t, srv)

	err := runDocs(context.Background(), env, []string{"reingest", "7"})
	require.Error(t, err)

	var taskErr *TaskFailedError
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, "Embedding model unavailable", taskErr.Snapshot.TerminalMessage)
	assert.Equal(t, ExitRejectedError, GetExitCode(err))
	assert.Contains(t, out.String(), "[X] Embedding model unavailable")

	// Already rendered; DisplayError stays silent.
	var shown bytes.Buffer
	DisplayError(&shown, err, false)
	assert.Empty(t, shown.String())
}

func TestDocsReingest_TruncatedStream(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.stream("/api/documents/7/reingest", info("Processing report.pdf"))
	env, _ := testEnv(t, srv)

	err := runDocs(context.Background(), env, []string{"reingest", "7"})

	var taskErr *TaskFailedError
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, backend.ErrTypeStreamTruncated, taskErr.Snapshot.ErrorType)
}

func TestDocsReingestAll_JSON(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.stream("/api/documents/reingest-all",
		info("Re-ingesting 2 documents"),
		success("report.pdf done"),
		success("Completed re-ingestion of 2 documents"),
	)
	env, out := testEnv(t, srv)
	env.JSON = true

	require.NoError(t, runDocs(context.Background(), env, []string{"reingest-all"}))

	var data TaskData
	resp := decodeEnvelope(t, out, &data)
	assert.True(t, resp.Success)
	assert.Equal(t, "docs reingest-all", resp.Command)
	assert.Equal(t, "succeeded", data.State)
	assert.Equal(t, "Completed re-ingestion of 2 documents", data.TerminalMessage)
	assert.Equal(t, []string{"Re-ingesting 2 documents", "report.pdf done"}, data.Log)
	assert.Empty(t, data.ErrorType)
}

func TestDocsReingest_InvalidOverride(t *testing.T) {
	fb, srv := newFakeBackend(t)
	env, _ := testEnv(t, srv)

	err := runDocs(context.Background(), env, []string{"reingest", "7", "--chunk-overlap", "5000"})
	require.Error(t, err)
	assert.True(t, backend.IsInvalidRequest(err))
	assert.Empty(t, fb.recorded())
}

func TestDocsUpload_RejectsNonPDF(t *testing.T) {
	fb, srv := newFakeBackend(t)
	env, _ := testEnv(t, srv)

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0600))

	err := runDocs(context.Background(), env, []string{"upload", path})
	require.Error(t, err)
	assert.True(t, backend.IsInvalidRequest(err))
	assert.Empty(t, fb.recorded())

	err = runDocs(context.Background(), env, []string{"upload"})
	var usageErr *UsageError
	assert.ErrorAs(t, err, &usageErr)
}

// =============================================================================
// MUTATIONS AND CHUNKS
// =============================================================================

func TestDocsDescribe(t *testing.T) {
	fb, srv := newFakeBackend(t)
	env, out := testEnv(t, srv)

	require.NoError(t, runDocs(context.Background(), env, []string{"describe", "1", "Quarterly", "numbers,", "final"}))

	assert.Contains(t, out.String(), "[OK] Updated description of document 1")
	reqs := fb.recorded()
	require.GreaterOrEqual(t, len(reqs), 1)
	assert.Equal(t, http.MethodPut, reqs[0].method)
	assert.Equal(t, "/api/documents/1", reqs[0].path)
	assert.JSONEq(t, `{"description":"Quarterly numbers, final"}`, reqs[0].body)
	assert.Equal(t, 1, fb.count(http.MethodGet, "/api/documents"), "list refreshed after update")
}

func TestDocsDelete(t *testing.T) {
	fb, srv := newFakeBackend(t)
	env, out := testEnv(t, srv)

	require.NoError(t, runDocs(context.Background(), env, []string{"rm", "2"}))
	assert.Contains(t, out.String(), "[OK] Deleted document 2")
	assert.Equal(t, 1, fb.count(http.MethodDelete, "/api/documents/2"))

	err := runDocs(context.Background(), env, []string{"delete", "404"})
	require.Error(t, err)
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))
}

func TestDocsChunks(t *testing.T) {
	_, srv := newFakeBackend(t)
	env, out := testEnv(t, srv)

	require.NoError(t, runDocs(context.Background(), env, []string{"chunks", "1"}))

	text := out.String()
	assert.Contains(t, text, "Revenue grew by 12 percent.")
	assert.Contains(t, text, "page=1")
	assert.Contains(t, text, "2 chunks")
}

func TestDocsChunks_WritesFile(t *testing.T) {
	_, srv := newFakeBackend(t)
	env, out := testEnv(t, srv)
	path := filepath.Join(t.TempDir(), "export", "chunks.json")

	require.NoError(t, runDocs(context.Background(), env, []string{"chunks", "1", "--out", path}))
	assert.Contains(t, out.String(), "Wrote 2 chunks to "+path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var data ChunkListData
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Equal(t, "1", data.DocumentID)
	require.Len(t, data.Chunks, 2)
	assert.Equal(t, "c2", data.Chunks[1].ID)
}

// =============================================================================
// ROUTING
// =============================================================================

func TestDocs_RequiresUser(t *testing.T) {
	fb, srv := newFakeBackend(t)
	env, _ := testEnv(t, srv)
	env.Config.Server.Username = ""

	err := runDocs(context.Background(), env, []string{"list"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no username configured")
	assert.Empty(t, fb.recorded())
}

func TestDocs_UnknownSubcommand(t *testing.T) {
	_, srv := newFakeBackend(t)
	env, _ := testEnv(t, srv)

	err := runDocs(context.Background(), env, []string{"reingets"})
	var usageErr *UsageError
	require.ErrorAs(t, err, &usageErr)
	assert.Contains(t, err.Error(), "did you mean 'reingest'?")
}
