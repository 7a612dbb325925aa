// ABOUTME: Tests for the HTTP API routes in gin test mode
// ABOUTME: Requests go through the router to a fake-backed assistant
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harper/optimedix/internal/app/apptest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, response string) (*Server, *apptest.Fixture) {
	t.Helper()
	f := apptest.New(t, map[string]string{
		"aspirin.txt": "Aspirin is used for headache and fever reduction.",
		"cough.md":    "A persistent cough may need medical attention.",
	}, response)
	return NewServer(f.App), f
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, "x")
	w := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestChat_Answer(t *testing.T) {
	s, _ := newTestServer(t, "Aspirin relieves headaches.")

	w := do(t, s, http.MethodPost, "/api/v1/chat", ChatRequest{Question: "What is aspirin used for?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[ChatResponse](t, w)
	assert.Equal(t, "answer", resp.Kind)
	assert.Equal(t, "answered", resp.Outcome)
	assert.NotEmpty(t, resp.SessionID)
	assert.NotEmpty(t, resp.Sources)
	assert.True(t, strings.HasPrefix(resp.Message, "Aspirin relieves headaches."))
}

func TestChat_ClarificationFlow(t *testing.T) {
	s, f := newTestServer(t, "Likely a cold.")

	w := do(t, s, http.MethodPost, "/api/v1/chat", ChatRequest{SessionID: "s1", Question: "I have a cough"})
	resp := decode[ChatResponse](t, w)
	require.Equal(t, "clarification", resp.Kind)
	assert.Len(t, resp.Questions, 3)
	assert.True(t, strings.HasPrefix(resp.Message, "I found some information related to your query. Can you please clarify: "))

	w = do(t, s, http.MethodPost, "/api/v1/chat", ChatRequest{SessionID: "s1", Question: "Three days, dry"})
	resp = decode[ChatResponse](t, w)
	assert.Equal(t, "answer", resp.Kind)
	assert.Equal(t, 1, f.Generator.Calls())
}

func TestChat_GenerationFailureIsApology(t *testing.T) {
	s, f := newTestServer(t, "x")
	f.Generator.Errs = []error{errors.New("upstream 503"), errors.New("upstream 503")}

	w := do(t, s, http.MethodPost, "/api/v1/chat", ChatRequest{Question: "aspirin dosage?"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[ChatResponse](t, w)
	assert.Equal(t, "failed", resp.Outcome)
	assert.Equal(t, "I apologize, but I encountered an error processing your query. Please try again.", resp.Message)
}

func TestChat_BadRequests(t *testing.T) {
	s, _ := newTestServer(t, "x")

	w := do(t, s, http.MethodPost, "/api/v1/chat", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/api/v1/chat", ChatRequest{Question: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearch(t *testing.T) {
	s, f := newTestServer(t, "x")

	w := do(t, s, http.MethodPost, "/api/v1/search", SearchRequest{Query: "aspirin", Limit: 1})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[SearchResponse](t, w)
	require.Len(t, resp.Results, 1)
	assert.Zero(t, f.Generator.Calls())

	w = do(t, s, http.MethodPost, "/api/v1/search", SearchRequest{Query: "aspirin", Limit: -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionsAndHistory(t *testing.T) {
	s, _ := newTestServer(t, "answer")

	do(t, s, http.MethodPost, "/api/v1/chat", ChatRequest{SessionID: "abc", Question: "aspirin?"})

	w := do(t, s, http.MethodGet, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"abc"`)

	w = do(t, s, http.MethodGet, "/api/v1/sessions/abc/history", nil)
	history := decode[HistoryResponse](t, w)
	require.Len(t, history.Turns, 2)
	assert.Equal(t, "aspirin?", history.Turns[0].Content)

	w = do(t, s, http.MethodDelete, "/api/v1/sessions/abc/history", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, s, http.MethodGet, "/api/v1/sessions/abc/history", nil)
	history = decode[HistoryResponse](t, w)
	assert.Empty(t, history.Turns)
}

func TestIngestAndReindex(t *testing.T) {
	s, f := newTestServer(t, "x")

	w := do(t, s, http.MethodPost, "/api/v1/ingest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[IngestResponse](t, w)
	assert.Equal(t, 2, resp.Report.Skipped)
	assert.Empty(t, resp.Warning)

	w = do(t, s, http.MethodPost, "/api/v1/reindex", nil)
	require.Equal(t, http.StatusOK, w.Code)
	n, err := f.App.Index.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	w = do(t, s, http.MethodPost, "/api/v1/ingest", nil)
	resp = decode[IngestResponse](t, w)
	assert.Equal(t, 2, resp.Report.Documents)
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t, "answer")
	do(t, s, http.MethodPost, "/api/v1/chat", ChatRequest{Question: "aspirin?"})

	w := do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `optimedix_chat_replies_total{outcome="answered"} 1`)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t, "x")
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln, time.Second) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
