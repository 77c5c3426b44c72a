package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/match"
	"github.com/kailas-cloud/ragchat/internal/domain/search/result"
	chatuc "github.com/kailas-cloud/ragchat/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/ragchat/internal/usecase/health"
)

// --- Mocks ---

type mockSearcher struct {
	res       result.Result
	err       error
	lastQuery string
	lastTopK  int
	ctxErr    error
}

func (m *mockSearcher) Search(ctx context.Context, query string, topK int) (result.Result, error) {
	m.lastQuery = query
	m.lastTopK = topK
	m.ctxErr = ctx.Err()
	return m.res, m.err
}

type mockChatter struct {
	reply    chatuc.Reply
	err      error
	lastTopK int
}

func (m *mockChatter) Chat(_ context.Context, _ string, topK int) (chatuc.Reply, error) {
	m.lastTopK = topK
	return m.reply, m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

// --- Helpers ---

func mustMatch(t *testing.T, id string, score float64, title string) match.Match {
	t.Helper()
	md := map[string]any{"text": "text " + id, "source": "https://example.com/" + id}
	if title != "" {
		md["title"] = title
	}
	m, err := match.New(id, score, md)
	if err != nil {
		t.Fatalf("match.New: %v", err)
	}
	return m
}

func newTestServer(s Searcher, c Chatter, h HealthChecker) http.Handler {
	if h == nil {
		h = &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}}
	}
	return NewServer(s, c, h, Defaults{SearchTopK: 10, ChatTopK: 5}, zap.NewNop()).Router()
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return out
}

// --- /api/search ---

func TestSearch_Success(t *testing.T) {
	a := mustMatch(t, "a", 0.9, "A")
	b := mustMatch(t, "b", 0.8, "")
	s := &mockSearcher{res: result.New(
		[]match.Match{a, b},
		[]match.Match{b.WithRerankScore(0.97), a.WithRerankScore(0.5)},
		[]match.Match{a, b},
		0.012,
	)}

	rr := post(t, newTestServer(s, nil, nil), "/api/search", `{"query":"what is MONAI","top_k":7}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if s.lastQuery != "what is MONAI" || s.lastTopK != 7 {
		t.Errorf("unexpected call: %q top_k=%d", s.lastQuery, s.lastTopK)
	}

	body := decode(t, rr)
	if body["latency"] != 0.012 {
		t.Errorf("latency = %v", body["latency"])
	}
	vr := body["vector_results"].([]any)
	first := vr[0].(map[string]any)
	if first["id"] != "a" || first["score"] != 0.9 {
		t.Errorf("unexpected first vector result %v", first)
	}
	if _, ok := first["rerank_score"]; ok {
		t.Error("vector results must not carry rerank_score")
	}
	md := first["metadata"].(map[string]any)
	if md["text"] != "text a" || md["title"] != "A" {
		t.Errorf("unexpected metadata %v", md)
	}

	rer := body["reranked_results"].([]any)[0].(map[string]any)
	if rer["id"] != "b" || rer["rerank_score"] != 0.97 || rer["score"] != 0.8 {
		t.Errorf("unexpected reranked result %v", rer)
	}
	if len(body["all_vector_results"].([]any)) != 2 {
		t.Errorf("expected 2 all_vector_results")
	}
}

func TestSearch_DefaultTopK(t *testing.T) {
	s := &mockSearcher{}
	rr := post(t, newTestServer(s, nil, nil), "/api/search", `{"query":"q"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if s.lastTopK != 10 {
		t.Errorf("expected default top_k 10, got %d", s.lastTopK)
	}
	body := decode(t, rr)
	if body["latency"] != 0.0 {
		t.Errorf("expected latency 0, got %v", body["latency"])
	}
	if arr, ok := body["vector_results"].([]any); !ok || len(arr) != 0 {
		t.Errorf("empty results must encode as [], got %v", body["vector_results"])
	}
}

func TestSearch_Failure(t *testing.T) {
	cause := domain.NewServiceError("pinecone", "embed", 503, "unavailable")
	s := &mockSearcher{err: domain.NewSearchError("embed", cause)}

	rr := post(t, newTestServer(s, nil, nil), "/api/search", `{"query":"q"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	detail, _ := decode(t, rr)["detail"].(string)
	if !strings.HasPrefix(detail, "Search failed: embed: ") || !strings.Contains(detail, "unavailable") {
		t.Errorf("unexpected detail %q", detail)
	}
	if strings.Count(strings.ToLower(detail), "search failed") != 1 {
		t.Errorf("detail repeats the failure prefix: %q", detail)
	}
}

func TestSearch_InvalidRequest(t *testing.T) {
	s := &mockSearcher{err: errors.Join(errors.New("top_k must be positive"), domain.ErrInvalidRequest)}

	rr := post(t, newTestServer(s, nil, nil), "/api/search", `{"query":"q","top_k":0}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if s.lastTopK != 0 {
		t.Errorf("explicit top_k 0 must be passed through, got %d", s.lastTopK)
	}
}

func TestSearch_MalformedBody(t *testing.T) {
	rr := post(t, newTestServer(&mockSearcher{}, nil, nil), "/api/search", `{"query":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if _, ok := decode(t, rr)["detail"]; !ok {
		t.Error("expected detail field")
	}
}

func TestSearch_DetachedFromClientCancel(t *testing.T) {
	s := &mockSearcher{}
	h := newTestServer(s, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/search", bytes.NewBufferString(`{"query":"q"}`)).WithContext(ctx)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if s.ctxErr != nil {
		t.Errorf("pipeline context must not be canceled by the client, got %v", s.ctxErr)
	}
}

// --- /api/chat ---

func TestChat_Success(t *testing.T) {
	a := mustMatch(t, "a", 0.9, "A")
	c := &mockChatter{reply: chatuc.Reply{
		VectorResponse:   "precise [[1]](#1)",
		RerankedResponse: "wow [[1]](#1)!",
		AllVectorResults: []match.Match{a},
		RerankedResults:  []match.Match{a.WithRerankScore(0.7)},
	}}

	rr := post(t, newTestServer(nil, c, nil), "/api/chat", `{"message":"what is MONAI"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if c.lastTopK != 5 {
		t.Errorf("expected default chat top_k 5, got %d", c.lastTopK)
	}

	body := decode(t, rr)
	if body["vectorResponse"] != "precise [[1]](#1)" || body["rerankedResponse"] != "wow [[1]](#1)!" {
		t.Errorf("unexpected responses %v", body)
	}
	if len(body["all_vector_results"].([]any)) != 1 || len(body["reranked_results"].([]any)) != 1 {
		t.Errorf("unexpected result arrays %v", body)
	}
}

func TestChat_Failure(t *testing.T) {
	c := &mockChatter{err: errors.New("vector completion: completion failed: openai chat: boom")}

	rr := post(t, newTestServer(nil, c, nil), "/api/chat", `{"message":"q","top_k":3}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if c.lastTopK != 3 {
		t.Errorf("expected top_k 3, got %d", c.lastTopK)
	}
	if detail := decode(t, rr)["detail"]; detail != "vector completion: completion failed: openai chat: boom" {
		t.Errorf("unexpected detail %v", detail)
	}
}

// --- /health, routing, recovery ---

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		report healthuc.Report
		want   int
	}{
		{"healthy", healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{"index": healthuc.CheckOK}}, http.StatusOK},
		{"degraded", healthuc.Report{Status: healthuc.Degraded, Checks: map[string]healthuc.CheckResult{"index": healthuc.CheckError}}, http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestServer(nil, nil, &mockHealth{report: tc.report})
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
			body := decode(t, rr)
			if body["status"] != string(tc.report.Status) {
				t.Errorf("status = %v", body["status"])
			}
		})
	}
}

func TestRouter_RequestIDAndNotFound(t *testing.T) {
	h := newTestServer(&mockSearcher{}, nil, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", http.NoBody))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/search", http.NoBody))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}

type panicSearcher struct{}

func (panicSearcher) Search(context.Context, string, int) (result.Result, error) { panic("boom") }

func TestJSONRecoverer(t *testing.T) {
	rr := post(t, newTestServer(panicSearcher{}, nil, nil), "/api/search", `{"query":"q"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if decode(t, rr)["detail"] != "internal error" {
		t.Errorf("unexpected body %s", rr.Body.String())
	}
}
