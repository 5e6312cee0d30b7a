package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/docrag-go/internal/assistant"
	"github.com/54b3r/docrag-go/internal/ingestion"
	"github.com/54b3r/docrag-go/internal/rag"
	"github.com/54b3r/docrag-go/internal/store"
	"github.com/54b3r/docrag-go/internal/summarize"
)

// fakeIngester stores uploads directly, without chunking or embedding.
type fakeIngester struct {
	db  *store.SQLiteStore
	err error
}

func (f *fakeIngester) Ingest(ctx context.Context, userID int64, filename string, data []byte) (*ingestion.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	doc := &store.Document{UserID: userID, Filename: filename, Content: string(data)}
	if err := f.db.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}
	return &ingestion.Result{Document: doc}, nil
}

// fakeQuerier returns a canned answer or error and records the last query.
type fakeQuerier struct {
	answer *rag.Answer
	err    error
	last   rag.Query
	scope  int
}

func (f *fakeQuerier) Query(_ context.Context, q rag.Query, docs []rag.Document) (*rag.Answer, error) {
	f.last = q
	f.scope = len(docs)
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

// fakeSummarizer always produces an extractive summary.
type fakeSummarizer struct{}

func (fakeSummarizer) Summarize(_ context.Context, text string) summarize.Summary {
	return summarize.Summary{Text: summarize.Simple(text, 40), Method: summarize.MethodExtractive}
}

// fakeChatter streams fixed chunks or fails.
type fakeChatter struct {
	configured bool
	chunks     []string
	err        error
	grammar    *assistant.GrammarResult
}

func (f *fakeChatter) Configured() bool { return f.configured }

func (f *fakeChatter) Chat(_ context.Context, _ int64, _ string, w io.Writer) error {
	for _, c := range f.chunks {
		if _, err := io.WriteString(w, c); err != nil {
			return err
		}
	}
	return f.err
}

func (f *fakeChatter) CheckGrammar(_ context.Context, text string) (*assistant.GrammarResult, error) {
	if !f.configured {
		return nil, assistant.ErrNotConfigured
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.grammar != nil {
		return f.grammar, nil
	}
	return &assistant.GrammarResult{CorrectedText: text, Corrections: []assistant.Correction{}}, nil
}

// recordingMirror records deleted document ids.
type recordingMirror struct {
	deleted []int64
	err     error
}

func (m *recordingMirror) Upsert(context.Context, []rag.MirrorPoint) error { return nil }

func (m *recordingMirror) DeleteDocument(_ context.Context, id int64) error {
	m.deleted = append(m.deleted, id)
	return m.err
}

func (m *recordingMirror) Close() error { return nil }

var _ rag.VectorStore = (*recordingMirror)(nil)

// testServer bundles a Server with the fakes behind it.
type testServer struct {
	*Server
	db      *store.SQLiteStore
	ingest  *fakeIngester
	query   *fakeQuerier
	chatter *fakeChatter
	mirror  *recordingMirror
	reg     *prometheus.Registry
}

// newTestServer builds a Server over an in-memory store with a fresh
// metrics registry. opts may adjust the config before construction.
func newTestServer(t *testing.T, opts ...func(*Config)) *testServer {
	t.Helper()

	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	reg := prometheus.NewRegistry()
	cfg := &Config{
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		MetricsRegistry: reg,
		MetricsGatherer: reg,
	}
	for _, o := range opts {
		o(cfg)
	}

	ts := &testServer{
		db:      db,
		ingest:  &fakeIngester{db: db},
		query:   &fakeQuerier{answer: &rag.Answer{Text: "42", Outcome: rag.OutcomeAnswered}},
		chatter: &fakeChatter{configured: true},
		mirror:  &recordingMirror{},
		reg:     reg,
	}
	s, err := New(&Deps{
		Store:        db,
		Pipeline:     ts.ingest,
		Orchestrator: ts.query,
		Summarizer:   fakeSummarizer{},
		Assistant:    ts.chatter,
		Mirror:       ts.mirror,
	}, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)
	ts.Server = s
	return ts
}

// do sends req through the full handler tree.
func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.httpServer.Handler.ServeHTTP(w, req)
	return w
}

// seed stores a document for the guest user and returns its id.
func (ts *testServer) seed(t *testing.T, filename, content string) int64 {
	t.Helper()
	u, err := ts.db.EnsureUser(t.Context(), ts.cfg.GuestEmail)
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	doc := &store.Document{UserID: u.ID, Filename: filename, Content: content}
	if err := ts.db.CreateDocument(t.Context(), doc); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	return doc.ID
}

// uploadRequest builds a multipart POST /api/upload request.
func uploadRequest(t *testing.T, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fw.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestNew_RequiresDeps(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, nil); err == nil {
		t.Error("expected error for nil deps")
	}
	if _, err := New(&Deps{}, nil); err == nil {
		t.Error("expected error for missing store")
	}
}

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	applyDefaults(cfg)

	if cfg.Host != "127.0.0.1" || cfg.Port != 8000 {
		t.Errorf("addr: got %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.GuestEmail != "guest@example.com" {
		t.Errorf("GuestEmail: got %q", cfg.GuestEmail)
	}
	if cfg.MaxUploadBytes != defaultMaxUploadBytes {
		t.Errorf("MaxUploadBytes: got %d", cfg.MaxUploadBytes)
	}
	if cfg.RateLimit != defaultRateLimit || cfg.RateBurst != defaultRateBurst {
		t.Errorf("rate limit: got %v/%d", cfg.RateLimit, cfg.RateBurst)
	}
}

func TestRoot(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"service":"docrag"`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}

	w = ts.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown path: expected 404, got %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Header().Get(requestIDHeader) == "" {
		t.Error("expected a generated X-Request-ID")
	}

	const id = "0b6f5b1e-2b8c-4d7e-9b7a-6a1f1c2d3e4f"
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(requestIDHeader, id)
	if got := ts.do(req).Header().Get(requestIDHeader); got != id {
		t.Errorf("expected client request id to be reused, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(requestIDHeader, "not a uuid\r\n")
	if got := ts.do(req).Header().Get(requestIDHeader); got == "not a uuid\r\n" {
		t.Error("expected invalid request id to be replaced")
	}
}

func TestAuthWiring(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, func(c *Config) { c.APIKey = "k1" })

	cases := []struct {
		name   string
		req    *http.Request
		header string
		want   int
	}{
		{"health is open", httptest.NewRequest(http.MethodGet, "/api/health", nil), "", http.StatusOK},
		{"ready is open", httptest.NewRequest(http.MethodGet, "/api/ready", nil), "", http.StatusOK},
		{"metrics is open", httptest.NewRequest(http.MethodGet, "/metrics", nil), "", http.StatusOK},
		{"documents needs key", httptest.NewRequest(http.MethodGet, "/api/documents", nil), "", http.StatusUnauthorized},
		{"documents with key", httptest.NewRequest(http.MethodGet, "/api/documents", nil), "Bearer k1", http.StatusOK},
		{"query needs key", jsonRequest(http.MethodPost, "/api/query", `{"query":"x"}`), "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		if tc.header != "" {
			tc.req.Header.Set("Authorization", tc.header)
		}
		if got := ts.do(tc.req).Code; got != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, func(c *Config) {
		c.APIKey = "k1"
		c.CORSOrigins = []string{"http://localhost:3000"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/query", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := ts.do(req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight: expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin: got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	if got := ts.do(req).Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unlisted origin: expected no Allow-Origin, got %q", got)
	}
}

func TestErrorBodyShape(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.query.err = errors.New("boom")

	w := ts.do(jsonRequest(http.MethodPost, "/api/query", `{"query":"x"}`))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), `{"detail":`) {
		t.Errorf("expected detail body, got %s", w.Body.String())
	}
}
