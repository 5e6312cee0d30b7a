package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/54b3r/docrag-go/internal/rag"
)

// fakeOpenAI serves /embeddings, answering each input with [len(text), 1].
// fail decides the status for a call number (1-based); 0 means success.
func fakeOpenAI(t *testing.T, fail func(call int, inputs []string) int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1))
		var req openaiEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if code := fail(n, req.Input); code != 0 {
			w.WriteHeader(code)
			_, _ = w.Write([]byte(`{"error":{"message":"injected failure"}}`))
			return
		}
		var resp openaiEmbedResponse
		// Reverse order to exercise index placement.
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Embedding: []float32{float32(len(req.Input[i])), 1}, Index: i})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testAdapter(srv *httptest.Server, cfg *Config) *Adapter {
	client := NewOpenAIClient(&OpenAIConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"})
	cfg.RetryInitial = time.Millisecond
	cfg.RetryMax = 2 * time.Millisecond
	return NewAdapter(client, cfg)
}

func never(int, []string) int { return 0 }

func TestAdapter_EmbedBatch_Pages(t *testing.T) {
	t.Parallel()
	srv, calls := fakeOpenAI(t, never)
	a := testAdapter(srv, &Config{BatchSize: 2, MaxRetries: 3})

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs := a.EmbedBatch(context.Background(), texts)

	if got := calls.Load(); got != 3 {
		t.Errorf("provider calls = %d, want 3", got)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("len(vecs) = %d, want %d", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if len(v) != 2 || int(v[0]) != len(texts[i]) {
			t.Errorf("vecs[%d] = %v, want [%d 1]", i, v, len(texts[i]))
		}
	}
}

func TestAdapter_EmbedBatch_RetriesTransientFailure(t *testing.T) {
	t.Parallel()
	srv, calls := fakeOpenAI(t, func(call int, _ []string) int {
		if call == 1 {
			return http.StatusTooManyRequests
		}
		return 0
	})
	a := testAdapter(srv, &Config{MaxRetries: 3})

	vecs := a.EmbedBatch(context.Background(), []string{"x"})

	if len(vecs) != 1 || vecs[0] == nil {
		t.Fatalf("expected one vector after retry, got %v", vecs)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("provider calls = %d, want 2", got)
	}
}

func TestAdapter_EmbedBatch_PartialPages(t *testing.T) {
	t.Parallel()
	srv, calls := fakeOpenAI(t, func(_ int, inputs []string) int {
		if inputs[0] == "bad" {
			return http.StatusInternalServerError
		}
		return 0
	})
	a := testAdapter(srv, &Config{BatchSize: 2, MaxRetries: 1})

	vecs := a.EmbedBatch(context.Background(), []string{"ok1", "ok2", "bad", "bad2", "ok3"})

	if len(vecs) != 5 {
		t.Fatalf("len(vecs) = %d, want 5", len(vecs))
	}
	for i, wantNil := range []bool{false, false, true, true, false} {
		if (vecs[i] == nil) != wantNil {
			t.Errorf("vecs[%d] nil = %v, want %v", i, vecs[i] == nil, wantNil)
		}
	}
	// Pages 1 and 3 once, page 2 once plus one retry.
	if got := calls.Load(); got != 4 {
		t.Errorf("provider calls = %d, want 4", got)
	}
}

func TestAdapter_EmbedBatch_AllPagesFail(t *testing.T) {
	t.Parallel()
	srv, _ := fakeOpenAI(t, func(int, []string) int { return http.StatusBadGateway })
	a := testAdapter(srv, &Config{MaxRetries: 0})

	if vecs := a.EmbedBatch(context.Background(), []string{"a", "b"}); vecs != nil {
		t.Errorf("expected nil result, got %v", vecs)
	}
}

func TestAdapter_EmbedOne_PermanentFailureNotRetried(t *testing.T) {
	t.Parallel()
	srv, calls := fakeOpenAI(t, func(int, []string) int { return http.StatusUnauthorized })
	a := testAdapter(srv, &Config{MaxRetries: 3})

	_, err := a.EmbedOne(context.Background(), "q")

	if !errors.Is(err, rag.ErrProviderUnavailable) {
		t.Fatalf("error = %v, want ErrProviderUnavailable", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusUnauthorized {
		t.Errorf("expected StatusError 401, got %v", err)
	}
	if se != nil && se.Message != "injected failure" {
		t.Errorf("message = %q", se.Message)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("provider calls = %d, want 1", got)
	}
}

func TestAdapter_EmbedOne_Success(t *testing.T) {
	t.Parallel()
	srv, _ := fakeOpenAI(t, never)
	a := testAdapter(srv, &Config{})

	v, err := a.EmbedOne(context.Background(), "four")
	if err != nil {
		t.Fatalf("EmbedOne() error: %v", err)
	}
	if len(v) != 2 || v[0] != 4 {
		t.Errorf("vector = %v, want [4 1]", v)
	}
}

func TestAdapter_Unconfigured(t *testing.T) {
	t.Parallel()
	a := NewAdapter(nil, nil)

	if a.Configured() {
		t.Error("Configured() = true for nil client")
	}
	if a.Provider() != "none" {
		t.Errorf("Provider() = %q", a.Provider())
	}
	if vecs := a.EmbedBatch(context.Background(), []string{"a"}); vecs != nil {
		t.Errorf("EmbedBatch() = %v, want nil", vecs)
	}
	_, err := a.EmbedOne(context.Background(), "a")
	if !errors.Is(err, rag.ErrProviderUnavailable) || !errors.Is(err, ErrNotConfigured) {
		t.Errorf("EmbedOne() error = %v", err)
	}
}

func TestAdapter_TimeoutIsRetriedThenFails(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	a := testAdapter(srv, &Config{MaxRetries: 1, Timeout: 20 * time.Millisecond})

	_, err := a.EmbedOne(context.Background(), "slow")

	if !errors.Is(err, rag.ErrProviderUnavailable) {
		t.Fatalf("error = %v, want ErrProviderUnavailable", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("provider calls = %d, want 2", got)
	}
}

func TestAdapter_CancelledContextStopsPaging(t *testing.T) {
	t.Parallel()
	srv, calls := fakeOpenAI(t, never)
	a := testAdapter(srv, &Config{BatchSize: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if vecs := a.EmbedBatch(ctx, []string{"a", "b", "c"}); vecs != nil {
		t.Errorf("expected nil result, got %v", vecs)
	}
	if got := calls.Load(); got != 0 {
		t.Errorf("provider calls = %d, want 0", got)
	}
}

func TestRetryable(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", &StatusError{Code: 429}, true},
		{"server error", &StatusError{Code: 503}, true},
		{"bad request", &StatusError{Code: 400}, false},
		{"malformed", ErrMalformedResponse, false},
		{"transport", errors.New("connection refused"), true},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := retryable(tc.err); got != tc.want {
				t.Errorf("retryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
