package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/docrag-go/internal/store"
)

// stubModel is a BaseChatModel that replays a canned reply. Stream splits the
// reply into words so callers see several chunks.
type stubModel struct {
	mu       sync.Mutex
	reply    string
	err      error
	lastIn   []*schema.Message
	lastOpts *model.Options
}

func (m *stubModel) record(in []*schema.Message, opts []model.Option) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastIn = in
	m.lastOpts = model.GetCommonOptions(&model.Options{}, opts...)
}

func (m *stubModel) Generate(_ context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.record(in, opts)
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *stubModel) Stream(_ context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.record(in, opts)
	if m.err != nil {
		return nil, m.err
	}
	var chunks []*schema.Message
	for i, w := range strings.Fields(m.reply) {
		if i > 0 {
			w = " " + w
		}
		chunks = append(chunks, schema.AssistantMessage(w, nil))
	}
	return schema.StreamReaderFromArray(chunks), nil
}

func openTestStore(t *testing.T) (*store.SQLiteStore, int64) {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	u, err := s.EnsureUser(context.Background(), "guest@example.com")
	if err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	return s, u.ID
}

func TestChat_StreamsAndPersists(t *testing.T) {
	t.Parallel()
	s, uid := openTestStore(t)
	m := &stubModel{reply: "Hello there friend"}
	a := New(&Config{ChatModel: m, History: s})
	ctx := context.Background()

	var out strings.Builder
	if err := a.Chat(ctx, uid, "hi", &out); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out.String() != "Hello there friend" {
		t.Errorf("streamed %q", out.String())
	}

	msgs, err := s.Recent(ctx, uid, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Content != "hi" || msgs[1].Content != "Hello there friend" {
		t.Fatalf("unexpected history %+v", msgs)
	}

	// The second turn replays the first.
	out.Reset()
	if err := a.Chat(ctx, uid, "again", &out); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(m.lastIn) != 4 {
		t.Fatalf("want system+2 history+user, got %d messages", len(m.lastIn))
	}
	if m.lastIn[0].Role != schema.System || m.lastIn[3].Content != "again" {
		t.Errorf("unexpected message order: %+v", m.lastIn)
	}
	if m.lastOpts.MaxTokens == nil || *m.lastOpts.MaxTokens != 1000 {
		t.Errorf("default max tokens not applied")
	}
}

func TestChat_TrimsHistoryToBudget(t *testing.T) {
	t.Parallel()
	s, uid := openTestStore(t)
	ctx := context.Background()
	for range 6 {
		if err := s.Append(ctx, uid, store.RoleUser, strings.Repeat("word ", 200)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	m := &stubModel{reply: "ok"}
	a := New(&Config{ChatModel: m, History: s, MaxContextTokens: 400})
	if err := a.Chat(ctx, uid, "short", &strings.Builder{}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(m.lastIn) >= 8 {
		t.Errorf("history was not trimmed: %d messages", len(m.lastIn))
	}
	if m.lastIn[len(m.lastIn)-1].Content != "short" {
		t.Error("current message must always be last")
	}
}

func TestChat_Errors(t *testing.T) {
	t.Parallel()

	if err := New(nil).Chat(context.Background(), 1, "hi", &strings.Builder{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("want ErrNotConfigured, got %v", err)
	}

	s, uid := openTestStore(t)
	boom := errors.New("boom")
	a := New(&Config{ChatModel: &stubModel{err: boom}, History: s})
	if err := a.Chat(context.Background(), uid, "hi", &strings.Builder{}); !errors.Is(err, boom) {
		t.Errorf("want wrapped boom, got %v", err)
	}
	msgs, _ := s.Recent(context.Background(), uid, 10)
	if len(msgs) != 0 {
		t.Errorf("failed turn should not be persisted, got %d messages", len(msgs))
	}
}
