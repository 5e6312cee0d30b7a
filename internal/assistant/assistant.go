// Package assistant implements the general-purpose chat assistant and the
// grammar checker. Neither uses document context: chat replays the user's
// recent conversation history, trimmed to the token budget, and streams the
// model's reply back to the caller.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/docrag-go/internal/budget"
	"github.com/54b3r/docrag-go/internal/logging"
	"github.com/54b3r/docrag-go/internal/store"
)

// ErrNotConfigured is returned when no chat model is available.
var ErrNotConfigured = errors.New("assistant: language model is not configured")

// systemPrompt is the persona injected into every chat conversation.
const systemPrompt = `You are a helpful, friendly, and knowledgeable AI assistant. ` +
	`You can help with a wide variety of tasks including answering questions, providing explanations, ` +
	`helping with coding, writing, analysis, and general conversation. ` +
	`Answer in the language the user writes in. Be concise but thorough in your responses.`

// HistoryStore persists and replays chat turns. *store.SQLiteStore
// satisfies it.
type HistoryStore interface {
	Append(ctx context.Context, userID int64, role store.Role, content string) error
	Recent(ctx context.Context, userID int64, n int) ([]store.Message, error)
}

// Config holds the dependencies required to construct an Assistant.
type Config struct {
	// ChatModel is the LLM backend constructed by the provider factory.
	// A nil model makes every call fail with ErrNotConfigured.
	ChatModel model.BaseChatModel

	// History is the optional conversation store used to persist and replay
	// prior turns. If nil, each chat is stateless.
	History HistoryStore

	// HistoryDepth is the number of prior turns (user+assistant pairs) to
	// inject per chat. Defaults to 10 if zero.
	HistoryDepth int

	// MaxContextTokens is the estimated token budget for the full input
	// context. History is trimmed oldest-first to fit. Defaults to
	// budget.DefaultMaxContextTokens if zero.
	MaxContextTokens int

	// MaxTokens caps the reply length. Defaults to 1000 if zero.
	MaxTokens int

	// Temperature is the sampling temperature for chat. Defaults to 0.7.
	Temperature float32
}

// Assistant answers free-form chat messages and checks grammar.
// It is safe for concurrent use.
type Assistant struct {
	model            model.BaseChatModel
	history          HistoryStore
	historyDepth     int
	maxContextTokens int
	maxTokens        int
	temperature      float32
}

// New constructs an Assistant from cfg.
func New(cfg *Config) *Assistant {
	if cfg == nil {
		cfg = &Config{}
	}
	a := &Assistant{
		model:            cfg.ChatModel,
		history:          cfg.History,
		historyDepth:     cfg.HistoryDepth,
		maxContextTokens: cfg.MaxContextTokens,
		maxTokens:        cfg.MaxTokens,
		temperature:      cfg.Temperature,
	}
	if a.historyDepth <= 0 {
		a.historyDepth = 10
	}
	if a.maxContextTokens <= 0 {
		a.maxContextTokens = budget.DefaultMaxContextTokens
	}
	if a.maxTokens <= 0 {
		a.maxTokens = 1000
	}
	if a.temperature <= 0 {
		a.temperature = 0.7
	}
	return a
}

// Configured reports whether a chat model is available.
func (a *Assistant) Configured() bool { return a.model != nil }

// Chat sends message to the model with the user's recent history and streams
// the reply to w chunk by chunk. The completed turn is persisted when a
// history store is configured; persistence failures are logged only.
func (a *Assistant) Chat(ctx context.Context, userID int64, message string, w io.Writer) error {
	if a.model == nil {
		return ErrNotConfigured
	}
	log := logging.FromContext(ctx)

	messages := a.buildMessages(ctx, userID, message)

	sr, err := a.model.Stream(ctx, messages,
		model.WithMaxTokens(a.maxTokens),
		model.WithTemperature(a.temperature),
	)
	if err != nil {
		return fmt.Errorf("assistant: stream failed: %w", err)
	}
	defer sr.Close()

	var reply strings.Builder
	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("assistant: stream receive error: %w", err)
		}
		if msg == nil || msg.Content == "" {
			continue
		}
		reply.WriteString(msg.Content)
		if _, err := io.WriteString(w, msg.Content); err != nil {
			return fmt.Errorf("assistant: write error: %w", err)
		}
	}

	if a.history != nil {
		if err := a.history.Append(ctx, userID, store.RoleUser, message); err != nil {
			log.Warn("history: failed to persist user message", slog.Any("error", err))
		}
		if err := a.history.Append(ctx, userID, store.RoleAssistant, reply.String()); err != nil {
			log.Warn("history: failed to persist assistant message", slog.Any("error", err))
		}
	}
	return nil
}

// buildMessages returns [system, ...history, user], with history trimmed
// oldest-first to fit the context budget.
func (a *Assistant) buildMessages(ctx context.Context, userID int64, message string) []*schema.Message {
	log := logging.FromContext(ctx)
	system := schema.SystemMessage(systemPrompt)
	user := schema.UserMessage(message)

	var historyMsgs []*schema.Message
	if a.history != nil {
		prior, err := a.history.Recent(ctx, userID, a.historyDepth*2)
		if err != nil {
			log.Warn("history: failed to load prior messages", slog.Any("error", err))
		}
		for _, m := range prior {
			switch m.Role {
			case store.RoleUser:
				historyMsgs = append(historyMsgs, schema.UserMessage(m.Content))
			case store.RoleAssistant:
				historyMsgs = append(historyMsgs, schema.AssistantMessage(m.Content, nil))
			}
		}
	}

	before := len(historyMsgs)
	historyMsgs = budget.TrimHistory([]*schema.Message{system, user}, historyMsgs, a.maxContextTokens)
	if dropped := before - len(historyMsgs); dropped > 0 {
		log.Warn("budget: dropped history messages to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(historyMsgs)),
			slog.Int("max_tokens", a.maxContextTokens),
		)
	}

	out := make([]*schema.Message, 0, len(historyMsgs)+2)
	out = append(out, system)
	out = append(out, historyMsgs...)
	return append(out, user)
}
