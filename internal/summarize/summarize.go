// Package summarize produces document summaries. A configured chat model
// writes an abstractive summary in the document's language; without one, or
// when the model fails, an extractive summary built from the leading
// sentences is returned instead.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/docrag-go/internal/budget"
	"github.com/54b3r/docrag-go/internal/logging"
)

const (
	// DefaultMaxWords is the word limit requested from the model.
	DefaultMaxWords = 300

	// maxInputChars bounds the document text sent to the model.
	maxInputChars = 12000
)

const systemPrompt = `You are a helpful assistant that creates clear, concise summaries in the same language as the document. ` +
	`If the document is in Thai, respond in Thai. If in English, respond in English. If mixed, use the primary language.`

// Method records how a summary was produced.
type Method string

const (
	// MethodModel means the chat model wrote the summary.
	MethodModel Method = "model"
	// MethodExtractive means the summary was built from leading sentences.
	MethodExtractive Method = "extractive"
)

// Summary is a generated summary and how it was made.
type Summary struct {
	Text   string `json:"summary"`
	Method Method `json:"method"`
}

// Summarizer writes summaries with an optional chat model.
type Summarizer struct {
	model     model.BaseChatModel
	maxWords  int
	maxTokens int
}

// New returns a Summarizer over m. A nil m always produces extractive
// summaries. maxWords defaults to DefaultMaxWords when non-positive.
func New(m model.BaseChatModel, maxWords int) *Summarizer {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	return &Summarizer{model: m, maxWords: maxWords, maxTokens: 500}
}

// Summarize returns a summary of text. It never fails: model errors are
// logged and answered with an extractive summary.
func (s *Summarizer) Summarize(ctx context.Context, text string) Summary {
	if s.model == nil {
		return Summary{Text: Simple(text, s.maxWords), Method: MethodExtractive}
	}

	out, err := s.generate(ctx, text)
	if err != nil {
		logging.FromContext(ctx).Warn("summarize: model failed, using extractive summary", slog.Any("error", err))
		return Summary{Text: Simple(text, s.maxWords), Method: MethodExtractive}
	}
	return Summary{Text: out, Method: MethodModel}
}

func (s *Summarizer) generate(ctx context.Context, text string) (string, error) {
	resp, err := s.model.Generate(ctx, s.BuildMessages(text),
		model.WithMaxTokens(s.maxTokens),
		model.WithTemperature(0.7),
	)
	if err != nil {
		return "", err
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return strings.TrimSpace(resp.Content), nil
}

// BuildMessages assembles the prompt for text, truncated to the input bound.
func (s *Summarizer) BuildMessages(text string) []*schema.Message {
	text = budget.TruncateRunes(text, maxInputChars, "...")
	user := fmt.Sprintf("Please provide a comprehensive summary of the following document. "+
		"Include key points, main topics, and important details. Keep it under %d words:\n\n%s", s.maxWords, text)
	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(user),
	}
}

// Simple builds an extractive summary from the leading ". "-separated
// sentences of text whose combined length stays within maxLength characters.
// The result ends with a period. When even the first sentence is too long the
// first maxLength characters are returned followed by "...".
func Simple(text string, maxLength int) string {
	var (
		kept   []string
		length int
	)
	for _, sentence := range strings.Split(text, ". ") {
		n := len([]rune(sentence))
		if length+n > maxLength {
			break
		}
		kept = append(kept, sentence)
		length += n + 2
	}

	out := strings.Join(kept, ". ")
	if out == "" {
		return budget.TruncateRunes(text, maxLength, "") + "..."
	}
	if !strings.HasSuffix(out, ".") {
		out += "."
	}
	return out
}
