package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/docrag-go/internal/budget"
)

// OutcomeKind classifies how a query or synthesis ended.
type OutcomeKind string

const (
	// OutcomeAnswered means the model produced an answer from the context.
	OutcomeAnswered OutcomeKind = "answered"
	// OutcomeNoMatch means no chunk in scope could be ranked.
	OutcomeNoMatch OutcomeKind = "no_match"
	// OutcomeRAGUnconfigured means the query could not be embedded.
	OutcomeRAGUnconfigured OutcomeKind = "rag_unconfigured"
	// OutcomeLLMUnconfigured means no completion model is configured.
	OutcomeLLMUnconfigured OutcomeKind = "llm_unconfigured"
	// OutcomeLLMFailed means the completion call failed.
	OutcomeLLMFailed OutcomeKind = "llm_failed"
)

// Canned answers returned instead of errors on degraded paths.
const (
	MsgNoRelevantInfo  = "No relevant information found in the documents."
	MsgLLMUnconfigured = "The language model is not configured. Please set MODEL_PROVIDER and its credentials (for example OPENAI_API_KEY) to use RAG features."
	MsgRAGUnconfigured = "RAG is not configured: the embedding provider is unavailable. Please set EMBEDDING_PROVIDER and its credentials (for example OPENAI_API_KEY) to use RAG features."
)

const ragSystemPrompt = `You are a helpful assistant that answers questions based on the provided document context. ` +
	`Answer in the same language as the question. If the context and the question are in the same non-English language, answer in that language. ` +
	`Be accurate and cite information from the context.`

// Outcome is the result of a synthesis attempt. Text is always suitable for
// display; Err is set only when Kind is OutcomeLLMFailed.
type Outcome struct {
	// Kind classifies the result.
	Kind OutcomeKind
	// Text is the answer or the explanatory message.
	Text string
	// Err wraps ErrProviderRuntime with the provider's failure.
	Err error
}

// SynthesizerConfig tunes the completion call.
type SynthesizerConfig struct {
	// MaxContextTokens bounds the estimated size of the chunk context block.
	// Defaults to budget.DefaultMaxContextTokens.
	MaxContextTokens int
	// MaxTokens caps the generated answer length. Zero leaves the model default.
	MaxTokens int
	// Temperature is passed to the model when non-zero.
	Temperature float32
}

// Synthesizer asks a chat model to answer a question from ranked chunks.
type Synthesizer struct {
	// model is nil when no completion provider is configured.
	model model.BaseChatModel
	cfg   SynthesizerConfig
}

// NewSynthesizer returns a Synthesizer over m. A nil m yields a synthesizer
// that always reports OutcomeLLMUnconfigured.
func NewSynthesizer(m model.BaseChatModel, cfg *SynthesizerConfig) *Synthesizer {
	s := &Synthesizer{model: m}
	if cfg != nil {
		s.cfg = *cfg
	}
	if s.cfg.MaxContextTokens <= 0 {
		s.cfg.MaxContextTokens = budget.DefaultMaxContextTokens
	}
	return s
}

// Configured reports whether a completion model is available.
func (s *Synthesizer) Configured() bool { return s.model != nil }

// Synthesize answers query from ranked, attributing the context to
// sourceLabel. Callers must not pass an empty ranked slice; the orchestrator
// answers those queries itself.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, ranked []RankedChunk, sourceLabel string) (out Outcome) {
	if s.model == nil {
		return Outcome{Kind: OutcomeLLMUnconfigured, Text: MsgLLMUnconfigured}
	}

	defer func() {
		if r := recover(); r != nil {
			out = failed(fmt.Errorf("panic: %v", r))
		}
	}()

	resp, err := s.model.Generate(ctx, s.BuildMessages(query, ranked, sourceLabel), s.options()...)
	if err != nil {
		return failed(err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return failed(fmt.Errorf("empty response from model"))
	}
	return Outcome{Kind: OutcomeAnswered, Text: strings.TrimSpace(resp.Content)}
}

// BuildMessages assembles the system and user messages for a synthesis call.
func (s *Synthesizer) BuildMessages(query string, ranked []RankedChunk, sourceLabel string) []*schema.Message {
	user := fmt.Sprintf(`Based on the following document context from %q, please answer this question:

Question: %s

Document Context:
%s

Please provide a clear, accurate answer based on the context above. If the answer cannot be found in the context, say so.`,
		sourceLabel, query, s.contextBlock(ranked))

	return []*schema.Message{
		schema.SystemMessage(ragSystemPrompt),
		schema.UserMessage(user),
	}
}

// contextBlock labels each chunk by rank and joins as many as fit the budget.
// The first chunk is always included.
func (s *Synthesizer) contextBlock(ranked []RankedChunk) string {
	blocks := make([]string, len(ranked))
	for i, rc := range ranked {
		blocks[i] = fmt.Sprintf("Chunk %d:\n%s", i+1, rc.Chunk.Text)
	}
	n := budget.FitBlocks(blocks, s.cfg.MaxContextTokens)
	return strings.Join(blocks[:n], "\n\n")
}

func (s *Synthesizer) options() []model.Option {
	var opts []model.Option
	if s.cfg.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(s.cfg.MaxTokens))
	}
	if s.cfg.Temperature > 0 {
		opts = append(opts, model.WithTemperature(s.cfg.Temperature))
	}
	return opts
}

func failed(err error) Outcome {
	return Outcome{
		Kind: OutcomeLLMFailed,
		Text: fmt.Sprintf("Error generating answer: %v", err),
		Err:  fmt.Errorf("%w: %w", ErrProviderRuntime, err),
	}
}
