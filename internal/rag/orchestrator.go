package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/54b3r/docrag-go/internal/logging"
)

// State is a step of the per-query state machine.
type State string

// Query states in execution order. Embedding and ranking may jump straight
// to StateDone with a canned answer.
const (
	StateScoping      State = "scoping"
	StateEmbedding    State = "embedding"
	StateRanking      State = "ranking"
	StateSynthesizing State = "synthesizing"
	StateDone         State = "done"
)

// Orchestrator runs a query through scoping, embedding, ranking and
// synthesis. It holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	// embedder embeds the query text.
	embedder Embedder
	// synth turns ranked chunks into an answer.
	synth *Synthesizer
	// timeout bounds each provider call. Zero disables the bound.
	timeout time.Duration
}

// NewOrchestrator constructs an Orchestrator. timeout bounds each provider
// call; zero means calls are bounded only by the caller's context.
func NewOrchestrator(embedder Embedder, synth *Synthesizer, timeout time.Duration) (*Orchestrator, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if synth == nil {
		return nil, fmt.Errorf("rag: synthesizer must not be nil")
	}
	return &Orchestrator{embedder: embedder, synth: synth, timeout: timeout}, nil
}

// Query answers q from the chunks of docs, the documents visible to the
// caller. It returns ErrNotFound when the scope is empty, ErrNoChunks when no
// document in scope has chunk records and ErrDimensionMismatch when every
// embedded chunk has a different vector size than the query. Provider
// trouble never produces an error: the Answer carries an explanatory text and
// a matching Outcome instead.
func (o *Orchestrator) Query(ctx context.Context, q Query, docs []Document) (*Answer, error) {
	log := logging.FromContext(ctx).With(slog.Int64("document_id", q.DocumentID))

	enter(log, StateScoping)
	scope := scopeDocuments(docs, q.DocumentID)
	if len(scope) == 0 {
		return nil, ErrNotFound
	}
	candidates := Candidates(scope)
	if len(candidates) == 0 {
		return nil, ErrNoChunks
	}
	first := scope[0]

	enter(log, StateEmbedding)
	embedCtx, cancel := o.bound(ctx)
	qv, err := o.embedder.EmbedOne(embedCtx, q.Text)
	cancel()
	if err != nil {
		log.Warn("rag: query embedding failed, answering without retrieval", slog.Any("error", err))
		enter(log, StateDone)
		return &Answer{
			Text:       MsgRAGUnconfigured,
			DocumentID: first.ID,
			Filename:   first.Filename,
			Outcome:    OutcomeRAGUnconfigured,
		}, nil
	}

	enter(log, StateRanking)
	ranked := Rank(qv, candidates, TopK)
	if mismatched := DimensionMismatches(qv, candidates); mismatched > 0 {
		if len(ranked) == 0 {
			return nil, fmt.Errorf("%w: %d chunks do not have %d dimensions", ErrDimensionMismatch, mismatched, len(qv))
		}
		log.Warn("rag: skipped chunks embedded with a different model",
			slog.Int("mismatched", mismatched),
			slog.Int("query_dimensions", len(qv)),
		)
	}
	if len(ranked) == 0 {
		enter(log, StateDone)
		return &Answer{
			Text:       MsgNoRelevantInfo,
			DocumentID: first.ID,
			Filename:   first.Filename,
			Outcome:    OutcomeNoMatch,
		}, nil
	}

	enter(log, StateSynthesizing)
	top := ranked[0].Chunk
	synthCtx, cancel := o.bound(ctx)
	out := o.synth.Synthesize(synthCtx, q.Text, ranked, top.Filename)
	cancel()
	if out.Err != nil {
		log.Warn("rag: answer synthesis failed", slog.Any("error", out.Err))
	}

	enter(log, StateDone)
	return &Answer{
		Text:           out.Text,
		DocumentID:     top.DocumentID,
		Filename:       top.Filename,
		RelevantChunks: evidence(ranked),
		Outcome:        out.Kind,
	}, nil
}

// IsClientError reports whether err is one of the query errors caused by the
// caller's documents rather than by the service.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoChunks) || errors.Is(err, ErrDimensionMismatch)
}

func (o *Orchestrator) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.timeout)
}

// scopeDocuments keeps only documentID when it is non-zero.
func scopeDocuments(docs []Document, documentID int64) []Document {
	if documentID == 0 {
		return docs
	}
	for _, d := range docs {
		if d.ID == documentID {
			return []Document{d}
		}
	}
	return nil
}

func evidence(ranked []RankedChunk) []string {
	n := min(len(ranked), EvidenceChunks)
	out := make([]string, n)
	for i := range n {
		out[i] = ranked[i].Chunk.Text
	}
	return out
}

func enter(log *slog.Logger, s State) {
	log.Debug("rag: state", slog.String("state", string(s)))
}
