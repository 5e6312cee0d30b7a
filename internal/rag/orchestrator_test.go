package rag

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(t *testing.T, emb Embedder, m *fakeModel) *Orchestrator {
	t.Helper()
	var synth *Synthesizer
	if m == nil {
		synth = NewSynthesizer(nil, nil)
	} else {
		synth = NewSynthesizer(m, nil)
	}
	o, err := NewOrchestrator(emb, synth, time.Second)
	require.NoError(t, err)
	return o
}

func TestNewOrchestrator_RejectsNil(t *testing.T) {
	t.Parallel()
	_, err := NewOrchestrator(nil, NewSynthesizer(nil, nil), 0)
	assert.Error(t, err)
	_, err = NewOrchestrator(&fakeEmbedder{}, nil, 0)
	assert.Error(t, err)
}

func TestQuery_NoDocuments(t *testing.T) {
	t.Parallel()
	o := newTestOrchestrator(t, &fakeEmbedder{}, nil)

	_, err := o.Query(context.Background(), Query{Text: "q"}, nil)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsClientError(err))
}

func TestQuery_UnknownDocumentID(t *testing.T) {
	t.Parallel()
	o := newTestOrchestrator(t, &fakeEmbedder{}, nil)
	docs := []Document{{ID: 1, Filename: "a", Records: []ChunkRecord{{Text: "x"}}}}

	_, err := o.Query(context.Background(), Query{Text: "q", DocumentID: 42}, docs)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuery_DocumentsWithoutRecords(t *testing.T) {
	t.Parallel()
	o := newTestOrchestrator(t, &fakeEmbedder{}, nil)
	docs := []Document{{ID: 1, Filename: "a"}, {ID: 2, Filename: "b"}}

	_, err := o.Query(context.Background(), Query{Text: "q"}, docs)

	assert.ErrorIs(t, err, ErrNoChunks)
}

func TestQuery_EmbeddingUnavailable(t *testing.T) {
	t.Parallel()
	m := &fakeModel{reply: "unused"}
	o := newTestOrchestrator(t, &fakeEmbedder{err: ErrProviderUnavailable}, m)
	docs := []Document{
		{ID: 5, Filename: "first.txt", Records: []ChunkRecord{{Text: "x", Embedding: []float32{1}}}},
		{ID: 6, Filename: "second.txt", Records: []ChunkRecord{{Text: "y", Embedding: []float32{1}}}},
	}

	ans, err := o.Query(context.Background(), Query{Text: "q"}, docs)

	require.NoError(t, err)
	assert.Equal(t, MsgRAGUnconfigured, ans.Text)
	assert.Equal(t, OutcomeRAGUnconfigured, ans.Outcome)
	assert.Equal(t, int64(5), ans.DocumentID)
	assert.Zero(t, m.calls)
}

func TestQuery_AllChunksUnembedded(t *testing.T) {
	t.Parallel()
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	o := newTestOrchestrator(t, emb, &fakeModel{reply: "unused"})
	docs := []Document{{
		ID:       11,
		Filename: "plain.txt",
		Records:  []ChunkRecord{{Text: "a"}, {Text: "b"}, {Text: "c"}},
	}}

	ans, err := o.Query(context.Background(), Query{Text: "q"}, docs)

	require.NoError(t, err)
	assert.Equal(t, MsgNoRelevantInfo, ans.Text)
	assert.Equal(t, OutcomeNoMatch, ans.Outcome)
	assert.Equal(t, int64(11), ans.DocumentID)
	assert.Empty(t, ans.RelevantChunks)
}

func TestQuery_AnswerAttributedToTopChunk(t *testing.T) {
	t.Parallel()
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	m := &fakeModel{reply: "the answer"}
	o := newTestOrchestrator(t, emb, m)
	docs := []Document{
		{ID: 1, Filename: "weak.txt", Records: []ChunkRecord{
			{Text: "w1", Embedding: []float32{0, 1}},
			{Text: "w2", Embedding: []float32{1, 1}},
		}},
		{ID: 2, Filename: "strong.txt", Records: []ChunkRecord{
			{Text: "s1", Embedding: []float32{1, 0}},
			{Text: "s2", Embedding: []float32{1, 0.1}},
			{Text: "s3", Embedding: []float32{1, 0.5}},
		}},
	}

	ans, err := o.Query(context.Background(), Query{Text: "q"}, docs)

	require.NoError(t, err)
	assert.Equal(t, "the answer", ans.Text)
	assert.Equal(t, OutcomeAnswered, ans.Outcome)
	assert.Equal(t, int64(2), ans.DocumentID)
	assert.Equal(t, "strong.txt", ans.Filename)
	assert.Equal(t, []string{"s1", "s2", "s3"}, ans.RelevantChunks)
	require.Len(t, m.lastIn, 2)
	assert.Contains(t, m.lastIn[1].Content, `"strong.txt"`)
}

func TestQuery_ScopedToOneDocument(t *testing.T) {
	t.Parallel()
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	o := newTestOrchestrator(t, emb, &fakeModel{reply: "ok"})
	docs := []Document{
		{ID: 1, Filename: "a.txt", Records: []ChunkRecord{{Text: "best", Embedding: []float32{1, 0}}}},
		{ID: 2, Filename: "b.txt", Records: []ChunkRecord{{Text: "other", Embedding: []float32{0, 1}}}},
	}

	ans, err := o.Query(context.Background(), Query{Text: "q", DocumentID: 2}, docs)

	require.NoError(t, err)
	assert.Equal(t, int64(2), ans.DocumentID)
	assert.Equal(t, []string{"other"}, ans.RelevantChunks)
}

func TestQuery_LLMUnconfiguredStillReturnsEvidence(t *testing.T) {
	t.Parallel()
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	o := newTestOrchestrator(t, emb, nil)
	docs := []Document{{ID: 3, Filename: "a.txt", Records: []ChunkRecord{{Text: "hit", Embedding: []float32{1, 0}}}}}

	ans, err := o.Query(context.Background(), Query{Text: "q"}, docs)

	require.NoError(t, err)
	assert.Equal(t, OutcomeLLMUnconfigured, ans.Outcome)
	assert.Equal(t, MsgLLMUnconfigured, ans.Text)
	assert.Equal(t, []string{"hit"}, ans.RelevantChunks)
}

func TestQuery_DimensionMismatch(t *testing.T) {
	t.Parallel()
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}}
	o := newTestOrchestrator(t, emb, &fakeModel{reply: "ok"})
	docs := []Document{{ID: 1, Filename: "a", Records: []ChunkRecord{
		{Text: "a", Embedding: []float32{1, 0}},
		{Text: "b", Embedding: []float32{0, 1}},
	}}}

	_, err := o.Query(context.Background(), Query{Text: "q"}, docs)

	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.True(t, IsClientError(err))
}

func TestQuery_PartialDimensionMismatchIsTolerated(t *testing.T) {
	t.Parallel()
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	o := newTestOrchestrator(t, emb, &fakeModel{reply: "ok"})
	docs := []Document{{ID: 1, Filename: "a", Records: []ChunkRecord{
		{Text: "old", Embedding: []float32{1, 0, 0}},
		{Text: "new", Embedding: []float32{1, 0}},
	}}}

	ans, err := o.Query(context.Background(), Query{Text: "q"}, docs)

	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, ans.RelevantChunks)
}

func TestQuery_EvidenceCappedAtThree(t *testing.T) {
	t.Parallel()
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	o := newTestOrchestrator(t, emb, &fakeModel{reply: "ok"})
	var records []ChunkRecord
	for range 7 {
		records = append(records, ChunkRecord{Text: "c", Embedding: []float32{1, 0}})
	}

	ans, err := o.Query(context.Background(), Query{Text: "q"}, []Document{{ID: 1, Filename: "a", Records: records}})

	require.NoError(t, err)
	assert.Len(t, ans.RelevantChunks, EvidenceChunks)
}
