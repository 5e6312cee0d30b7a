package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRecords_KeepsUnembeddedChunks(t *testing.T) {
	t.Parallel()
	records := BuildRecords(
		[]string{"one", "two", "three"},
		[][]float32{{1, 2}, nil},
	)

	require.Len(t, records, 3)
	assert.Equal(t, []float32{1, 2}, records[0].Embedding)
	assert.Nil(t, records[1].Embedding)
	assert.Nil(t, records[2].Embedding)
	assert.Equal(t, 1, EmbeddedCount(records))
}

func TestEncodeRecords_OmitsMissingEmbedding(t *testing.T) {
	t.Parallel()
	blob, err := EncodeRecords([]ChunkRecord{
		{Text: "a", Embedding: []float32{0.5}},
		{Text: "b"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"text":"a","embedding":[0.5]},{"text":"b"}]`, blob)

	empty, err := EncodeRecords(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDecodeRecords(t *testing.T) {
	t.Parallel()
	records, err := DecodeRecords(`[{"text":"a","embedding":[1,2]},{"text":"b"}]`)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []float32{1, 2}, records[0].Embedding)
	assert.Empty(t, records[1].Embedding)

	for _, blank := range []string{"", "  ", "null"} {
		records, err := DecodeRecords(blank)
		require.NoError(t, err)
		assert.Nil(t, records)
	}

	_, err = DecodeRecords("{not json")
	assert.Error(t, err)
}

func TestCandidates_PreservesOrderAndOwnership(t *testing.T) {
	t.Parallel()
	docs := []Document{
		{ID: 7, Filename: "a.txt", Records: []ChunkRecord{{Text: "a1"}, {Text: "a2"}}},
		{ID: 3, Filename: "b.txt"},
		{ID: 9, Filename: "c.txt", Records: []ChunkRecord{{Text: "c1", Embedding: []float32{1}}}},
	}

	got := Candidates(docs)

	require.Len(t, got, 3)
	assert.Equal(t, Chunk{Text: "a1", DocumentID: 7, Filename: "a.txt"}, got[0])
	assert.Equal(t, "a2", got[1].Text)
	assert.Equal(t, int64(9), got[2].DocumentID)
	assert.Equal(t, []float32{1}, got[2].Embedding)
}
