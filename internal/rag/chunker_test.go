package rag

import (
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_DigitsWithoutOverlap(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("0123456789", 100)

	chunks := Split(text, 100, 0)

	require.Len(t, chunks, 10)
	for i, c := range chunks {
		assert.Len(t, c, 100, "chunk %d", i)
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplit_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, Split("", 100, 10))
	assert.Empty(t, Split(" \n\t  \n", 100, 10))
}

func TestSplit_ShortTextIsSingleChunk(t *testing.T) {
	t.Parallel()
	chunks := Split("  Short text.  ", 100, 10)
	assert.Equal(t, []string{"Short text."}, chunks)
}

func TestSplit_OverlapSharedBetweenWindows(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("abcdefghijklmnopqrstuvwxyz", 20)

	chunks := Split(text, 50, 10)

	require.Greater(t, len(chunks), 1)
	for i := 0; i+1 < len(chunks); i++ {
		prev, next := chunks[i], chunks[i+1]
		assert.True(t, strings.HasPrefix(next, prev[len(prev)-10:]),
			"chunk %d does not start with the tail of chunk %d", i+1, i)
	}
}

func TestSplit_CutsAtLateBoundary(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("a", 15) + ". " + strings.Repeat("b", 22)

	chunks := Split(text, 20, 0)

	require.NotEmpty(t, chunks)
	assert.Equal(t, strings.Repeat("a", 15)+".", chunks[0])
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 20)
	}
}

func TestSplit_IgnoresEarlyBoundary(t *testing.T) {
	t.Parallel()
	// The '.' sits at 20% of the window so the window is not shortened.
	text := "aa." + strings.Repeat("b", 30)

	chunks := Split(text, 10, 0)

	require.NotEmpty(t, chunks)
	assert.Equal(t, "aa.bbbbbbb", chunks[0])
}

func TestSplit_TerminatesWhenCutShorterThanOverlap(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("abcdefgh.", 10)

	chunks := Split(text, 10, 9)

	require.NotEmpty(t, chunks)
	assert.LessOrEqual(t, len(chunks), len(text))
}

func TestSplit_CountsRunesNotBytes(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("é", 25)

	chunks := Split(text, 10, 0)

	require.Len(t, chunks, 3)
	assert.Equal(t, 10, utf8.RuneCountInString(chunks[0]))
	assert.Equal(t, 5, utf8.RuneCountInString(chunks[2]))
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c))
	}
}

func TestSplit_ClampsParameters(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("x", 2500)

	assert.Equal(t, Split(text, DefaultChunkSize, DefaultChunkSize/10), Split(text, 0, -1))
	assert.Equal(t, Split(text, 100, 10), Split(text, 100, 100))
}

func TestSplit_Deterministic(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("The quick brown fox.\nJumps over the dog. ", 80)
	assert.Equal(t, Split(text, 120, 30), Split(text, 120, 30))
}

func TestNewChunker(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"defaults", DefaultChunkSize, DefaultChunkOverlap, false},
		{"no overlap", 10, 0, false},
		{"zero size", 0, 0, true},
		{"negative overlap", 10, -1, true},
		{"overlap equals size", 10, 10, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c, err := NewChunker(tc.size, tc.overlap)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.size, c.Size())
			assert.Equal(t, tc.overlap, c.Overlap())
		})
	}
}

func TestChunker_MatchesSplit(t *testing.T) {
	t.Parallel()
	c, err := NewChunker(100, 20)
	require.NoError(t, err)
	text := strings.Repeat("Sentence number one. ", 40)
	assert.Equal(t, Split(text, 100, 20), c.Chunk(text))
}

func TestSplit_WindowsCoverEveryCharacter(t *testing.T) {
	t.Parallel()
	var b strings.Builder
	for i := range 60 {
		b.WriteString(strings.Repeat("word ", i%7+1))
		if i%3 == 0 {
			b.WriteString("end of line\n")
		} else {
			b.WriteString("sentence. ")
		}
	}
	text := []rune(b.String())

	tests := []struct {
		size, overlap int
	}{
		{50, 0},
		{50, 10},
		{100, 20},
		{120, 119},
		{1000, 200},
	}
	for _, tc := range tests {
		ws := windows(text, tc.size, tc.overlap)
		require.NotEmpty(t, ws)

		covered := make([]bool, len(text))
		for _, w := range ws {
			assert.LessOrEqual(t, w.end-w.start, tc.size, "size=%d overlap=%d", tc.size, tc.overlap)
			for i := w.start; i < w.end; i++ {
				covered[i] = true
			}
		}
		for i, r := range text {
			if !unicode.IsSpace(r) && !covered[i] {
				t.Errorf("size=%d overlap=%d: rune %d (%q) is in no window", tc.size, tc.overlap, i, r)
				break
			}
		}

		var trimmed []string
		for _, w := range ws {
			if s := strings.TrimSpace(string(text[w.start:w.end])); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		assert.Equal(t, trimmed, Split(string(text), tc.size, tc.overlap), "size=%d overlap=%d", tc.size, tc.overlap)
	}
}
