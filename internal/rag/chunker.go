package rag

import (
	"fmt"
	"strings"
)

const (
	// DefaultChunkSize is the window size in characters used for uploads.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the number of characters shared by consecutive
	// windows.
	DefaultChunkOverlap = 200

	// boundaryRatio is how far into a window a sentence or line break must
	// sit before the window is cut there instead of at its raw end.
	boundaryRatio = 0.7
)

// Chunker splits document text into overlapping, boundary-aware chunks.
// A Chunker is immutable and safe for concurrent use.
type Chunker struct {
	// size is the window size in characters.
	size int
	// overlap is the number of characters repeated between windows.
	overlap int
}

// NewChunker validates the window parameters and returns a Chunker.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("rag: chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("rag: chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the configured window size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits text using the configured window parameters.
func (c *Chunker) Chunk(text string) []string {
	return split([]rune(text), c.size, c.overlap)
}

// Split splits text into chunks of at most size characters where consecutive
// chunks share overlap characters. Out-of-range parameters are clamped:
// a non-positive size becomes DefaultChunkSize and an overlap outside
// [0, size) becomes size/10.
func Split(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 10
	}
	return split([]rune(text), size, overlap)
}

// split cuts text into its windows and drops those that are only
// whitespace. Surrounding whitespace is trimmed from each chunk.
func split(text []rune, size, overlap int) []string {
	var chunks []string
	for _, w := range windows(text, size, overlap) {
		if s := strings.TrimSpace(string(text[w.start:w.end])); s != "" {
			chunks = append(chunks, s)
		}
	}
	return chunks
}

// window is a half-open rune range [start, end) of the source text.
type window struct {
	start, end int
}

// windows walks the text in windows of size runes. Every window that does
// not reach the end of the text is shortened to its last '.' or '\n' when
// that break lies past boundaryRatio of the window. The next window starts
// overlap runes before the end of the current one.
func windows(text []rune, size, overlap int) []window {
	n := len(text)
	var out []window
	start := 0
	for start < n {
		end := start + size
		if end < n {
			if bp := lastBreak(text[start:end]); float64(bp) > float64(size)*boundaryRatio {
				end = start + bp + 1
			}
		}
		out = append(out, window{start, min(end, n)})

		next := end - overlap
		if next <= start {
			// A boundary cut shorter than the overlap would stall the cursor.
			next = end
		}
		start = next
	}
	return out
}

// lastBreak returns the index of the last '.' or '\n' in window, or -1.
func lastBreak(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] == '.' || window[i] == '\n' {
			return i
		}
	}
	return -1
}
