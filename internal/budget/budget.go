// Package budget provides token budget estimation used to keep prompts inside
// a model's context window: the RAG context block, summary input and chat
// history. Because several LLM backends with different tokenizers are
// supported, this package uses a character heuristic: 1 token ≈ 4 characters.
package budget

import (
	"github.com/cloudwego/eino/schema"
)

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English and code; using 3
	// would be more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// It fits 8k-context models while leaving room for the output.
	// Override with RAG_MAX_CONTEXT_TOKENS.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		// Each message has a small per-message overhead (~4 tokens in most APIs).
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// TrimHistory removes the oldest messages from history until the total
// estimated token count of fixed + history + current fits within maxTokens.
// fixed contains messages that must not be trimmed (system prompt and the
// current user message). history contains prior conversation turns that may
// be dropped oldest-first.
//
// Returns the trimmed history slice. If even an empty history exceeds the
// budget, the empty slice is returned (fixed messages are never dropped here;
// callers should warn separately if fixed alone exceeds the budget).
func TrimHistory(fixed, history []*schema.Message, maxTokens int) []*schema.Message {
	if len(history) == 0 {
		return history
	}

	fixedTokens := EstimateMessages(fixed)

	// Binary search would be more efficient but history is typically ≤20 msgs;
	// linear scan from the front (dropping oldest) is clear and correct.
	for len(history) > 0 {
		if fixedTokens+EstimateMessages(history) <= maxTokens {
			break
		}
		// Drop the oldest message.
		history = history[1:]
	}
	return history
}

// blockSeparatorTokens is the estimated cost of the blank line joining two
// context blocks.
const blockSeparatorTokens = 1

// FitBlocks returns how many leading blocks fit within maxTokens when joined
// with blank lines. The first block is always counted so a prompt never ends
// up without context; a non-positive maxTokens disables the bound.
func FitBlocks(blocks []string, maxTokens int) int {
	if len(blocks) == 0 {
		return 0
	}
	if maxTokens <= 0 {
		return len(blocks)
	}
	used := Estimate(blocks[0])
	n := 1
	for _, b := range blocks[1:] {
		cost := blockSeparatorTokens + Estimate(b)
		if used+cost > maxTokens {
			break
		}
		used += cost
		n++
	}
	return n
}

// TruncateRunes shortens s to at most maxRunes characters, appending suffix
// when anything was cut.
func TruncateRunes(s string, maxRunes int, suffix string) string {
	if maxRunes <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes]) + suffix
}
