package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// grammarPrompt asks for a JSON object so the reply can be decoded into a
// GrammarResult.
const grammarPrompt = `You are an expert grammar checker and proofreader. Your task is to:
1. Correct any grammar, spelling, punctuation, and tense errors in the provided text
2. Maintain the original meaning and style
3. Provide a brief explanation of the corrections made
4. If the text is already correct, return it unchanged

Respond with ONLY a JSON object, no markdown fencing, with:
- "corrected_text": the corrected version of the text
- "corrections": a list of corrections made, each with "original", "corrected", and "explanation"
- "has_errors": boolean indicating if any corrections were made`

// CheckGrammar asks the model to correct text. A reply that is not valid JSON
// is returned verbatim as the corrected text with no corrections.
func (a *Assistant) CheckGrammar(ctx context.Context, text string) (*GrammarResult, error) {
	if a.model == nil {
		return nil, ErrNotConfigured
	}

	resp, err := a.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(grammarPrompt),
		schema.UserMessage("Please check and correct the grammar in the following text:\n\n" + text),
	},
		model.WithMaxTokens(1000),
		model.WithTemperature(0.3),
	)
	if err != nil {
		return nil, fmt.Errorf("assistant: grammar check failed: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("assistant: grammar check returned no message")
	}

	return parseGrammarOutput(resp.Content, text), nil
}

// parseGrammarOutput decodes the model's JSON reply, tolerating a markdown
// code fence around it. Missing fields fall back to the original text.
func parseGrammarOutput(output, original string) *GrammarResult {
	raw := stripFence(strings.TrimSpace(output))

	var decoded struct {
		CorrectedText *string      `json:"corrected_text"`
		Corrections   []Correction `json:"corrections"`
		HasErrors     bool         `json:"has_errors"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return &GrammarResult{
			CorrectedText: strings.TrimSpace(output),
			Corrections:   []Correction{},
		}
	}

	res := &GrammarResult{
		CorrectedText: original,
		Corrections:   decoded.Corrections,
		HasErrors:     decoded.HasErrors,
	}
	if decoded.CorrectedText != nil {
		res.CorrectedText = *decoded.CorrectedText
	}
	if res.Corrections == nil {
		res.Corrections = []Correction{}
	}
	return res
}

// stripFence removes a surrounding ``` or ```json fence.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.Contains(s[:nl], "{") {
		s = s[nl+1:]
	}
	return strings.TrimSpace(s)
}
