package assistant

// Correction describes a single change made by the grammar checker.
type Correction struct {
	// Original is the text as the user wrote it.
	Original string `json:"original"`
	// Corrected is the replacement text.
	Corrected string `json:"corrected"`
	// Explanation says why the change was made.
	Explanation string `json:"explanation"`
}

// GrammarResult is the outcome of a grammar check.
type GrammarResult struct {
	// CorrectedText is the full corrected text, or the input when unchanged.
	CorrectedText string `json:"corrected_text"`
	// Corrections lists the individual changes. Never nil.
	Corrections []Correction `json:"corrections"`
	// HasErrors reports whether any correction was made.
	HasErrors bool `json:"has_errors"`
}
