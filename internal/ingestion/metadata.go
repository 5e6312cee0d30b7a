package ingestion

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// maxTitleRunes caps inferred titles so CLI output stays on one line.
const maxTitleRunes = 80

// formatAliases maps file extensions to the format label shown in progress
// output and logs.
var formatAliases = map[string]string{
	".txt":      "text",
	".text":     "text",
	".md":       "markdown",
	".markdown": "markdown",
	".html":     "html",
	".htm":      "html",
	".csv":      "csv",
	".docx":     "docx",
	".pdf":      "pdf",
}

// DetectFormat returns a short label for the file's format derived from its
// extension, or "unknown" when the extension is not recognised.
func DetectFormat(filename string) string {
	if f, ok := formatAliases[strings.ToLower(filepath.Ext(filename))]; ok {
		return f
	}
	return "unknown"
}

// InferTitle returns a best-effort human title for a document. Markdown
// headings win, then the first non-empty line of text, then the filename
// without its extension.
//
// Supported patterns:
//
//	# Heading            (markdown, any level)
//	First line of text   (any format)
//	report-2024.pdf      → report-2024
func InferTitle(filename, text string) string {
	var firstLine string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if heading, ok := markdownHeading(line); ok {
			return clampTitle(heading)
		}
		if firstLine == "" {
			firstLine = line
		}
		if DetectFormat(filename) != "markdown" {
			break
		}
	}
	if firstLine != "" {
		return clampTitle(firstLine)
	}

	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// markdownHeading reports whether line is an ATX heading and returns its text.
func markdownHeading(line string) (string, bool) {
	if !strings.HasPrefix(line, "#") {
		return "", false
	}
	rest := strings.TrimLeft(line, "#")
	if len(line)-len(rest) > 6 || !strings.HasPrefix(rest, " ") {
		return "", false
	}
	rest = strings.TrimSpace(strings.TrimRight(rest, "# "))
	return rest, rest != ""
}

// clampTitle shortens s to maxTitleRunes, marking the cut with "...".
func clampTitle(s string) string {
	if utf8.RuneCountInString(s) <= maxTitleRunes {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:maxTitleRunes])) + "..."
}
