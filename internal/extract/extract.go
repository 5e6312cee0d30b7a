// Package extract turns uploaded files into plain text for chunking.
// Format is chosen by file extension.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var (
	// ErrUnsupported means the file extension has no extractor.
	ErrUnsupported = errors.New("extract: unsupported file type")
	// ErrInvalid means the file could not be parsed as its declared format.
	ErrInvalid = errors.New("extract: invalid file")
)

// extractor converts raw file bytes into text.
type extractor func(data []byte) (string, error)

var extractors = map[string]extractor{
	".txt":      plainText,
	".text":     plainText,
	".md":       markdownText,
	".markdown": markdownText,
	".html":     htmlText,
	".htm":      htmlText,
	".csv":      csvText,
	".docx":     docxText,
	".pdf":      pdfText,
}

var contentTypes = map[string]string{
	".txt":      "text/plain",
	".text":     "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
	".csv":      "text/csv",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".pdf":      "application/pdf",
}

// Extract returns the text of the file named filename. The result is valid
// UTF-8 but may be blank; callers decide whether blank text is acceptable.
func Extract(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	fn, ok := extractors[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	text, err := fn(data)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", filename, err)
	}
	return text, nil
}

// Supported reports whether filename has an extractor.
func Supported(filename string) bool {
	_, ok := extractors[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// ContentType returns the MIME type for filename's extension, or
// application/octet-stream.
func ContentType(filename string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Extensions lists the supported extensions, for help text.
func Extensions() []string {
	return []string{".txt", ".md", ".html", ".csv", ".docx", ".pdf"}
}

// plainText decodes data as UTF-8, dropping a BOM and replacing invalid
// sequences.
func plainText(data []byte) (string, error) {
	return normalize(string(data)), nil
}

// normalize repairs invalid UTF-8, strips a leading BOM and unifies line
// endings.
func normalize(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\ufffd")
	}
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
