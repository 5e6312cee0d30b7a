// Package export renders a user's documents as a downloadable file.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/54b3r/docrag-go/internal/store"
)

// ErrUnsupportedFormat is returned for formats other than json and txt.
var ErrUnsupportedFormat = errors.New("export: unsupported format")

// Supported export formats.
const (
	FormatJSON = "json"
	FormatText = "txt"
)

// record is the JSON shape of an exported document.
type record struct {
	ID         int64     `json:"id"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
	Summary    string    `json:"summary"`
	Content    string    `json:"content"`
}

// Normalize lower-cases format and rejects unsupported values.
func Normalize(format string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	switch f {
	case FormatJSON, FormatText:
		return f, nil
	case "text":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: %q (use json or txt)", ErrUnsupportedFormat, format)
}

// ContentType returns the MIME type for a normalised format.
func ContentType(format string) string {
	if format == FormatJSON {
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}

// Filename returns the suggested download name for a normalised format.
func Filename(format string, now time.Time) string {
	return fmt.Sprintf("documents_export_%s.%s", now.UTC().Format("20060102_150405"), format)
}

// Write renders docs to w in format.
func Write(w io.Writer, format string, docs []store.Document) error {
	f, err := Normalize(format)
	if err != nil {
		return err
	}
	switch f {
	case FormatJSON:
		return writeJSON(w, docs)
	default:
		return writeText(w, docs)
	}
}

func writeJSON(w io.Writer, docs []store.Document) error {
	out := make([]record, 0, len(docs))
	for _, d := range docs {
		out = append(out, record{
			ID:         d.ID,
			Filename:   d.Filename,
			UploadedAt: d.UploadedAt.UTC(),
			Summary:    d.Summary,
			Content:    d.Content,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("export: encode json: %w", err)
	}
	return nil
}

func writeText(w io.Writer, docs []store.Document) error {
	var sb strings.Builder
	rule := strings.Repeat("=", 80)
	for i, d := range docs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "%s\nDocument: %s\nUploaded: %s\n%s\n",
			rule, d.Filename, d.UploadedAt.UTC().Format("2006-01-02 15:04:05"), rule)
		if d.Summary != "" {
			fmt.Fprintf(&sb, "\nSUMMARY:\n%s\n", d.Summary)
		}
		fmt.Fprintf(&sb, "\nCONTENT:\n%s\n", d.Content)
	}
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("export: write text: %w", err)
	}
	return nil
}
