package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/54b3r/docrag-go/internal/store"
)

func sampleDocs() []store.Document {
	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	return []store.Document{
		{ID: 1, Filename: "a.txt", Content: "alpha body", Summary: "alpha", UploadedAt: at},
		{ID: 2, Filename: "b.md", Content: "beta body", UploadedAt: at.Add(time.Hour)},
	}
}

func TestNormalize(t *testing.T) {
	for in, want := range map[string]string{"json": "json", " JSON ": "json", "txt": "txt", "Text": "txt"} {
		got, err := Normalize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	for _, in := range []string{"pdf", "", "xlsx"} {
		_, err := Normalize(in)
		assert.ErrorIs(t, err, ErrUnsupportedFormat, in)
	}
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "json", sampleDocs()))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "a.txt", got[0]["filename"])
	assert.Equal(t, "alpha body", got[0]["content"])
	assert.Equal(t, "", got[1]["summary"])
	assert.Equal(t, "2026-03-01T12:30:00Z", got[0]["uploaded_at"])
}

func TestWrite_JSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "json", nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWrite_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "txt", sampleDocs()))
	out := buf.String()

	assert.Contains(t, out, "Document: a.txt\nUploaded: 2026-03-01 12:30:00")
	assert.Contains(t, out, "SUMMARY:\nalpha\n")
	assert.Contains(t, out, "CONTENT:\nbeta body\n")
	assert.Equal(t, 1, strings.Count(out, "SUMMARY:"), "documents without summary omit the section")
}

func TestWrite_Unsupported(t *testing.T) {
	assert.ErrorIs(t, Write(&bytes.Buffer{}, "pdf", sampleDocs()), ErrUnsupportedFormat)
}

func TestContentTypeAndFilename(t *testing.T) {
	assert.Equal(t, "application/json", ContentType(FormatJSON))
	assert.Equal(t, "text/plain; charset=utf-8", ContentType(FormatText))
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "documents_export_20260102_030405.txt", Filename(FormatText, now))
}
