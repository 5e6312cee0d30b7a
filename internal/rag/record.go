package rag

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BuildRecords pairs chunk texts with their vectors. vectors may be shorter
// than texts or contain nil entries; those chunks are recorded without an
// embedding.
func BuildRecords(texts []string, vectors [][]float32) []ChunkRecord {
	records := make([]ChunkRecord, 0, len(texts))
	for i, t := range texts {
		rec := ChunkRecord{Text: t}
		if i < len(vectors) && len(vectors[i]) > 0 {
			rec.Embedding = vectors[i]
		}
		records = append(records, rec)
	}
	return records
}

// EmbeddedCount returns how many records carry a vector.
func EmbeddedCount(records []ChunkRecord) int {
	n := 0
	for _, r := range records {
		if len(r.Embedding) > 0 {
			n++
		}
	}
	return n
}

// EncodeRecords serialises records to the JSON blob stored with a document.
// An empty slice encodes to the empty string.
func EncodeRecords(records []ChunkRecord) (string, error) {
	if len(records) == 0 {
		return "", nil
	}
	b, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("rag: encode chunk records: %w", err)
	}
	return string(b), nil
}

// DecodeRecords parses a stored JSON blob. A blank blob decodes to nil.
func DecodeRecords(blob string) ([]ChunkRecord, error) {
	if strings.TrimSpace(blob) == "" || blob == "null" {
		return nil, nil
	}
	var records []ChunkRecord
	if err := json.Unmarshal([]byte(blob), &records); err != nil {
		return nil, fmt.Errorf("rag: decode chunk records: %w", err)
	}
	return records, nil
}

// Candidates flattens the records of every document into rankable chunks,
// preserving document order and chunk order.
func Candidates(docs []Document) []Chunk {
	var out []Chunk
	for _, d := range docs {
		for _, r := range d.Records {
			out = append(out, Chunk{
				Text:       r.Text,
				Embedding:  r.Embedding,
				DocumentID: d.ID,
				Filename:   d.Filename,
			})
		}
	}
	return out
}
