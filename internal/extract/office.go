package extract

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// maxDocumentXML bounds the decompressed size of word/document.xml.
const maxDocumentXML = 64 << 20

func csvText(data []byte) (string, error) {
	r := csv.NewReader(strings.NewReader(normalize(string(data))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var sb strings.Builder
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: csv: %w", ErrInvalid, err)
		}
		sb.WriteString(strings.Join(rec, "\t"))
		sb.WriteByte('\n')
	}
	return strings.TrimSpace(sb.String()), nil
}

type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
	Tabs []struct{}    `xml:"tab"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

// docxText reads the paragraphs of word/document.xml, one line each.
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: docx: %w", ErrInvalid, err)
	}

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("%w: docx: %w", ErrInvalid, err)
		}
		content, err := io.ReadAll(io.LimitReader(rc, maxDocumentXML))
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("%w: docx: %w", ErrInvalid, err)
		}

		var doc documentXML
		if err := xml.Unmarshal(content, &doc); err != nil {
			return "", fmt.Errorf("%w: docx: %w", ErrInvalid, err)
		}
		lines := make([]string, 0, len(doc.Body.Paragraphs))
		for _, p := range doc.Body.Paragraphs {
			var sb strings.Builder
			for _, r := range p.Runs {
				for range r.Tabs {
					sb.WriteByte('\t')
				}
				for _, t := range r.Text {
					sb.WriteString(t.Content)
				}
			}
			lines = append(lines, sb.String())
		}
		return normalize(strings.TrimSpace(strings.Join(lines, "\n"))), nil
	}
	return "", fmt.Errorf("%w: docx: word/document.xml not found", ErrInvalid)
}

// pdfText returns the plain text of every page. The parser panics on some
// malformed inputs, which are reported as ErrInvalid.
func pdfText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: pdf: %v", ErrInvalid, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: pdf: %w", ErrInvalid, err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: pdf: %w", ErrInvalid, err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("%w: pdf: %w", ErrInvalid, err)
	}
	return normalize(string(b)), nil
}
