// Package textextract turns uploaded resume documents into normalized plain
// text. PDFs are parsed in-process; plain text and markdown pass through.
// Every result is normalized so downstream prompts and heuristics see
// consistent whitespace.
package textextract

import (
	"bytes"
	"fmt"
	"mime"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/pkg/textx"
)

// Extractor implements domain.TextExtractor for the supported resume formats.
type Extractor struct{}

// New constructs an Extractor.
func New() *Extractor { return &Extractor{} }

// Supported reports whether mediaType is a format Extract can handle.
func Supported(mediaType string) bool {
	switch normalizeMediaType(mediaType) {
	case "application/pdf", "text/plain", "text/markdown":
		return true
	}
	return false
}

// Extract returns the normalized text content of data.
func (e *Extractor) Extract(ctx domain.Context, data []byte, mediaType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty document", domain.ErrExtractionFailed)
	}

	var raw string
	switch mt := normalizeMediaType(mediaType); mt {
	case "application/pdf":
		var err error
		raw, err = extractPDF(data)
		if err != nil {
			return "", err
		}
	case "text/plain", "text/markdown":
		raw = string(data)
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, mediaType)
	}

	out := textx.Normalize(raw)
	if out == "" {
		return "", fmt.Errorf("%w: no text content", domain.ErrExtractionFailed)
	}
	return out, nil
}

// extractPDF walks every page and concatenates its plain text. Pages that
// fail to decode are skipped so one bad page does not sink the document.
func extractPDF(data []byte) (text string, err error) {
	// ledongthuc/pdf panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: pdf parse panic: %v", domain.ErrExtractionFailed, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %v", domain.ErrExtractionFailed, err)
	}

	var sb strings.Builder
	totalPage := r.NumPage()
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n\n")
	}

	out := sb.String()
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("%w: no text content found in pdf", domain.ErrExtractionFailed)
	}
	return out, nil
}

// normalizeMediaType strips parameters like charset from a Content-Type.
func normalizeMediaType(mediaType string) string {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mediaType))
	}
	return mt
}
