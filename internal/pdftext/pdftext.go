// Package pdftext extracts plain text from uploaded PDF files.
package pdftext

import (
	"context"
	"fmt"
	"io"
	"strings"
)

const (
	BackendLedongthuc = "ledongthuc"
	BackendPDFCPU     = "pdfcpu"
)

// Extractor returns the text of every page, one page per line.
type Extractor interface {
	Extract(ctx context.Context, r io.ReaderAt, size int64) (string, error)
}

// ExtractionError reports a file the PDF parser could not process.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return "pdf extraction failed"
	}
	return e.Err.Error()
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// New returns the extractor for the named backend. An empty name selects
// the ledongthuc backend.
func New(backend string) (Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendLedongthuc:
		return &plainTextExtractor{}, nil
	case BackendPDFCPU:
		return &contentStreamExtractor{}, nil
	default:
		return nil, fmt.Errorf("unsupported pdf backend: %s", backend)
	}
}

// joinPages renders pages one per line, trimmed.
func joinPages(pages []string) string {
	var b strings.Builder
	for _, p := range pages {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

// recoverExtraction turns a parser panic into an ExtractionError.
func recoverExtraction(err *error) {
	if r := recover(); r != nil {
		*err = &ExtractionError{Err: fmt.Errorf("malformed pdf: %v", r)}
	}
}
