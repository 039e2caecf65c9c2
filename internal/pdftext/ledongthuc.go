package pdftext

import (
	"context"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// plainTextExtractor reads page text through the ledongthuc/pdf font decoders.
type plainTextExtractor struct{}

func (e *plainTextExtractor) Extract(ctx context.Context, r io.ReaderAt, size int64) (text string, err error) {
	defer recoverExtraction(&err)

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", &ExtractionError{Err: err}
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", &ExtractionError{Err: fmt.Errorf("page %d: %w", i, err)}
		}
		pages = append(pages, content)
	}

	return joinPages(pages), nil
}
