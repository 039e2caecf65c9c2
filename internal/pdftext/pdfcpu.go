package pdftext

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// contentStreamExtractor validates the file with pdfcpu and reads the text
// showing operators of every page content stream.
type contentStreamExtractor struct{}

func (e *contentStreamExtractor) Extract(ctx context.Context, r io.ReaderAt, size int64) (text string, err error) {
	defer recoverExtraction(&err)

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(io.NewSectionReader(r, 0, size), conf)
	if err != nil {
		return "", &ExtractionError{Err: fmt.Errorf("pdfcpu read: %w", err)}
	}

	pages := make([]string, 0, pdfCtx.PageCount)
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		content, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
		if err != nil {
			return "", &ExtractionError{Err: fmt.Errorf("page %d: %w", pageNr, err)}
		}
		if content == nil {
			pages = append(pages, "")
			continue
		}

		data, err := io.ReadAll(content)
		if err != nil {
			return "", &ExtractionError{Err: fmt.Errorf("page %d: %w", pageNr, err)}
		}
		pages = append(pages, showText(data))
	}

	return joinPages(pages), nil
}

// showText collects the operands of Tj, TJ, ' and " and breaks lines on
// T*, ET and the quote operators.
func showText(data []byte) string {
	var (
		out      strings.Builder
		operands []string
	)

	flush := func() {
		for _, s := range operands {
			out.WriteString(s)
		}
		operands = operands[:0]
	}

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case isSpace(c):
			i++
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == '(':
			s, next := readLiteral(data, i)
			operands = append(operands, s)
			i = next
		case c == '<' && i+1 < len(data) && data[i+1] == '<', c == '>' && i+1 < len(data) && data[i+1] == '>':
			i += 2
		case c == '<':
			s, next := readHex(data, i)
			operands = append(operands, s)
			i = next
		case c == '[', c == ']', c == '{', c == '}', c == '>', c == ')':
			i++
		case c == '/':
			i++
			for i < len(data) && !isSpace(data[i]) && !isDelimiter(data[i]) {
				i++
			}
		default:
			start := i
			for i < len(data) && !isSpace(data[i]) && !isDelimiter(data[i]) {
				i++
			}
			switch string(data[start:i]) {
			case "Tj", "TJ":
				flush()
			case "'", `"`:
				out.WriteByte('\n')
				flush()
			case "T*", "ET":
				operands = operands[:0]
				out.WriteByte('\n')
			case "Td", "TD":
				operands = operands[:0]
				out.WriteByte(' ')
			default:
				if !isNumeric(data[start:i]) {
					operands = operands[:0]
				}
			}
		}
	}

	return cleanLines(out.String())
}

func readLiteral(data []byte, i int) (string, int) {
	var b strings.Builder
	depth := 0
	for i++; i < len(data); i++ {
		c := data[i]
		switch c {
		case '\\':
			if i+1 >= len(data) {
				return b.String(), i + 1
			}
			i++
			switch e := data[i]; e {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b', 'f':
			case '\r', '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for n := 0; n < 2 && i+1 < len(data) && data[i+1] >= '0' && data[i+1] <= '7'; n++ {
						i++
						v = v*8 + int(data[i]-'0')
					}
					b.WriteByte(byte(v))
					continue
				}
				b.WriteByte(e)
			}
		case '(':
			depth++
			b.WriteByte(c)
		case ')':
			if depth == 0 {
				return b.String(), i + 1
			}
			depth--
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), i
}

func readHex(data []byte, i int) (string, int) {
	var digits []byte
	for i++; i < len(data) && data[i] != '>'; i++ {
		if !isSpace(data[i]) {
			digits = append(digits, data[i])
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	decoded, err := hex.DecodeString(string(digits))
	if err != nil {
		return "", i + 1
	}
	return string(decoded), i + 1
}

func cleanLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == 0
}

func isDelimiter(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func isNumeric(tok []byte) bool {
	if len(tok) == 0 {
		return false
	}
	for _, c := range tok {
		if (c < '0' || c > '9') && c != '.' && c != '-' && c != '+' {
			return false
		}
	}
	return true
}
