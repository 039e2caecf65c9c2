// Package local implements an offline embedder based on feature hashing of
// word tokens. Vectors are non-negative, so cosine similarity stays in [0,1].
package local

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

const (
	defaultDimension = 512
	modelName        = "local-hashing"
)

// Embedder hashes lowercase word tokens into a fixed number of buckets.
type Embedder struct {
	dim int
}

// NewEmbedder constructs a hashing embedder with the given dimension.
func NewEmbedder(dim int) *Embedder {
	if dim <= 0 {
		dim = defaultDimension
	}
	return &Embedder{dim: dim}
}

func (e *Embedder) Embed(ctx context.Context, texts ...string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *Embedder) Model() string { return modelName }

func (e *Embedder) Dimension() int { return e.dim }

func (e *Embedder) vector(text string) []float32 {
	v := make([]float32, e.dim)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		v[h.Sum32()%uint32(e.dim)]++
	}
	return v
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
}
