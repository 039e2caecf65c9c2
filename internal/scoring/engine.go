// Package scoring computes how well a résumé matches a job description.
package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/spigell/resume-matcher/internal/ai"
)

// Result is a single ranked similarity result. Score is expected in [0,1].
type Result struct {
	Score float64 `json:"score"`
	Model string  `json:"model,omitempty"`
}

// Engine ranks the similarity of two texts, best result first.
type Engine interface {
	Score(ctx context.Context, textA, textB string) ([]Result, error)
}

// EmbeddingEngine scores texts by the cosine similarity of their embeddings.
type EmbeddingEngine struct {
	embedders []ai.Embedder
}

// NewEmbeddingEngine returns an engine producing one result per embedder.
func NewEmbeddingEngine(embedders ...ai.Embedder) *EmbeddingEngine {
	return &EmbeddingEngine{embedders: embedders}
}

func (e *EmbeddingEngine) Score(ctx context.Context, textA, textB string) ([]Result, error) {
	results := make([]Result, 0, len(e.embedders))

	for _, embedder := range e.embedders {
		vecs, err := embedder.Embed(ctx, textA, textB)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", embedder.Model(), err)
		}
		if len(vecs) != 2 {
			return nil, fmt.Errorf("%s: expected 2 vectors, got %d", embedder.Model(), len(vecs))
		}

		results = append(results, Result{
			Score: CosineSimilarity(vecs[0], vecs[1]),
			Model: embedder.Model(),
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	return results, nil
}

// CosineSimilarity computes cosine similarity between two vectors. Vectors
// of different length or zero norm have similarity 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
