package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spigell/resume-matcher/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel      = "gemini-embedding-001"
	defaultMaxRetries = 3
	// similarityTask tunes the embeddings for comparing two texts.
	similarityTask = "SEMANTIC_SIMILARITY"
)

var wait = utils.WaitFor

type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Embedder wraps the Google GenAI client to produce text embeddings.
type Embedder struct {
	models     contentEmbedder
	model      string
	maxRetries int
	logger     *zap.Logger
}

// NewEmbedder creates an Embedder configured for the Gemini API backend.
func NewEmbedder(ctx context.Context, apiKey, model string, maxRetries int, logger *zap.Logger) (*Embedder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{models: client.Models, model: model, maxRetries: maxRetries, logger: logger}, nil
}

// Embed returns one vector per text, retrying temporary API failures.
func (e *Embedder) Embed(ctx context.Context, texts ...string) ([][]float32, error) {
	if e == nil || e.models == nil {
		return nil, errors.New("gemini embedder is not initialized")
	}
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.Text(text)...)
	}

	config := &genai.EmbedContentConfig{TaskType: similarityTask}

	var lastErr error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		resp, err := e.models.EmbedContent(ctx, e.model, contents, config)
		if err == nil {
			return vectors(resp, len(texts))
		}

		lastErr = err
		if !isTemporary(err) || attempt == e.maxRetries {
			break
		}

		delay := time.Duration(attempt) * time.Second
		e.logger.Warn("gemini embed content failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := wait(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("embed content: %w", lastErr)
}

func (e *Embedder) Model() string {
	if e == nil {
		return ""
	}
	return e.model
}

func vectors(resp *genai.EmbedContentResponse, expected int) ([][]float32, error) {
	if resp == nil || len(resp.Embeddings) != expected {
		return nil, fmt.Errorf("gemini api returned unexpected number of embeddings")
	}

	out := make([][]float32, 0, expected)
	for _, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, errors.New("gemini api returned empty embedding")
		}
		out = append(out, emb.Values)
	}
	return out, nil
}

// isTemporary reports whether the API error is worth another attempt.
func isTemporary(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
}
