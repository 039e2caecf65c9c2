package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

const (
	defaultModel   = string(goopenai.SmallEmbedding3)
	defaultTimeout = 30 * time.Second
	// ollamaKey is sent when Ollama is used without a key; the server ignores it.
	ollamaKey = "ollama"
)

// Config configures an OpenAI-compatible embeddings client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Embedder calls the /embeddings endpoint of OpenAI or a compatible server.
type Embedder struct {
	client *goopenai.Client
	model  string
}

// NewEmbedder creates an Embedder for the OpenAI API.
func NewEmbedder(cfg Config) (*Embedder, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	return newEmbedder(cfg), nil
}

// NewOllamaEmbedder creates an Embedder for Ollama's OpenAI-compatible API.
func NewOllamaEmbedder(cfg Config) (*Embedder, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("ollama base url is required")
	}
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL += "/v1"
	}
	cfg.BaseURL = baseURL

	if strings.TrimSpace(cfg.APIKey) == "" {
		cfg.APIKey = ollamaKey
	}
	return newEmbedder(cfg), nil
}

func newEmbedder(cfg Config) *Embedder {
	config := goopenai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		config.BaseURL = baseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	config.HTTPClient = &http.Client{Timeout: timeout}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	return &Embedder{client: goopenai.NewClientWithConfig(config), model: model}
}

// Embed returns one vector per text from a single request.
func (e *Embedder) Embed(ctx context.Context, texts ...string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: texts,
		Model: goopenai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, 0, len(data))
	for _, d := range data {
		if len(d.Embedding) == 0 {
			return nil, errors.New("empty embedding in response")
		}
		out = append(out, d.Embedding)
	}
	return out, nil
}

func (e *Embedder) Model() string { return e.model }
