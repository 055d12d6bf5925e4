package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrDimensionMismatch means the embedding model and the vector index disagree on vector size.
// It is a deployment problem; retrying does not help.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	ModelName() string
}

type OpenAIEmbedder struct {
	BaseURL string
	APIKey  string
	Model   string
	Dim     int
	Client  *http.Client
}

func NewOpenAIEmbedder(baseURL, apiKey, model string, dim int, timeout time.Duration) (*OpenAIEmbedder, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai: api key is required")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("openai: invalid embedding dimension %d", dim)
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if model == "" {
		model = "text-embedding-3-large"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIEmbedder{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		Dim:     dim,
		Client:  &http.Client{Timeout: timeout},
	}, nil
}

type embeddingsReq struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingsResp struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (e *OpenAIEmbedder) Dimension() int    { return e.Dim }
func (e *OpenAIEmbedder) ModelName() string { return e.Model }

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	input := strings.TrimSpace(text)
	if input == "" {
		input = " "
	}

	var resp embeddingsResp
	req := embeddingsReq{Model: e.Model, Input: []string{input}, Dimensions: e.Dim}
	if err := postJSON(ctx, e.Client, e.BaseURL+"/v1/embeddings", e.APIKey, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("openai: embeddings response is empty")
	}

	d := resp.Data[0]
	if len(d.Embedding) != e.Dim {
		return nil, fmt.Errorf("%w: model %s returned %d, want %d", ErrDimensionMismatch, e.Model, len(d.Embedding), e.Dim)
	}
	vec := make([]float32, len(d.Embedding))
	for i, f := range d.Embedding {
		vec[i] = float32(f)
	}
	return vec, nil
}
