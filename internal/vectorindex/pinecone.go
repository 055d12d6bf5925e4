package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/suPer8Hu/rag-chat/internal/errs"
	"github.com/suPer8Hu/rag-chat/internal/logger"
)

type PineconeConfig struct {
	APIKey      string
	Environment string
	IndexName   string
	// IndexHost overrides the data-plane host reported by describe_index. A bare host gets an
	// https:// scheme.
	IndexHost  string
	Namespace  string
	Dimension  int
	APIVersion string
	BaseURL    string
	Timeout    time.Duration
}

// Pinecone is an Index backed by the Pinecone REST data plane. Owner scoping is a metadata filter
// on MetadataOwner.
type Pinecone struct {
	log  *logger.Logger
	cfg  PineconeConfig
	host string
	http *http.Client
}

// NewPinecone validates cfg and resolves the index host. Missing credentials and an index whose
// dimension differs from cfg.Dimension are reported as *errs.ConfigurationError.
func NewPinecone(ctx context.Context, log *logger.Logger, cfg PineconeConfig) (*Pinecone, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	for _, kv := range [][2]string{
		{"PINECONE_API_KEY", cfg.APIKey},
		{"PINECONE_ENVIRONMENT", cfg.Environment},
		{"PINECONE_INDEX_NAME", cfg.IndexName},
	} {
		if strings.TrimSpace(kv[1]) == "" {
			return nil, errs.Config("pinecone", kv[0], "is required")
		}
	}
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = "2025-10"
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.pinecone.io"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	p := &Pinecone{
		log:  log.With("service", "PineconeIndex"),
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}

	// describe_index runs even with a configured host so a dimension mismatch fails at start-up
	desc, err := p.DescribeIndex(ctx, cfg.IndexName)
	if err != nil {
		return nil, &errs.ConfigurationError{
			Component: "pinecone",
			Variable:  "PINECONE_INDEX_NAME",
			Reason:    "could not be described",
			Cause:     err,
		}
	}
	if cfg.Dimension > 0 && desc.Dimension > 0 && desc.Dimension != cfg.Dimension {
		return nil, errs.Config("pinecone", "EMBEDDING_DIM",
			fmt.Sprintf("is %d but index %s has dimension %d", cfg.Dimension, cfg.IndexName, desc.Dimension))
	}
	host := strings.TrimSpace(cfg.IndexHost)
	if host == "" {
		host = desc.Host
		p.log.Warn("PINECONE_INDEX_HOST not set; using host from describe_index",
			"index_name", cfg.IndexName,
			"index_host", host,
			"environment", cfg.Environment,
		)
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	p.host = strings.TrimRight(host, "/")
	return p, nil
}

type IndexDescription struct {
	Name      string `json:"name"`
	Host      string `json:"host"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
}

func (p *Pinecone) DescribeIndex(ctx context.Context, indexName string) (*IndexDescription, error) {
	u := strings.TrimRight(p.cfg.BaseURL, "/") + "/indexes/" + strings.TrimSpace(indexName)
	out, err := doJSON[IndexDescription](ctx, p, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Host) == "" {
		return nil, fmt.Errorf("pinecone describe_index returned empty host")
	}
	return out, nil
}

type pcVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type pcUpsertRequest struct {
	Vectors   []pcVector `json:"vectors"`
	Namespace string     `json:"namespace,omitempty"`
}

type pcUpsertResponse struct {
	UpsertedCount int64 `json:"upsertedCount"`
}

type pcQueryRequest struct {
	Namespace       string         `json:"namespace,omitempty"`
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	Filter          map[string]any `json:"filter,omitempty"`
	IncludeMetadata bool           `json:"includeMetadata"`
}

type pcQueryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata,omitempty"`
	} `json:"matches"`
}

func (p *Pinecone) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	req := pcUpsertRequest{Namespace: p.cfg.Namespace, Vectors: make([]pcVector, 0, len(records))}
	for _, r := range records {
		meta := make(map[string]any, len(r.Metadata)+1)
		for k, v := range r.Metadata {
			meta[k] = v
		}
		meta[MetadataOwner] = r.Owner
		req.Vectors = append(req.Vectors, pcVector{ID: r.ID, Values: r.Values, Metadata: meta})
	}
	_, err := doJSON[pcUpsertResponse](ctx, p, http.MethodPost, p.host+"/vectors/upsert", req)
	return err
}

func (p *Pinecone) Query(ctx context.Context, vector []float32, owner uint64, topK int) ([]Match, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector required")
	}
	if topK <= 0 {
		return nil, nil
	}
	resp, err := doJSON[pcQueryResponse](ctx, p, http.MethodPost, p.host+"/query", pcQueryRequest{
		Namespace:       p.cfg.Namespace,
		Vector:          vector,
		TopK:            topK,
		Filter:          map[string]any{MetadataOwner: map[string]any{"$eq": owner}},
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		out = append(out, Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}
	return out, nil
}

func doJSON[T any](ctx context.Context, p *Pinecone, method, url string, body any) (*T, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Api-Key", p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Pinecone-Api-Version", p.cfg.APIVersion)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("pinecone http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("pinecone decode error: %w", err)
	}
	return &out, nil
}
