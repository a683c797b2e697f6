// Package search provides the outbound web-search capability used by the
// pipeline's retrieval-augmented step.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Searcher answers a free-text query with a single text result.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// TavilyConfig configures the Tavily client.
type TavilyConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Tavily queries the Tavily Search API for current information.
type Tavily struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

// NewTavily creates a Tavily search client.
func NewTavily(cfg TavilyConfig) *Tavily {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.tavily.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Tavily{
		client:  &http.Client{Timeout: cfg.Timeout},
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
	}
}

type tavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	IncludeAnswer bool   `json:"include_answer"`
	MaxResults    int    `json:"max_results"`
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search issues the query and returns the answer summary, falling back to
// the first result's content when no summary is produced.
func (t *Tavily) Search(ctx context.Context, query string) (string, error) {
	body, err := json.Marshal(tavilyRequest{
		APIKey:        t.apiKey,
		Query:         query,
		IncludeAnswer: true,
		MaxResults:    3,
	})
	if err != nil {
		return "", fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("search returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}

	if parsed.Answer != "" {
		return parsed.Answer, nil
	}
	if len(parsed.Results) > 0 {
		return parsed.Results[0].Content, nil
	}
	return "", fmt.Errorf("search returned no results for %q", query)
}
