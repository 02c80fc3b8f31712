// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieve implements the retrieval tool clients: web search,
// article fetch, and market data. Every client returns the common
// EvidenceItem shape; failures surface as errors the evidence builder
// treats as a reduced-evidence condition, never as run-fatal.
package retrieve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pdiddy/newsletter-engine/internal/httputil"
	"github.com/pdiddy/newsletter-engine/pkg/types"
)

const tavilyBaseURL = "https://api.tavily.com/search"

// TavilyClient queries the Tavily search API.
type TavilyClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cfg     types.RetrievalConfig
}

// NewTavilyClient builds a search client from the retrieval config.
func NewTavilyClient(cfg types.RetrievalConfig) *TavilyClient {
	return &TavilyClient{
		apiKey:  cfg.TavilyAPIKey,
		baseURL: tavilyBaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
	}
}

// tavilyRequest is the search request body.
type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth,omitempty"`
	Topic       string `json:"topic,omitempty"`
	MaxResults  int    `json:"max_results,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
}

// tavilyResponse is the search response body.
type tavilyResponse struct {
	Query   string `json:"query"`
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Content       string  `json:"content"`
		Score         float64 `json:"score"`
		PublishedDate string  `json:"published_date"`
	} `json:"results"`
}

// Search runs one query and returns evidence items. The time window, when
// non-zero, is passed to the API as a date range filter.
func (c *TavilyClient) Search(ctx context.Context, query string, maxResults int, window types.TimeWindow) ([]types.EvidenceItem, error) {
	if maxResults <= 0 {
		maxResults = c.cfg.MaxResultsPerQuery
	}

	reqBody := tavilyRequest{
		APIKey:      c.apiKey,
		Query:       query,
		SearchDepth: "advanced",
		Topic:       "news",
		MaxResults:  maxResults,
	}
	if !window.Start.IsZero() {
		reqBody.StartDate = window.Start.Format("2006-01-02")
	}
	if !window.End.IsZero() {
		reqBody.EndDate = window.End.Format("2006-01-02")
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encoding search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("tavily search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily search: unexpected status %d", resp.StatusCode)
	}

	var body tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	items := make([]types.EvidenceItem, 0, len(body.Results))
	for _, r := range body.Results {
		item := types.EvidenceItem{
			ID:          types.NewEvidenceID(),
			Kind:        types.SourceWeb,
			Tool:        "tavily",
			RetrievedAt: time.Now().UTC(),
			URL:         r.URL,
			Title:       r.Title,
			Text:        r.Content,
			Reliability: AssessReliability(r.URL),
			Tags:        []string{"search_result"},
		}
		if r.PublishedDate != "" {
			item.Payload = map[string]any{"publish_date": r.PublishedDate}
		}
		items = append(items, item)
	}
	return items, nil
}
