// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/pdiddy/newsletter-engine/internal/httputil"
	"github.com/pdiddy/newsletter-engine/pkg/types"
)

// ArticleFetcher downloads a page and extracts its readable text.
type ArticleFetcher struct {
	client *http.Client
	cfg    types.RetrievalConfig
}

// NewArticleFetcher builds a fetcher from the retrieval config.
func NewArticleFetcher(cfg types.RetrievalConfig) *ArticleFetcher {
	return &ArticleFetcher{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
	}
}

// Fetch retrieves one article and returns it as a news evidence item with
// cleaned full text. The retrieval timestamp is always set locally.
func (f *ArticleFetcher) Fetch(ctx context.Context, rawURL string) (types.EvidenceItem, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return types.EvidenceItem{}, fmt.Errorf("parsing article URL %q: %w", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return types.EvidenceItem{}, fmt.Errorf("building fetch request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, f.client, req, 0)
	if err != nil {
		return types.EvidenceItem{}, fmt.Errorf("fetching article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.EvidenceItem{}, fmt.Errorf("fetching article: unexpected status %d", resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return types.EvidenceItem{}, fmt.Errorf("extracting article text: %w", err)
	}

	return types.EvidenceItem{
		ID:          types.NewEvidenceID(),
		Kind:        types.SourceNews,
		Tool:        "readability",
		RetrievedAt: time.Now().UTC(),
		URL:         rawURL,
		Title:       article.Title,
		Text:        article.TextContent,
		Reliability: AssessReliability(rawURL),
		Tags:        []string{"full_text"},
	}, nil
}
