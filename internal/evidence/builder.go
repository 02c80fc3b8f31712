// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pdiddy/newsletter-engine/pkg/types"
)

// Searcher is the web search tool contract.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int, window types.TimeWindow) ([]types.EvidenceItem, error)
}

// Fetcher is the full-text article fetch tool contract.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (types.EvidenceItem, error)
}

// MarketData is the price-history tool contract.
type MarketData interface {
	PriceHistory(ctx context.Context, tickers []string, start, end time.Time, interval string) ([]types.EvidenceItem, error)
}

// ToolSet bundles the retrieval tools a builder dispatches to. Any tool
// may be nil, in which case calls needing it are skipped.
type ToolSet struct {
	Search Searcher
	Fetch  Fetcher
	Market MarketData
}

// Builder executes retrieval calls against a unit's pack under its budget.
// Tool failures are logged and reduce available evidence; they never
// propagate as run errors.
type Builder struct {
	tools   ToolSet
	limiter *rate.Limiter
	cfg     types.RetrievalConfig
	log     *logrus.Logger
}

// NewBuilder wires a builder over the given tools.
func NewBuilder(tools ToolSet, cfg types.RetrievalConfig, log *logrus.Logger) *Builder {
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 4
	}
	return &Builder{
		tools:   tools,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		cfg:     cfg,
		log:     log,
	}
}

// Gather runs the given queries against the search tool, appending
// deduplicated results to the pack, then fetches full text for the top
// search hits that have a URL but no article body. Every search and every
// fetch consumes one budgeted call. When the budget runs out Gather stops
// quietly; the caller checks pack.Remaining() if it needs to know.
func (b *Builder) Gather(ctx context.Context, pack *Pack, queries []string, window types.TimeWindow) error {
	if b.tools.Search == nil {
		return b.fetchTop(ctx, pack)
	}
	for _, query := range queries {
		if err := pack.consume(); err != nil {
			b.log.WithField("vertical", pack.pack.Vertical).Debug("search stopped: budget exhausted")
			return nil
		}
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}

		items, err := b.tools.Search.Search(ctx, query, b.cfg.MaxResultsPerQuery, window)
		if err != nil {
			b.log.WithError(err).WithField("query", query).Warn("search tool failed")
			continue
		}
		pack.add(items)
	}

	return b.fetchTop(ctx, pack)
}

// fetchTop upgrades up to FetchTopArticles search hits to full text.
func (b *Builder) fetchTop(ctx context.Context, pack *Pack) error {
	if b.tools.Fetch == nil {
		return nil
	}

	snap := pack.Snapshot()
	upgraded := make(map[string]bool)
	for _, item := range snap.Items {
		if item.Kind == types.SourceNews && item.URL != "" {
			upgraded[normalizeURL(item.URL)] = true
		}
	}

	fetched := 0
	for _, item := range snap.Items {
		if fetched >= b.cfg.FetchTopArticles {
			break
		}
		if item.URL == "" || item.Kind != types.SourceWeb {
			continue
		}
		if upgraded[normalizeURL(item.URL)] {
			continue
		}
		if err := pack.consume(); err != nil {
			return nil
		}
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}

		full, err := b.tools.Fetch.Fetch(ctx, item.URL)
		if err != nil {
			b.log.WithError(err).WithField("url", item.URL).Warn("article fetch failed")
			continue
		}
		pack.add([]types.EvidenceItem{full})
		fetched++
	}
	return nil
}

// GatherMarket pulls price history for the given tickers. One budgeted
// call per ticker actually issued.
func (b *Builder) GatherMarket(ctx context.Context, pack *Pack, tickers []string, window types.TimeWindow, interval string) error {
	if b.tools.Market == nil || len(tickers) == 0 {
		return nil
	}

	var issued []string
	for _, t := range tickers {
		if err := pack.consume(); err != nil {
			break
		}
		issued = append(issued, t)
	}
	if len(issued) == 0 {
		return nil
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}

	items, err := b.tools.Market.PriceHistory(ctx, issued, window.Start, window.End, interval)
	if err != nil {
		// Tickers fetched before the failure are still evidence.
		b.log.WithError(err).Warn("market data tool failed")
	}
	pack.add(items)
	return nil
}
