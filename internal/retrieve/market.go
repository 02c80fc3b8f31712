// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/newsletter-engine/internal/httputil"
	"github.com/pdiddy/newsletter-engine/pkg/types"
)

const stooqBaseURL = "https://stooq.com/q/d/l/"

// MarketClient fetches OHLCV price history from the Stooq CSV endpoint.
// It retrieves raw data only; interpretation is left to the drafter, which
// may claim nothing not directly observable from the series.
type MarketClient struct {
	baseURL string
	client  *http.Client
	cfg     types.RetrievalConfig
}

// NewMarketClient builds a market data client from the retrieval config.
func NewMarketClient(cfg types.RetrievalConfig) *MarketClient {
	return &MarketClient{
		baseURL: stooqBaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
	}
}

// PriceHistory returns one market-data evidence item per ticker that has
// data in the range. Tickers with no rows are skipped, not errors.
func (c *MarketClient) PriceHistory(ctx context.Context, tickers []string, start, end time.Time, interval string) ([]types.EvidenceItem, error) {
	if interval == "" {
		interval = "1d"
	}

	var items []types.EvidenceItem
	for _, ticker := range tickers {
		rows, err := c.fetchSeries(ctx, ticker, start, end, interval)
		if err != nil {
			return items, fmt.Errorf("price history for %s: %w", ticker, err)
		}
		if len(rows) == 0 {
			continue
		}

		items = append(items, types.EvidenceItem{
			ID:          types.NewEvidenceID(),
			Kind:        types.SourceMarket,
			Tool:        "stooq",
			RetrievedAt: time.Now().UTC(),
			URL:         "https://stooq.com/q/?s=" + url.QueryEscape(ticker),
			Title:       fmt.Sprintf("%s price history", strings.ToUpper(ticker)),
			Text: fmt.Sprintf("OHLCV data for %s from %s to %s",
				strings.ToUpper(ticker), start.Format("2006-01-02"), end.Format("2006-01-02")),
			Payload: map[string]any{
				"ticker":      strings.ToUpper(ticker),
				"interval":    interval,
				"start_date":  start.Format("2006-01-02"),
				"end_date":    end.Format("2006-01-02"),
				"ohlcv":       rows,
				"first_close": rows[0]["close"],
				"last_close":  rows[len(rows)-1]["close"],
			},
			Reliability: types.ReliabilityHigh,
			Tags:        []string{"market_data", strings.ToUpper(ticker)},
		})
	}
	return items, nil
}

// fetchSeries downloads and parses the CSV series for one ticker.
func (c *MarketClient) fetchSeries(ctx context.Context, ticker string, start, end time.Time, interval string) ([]map[string]any, error) {
	q := url.Values{}
	q.Set("s", strings.ToLower(ticker))
	q.Set("d1", start.Format("20060102"))
	q.Set("d2", end.Format("20060102"))
	q.Set("i", stooqInterval(interval))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.client, req, 0)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	if len(records) < 2 {
		// Header only, or the "N/A" body Stooq returns for unknown tickers.
		return nil, nil
	}

	var rows []map[string]any
	for _, rec := range records[1:] {
		if len(rec) < 6 {
			continue
		}
		open, err1 := strconv.ParseFloat(rec[1], 64)
		high, err2 := strconv.ParseFloat(rec[2], 64)
		low, err3 := strconv.ParseFloat(rec[3], 64)
		closePx, err4 := strconv.ParseFloat(rec[4], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		volume, _ := strconv.ParseFloat(rec[5], 64)
		rows = append(rows, map[string]any{
			"date":   rec[0],
			"open":   open,
			"high":   high,
			"low":    low,
			"close":  closePx,
			"volume": int64(volume),
		})
	}
	return rows, nil
}

// stooqInterval maps the pipeline interval to Stooq's single-letter codes.
func stooqInterval(interval string) string {
	switch interval {
	case "1w":
		return "w"
	case "1m":
		return "m"
	default:
		return "d"
	}
}
