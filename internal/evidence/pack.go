// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evidence builds deduplicated, budget-bounded evidence packs by
// wrapping the retrieval tools. The builder executes and tags results; it
// performs no interpretation of them.
package evidence

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/newsletter-engine/pkg/types"
)

// ErrBudgetExhausted signals that a unit has consumed its entire retrieval
// call budget. It is a terminal condition for follow-up querying, not a
// failure: callers stop issuing queries and proceed with what they have.
var ErrBudgetExhausted = errors.New("retrieval call budget exhausted")

// Pack wraps one unit's evidence pack with the dedup index and the shared
// call-budget counter. The counter spans the unit's entire lifetime:
// initial seeding and all follow-up rounds draw from the same budget.
// Safe for concurrent use; follow-up queries may be issued while the
// drafter holds a snapshot.
type Pack struct {
	mu     sync.Mutex
	pack   types.EvidencePack
	budget int
	seen   map[string]bool
}

// NewPack creates an empty pack for a vertical with the given call budget.
func NewPack(vertical string, budget int) *Pack {
	return &Pack{
		pack: types.EvidencePack{
			Vertical:  vertical,
			CreatedAt: time.Now().UTC(),
		},
		budget: budget,
		seen:   make(map[string]bool),
	}
}

// Restore rebuilds a Pack from a persisted snapshot. The calls counter
// carries over, so a reopened unit keeps drawing from the same budget.
func Restore(snapshot types.EvidencePack, budget int) *Pack {
	p := &Pack{pack: snapshot, budget: budget, seen: make(map[string]bool)}
	for _, item := range snapshot.Items {
		if key := dedupKey(item); key != "" {
			p.seen[key] = true
		}
	}
	return p
}

// Snapshot returns a copy of the underlying evidence pack.
func (p *Pack) Snapshot() types.EvidencePack {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap := p.pack
	snap.Items = make([]types.EvidenceItem, len(p.pack.Items))
	copy(snap.Items, p.pack.Items)
	return snap
}

// Remaining returns the number of retrieval calls still available.
func (p *Pack) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.budget - p.pack.CallsUsed
}

// Len returns the number of evidence items in the pack.
func (p *Pack) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pack.Items)
}

// consume reserves one retrieval call. It returns ErrBudgetExhausted once
// the budget is spent.
func (p *Pack) consume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pack.CallsUsed >= p.budget {
		return ErrBudgetExhausted
	}
	p.pack.CallsUsed++
	return nil
}

// add appends items that are not duplicates of ones already present and
// returns how many survived dedup. Retrieval timestamps are stamped here,
// independent of anything the tool reported.
func (p *Pack) add(items []types.EvidenceItem) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now().UTC()
	added := 0
	for _, item := range items {
		key := dedupKey(item)
		if key != "" && p.seen[key] {
			continue
		}
		item.RetrievedAt = now
		p.pack.Items = append(p.pack.Items, item)
		if key != "" {
			p.seen[key] = true
		}
		added++
	}
	return added
}

// dedupKey derives the duplicate-detection key for an item: the normalized
// source URL, or ticker plus date range for market data.
func dedupKey(item types.EvidenceItem) string {
	if item.Kind == types.SourceMarket {
		ticker, _ := item.Payload["ticker"].(string)
		start, _ := item.Payload["start_date"].(string)
		end, _ := item.Payload["end_date"].(string)
		if ticker != "" {
			return fmt.Sprintf("market:%s:%s:%s", strings.ToLower(ticker), start, end)
		}
	}
	// The kind is part of the key so a full-text upgrade coexists with
	// the search hit it came from.
	if item.URL != "" {
		return "url:" + string(item.Kind) + ":" + normalizeURL(item.URL)
	}
	return ""
}

// normalizeURL lowercases the host, drops the scheme, "www." prefix,
// query, fragment, and any trailing slash, so the same article found via
// different links dedups to one item.
func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(strings.ToLower(raw), "/")
	}
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	path := strings.TrimSuffix(u.Path, "/")
	return host + path
}
