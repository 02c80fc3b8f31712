// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// SourceKind categorizes where a piece of evidence came from.
type SourceKind string

const (
	SourceWeb    SourceKind = "web"
	SourceNews   SourceKind = "news"
	SourceMarket SourceKind = "market_data"
)

// Reliability is a coarse trust tier assigned at retrieval time.
type Reliability string

const (
	ReliabilityHigh   Reliability = "high"
	ReliabilityMedium Reliability = "medium"
	ReliabilityLow    Reliability = "low"
)

// EvidenceItem is a single retrieved source. Immutable once created:
// produced only by the evidence builder, referenced but never mutated
// by downstream stages.
type EvidenceItem struct {
	// ID is an opaque unique identifier (e.g. "ev_3fa8c21d").
	ID string `json:"id" yaml:"id"`

	// Kind is the source category: web, news, or market_data.
	Kind SourceKind `json:"kind" yaml:"kind"`

	// Tool names the retrieval tool that produced the item.
	Tool string `json:"tool" yaml:"tool"`

	// RetrievedAt is stamped locally at retrieval time, independent of any
	// source-reported timestamp.
	RetrievedAt time.Time `json:"retrieved_at" yaml:"retrieved_at"`

	// URL is the source location, if applicable.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Title is the source title, if available.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Text is the cleaned text content.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`

	// Payload carries structured data such as OHLCV series for market items.
	Payload map[string]any `json:"payload,omitempty" yaml:"payload,omitempty"`

	// Reliability is the trust tier for the source.
	Reliability Reliability `json:"reliability" yaml:"reliability"`

	// Tags are optional categorization labels.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// EvidencePack is the ordered, deduplicated evidence for one unit, plus
// the retrieval-call count consumed so far for budget enforcement.
type EvidencePack struct {
	// Vertical identifies the unit this pack belongs to.
	Vertical string `json:"vertical" yaml:"vertical"`

	// Items lists the evidence in retrieval order.
	Items []EvidenceItem `json:"items" yaml:"items"`

	// CallsUsed counts retrieval calls consumed across the unit's entire
	// lifetime, shared between seeding and all follow-up rounds.
	CallsUsed int `json:"calls_used" yaml:"calls_used"`

	// CreatedAt is the pack creation time.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// HasID reports whether the pack contains an item with the given ID.
func (p *EvidencePack) HasID(id string) bool {
	for i := range p.Items {
		if p.Items[i].ID == id {
			return true
		}
	}
	return false
}

// IDs returns every evidence ID in pack order.
func (p *EvidencePack) IDs() []string {
	ids := make([]string, len(p.Items))
	for i := range p.Items {
		ids[i] = p.Items[i].ID
	}
	return ids
}

// Item returns the evidence item with the given ID, or nil.
func (p *EvidencePack) Item(id string) *EvidenceItem {
	for i := range p.Items {
		if p.Items[i].ID == id {
			return &p.Items[i]
		}
	}
	return nil
}

// NewEvidenceID produces an opaque evidence identifier: "ev_" followed by
// 8 hex characters.
func NewEvidenceID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return "ev_" + hex.EncodeToString(b)
}
