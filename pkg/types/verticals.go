// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// Built-in vertical identifiers.
const (
	VerticalDataCenters       = "data_centers"
	VerticalConnectivityFibre = "connectivity_fibre"
	VerticalTowersWireless    = "towers_wireless"
)

// VerticalInfo describes one topic track: its display name, the seed
// keywords used for initial retrieval, and the default focus entities
// bullets are preferentially keyed to.
type VerticalInfo struct {
	// ID is the stable vertical identifier.
	ID string `json:"id" yaml:"id"`

	// DisplayName is the section heading in the assembled document.
	DisplayName string `json:"display_name" yaml:"display_name"`

	// SeedKeywords drive the initial search queries for the vertical.
	SeedKeywords []string `json:"seed_keywords" yaml:"seed_keywords"`

	// FocusEntities is the default focus-entity list for the vertical.
	FocusEntities []string `json:"focus_entities" yaml:"focus_entities"`

	// Tickers maps focus entities to stock tickers where publicly traded.
	Tickers map[string]string `json:"tickers,omitempty" yaml:"tickers,omitempty"`
}

// DefaultVerticals is the built-in vertical registry in output order.
var DefaultVerticals = []VerticalInfo{
	{
		ID:          VerticalDataCenters,
		DisplayName: "Data Centers",
		SeedKeywords: []string{
			"data centre capacity expansion",
			"hyperscale data center",
			"colocation facility",
			"data center power",
			"edge computing infrastructure",
		},
		FocusEntities: []string{
			"Equinix",
			"Digital Realty",
			"CyrusOne",
			"QTS Data Centers",
			"NTT Global Data Centers",
			"Iron Mountain Data Centers",
			"Switch",
			"STACK Infrastructure",
			"Google Cloud",
			"Amazon Web Services (AWS)",
		},
		Tickers: map[string]string{
			"Equinix":                     "EQIX",
			"Digital Realty":              "DLR",
			"Iron Mountain Data Centers":  "IRM",
			"Google Cloud":                "GOOGL",
			"Amazon Web Services (AWS)":   "AMZN",
		},
	},
	{
		ID:          VerticalConnectivityFibre,
		DisplayName: "Connectivity & Fibre",
		SeedKeywords: []string{
			"fibre network investment",
			"subsea cable",
			"dark fibre",
			"metro fibre",
			"long-haul connectivity",
		},
		FocusEntities: []string{
			"Lumen Technologies",
			"Zayo",
			"Crown Castle Fiber",
			"Colt Technology Services",
			"euNetworks",
			"CityFibre",
			"Openreach",
			"Telxius",
			"Sparkle (Telecom Italia Sparkle)",
			"Subsea7",
		},
		Tickers: map[string]string{
			"Lumen Technologies": "LUMN",
			"Crown Castle Fiber": "CCI",
			"Openreach":          "BT.A",
			"Subsea7":            "SUBC.OL",
		},
	},
	{
		ID:          VerticalTowersWireless,
		DisplayName: "Towers & Wireless Infrastructure",
		SeedKeywords: []string{
			"tower leasing",
			"5G infrastructure",
			"small cell deployment",
			"wireless tower acquisition",
			"telecom infrastructure",
		},
		FocusEntities: []string{
			"American Tower",
			"Cellnex Telecom",
			"Vantage Towers",
			"SBA Communications",
			"IHS Towers",
			"Indus Towers",
			"Crown Castle",
			"Phoenix Tower International",
			"Helios Towers",
			"DigitalBridge",
		},
		Tickers: map[string]string{
			"American Tower":     "AMT",
			"Cellnex Telecom":    "CLNX.MC",
			"Vantage Towers":     "VTWR.DE",
			"SBA Communications": "SBAC",
			"IHS Towers":         "IHS",
			"Crown Castle":       "CCI",
			"Helios Towers":      "HTWS.L",
			"DigitalBridge":      "DBRG",
		},
	},
}

// VerticalByID looks up a vertical in the built-in registry.
func VerticalByID(id string) (VerticalInfo, bool) {
	for _, v := range DefaultVerticals {
		if v.ID == id {
			return v, true
		}
	}
	return VerticalInfo{}, false
}

// DefaultVerticalIDs returns the built-in vertical IDs in output order.
func DefaultVerticalIDs() []string {
	ids := make([]string, len(DefaultVerticals))
	for i, v := range DefaultVerticals {
		ids[i] = v.ID
	}
	return ids
}

// DisplayName returns the registered display name for a vertical, or a
// title-cased fallback for unknown IDs.
func DisplayName(id string) string {
	if v, ok := VerticalByID(id); ok {
		return v.DisplayName
	}
	words := strings.Split(strings.ReplaceAll(id, "_", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
