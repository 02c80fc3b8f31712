// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package draft

import (
	"regexp"
	"strings"
)

// evidenceIDPattern matches opaque evidence identifiers: ev_ + 8 hex chars.
var evidenceIDPattern = regexp.MustCompile(`(?i)ev_[a-f0-9]{8}`)

// Inline marker groups the model sometimes leaves in display text,
// e.g. "(ev_12ab34cd)" or "[ev_12ab34cd, ev_56ef78aa]".
var (
	parenMarkerPattern   = regexp.MustCompile(`(?i)\s*\([^)]*ev_[a-f0-9]{8}[^)]*\)`)
	bracketMarkerPattern = regexp.MustCompile(`(?i)\s*\[[^\]]*ev_[a-f0-9]{8}[^\]]*\]`)
	bareMarkerPattern    = regexp.MustCompile(`(?i)\s*ev_[a-f0-9]{8}`)
	emptyParensPattern   = regexp.MustCompile(`\(\s*\)`)
	doubleSpacePattern   = regexp.MustCompile(`\s{2,}`)
)

// ExtractEvidenceIDs returns the evidence IDs found in text, lowercased,
// in first-seen order, without duplicates.
func ExtractEvidenceIDs(text string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, m := range evidenceIDPattern.FindAllString(text, -1) {
		id := strings.ToLower(m)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// NormalizeEvidenceIDs cleans a model-returned ID list: each entry is
// reduced to the embedded evidence ID when one is present, trimmed
// otherwise, and deduplicated preserving order.
func NormalizeEvidenceIDs(ids []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range ids {
		id := strings.TrimSpace(v)
		if m := evidenceIDPattern.FindString(v); m != "" {
			id = strings.ToLower(m)
		}
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// StripEvidenceMarkers removes inline evidence markers from display text.
// Citations live in the structured ID lists, never in the prose.
func StripEvidenceMarkers(text string) string {
	if text == "" {
		return ""
	}
	cleaned := parenMarkerPattern.ReplaceAllString(text, "")
	cleaned = bracketMarkerPattern.ReplaceAllString(cleaned, "")
	cleaned = bareMarkerPattern.ReplaceAllString(cleaned, "")
	cleaned = emptyParensPattern.ReplaceAllString(cleaned, "")
	cleaned = doubleSpacePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.ReplaceAll(cleaned, " ,", ",")
	cleaned = strings.ReplaceAll(cleaned, " .", ".")
	return strings.TrimSpace(cleaned)
}
