// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import (
	"strings"

	"github.com/pdiddy/newsletter-engine/pkg/types"
)

// Domain tiers for reliability assessment. Trade press with established
// editorial standards counts as high; general tech outlets as medium.
var (
	highReliabilityDomains = []string{
		"reuters.com",
		"bloomberg.com",
		"ft.com",
		"wsj.com",
		"datacenterknowledge.com",
		"datacenterdynamics.com",
		"capacitymedia.com",
		"fiercetelecom.com",
		"lightreading.com",
	}

	mediumReliabilityDomains = []string{
		"techcrunch.com",
		"zdnet.com",
		"theregister.com",
		"arstechnica.com",
	}
)

// AssessReliability assigns a trust tier based on the source domain.
// Unknown domains default to medium rather than low: the reviewer, not
// the retrieval layer, decides whether evidence is strong enough.
func AssessReliability(url string) types.Reliability {
	lower := strings.ToLower(url)
	for _, d := range highReliabilityDomains {
		if strings.Contains(lower, d) {
			return types.ReliabilityHigh
		}
	}
	for _, d := range mediumReliabilityDomains {
		if strings.Contains(lower, d) {
			return types.ReliabilityMedium
		}
	}
	return types.ReliabilityMedium
}
