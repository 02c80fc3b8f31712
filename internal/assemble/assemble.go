// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble renders a finished run into the issue document. The
// assembler is pure: it renumbers citations, formats markdown, and emits
// source lists from the run state alone, so assembling the same state
// twice yields byte-identical output.
package assemble

import (
	"fmt"
	"strings"

	"github.com/pdiddy/newsletter-engine/pkg/types"
)

// Citation is one renumbered source reference within a section.
type Citation struct {
	// Number is the section-local citation number, starting at 1.
	Number int `json:"number" yaml:"number"`

	// EvidenceID is the underlying evidence identifier.
	EvidenceID string `json:"evidence_id" yaml:"evidence_id"`

	// Title is the source title, if available.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// URL is the source location, if applicable.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Tool names the retrieval tool that produced the source.
	Tool string `json:"tool" yaml:"tool"`
}

// Section is one rendered newsletter section.
type Section struct {
	// Vertical identifies the topic track.
	Vertical string `json:"vertical" yaml:"vertical"`

	// DisplayName is the human-readable section title.
	DisplayName string `json:"display_name" yaml:"display_name"`

	// Headline is the section headline, empty for placeholders.
	Headline string `json:"headline,omitempty" yaml:"headline,omitempty"`

	// Paragraph is the big-picture summary.
	Paragraph string `json:"paragraph,omitempty" yaml:"paragraph,omitempty"`

	// ParagraphCitations lists the paragraph's citation numbers.
	ParagraphCitations []int `json:"paragraph_citations,omitempty" yaml:"paragraph_citations,omitempty"`

	// Bullets holds the rendered bullet lines with citation numbers.
	Bullets []RenderedBullet `json:"bullets,omitempty" yaml:"bullets,omitempty"`

	// Citations is the section's source list, referenced items only, in
	// first-citation order.
	Citations []Citation `json:"citations,omitempty" yaml:"citations,omitempty"`

	// RiskFlags lists uncertainties carried over from drafting.
	RiskFlags []string `json:"risk_flags,omitempty" yaml:"risk_flags,omitempty"`

	// Placeholder is set for failed units that produced no section.
	Placeholder bool `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`

	// FailureReason explains a placeholder section.
	FailureReason string `json:"failure_reason,omitempty" yaml:"failure_reason,omitempty"`
}

// RenderedBullet is a bullet line with its citation numbers resolved.
type RenderedBullet struct {
	Text      string `json:"text" yaml:"text"`
	Citations []int  `json:"citations" yaml:"citations"`
}

// Document is the assembled issue.
type Document struct {
	// RunID identifies the run that produced the issue.
	RunID string `json:"run_id" yaml:"run_id"`

	// Title is the issue masthead.
	Title string `json:"title" yaml:"title"`

	// Window is the coverage period.
	Window types.TimeWindow `json:"window" yaml:"window"`

	// Voice records the voice profile the issue was written in.
	Voice string `json:"voice,omitempty" yaml:"voice,omitempty"`

	// Sections lists the rendered sections in the run's vertical order.
	Sections []Section `json:"sections" yaml:"sections"`
}

// placeholderText is emitted for sections whose unit failed.
const placeholderText = "No update available for this section in this issue."

// Assemble renders the run state into an issue document. Every unit in
// the run's vertical order produces exactly one section: accepted units
// render their draft with section-local citation numbering, failed units
// render an explicit placeholder.
func Assemble(state *types.RunState, title string) *Document {
	doc := &Document{
		RunID:  state.ID,
		Title:  title,
		Window: state.Window,
		Voice:  state.Voice,
	}

	for _, vertical := range state.Verticals {
		unit := state.Unit(vertical)
		if unit == nil {
			continue
		}
		doc.Sections = append(doc.Sections, renderSection(unit))
	}
	return doc
}

// renderSection renders one unit, renumbering its citations from 1 in
// first-seen order: paragraph citations first, then bullets in order.
func renderSection(unit *types.Unit) Section {
	sec := Section{
		Vertical:    unit.Vertical,
		DisplayName: types.DisplayName(unit.Vertical),
	}
	if unit.Status != types.UnitAccepted || unit.Draft == nil {
		sec.Placeholder = true
		sec.FailureReason = unit.FailureReason
		return sec
	}

	draft := unit.Draft
	numbers := make(map[string]int)
	for _, id := range draft.CitedIDs() {
		numbers[id] = len(numbers) + 1
	}

	resolve := func(ids []string) []int {
		seen := make(map[int]bool)
		var nums []int
		for _, id := range ids {
			n, ok := numbers[id]
			if !ok || seen[n] {
				continue
			}
			seen[n] = true
			nums = append(nums, n)
		}
		return nums
	}

	sec.Headline = draft.Headline
	sec.Paragraph = draft.Paragraph
	sec.ParagraphCitations = resolve(draft.ParagraphEvidenceIDs)
	sec.RiskFlags = draft.RiskFlags
	for _, b := range draft.Bullets {
		sec.Bullets = append(sec.Bullets, RenderedBullet{
			Text:      b.Text,
			Citations: resolve(b.EvidenceIDs),
		})
	}

	for _, id := range draft.CitedIDs() {
		c := Citation{Number: numbers[id], EvidenceID: id}
		if item := unit.Pack.Item(id); item != nil {
			c.Title = item.Title
			c.URL = item.URL
			c.Tool = item.Tool
		}
		sec.Citations = append(sec.Citations, c)
	}
	return sec
}

// Markdown renders the document as the final markdown issue.
func Markdown(doc *Document) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", doc.Title)
	fmt.Fprintf(&b, "*Coverage: %s to %s*",
		doc.Window.Start.Format("January 2, 2006"),
		doc.Window.End.Format("January 2, 2006"))
	if doc.Voice != "" {
		fmt.Fprintf(&b, "  \n*Voice: %s*", doc.Voice)
	}
	b.WriteString("\n")

	for _, sec := range doc.Sections {
		fmt.Fprintf(&b, "\n## %s\n\n", sec.DisplayName)
		if sec.Placeholder {
			fmt.Fprintf(&b, "_%s_\n", placeholderText)
			continue
		}

		if sec.Headline != "" {
			fmt.Fprintf(&b, "**%s**\n\n", sec.Headline)
		}
		b.WriteString(sec.Paragraph)
		b.WriteString(markers(sec.ParagraphCitations))
		b.WriteString("\n")

		if len(sec.Bullets) > 0 {
			b.WriteString("\n")
			for _, bullet := range sec.Bullets {
				fmt.Fprintf(&b, "- %s%s\n", bullet.Text, markers(bullet.Citations))
			}
		}

		if len(sec.Citations) > 0 {
			b.WriteString("\n**Sources**\n\n")
			for _, c := range sec.Citations {
				fmt.Fprintf(&b, "%d. %s\n", c.Number, sourceLine(c))
			}
		}
	}
	return b.String()
}

// markers renders citation numbers as inline markers, e.g. " [1][2]".
func markers(nums []int) string {
	if len(nums) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(" ")
	for _, n := range nums {
		fmt.Fprintf(&b, "[%d]", n)
	}
	return b.String()
}

// sourceLine formats one source-list entry.
func sourceLine(c Citation) string {
	title := c.Title
	if title == "" {
		title = "Untitled source"
	}
	if c.URL != "" {
		return fmt.Sprintf("[%s](%s)", title, c.URL)
	}
	return fmt.Sprintf("%s (%s)", title, c.Tool)
}
