package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "newsletter-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// RetrievalConfig holds settings for the evidence-gathering stage.
type RetrievalConfig struct {
	HTTPConfig `yaml:",inline"`

	// TavilyAPIKey authenticates the web search tool.
	TavilyAPIKey string `json:"tavily_api_key,omitempty" yaml:"tavily_api_key,omitempty"`

	// MaxResultsPerQuery caps results returned by one search call (default 5).
	MaxResultsPerQuery int `json:"max_results_per_query" yaml:"max_results_per_query"`

	// CallBudget is the default retrieval-call budget per vertical (default 12).
	CallBudget int `json:"call_budget" yaml:"call_budget"`

	// FetchTopArticles is how many search hits get a full-text fetch (default 3).
	FetchTopArticles int `json:"fetch_top_articles" yaml:"fetch_top_articles"`

	// RatePerSecond throttles retrieval calls across all units (default 4).
	RatePerSecond float64 `json:"rate_per_second" yaml:"rate_per_second"`
}

// AIConfig holds shared settings for stages that call the reasoning service.
type AIConfig struct {
	// Model is the model identifier (e.g. "gpt-4o").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the reasoning service.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the service endpoint, mainly for tests.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// ReviewConfig holds settings for the review loop.
type ReviewConfig struct {
	// MaxRounds bounds the reviewing→fixing loop (default 2).
	MaxRounds int `json:"max_rounds" yaml:"max_rounds"`
}

// BulletPolicy controls how many bullets a section draft carries.
type BulletPolicy struct {
	// Cap is the absolute maximum bullet count (default 5).
	Cap int `json:"cap" yaml:"cap"`

	// Min is the minimum bullet count when any evidence exists (default 1).
	Min int `json:"min" yaml:"min"`

	// SectorFallbackEvidence is the evidence-item count below which the
	// drafter asks for sector-wide bullets instead of per-entity bullets.
	SectorFallbackEvidence int `json:"sector_fallback_evidence" yaml:"sector_fallback_evidence"`
}

// Count resolves the bullet count for a vertical: the number of enabled
// focus entities, capped, with a floor of Min when evidence exists.
func (p BulletPolicy) Count(focusEntities, evidenceItems int) int {
	if evidenceItems == 0 {
		return 0
	}
	n := focusEntities
	if n > p.Cap {
		n = p.Cap
	}
	if n < p.Min {
		n = p.Min
	}
	return n
}

// SectorWide reports whether evidence is too sparse for per-entity bullets.
func (p BulletPolicy) SectorWide(evidenceItems int) bool {
	return evidenceItems < p.SectorFallbackEvidence
}

// SchedulingConfig holds timeouts for the orchestrator.
type SchedulingConfig struct {
	// UnitTimeout covers one unit's full draft+review+fix chain (default 5m).
	UnitTimeout time.Duration `json:"unit_timeout" yaml:"unit_timeout"`

	// RunDeadline bounds the whole run; on expiry in-flight units are
	// forced through the accept-what-you-have path (default 20m).
	RunDeadline time.Duration `json:"run_deadline" yaml:"run_deadline"`
}

// StoreConfig holds settings for the run store.
type StoreConfig struct {
	// Dir is the directory holding the run database (default "issues").
	Dir string `json:"dir" yaml:"dir"`
}

// OutputConfig holds settings for document assembly.
type OutputConfig struct {
	// Title is the issue masthead (default "Digital Infrastructure Weekly").
	Title string `json:"title" yaml:"title"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Retrieval  RetrievalConfig  `json:"retrieval" yaml:"retrieval"`
	Reason     AIConfig         `json:"reason" yaml:"reason"`
	Review     ReviewConfig     `json:"review" yaml:"review"`
	Bullets    BulletPolicy     `json:"bullets" yaml:"bullets"`
	Scheduling SchedulingConfig `json:"scheduling" yaml:"scheduling"`
	Store      StoreConfig      `json:"store" yaml:"store"`
	Output     OutputConfig     `json:"output" yaml:"output"`
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() PipelineConfig {
	return PipelineConfig{
		Retrieval: RetrievalConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "newsletter-engine/0.1",
			},
			MaxResultsPerQuery: 5,
			CallBudget:         12,
			FetchTopArticles:   3,
			RatePerSecond:      4,
		},
		Reason: AIConfig{Model: "gpt-4o"},
		Review: ReviewConfig{MaxRounds: 2},
		Bullets: BulletPolicy{
			Cap:                    MaxBullets,
			Min:                    1,
			SectorFallbackEvidence: 3,
		},
		Scheduling: SchedulingConfig{
			UnitTimeout: 5 * time.Minute,
			RunDeadline: 20 * time.Minute,
		},
		Store:  StoreConfig{Dir: "issues"},
		Output: OutputConfig{Title: "Digital Infrastructure Weekly"},
	}
}
