package llm

import (
	"context"
)

// Client defines the interface for collaborator model providers.
type Client interface {
	Extract(ctx context.Context, prompt string) (ExtractionResponse, error)
	Analyze(ctx context.Context, prompt string) (AnalysisResponse, error)
	Summarize(ctx context.Context, prompt string) (SummaryResponse, error)
}

// ExtractionResponse contains the provider's structured reading of a
// cardholder query.
type ExtractionResponse struct {
	Constraints   map[string]float64
	SpendFocus    map[string]float64
	Intent        string
	Jurisdiction  string
	RiskTolerance string
	TimeHorizon   string
	Goals         []string
	Priority      []string
	MustHave      []string
	NiceToHave    []string
	Confidence    float64
}

// AnalysisResponse contains category-level guidance used to shade candidate
// rationales.
type AnalysisResponse struct {
	Emphasis           map[string]string
	RiskAssessment     string
	PriorityCategories []string
	RewardPreferences  []string
	ConstraintNotes    []string
}

// SummaryResponse contains the provider's natural-language explanation of a
// recommendation set.
type SummaryResponse struct {
	Summary    string
	Confidence float64
}
