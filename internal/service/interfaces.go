// Package service defines the contracts between the pipeline engine and its
// external collaborators.
package service

import (
	"context"
	"time"

	"github.com/cardsage/cardsage/internal/model"
)

// SearchCriteria is what a category handler sends to the catalog. Constraints
// travel with the criteria even though the built-in store only honors the
// risk-tolerance fee cap.
type SearchCriteria struct {
	Constraints   map[string]float64
	Category      string
	Jurisdiction  string
	RiskTolerance model.RiskTolerance
	Goals         []string
}

// Intelligence is the text-understanding collaborator. Implementations must
// tolerate repeated identical calls; every failure must be returned as an
// error the caller can catch and recover from.
type Intelligence interface {
	// ExtractRequest parses free text into a structured request. The result
	// may be partially populated; the extraction stage fills defaults and
	// enforces the locale-derived jurisdiction.
	ExtractRequest(ctx context.Context, text, locale string) (*model.StructuredRequest, error)

	// AnalyzeCategory derives category-specific emphasis for a request.
	AnalyzeCategory(ctx context.Context, category string, req *model.StructuredRequest) (*model.CategoryAnalysis, error)

	// Explain produces a closing narrative for the ranked candidates.
	Explain(ctx context.Context, req *model.StructuredRequest, candidates []model.AggregatedCandidate) (string, error)
}

// Catalog is the card-catalog collaborator. Search returns a possibly-empty
// list; callers supply their own fallback when it fails.
type Catalog interface {
	Search(ctx context.Context, criteria SearchCriteria) ([]model.Card, error)
}

// Research is the informational-search collaborator.
type Research interface {
	Search(ctx context.Context, query string) ([]model.SearchFinding, error)
}

// Policy is the jurisdiction-policy collaborator.
type Policy interface {
	PolicyPack(ctx context.Context, jurisdiction, locale string) (model.PolicyPack, error)
	Validate(ctx context.Context, req *model.StructuredRequest, consent model.Consent, pack model.PolicyPack) (model.PolicyReport, error)
}

// ReportWriter exports a completed run to an external report target.
type ReportWriter interface {
	Write(ctx context.Context, session *model.SessionState) error
}

// RetryOptions configures retry behavior for collaborator calls.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
