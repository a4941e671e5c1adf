package model

import "fmt"

// RiskTolerance expresses how much annual-fee exposure a user accepts.
type RiskTolerance string

const (
	// RiskConservative prefers low-fee cards.
	RiskConservative RiskTolerance = "conservative"
	// RiskStandard accepts moderate fees.
	RiskStandard RiskTolerance = "standard"
	// RiskAggressive accepts any fee for better rewards.
	RiskAggressive RiskTolerance = "aggressive"
)

// Valid reports whether the tolerance is one of the known levels.
func (r RiskTolerance) Valid() bool {
	switch r {
	case RiskConservative, RiskStandard, RiskAggressive:
		return true
	default:
		return false
	}
}

// IntentRecommendCard is the only extraction intent the pipeline produces.
const IntentRecommendCard = "recommend_card"

// Well-known constraint keys.
const (
	ConstraintAnnualFeeMax   = "annual_fee_max"
	ConstraintFxFeeMaxPct    = "fx_fee_max_pct"
	ConstraintMinCreditScore = "min_credit_score"
)

// Default request values applied when extraction leaves a field empty.
const (
	DefaultGoal        = "rewards"
	DefaultTimeHorizon = "12m"
)

// Consent records what processing the user has agreed to.
type Consent struct {
	CreditPull      string
	Personalization bool
	DataSharing     bool
}

// DefaultConsent returns the consent object used when the caller supplies
// none: personalization on, data sharing off, no credit pull.
func DefaultConsent() Consent {
	return Consent{
		Personalization: true,
		DataSharing:     false,
		CreditPull:      "none",
	}
}

// StructuredRequest is the normalized form of the user's free-text query.
// Every field is populated after extraction completes; the jurisdiction
// always matches the locale-derived code.
type StructuredRequest struct {
	Constraints   map[string]float64
	SpendFocus    map[string]float64
	Intent        string
	Jurisdiction  string
	TimeHorizon   string
	RiskTolerance RiskTolerance
	Goals         []string
	Priority      []string
	MustHave      []string
	NiceToHave    []string
	Confidence    float64
}

// MinimalRequest is the smallest valid request, used when extraction output
// fails validation and must be replaced.
func MinimalRequest(jurisdiction string) *StructuredRequest {
	return &StructuredRequest{
		Intent:        IntentRecommendCard,
		Goals:         []string{DefaultGoal},
		Constraints:   make(map[string]float64),
		Priority:      []string{},
		SpendFocus:    make(map[string]float64),
		Jurisdiction:  jurisdiction,
		RiskTolerance: RiskStandard,
		MustHave:      []string{},
		NiceToHave:    []string{},
		TimeHorizon:   DefaultTimeHorizon,
	}
}

// HasAnyGoal reports whether the request carries at least one of the given
// goal tags.
func (r *StructuredRequest) HasAnyGoal(goals ...string) bool {
	for _, want := range goals {
		for _, goal := range r.Goals {
			if goal == want {
				return true
			}
		}
	}
	return false
}

// Validate checks the shape constraints extraction must guarantee.
func (r *StructuredRequest) Validate() error {
	if r.Intent == "" {
		return fmt.Errorf("intent is required")
	}
	if r.Jurisdiction == "" {
		return fmt.Errorf("jurisdiction is required")
	}
	if !r.RiskTolerance.Valid() {
		return fmt.Errorf("unknown risk tolerance %q", r.RiskTolerance)
	}
	if r.Confidence < 0.0 || r.Confidence > 1.0 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0, got %.2f", r.Confidence)
	}
	return nil
}
