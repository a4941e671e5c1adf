package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Product categories. Each category has exactly one handler in the fan-out
// set; the names double as result-map keys and completed-stage entries.
const (
	CategoryTravel   = "travel"
	CategoryCashback = "cashback"
	CategoryBusiness = "business"
	CategoryStudent  = "student"
	CategoryGeneral  = "general"
)

// Categories lists the handler categories in routing-table order.
func Categories() []string {
	return []string{CategoryTravel, CategoryCashback, CategoryBusiness, CategoryStudent, CategoryGeneral}
}

// Card is one catalog record.
type Card struct {
	ID              string
	Name            string
	Category        string
	Issuer          string
	RewardsRate     string
	SignupBonus     string
	EligibilityTier string
	Geo             string
	Pros            []string
	Cons            []string
	AnnualFee       float64
}

// SearchText returns the card's textual fields joined and lowercased, the
// corpus keyword scoring matches goal tags against.
func (c Card) SearchText() string {
	parts := []string{c.Name, c.Category, c.Issuer, c.RewardsRate, c.SignupBonus, c.EligibilityTier}
	parts = append(parts, c.Pros...)
	parts = append(parts, c.Cons...)
	return strings.ToLower(strings.Join(parts, " "))
}

// HasSignupBonus reports whether the card advertises a signup bonus.
func (c Card) HasSignupBonus() bool {
	return strings.TrimSpace(c.SignupBonus) != ""
}

// ScoredCandidate is one card scored by a category handler. Created fresh
// per handler run and never mutated afterwards.
type ScoredCandidate struct {
	Card       Card
	Rationale  string
	MatchScore float64
}

// ScoredCandidates supports stable score-descending ordering. Ties keep
// catalog order; no further tie-break is defined.
type ScoredCandidates []ScoredCandidate

// Len implements sort.Interface.
func (s ScoredCandidates) Len() int { return len(s) }

// Less implements sort.Interface - higher scores come first.
func (s ScoredCandidates) Less(i, j int) bool { return s[i].MatchScore > s[j].MatchScore }

// Swap implements sort.Interface.
func (s ScoredCandidates) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

// Sort orders the candidates by score descending, preserving input order
// between equal scores.
func (s ScoredCandidates) Sort() {
	sort.Stable(s)
}

// TopN returns the N highest-scoring candidates after a stable sort.
func (s ScoredCandidates) TopN(n int) ScoredCandidates {
	if n <= 0 {
		return ScoredCandidates{}
	}
	s.Sort()
	if n > len(s) {
		n = len(s)
	}
	result := make(ScoredCandidates, n)
	copy(result, s[:n])
	return result
}

// MaxRecommendations caps how many candidates a category result carries.
const MaxRecommendations = 3

// CategoryResult is the output of one category handler.
type CategoryResult struct {
	Category        string
	Rationale       string
	Candidates      ScoredCandidates
	CardsConsidered int
	Elapsed         time.Duration
}

// Best returns the highest-scoring candidate, or nil when the handler found
// none.
func (r *CategoryResult) Best() *ScoredCandidate {
	if len(r.Candidates) == 0 {
		return nil
	}
	return &r.Candidates[0]
}

// Validate checks the invariants every handler output must hold: at most
// MaxRecommendations candidates, scores within [0,1], non-increasing order.
func (r *CategoryResult) Validate() error {
	if r.Category == "" {
		return fmt.Errorf("category is required")
	}
	if len(r.Candidates) > MaxRecommendations {
		return fmt.Errorf("category %s carries %d candidates, max is %d", r.Category, len(r.Candidates), MaxRecommendations)
	}
	for i, cand := range r.Candidates {
		if cand.MatchScore < 0.0 || cand.MatchScore > 1.0 {
			return fmt.Errorf("candidate %s score %.2f out of range", cand.Card.ID, cand.MatchScore)
		}
		if i > 0 && cand.MatchScore > r.Candidates[i-1].MatchScore {
			return fmt.Errorf("candidates out of order at index %d", i)
		}
	}
	return nil
}

// CategoryAnalysis is the analyze-step output of a handler: what this
// category should emphasize for the given request.
type CategoryAnalysis struct {
	Emphasis           map[string]string
	RiskAssessment     string
	ConstraintNotes    []string
	PriorityCategories []string
	RewardPreferences  []string
}
