package model

import (
	"fmt"
	"sort"
	"time"
)

// AggregatedCandidate is one cross-category entry in the final answer. The
// aggregate score is the candidate's own match score boosted by 0.1 for
// every additional category that also recommended it, capped at 1.0.
type AggregatedCandidate struct {
	CategoryScores map[string]float64
	Rationale      string
	BestFor        []string
	Card           Card
	AggregateScore float64
}

// AggregatedCandidates orders entries by aggregate score descending with a
// stable sort; ties keep insertion order and carry no stronger contract.
type AggregatedCandidates []AggregatedCandidate

// Len implements sort.Interface.
func (a AggregatedCandidates) Len() int { return len(a) }

// Less implements sort.Interface - higher aggregate scores come first.
func (a AggregatedCandidates) Less(i, j int) bool { return a[i].AggregateScore > a[j].AggregateScore }

// Swap implements sort.Interface.
func (a AggregatedCandidates) Swap(i, j int) { a[i], a[j] = a[j], a[i] }

// Sort orders the candidates by aggregate score descending, stable.
func (a AggregatedCandidates) Sort() {
	sort.Stable(a)
}

// FinalAnswer is the aggregation stage's ranked output.
type FinalAnswer struct {
	Summary       string
	Candidates    AggregatedCandidates
	CardsAnalyzed int
	Confidence    float64
	Elapsed       time.Duration
}

// Top returns the best aggregated candidate, or nil when the answer is
// empty.
func (a *FinalAnswer) Top() *AggregatedCandidate {
	if len(a.Candidates) == 0 {
		return nil
	}
	return &a.Candidates[0]
}

// Validate checks the final-answer ordering and confidence invariants.
func (a *FinalAnswer) Validate() error {
	for i, cand := range a.Candidates {
		if cand.AggregateScore < 0.0 || cand.AggregateScore > 1.0 {
			return fmt.Errorf("candidate %s aggregate score %.2f out of range", cand.Card.ID, cand.AggregateScore)
		}
		if i > 0 && cand.AggregateScore > a.Candidates[i-1].AggregateScore {
			return fmt.Errorf("candidates out of order at index %d", i)
		}
	}
	if a.Confidence < 0.0 || a.Confidence > 1.0 {
		return fmt.Errorf("confidence %.2f out of range", a.Confidence)
	}
	return nil
}

// SearchFinding is one informational-search result attached to a session by
// the research stage.
type SearchFinding struct {
	Source    string
	Title     string
	Content   string
	URL       string
	Relevance float64
}

// PolicyPack carries the jurisdiction rules the compliance stage validates
// against.
type PolicyPack struct {
	Jurisdiction    string
	Locale          string
	CreditPull      string
	DataSharing     string
	ConsentRequired bool
	GDPR            bool
	CCPA            bool
}

// PolicyReport is the compliance stage's verdict. Warnings never block a
// run; they are surfaced with the final answer.
type PolicyReport struct {
	Warnings        []string
	RequiredConsent []string
	ComplianceNotes []string
	Suggestions     []string
	Valid           bool
}
