package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cardsage/cardsage/internal/model"
)

// multiCategoryBoost is added to a candidate's aggregate score for every
// additional category that also recommended it.
const multiCategoryBoost = 0.1

// pooledCandidate is one flattened entry of the aggregation input pool.
type pooledCandidate struct {
	category  string
	candidate model.ScoredCandidate
}

// aggregateStage merges the per-category shortlists into the final ranked
// answer. It always succeeds; an empty pool yields the explicit
// no-recommendations answer.
func (e *Engine) aggregateStage(ctx context.Context, session *model.SessionState) error {
	start := time.Now()

	if len(session.CategoryResults) == 0 {
		session.Answer = emptyAnswer("No category results available to summarize.", start)
		return nil
	}

	pool := flattenResults(session)
	if len(pool) == 0 {
		session.Answer = emptyAnswer("No credit card recommendations found for your request.", start)
		return nil
	}

	aggregated := groupByCard(pool)

	for i := range aggregated {
		candidate := &aggregated[i]
		candidate.BestFor = bestForTags(candidate.Card)
		candidate.Rationale = aggregateRationale(candidate.Card, candidate.AggregateScore, candidate.BestFor)
	}

	aggregated.Sort()

	summary := composeSummary(session.Request, aggregated)
	if session.Request != nil {
		if closing := e.explainClosing(ctx, session, aggregated); closing != "" {
			summary = summary + "\n" + closing
		}
	}

	session.Answer = &model.FinalAnswer{
		Summary:       summary,
		Candidates:    aggregated,
		CardsAnalyzed: len(pool),
		Confidence:    topConfidence(aggregated),
		Elapsed:       time.Since(start),
	}

	e.logger.Info("Aggregation complete",
		"session_id", session.ID,
		"pool", len(pool),
		"unique_cards", len(aggregated),
		"confidence", session.Answer.Confidence)
	return nil
}

// emptyAnswer is the zero-confidence answer produced when there is nothing
// to rank.
func emptyAnswer(summary string, start time.Time) *model.FinalAnswer {
	return &model.FinalAnswer{
		Summary:    summary,
		Candidates: model.AggregatedCandidates{},
		Elapsed:    time.Since(start),
	}
}

// flattenResults lists candidates in plan-merge order: category results in
// completed-stage order, candidates in their ranked order.
func flattenResults(session *model.SessionState) []pooledCandidate {
	var pool []pooledCandidate
	for _, stage := range session.CompletedStages {
		result, ok := session.CategoryResults[stage]
		if !ok {
			continue
		}
		for _, candidate := range result.Candidates {
			pool = append(pool, pooledCandidate{category: stage, candidate: candidate})
		}
	}
	return pool
}

// groupByCard merges pool entries sharing a card id. The first occurrence
// keeps the display data and contributes the base score; each additional
// category adds the multi-category boost, capped at 1.0.
func groupByCard(pool []pooledCandidate) model.AggregatedCandidates {
	seen := make(map[string]int, len(pool))
	aggregated := make(model.AggregatedCandidates, 0, len(pool))

	for _, entry := range pool {
		id := entry.candidate.Card.ID
		if at, ok := seen[id]; ok {
			merged := &aggregated[at]
			merged.CategoryScores[entry.category] = entry.candidate.MatchScore
			merged.AggregateScore += multiCategoryBoost
			if merged.AggregateScore > 1.0 {
				merged.AggregateScore = 1.0
			}
			continue
		}

		seen[id] = len(aggregated)
		aggregated = append(aggregated, model.AggregatedCandidate{
			Card:           entry.candidate.Card,
			AggregateScore: entry.candidate.MatchScore,
			CategoryScores: map[string]float64{entry.category: entry.candidate.MatchScore},
		})
	}
	return aggregated
}

// bestForTags derives use-case tags from the card's category and text.
func bestForTags(card model.Card) []string {
	searchText := card.SearchText()
	rate := strings.ToLower(card.RewardsRate)

	var tags []string
	switch card.Category {
	case model.CategoryTravel:
		if strings.Contains(rate, "miles") {
			tags = append(tags, "Airline miles earning")
		}
		if strings.Contains(searchText, "no foreign transaction fee") {
			tags = append(tags, "International travel")
		}
		if strings.Contains(searchText, "travel insurance") {
			tags = append(tags, "Travel protection")
		}
	case model.CategoryCashback:
		if strings.Contains(card.RewardsRate, "%") {
			tags = append(tags, "Cashback rewards")
		}
		if strings.Contains(rate, "online") {
			tags = append(tags, "Online shopping")
		}
		if strings.Contains(rate, "dining") {
			tags = append(tags, "Dining rewards")
		}
	case model.CategoryBusiness:
		tags = append(tags, "Business expenses")
		if strings.Contains(searchText, "employee") {
			tags = append(tags, "Employee cards")
		}
	case model.CategoryStudent:
		tags = append(tags, "Credit building")
		if card.AnnualFee == 0 {
			tags = append(tags, "No annual fee")
		}
	}

	if card.AnnualFee == 0 {
		tags = append(tags, "Cost-effective")
	} else if card.AnnualFee <= 50 {
		tags = append(tags, "Low cost")
	}

	if strings.Contains(searchText, "signup bonus") {
		tags = append(tags, "Signup bonus")
	}

	return tags
}

// aggregateRationale renders the overall score band, use-case tags, and
// cost notes.
func aggregateRationale(card model.Card, score float64, bestFor []string) string {
	var parts []string

	switch {
	case score > 0.9:
		parts = append(parts, "Excellent overall match")
	case score > 0.7:
		parts = append(parts, "Strong recommendation")
	case score > 0.5:
		parts = append(parts, "Good option to consider")
	default:
		parts = append(parts, "Basic match")
	}

	if len(bestFor) > 0 {
		parts = append(parts, fmt.Sprintf("Best for: %s", strings.Join(bestFor, ", ")))
	}

	if card.AnnualFee == 0 {
		parts = append(parts, "No annual fee makes it cost-effective")
	} else if card.AnnualFee <= 50 {
		parts = append(parts, "Low annual fee for good value")
	}

	return strings.Join(parts, ". ")
}

// topConfidence is the mean aggregate score of the leading candidates.
func topConfidence(candidates model.AggregatedCandidates) float64 {
	if len(candidates) == 0 {
		return 0
	}

	top := candidates
	if len(top) > model.MaxRecommendations {
		top = top[:model.MaxRecommendations]
	}

	var sum float64
	for _, candidate := range top {
		sum += candidate.AggregateScore
	}
	return sum / float64(len(top))
}

// composeSummary renders the deterministic summary naming the top candidate.
func composeSummary(req *model.StructuredRequest, candidates model.AggregatedCandidates) string {
	top := candidates[0]

	intro := fmt.Sprintf("I've analyzed %d credit cards for your request.", len(candidates))
	if req != nil && len(req.Goals) > 0 {
		intro = fmt.Sprintf("Based on your goals of %s, I've analyzed %d credit cards.",
			strings.Join(req.Goals, ", "), len(candidates))
	}

	detail := fmt.Sprintf("%s. Annual fee: S$%.2f.", top.Card.RewardsRate, top.Card.AnnualFee)
	if top.Card.HasSignupBonus() {
		detail += fmt.Sprintf(" Signup bonus: %s.", top.Card.SignupBonus)
	}

	lines := []string{
		intro,
		fmt.Sprintf("Top recommendation: %s by %s.", top.Card.Name, top.Card.Issuer),
		detail,
	}
	if len(top.BestFor) > 0 {
		lines = append(lines, fmt.Sprintf("Best for: %s.", strings.Join(top.BestFor, ", ")))
	}
	lines = append(lines, fmt.Sprintf("Overall score: %.2f/1.0.", top.AggregateScore))
	if len(candidates) > 1 {
		lines = append(lines, fmt.Sprintf("I also found %d other options to consider.", len(candidates)-1))
	}
	return strings.Join(lines, "\n")
}

// explainClosing asks the intelligence collaborator for a closing line. Any
// failure keeps the deterministic summary.
func (e *Engine) explainClosing(ctx context.Context, session *model.SessionState, candidates model.AggregatedCandidates) string {
	var closing string
	err := e.collaborate(ctx, func(callCtx context.Context) error {
		var explainErr error
		closing, explainErr = e.intelligence.Explain(callCtx, session.Request, candidates)
		return explainErr
	})
	if err != nil {
		e.logger.Debug("Explain collaborator unavailable, keeping deterministic summary",
			"session_id", session.ID,
			"error", err)
		return ""
	}
	return strings.TrimSpace(closing)
}
