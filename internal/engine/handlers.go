package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cardsage/cardsage/internal/model"
	"github.com/cardsage/cardsage/internal/service"
)

// CategoryHandler produces a ranked shortlist for one product category.
// Handlers never fail: trouble is reported through warning records and the
// result may simply carry no candidates.
type CategoryHandler interface {
	// Category returns the handler's category name, which doubles as its
	// result-map key and completed-stage entry.
	Category() string

	// Handle analyzes the request, searches the catalog, and ranks the
	// candidates. The returned records are warnings to merge into the
	// session; the result is always usable.
	Handle(ctx context.Context, req *model.StructuredRequest) (model.CategoryResult, []model.ErrorRecord)
}

// bonusFunc awards category-specific score on top of the shared weighted
// core. It receives the card and its lowercased search text.
type bonusFunc func(card model.Card, searchText string) float64

// categoryHandler is the single CategoryHandler implementation. The five
// category variants differ only in name and bonus function.
type categoryHandler struct {
	engine   *Engine
	bonus    bonusFunc
	category string
}

// defaultHandlers builds the fan-out lookup table. Every category the
// routing table can emit has exactly one entry here.
func defaultHandlers(e *Engine) map[string]CategoryHandler {
	return map[string]CategoryHandler{
		model.CategoryTravel:   newTravelHandler(e),
		model.CategoryCashback: newCashbackHandler(e),
		model.CategoryBusiness: newBusinessHandler(e),
		model.CategoryStudent:  newStudentHandler(e),
		model.CategoryGeneral:  newGeneralHandler(e),
	}
}

// newTravelHandler favors miles earning and forex-friendly cards.
func newTravelHandler(e *Engine) CategoryHandler {
	return &categoryHandler{engine: e, category: model.CategoryTravel, bonus: travelBonus}
}

// newCashbackHandler favors percentage-rate cashback cards.
func newCashbackHandler(e *Engine) CategoryHandler {
	return &categoryHandler{engine: e, category: model.CategoryCashback, bonus: cashbackBonus}
}

// newBusinessHandler handles corporate and expense-management requests.
func newBusinessHandler(e *Engine) CategoryHandler {
	return &categoryHandler{engine: e, category: model.CategoryBusiness}
}

// newStudentHandler favors first cards and fee-free entry products.
func newStudentHandler(e *Engine) CategoryHandler {
	return &categoryHandler{engine: e, category: model.CategoryStudent, bonus: studentBonus}
}

// newGeneralHandler serves requests no specialized category claimed.
func newGeneralHandler(e *Engine) CategoryHandler {
	return &categoryHandler{engine: e, category: model.CategoryGeneral}
}

func (h *categoryHandler) Category() string { return h.category }

// Handle runs the three-step analyze/search/rank contract. Every failure is
// absorbed here so aggregation never sees a missing planned key.
func (h *categoryHandler) Handle(ctx context.Context, req *model.StructuredRequest) (model.CategoryResult, []model.ErrorRecord) {
	start := time.Now()

	var warnings []model.ErrorRecord
	warn := func(format string, args ...any) {
		warnings = append(warnings, model.ErrorRecord{
			Timestamp: time.Now(),
			Stage:     h.category,
			Message:   fmt.Sprintf(format, args...),
			Severity:  model.SeverityWarning,
		})
	}

	if req == nil {
		warn("no structured request, emitting empty result")
		return model.CategoryResult{Category: h.category, Elapsed: time.Since(start)}, warnings
	}

	analysis := h.analyze(ctx, req, warn)
	cards := h.search(ctx, req, warn)
	candidates := h.rank(req, cards)

	result := model.CategoryResult{
		Category:        h.category,
		Candidates:      candidates,
		CardsConsidered: len(cards),
		Rationale:       fmt.Sprintf("Found %d cards, ranked by relevance to your goals", len(cards)),
		Elapsed:         time.Since(start),
	}

	h.engine.logger.Debug("Category handler complete",
		"category", h.category,
		"considered", len(cards),
		"kept", len(candidates),
		"risk", analysis.RiskAssessment)

	return result, warnings
}

// analyze derives category emphasis for the request. Collaborator trouble
// degrades to the static default; analysis never blocks a handler.
func (h *categoryHandler) analyze(ctx context.Context, req *model.StructuredRequest, warn func(string, ...any)) *model.CategoryAnalysis {
	var analysis *model.CategoryAnalysis
	err := h.engine.collaborate(ctx, func(callCtx context.Context) error {
		var analyzeErr error
		analysis, analyzeErr = h.engine.intelligence.AnalyzeCategory(callCtx, h.category, req)
		return analyzeErr
	})
	if err == nil && analysis == nil {
		err = fmt.Errorf("collaborator returned no analysis")
	}
	if err != nil {
		warn("category analysis failed, using default analysis: %v", err)
		return defaultAnalysis(req)
	}
	return analysis
}

// defaultAnalysis is the static stand-in used when the analyze collaborator
// is unavailable.
func defaultAnalysis(req *model.StructuredRequest) *model.CategoryAnalysis {
	return &model.CategoryAnalysis{
		PriorityCategories: []string{model.CategoryGeneral},
		RewardPreferences:  append([]string{}, req.Goals...),
		ConstraintNotes:    []string{fmt.Sprintf("Standard analysis for %s risk", req.RiskTolerance)},
		RiskAssessment:     string(req.RiskTolerance),
	}
}

// search queries the catalog. On failure it substitutes the fixed backup
// card so ranking always has something to work with.
func (h *categoryHandler) search(ctx context.Context, req *model.StructuredRequest, warn func(string, ...any)) []model.Card {
	criteria := service.SearchCriteria{
		Goals:         req.Goals,
		RiskTolerance: req.RiskTolerance,
		Constraints:   req.Constraints,
		Jurisdiction:  req.Jurisdiction,
	}

	var cards []model.Card
	err := h.engine.collaborate(ctx, func(callCtx context.Context) error {
		var searchErr error
		cards, searchErr = h.engine.catalog.Search(callCtx, criteria)
		return searchErr
	})
	if err != nil {
		warn("catalog search failed, using backup candidates: %v", err)
		return backupCards()
	}
	return cards
}

// backupCards is the deterministic substitute used when the catalog is
// unreachable.
func backupCards() []model.Card {
	return []model.Card{{
		ID:              "backup_001",
		Name:            "Premium Rewards Card",
		Category:        "rewards",
		Issuer:          "Major Bank",
		AnnualFee:       95.0,
		RewardsRate:     "2% on all purchases",
		SignupBonus:     "50,000 points",
		EligibilityTier: "excellent",
		Pros:            []string{"High rewards rate", "Good signup bonus"},
		Cons:            []string{"High annual fee", "Foreign transaction fees"},
	}}
}

// rank scores every card with the shared weighted core plus the handler's
// bonus and keeps the top entries in stable score order.
func (h *categoryHandler) rank(req *model.StructuredRequest, cards []model.Card) model.ScoredCandidates {
	scored := make(model.ScoredCandidates, 0, len(cards))
	for _, card := range cards {
		score, matched := h.score(req, card)
		scored = append(scored, model.ScoredCandidate{
			Card:       card,
			MatchScore: score,
			Rationale:  matchRationale(card, score, matched),
		})
	}
	return scored.TopN(model.MaxRecommendations)
}

// score computes the weighted match score and returns the goal tags that
// matched the card text. Weights: goal overlap 0.4, risk/fee fit 0.3,
// signup bonus within horizon 0.2, constraint flexibility 0.1; the category
// bonus comes on top and the total is capped at 1.0.
func (h *categoryHandler) score(req *model.StructuredRequest, card model.Card) (float64, []string) {
	searchText := card.SearchText()

	var score float64
	var matched []string

	if len(req.Goals) > 0 {
		for _, goal := range req.Goals {
			if strings.Contains(searchText, strings.ToLower(goal)) {
				matched = append(matched, goal)
			}
		}
		score += float64(len(matched)) / float64(len(req.Goals)) * 0.4
	}

	if feeWithinRisk(req.RiskTolerance, card.AnnualFee) {
		score += 0.3
	}

	if req.TimeHorizon == model.DefaultTimeHorizon && card.HasSignupBonus() {
		score += 0.2
	}

	if len(req.Constraints) == 0 {
		score += 0.1
	}

	if h.bonus != nil {
		score += h.bonus(card, searchText)
	}

	if score > 1.0 {
		score = 1.0
	}
	return score, matched
}

// feeWithinRisk applies the per-tolerance annual-fee comfort caps.
func feeWithinRisk(risk model.RiskTolerance, fee float64) bool {
	switch risk {
	case model.RiskConservative:
		return fee <= 50
	case model.RiskStandard:
		return fee <= 150
	case model.RiskAggressive:
		return true
	default:
		return false
	}
}

// matchRationale renders the score band, matched goals, and fee tier.
func matchRationale(card model.Card, score float64, matched []string) string {
	var parts []string

	switch {
	case score > 0.8:
		parts = append(parts, "Excellent match for your goals")
	case score > 0.6:
		parts = append(parts, "Good match for your preferences")
	case score > 0.4:
		parts = append(parts, "Moderate match, consider alternatives")
	default:
		parts = append(parts, "Basic match, may not be optimal")
	}

	if len(matched) > 0 {
		parts = append(parts, fmt.Sprintf("Supports your goals: %s", strings.Join(matched, ", ")))
	}

	switch {
	case card.AnnualFee <= 50:
		parts = append(parts, "Low annual fee")
	case card.AnnualFee <= 150:
		parts = append(parts, "Moderate annual fee")
	default:
		parts = append(parts, "Premium card with higher annual fee")
	}

	return strings.Join(parts, ". ")
}

// travelBonus rewards miles vocabulary and forex-free cards.
func travelBonus(_ model.Card, searchText string) float64 {
	var bonus float64
	if strings.Contains(searchText, "miles") || strings.Contains(searchText, "airline") || strings.Contains(searchText, "travel") {
		bonus += 0.2
	}
	if strings.Contains(searchText, "no foreign transaction fee") {
		bonus += 0.1
	}
	return bonus
}

// cashbackBonus rewards cashback vocabulary and percentage rates.
func cashbackBonus(card model.Card, searchText string) float64 {
	var bonus float64
	if strings.Contains(searchText, "cashback") {
		bonus += 0.2
	}
	if strings.Contains(card.RewardsRate, "%") {
		bonus += 0.1
	}
	return bonus
}

// studentBonus rewards entry-level vocabulary and zero-fee cards.
func studentBonus(card model.Card, searchText string) float64 {
	var bonus float64
	if strings.Contains(searchText, "student") || strings.Contains(searchText, "first") {
		bonus += 0.3
	}
	if card.AnnualFee == 0 {
		bonus += 0.2
	}
	return bonus
}
