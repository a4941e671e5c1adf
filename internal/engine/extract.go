package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/cardsage/cardsage/internal/common"
	"github.com/cardsage/cardsage/internal/model"
)

// fallbackConfidence is reported when the keyword parser stands in for the
// text-understanding collaborator.
const fallbackConfidence = 0.5

// extractStage turns the raw query into a fully populated StructuredRequest.
// Collaborator trouble degrades to the keyword parser; only missing input is
// fatal.
func (e *Engine) extractStage(ctx context.Context, session *model.SessionState) error {
	if strings.TrimSpace(session.Query) == "" {
		return fmt.Errorf("%w: query text is empty", common.ErrFatalInput)
	}

	var req *model.StructuredRequest
	err := e.collaborate(ctx, func(callCtx context.Context) error {
		var extractErr error
		req, extractErr = e.intelligence.ExtractRequest(callCtx, session.Query, session.Locale)
		return extractErr
	})
	if err == nil && req == nil {
		err = fmt.Errorf("%w: extraction returned no request", common.ErrCollaborator)
	}
	if err != nil {
		session.RecordError(model.StageExtract,
			fmt.Sprintf("extraction collaborator failed, using keyword parser: %v", err),
			model.SeverityWarning)
		req = parseKeywords(session.Query)
	}

	applyDefaults(req)

	// Statement-derived shares fill in categories the text did not mention;
	// what the user said explicitly wins.
	for category, share := range session.SpendProfile {
		if _, ok := req.SpendFocus[category]; !ok {
			req.SpendFocus[category] = share
		}
	}

	// The locale is authoritative for jurisdiction, whatever was extracted.
	req.Jurisdiction = deriveJurisdiction(session.Locale)

	if !session.Consent.Personalization {
		req.SpendFocus = make(map[string]float64)
		req.Priority = []string{}
	}

	if validateErr := req.Validate(); validateErr != nil {
		session.RecordError(model.StageExtract,
			fmt.Sprintf("extracted request failed validation, using minimal request: %v", validateErr),
			model.SeverityWarning)
		req = model.MinimalRequest(deriveJurisdiction(session.Locale))
	}

	session.Request = req

	e.logger.Debug("Extraction complete",
		"session_id", session.ID,
		"goals", req.Goals,
		"jurisdiction", req.Jurisdiction,
		"confidence", req.Confidence)
	return nil
}

// parseKeywords is the deterministic parser used when the text-understanding
// collaborator is unavailable. Same input, same output, no network.
func parseKeywords(text string) *model.StructuredRequest {
	lower := strings.ToLower(text)
	contains := func(words ...string) bool {
		for _, word := range words {
			if strings.Contains(lower, word) {
				return true
			}
		}
		return false
	}

	var goals []string
	if contains("miles", "travel", "airline") {
		goals = append(goals, "miles", "travel")
	}
	if contains("cashback", "cash back", "money") {
		goals = append(goals, "cashback")
	}
	if contains("rewards", "points") {
		goals = append(goals, "rewards")
	}
	if len(goals) == 0 {
		goals = []string{model.DefaultGoal}
	}

	constraints := make(map[string]float64)
	if contains("no fee", "no annual fee") {
		constraints[model.ConstraintAnnualFeeMax] = 0
	}

	return &model.StructuredRequest{
		Intent:        model.IntentRecommendCard,
		Goals:         goals,
		Constraints:   constraints,
		RiskTolerance: model.RiskStandard,
		TimeHorizon:   model.DefaultTimeHorizon,
		Confidence:    fallbackConfidence,
	}
}

// applyDefaults fills every unset field so downstream stages never see a
// partially populated request.
func applyDefaults(req *model.StructuredRequest) {
	if req.Intent == "" {
		req.Intent = model.IntentRecommendCard
	}
	if len(req.Goals) == 0 {
		req.Goals = []string{model.DefaultGoal}
	}
	if req.Constraints == nil {
		req.Constraints = make(map[string]float64)
	}
	if req.SpendFocus == nil {
		req.SpendFocus = make(map[string]float64)
	}
	if req.Priority == nil {
		req.Priority = []string{}
	}
	if req.MustHave == nil {
		req.MustHave = []string{}
	}
	if req.NiceToHave == nil {
		req.NiceToHave = []string{}
	}
	if !req.RiskTolerance.Valid() {
		req.RiskTolerance = model.RiskStandard
	}
	if req.TimeHorizon == "" {
		req.TimeHorizon = model.DefaultTimeHorizon
	}
}

// deriveJurisdiction maps a locale tag to a jurisdiction code.
func deriveJurisdiction(locale string) string {
	switch {
	case locale == "":
		return "SG"
	case strings.Contains(locale, "-"):
		return locale[strings.LastIndex(locale, "-")+1:]
	case len(locale) == 2:
		return locale
	case strings.HasPrefix(locale, "en"):
		return locale[len("en"):]
	default:
		return locale
	}
}
