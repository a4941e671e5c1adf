package engine

import (
	"context"
	"time"

	"github.com/cardsage/cardsage/internal/model"
)

// fallbackScore is the fixed match score of the safe generic candidate.
const fallbackScore = 0.6

// fallbackStage writes the safe generic recommendation and a recovery
// summary after a fatal extract or route failure. The result is stored under
// the fallback key like any category result, so aggregation runs unchanged
// and yields exactly one candidate.
func (e *Engine) fallbackStage(_ context.Context, session *model.SessionState) error {
	start := time.Now()

	candidate := model.ScoredCandidate{
		Card:       fallbackCard(),
		MatchScore: fallbackScore,
		Rationale:  "Fallback recommendation",
	}

	session.CategoryResults[model.StageFallback] = model.CategoryResult{
		Category:        model.StageFallback,
		Candidates:      model.ScoredCandidates{candidate},
		CardsConsidered: 1,
		Rationale:       "Fallback recommendation after unrecoverable input",
		Elapsed:         time.Since(start),
	}

	session.Recovery = &model.Recovery{
		Message:         recoveryMessage(session.Errors),
		RecoveryActions: []string{"Review the recommendations below", "Contact support if issues persist"},
		ErrorsHandled:   len(session.Errors),
		CanContinue:     true,
	}

	e.logger.Info("Fallback engaged",
		"session_id", session.ID,
		"errors_handled", len(session.Errors))
	return nil
}

// recoveryMessage summarizes the error state for the user.
func recoveryMessage(records []model.ErrorRecord) string {
	if len(records) == 0 {
		return "No errors occurred during processing."
	}
	return "We encountered some issues but your recommendations are still available below."
}

// fallbackCard is the safe generic candidate every diverted run recommends.
func fallbackCard() model.Card {
	return model.Card{
		ID:              "fallback_001",
		Name:            "Standard Rewards Card",
		Category:        "rewards",
		Issuer:          "Major Bank",
		AnnualFee:       49.0,
		RewardsRate:     "1% cashback on all purchases",
		SignupBonus:     "$100 cashback",
		EligibilityTier: "good",
		Pros:            []string{"Simple rewards", "Moderate annual fee"},
		Cons:            []string{"Basic benefits", "No category bonuses"},
	}
}
