package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardsage/cardsage/internal/model"
	"github.com/cardsage/cardsage/internal/profile"
)

func renderedSession() *model.SessionState {
	session := model.NewSessionState("Best card for earning miles?", "en-SG", model.DefaultConsent())
	session.Answer = &model.FinalAnswer{
		Summary:       "Based on your goals of miles, travel, I've analyzed 2 credit cards.",
		CardsAnalyzed: 2,
		Confidence:    0.95,
		Elapsed:       125 * time.Millisecond,
		Candidates: model.AggregatedCandidates{
			{
				Card: model.Card{
					ID:        "travel_001",
					Name:      "Singapore Airlines KrisFlyer Credit Card",
					Issuer:    "DBS Bank",
					AnnualFee: 192.60,
				},
				AggregateScore: 1.0,
				BestFor:        []string{"Airline miles earning", "International travel"},
				Rationale:      "Excellent match for your goals.",
				CategoryScores: map[string]float64{"travel": 1.0},
			},
			{
				Card: model.Card{
					ID:     "cashback_001",
					Name:   "DBS Live Fresh Card",
					Issuer: "DBS Bank",
				},
				AggregateScore: 0.73,
				BestFor:        []string{"Cashback rewards"},
				CategoryScores: map[string]float64{"cashback": 0.73},
			},
		},
	}
	return session
}

func TestRenderAnswer(t *testing.T) {
	out := RenderAnswer(renderedSession())

	assert.Contains(t, out, "Based on your goals of miles, travel, I've analyzed 2 credit cards.")
	assert.Contains(t, out, "Singapore Airlines KrisFlyer Credit Card")
	assert.Contains(t, out, "DBS Live Fresh Card")
	assert.Contains(t, out, "1.00")
	assert.Contains(t, out, "0.73")
	assert.Contains(t, out, "S$192.60")
	assert.Contains(t, out, "None") // zero annual fee
	assert.Contains(t, out, "Airline miles earning, International travel")
	assert.Contains(t, out, "Excellent match for your goals.")
	assert.Contains(t, out, "Analyzed 2 cards in 125ms.")

	assert.NotContains(t, out, "Research notes")
	assert.NotContains(t, out, "warnings during processing")
}

func TestRenderAnswerAllSections(t *testing.T) {
	session := renderedSession()
	session.Findings = []model.SearchFinding{
		{Source: "MAS", Title: "Credit card fee disclosures", Relevance: 0.9},
		{Source: "MoneySense", Title: "Comparing miles cards", Relevance: 0.8},
		{Source: "MAS", Title: "Balance transfer rules", Relevance: 0.7},
		{Source: "MoneySense", Title: "Annual fee waivers", Relevance: 0.6},
	}
	session.Compliance = &model.PolicyReport{
		Valid:           true,
		Warnings:        []string{"Data sharing consent required for comprehensive analysis"},
		ComplianceNotes: []string{"Jurisdiction: SG"},
	}
	session.RecordError("travel", "catalog lookup failed, using backup candidates", model.SeverityWarning)
	session.Recovery = &model.Recovery{
		Message:         "Processing hit 1 fatal error; a fallback recommendation was produced.",
		RecoveryActions: []string{"Retry with a more specific query"},
		ErrorsHandled:   1,
		CanContinue:     true,
	}

	out := RenderAnswer(session)

	assert.Contains(t, out, "Research notes")
	assert.Contains(t, out, "Credit card fee disclosures")
	assert.Contains(t, out, "(MAS)")
	assert.Contains(t, out, "... and 1 more findings")
	assert.NotContains(t, out, "Annual fee waivers") // capped at three

	assert.Contains(t, out, "Compliance checks passed")
	assert.Contains(t, out, "Data sharing consent required for comprehensive analysis")
	assert.Contains(t, out, "Jurisdiction: SG")

	assert.Contains(t, out, "1 warnings during processing")
	assert.Contains(t, out, "[travel] catalog lookup failed, using backup candidates")

	assert.Contains(t, out, "Processing hit 1 fatal error; a fallback recommendation was produced.")
	assert.Contains(t, out, "Retry with a more specific query")
}

func TestRenderAnswerEmpty(t *testing.T) {
	assert.Contains(t, RenderAnswer(nil), "No recommendation was produced.")

	session := model.NewSessionState("q", "en-SG", model.DefaultConsent())
	assert.Contains(t, RenderAnswer(session), "No recommendation was produced.")

	session.Answer = &model.FinalAnswer{Summary: "Nothing matched."}
	out := RenderAnswer(session)
	assert.Contains(t, out, "No candidates matched.")
}

func TestRenderCards(t *testing.T) {
	cards := []model.Card{
		{
			ID:          "travel_001",
			Name:        "Singapore Airlines KrisFlyer Credit Card",
			Category:    "travel",
			Issuer:      "DBS Bank",
			AnnualFee:   192.60,
			RewardsRate: "1.2 miles per S$1",
		},
		{
			ID:          "student_001",
			Name:        "POSB Everyday Student Card",
			Category:    "student",
			Issuer:      "POSB",
			RewardsRate: "0.3% cashback",
		},
	}

	out := RenderCards(cards)

	assert.Contains(t, out, "travel_001")
	assert.Contains(t, out, "student_001")
	assert.Contains(t, out, "Singapore Airlines KrisFlyer Credit Card")
	assert.Contains(t, out, "S$192.60")
	assert.Contains(t, out, "None")
	assert.Contains(t, out, "1.2 miles per S$1")
}

func TestRenderCardsEmpty(t *testing.T) {
	assert.Contains(t, RenderCards(nil), "Catalog is empty.")
}

func TestRenderFocus(t *testing.T) {
	spends := []profile.Spend{
		{Merchant: "SINGAPORE AIRLINES", Amount: 800},
		{Merchant: "FAIRPRICE FINEST", Amount: 200},
	}
	focus := profile.DeriveFocus(spends)

	out := RenderFocus(spends, focus)

	assert.Contains(t, out, "2 entries, S$1000.00 total")
	assert.Contains(t, out, "80.0%")
	assert.Contains(t, out, "20.0%")
	assert.Contains(t, out, "S$800.00")

	// Largest share renders first.
	require.Contains(t, out, "travel")
	require.Contains(t, out, "groceries")
	assert.Less(t, strings.Index(out, "travel"), strings.Index(out, "groceries"))
}

func TestRenderFocusEmpty(t *testing.T) {
	assert.Contains(t, RenderFocus(nil, nil), "No spend entries found")
}

func TestSortedShares(t *testing.T) {
	entries := sortedShares(map[string]float64{
		"dining":    0.25,
		"travel":    0.50,
		"transport": 0.25,
	})

	require.Len(t, entries, 3)
	assert.Equal(t, "travel", entries[0].category)
	// Equal shares order alphabetically.
	assert.Equal(t, "dining", entries[1].category)
	assert.Equal(t, "transport", entries[2].category)
}

func TestScoreStyle(t *testing.T) {
	assert.Equal(t, SuccessStyle, ScoreStyle(0.95))
	assert.Equal(t, SuccessStyle, ScoreStyle(0.8))
	assert.Equal(t, InfoStyle, ScoreStyle(0.7))
	assert.Equal(t, WarningStyle, ScoreStyle(0.45))
	assert.Equal(t, ErrorStyle, ScoreStyle(0.1))
}
