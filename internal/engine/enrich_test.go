package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardsage/cardsage/internal/model"
)

func TestResearchTopics(t *testing.T) {
	session := model.NewSessionState("best travel card", "en-SG", model.DefaultConsent())

	t.Run("no results yields the raw query only", func(t *testing.T) {
		assert.Equal(t, []string{"best travel card"}, researchTopics(session))
	})

	session.FanoutPlan = []string{model.CategoryTravel, model.CategoryCashback}
	session.CategoryResults[model.CategoryTravel] = model.CategoryResult{
		Category: model.CategoryTravel,
		Candidates: model.ScoredCandidates{
			{Card: model.Card{Name: "Card A"}, MatchScore: 0.9},
			{Card: model.Card{Name: "Card B"}, MatchScore: 0.8},
		},
	}
	session.CategoryResults[model.CategoryCashback] = model.CategoryResult{
		Category: model.CategoryCashback,
		Candidates: model.ScoredCandidates{
			{Card: model.Card{Name: "Card C"}, MatchScore: 0.7},
			{Card: model.Card{Name: "Card D"}, MatchScore: 0.6},
		},
	}

	t.Run("first three card names in plan order plus raw query", func(t *testing.T) {
		assert.Equal(t, []string{"Card A", "Card B", "Card C", "best travel card"}, researchTopics(session))
	})
}

func TestDedupeFindings(t *testing.T) {
	t.Run("keeps the higher relevance per source and title", func(t *testing.T) {
		findings := []model.SearchFinding{
			{Source: "reviews", Title: "one", Relevance: 0.5},
			{Source: "reviews", Title: "one", Relevance: 0.9, Content: "better"},
			{Source: "forums", Title: "two", Relevance: 0.7},
		}

		out := dedupeFindings(findings)

		require.Len(t, out, 2)
		assert.Equal(t, "one", out[0].Title)
		assert.InDelta(t, 0.9, out[0].Relevance, 1e-9)
		assert.Equal(t, "better", out[0].Content)
		assert.Equal(t, "two", out[1].Title)
	})

	t.Run("same title from different sources stays", func(t *testing.T) {
		findings := []model.SearchFinding{
			{Source: "reviews", Title: "one", Relevance: 0.5},
			{Source: "forums", Title: "one", Relevance: 0.5},
		}

		assert.Len(t, dedupeFindings(findings), 2)
	})

	t.Run("orders by relevance and caps the list", func(t *testing.T) {
		var findings []model.SearchFinding
		for i := 0; i < 12; i++ {
			findings = append(findings, model.SearchFinding{
				Source:    "reviews",
				Title:     fmt.Sprintf("finding %02d", i),
				Relevance: float64(i) / 20.0,
			})
		}

		out := dedupeFindings(findings)

		require.Len(t, out, maxFindings)
		for i := 1; i < len(out); i++ {
			assert.GreaterOrEqual(t, out[i-1].Relevance, out[i].Relevance)
		}
		assert.Equal(t, "finding 11", out[0].Title)
	})

	t.Run("empty input yields empty output", func(t *testing.T) {
		assert.Empty(t, dedupeFindings(nil))
	})
}

func TestResearchStage(t *testing.T) {
	ctx := context.Background()

	t.Run("stores deduped findings", func(t *testing.T) {
		research := &MockResearch{Findings: []model.SearchFinding{
			{Source: "reviews", Title: "annual fee guide", Relevance: 0.8},
		}}
		e := newTestEngine(&MockIntelligence{}, &MockCatalog{}, research, &MockPolicy{})
		session := model.NewSessionState("best travel card", "en-SG", model.DefaultConsent())

		require.NoError(t, e.researchStage(ctx, session))

		// One topic (the raw query), one finding.
		require.Len(t, session.Findings, 1)
		assert.Equal(t, "annual fee guide", session.Findings[0].Title)
		assert.Equal(t, []string{"best travel card"}, research.Queries)
	})

	t.Run("collaborator failure records a warning and continues", func(t *testing.T) {
		research := &MockResearch{Err: errors.New("search down")}
		e := newTestEngine(&MockIntelligence{}, &MockCatalog{}, research, &MockPolicy{})
		session := model.NewSessionState("best travel card", "en-SG", model.DefaultConsent())

		require.NoError(t, e.researchStage(ctx, session))

		assert.Empty(t, session.Findings)
		require.Len(t, session.Errors, 1)
		assert.Equal(t, model.StageResearch, session.Errors[0].Stage)
		assert.Equal(t, model.SeverityWarning, session.Errors[0].Severity)
		assert.Contains(t, session.Errors[0].Message, `"best travel card"`)
	})
}

func TestComplianceStage(t *testing.T) {
	ctx := context.Background()

	t.Run("report stored on the session", func(t *testing.T) {
		policy := &MockPolicy{Report: model.PolicyReport{Valid: true}}
		e := newTestEngine(&MockIntelligence{}, &MockCatalog{}, &MockResearch{}, policy)
		session := model.NewSessionState("query", "en-SG", model.DefaultConsent())
		session.Request = model.MinimalRequest("SG")

		require.NoError(t, e.complianceStage(ctx, session))

		require.NotNil(t, session.Compliance)
		assert.True(t, session.Compliance.Valid)
		assert.Empty(t, session.Errors)
	})

	t.Run("report warnings mirror into session warnings", func(t *testing.T) {
		policy := &MockPolicy{Report: model.PolicyReport{
			Valid:    true,
			Warnings: []string{"Data sharing consent required for comprehensive analysis"},
		}}
		e := newTestEngine(&MockIntelligence{}, &MockCatalog{}, &MockResearch{}, policy)
		session := model.NewSessionState("query", "en-SG", model.DefaultConsent())
		session.Request = model.MinimalRequest("SG")

		require.NoError(t, e.complianceStage(ctx, session))

		require.Len(t, session.Errors, 1)
		assert.Equal(t, model.StageCompliance, session.Errors[0].Stage)
		assert.Equal(t, model.SeverityWarning, session.Errors[0].Severity)
		assert.Equal(t, "Data sharing consent required for comprehensive analysis", session.Errors[0].Message)
	})

	t.Run("pack failure assumes compliant", func(t *testing.T) {
		policy := &MockPolicy{PackErr: errors.New("policy service down")}
		e := newTestEngine(&MockIntelligence{}, &MockCatalog{}, &MockResearch{}, policy)
		session := model.NewSessionState("query", "en-SG", model.DefaultConsent())
		session.Request = model.MinimalRequest("SG")

		require.NoError(t, e.complianceStage(ctx, session))

		require.NotNil(t, session.Compliance)
		assert.True(t, session.Compliance.Valid)
		require.Len(t, session.Errors, 1)
		assert.Contains(t, session.Errors[0].Message, "assuming compliant")
	})

	t.Run("validate failure assumes compliant", func(t *testing.T) {
		policy := &MockPolicy{ValidateErr: errors.New("validator down")}
		e := newTestEngine(&MockIntelligence{}, &MockCatalog{}, &MockResearch{}, policy)
		session := model.NewSessionState("query", "en-SG", model.DefaultConsent())
		session.Request = model.MinimalRequest("SG")

		require.NoError(t, e.complianceStage(ctx, session))

		require.NotNil(t, session.Compliance)
		assert.True(t, session.Compliance.Valid)
		require.Len(t, session.Errors, 1)
	})
}

func TestFallbackStage(t *testing.T) {
	ctx := context.Background()

	t.Run("writes the generic candidate and recovery", func(t *testing.T) {
		e := newTestEngine(&MockIntelligence{}, &MockCatalog{}, &MockResearch{}, &MockPolicy{})
		session := model.NewSessionState("query", "en-SG", model.DefaultConsent())
		session.RecordError(model.StageExtract, "query text is empty", model.SeverityFatal)

		require.NoError(t, e.fallbackStage(ctx, session))

		result, ok := session.CategoryResults[model.StageFallback]
		require.True(t, ok)
		require.Len(t, result.Candidates, 1)
		assert.Equal(t, "fallback_001", result.Candidates[0].Card.ID)
		assert.InDelta(t, fallbackScore, result.Candidates[0].MatchScore, 1e-9)
		assert.Equal(t, 1, result.CardsConsidered)

		require.NotNil(t, session.Recovery)
		assert.True(t, session.Recovery.CanContinue)
		assert.Equal(t, 1, session.Recovery.ErrorsHandled)
		assert.Equal(t, "We encountered some issues but your recommendations are still available below.", session.Recovery.Message)
	})

	t.Run("clean error log gets the calm message", func(t *testing.T) {
		e := newTestEngine(&MockIntelligence{}, &MockCatalog{}, &MockResearch{}, &MockPolicy{})
		session := model.NewSessionState("query", "en-SG", model.DefaultConsent())

		require.NoError(t, e.fallbackStage(ctx, session))

		require.NotNil(t, session.Recovery)
		assert.Equal(t, "No errors occurred during processing.", session.Recovery.Message)
		assert.Zero(t, session.Recovery.ErrorsHandled)
	})
}
