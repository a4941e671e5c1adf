package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardsage/cardsage/internal/common"
	"github.com/cardsage/cardsage/internal/model"
)

func TestPlanCategories(t *testing.T) {
	tests := []struct {
		name  string
		goals []string
		want  []string
	}{
		{
			name:  "miles routes to travel",
			goals: []string{"miles"},
			want:  []string{model.CategoryTravel},
		},
		{
			name:  "hotel routes to travel",
			goals: []string{"hotel"},
			want:  []string{model.CategoryTravel},
		},
		{
			name:  "rewards routes to cashback",
			goals: []string{"rewards"},
			want:  []string{model.CategoryCashback},
		},
		{
			name:  "plan follows table order not goal order",
			goals: []string{"student", "business"},
			want:  []string{model.CategoryBusiness, model.CategoryStudent},
		},
		{
			name:  "travel and cashback together",
			goals: []string{"miles", "cashback"},
			want:  []string{model.CategoryTravel, model.CategoryCashback},
		},
		{
			name:  "one category per rule regardless of matches",
			goals: []string{"miles", "travel", "airline"},
			want:  []string{model.CategoryTravel},
		},
		{
			name:  "empty goals fall back to general",
			goals: nil,
			want:  []string{model.CategoryGeneral},
		},
		{
			name:  "unknown goals fall back to general",
			goals: []string{"crypto"},
			want:  []string{model.CategoryGeneral},
		},
		{
			name:  "matching is exact not substring",
			goals: []string{"milestone"},
			want:  []string{model.CategoryGeneral},
		},
		{
			name:  "goal tags are case folded",
			goals: []string{"MILES"},
			want:  []string{model.CategoryTravel},
		},
		{
			name:  "all four categories",
			goals: []string{"college", "employee", "money", "hotel"},
			want:  []string{model.CategoryTravel, model.CategoryCashback, model.CategoryBusiness, model.CategoryStudent},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, planCategories(tt.goals))
		})
	}
}

func TestRouteStage(t *testing.T) {
	e := newTestEngine(&MockIntelligence{}, &MockCatalog{}, &MockResearch{}, &MockPolicy{})

	t.Run("nil request is fatal", func(t *testing.T) {
		session := model.NewSessionState("query", "en-SG", model.DefaultConsent())

		err := e.routeStage(context.Background(), session)

		require.Error(t, err)
		assert.True(t, common.IsFatalInput(err))
		assert.Empty(t, session.FanoutPlan)
	})

	t.Run("plan written to session", func(t *testing.T) {
		session := model.NewSessionState("query", "en-SG", model.DefaultConsent())
		session.Request = model.MinimalRequest("SG")

		require.NoError(t, e.routeStage(context.Background(), session))

		assert.Equal(t, []string{model.CategoryCashback}, session.FanoutPlan)
	})
}
