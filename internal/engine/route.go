package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/cardsage/cardsage/internal/common"
	"github.com/cardsage/cardsage/internal/model"
)

// routingRule maps a set of goal tags to the category handler serving them.
type routingRule struct {
	category string
	goals    []string
}

// routingTable is the fixed goal-to-category mapping, evaluated in order so
// the fan-out plan is deterministic. Matching is by exact goal tag, not
// substring.
var routingTable = []routingRule{
	{category: model.CategoryTravel, goals: []string{"miles", "travel", "airline", "hotel"}},
	{category: model.CategoryCashback, goals: []string{"cashback", "cash", "rewards", "money"}},
	{category: model.CategoryBusiness, goals: []string{"business", "corporate", "expense", "employee"}},
	{category: model.CategoryStudent, goals: []string{"student", "building_credit", "first", "college"}},
}

// routeStage derives the fan-out plan from the request goals.
func (e *Engine) routeStage(_ context.Context, session *model.SessionState) error {
	if session.Request == nil {
		return fmt.Errorf("%w: no structured request to route", common.ErrFatalInput)
	}

	session.FanoutPlan = planCategories(session.Request.Goals)

	e.logger.Debug("Routing complete",
		"session_id", session.ID,
		"goals", session.Request.Goals,
		"plan", session.FanoutPlan)
	return nil
}

// planCategories returns the ordered, de-duplicated category plan for a goal
// list. When nothing matches, the general handler takes the request.
func planCategories(goals []string) []string {
	tags := make(map[string]bool, len(goals))
	for _, goal := range goals {
		tags[strings.ToLower(goal)] = true
	}

	var plan []string
	for _, rule := range routingTable {
		for _, goal := range rule.goals {
			if tags[goal] {
				plan = append(plan, rule.category)
				break
			}
		}
	}

	if len(plan) == 0 {
		plan = []string{model.CategoryGeneral}
	}
	return plan
}
