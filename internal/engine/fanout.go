package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cardsage/cardsage/internal/model"
)

// handlerOutcome is the isolated product of one category handler goroutine.
// Handlers never touch the session directly; outcomes are merged in plan
// order after the barrier.
type handlerOutcome struct {
	result   model.CategoryResult
	warnings []model.ErrorRecord
}

// fanOut runs every planned category handler concurrently and merges the
// outcomes into the session in plan order, so results are deterministic
// regardless of goroutine scheduling.
func (e *Engine) fanOut(ctx context.Context, session *model.SessionState) {
	plan := session.FanoutPlan
	outcomes := make([]handlerOutcome, len(plan))

	g, gctx := errgroup.WithContext(ctx)
	for i, category := range plan {
		handler, ok := e.handlers[category]
		if !ok {
			outcomes[i] = handlerOutcome{
				result: model.CategoryResult{Category: category},
				warnings: []model.ErrorRecord{{
					Timestamp: time.Now(),
					Stage:     category,
					Message:   "no handler registered for category",
					Severity:  model.SeverityWarning,
				}},
			}
			continue
		}
		i, handler := i, handler
		g.Go(func() error {
			outcomes[i] = e.runHandler(gctx, session, handler)
			return nil
		})
	}
	// Handlers report trouble through their outcome slots, never through
	// the group error.
	_ = g.Wait()

	for i, category := range plan {
		outcome := outcomes[i]
		session.CategoryResults[category] = outcome.result
		session.Errors = append(session.Errors, outcome.warnings...)
		session.CompleteStage(category)
		session.RecordEvent("stage.ok", map[string]any{
			"stage":      category,
			"candidates": len(outcome.result.Candidates),
			"elapsed":    outcome.result.Elapsed.String(),
		})
	}

	e.logger.Info("Fan-out complete",
		"session_id", session.ID,
		"plan", plan,
		"results", len(session.CategoryResults))
}

// runHandler executes one handler inside its own observer stage scope. The
// session is read-only here; the merge loop owns all writes.
func (e *Engine) runHandler(ctx context.Context, session *model.SessionState, handler CategoryHandler) handlerOutcome {
	stageCtx := e.observer.StageStarted(ctx, session, handler.Category())
	result, warnings := handler.Handle(stageCtx, session.Request)
	e.observer.StageCompleted(stageCtx, session, handler.Category(), nil)
	return handlerOutcome{result: result, warnings: warnings}
}
