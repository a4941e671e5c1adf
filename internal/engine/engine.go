// Package engine orchestrates the recommendation pipeline: extraction,
// routing, concurrent category handlers, enrichment, and aggregation.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/cardsage/cardsage/internal/common"
	"github.com/cardsage/cardsage/internal/model"
	"github.com/cardsage/cardsage/internal/service"
)

// Engine runs the recommendation pipeline against a set of collaborators.
type Engine struct {
	intelligence service.Intelligence
	catalog      service.Catalog
	research     service.Research
	policy       service.Policy
	observer     Observer
	logger       *slog.Logger
	handlers     map[string]CategoryHandler
	timeout      time.Duration
	retry        service.RetryOptions
}

// Config holds configuration options for the engine.
type Config struct {
	Observer            Observer
	Logger              *slog.Logger
	CollaboratorTimeout time.Duration
	Retry               service.RetryOptions
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		CollaboratorTimeout: 15 * time.Second,
		Retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// New creates an engine with the given collaborators and the default
// configuration.
func New(intelligence service.Intelligence, catalog service.Catalog, research service.Research, policy service.Policy) *Engine {
	return NewWithConfig(intelligence, catalog, research, policy, DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(intelligence service.Intelligence, catalog service.Catalog, research service.Research, policy service.Policy, config Config) *Engine {
	if config.Observer == nil {
		config.Observer = NopObserver{}
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.CollaboratorTimeout <= 0 {
		config.CollaboratorTimeout = 15 * time.Second
	}

	e := &Engine{
		intelligence: intelligence,
		catalog:      catalog,
		research:     research,
		policy:       policy,
		observer:     config.Observer,
		logger:       config.Logger,
		timeout:      config.CollaboratorTimeout,
		retry:        config.Retry,
	}
	e.handlers = defaultHandlers(e)
	return e
}

// RunOption adjusts a single pipeline run.
type RunOption func(*runOptions)

type runOptions struct {
	spendFocus map[string]float64
}

// WithSpendFocus supplies statement-derived spending shares for the run.
// Extraction merges them into the structured request, subject to the same
// personalization-consent gating as extracted shares.
func WithSpendFocus(focus map[string]float64) RunOption {
	return func(o *runOptions) { o.spendFocus = focus }
}

// Run executes the full pipeline for one query. It always produces a final
// answer on the returned session, even when stages fail along the way; the
// returned error is non-nil only when the context was already canceled.
func (e *Engine) Run(ctx context.Context, query, locale string, consent model.Consent, opts ...RunOption) (*model.SessionState, error) {
	var options runOptions
	for _, opt := range opts {
		opt(&options)
	}

	session := model.NewSessionState(query, locale, consent)
	session.SpendProfile = options.spendFocus
	if err := ctx.Err(); err != nil {
		return session, err
	}

	runCtx := e.observer.RunStarted(ctx, session)

	e.logger.Info("Starting recommendation run",
		"session_id", session.ID,
		"locale", locale,
		"personalization", consent.Personalization)

	fatalErr := e.pipeline(runCtx, session)

	e.observer.RunCompleted(runCtx, session, fatalErr)

	e.logger.Info("Recommendation run finished",
		"session_id", session.ID,
		"stages", len(session.CompletedStages),
		"errors", len(session.Errors),
		"confidence", session.Answer.Confidence)

	return session, nil
}

// pipeline walks the stage graph. A fatal extract or route failure diverts
// the run through the fallback stage; every path ends at aggregation. The
// returned error is the fatal error that caused a diversion, reported to the
// observer only.
func (e *Engine) pipeline(ctx context.Context, session *model.SessionState) error {
	if err := e.runStage(ctx, session, model.StageExtract, e.extractStage); err != nil {
		e.divert(ctx, session)
		return err
	}
	if err := e.runStage(ctx, session, model.StageRoute, e.routeStage); err != nil {
		e.divert(ctx, session)
		return err
	}

	e.fanOut(ctx, session)

	_ = e.runStage(ctx, session, model.StageResearch, e.researchStage)
	_ = e.runStage(ctx, session, model.StageCompliance, e.complianceStage)
	_ = e.runStage(ctx, session, model.StageAggregate, e.aggregateStage)
	return nil
}

// divert reroutes a fatally failed run through the fallback stage so the
// caller still receives a final answer.
func (e *Engine) divert(ctx context.Context, session *model.SessionState) {
	_ = e.runStage(ctx, session, model.StageFallback, e.fallbackStage)
	_ = e.runStage(ctx, session, model.StageAggregate, e.aggregateStage)
}

// stageFunc is one sequential pipeline stage.
type stageFunc func(context.Context, *model.SessionState) error

// runStage executes one sequential stage with observer callbacks and session
// bookkeeping. Only fatal-input failures return an error; everything else is
// handled inside the stage.
func (e *Engine) runStage(ctx context.Context, session *model.SessionState, stage string, fn stageFunc) error {
	stageCtx := e.observer.StageStarted(ctx, session, stage)
	start := time.Now()

	err := fn(stageCtx, session)

	e.observer.StageCompleted(stageCtx, session, stage, err)

	if err != nil {
		session.RecordError(stage, err.Error(), model.SeverityFatal)
		session.RecordEvent("stage.fatal", map[string]any{
			"stage": stage,
			"error": err.Error(),
		})
		e.logger.Warn("Stage failed fatally",
			"session_id", session.ID,
			"stage", stage,
			"error", err)
		return err
	}

	session.CompleteStage(stage)
	session.RecordEvent("stage.ok", map[string]any{
		"stage":   stage,
		"elapsed": time.Since(start).String(),
	})
	return nil
}

// collaborate bounds a collaborator call with the engine's timeout and retry
// policy. The operation receives the derived context and must honor it.
func (e *Engine) collaborate(ctx context.Context, op func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	return common.WithRetry(callCtx, func() error {
		if err := op(callCtx); err != nil {
			return &common.RetryableError{Err: err, Retryable: true}
		}
		return nil
	}, e.retry)
}
