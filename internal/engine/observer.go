package engine

import (
	"context"

	"github.com/cardsage/cardsage/internal/model"
)

// Observer receives lifecycle callbacks for a run and its stages. RunStarted
// and StageStarted may derive a new context (to open a span, for example);
// the engine threads the returned context through the matching scope and
// closes it with the Completed callback. Implementations must be safe for
// concurrent use: category handler stages run in parallel.
type Observer interface {
	RunStarted(ctx context.Context, session *model.SessionState) context.Context
	StageStarted(ctx context.Context, session *model.SessionState, stage string) context.Context
	StageCompleted(ctx context.Context, session *model.SessionState, stage string, err error)
	RunCompleted(ctx context.Context, session *model.SessionState, err error)
}

// NopObserver is the default observer. It observes nothing.
type NopObserver struct{}

// RunStarted implements Observer.
func (NopObserver) RunStarted(ctx context.Context, _ *model.SessionState) context.Context {
	return ctx
}

// StageStarted implements Observer.
func (NopObserver) StageStarted(ctx context.Context, _ *model.SessionState, _ string) context.Context {
	return ctx
}

// StageCompleted implements Observer.
func (NopObserver) StageCompleted(_ context.Context, _ *model.SessionState, _ string, _ error) {}

// RunCompleted implements Observer.
func (NopObserver) RunCompleted(_ context.Context, _ *model.SessionState, _ error) {}
