// Package observe exports the pipeline's lifecycle to OpenTelemetry. The
// engine stays tracing-agnostic; this package adapts its Observer callbacks
// into one span per run with a child span per stage.
package observe

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cardsage/cardsage/internal/model"
)

// tracerName identifies this instrumentation scope.
const tracerName = "github.com/cardsage/cardsage/internal/observe"

// TraceObserver records each run as a span tree. Stage spans are children
// of the run span; parallel category stages become sibling spans. All state
// lives in span contexts, so the observer is safe for concurrent stages.
type TraceObserver struct {
	tracer trace.Tracer
}

// NewTraceObserver creates an observer on the globally registered tracer
// provider. Without a provider installed the spans are no-ops.
func NewTraceObserver() *TraceObserver {
	return &TraceObserver{tracer: otel.Tracer(tracerName)}
}

// RunStarted opens the run span.
func (o *TraceObserver) RunStarted(ctx context.Context, session *model.SessionState) context.Context {
	ctx, _ = o.tracer.Start(ctx, "cardsage.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("cardsage.session_id", session.ID),
			attribute.String("cardsage.locale", session.Locale),
		),
	)
	return ctx
}

// StageStarted opens a child span for one stage.
func (o *TraceObserver) StageStarted(ctx context.Context, session *model.SessionState, stage string) context.Context {
	ctx, _ = o.tracer.Start(ctx, "cardsage."+stage,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("cardsage.session_id", session.ID),
			attribute.String("cardsage.stage", stage),
		),
	)
	return ctx
}

// StageCompleted closes the span opened by StageStarted.
func (o *TraceObserver) StageCompleted(ctx context.Context, _ *model.SessionState, _ string, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// RunCompleted records the run totals and closes the run span.
func (o *TraceObserver) RunCompleted(ctx context.Context, session *model.SessionState, err error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.Int("cardsage.stages_completed", len(session.CompletedStages)),
		attribute.Int("cardsage.errors", len(session.Errors)),
		attribute.Bool("cardsage.fatal", session.HasFatalErrors()),
	)
	if session.Answer != nil {
		span.SetAttributes(attribute.Float64("cardsage.confidence", session.Answer.Confidence))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
