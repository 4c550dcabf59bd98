package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by sweep spans.
const (
	AttrSweepID     = attribute.Key("loadsweep.sweep_id")
	AttrUsers       = attribute.Key("loadsweep.users")
	AttrRepetitions = attribute.Key("loadsweep.repetitions")
	AttrRound       = attribute.Key("loadsweep.round")
	AttrClient      = attribute.Key("loadsweep.client")
	AttrEngine      = attribute.Key("loadsweep.engine")
	AttrSamples     = attribute.Key("loadsweep.samples")
	AttrFailures    = attribute.Key("loadsweep.failures")
	AttrMeanMs      = attribute.Key("loadsweep.mean_ms")
)

// StartSweepSpan starts the root span covering every level of a sweep.
func StartSweepSpan(ctx context.Context, tracer trace.Tracer, sweepID, target, engine string, levels []int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "sweep")
	span.SetAttributes(
		AttrSweepID.String(sweepID),
		attribute.String("url.full", target),
		AttrEngine.String(engine),
		AttrUsers.IntSlice(levels),
	)
	return ctx, span
}

// StartLevelSpan starts a span for one concurrency level.
func StartLevelSpan(ctx context.Context, tracer trace.Tracer, users, repetitions int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "level")
	span.SetAttributes(
		AttrUsers.Int(users),
		AttrRepetitions.Int(repetitions),
	)
	return ctx, span
}

// StartNavigationSpan starts a client span around a single page navigation.
func StartNavigationSpan(ctx context.Context, tracer trace.Tracer, target string, round, client int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "navigate",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("url.full", target),
		AttrRound.Int(round),
		AttrClient.Int(client),
	)
	return ctx, span
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
