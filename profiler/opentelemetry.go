// Copyright © 2018 The ELPS authors

package profiler

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

type contextKey string

// ContextOpenTelemetryTracerKey looks up a parent tracer name from a context
// key.
const ContextOpenTelemetryTracerKey contextKey = "otelParentTracer"

// DefaultTracerName is used when the context names no tracer.
const DefaultTracerName = "ctxengine"

// Attribute keys set on every span.
const (
	AttrURI      = attribute.Key("ctxengine.uri")
	AttrRevision = attribute.Key("ctxengine.revision")
)

var _ Profiler = (*otelAnnotator)(nil)

type otelAnnotator struct {
	profiler
	provider trace.TracerProvider
}

// OpenTelemetryOption configures an OpenTelemetry annotator.
type OpenTelemetryOption func(*otelAnnotator)

// WithTracerProvider records spans with tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) OpenTelemetryOption {
	return func(p *otelAnnotator) {
		p.provider = tp
	}
}

// NewOpenTelemetryAnnotator returns a Profiler recording OpenTelemetry spans.
func NewOpenTelemetryAnnotator(otelOpts []OpenTelemetryOption, opts ...Option) Profiler {
	p := &otelAnnotator{}
	p.profiler.applyConfigs(opts...)
	for _, opt := range otelOpts {
		opt(p)
	}
	return p
}

// WithTracerName returns a context whose spans are recorded by the named
// tracer.
func WithTracerName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ContextOpenTelemetryTracerKey, name)
}

func (p *otelAnnotator) tracer(ctx context.Context) trace.Tracer {
	tracerName, ok := ctx.Value(ContextOpenTelemetryTracerKey).(string)
	if !ok {
		tracerName = DefaultTracerName
	}
	tp := p.provider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(tracerName)
}

func (p *otelAnnotator) Start(ctx context.Context, s Span) (context.Context, EndFunc) {
	if p.skipTrace(s) {
		return ctx, func(error) {}
	}
	ctx, span := p.tracer(ctx).Start(ctx, p.label(s))
	span.SetAttributes(
		semconv.CodeNamespace("ctxengine/engine"),
		semconv.CodeFunction(string(s.Op)),
		AttrURI.String(s.URI),
		AttrRevision.Int64(revision64(s.Revision)),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
