// Copyright © 2018 The ELPS authors

package profiler

import (
	"context"

	"go.opencensus.io/trace"
)

var _ Profiler = (*ocAnnotator)(nil)

type ocAnnotator struct {
	profiler
}

// NewOpenCensusAnnotator returns a Profiler recording OpenCensus spans.
// Spans are exported to the exporters registered with the trace package.
func NewOpenCensusAnnotator(opts ...Option) Profiler {
	p := &ocAnnotator{}
	p.profiler.applyConfigs(opts...)
	return p
}

func (p *ocAnnotator) Start(ctx context.Context, s Span) (context.Context, EndFunc) {
	if p.skipTrace(s) {
		return ctx, func(error) {}
	}
	ctx, span := trace.StartSpan(ctx, p.label(s))
	span.AddAttributes(
		trace.StringAttribute(string(AttrURI), s.URI),
		trace.Int64Attribute(string(AttrRevision), revision64(s.Revision)),
	)
	return ctx, func(err error) {
		if err != nil {
			span.SetStatus(trace.Status{Code: trace.StatusCodeUnknown, Message: err.Error()})
		}
		span.End()
	}
}
