// Copyright © 2018 The ELPS authors

package profiler_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opencensus.io/trace"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/luthersystems/ctxengine/profiler"
)

func newOTel(t *testing.T, opts ...profiler.Option) (profiler.Profiler, *tracetest.InMemoryExporter) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	t.Cleanup(func() {
		err := tp.Shutdown(context.Background())
		assert.NoError(t, err, "TracerProvider shutdown")
	})
	p := profiler.NewOpenTelemetryAnnotator([]profiler.OpenTelemetryOption{profiler.WithTracerProvider(tp)}, opts...)
	return p, exporter
}

func attrMap(kvs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(kvs))
	for _, kv := range kvs {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestOpenTelemetryAnnotator(t *testing.T) {
	p, exporter := newOTel(t)

	ctx, end := p.Start(context.Background(), profiler.Span{Op: profiler.OpCompile, URI: "file:///a.tex", Revision: 3})
	_, endInner := p.Start(ctx, profiler.Span{Op: profiler.OpDiagnostics, URI: "file:///a.tex", Revision: 3})
	endInner(nil)
	end(errors.New("boom"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	inner, outer := spans[0], spans[1]
	assert.Equal(t, "ctxengine.diagnostics", inner.Name)
	assert.Equal(t, "ctxengine.compile", outer.Name)
	assert.Equal(t, outer.SpanContext.SpanID(), inner.Parent.SpanID())

	attrs := attrMap(outer.Attributes)
	assert.Equal(t, "file:///a.tex", attrs[profiler.AttrURI].AsString())
	assert.Equal(t, int64(3), attrs[profiler.AttrRevision].AsInt64())
	assert.Equal(t, codes.Error, outer.Status.Code)
	assert.Equal(t, "boom", outer.Status.Description)
	assert.Equal(t, codes.Unset, inner.Status.Code)
}

func TestOpenTelemetryAnnotatorSkip(t *testing.T) {
	p, exporter := newOTel(t,
		profiler.WithOps(profiler.OpCompile, profiler.OpUpdate),
		profiler.WithLabeler(func(s profiler.Span) string {
			if s.Op == profiler.OpCompile {
				return "Typeset"
			}
			return ""
		}))

	for _, op := range []profiler.Op{profiler.OpOpen, profiler.OpUpdate, profiler.OpHighlights, profiler.OpCompile, profiler.OpClose} {
		_, end := p.Start(context.Background(), profiler.Span{Op: op, URI: "u"})
		end(nil)
	}

	spans := exporter.GetSpans()
	require.Len(t, spans, 2, "Expected selective spans")
	assert.Equal(t, "ctxengine.update", spans[0].Name)
	assert.Equal(t, "Typeset", spans[1].Name, "Expected custom label")
}

func TestNop(t *testing.T) {
	ctx := context.Background()
	got, end := profiler.Nop().Start(ctx, profiler.Span{Op: profiler.OpOpen})
	assert.Equal(t, ctx, got)
	assert.NotPanics(t, func() { end(errors.New("ignored")) })
}

type recordingExporter struct {
	mu    sync.Mutex
	spans []*trace.SpanData
}

func (e *recordingExporter) ExportSpan(sd *trace.SpanData) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spans = append(e.spans, sd)
}

func TestOpenCensusAnnotator(t *testing.T) {
	// Let's sample at 100% for the purposes of this test...
	trace.ApplyConfig(trace.Config{DefaultSampler: trace.AlwaysSample()})
	exporter := &recordingExporter{}
	trace.RegisterExporter(exporter)
	t.Cleanup(func() { trace.UnregisterExporter(exporter) })

	p := profiler.NewOpenCensusAnnotator(profiler.WithSkipFilter(func(s profiler.Span) bool {
		return s.Op == profiler.OpHighlights
	}))
	ctx, end := p.Start(context.Background(), profiler.Span{Op: profiler.OpUpdate, URI: "file:///b.tex", Revision: 7})
	_, skipped := p.Start(ctx, profiler.Span{Op: profiler.OpHighlights, URI: "file:///b.tex"})
	skipped(nil)
	_, inner := p.Start(ctx, profiler.Span{Op: profiler.OpDiagnostics, URI: "file:///b.tex"})
	inner(errors.New("bad"))
	end(nil)

	exporter.mu.Lock()
	defer exporter.mu.Unlock()
	require.Len(t, exporter.spans, 2)
	assert.Equal(t, "ctxengine.diagnostics", exporter.spans[0].Name)
	assert.Equal(t, "bad", exporter.spans[0].Status.Message)
	assert.Equal(t, exporter.spans[1].SpanID, exporter.spans[0].ParentSpanID)
	assert.Equal(t, "ctxengine.update", exporter.spans[1].Name)
	assert.Equal(t, "file:///b.tex", exporter.spans[1].Attributes[string(profiler.AttrURI)])
	assert.Equal(t, int64(7), exporter.spans[1].Attributes[string(profiler.AttrRevision)])
}
