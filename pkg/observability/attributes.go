package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	AttrDataset     = attribute.Key("bronze.dataset")
	AttrFilter      = attribute.Key("bronze.filter")
	AttrLayer       = attribute.Key("bronze.layer")
	AttrSourceURL   = attribute.Key("bronze.source_url")
	AttrLocation    = attribute.Key("bronze.location")
	AttrReleaseDate = attribute.Key("bronze.release_date")
	AttrOutcome     = attribute.Key("bronze.outcome")
)

// PublishOperation creates attributes for archiving one file.
func PublishOperation(dataset, sourceURL string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrDataset.String(dataset),
		AttrSourceURL.String(sourceURL),
	}
}

// RunOperation creates attributes for a dataset run.
func RunOperation(dataset, filter string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrDataset.String(dataset),
		AttrFilter.String(filter),
	}
}

// SpanFromContext extracts the span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanStatus marks the current span as failed when err is non-nil.
func SetSpanStatus(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
