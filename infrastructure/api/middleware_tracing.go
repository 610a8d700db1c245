package api

import (
	"context"
	"errors"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/ahrav/go-factorlens/infrastructure/api"

// tracedFetcher wraps each fetch in a client span.
type tracedFetcher struct {
	next        CoreFetcher
	tracer      trace.Tracer
	serviceName string
}

// TracingMiddleware creates middleware that records a span per fetch using
// the global tracer provider.
func TracingMiddleware(serviceName string) Middleware {
	return TracingMiddlewareWithProvider(serviceName, otel.GetTracerProvider())
}

// TracingMiddlewareWithProvider is TracingMiddleware with an explicit
// tracer provider.
func TracingMiddlewareWithProvider(serviceName string, tp trace.TracerProvider) Middleware {
	tracer := tp.Tracer(tracerName)
	return func(next CoreFetcher) CoreFetcher {
		return &tracedFetcher{
			next:        next,
			tracer:      tracer,
			serviceName: serviceName,
		}
	}
}

// Fetch executes the fetch within a span.
func (t *tracedFetcher) Fetch(ctx context.Context, item string) (string, error) {
	ctx, span := t.tracer.Start(ctx, "explanation.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("service.name", t.serviceName),
			attribute.String("factor.name", item),
		),
	)
	defer span.End()

	text, err := t.next.Fetch(ctx, item)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			span.SetAttributes(
				attribute.Int("http.status_code", apiErr.StatusCode),
				attribute.String("error.type", apiErr.Type.String()),
			)
		}
		return text, err
	}

	span.SetAttributes(
		attribute.Int("explanation.length", utf8.RuneCountInString(text)),
		attribute.Bool("explanation.empty", text == ""),
	)
	return text, nil
}
