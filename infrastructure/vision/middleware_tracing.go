package vision

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracedVision wraps each request in an OpenTelemetry span for debugging
// and latency analysis.
type tracedVision struct {
	next   CoreVision
	tracer trace.Tracer
}

// TracingMiddleware creates middleware that traces requests under the given
// service name using the global tracer provider.
func TracingMiddleware(serviceName string) Middleware {
	tracer := otel.Tracer(serviceName)
	return func(next CoreVision) CoreVision {
		return &tracedVision{next: next, tracer: tracer}
	}
}

func (t *tracedVision) DoRequest(ctx context.Context, req Request, opts map[string]any) (string, int, int, error) {
	ctx, span := t.tracer.Start(ctx, "vision.transcribe",
		trace.WithAttributes(
			attribute.String("vision.model", t.next.GetModel()),
			attribute.Int("vision.prompt.length", len(req.Prompt)),
			attribute.Int("vision.image.bytes", len(req.ImagePNG)),
		),
	)
	defer span.End()

	response, tokensIn, tokensOut, err := t.next.DoRequest(ctx, req, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(
			attribute.Int("vision.tokens.input", tokensIn),
			attribute.Int("vision.tokens.output", tokensOut),
		)
	}
	return response, tokensIn, tokensOut, err
}

func (t *tracedVision) GetModel() string  { return t.next.GetModel() }
func (t *tracedVision) SetModel(m string) { t.next.SetModel(m) }
