package loan

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/phrazzld/dibs-api/internal/service/loan"

// TracingInterceptor starts a span per call. Only faults mark the span as
// failed; denials are recorded as the outcome attribute. A nil provider
// selects the global one.
func TracingInterceptor(provider trace.TracerProvider) Interceptor {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	tracer := provider.Tracer(tracerName)

	return func(ctx context.Context, call Call, next func(context.Context) error) error {
		ctx, span := tracer.Start(ctx, "loan."+call.Operation,
			trace.WithAttributes(attribute.String("loan.operation", call.Operation)))
		defer span.End()

		if call.Barcode != "" {
			span.SetAttributes(attribute.String("loan.barcode", call.Barcode))
		}

		err := next(ctx)

		outcome := Outcome(err)
		span.SetAttributes(attribute.String("loan.outcome", outcome))
		if outcome == "error" {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}
