package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "watchparty"

// Span attributes shared by the party spans.
var (
	PartyIDKey   = attribute.Key("party.id")
	PeerIDKey    = attribute.Key("peer.id")
	OperationKey = attribute.Key("operation")
)

// TracerProvider owns the exporter pipeline. The zero value is a no-op.
type TracerProvider struct {
	tp *tracesdk.TracerProvider
}

type Config struct {
	Enabled     bool
	ServiceName string
	JaegerURL   string
	Environment string
	SampleRate  float64
}

// Init installs a Jaeger-backed provider globally. With tracing disabled the
// global no-op provider stays in place and every span below is free.
func Init(cfg Config) (*TracerProvider, error) {
	if !cfg.Enabled {
		return &TracerProvider{}, nil
	}

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.JaegerURL)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(res),
		tracesdk.WithSampler(tracesdk.ParentBased(tracesdk.TraceIDRatioBased(cfg.SampleRate))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &TracerProvider{tp: tp}, nil
}

// Shutdown flushes buffered spans.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.tp != nil {
		return tp.tp.Shutdown(ctx)
	}
	return nil
}

// start names spans "<layer>.<operation>".
func start(ctx context.Context, layer, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, OperationKey.String(operation))
	return otel.Tracer(instrumentationName).Start(ctx, layer+"."+operation, trace.WithAttributes(attrs...))
}

// RecordError marks the span in ctx as failed.
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// TraceHTTPRequest covers one call to the local API.
func TraceHTTPRequest(ctx context.Context, method, route string) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, "http."+method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			semconv.HTTPMethodKey.String(method),
			semconv.HTTPRouteKey.String(route),
		),
	)
}

// TraceSession covers a party lifecycle step: create, join or promote.
func TraceSession(ctx context.Context, operation, partyID, peerID string) (context.Context, trace.Span) {
	return start(ctx, "session", operation, PartyIDKey.String(partyID), PeerIDKey.String(peerID))
}

// TraceWebRTC covers one negotiation with peerID.
func TraceWebRTC(ctx context.Context, operation, peerID, partyID string) (context.Context, trace.Span) {
	return start(ctx, "webrtc", operation, PartyIDKey.String(partyID), PeerIDKey.String(peerID))
}

func TraceCatalog(ctx context.Context, operation string) (context.Context, trace.Span) {
	return start(ctx, "catalog", operation)
}
