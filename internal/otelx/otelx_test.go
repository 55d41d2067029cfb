package otelx

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Options{Enabled: false})
	if err != nil {
		t.Fatalf("Init disabled: %v", err)
	}
	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Fatalf("TracerProvider type = %T, want *sdktrace.TracerProvider", otel.GetTracerProvider())
	}

	// spans still carry valid ids for log correlation
	_, span := Start(context.Background(), "validate")
	if !span.SpanContext().IsValid() {
		t.Fatal("span context should be valid with tracing disabled")
	}
	End(span, nil)

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInit_SetsPropagator(t *testing.T) {
	_, _ = Init(context.Background(), Options{})

	fieldSet := make(map[string]bool)
	for _, f := range otel.GetTextMapPropagator().Fields() {
		fieldSet[f] = true
	}
	if !fieldSet["traceparent"] || !fieldSet["baggage"] {
		t.Fatalf("propagator fields = %v", fieldSet)
	}
}

func TestInit_ExporterReceivesSpans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	shutdown, err := Init(context.Background(), Options{Exporter: exp, Sample: 1, Service: "sitecheck", Version: "test"})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer shutdown(context.Background())

	ctx, parent := Start(context.Background(), "check")
	_, child := Start(ctx, "publish")
	child.SetAttributes(attribute.String("hash", "abc"))
	End(child, errors.New("AccessDenied"))
	End(parent, nil)

	spans := exp.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("spans = %d, want 2", len(spans))
	}
	pub := spans[0]
	if pub.Name != "publish" {
		t.Fatalf("first ended span = %s, want publish", pub.Name)
	}
	if pub.Status.Code != codes.Error || pub.Status.Description != "AccessDenied" {
		t.Fatalf("status = %+v", pub.Status)
	}
	if len(pub.Events) == 0 {
		t.Fatal("error event not recorded")
	}
	if pub.Parent.SpanID() != spans[1].SpanContext.SpanID() {
		t.Fatal("publish span should be a child of check")
	}
	if spans[1].Status.Code == codes.Error {
		t.Fatal("nil error must not set error status")
	}
}

func TestInit_SampleZeroExportsNothing(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	shutdown, err := Init(context.Background(), Options{Exporter: exp, Sample: 0})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer shutdown(context.Background())

	_, span := Start(context.Background(), "check")
	if span.SpanContext().IsSampled() {
		t.Fatal("span should not be sampled at ratio 0")
	}
	End(span, nil)

	if n := len(exp.GetSpans()); n != 0 {
		t.Fatalf("exported spans = %d, want 0", n)
	}
}
