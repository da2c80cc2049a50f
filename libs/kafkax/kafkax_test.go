package kafkax

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestExtractEventMetaFallsBackToPositionAndTopic(t *testing.T) {
	meta := ExtractEventMeta(kafka.Message{Topic: "booking.appointment.booked.v1", Partition: 2, Offset: 41, Key: []byte("BK-1")})
	if meta.EventID != "booking.appointment.booked.v1/2/41" || meta.EventType != "booking.appointment.booked.v1" {
		t.Fatalf("unexpected meta %+v", meta)
	}
	cancelled := ExtractEventMeta(kafka.Message{Topic: "booking.appointment.cancelled.v1", Offset: 7, Key: []byte("BK-1")})
	if cancelled.EventID == meta.EventID {
		t.Fatalf("events sharing a key must not share an id: %q", cancelled.EventID)
	}

	meta = ExtractEventMeta(kafka.Message{
		Topic:   "t",
		Key:     []byte("k"),
		Headers: MetaHeaders(EventMeta{EventID: "evt-9", EventType: "custom"}),
	})
	if meta.EventID != "evt-9" || meta.EventType != "custom" {
		t.Fatalf("unexpected meta %+v", meta)
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka-1:9092, ,kafka-2:9092 ")
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers %v", got)
	}
}

func TestTraceHeadersRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	headers := InjectTraceHeaders(ctx, MetaHeaders(EventMeta{EventID: "e", EventType: "t"}))
	headers = InjectTraceHeaders(ctx, headers)
	count := 0
	for _, h := range headers {
		if h.Key == "traceparent" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one traceparent header, got %d", count)
	}

	extracted := ExtractTraceContext(context.Background(), kafka.Message{Headers: headers})
	if got := trace.SpanContextFromContext(extracted).TraceID(); got != span.SpanContext().TraceID() {
		t.Fatalf("trace id mismatch %s vs %s", got, span.SpanContext().TraceID())
	}
}

func TestReadyCheckWithoutBrokers(t *testing.T) {
	if err := ReadyCheck("")(context.Background()); !errors.Is(err, ErrNoBrokers) {
		t.Fatalf("expected ErrNoBrokers, got %v", err)
	}
}
