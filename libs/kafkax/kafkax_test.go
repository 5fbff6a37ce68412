package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka-1:9092, ,kafka-2:9092,")
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Fatalf("SplitBrokers = %v", got)
	}
	if got := SplitBrokers(""); got != nil {
		t.Fatalf("empty input should yield nil, got %v", got)
	}
}

func TestExtractEventMeta(t *testing.T) {
	msg := kafka.Message{
		Topic: "scheduling.appointment.booked.v1",
		Key:   []byte("agg-1"),
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte("evt-1")},
			{Key: "event_type", Value: []byte("scheduling.appointment.booked.v1")},
		},
	}
	meta := ExtractEventMeta(msg)
	if meta.EventID != "evt-1" || meta.EventType != "scheduling.appointment.booked.v1" {
		t.Fatalf("meta = %+v", meta)
	}

	// Without headers, fall back to key and topic.
	meta = ExtractEventMeta(kafka.Message{Topic: "t", Key: []byte("k")})
	if meta.EventID != "k" || meta.EventType != "t" {
		t.Fatalf("fallback meta = %+v", meta)
	}
}

func TestCarrierSetOverwrites(t *testing.T) {
	c := &kafkaHeaderCarrier{}
	c.Set("traceparent", "a")
	c.Set("traceparent", "b")
	if len(c.headers) != 1 {
		t.Fatalf("expected 1 header, got %d", len(c.headers))
	}
	if c.Get("traceparent") != "b" {
		t.Fatalf("Get = %q", c.Get("traceparent"))
	}
	if len(c.Keys()) != 1 {
		t.Fatalf("Keys = %v", c.Keys())
	}
}

func TestTraceHeadersRoundTrip(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	headers := []kafka.Header{{Key: "event_id", Value: []byte("evt-1")}}
	headers = InjectTraceHeaders(context.Background(), headers)
	// No active span: injection adds nothing, but keeps existing headers.
	if HeaderValue(headers, "event_id") != "evt-1" {
		t.Fatal("existing header lost during injection")
	}

	_ = ExtractTraceContext(context.Background(), kafka.Message{Headers: headers})
}
