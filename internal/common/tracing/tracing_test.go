package tracing

import (
	"context"
	"testing"
)

func TestInitNoopWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), "")
	if err != nil {
		t.Fatalf("Init with empty endpoint should not error, got %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown should not error, got %v", err)
	}
}

func TestTracerReturnsNonNil(t *testing.T) {
	tr := Tracer("deviceio")
	if tr == nil {
		t.Fatal("expected a non-nil tracer even before Init")
	}
	_, span := tr.Start(context.Background(), "test-span")
	defer span.End()
}
