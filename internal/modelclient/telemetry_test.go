package modelclient

import (
	"testing"
	"time"
)

func TestTelemetryWindowSnapshot(t *testing.T) {
	w := newTelemetryWindow()
	w.record(telemetrySample{durationMs: 100, success: true})
	w.record(telemetrySample{durationMs: 200, success: false})

	stats := w.snapshot()
	if stats.Count != 2 {
		t.Errorf("expected count 2, got %d", stats.Count)
	}
	if stats.TimeoutRate != 0.5 {
		t.Errorf("expected timeout rate 0.5, got %f", stats.TimeoutRate)
	}
	if stats.AverageLatency != 150*time.Millisecond {
		t.Errorf("expected average 150ms, got %s", stats.AverageLatency)
	}
}

func TestTelemetryWindowWrapsAroundCapacity(t *testing.T) {
	w := newTelemetryWindow()
	for i := 0; i < telemetryWindowSize+10; i++ {
		w.record(telemetrySample{durationMs: 1, success: true})
	}
	stats := w.snapshot()
	if stats.Count != telemetryWindowSize {
		t.Errorf("expected window capped at %d, got %d", telemetryWindowSize, stats.Count)
	}
}
