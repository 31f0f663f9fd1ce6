package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	if reg == nil {
		t.Fatal("expected non-nil registry")
	}
}

func TestRegistry_HTTPMetrics(t *testing.T) {
	reg := NewRegistry()

	// Verify HTTP metrics are registered
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	// Should have go runtime metrics at minimum
	if len(mfs) == 0 {
		t.Error("expected some metrics to be registered")
	}
}

func TestRegistry_RecordRequest(t *testing.T) {
	reg := NewRegistry()

	reg.RecordRequest("GET", "/api/v1/stocks", 200, 0.05)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	found := false
	for _, mf := range mfs {
		if mf.GetName() == "http_requests_total" {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected http_requests_total metric")
	}
}

func TestRegistry_RecordRequest_StatusCodes(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{400, "4xx"},
		{404, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			reg := NewRegistry()
			reg.RecordRequest("GET", "/test", tt.status, 0.01)

			mfs, err := reg.Gather()
			if err != nil {
				t.Fatalf("gather failed: %v", err)
			}

			found := false
			for _, mf := range mfs {
				if mf.GetName() == "http_requests_total" {
					for _, m := range mf.GetMetric() {
						for _, label := range m.GetLabel() {
							if label.GetName() == "status" && label.GetValue() == tt.expected {
								found = true
							}
						}
					}
				}
			}
			if !found {
				t.Errorf("expected status label %s for status code %d", tt.expected, tt.status)
			}
		})
	}
}

func TestRegistry_InFlight(t *testing.T) {
	reg := NewRegistry()

	reg.InFlightInc()
	reg.InFlightInc()
	reg.InFlightDec()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	found := false
	for _, mf := range mfs {
		if mf.GetName() == "http_requests_in_flight" {
			found = true
			for _, m := range mf.GetMetric() {
				if m.GetGauge().GetValue() != 1 {
					t.Errorf("expected in-flight gauge to be 1, got %v", m.GetGauge().GetValue())
				}
			}
		}
	}
	if !found {
		t.Error("expected http_requests_in_flight metric")
	}
}

func TestRegistry_DurationHistogram(t *testing.T) {
	reg := NewRegistry()

	reg.RecordRequest("POST", "/api/v1/chat", 200, 0.123)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	found := false
	for _, mf := range mfs {
		if mf.GetName() == "http_request_duration_seconds" {
			found = true
			for _, m := range mf.GetMetric() {
				hist := m.GetHistogram()
				if hist.GetSampleCount() != 1 {
					t.Errorf("expected sample count 1, got %d", hist.GetSampleCount())
				}
				if hist.GetSampleSum() < 0.12 || hist.GetSampleSum() > 0.13 {
					t.Errorf("expected sample sum ~0.123, got %v", hist.GetSampleSum())
				}
			}
		}
	}
	if !found {
		t.Error("expected http_request_duration_seconds metric")
	}
}

// Ensure the registry implements prometheus.Gatherer interface
func TestRegistry_ImplementsGatherer(t *testing.T) {
	reg := NewRegistry()
	var _ prometheus.Gatherer = reg
}

func counterValue(t *testing.T, reg *Registry, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	metric:
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if want, ok := labels[label.GetName()]; ok && want != label.GetValue() {
					continue metric
				}
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}

func TestRegistry_RecordSourceSync(t *testing.T) {
	reg := NewRegistry()

	reg.RecordSourceSync("primary", "success", 3)
	reg.RecordSourceSync("primary", "error", 0)
	reg.RecordSourceSync("primary", "success", 0)

	if got := counterValue(t, reg, "sheetpulse_source_syncs_total", map[string]string{"source": "primary", "status": "success"}); got != 2 {
		t.Errorf("expected 2 successful syncs, got %v", got)
	}
	if got := counterValue(t, reg, "sheetpulse_rows_rejected_total", map[string]string{"source": "primary"}); got != 3 {
		t.Errorf("expected 3 rejected rows, got %v", got)
	}
}

func TestRegistry_RecordSync(t *testing.T) {
	reg := NewRegistry()

	reg.RecordSync(1.5, 42, 7)

	if got := counterValue(t, reg, "sheetpulse_snapshot_records", nil); got != 42 {
		t.Errorf("expected 42 records, got %v", got)
	}
	if got := counterValue(t, reg, "sheetpulse_snapshot_version", nil); got != 7 {
		t.Errorf("expected version 7, got %v", got)
	}
}

func TestRegistry_RecordChatAndTokens(t *testing.T) {
	reg := NewRegistry()

	reg.RecordChat("ok", 0.8)
	reg.RecordChat("unavailable", 5)
	reg.RecordTokens("claude", 100, 20)

	if got := counterValue(t, reg, "sheetpulse_chat_requests_total", map[string]string{"status": "ok"}); got != 1 {
		t.Errorf("expected 1 ok chat, got %v", got)
	}
	if got := counterValue(t, reg, "sheetpulse_llm_tokens_total", map[string]string{"provider": "claude", "direction": "output"}); got != 20 {
		t.Errorf("expected 20 output tokens, got %v", got)
	}
}

func TestRegistry_NilIsNoop(t *testing.T) {
	var reg *Registry

	// Should not panic
	reg.RecordSourceSync("a", "success", 1)
	reg.RecordSync(1, 1, 1)
	reg.RecordChat("ok", 1)
	reg.RecordTokens("p", 1, 1)
	reg.SetJobsActive("sync", 1)
}
