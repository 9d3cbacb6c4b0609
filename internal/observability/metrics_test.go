package observability

import (
	"testing"

	"github.com/danmuck/sctl/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterMetricsIsIdempotent(t *testing.T) {
	testlog.Start(t)
	a := RegisterMetrics(DefaultNamespace)
	b := RegisterMetrics("ignored")
	if a != b {
		t.Fatalf("expected one default metric set")
	}
	a.RecordFrame(DirectionIn)
	a.RecordMessage(DirectionIn, "boot")

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "sctl_frames_total" {
			found = true
		}
		if mf.GetName() == "ignored_frames_total" {
			t.Fatalf("second namespace must not register")
		}
	}
	if !found {
		t.Fatalf("sctl_frames_total not in the default registry")
	}
}

func TestMetricsCountIntoRegistry(t *testing.T) {
	testlog.Start(t)
	reg := prometheus.NewRegistry()
	m := NewMetrics("sctltest")
	if err := m.Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	m.RecordFrame(DirectionOut)
	m.RecordFrame(DirectionOut)
	m.RecordBytes(DirectionOut, 19)
	m.RecordFrameError("unexpected_null")
	m.RecordMessage(DirectionOut, "exit")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	got := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			got[mf.GetName()] += metric.GetCounter().GetValue()
		}
	}
	want := map[string]float64{
		"sctltest_frames_total":       2,
		"sctltest_bytes_total":        19,
		"sctltest_frame_errors_total": 1,
		"sctltest_messages_total":     1,
	}
	for name, v := range want {
		if got[name] != v {
			t.Fatalf("%s = %v, want %v", name, got[name], v)
		}
	}
	if err := m.Register(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordFrame(DirectionIn)
	m.RecordBytes(DirectionIn, 3)
	m.RecordFrameError("x")
	m.RecordMessage(DirectionIn, "boot")
}
