package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsCountOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Operation("approve", OutcomeOK)
	m.Operation("approve", OutcomeOK)
	m.Operation("approve", OutcomeInvalid)
	m.UnitsIssued(6)
	m.UnitsIssued(-1)
	m.ObserveHTTP("GET", 200, 10*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := counterValue(mfs, "pisarna_workflow_operations_total", "outcome", OutcomeOK); err != nil {
		t.Fatal(err)
	} else if got != 2 {
		t.Errorf("approve ok = %v, want 2", got)
	}
	if got, err := counterValue(mfs, "pisarna_workflow_operations_total", "outcome", OutcomeInvalid); err != nil {
		t.Fatal(err)
	} else if got != 1 {
		t.Errorf("approve invalid = %v, want 1", got)
	}
	if got, err := counterValue(mfs, "pisarna_stock_units_issued_total", "", ""); err != nil {
		t.Fatal(err)
	} else if got != 6 {
		t.Errorf("units issued = %v, want 6", got)
	}
	if mf := findFamily(mfs, "pisarna_http_request_duration_seconds"); mf == nil || len(mf.GetMetric()) != 1 {
		t.Errorf("expected one http latency series")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Operation("approve", OutcomeOK)
	m.UnitsIssued(3)
	m.ObserveHTTP("GET", 500, time.Second)

	New(nil).Operation("reject", OutcomeFailed)
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{200: "2xx", 204: "2xx", 302: "3xx", 404: "4xx", 409: "4xx", 500: "5xx"}
	for status, want := range tests {
		if got := statusClass(status); got != want {
			t.Errorf("statusClass(%d) = %q, want %q", status, got, want)
		}
	}
}

func counterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if label == "" || hasLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func findFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func hasLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, l := range labels {
		if l.GetName() == name && l.GetValue() == value {
			return true
		}
	}
	return false
}
