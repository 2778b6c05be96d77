package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func counterValue(t *testing.T, m *Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.ConnectionsTotal.Inc()
	a.ConnectionsTotal.Inc()

	if got := counterValue(t, a, "socketd_connections_total"); got != 2 {
		t.Errorf("a connections = %v, want 2", got)
	}
	if got := counterValue(t, b, "socketd_connections_total"); got != 0 {
		t.Errorf("b connections = %v, want 0", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.ConnectionsActive.Set(3)
	m.MessagesDropped.WithLabelValues("rate_limited").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	for _, want := range []string{
		"socketd_connections_active 3",
		`socketd_messages_dropped_total{reason="rate_limited"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
