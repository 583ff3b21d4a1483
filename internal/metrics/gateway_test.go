package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestGatewayObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewGateway(reg)

	m.Observe("getRankings", "ok", 120*time.Millisecond)
	m.Observe("getRankings", "ok", 80*time.Millisecond)
	m.Observe("getRankings", "network_error", time.Second)

	if got := testutil.ToFloat64(m.Requests.WithLabelValues("getRankings", "ok")); got != 2 {
		t.Fatalf("expected 2 ok requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues("getRankings", "network_error")); got != 1 {
		t.Fatalf("expected 1 failed request, got %v", got)
	}
	if n := testutil.CollectAndCount(m.Duration); n != 1 {
		t.Fatalf("expected one histogram series, got %d", n)
	}
}

func TestNilGatewayIsNoop(t *testing.T) {
	var m *Gateway
	m.Observe("getGameData", "ok", time.Millisecond)
}
