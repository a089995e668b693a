package metrics

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sudorandom/netflow-map/pkg/logging"
)

func TestCollector(t *testing.T) {
	c := NewCollector(logging.Nop())
	c.RecordPolled(10)
	c.RecordSkipped(ReasonMalformed)
	c.RecordSkipped(ReasonMalformed)
	c.RecordSkipped(ReasonLoopback)
	c.RecordArcs(7)
	c.SetWatermark(1700000000000)
	c.SetAnimator(250, 3, 2.5)

	if got := testutil.ToFloat64(c.recordsPolled); got != 10 {
		t.Errorf("records polled = %v; want 10", got)
	}
	if got := testutil.ToFloat64(c.recordsSkipped.WithLabelValues(ReasonMalformed)); got != 2 {
		t.Errorf("malformed skips = %v; want 2", got)
	}
	if got := testutil.ToFloat64(c.arcsCreated); got != 7 {
		t.Errorf("arcs created = %v; want 7", got)
	}
	if got := testutil.ToFloat64(c.stepSize); got != 2.5 {
		t.Errorf("step size = %v; want 2.5", got)
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.RecordPolled(1)
	c.RecordSkipped(ReasonDuplicate)
	c.RecordArcs(1)
	c.RecordPollError()
	c.ObservePollDuration(0.1)
	c.SetWatermark(1)
	c.SetAnimator(1, 1, 1)
	if c.Registry() != nil {
		t.Errorf("Expected nil registry")
	}
}

func TestServerEndpoints(t *testing.T) {
	c := NewCollector(logging.Nop())
	c.RecordArcs(3)
	s := NewServer(":0", c, func() Health {
		return Health{Watermark: 42, LiveArcs: 5, StepSize: 1, LastError: "flow source post: refused"}
	}, logging.Nop())

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "netflow_map_arcs_created_total 3") {
		t.Errorf("metrics output missing arcs counter:\n%s", body)
	}

	resp, err = http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()
	var health struct {
		Status string `json:"status"`
		Stats  Health `json:"stats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("health is not JSON: %v", err)
	}
	if health.Status != "degraded" || health.Stats.Watermark != 42 || health.Stats.LiveArcs != 5 {
		t.Errorf("Unexpected health %+v", health)
	}
}
