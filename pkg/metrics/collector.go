// Package metrics exposes Prometheus metrics and a health endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sudorandom/netflow-map/pkg/logging"
)

// Skip reasons used as the "reason" label of the skipped records counter.
const (
	ReasonMalformed  = "malformed"
	ReasonDuplicate  = "duplicate"
	ReasonUnresolved = "unresolved"
	ReasonLoopback   = "loopback"
	ReasonSameCoords = "same_location"
)

// Collector holds every metric of the process in its own registry.
// All methods are safe to call on a nil *Collector.
type Collector struct {
	recordsPolled  prometheus.Counter
	recordsSkipped *prometheus.CounterVec
	arcsCreated    prometheus.Counter
	pollErrors     prometheus.Counter
	pollDuration   prometheus.Histogram
	watermark      prometheus.Gauge
	arcsLive       prometheus.Gauge
	arcsQueued     prometheus.Gauge
	stepSize       prometheus.Gauge

	registry *prometheus.Registry
}

func NewCollector(logger *logging.ComponentLogger) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,

		recordsPolled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netflow_map_records_polled_total",
			Help: "Total number of flow records returned by the flow source",
		}),
		recordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netflow_map_records_skipped_total",
			Help: "Flow records that did not produce an arc, by reason",
		}, []string{"reason"}),
		arcsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netflow_map_arcs_created_total",
			Help: "Total number of arcs handed to the animator",
		}),
		pollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netflow_map_poll_errors_total",
			Help: "Total number of failed flow source queries",
		}),
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "netflow_map_poll_duration_seconds",
			Help:    "Time spent on one poll including geo resolution",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}),
		watermark: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "netflow_map_watermark_millis",
			Help: "Newest flow timestamp seen, in epoch milliseconds",
		}),
		arcsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "netflow_map_arcs_live",
			Help: "Number of arcs currently animating",
		}),
		arcsQueued: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "netflow_map_arcs_queued",
			Help: "Number of arcs waiting for the next frame",
		}),
		stepSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "netflow_map_step_size",
			Help: "Phase increment applied to every arc per frame",
		}),
	}

	registry.MustRegister(
		c.recordsPolled,
		c.recordsSkipped,
		c.arcsCreated,
		c.pollErrors,
		c.pollDuration,
		c.watermark,
		c.arcsLive,
		c.arcsQueued,
		c.stepSize,
		collectors.NewGoCollector(),
	)

	if logger != nil {
		logger.Debug().Msg("Metrics collector initialized")
	}
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) RecordPolled(n int) {
	if c == nil {
		return
	}
	c.recordsPolled.Add(float64(n))
}

func (c *Collector) RecordSkipped(reason string) {
	if c == nil {
		return
	}
	c.recordsSkipped.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordArcs(n int) {
	if c == nil {
		return
	}
	c.arcsCreated.Add(float64(n))
}

func (c *Collector) RecordPollError() {
	if c == nil {
		return
	}
	c.pollErrors.Inc()
}

func (c *Collector) ObservePollDuration(seconds float64) {
	if c == nil {
		return
	}
	c.pollDuration.Observe(seconds)
}

func (c *Collector) SetWatermark(millis int64) {
	if c == nil {
		return
	}
	c.watermark.Set(float64(millis))
}

// SetAnimator records the animator snapshot taken once per frame.
func (c *Collector) SetAnimator(live, queued int, step float64) {
	if c == nil {
		return
	}
	c.arcsLive.Set(float64(live))
	c.arcsQueued.Set(float64(queued))
	c.stepSize.Set(step)
}
