// Package ingest polls the flow source and turns flow records into arcs.
package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sudorandom/netflow-map/pkg/arcs"
	"github.com/sudorandom/netflow-map/pkg/flows"
	"github.com/sudorandom/netflow-map/pkg/geo"
	"github.com/sudorandom/netflow-map/pkg/logging"
	"github.com/sudorandom/netflow-map/pkg/metrics"
)

const (
	DefaultInterval   = 250 * time.Millisecond
	DefaultMaxBackoff = 60 * time.Second

	// SummaryInterval is how often Run logs poll totals at info level.
	SummaryInterval = time.Minute
)

// Resolver maps a flow endpoint to a point on the map.
type Resolver interface {
	Resolve(address string) (geo.Point, error)
}

// Sink receives the arcs built from one poll.
type Sink interface {
	Enqueue(a ...arcs.Arc)
}

// Stats describes the outcome of a single poll.
type Stats struct {
	Records   int
	Arcs      int
	Skipped   int
	Watermark int64
}

// Status is a snapshot of the poller for health reporting.
type Status struct {
	Watermark int64
	LastPoll  time.Time
	LastError string
}

type Poller struct {
	source     flows.Source
	resolver   Resolver
	sink       Sink
	interval   time.Duration
	maxBackoff time.Duration
	logger     *logging.ComponentLogger
	metrics    *metrics.Collector

	watermark atomic.Int64

	// Records already consumed at seenAt, the newest timestamp. The range
	// query is inclusive, so the next query skips seenCount of them and
	// seen catches any that come back anyway.
	seenAt    int64
	seenCount int
	seen      map[string]struct{}

	statusMu  sync.Mutex
	lastPoll  time.Time
	lastError error
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) { p.interval = d }
}

func WithMaxBackoff(d time.Duration) Option {
	return func(p *Poller) { p.maxBackoff = d }
}

func WithLogger(l *logging.ComponentLogger) Option {
	return func(p *Poller) { p.logger = l }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(p *Poller) { p.metrics = m }
}

// WithWatermark sets the starting watermark in epoch millis. The default is
// the time the poller was created, so history is not replayed.
func WithWatermark(millis int64) Option {
	return func(p *Poller) { p.watermark.Store(millis) }
}

func NewPoller(source flows.Source, resolver Resolver, sink Sink, opts ...Option) *Poller {
	p := &Poller{
		source:     source,
		resolver:   resolver,
		sink:       sink,
		interval:   DefaultInterval,
		maxBackoff: DefaultMaxBackoff,
		logger:     logging.Nop(),
		seen:       make(map[string]struct{}),
	}
	p.watermark.Store(time.Now().UnixMilli())
	for _, opt := range opts {
		opt(p)
	}
	if p.maxBackoff < p.interval {
		p.maxBackoff = p.interval
	}
	p.seenAt = p.watermark.Load()
	p.metrics.SetWatermark(p.seenAt)
	return p
}

// Watermark is the newest flow timestamp seen so far. Safe for concurrent use.
func (p *Poller) Watermark() int64 {
	return p.watermark.Load()
}

func (p *Poller) Status() Status {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	s := Status{Watermark: p.Watermark(), LastPoll: p.lastPoll}
	if p.lastError != nil {
		s.LastError = p.lastError.Error()
	}
	return s
}

func (p *Poller) setStatus(err error) {
	p.statusMu.Lock()
	p.lastPoll = time.Now()
	p.lastError = err
	p.statusMu.Unlock()
}

func (p *Poller) advance(ts int64) {
	for {
		cur := p.watermark.Load()
		if ts <= cur || p.watermark.CompareAndSwap(cur, ts) {
			return
		}
	}
}

// PollOnce queries [watermark, now) and enqueues one arc per usable record.
// Only a failed query returns an error; bad records are skipped.
func (p *Poller) PollOnce(ctx context.Context) (Stats, error) {
	start := time.Now()
	entries, err := p.source.Query(ctx, flows.Cursor{Since: p.Watermark(), Skip: p.seenCount})
	if err != nil {
		p.metrics.RecordPollError()
		p.setStatus(err)
		return Stats{Watermark: p.Watermark()}, err
	}

	stats := Stats{Records: len(entries)}
	batch := make([]arcs.Arc, 0, len(entries))
	for _, e := range entries {
		p.advance(e.Record.Timestamp)

		if !p.markSeen(e.Record) {
			p.skip(&stats, metrics.ReasonDuplicate)
			continue
		}

		if e.Err != nil {
			p.skip(&stats, metrics.ReasonMalformed)
			p.logger.Debug().Err(e.Err).Msg("Skipping malformed flow record")
			continue
		}

		a, reason, err := p.build(e.Record)
		if reason != "" {
			p.skip(&stats, reason)
			if err != nil {
				p.logger.Debug().Err(err).
					Str("src", e.Record.SrcAddress).
					Str("dst", e.Record.DstAddress).
					Msg("Skipping flow")
			}
			continue
		}
		batch = append(batch, a)
	}

	if len(batch) > 0 {
		p.sink.Enqueue(batch...)
	}
	stats.Arcs = len(batch)
	stats.Watermark = p.Watermark()

	took := time.Since(start)
	p.metrics.RecordPolled(stats.Records)
	p.metrics.RecordArcs(stats.Arcs)
	p.metrics.SetWatermark(stats.Watermark)
	p.metrics.ObservePollDuration(took.Seconds())
	p.setStatus(nil)
	p.logger.LogPoll(stats.Records, stats.Arcs, stats.Skipped, stats.Watermark, took)
	return stats, nil
}

func (p *Poller) skip(stats *Stats, reason string) {
	stats.Skipped++
	p.metrics.RecordSkipped(reason)
}

// markSeen reports whether rec is new. Only records at the newest timestamp
// are remembered; anything older is below the watermark and cannot repeat.
// Records without an ID are always new.
func (p *Poller) markSeen(rec flows.Record) bool {
	switch {
	case rec.Timestamp > p.seenAt:
		p.seenAt = rec.Timestamp
		p.seenCount = 0
		clear(p.seen)
	case rec.Timestamp < p.seenAt:
		return true
	case rec.ID != "":
		if _, ok := p.seen[rec.ID]; ok {
			return false
		}
	}
	if rec.ID != "" {
		p.seen[rec.ID] = struct{}{}
	}
	p.seenCount++
	return true
}

func (p *Poller) build(rec flows.Record) (arcs.Arc, string, error) {
	src, err := p.resolver.Resolve(rec.SrcAddress)
	if err != nil {
		return arcs.Arc{}, resolutionReason(err), err
	}
	dst, err := p.resolver.Resolve(rec.DstAddress)
	if err != nil {
		return arcs.Arc{}, resolutionReason(err), err
	}
	if src.SameLocation(dst) {
		return arcs.Arc{}, metrics.ReasonSameCoords, nil
	}
	return arcs.New(src, dst, rec.Bytes), "", nil
}

func resolutionReason(err error) string {
	if errors.Is(err, geo.ErrLoopback) {
		return metrics.ReasonLoopback
	}
	return metrics.ReasonUnresolved
}

// Run polls until ctx is cancelled. Failed queries are retried with an
// exponential backoff starting at the poll interval.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info().
		Dur("interval", p.interval).
		Int64("watermark", p.Watermark()).
		Msg("Starting flow poller")

	retry := newBackoff(p.interval, p.maxBackoff)
	var summary logging.PollSummary
	summaryStart := time.Now()
	for {
		wait := p.interval
		stats, err := p.PollOnce(ctx)
		summary.Polls++
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			summary.Errors++
			wait = retry.NextBackOff()
			p.logger.Warn().Err(err).Dur("retry_in", wait).Msg("Flow source query failed")
		} else {
			retry.Reset()
			summary.Records += stats.Records
			summary.Arcs += stats.Arcs
			summary.Skipped += stats.Skipped
		}

		if window := time.Since(summaryStart); window >= SummaryInterval {
			p.logger.LogPollSummary(summary, p.Watermark(), window)
			summary = logging.PollSummary{}
			summaryStart = time.Now()
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// newBackoff doubles from interval up to limit and never gives up.
func newBackoff(interval, limit time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = interval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = limit
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}
