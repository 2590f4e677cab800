package metrics

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector finalizes per-message records in a thread-safe manner and keeps
// them in submission order, no matter which responses arrived first.
type Collector struct {
	mu           sync.Mutex
	hist         *hdrhistogram.Histogram
	slots        []*Record
	overflow     []*Record
	successes    int64
	failures     int64
	minLatency   time.Duration
	maxLatency   time.Duration
	sumLatency   time.Duration
	errorsByKind map[string]int64
	typeCounts   map[string]int64
	start        time.Time
}

// Stats represents aggregated injection metrics.
type Stats struct {
	Total       int64   `json:"total"`
	Successes   int64   `json:"successes"`
	Failures    int64   `json:"failures"`
	SuccessRate float64 `json:"success_rate"`

	MinLatency  time.Duration `json:"-"`
	MaxLatency  time.Duration `json:"-"`
	MeanLatency time.Duration `json:"-"`
	P50Latency  time.Duration `json:"-"`
	P90Latency  time.Duration `json:"-"`
	P95Latency  time.Duration `json:"-"`
	P99Latency  time.Duration `json:"-"`
	Duration    time.Duration `json:"-"`

	MessagesPerSec float64 `json:"messages_per_sec"`

	// JSON-friendly millisecond fields.
	MinLatencyMs  float64        `json:"min_latency_ms"`
	MaxLatencyMs  float64        `json:"max_latency_ms"`
	MeanLatencyMs float64        `json:"mean_latency_ms"`
	P50LatencyMs  float64        `json:"p50_latency_ms"`
	P90LatencyMs  float64        `json:"p90_latency_ms"`
	P95LatencyMs  float64        `json:"p95_latency_ms"`
	P99LatencyMs  float64        `json:"p99_latency_ms"`
	DurationMs    float64        `json:"duration_ms"`
	Errors        map[string]int `json:"errors,omitempty"`
	Responses     map[string]int `json:"responses,omitempty"`
}

// NewCollector sizes the record table for capacity messages. Records with
// an index outside the table are still kept, just appended.
func NewCollector(capacity int) *Collector {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	if capacity < 0 {
		capacity = 0
	}
	return &Collector{
		hist:         h,
		slots:        make([]*Record, capacity),
		errorsByKind: make(map[string]int64),
		typeCounts:   make(map[string]int64),
		start:        time.Now(),
	}
}

// Start marks the beginning of injection for throughput math.
func (c *Collector) Start() {
	c.mu.Lock()
	c.start = time.Now()
	c.mu.Unlock()
}

// Elapsed reports time since Start.
func (c *Collector) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.start)
}

// Record finalizes one message's outcome: derived fields are filled in and
// the record lands in its submission slot.
func (c *Collector) Record(rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rec.Err != nil {
		rec.ErrKind = errKind(rec.Err)
		rec.Error = rec.Err.Error()
	}
	rec.Success = rec.Err == nil
	rec.LatencyMs = float64(rec.Latency) / float64(time.Millisecond)

	if rec.Latency > 0 {
		us := rec.Latency.Microseconds()
		if us < c.hist.LowestTrackableValue() {
			us = c.hist.LowestTrackableValue()
		}
		if us > c.hist.HighestTrackableValue() {
			us = c.hist.HighestTrackableValue()
		}
		_ = c.hist.RecordValue(us)

		c.sumLatency += rec.Latency
		if c.minLatency == 0 || rec.Latency < c.minLatency {
			c.minLatency = rec.Latency
		}
		if rec.Latency > c.maxLatency {
			c.maxLatency = rec.Latency
		}
	}

	if rec.Success {
		c.successes++
		if rec.ResponseType != "" {
			c.typeCounts[rec.ResponseType]++
		}
	} else {
		c.failures++
		c.errorsByKind[rec.ErrKind]++
	}

	if rec.Index >= 0 && rec.Index < len(c.slots) {
		c.slots[rec.Index] = &rec
	} else {
		c.overflow = append(c.overflow, &rec)
	}
}

// Records returns every finalized record in submission order.
func (c *Collector) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Record, 0, len(c.slots)+len(c.overflow))
	for _, r := range c.slots {
		if r != nil {
			out = append(out, *r)
		}
	}
	if len(c.overflow) > 0 {
		extra := make([]Record, 0, len(c.overflow))
		for _, r := range c.overflow {
			extra = append(extra, *r)
		}
		sort.SliceStable(extra, func(i, j int) bool { return extra[i].Index < extra[j].Index })
		out = append(out, extra...)
	}
	return out
}

// Stats computes and returns current aggregated statistics.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.successes + c.failures
	stats := Stats{
		Total:      total,
		Successes:  c.successes,
		Failures:   c.failures,
		MinLatency: c.minLatency,
		MaxLatency: c.maxLatency,
	}

	if total > 0 {
		stats.SuccessRate = float64(c.successes) / float64(total)
	}
	if n := c.hist.TotalCount(); n > 0 {
		stats.MeanLatency = time.Duration(int64(c.sumLatency) / n)
		stats.P50Latency = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90Latency = time.Duration(c.hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P95Latency = time.Duration(c.hist.ValueAtQuantile(95)) * time.Microsecond
		stats.P99Latency = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	stats.MinLatencyMs = float64(stats.MinLatency) / float64(time.Millisecond)
	stats.MaxLatencyMs = float64(stats.MaxLatency) / float64(time.Millisecond)
	stats.MeanLatencyMs = float64(stats.MeanLatency) / float64(time.Millisecond)
	stats.P50LatencyMs = float64(stats.P50Latency) / float64(time.Millisecond)
	stats.P90LatencyMs = float64(stats.P90Latency) / float64(time.Millisecond)
	stats.P95LatencyMs = float64(stats.P95Latency) / float64(time.Millisecond)
	stats.P99LatencyMs = float64(stats.P99Latency) / float64(time.Millisecond)

	stats.Duration = elapsed
	stats.DurationMs = float64(elapsed) / float64(time.Millisecond)
	if elapsed > 0 && total > 0 {
		stats.MessagesPerSec = float64(total) / elapsed.Seconds()
	}

	if len(c.errorsByKind) > 0 {
		stats.Errors = make(map[string]int, len(c.errorsByKind))
		for k, v := range c.errorsByKind {
			stats.Errors[k] = int(v)
		}
	}
	if len(c.typeCounts) > 0 {
		stats.Responses = make(map[string]int, len(c.typeCounts))
		for k, v := range c.typeCounts {
			stats.Responses[k] = int(v)
		}
	}

	return stats
}

// GetErrorBreakdown returns a map of error kinds to their counts.
func (c *Collector) GetErrorBreakdown() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make(map[string]int)
	for k, v := range c.errorsByKind {
		result[k] = int(v)
	}
	return result
}

func errKind(err error) string {
	kind := fmt.Sprintf("%T", err)
	if len(kind) > 30 {
		kind = kind[len(kind)-30:]
	}
	return kind
}
