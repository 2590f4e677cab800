package runner

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/torosent/fixfire/internal/demux"
	"github.com/torosent/fixfire/internal/fix"
	"github.com/torosent/fixfire/internal/metrics"
	"github.com/torosent/fixfire/internal/session"
	"github.com/torosent/fixfire/internal/tracing"
)

// Sender puts one message on the wire. *session.Session implements it.
type Sender interface {
	Send(ctx context.Context, msg *fix.Message) (session.SendResult, error)
}

// ArrivalModel selects how batch dispatch times are spaced.
type ArrivalModel string

const (
	ArrivalModelUniform ArrivalModel = "uniform"
	ArrivalModelPoisson ArrivalModel = "poisson"
)

// RatePatternType identifies a rate schedule segment shape.
type RatePatternType string

const (
	RatePatternRamp  RatePatternType = "ramp"
	RatePatternStep  RatePatternType = "step"
	RatePatternSpike RatePatternType = "spike"
)

// RateStep is one plateau inside a step pattern.
type RateStep struct {
	Rate     int
	Duration time.Duration
}

// RatePattern describes one segment of a dynamic injection-rate schedule.
// Segments run back to back; when the schedule ends, dispatch stops.
type RatePattern struct {
	Type     RatePatternType
	FromRate int
	ToRate   int
	Rate     int
	Duration time.Duration
	Steps    []RateStep
}

// Options configure the Injector.
type Options struct {
	Templates []*fix.Message     // messages to inject, in order (required)
	Sender    Sender             // session write side (required)
	Registry  *demux.Registry    // pending-response registry (required)
	Collector *metrics.Collector // result sink (required)

	Rate            int           // messages per second pacing (0 means unlimited)
	BatchSize       int           // messages dispatched per pacing wait
	MaxConcurrent   int           // ceiling on messages awaiting responses
	ResponseTimeout time.Duration // per-message wait for the correlated response
	CorrelationTag  int           // tag the key is injected into; defaults to ClOrdID (11)

	ArrivalModel   ArrivalModel   // uniform (default) or poisson
	RatePatterns   []RatePattern  // optional dynamic rate schedule; overrides Rate
	RandomSeed     int64          // poisson sampler seed (0 means time-based)
	PoissonSampler func() float64 // optional injection for tests

	KeyFactory     func() string                       // correlation key generator; defaults to ULIDs
	LimiterFactory func(mps, burst int) *rate.Limiter // optional injection for tests

	Tracer *tracing.Provider // optional per-message spans
	Logger zerolog.Logger
}

func (o *Options) normalize() {
	if o.BatchSize <= 0 {
		o.BatchSize = 1
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 1
	}
	if o.ResponseTimeout <= 0 {
		o.ResponseTimeout = 5 * time.Second
	}
	if o.CorrelationTag == 0 {
		o.CorrelationTag = fix.TagClOrdID
	}
	if o.Rate < 0 {
		o.Rate = 0
	}
	if o.KeyFactory == nil {
		o.KeyFactory = func() string { return ulid.Make().String() }
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(mps, burst int) *rate.Limiter {
			if mps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			if burst < 1 {
				burst = 1
			}
			// Burst equal to the batch keeps WaitN(batch) schedulable while
			// holding the long-run rate.
			return rate.NewLimiter(rate.Limit(mps), burst)
		}
	}
}
