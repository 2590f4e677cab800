package runner

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type arrivalController interface {
	WaitN(ctx context.Context, n int) error
	SetRate(mps float64)
}

func newArrivalController(opt Options, sched *rateSchedule) arrivalController {
	baseRate := float64(opt.Rate)
	if sched != nil {
		if r, ok := sched.rateAt(0); ok {
			baseRate = r
		} else {
			baseRate = 0
		}
	}

	switch opt.ArrivalModel {
	case ArrivalModelPoisson:
		sampler := opt.PoissonSampler
		if sampler == nil {
			seed := opt.RandomSeed
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			sampler = rand.New(rand.NewSource(seed)).ExpFloat64
		}
		ctrl := &poissonArrival{sample: sampler}
		ctrl.SetRate(baseRate)
		return ctrl
	default:
		ctrl := &uniformArrival{
			limiter:  opt.LimiterFactory(opt.Rate, opt.BatchSize),
			minBurst: opt.BatchSize,
		}
		if sched != nil {
			ctrl.SetRate(baseRate)
		}
		return ctrl
	}
}

// uniformArrival delegates batch pacing to a rate.Limiter: WaitN(batch)
// against a bucket refilling at the message rate spaces batches evenly.
type uniformArrival struct {
	limiter  *rate.Limiter
	minBurst int
}

func (u *uniformArrival) WaitN(ctx context.Context, n int) error {
	if u == nil || u.limiter == nil {
		return nil
	}
	return u.limiter.WaitN(ctx, n)
}

func (u *uniformArrival) SetRate(mps float64) {
	if u == nil || u.limiter == nil {
		return
	}
	if mps <= 0 {
		u.limiter.SetLimit(rate.Inf)
		u.limiter.SetBurst(0)
		return
	}
	u.limiter.SetLimit(rate.Limit(mps))
	burst := int(math.Ceil(mps))
	// The burst must stay batch-sized or WaitN(batch) can never succeed.
	if burst < u.minBurst {
		burst = u.minBurst
	}
	if burst < 1 {
		burst = 1
	}
	u.limiter.SetBurst(burst)
}

// poissonArrival samples exponential gaps between batches. A batch of n
// takes one gap with mean n/rate, which preserves the offered message rate.
type poissonArrival struct {
	mu     sync.Mutex
	rate   float64
	sample func() float64
}

func (p *poissonArrival) WaitN(ctx context.Context, n int) error {
	delay := p.nextDelay(n)
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *poissonArrival) SetRate(mps float64) {
	if p == nil {
		return
	}
	if mps < 0 {
		mps = 0
	}
	p.mu.Lock()
	p.rate = mps
	p.mu.Unlock()
}

func (p *poissonArrival) nextDelay(n int) time.Duration {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rate <= 0 || p.sample == nil {
		return 0
	}

	delay := float64(time.Second) * p.sample() * float64(n) / p.rate
	if delay > math.MaxInt64 {
		delay = math.MaxInt64
	}
	return time.Duration(delay)
}
