package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/fixfire/internal/fix"
	"github.com/torosent/fixfire/internal/metrics"
	"github.com/torosent/fixfire/internal/tracing"
)

// Result captures an injection run summary.
type Result struct {
	Total    int64
	Errors   int64
	Duration time.Duration
}

// Injector replays templates over one session at a controlled rate, one
// result record per template.
type Injector struct {
	opt     Options
	sched   *rateSchedule
	arrival arrivalController
	log     zerolog.Logger
}

func New(opt Options) *Injector {
	opt.normalize()
	sched := compileRateSchedule(opt.RatePatterns)
	return &Injector{
		opt:     opt,
		sched:   sched,
		arrival: newArrivalController(opt, sched),
		log:     opt.Logger.With().Str("component", "injector").Logger(),
	}
}

// Run consumes the templates in order, batch by batch. Canceling ctx stops
// new dispatches; messages already on the wire keep waiting for their
// response or per-message timeout, so the result set they belong to stays
// complete.
func (in *Injector) Run(ctx context.Context) Result {
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if in.sched != nil {
		in.log.Debug().Dur("length", in.sched.length).Msg("rate schedule active")
		go in.runScheduleController(ctx, cancel)
	}

	pool, err := ants.NewPool(in.opt.MaxConcurrent)
	if err != nil {
		in.log.Error().Err(err).Msg("worker pool start failed")
		return Result{Duration: time.Since(start)}
	}
	defer pool.Release()

	var (
		wg    sync.WaitGroup
		total int64
		errs  int64
	)

	templates := in.opt.Templates
	for lo := 0; lo < len(templates) && ctx.Err() == nil; lo += in.opt.BatchSize {
		hi := lo + in.opt.BatchSize
		if hi > len(templates) {
			hi = len(templates)
		}
		if err := in.arrival.WaitN(ctx, hi-lo); err != nil {
			break
		}

		for idx := lo; idx < hi; idx++ {
			if ctx.Err() != nil {
				break
			}
			// Keys are assigned here, in submission order, so the key
			// generator never runs concurrently.
			msg := templates[idx].Clone()
			key := in.opt.KeyFactory()
			msg.Set(in.opt.CorrelationTag, key)

			wg.Add(1)
			atomic.AddInt64(&total, 1)
			submitted := pool.Submit(func() {
				defer wg.Done()
				if err := in.dispatch(ctx, idx, key, msg); err != nil {
					atomic.AddInt64(&errs, 1)
				}
			})
			if submitted != nil {
				wg.Done()
				atomic.AddInt64(&errs, 1)
				in.opt.Collector.Record(metrics.Record{
					Index:       idx,
					Key:         key,
					SentText:    msg.String(),
					SubmittedAt: time.Now(),
					Err:         submitted,
				})
			}
		}
	}

	wg.Wait()
	return Result{
		Total:    atomic.LoadInt64(&total),
		Errors:   atomic.LoadInt64(&errs),
		Duration: time.Since(start),
	}
}

// dispatch registers the pending slot before writing so a response racing
// the send cannot be lost, then blocks until the slot resolves.
func (in *Injector) dispatch(ctx context.Context, idx int, key string, msg *fix.Message) error {
	rec := metrics.Record{Index: idx, Key: key, SubmittedAt: time.Now()}

	pending, err := in.opt.Registry.Register(key, in.opt.ResponseTimeout)
	if err != nil {
		rec.SentText = msg.String()
		rec.Err = err
		in.opt.Collector.Record(rec)
		return err
	}

	var span trace.Span
	if in.opt.Tracer != nil {
		ctx, span = tracing.StartInjectSpan(ctx, in.opt.Tracer.Tracer(), idx, key, msg.MsgType())
	}

	res, sendErr := in.opt.Sender.Send(ctx, msg)
	if sendErr != nil {
		in.opt.Registry.Fail(key, sendErr)
	} else {
		rec.SeqNum = res.SeqNum
		rec.SubmittedAt = res.SentAt
	}
	rec.SentText = msg.String()

	// The wait survives run cancellation: a sent message keeps its
	// response-or-timeout window so its record is still conclusive.
	out := pending.Await(context.WithoutCancel(ctx))
	if out.Msg != nil {
		rec.ResponseText = out.Msg.String()
		rec.ResponseType = out.Msg.MsgType()
		rec.ReceivedAt = out.ReceivedAt
		rec.Latency = out.ReceivedAt.Sub(rec.SubmittedAt)
	}
	rec.Err = out.Err

	if in.opt.Tracer != nil {
		tracing.EndSpan(span, out.Err, attribute.Int("fix.seq_num", rec.SeqNum))
	}
	if out.Err != nil {
		in.log.Debug().Err(out.Err).Int("index", idx).Str("key", key).Msg("message failed")
	}
	in.opt.Collector.Record(rec)
	return out.Err
}

func (in *Injector) runScheduleController(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()

	start := time.Now()
	if initial, ok := in.sched.rateAt(0); ok {
		in.arrival.SetRate(initial)
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mps, ok := in.sched.rateAt(time.Since(start))
			if !ok {
				// Schedule exhausted: stop dispatching what remains.
				return
			}
			in.arrival.SetRate(mps)
		}
	}
}
