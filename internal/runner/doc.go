// Package runner is the injection engine: it replays pre-built messages
// over one live session at a controlled rate and turns every message into a
// conclusive result record.
//
// # Basic usage
//
// Build an [Injector] from options and run it:
//
//	inj := runner.New(runner.Options{
//		Templates:       templates,
//		Sender:          sess,
//		Registry:        registry,
//		Collector:       collector,
//		Rate:            200,
//		BatchSize:       10,
//		MaxConcurrent:   50,
//		ResponseTimeout: 5 * time.Second,
//	})
//	result := inj.Run(ctx)
//
// # Pacing
//
// Templates are consumed in order, batch by batch. Before each batch the
// injector waits on the arrival controller, so the offered load approximates
// Rate messages per second regardless of batch size:
//   - [ArrivalModelUniform]: token-bucket spacing via rate.Limiter
//   - [ArrivalModelPoisson]: exponential inter-batch gaps
//
// A [RatePattern] schedule (ramp, step, spike) varies the rate over the run;
// when the schedule ends, dispatch stops.
//
// # In-flight ceiling
//
// Each dispatched message occupies a pool worker from send until its
// response, timeout, or failure, so MaxConcurrent bounds the number of
// unresolved messages independently of the offered rate.
//
// # Per-message flow
//
// Dispatch assigns a fresh correlation key, registers the pending slot,
// sends, and waits for the slot to resolve. Send failures resolve the slot
// immediately; missing responses resolve as timeouts. Every template ends in
// exactly one [metrics.Record], failures never abort the rest of the run.
package runner
