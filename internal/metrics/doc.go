// Package metrics collects per-message outcomes and aggregates them into
// run statistics.
//
// # Collector
//
// The central [Collector] type finalizes one [Record] per injected message:
//
//	collector := metrics.NewCollector(len(templates))
//	collector.Start() // mark injection start for throughput math
//
//	collector.Record(metrics.Record{
//		Index:       0,
//		SeqNum:      2,
//		Key:         "01HZXW9Y8K",
//		SubmittedAt: sentAt,
//		ReceivedAt:  receivedAt,
//		Latency:     receivedAt.Sub(sentAt),
//	})
//
//	stats := collector.Stats(elapsed)
//
// Records land in a table slot addressed by their submission index, so
// [Collector.Records] is deterministic in submission order no matter how
// responses interleaved on the wire.
//
// # Statistics
//
// [Stats] carries message counts, the success rate, latency percentiles
// (P50/P90/P99 from an HDR histogram spanning 1µs to 60s), throughput, and
// breakdowns of failures by error kind and of responses by message type.
//
// # Error kinds
//
// Failures are bucketed by the error's Go type. [FriendlyErrorName] maps
// the engine's error types to report labels, for example *demux.TimeoutError
// to "Response timeout".
//
// # Thread safety
//
// All Collector methods are safe for concurrent use; records arrive from
// every dispatch worker at once.
package metrics
