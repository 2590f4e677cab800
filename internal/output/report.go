package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/torosent/fixfire/internal/fix"
	"github.com/torosent/fixfire/internal/metrics"
)

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, stats metrics.Stats) {
	fmt.Fprintln(w, "\n--- Injection Results ---")
	fmt.Fprintf(w, "Messages Sent:     %d\n", stats.Total)
	fmt.Fprintf(w, "Confirmed:         %d\n", stats.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", stats.Failures)
	fmt.Fprintf(w, "Duration:          %s\n", stats.Duration)
	fmt.Fprintf(w, "Messages/sec:      %.2f\n", stats.MessagesPerSec)
	fmt.Fprintln(w, "\nResponse Latency:")
	fmt.Fprintf(w, "  Min:             %s\n", stats.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", stats.MaxLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanLatency)
	fmt.Fprintf(w, "  P50:             %s\n", stats.P50Latency)
	fmt.Fprintf(w, "  P90:             %s\n", stats.P90Latency)
	fmt.Fprintf(w, "  P99:             %s\n", stats.P99Latency)

	if len(stats.Responses) > 0 {
		fmt.Fprintln(w, "\nResponses by Type:")
		writeTypeBuckets(w, stats.Responses, "  ")
	}

	if len(stats.Errors) > 0 {
		fmt.Fprintln(w, "\nError Breakdown:")
		writeErrorBreakdown(w, stats.Errors, "  ")
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, stats metrics.Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

func writeTypeBuckets(w io.Writer, buckets map[string]int, indent string) {
	rows := metrics.FlattenTypeBuckets(buckets)
	if len(rows) == 0 {
		fmt.Fprintf(w, "%sNone\n", indent)
		return
	}
	for _, row := range rows {
		label := row.MsgType
		if name := fix.MsgTypeName(row.MsgType); name != "" {
			label = fmt.Sprintf("%s (%s)", row.MsgType, name)
		}
		fmt.Fprintf(w, "%s%s: %d\n", indent, label, row.Count)
	}
}

func writeErrorBreakdown(w io.Writer, errCounts map[string]int, indent string) {
	kinds := make([]string, 0, len(errCounts))
	for kind := range errCounts {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool {
		if errCounts[kinds[i]] == errCounts[kinds[j]] {
			return kinds[i] < kinds[j]
		}
		return errCounts[kinds[i]] > errCounts[kinds[j]]
	})
	for _, kind := range kinds {
		fmt.Fprintf(w, "%s%s: %d\n", indent, metrics.FriendlyErrorName(kind), errCounts[kind])
	}
}
