package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/torosent/fixfire/internal/metrics"
)

func TestPrintReportBasic(t *testing.T) {
	stats := metrics.Stats{
		Total:          100,
		Successes:      95,
		Failures:       5,
		MessagesPerSec: 50.0,
		Duration:       2 * time.Second,
		MinLatency:     2 * time.Millisecond,
		P99Latency:     40 * time.Millisecond,
	}

	var buf bytes.Buffer
	PrintReport(&buf, stats)

	got := buf.String()
	if !strings.Contains(got, "Messages Sent") {
		t.Errorf("expected message total in output:\n%s", got)
	}
	if !strings.Contains(got, "95") {
		t.Errorf("expected confirmed count in output:\n%s", got)
	}
	if !strings.Contains(got, "P99") {
		t.Errorf("expected latency section in output:\n%s", got)
	}
}

func TestPrintReportResponseAndErrorBreakdown(t *testing.T) {
	stats := metrics.Stats{
		Total:     100,
		Successes: 95,
		Failures:  5,
		Duration:  time.Second,
		Responses: map[string]int{
			"8": 90,
			"3": 5,
		},
		Errors: map[string]int{
			"*demux.TimeoutError": 5,
		},
	}

	var buf bytes.Buffer
	PrintReport(&buf, stats)

	got := buf.String()
	if !strings.Contains(got, "Responses by Type:") {
		t.Errorf("expected response section in output:\n%s", got)
	}
	if !strings.Contains(got, "8 (ExecutionReport): 90") {
		t.Errorf("expected named execution report bucket:\n%s", got)
	}
	if !strings.Contains(got, "3 (Reject): 5") {
		t.Errorf("expected named reject bucket:\n%s", got)
	}
	if !strings.Contains(got, "Error Breakdown:") {
		t.Errorf("expected error section in output:\n%s", got)
	}
	if !strings.Contains(got, "Response timeout: 5") {
		t.Errorf("expected friendly error name:\n%s", got)
	}
}

func TestPrintReportOrdersErrorsByCount(t *testing.T) {
	stats := metrics.Stats{
		Total:    10,
		Failures: 10,
		Duration: time.Second,
		Errors: map[string]int{
			"*session.SendError":  2,
			"*demux.TimeoutError": 8,
		},
	}

	var buf bytes.Buffer
	PrintReport(&buf, stats)

	got := buf.String()
	timeoutAt := strings.Index(got, "Response timeout")
	sendAt := strings.Index(got, "Send failed")
	if timeoutAt == -1 || sendAt == -1 {
		t.Fatalf("expected both error kinds in output:\n%s", got)
	}
	if timeoutAt > sendAt {
		t.Errorf("expected larger bucket first:\n%s", got)
	}
}

func TestPrintJSONReport(t *testing.T) {
	stats := metrics.Stats{
		Total:        100,
		Successes:    100,
		DurationMs:   2000.0,
		P99LatencyMs: 41.5,
		Responses:    map[string]int{"8": 100},
	}

	var buf bytes.Buffer
	if err := PrintJSONReport(&buf, stats); err != nil {
		t.Fatalf("PrintJSONReport() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, `"total"`) {
		t.Errorf("expected total in JSON output:\n%s", got)
	}
	if !strings.Contains(got, `"p99_latency_ms"`) {
		t.Errorf("expected p99 in JSON output:\n%s", got)
	}
	if !strings.Contains(got, `"responses"`) {
		t.Errorf("expected responses in JSON output:\n%s", got)
	}
}
