package threshold

import (
	"testing"
	"time"

	"github.com/torosent/fixfire/internal/metrics"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      Threshold
		wantError bool
	}{
		{
			name:  "valid p95 latency threshold",
			input: "fix_msg_latency:p95 < 500",
			want: Threshold{
				Metric:    "fix_msg_latency",
				Aggregate: "p95",
				Operator:  "<",
				Value:     500,
				Raw:       "fix_msg_latency:p95 < 500",
			},
		},
		{
			name:  "valid failure rate threshold",
			input: "fix_msg_failed:rate < 0.01",
			want: Threshold{
				Metric:    "fix_msg_failed",
				Aggregate: "rate",
				Operator:  "<",
				Value:     0.01,
				Raw:       "fix_msg_failed:rate < 0.01",
			},
		},
		{
			name:  "valid p99 latency with <=",
			input: "fix_msg_latency:p99 <= 1000",
			want: Threshold{
				Metric:    "fix_msg_latency",
				Aggregate: "p99",
				Operator:  "<=",
				Value:     1000,
				Raw:       "fix_msg_latency:p99 <= 1000",
			},
		},
		{
			name:  "valid message rate threshold with >",
			input: "fix_msgs:rate > 100",
			want: Threshold{
				Metric:    "fix_msgs",
				Aggregate: "rate",
				Operator:  ">",
				Value:     100,
				Raw:       "fix_msgs:rate > 100",
			},
		},
		{
			name:  "valid avg latency",
			input: "fix_msg_latency:avg < 200",
			want: Threshold{
				Metric:    "fix_msg_latency",
				Aggregate: "avg",
				Operator:  "<",
				Value:     200,
				Raw:       "fix_msg_latency:avg < 200",
			},
		},
		{
			name:      "empty string",
			input:     "",
			wantError: true,
		},
		{
			name:      "invalid format - missing operator",
			input:     "fix_msg_latency:p95 500",
			wantError: true,
		},
		{
			name:      "invalid metric",
			input:     "invalid_metric:p95 < 500",
			wantError: true,
		},
		{
			name:      "invalid aggregate",
			input:     "fix_msg_latency:p85 < 500",
			wantError: true,
		},
		{
			name:      "invalid operator",
			input:     "fix_msg_latency:p95 << 500",
			wantError: true,
		},
		{
			name:      "invalid value - not a number",
			input:     "fix_msg_latency:p95 < abc",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantError {
				t.Errorf("Parse() error = %v, wantError %v", err, tt.wantError)
				return
			}
			if !tt.wantError && got != tt.want {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseMultiple(t *testing.T) {
	tests := []struct {
		name      string
		input     []string
		wantCount int
		wantError bool
	}{
		{
			name: "multiple valid thresholds",
			input: []string{
				"fix_msg_latency:p95 < 500",
				"fix_msg_failed:rate < 0.01",
				"fix_msgs:rate > 100",
			},
			wantCount: 3,
		},
		{
			name:      "empty slice",
			input:     []string{},
			wantCount: 0,
		},
		{
			name: "one valid, one invalid",
			input: []string{
				"fix_msg_latency:p95 < 500",
				"invalid threshold",
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMultiple(tt.input)
			if (err != nil) != tt.wantError {
				t.Errorf("ParseMultiple() error = %v, wantError %v", err, tt.wantError)
				return
			}
			if !tt.wantError && len(got) != tt.wantCount {
				t.Errorf("ParseMultiple() returned %d thresholds, want %d", len(got), tt.wantCount)
			}
		})
	}
}

func TestEvaluator(t *testing.T) {
	stats := metrics.Stats{
		Total:          1000,
		Successes:      980,
		Failures:       20,
		MinLatency:     10 * time.Millisecond,
		MaxLatency:     500 * time.Millisecond,
		MeanLatency:    100 * time.Millisecond,
		P50Latency:     80 * time.Millisecond,
		P90Latency:     200 * time.Millisecond,
		P95Latency:     300 * time.Millisecond,
		P99Latency:     400 * time.Millisecond,
		MinLatencyMs:   10,
		MaxLatencyMs:   500,
		MeanLatencyMs:  100,
		P50LatencyMs:   80,
		P90LatencyMs:   200,
		P95LatencyMs:   300,
		P99LatencyMs:   400,
		MessagesPerSec: 100,
		Duration:       10 * time.Second,
	}

	tests := []struct {
		name       string
		thresholds []string
		wantPass   []bool
	}{
		{
			name: "all thresholds pass",
			thresholds: []string{
				"fix_msg_latency:p99 < 500",
				"fix_msg_failed:rate < 0.05",
				"fix_msgs:rate > 50",
			},
			wantPass: []bool{true, true, true},
		},
		{
			name: "some thresholds fail",
			thresholds: []string{
				"fix_msg_latency:p99 < 300",
				"fix_msg_failed:rate < 0.01",
				"fix_msgs:rate > 50",
			},
			wantPass: []bool{false, false, true},
		},
		{
			name: "latency percentiles",
			thresholds: []string{
				"fix_msg_latency:p50 < 100",
				"fix_msg_latency:p90 < 250",
				"fix_msg_latency:p95 <= 300",
				"fix_msg_latency:p99 < 450",
			},
			wantPass: []bool{true, true, true, true},
		},
		{
			name: "avg and extremes",
			thresholds: []string{
				"fix_msg_latency:avg < 150",
				"fix_msg_latency:max < 600",
				"fix_msg_latency:min > 5",
			},
			wantPass: []bool{true, true, true},
		},
		{
			name: "failure count",
			thresholds: []string{
				"fix_msg_failed:count < 50",
			},
			wantPass: []bool{true},
		},
		{
			name: "message count",
			thresholds: []string{
				"fix_msgs:count > 900",
			},
			wantPass: []bool{true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thresholds, err := ParseMultiple(tt.thresholds)
			if err != nil {
				t.Fatalf("ParseMultiple() error = %v", err)
			}

			evaluator := NewEvaluator(thresholds)
			results := evaluator.Evaluate(stats)

			if len(results) != len(tt.wantPass) {
				t.Fatalf("got %d results, want %d", len(results), len(tt.wantPass))
			}

			for i, result := range results {
				if result.Pass != tt.wantPass[i] {
					t.Errorf("threshold[%d] %q: got pass=%v, want %v (actual=%.2f)",
						i, result.Threshold.Raw, result.Pass, tt.wantPass[i], result.Actual)
				}
			}
		})
	}
}

func TestCompareValues(t *testing.T) {
	tests := []struct {
		name     string
		actual   float64
		operator string
		expected float64
		want     bool
	}{
		{"less than true", 50, "<", 100, true},
		{"less than false", 100, "<", 50, false},
		{"less than equal", 100, "<", 100, false},
		{"less than or equal true", 50, "<=", 100, true},
		{"less than or equal equal", 100, "<=", 100, true},
		{"less than or equal false", 150, "<=", 100, false},
		{"greater than true", 150, ">", 100, true},
		{"greater than false", 50, ">", 100, false},
		{"greater than equal", 100, ">", 100, false},
		{"greater than or equal true", 150, ">=", 100, true},
		{"greater than or equal equal", 100, ">=", 100, true},
		{"greater than or equal false", 50, ">=", 100, false},
		{"equal true", 100, "==", 100, true},
		{"equal false", 100, "==", 101, false},
		{"equal with floating point precision", 100.0000000001, "==", 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := compareValues(tt.actual, tt.operator, tt.expected)
			if got != tt.want {
				t.Errorf("compareValues(%.2f, %s, %.2f) = %v, want %v",
					tt.actual, tt.operator, tt.expected, got, tt.want)
			}
		})
	}
}

func TestExtractMetricValue(t *testing.T) {
	stats := metrics.Stats{
		Total:          1000,
		Successes:      950,
		Failures:       50,
		MinLatencyMs:   10.5,
		MaxLatencyMs:   500.25,
		MeanLatencyMs:  100.75,
		P50LatencyMs:   80.5,
		P90LatencyMs:   200.25,
		P95LatencyMs:   300.5,
		P99LatencyMs:   400.5,
		MessagesPerSec: 123.45,
	}

	tests := []struct {
		name      string
		threshold Threshold
		want      float64
		wantError bool
	}{
		{
			name:      "latency p50",
			threshold: Threshold{Metric: "fix_msg_latency", Aggregate: "p50"},
			want:      80.5,
		},
		{
			name:      "latency p90",
			threshold: Threshold{Metric: "fix_msg_latency", Aggregate: "p90"},
			want:      200.25,
		},
		{
			name:      "latency p95",
			threshold: Threshold{Metric: "fix_msg_latency", Aggregate: "p95"},
			want:      300.5,
		},
		{
			name:      "latency p99",
			threshold: Threshold{Metric: "fix_msg_latency", Aggregate: "p99"},
			want:      400.5,
		},
		{
			name:      "latency avg",
			threshold: Threshold{Metric: "fix_msg_latency", Aggregate: "avg"},
			want:      100.75,
		},
		{
			name:      "latency min",
			threshold: Threshold{Metric: "fix_msg_latency", Aggregate: "min"},
			want:      10.5,
		},
		{
			name:      "latency max",
			threshold: Threshold{Metric: "fix_msg_latency", Aggregate: "max"},
			want:      500.25,
		},
		{
			name:      "failed rate",
			threshold: Threshold{Metric: "fix_msg_failed", Aggregate: "rate"},
			want:      0.05,
		},
		{
			name:      "failed count",
			threshold: Threshold{Metric: "fix_msg_failed", Aggregate: "count"},
			want:      50,
		},
		{
			name:      "message rate",
			threshold: Threshold{Metric: "fix_msgs", Aggregate: "rate"},
			want:      123.45,
		},
		{
			name:      "message count",
			threshold: Threshold{Metric: "fix_msgs", Aggregate: "count"},
			want:      1000,
		},
		{
			name:      "unsupported metric",
			threshold: Threshold{Metric: "invalid_metric", Aggregate: "p95"},
			wantError: true,
		},
		{
			name:      "unsupported aggregate for metric",
			threshold: Threshold{Metric: "fix_msg_failed", Aggregate: "p95"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractMetricValue(tt.threshold, stats)
			if (err != nil) != tt.wantError {
				t.Errorf("extractMetricValue() error = %v, wantError %v", err, tt.wantError)
				return
			}
			if !tt.wantError && got != tt.want {
				t.Errorf("extractMetricValue() = %v, want %v", got, tt.want)
			}
		})
	}
}
