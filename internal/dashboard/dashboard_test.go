package dashboard

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/torosent/fixfire/internal/metrics"
)

func TestFormatErrorListRows(t *testing.T) {
	tests := []struct {
		name      string
		errCounts map[string]int
		want      []string
	}{
		{
			name:      "nil map",
			errCounts: nil,
			want:      []string{"[No failures](fg:green)"},
		},
		{
			name:      "empty map",
			errCounts: map[string]int{},
			want:      []string{"[No failures](fg:green)"},
		},
		{
			name:      "single kind gets friendly name",
			errCounts: map[string]int{"*demux.TimeoutError": 5},
			want:      []string{"[Response timeout](fg:red) 5"},
		},
		{
			name: "sorted by count descending",
			errCounts: map[string]int{
				"*demux.TimeoutError": 3,
				"*session.SendError":  8,
			},
			want: []string{
				"[Send failed](fg:red) 8",
				"[Response timeout](fg:red) 3",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatErrorListRows(tt.errCounts)
			if len(got) != len(tt.want) {
				t.Fatalf("formatErrorListRows() returned %d rows, want %d: %v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("row[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFormatErrorListRowsCapped(t *testing.T) {
	errCounts := make(map[string]int)
	for i := 0; i < 15; i++ {
		errCounts[fmt.Sprintf("kind%02d", i)] = i + 1
	}

	got := formatErrorListRows(errCounts)
	if len(got) != 10 {
		t.Fatalf("formatErrorListRows() returned %d rows, want 10", len(got))
	}
	// Highest count first
	if !strings.Contains(got[0], "15") {
		t.Errorf("first row = %q, want the kind with count 15", got[0])
	}
}

func TestFormatResponseListRows(t *testing.T) {
	tests := []struct {
		name    string
		buckets map[string]int
		want    []string
	}{
		{
			name:    "empty buckets",
			buckets: nil,
			want:    []string{"[Awaiting responses](fg:green)"},
		},
		{
			name: "known types annotated",
			buckets: map[string]int{
				"8": 90,
				"3": 5,
			},
			want: []string{
				"[8 ExecutionReport](fg:cyan) 90",
				"[3 Reject](fg:cyan) 5",
			},
		},
		{
			name:    "unknown type stays bare",
			buckets: map[string]int{"UQ": 2},
			want:    []string{"[UQ](fg:cyan) 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatResponseListRows(tt.buckets)
			if len(got) != len(tt.want) {
				t.Fatalf("formatResponseListRows() returned %d rows, want %d: %v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("row[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCollectorFeedsListRows(t *testing.T) {
	collector := metrics.NewCollector(4)

	collector.Record(metrics.Record{Index: 0, Key: "ORD-1", ResponseType: "8", Latency: 10 * time.Millisecond})
	collector.Record(metrics.Record{Index: 1, Key: "ORD-2", ResponseType: "8", Latency: 12 * time.Millisecond})
	collector.Record(metrics.Record{Index: 2, Key: "ORD-3", ResponseType: "3", Latency: 9 * time.Millisecond})
	collector.Record(metrics.Record{Index: 3, Key: "ORD-4", Err: errors.New("boom")})

	stats := collector.Stats(time.Second)

	responses := formatResponseListRows(stats.Responses)
	if len(responses) != 2 {
		t.Fatalf("expected 2 response rows, got %v", responses)
	}
	if responses[0] != "[8 ExecutionReport](fg:cyan) 2" {
		t.Errorf("top response row = %q, want ExecutionReport with count 2", responses[0])
	}

	errRows := formatErrorListRows(stats.Errors)
	if len(errRows) != 1 {
		t.Fatalf("expected 1 error row, got %v", errRows)
	}
	if !strings.Contains(errRows[0], "1") {
		t.Errorf("error row = %q, want count 1", errRows[0])
	}
}

func TestFormatSessionParams(t *testing.T) {
	tests := []struct {
		name     string
		config   SessionConfig
		contains []string
		excludes []string
	}{
		{
			name: "full config",
			config: SessionConfig{
				Address:         "gateway.example.com:9823",
				Transport:       "tcp",
				SenderCompID:    "INJECTOR",
				TargetCompID:    "EXCHANGE",
				BeginString:     "FIX.4.4",
				Rate:            250,
				BatchSize:       10,
				MaxConcurrent:   32,
				Total:           1000,
				ResponseTimeout: 5 * time.Second,
				ConfigFile:      "fixfire.yaml",
			},
			contains: []string{
				"FIX.4.4",
				"Rate: 250/s",
				"Batch: 10",
				"In flight: 32",
				"Templates: 1000",
				"Timeout: 5s",
				"Config: fixfire.yaml",
			},
			excludes: []string{"Transport:"},
		},
		{
			name: "unlimited rate",
			config: SessionConfig{
				BeginString: "FIX.4.2",
				Rate:        0,
			},
			contains: []string{"Rate: unlimited"},
		},
		{
			name: "websocket transport shown",
			config: SessionConfig{
				Transport: "websocket",
				Rate:      100,
			},
			contains: []string{"Transport: websocket", "Rate: 100/s"},
		},
		{
			name:     "zero config still reports rate",
			config:   SessionConfig{},
			contains: []string{"Rate: unlimited"},
			excludes: []string{"Batch:", "Templates:", "Config:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Dashboard{sessionConfig: tt.config}
			got := d.formatSessionParams()

			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("formatSessionParams() = %q, missing %q", got, want)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("formatSessionParams() = %q, should not contain %q", got, unwanted)
				}
			}
		})
	}
}
