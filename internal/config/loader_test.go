package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestAsString(t *testing.T) {
	tests := []struct {
		input interface{}
		want  string
	}{
		{"hello", "hello"},
		{123, "123"},
		{true, "true"},
		{nil, ""},
		{[]byte("bytes"), "bytes"},
	}

	for _, tt := range tests {
		got, err := asString(tt.input)
		if err != nil {
			t.Errorf("asString(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asString(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		input interface{}
		want  int
	}{
		{123, 123},
		{"456", 456},
		{int64(789), 789},
		{float64(10.0), 10},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asInt(tt.input)
		if err != nil {
			t.Errorf("asInt(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asInt(%v) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestAsInt64(t *testing.T) {
	tests := []struct {
		input interface{}
		want  int64
	}{
		{int64(1), 1},
		{"9000000000", 9000000000},
		{42, 42},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asInt64(tt.input)
		if err != nil {
			t.Errorf("asInt64(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asInt64(%v) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestAsBool(t *testing.T) {
	tests := []struct {
		input interface{}
		want  bool
	}{
		{true, true},
		{"true", true},
		{"1", true},
		{false, false},
		{"false", false},
		{"0", false},
		{nil, false},
	}

	for _, tt := range tests {
		got, err := asBool(tt.input)
		if err != nil {
			t.Errorf("asBool(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asBool(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestAsDuration(t *testing.T) {
	tests := []struct {
		input interface{}
		want  time.Duration
	}{
		{time.Second, time.Second},
		{"1m", time.Minute},
		{10, 10 * time.Second}, // int treated as seconds
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asDuration(tt.input)
		if err != nil {
			t.Errorf("asDuration(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asDuration(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestApplyConfigSettings(t *testing.T) {
	cfg := &Config{}
	settings := map[string]interface{}{
		"address":          "gateway.example.com:9823",
		"transport":        "tcp",
		"begin_string":     "FIX.4.2",
		"sender_comp_id":   "INJECTOR",
		"target_comp_id":   "EXCHANGE",
		"heartbeat":        "20s",
		"templates":        "orders.fix",
		"rate":             200,
		"batch_size":       25,
		"max_concurrent":   16,
		"correlation_tag":  41,
		"response_timeout": "2s",
		"thresholds":       []interface{}{"fix_msg_latency:p99 < 250"},
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		t.Fatalf("applyConfigSettings() error = %v", err)
	}

	if cfg.Address != "gateway.example.com:9823" {
		t.Errorf("Address = %q", cfg.Address)
	}
	if cfg.BeginString != "FIX.4.2" {
		t.Errorf("BeginString = %q, want FIX.4.2", cfg.BeginString)
	}
	if cfg.SenderCompID != "INJECTOR" || cfg.TargetCompID != "EXCHANGE" {
		t.Errorf("comp IDs = %q/%q", cfg.SenderCompID, cfg.TargetCompID)
	}
	if cfg.HeartbeatInterval != 20*time.Second {
		t.Errorf("HeartbeatInterval = %v, want 20s", cfg.HeartbeatInterval)
	}
	if cfg.Templates != "orders.fix" {
		t.Errorf("Templates = %q", cfg.Templates)
	}
	if cfg.Rate != 200 || cfg.BatchSize != 25 || cfg.MaxConcurrent != 16 {
		t.Errorf("injection shape = %d/%d/%d", cfg.Rate, cfg.BatchSize, cfg.MaxConcurrent)
	}
	if cfg.CorrelationTag != 41 {
		t.Errorf("CorrelationTag = %d, want 41", cfg.CorrelationTag)
	}
	if cfg.ResponseTimeout != 2*time.Second {
		t.Errorf("ResponseTimeout = %v, want 2s", cfg.ResponseTimeout)
	}
	if len(cfg.Thresholds) != 1 {
		t.Errorf("Thresholds = %v", cfg.Thresholds)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := &Config{
		Rate:          10,
		BatchSize:     10,
		MaxConcurrent: 1,
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	configureFlags(fs)

	args := []string{
		"--rate=500",
		"--max-concurrent=32",
		"--arrival-model=Poisson",
		"--seed=7",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if err := applyFlagOverrides(cfg, fs); err != nil {
		t.Fatalf("applyFlagOverrides() error = %v", err)
	}

	if cfg.Rate != 500 {
		t.Errorf("Rate = %d, want 500", cfg.Rate)
	}
	if cfg.MaxConcurrent != 32 {
		t.Errorf("MaxConcurrent = %d, want 32", cfg.MaxConcurrent)
	}
	if cfg.BatchSize != 10 {
		t.Errorf("BatchSize = %d, want 10 (unchanged)", cfg.BatchSize)
	}
	if cfg.Arrival.Model != ArrivalModelPoisson {
		t.Errorf("Arrival.Model = %q, want poisson", cfg.Arrival.Model)
	}
	if cfg.Arrival.Seed != 7 {
		t.Errorf("Arrival.Seed = %d, want 7", cfg.Arrival.Seed)
	}
}

func TestParseRatePatterns(t *testing.T) {
	input := []interface{}{
		map[string]interface{}{
			"name":      "warm-up",
			"type":      "ramp",
			"from_rate": 10,
			"to_rate":   100,
			"duration":  "1m",
		},
		map[string]interface{}{
			"type": "step",
			"steps": []interface{}{
				map[string]interface{}{"rate": 50, "duration": "30s"},
			},
		},
	}

	patterns, err := parseRatePatterns(input)
	if err != nil {
		t.Fatalf("parseRatePatterns() error = %v", err)
	}
	if len(patterns) != 2 {
		t.Fatalf("len(patterns) = %d, want 2", len(patterns))
	}

	p := patterns[0]
	if p.Name != "warm-up" {
		t.Errorf("Name = %q, want warm-up", p.Name)
	}
	if p.Type != RatePatternTypeRamp {
		t.Errorf("Type = %q, want ramp", p.Type)
	}
	if p.FromRate != 10 || p.ToRate != 100 {
		t.Errorf("ramp = %d..%d, want 10..100", p.FromRate, p.ToRate)
	}
	if p.Duration != time.Minute {
		t.Errorf("Duration = %v, want 1m", p.Duration)
	}

	s := patterns[1]
	if len(s.Steps) != 1 || s.Steps[0].Rate != 50 || s.Steps[0].Duration != 30*time.Second {
		t.Errorf("steps = %+v", s.Steps)
	}
}

func TestParseArrival(t *testing.T) {
	arrival, err := parseArrival("Poisson")
	if err != nil {
		t.Fatalf("parseArrival(string) error = %v", err)
	}
	if arrival.Model != ArrivalModelPoisson {
		t.Errorf("Model = %q, want poisson", arrival.Model)
	}

	arrival, err = parseArrival(map[string]interface{}{
		"model": "poisson",
		"seed":  99,
	})
	if err != nil {
		t.Fatalf("parseArrival(map) error = %v", err)
	}
	if arrival.Model != ArrivalModelPoisson || arrival.Seed != 99 {
		t.Errorf("arrival = %+v", arrival)
	}
}

func TestParseTracing(t *testing.T) {
	defaults := TracingConfig{Protocol: "grpc", SampleRate: 1.0}
	tracing, err := parseTracing(map[string]interface{}{
		"enabled":     true,
		"endpoint":    "collector:4317",
		"sample_rate": 0.25,
		"insecure":    true,
	}, defaults)
	if err != nil {
		t.Fatalf("parseTracing() error = %v", err)
	}
	if !tracing.Enabled || tracing.Endpoint != "collector:4317" {
		t.Errorf("tracing = %+v", tracing)
	}
	if tracing.Protocol != "grpc" {
		t.Errorf("Protocol = %q, want grpc default kept", tracing.Protocol)
	}
	if tracing.SampleRate != 0.25 {
		t.Errorf("SampleRate = %v, want 0.25", tracing.SampleRate)
	}
}
