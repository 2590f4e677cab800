package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Transport string

const (
	TransportTCP       Transport = "tcp"
	TransportWebSocket Transport = "websocket"
)

// DefaultCorrelationTag is ClOrdID (11), the conventional correlation key
// for order flow.
const DefaultCorrelationTag = 11

// sessionOwnedTags are stamped at send time or fixed by the template, so
// none of them can carry the correlation key.
var sessionOwnedTags = map[int]string{
	8:  "BeginString",
	9:  "BodyLength",
	10: "CheckSum",
	34: "MsgSeqNum",
	35: "MsgType",
	49: "SenderCompID",
	52: "SendingTime",
	56: "TargetCompID",
}

type Config struct {
	// Connection.
	Address   string    `mapstructure:"address"`
	Transport Transport `mapstructure:"transport"`

	// Session identity.
	BeginString       string        `mapstructure:"begin_string"`
	SenderCompID      string        `mapstructure:"sender_comp_id"`
	TargetCompID      string        `mapstructure:"target_comp_id"`
	Username          string        `mapstructure:"username"`
	Password          string        `mapstructure:"password"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`

	// Timeouts.
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	ResponseTimeout  time.Duration `mapstructure:"response_timeout"`

	// Input.
	Templates string `mapstructure:"templates"`

	// Injection shape.
	Rate           int           `mapstructure:"rate"`
	BatchSize      int           `mapstructure:"batch_size"`
	MaxConcurrent  int           `mapstructure:"max_concurrent"`
	CorrelationTag int           `mapstructure:"correlation_tag"`
	Arrival        ArrivalConfig `mapstructure:"arrival"`
	RatePatterns   []RatePattern `mapstructure:"rate_patterns"`

	// Output.
	JSONOutput  bool   `mapstructure:"json_output"`
	Dashboard   bool   `mapstructure:"dashboard"`
	Progress    bool   `mapstructure:"progress"`
	LogErrors   bool   `mapstructure:"log_errors"`
	CSVOutput   string `mapstructure:"csv_output"`
	JSONResults string `mapstructure:"json_results"`

	Thresholds []string      `mapstructure:"thresholds"`
	Tracing    TracingConfig `mapstructure:"tracing"`

	ConfigFile  string `mapstructure:"-"`
	PrintConfig bool   `mapstructure:"-"`
}

type RatePatternType string

const (
	RatePatternTypeRamp  RatePatternType = "ramp"
	RatePatternTypeStep  RatePatternType = "step"
	RatePatternTypeSpike RatePatternType = "spike"
)

type RatePattern struct {
	Name     string          `mapstructure:"name"`
	Type     RatePatternType `mapstructure:"type"`
	FromRate int             `mapstructure:"from_rate"`
	ToRate   int             `mapstructure:"to_rate"`
	Duration time.Duration   `mapstructure:"duration"`
	Steps    []RateStep      `mapstructure:"steps"`
	Rate     int             `mapstructure:"rate"`
}

type RateStep struct {
	Rate     int           `mapstructure:"rate"`
	Duration time.Duration `mapstructure:"duration"`
}

type ArrivalModel string

const (
	ArrivalModelUniform ArrivalModel = "uniform"
	ArrivalModelPoisson ArrivalModel = "poisson"
)

type ArrivalConfig struct {
	Model ArrivalModel `mapstructure:"model"`
	Seed  int64        `mapstructure:"seed"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string
	var warnings []string

	if strings.TrimSpace(c.Address) == "" {
		issues = append(issues, "address is required (use --help for usage information)")
	}

	switch c.Transport {
	case "", TransportTCP:
		if strings.Contains(c.Address, "://") {
			issues = append(issues, "address must be host:port for tcp transport")
		}
	case TransportWebSocket:
		if !strings.HasPrefix(c.Address, "ws://") && !strings.HasPrefix(c.Address, "wss://") {
			issues = append(issues, "address must be a ws:// or wss:// URL for websocket transport")
		}
	default:
		issues = append(issues, fmt.Sprintf("transport must be 'tcp' or 'websocket', got %q", c.Transport))
	}

	if strings.TrimSpace(c.SenderCompID) == "" {
		issues = append(issues, "sender_comp_id is required")
	}
	if strings.TrimSpace(c.TargetCompID) == "" {
		issues = append(issues, "target_comp_id is required")
	}
	if strings.TrimSpace(c.Templates) == "" {
		issues = append(issues, "templates file is required")
	}

	// Counterparties throttle or drop sessions that exceed agreed rates.
	if c.Rate > 5000 {
		warnings = append(warnings, fmt.Sprintf("WARNING: High injection rate configured (%d msgs/sec). Ensure the counterparty has agreed to this load.", c.Rate))
	}
	if c.MaxConcurrent > 500 {
		warnings = append(warnings, fmt.Sprintf("WARNING: High concurrency configured (%d in flight). Ensure the counterparty has agreed to this load.", c.MaxConcurrent))
	}
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, w)
	}

	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.BatchSize < 1 {
		issues = append(issues, "batch_size must be >= 1")
	}
	if c.MaxConcurrent < 1 {
		issues = append(issues, "max_concurrent must be >= 1")
	}
	if c.HeartbeatInterval <= 0 {
		issues = append(issues, "heartbeat_interval must be > 0")
	}
	for name, d := range map[string]time.Duration{
		"connect_timeout":   c.ConnectTimeout,
		"write_timeout":     c.WriteTimeout,
		"handshake_timeout": c.HandshakeTimeout,
		"response_timeout":  c.ResponseTimeout,
	} {
		if d < 0 {
			issues = append(issues, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	if c.CorrelationTag < 1 {
		issues = append(issues, "correlation_tag must be >= 1")
	} else if name, owned := sessionOwnedTags[c.CorrelationTag]; owned {
		issues = append(issues, fmt.Sprintf("correlation_tag %d (%s) is session-managed and cannot carry the key", c.CorrelationTag, name))
	}

	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json-output are mutually exclusive")
	}
	if c.Dashboard && c.Progress {
		issues = append(issues, "dashboard and progress are mutually exclusive")
	}

	issues = append(issues, validateArrivalConfig(c.Arrival)...)
	issues = append(issues, validateRatePatterns(c.RatePatterns)...)
	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateArrivalConfig(arr ArrivalConfig) []string {
	model := arr.Model
	if model == "" {
		model = ArrivalModelUniform
	}
	switch model {
	case ArrivalModelUniform, ArrivalModelPoisson:
		return nil
	default:
		return []string{fmt.Sprintf("arrival model %q is not supported", model)}
	}
}

func validateRatePatterns(patterns []RatePattern) []string {
	var issues []string
	for idx, pattern := range patterns {
		typeLabel := strings.TrimSpace(string(pattern.Type))
		if typeLabel == "" {
			issues = append(issues, fmt.Sprintf("ratePatterns[%d]: type is required", idx))
			continue
		}
		switch RatePatternType(strings.ToLower(typeLabel)) {
		case RatePatternTypeRamp:
			if pattern.Duration <= 0 {
				issues = append(issues, fmt.Sprintf("ratePatterns[%d]: duration must be > 0 for ramp", idx))
			}
			if pattern.FromRate < 0 || pattern.ToRate < 0 {
				issues = append(issues, fmt.Sprintf("ratePatterns[%d]: from_rate and to_rate must be >= 0", idx))
			}
		case RatePatternTypeStep:
			if len(pattern.Steps) == 0 {
				issues = append(issues, fmt.Sprintf("ratePatterns[%d]: steps are required for step pattern", idx))
			}
			for stepIdx, step := range pattern.Steps {
				if step.Rate < 0 {
					issues = append(issues, fmt.Sprintf("ratePatterns[%d].steps[%d]: rate must be >= 0", idx, stepIdx))
				}
				if step.Duration <= 0 {
					issues = append(issues, fmt.Sprintf("ratePatterns[%d].steps[%d]: duration must be > 0", idx, stepIdx))
				}
			}
		case RatePatternTypeSpike:
			if pattern.Rate <= 0 {
				issues = append(issues, fmt.Sprintf("ratePatterns[%d]: rate must be > 0 for spike", idx))
			}
			if pattern.Duration <= 0 {
				issues = append(issues, fmt.Sprintf("ratePatterns[%d]: duration must be > 0 for spike", idx))
			}
		default:
			issues = append(issues, fmt.Sprintf("ratePatterns[%d]: unsupported type %q", idx, pattern.Type))
		}
	}
	return issues
}

func validateTracingConfig(tr TracingConfig) []string {
	var issues []string
	if tr.SampleRate < 0 || tr.SampleRate > 1.0 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", tr.SampleRate))
	}
	switch strings.ToLower(tr.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", tr.Protocol))
	}
	return issues
}

// RenderYAML renders the effective configuration for --print-config. Keys
// match the config file format; the password is masked.
func (c Config) RenderYAML() (string, error) {
	password := c.Password
	if password != "" {
		password = "***"
	}

	doc := map[string]any{
		"address":            c.Address,
		"transport":          string(c.Transport),
		"begin_string":       c.BeginString,
		"sender_comp_id":     c.SenderCompID,
		"target_comp_id":     c.TargetCompID,
		"username":           c.Username,
		"password":           password,
		"heartbeat_interval": c.HeartbeatInterval.String(),
		"connect_timeout":    c.ConnectTimeout.String(),
		"write_timeout":      c.WriteTimeout.String(),
		"handshake_timeout":  c.HandshakeTimeout.String(),
		"response_timeout":   c.ResponseTimeout.String(),
		"templates":          c.Templates,
		"rate":               c.Rate,
		"batch_size":         c.BatchSize,
		"max_concurrent":     c.MaxConcurrent,
		"correlation_tag":    c.CorrelationTag,
		"arrival": map[string]any{
			"model": string(c.Arrival.Model),
			"seed":  c.Arrival.Seed,
		},
		"json_output":  c.JSONOutput,
		"dashboard":    c.Dashboard,
		"progress":     c.Progress,
		"log_errors":   c.LogErrors,
		"csv_output":   c.CSVOutput,
		"json_results": c.JSONResults,
		"thresholds":   c.Thresholds,
	}

	if len(c.RatePatterns) > 0 {
		patterns := make([]map[string]any, 0, len(c.RatePatterns))
		for _, p := range c.RatePatterns {
			entry := map[string]any{"type": string(p.Type)}
			if p.Name != "" {
				entry["name"] = p.Name
			}
			switch p.Type {
			case RatePatternTypeRamp:
				entry["from_rate"] = p.FromRate
				entry["to_rate"] = p.ToRate
				entry["duration"] = p.Duration.String()
			case RatePatternTypeStep:
				steps := make([]map[string]any, 0, len(p.Steps))
				for _, s := range p.Steps {
					steps = append(steps, map[string]any{
						"rate":     s.Rate,
						"duration": s.Duration.String(),
					})
				}
				entry["steps"] = steps
			case RatePatternTypeSpike:
				entry["rate"] = p.Rate
				entry["duration"] = p.Duration.String()
			}
			patterns = append(patterns, entry)
		}
		doc["rate_patterns"] = patterns
	}

	if c.Tracing.Enabled || c.Tracing.Endpoint != "" {
		doc["tracing"] = map[string]any{
			"enabled":      c.Tracing.Enabled,
			"endpoint":     c.Tracing.Endpoint,
			"protocol":     c.Tracing.Protocol,
			"service_name": c.Tracing.ServiceName,
			"sample_rate":  c.Tracing.SampleRate,
			"insecure":     c.Tracing.Insecure,
		}
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
