package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and an optional config file into a
// Config. File settings apply first, then flag overrides.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	settings := cfgViper.AllSettings()

	cfg := &Config{
		Transport:         TransportTCP,
		BeginString:       "FIX.4.4",
		HeartbeatInterval: 30 * time.Second,
		ConnectTimeout:    10 * time.Second,
		WriteTimeout:      5 * time.Second,
		HandshakeTimeout:  30 * time.Second,
		ResponseTimeout:   5 * time.Second,
		BatchSize:         10,
		MaxConcurrent:     1,
		CorrelationTag:    DefaultCorrelationTag,
		Arrival:           ArrivalConfig{Model: ArrivalModelUniform},
		Tracing:           TracingConfig{Protocol: "grpc", SampleRate: 1.0},
		ConfigFile:        configPath,
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}
	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.Address = strings.TrimSpace(cfg.Address)
	cfg.SenderCompID = strings.TrimSpace(cfg.SenderCompID)
	cfg.TargetCompID = strings.TrimSpace(cfg.TargetCompID)
	cfg.Templates = strings.TrimSpace(cfg.Templates)

	// The password never travels through flags or files in hardened
	// setups; the environment wins when nothing else set it.
	if cfg.Password == "" {
		if envPassword := os.Getenv("FIXFIRE_PASSWORD"); envPassword != "" {
			cfg.Password = envPassword
		}
	}

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "address"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("address: %w", err)
		}
		cfg.Address = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "transport"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("transport: %w", err)
		}
		if val != "" {
			cfg.Transport = Transport(strings.ToLower(strings.TrimSpace(val)))
		}
	}

	if raw, ok := lookupSetting(settings, "beginstring", "begin_string", "begin-string"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("beginString: %w", err)
		}
		if val != "" {
			cfg.BeginString = strings.TrimSpace(val)
		}
	}

	if raw, ok := lookupSetting(settings, "sendercompid", "sender_comp_id", "sender-comp-id"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("senderCompID: %w", err)
		}
		cfg.SenderCompID = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "targetcompid", "target_comp_id", "target-comp-id"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("targetCompID: %w", err)
		}
		cfg.TargetCompID = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "username"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("username: %w", err)
		}
		cfg.Username = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "password"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("password: %w", err)
		}
		cfg.Password = val
	}

	if raw, ok := lookupSetting(settings, "heartbeatinterval", "heartbeat_interval", "heartbeat-interval", "heartbeat"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("heartbeatInterval: %w", err)
		}
		cfg.HeartbeatInterval = dur
	}

	if raw, ok := lookupSetting(settings, "connecttimeout", "connect_timeout", "connect-timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("connectTimeout: %w", err)
		}
		cfg.ConnectTimeout = dur
	}

	if raw, ok := lookupSetting(settings, "writetimeout", "write_timeout", "write-timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("writeTimeout: %w", err)
		}
		cfg.WriteTimeout = dur
	}

	if raw, ok := lookupSetting(settings, "handshaketimeout", "handshake_timeout", "handshake-timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("handshakeTimeout: %w", err)
		}
		cfg.HandshakeTimeout = dur
	}

	if raw, ok := lookupSetting(settings, "responsetimeout", "response_timeout", "response-timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("responseTimeout: %w", err)
		}
		cfg.ResponseTimeout = dur
	}

	if raw, ok := lookupSetting(settings, "templates", "template_file", "template-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("templates: %w", err)
		}
		cfg.Templates = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		cfg.Rate = val
	}

	if raw, ok := lookupSetting(settings, "batchsize", "batch_size", "batch-size"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("batchSize: %w", err)
		}
		cfg.BatchSize = val
	}

	if raw, ok := lookupSetting(settings, "maxconcurrent", "max_concurrent", "max-concurrent", "concurrency"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("maxConcurrent: %w", err)
		}
		cfg.MaxConcurrent = val
	}

	if raw, ok := lookupSetting(settings, "correlationtag", "correlation_tag", "correlation-tag"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("correlationTag: %w", err)
		}
		cfg.CorrelationTag = val
	}

	if raw, ok := lookupSetting(settings, "arrival"); ok {
		arrival, err := parseArrival(raw)
		if err != nil {
			return fmt.Errorf("arrival: %w", err)
		}
		if arrival.Model != "" {
			cfg.Arrival.Model = arrival.Model
		}
		if arrival.Seed != 0 {
			cfg.Arrival.Seed = arrival.Seed
		}
	} else if raw, ok := lookupSetting(settings, "arrivalmodel", "arrival_model", "arrival-model"); ok {
		arrival, err := parseArrival(raw)
		if err != nil {
			return fmt.Errorf("arrivalModel: %w", err)
		}
		if arrival.Model != "" {
			cfg.Arrival.Model = arrival.Model
		}
	}

	if raw, ok := lookupSetting(settings, "ratepatterns", "rate_patterns", "rate-patterns"); ok {
		patterns, err := parseRatePatterns(raw)
		if err != nil {
			return fmt.Errorf("ratePatterns: %w", err)
		}
		cfg.RatePatterns = patterns
	}

	if raw, ok := lookupSetting(settings, "jsonoutput", "json_output", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("jsonOutput: %w", err)
		}
		cfg.JSONOutput = val
	}

	if raw, ok := lookupSetting(settings, "dashboard"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		cfg.Dashboard = val
	}

	if raw, ok := lookupSetting(settings, "progress"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("progress: %w", err)
		}
		cfg.Progress = val
	}

	if raw, ok := lookupSetting(settings, "logerrors", "log_errors", "log-errors"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("logErrors: %w", err)
		}
		cfg.LogErrors = val
	}

	if raw, ok := lookupSetting(settings, "csvoutput", "csv_output", "csv-output"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("csvOutput: %w", err)
		}
		cfg.CSVOutput = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "jsonresults", "json_results", "json-results"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("jsonResults: %w", err)
		}
		cfg.JSONResults = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		thresholds, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = thresholds
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tracing, err := parseTracing(raw, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tracing
	}

	return nil
}

func parseRatePatterns(value interface{}) ([]RatePattern, error) {
	if value == nil {
		return nil, nil
	}
	items, err := toInterfaceSlice(value)
	if err != nil {
		return nil, err
	}
	patterns := make([]RatePattern, 0, len(items))
	for idx, item := range items {
		entry, err := toStringKeyMap(item)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", idx, err)
		}
		pattern, err := buildRatePattern(entry)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", idx, err)
		}
		patterns = append(patterns, pattern)
	}
	return patterns, nil
}

func buildRatePattern(settings map[string]interface{}) (RatePattern, error) {
	var pattern RatePattern
	if raw, ok := lookupSetting(settings, "name"); ok {
		val, err := asString(raw)
		if err != nil {
			return RatePattern{}, fmt.Errorf("name: %w", err)
		}
		pattern.Name = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "type"); ok {
		val, err := asString(raw)
		if err != nil {
			return RatePattern{}, fmt.Errorf("type: %w", err)
		}
		pattern.Type = RatePatternType(strings.ToLower(strings.TrimSpace(val)))
	}
	if raw, ok := lookupSetting(settings, "fromrate", "from_rate", "from-rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return RatePattern{}, fmt.Errorf("from_rate: %w", err)
		}
		pattern.FromRate = val
	}
	if raw, ok := lookupSetting(settings, "torate", "to_rate", "to-rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return RatePattern{}, fmt.Errorf("to_rate: %w", err)
		}
		pattern.ToRate = val
	}
	if raw, ok := lookupSetting(settings, "duration"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return RatePattern{}, fmt.Errorf("duration: %w", err)
		}
		pattern.Duration = dur
	}
	if raw, ok := lookupSetting(settings, "steps"); ok {
		steps, err := parseRateSteps(raw)
		if err != nil {
			return RatePattern{}, fmt.Errorf("steps: %w", err)
		}
		pattern.Steps = steps
	}
	if raw, ok := lookupSetting(settings, "rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return RatePattern{}, fmt.Errorf("rate: %w", err)
		}
		pattern.Rate = val
	}
	return pattern, nil
}

func parseRateSteps(value interface{}) ([]RateStep, error) {
	items, err := toInterfaceSlice(value)
	if err != nil {
		return nil, err
	}
	steps := make([]RateStep, 0, len(items))
	for idx, item := range items {
		entry, err := toStringKeyMap(item)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", idx, err)
		}
		var step RateStep
		if raw, ok := lookupSetting(entry, "rate"); ok {
			val, err := asInt(raw)
			if err != nil {
				return nil, fmt.Errorf("index %d rate: %w", idx, err)
			}
			step.Rate = val
		}
		if raw, ok := lookupSetting(entry, "duration"); ok {
			dur, err := asDuration(raw)
			if err != nil {
				return nil, fmt.Errorf("index %d duration: %w", idx, err)
			}
			step.Duration = dur
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func parseArrival(value interface{}) (ArrivalConfig, error) {
	if value == nil {
		return ArrivalConfig{}, nil
	}
	switch v := value.(type) {
	case string:
		model := strings.ToLower(strings.TrimSpace(v))
		if model == "" {
			return ArrivalConfig{}, nil
		}
		return ArrivalConfig{Model: ArrivalModel(model)}, nil
	default:
		entry, err := toStringKeyMap(value)
		if err != nil {
			return ArrivalConfig{}, err
		}
		var arrival ArrivalConfig
		if raw, ok := lookupSetting(entry, "model"); ok {
			val, err := asString(raw)
			if err != nil {
				return ArrivalConfig{}, fmt.Errorf("model: %w", err)
			}
			arrival.Model = ArrivalModel(strings.ToLower(strings.TrimSpace(val)))
		}
		if raw, ok := lookupSetting(entry, "seed"); ok {
			val, err := asInt64(raw)
			if err != nil {
				return ArrivalConfig{}, fmt.Errorf("seed: %w", err)
			}
			arrival.Seed = val
		}
		if arrival.Model == "" && arrival.Seed == 0 {
			return ArrivalConfig{}, fmt.Errorf("model field is required")
		}
		return arrival, nil
	}
}

func parseTracing(value interface{}, defaults TracingConfig) (TracingConfig, error) {
	if value == nil {
		return defaults, nil
	}
	entry, err := toStringKeyMap(value)
	if err != nil {
		return TracingConfig{}, err
	}

	tracing := defaults
	if raw, ok := lookupSetting(entry, "enabled"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("enabled: %w", err)
		}
		tracing.Enabled = val
	}
	if raw, ok := lookupSetting(entry, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("endpoint: %w", err)
		}
		tracing.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("protocol: %w", err)
		}
		if val != "" {
			tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
		}
	}
	if raw, ok := lookupSetting(entry, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("service_name: %w", err)
		}
		tracing.ServiceName = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("sample_rate: %w", err)
		}
		tracing.SampleRate = val
	}
	if raw, ok := lookupSetting(entry, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("insecure: %w", err)
		}
		tracing.Insecure = val
	}
	return tracing, nil
}
