package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fixfire",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Connection flags
	flags.StringP("address", "a", "", "Counterparty address (host:port, or ws[s]:// URL for websocket)")
	flags.String("transport", string(TransportTCP), "Transport: 'tcp' or 'websocket'")

	// Session flags
	flags.String("begin-string", "FIX.4.4", "Protocol version stamped into tag 8")
	flags.String("sender-comp-id", "", "Our CompID (tag 49)")
	flags.String("target-comp-id", "", "Counterparty CompID (tag 56)")
	flags.String("username", "", "Logon username (tag 553)")
	flags.String("password", "", "Logon password (tag 554); prefer FIXFIRE_PASSWORD")
	flags.Duration("heartbeat", 30*time.Second, "Heartbeat interval declared at logon (tag 108)")

	// Timeout flags
	flags.Duration("connect-timeout", 10*time.Second, "Dial timeout")
	flags.Duration("write-timeout", 5*time.Second, "Per-send write deadline")
	flags.Duration("handshake-timeout", 30*time.Second, "WebSocket handshake timeout")
	flags.Duration("response-timeout", 5*time.Second, "How long each message waits for its response")

	// Input flags
	flags.StringP("templates", "t", "", "Path to the message template file (text or JSON)")

	// Injection shape flags
	flags.IntP("rate", "r", 0, "Messages per second limit (0 means unlimited)")
	flags.IntP("batch-size", "b", 10, "Messages dispatched per pacing interval")
	flags.IntP("max-concurrent", "c", 1, "Max messages awaiting responses at once")
	flags.Int("correlation-tag", DefaultCorrelationTag, "Tag that carries the correlation key")
	flags.String("arrival-model", string(ArrivalModelUniform), "Arrival model to use when pacing batches (uniform or poisson)")
	flags.Int64("seed", 0, "Poisson sampler seed (0 means time-based)")

	// Output flags
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.Bool("dashboard", false, "Show live terminal dashboard with metrics")
	flags.Bool("progress", false, "Print a one-line progress ticker to stderr")
	flags.Bool("log-errors", false, "Log each failed message to stderr")
	flags.String("csv-output", "", "Write per-message records as CSV to the given path")
	flags.String("json-results", "", "Write per-message records as JSON to the given path")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")
	flags.Bool("print-config", false, "Print the effective configuration as YAML and exit")

	// Threshold flags
	flags.StringSlice("threshold", nil, "Pass/fail thresholds (repeatable, e.g. 'fix_msg_latency:p99 < 250')")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config,
// overriding values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("address") {
		val, err := fs.GetString("address")
		if err != nil {
			return err
		}
		cfg.Address = strings.TrimSpace(val)
	}
	if fs.Changed("transport") {
		val, err := fs.GetString("transport")
		if err != nil {
			return err
		}
		cfg.Transport = Transport(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("begin-string") {
		val, err := fs.GetString("begin-string")
		if err != nil {
			return err
		}
		cfg.BeginString = strings.TrimSpace(val)
	}
	if fs.Changed("sender-comp-id") {
		val, err := fs.GetString("sender-comp-id")
		if err != nil {
			return err
		}
		cfg.SenderCompID = strings.TrimSpace(val)
	}
	if fs.Changed("target-comp-id") {
		val, err := fs.GetString("target-comp-id")
		if err != nil {
			return err
		}
		cfg.TargetCompID = strings.TrimSpace(val)
	}
	if fs.Changed("username") {
		val, err := fs.GetString("username")
		if err != nil {
			return err
		}
		cfg.Username = strings.TrimSpace(val)
	}
	if fs.Changed("password") {
		val, err := fs.GetString("password")
		if err != nil {
			return err
		}
		cfg.Password = val
	}
	if fs.Changed("heartbeat") {
		val, err := fs.GetDuration("heartbeat")
		if err != nil {
			return err
		}
		cfg.HeartbeatInterval = val
	}
	if fs.Changed("connect-timeout") {
		val, err := fs.GetDuration("connect-timeout")
		if err != nil {
			return err
		}
		cfg.ConnectTimeout = val
	}
	if fs.Changed("write-timeout") {
		val, err := fs.GetDuration("write-timeout")
		if err != nil {
			return err
		}
		cfg.WriteTimeout = val
	}
	if fs.Changed("handshake-timeout") {
		val, err := fs.GetDuration("handshake-timeout")
		if err != nil {
			return err
		}
		cfg.HandshakeTimeout = val
	}
	if fs.Changed("response-timeout") {
		val, err := fs.GetDuration("response-timeout")
		if err != nil {
			return err
		}
		cfg.ResponseTimeout = val
	}
	if fs.Changed("templates") {
		val, err := fs.GetString("templates")
		if err != nil {
			return err
		}
		cfg.Templates = strings.TrimSpace(val)
	}
	if fs.Changed("rate") {
		val, err := fs.GetInt("rate")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}
	if fs.Changed("batch-size") {
		val, err := fs.GetInt("batch-size")
		if err != nil {
			return err
		}
		cfg.BatchSize = val
	}
	if fs.Changed("max-concurrent") {
		val, err := fs.GetInt("max-concurrent")
		if err != nil {
			return err
		}
		cfg.MaxConcurrent = val
	}
	if fs.Changed("correlation-tag") {
		val, err := fs.GetInt("correlation-tag")
		if err != nil {
			return err
		}
		cfg.CorrelationTag = val
	}
	if fs.Changed("arrival-model") {
		val, err := fs.GetString("arrival-model")
		if err != nil {
			return err
		}
		cfg.Arrival.Model = ArrivalModel(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("seed") {
		val, err := fs.GetInt64("seed")
		if err != nil {
			return err
		}
		cfg.Arrival.Seed = val
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("progress") {
		val, err := fs.GetBool("progress")
		if err != nil {
			return err
		}
		cfg.Progress = val
	}
	if fs.Changed("log-errors") {
		val, err := fs.GetBool("log-errors")
		if err != nil {
			return err
		}
		cfg.LogErrors = val
	}
	if fs.Changed("csv-output") {
		val, err := fs.GetString("csv-output")
		if err != nil {
			return err
		}
		cfg.CSVOutput = strings.TrimSpace(val)
	}
	if fs.Changed("json-results") {
		val, err := fs.GetString("json-results")
		if err != nil {
			return err
		}
		cfg.JSONResults = strings.TrimSpace(val)
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}
	if fs.Changed("print-config") {
		val, err := fs.GetBool("print-config")
		if err != nil {
			return err
		}
		cfg.PrintConfig = val
	}

	return nil
}
