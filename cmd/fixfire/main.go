package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/torosent/fixfire/internal/config"
	"github.com/torosent/fixfire/internal/dashboard"
	"github.com/torosent/fixfire/internal/demux"
	"github.com/torosent/fixfire/internal/feeder"
	"github.com/torosent/fixfire/internal/fix"
	"github.com/torosent/fixfire/internal/metrics"
	"github.com/torosent/fixfire/internal/output"
	"github.com/torosent/fixfire/internal/runner"
	"github.com/torosent/fixfire/internal/session"
	"github.com/torosent/fixfire/internal/threshold"
	"github.com/torosent/fixfire/internal/tracing"
)

const (
	progressInterval = time.Second
	teardownTimeout  = 5 * time.Second
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}

	if cfg.PrintConfig {
		rendered, err := cfg.RenderYAML()
		if err != nil {
			return err
		}
		fmt.Fprint(os.Stdout, rendered)
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	templates, err := feeder.Load(cfg.Templates)
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	collector := metrics.NewCollector(len(templates))
	registry := demux.NewRegistry()

	sess := session.New(session.Options{
		Address:          cfg.Address,
		Transport:        string(cfg.Transport),
		BeginString:      cfg.BeginString,
		SenderCompID:     cfg.SenderCompID,
		TargetCompID:     cfg.TargetCompID,
		Username:         cfg.Username,
		Password:         cfg.Password,
		HeartBtInt:       cfg.HeartbeatInterval,
		DialTimeout:      cfg.ConnectTimeout,
		WriteTimeout:     cfg.WriteTimeout,
		HandshakeTimeout: cfg.HandshakeTimeout,
		Logger:           logger,
	})

	tracer, err := tracing.Init(context.Background(), cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), teardownTimeout)
		defer cancelShutdown()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Debug().Err(err).Msg("tracer shutdown failed")
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := sess.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancelDisconnect := context.WithTimeout(context.Background(), teardownTimeout)
		defer cancelDisconnect()
		_ = sess.Disconnect(disconnectCtx)
	}()

	reader := demux.NewReader(demux.ReaderOptions{
		Source:         sess,
		Registry:       registry,
		CorrelationTag: cfg.CorrelationTag,
		Observer:       newSessionObserver(sess, logger),
		Logger:         logger,
	})
	readerDone := make(chan error, 1)
	go func() { readerDone <- reader.Run(ctx) }()

	injector := runner.New(runner.Options{
		Templates:       templates,
		Sender:          sess,
		Registry:        registry,
		Collector:       collector,
		Rate:            cfg.Rate,
		BatchSize:       cfg.BatchSize,
		MaxConcurrent:   cfg.MaxConcurrent,
		ResponseTimeout: cfg.ResponseTimeout,
		CorrelationTag:  cfg.CorrelationTag,
		ArrivalModel:    toRunnerArrivalModel(cfg.Arrival.Model),
		RatePatterns:    toRunnerRatePatterns(cfg.RatePatterns),
		RandomSeed:      cfg.Arrival.Seed,
		Tracer:          tracer,
		Logger:          logger,
	})

	var dash *dashboard.Dashboard
	if cfg.Dashboard {
		dash, err = dashboard.New(collector, dashboard.SessionConfig{
			Address:         cfg.Address,
			Transport:       string(cfg.Transport),
			SenderCompID:    cfg.SenderCompID,
			TargetCompID:    cfg.TargetCompID,
			BeginString:     cfg.BeginString,
			Rate:            cfg.Rate,
			BatchSize:       cfg.BatchSize,
			MaxConcurrent:   cfg.MaxConcurrent,
			Total:           len(templates),
			ResponseTimeout: cfg.ResponseTimeout,
			ConfigFile:      cfg.ConfigFile,
		}, cancel)
		if err != nil {
			return err
		}
		dash.Start()
	}

	var progress *output.ProgressReporter
	if cfg.Progress && !cfg.JSONOutput && !cfg.Dashboard {
		progress = output.NewProgressReporter(collector, progressInterval, os.Stderr)
		progress.Start()
	}

	// Mark the actual start time in the collector so throughput math covers
	// only the injection window, not the connect handshake.
	collector.Start()
	result := injector.Run(ctx)
	stats := collector.Stats(result.Duration)

	// Tear the UI and session down before printing so the report lands on a
	// normal terminal.
	cancel()
	if dash != nil {
		dash.Stop()
	}
	if progress != nil {
		progress.Stop()
		fmt.Fprintln(os.Stderr)
	}

	disconnectCtx, cancelDisconnect := context.WithTimeout(context.Background(), teardownTimeout)
	_ = sess.Disconnect(disconnectCtx)
	cancelDisconnect()

	// The reader exits once the connection closes.
	select {
	case <-readerDone:
	case <-time.After(teardownTimeout):
		logger.Debug().Msg("reader did not exit in time")
	}

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, stats); err != nil {
			return err
		}
	} else {
		output.PrintReport(os.Stdout, stats)
	}

	if cfg.CSVOutput != "" {
		if err := output.WriteCSV(cfg.CSVOutput, collector.Records()); err != nil {
			return fmt.Errorf("write csv results: %w", err)
		}
	}
	if cfg.JSONResults != "" {
		if err := output.WriteJSONResults(cfg.JSONResults, collector.Records()); err != nil {
			return fmt.Errorf("write json results: %w", err)
		}
	}

	if len(cfg.Thresholds) > 0 {
		breached, err := evaluateThresholds(cfg, stats)
		if err != nil {
			return err
		}
		if breached > 0 {
			return fmt.Errorf("%d of %d thresholds breached", breached, len(cfg.Thresholds))
		}
	}

	if result.Errors > 0 {
		return fmt.Errorf("%d messages failed", result.Errors)
	}
	return nil
}

// evaluateThresholds prints one line per threshold and returns how many were
// breached. With --json-output the lines go to stderr so stdout stays
// machine-readable.
func evaluateThresholds(cfg *config.Config, stats metrics.Stats) (int, error) {
	parsed, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return 0, err
	}

	out := os.Stdout
	if cfg.JSONOutput {
		out = os.Stderr
	}

	results := threshold.NewEvaluator(parsed).Evaluate(stats)
	breached := 0
	fmt.Fprintln(out, "\nThresholds:")
	for _, res := range results {
		fmt.Fprintf(out, "  %s\n", res.Message)
		if !res.Pass {
			breached++
		}
	}
	return breached, nil
}

// newSessionObserver handles session-level frames the demultiplexer could not
// correlate. Answering TestRequest keeps long idle stretches from tripping
// the counterparty's liveness probe; everything else is logged and dropped.
func newSessionObserver(sender runner.Sender, logger zerolog.Logger) func(*fix.Message) {
	log := logger.With().Str("component", "keepalive").Logger()
	return func(msg *fix.Message) {
		switch msg.MsgType() {
		case fix.MsgTypeTestRequest:
			hb := fix.NewMessage(fix.MsgTypeHeartbeat)
			if id, ok := msg.Get(fix.TagTestReqID); ok && id != "" {
				hb.Set(fix.TagTestReqID, id)
			}
			if _, err := sender.Send(context.Background(), hb); err != nil {
				log.Debug().Err(err).Msg("test request reply failed")
			}
		case fix.MsgTypeHeartbeat, fix.MsgTypeLogon:
			// Expected session chatter.
		case fix.MsgTypeLogout:
			log.Info().Str("text", textField(msg)).Msg("counterparty logout")
		case fix.MsgTypeReject:
			log.Warn().Str("text", textField(msg)).Msg("session-level reject")
		default:
			log.Debug().Str("msg_type", msg.MsgType()).Msg("dropping unmatched frame")
		}
	}
}

func textField(msg *fix.Message) string {
	text, _ := msg.Get(fix.TagText)
	return text
}

// newLogger builds the process logger. The dashboard owns the terminal, so
// dashboard runs log nothing; --log-errors lowers the level so per-message
// failures from the injector become visible.
func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.Dashboard {
		return zerolog.Nop()
	}
	level := zerolog.WarnLevel
	if cfg.LogErrors {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(writer).With().Timestamp().Logger().Level(level)
}

func toRunnerArrivalModel(model config.ArrivalModel) runner.ArrivalModel {
	switch strings.ToLower(string(model)) {
	case string(config.ArrivalModelPoisson):
		return runner.ArrivalModelPoisson
	default:
		return runner.ArrivalModelUniform
	}
}

func toRunnerRatePatterns(patterns []config.RatePattern) []runner.RatePattern {
	if len(patterns) == 0 {
		return nil
	}
	result := make([]runner.RatePattern, len(patterns))
	for i, p := range patterns {
		result[i] = runner.RatePattern{
			Type:     runner.RatePatternType(strings.ToLower(string(p.Type))),
			FromRate: p.FromRate,
			ToRate:   p.ToRate,
			Duration: p.Duration,
			Steps:    toRunnerRateSteps(p.Steps),
			Rate:     p.Rate,
		}
	}
	return result
}

func toRunnerRateSteps(steps []config.RateStep) []runner.RateStep {
	if len(steps) == 0 {
		return nil
	}
	result := make([]runner.RateStep, len(steps))
	for i, s := range steps {
		result[i] = runner.RateStep{
			Rate:     s.Rate,
			Duration: s.Duration,
		}
	}
	return result
}
