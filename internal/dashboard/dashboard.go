package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/fixfire/internal/fix"
	"github.com/torosent/fixfire/internal/metrics"
)

// SessionConfig holds injection run parameters for display.
type SessionConfig struct {
	Address         string        // Counterparty address
	Transport       string        // tcp or websocket
	SenderCompID    string        // Our CompID (tag 49)
	TargetCompID    string        // Counterparty CompID (tag 56)
	BeginString     string        // Protocol version (tag 8)
	Rate            int           // Messages per second (0 = unlimited)
	BatchSize       int           // Messages per pacing interval
	MaxConcurrent   int           // Messages awaiting responses at once
	Total           int           // Templates queued for injection
	ResponseTimeout time.Duration // Per-message response wait
	ConfigFile      string        // Path to config file if used
}

// Dashboard renders a live terminal UI for injection metrics.
type Dashboard struct {
	collector    *metrics.Collector
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	// Widgets
	grid           *ui.Grid
	latencySparkle *widgets.SparklineGroup
	latencyPara    *widgets.Paragraph
	mpsGauge       *widgets.Gauge
	errorList      *widgets.List
	responseList   *widgets.List
	summaryPara    *widgets.Paragraph
	metricsPara    *widgets.Paragraph
	latencyHistory []float64
	startTime      time.Time
	runDuration    time.Duration
	sessionConfig  SessionConfig
}

// New creates a new Dashboard.
func New(collector *metrics.Collector, cfg SessionConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		collector:      collector,
		ctx:            ctx,
		cancel:         cancel,
		shutdownFunc:   shutdownFunc,
		latencyHistory: make([]float64, 0, 100),
		startTime:      time.Now(),
		sessionConfig:  cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

// initWidgets initializes all dashboard widgets.
func (d *Dashboard) initWidgets() {
	// Latency Sparkline
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Latency (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.latencySparkle = widgets.NewSparklineGroup(sparkline)
	d.latencySparkle.Title = "Real-time Latency"
	d.latencySparkle.BorderStyle.Fg = ui.ColorCyan

	// Latency Metrics Paragraph
	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency Stats"
	d.latencyPara.Text = "Min: 0ms\nMean: 0ms\nP50: 0ms\nP90: 0ms\nP99: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	// Messages Per Second Gauge
	d.mpsGauge = widgets.NewGauge()
	d.mpsGauge.Title = "Messages Per Second"
	d.mpsGauge.Percent = 0
	d.mpsGauge.BarColor = ui.ColorBlue
	d.mpsGauge.BorderStyle.Fg = ui.ColorCyan
	d.mpsGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	// Error Breakdown List
	d.errorList = widgets.NewList()
	d.errorList.Title = "Errors"
	d.errorList.Rows = []string{"No failures"}
	d.errorList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.errorList.BorderStyle.Fg = ui.ColorCyan

	// Response Type List
	d.responseList = widgets.NewList()
	d.responseList.Title = "Responses by Type"
	d.responseList.Rows = []string{"Awaiting data"}
	d.responseList.TextStyle = ui.NewStyle(ui.ColorCyan)
	d.responseList.BorderStyle.Fg = ui.ColorCyan

	// Summary Paragraph
	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Session"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	// Metrics Paragraph (plain text summary)
	d.metricsPara = widgets.NewParagraph()
	d.metricsPara.Title = "Metrics"
	d.metricsPara.Text = "Waiting for data..."
	d.metricsPara.BorderStyle.Fg = ui.ColorCyan
}

// setupGrid configures the layout grid.
func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.16,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.20,
			ui.NewCol(0.5, d.mpsGauge),
			ui.NewCol(0.5, d.metricsPara),
		),
		ui.NewRow(0.32,
			ui.NewCol(0.65, d.latencySparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.32,
			ui.NewCol(0.5, d.responseList),
			ui.NewCol(0.5, d.errorList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and cleans up.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	d.runDuration = time.Since(d.startTime)
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

// GetFinalStats returns the final statistics after the dashboard has stopped.
func (d *Dashboard) GetFinalStats() metrics.Stats {
	return d.collector.Stats(d.runDuration)
}

// run is the main dashboard update loop.
func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			// Drain any remaining events
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			// Check if context is done to avoid blocking
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Do not return here; wait for Stop() to cancel context
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

// update refreshes all widget data from the collector.
func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	elapsed := time.Since(d.startTime)
	stats := d.collector.Stats(elapsed)

	// Update latency history for sparkline
	if stats.MeanLatency > 0 {
		latencyMs := stats.MeanLatencyMs
		d.latencyHistory = append(d.latencyHistory, latencyMs)
		if len(d.latencyHistory) > 100 {
			d.latencyHistory = d.latencyHistory[1:]
		}
		d.latencySparkle.Sparklines[0].Data = d.latencyHistory
		// Update sparkline title with current latency values
		d.latencySparkle.Title = fmt.Sprintf(
			"Real-time Latency | Current: %.2fms | Min: %.2fms | Max: %.2fms",
			latencyMs,
			stats.MinLatencyMs,
			stats.MaxLatencyMs,
		)
	}

	currentMPS := stats.MessagesPerSec
	maxMPS := 100.0
	if currentMPS > maxMPS {
		maxMPS = currentMPS
	}
	mpsPercent := int((currentMPS / maxMPS) * 100)
	if mpsPercent > 100 {
		mpsPercent = 100
	}
	d.mpsGauge.Percent = mpsPercent
	d.mpsGauge.Label = fmt.Sprintf("%.1f msg/s", currentMPS)

	successRate := 0.0
	if stats.Total > 0 {
		successRate = (float64(stats.Successes) / float64(stats.Total)) * 100
	}

	// Build session parameters line
	params := d.formatSessionParams()

	d.summaryPara.Text = fmt.Sprintf(
		"Session: %s -> %s | Target: %s\n%s\nElapsed: %s | Sent: %d | Success Rate: %.1f%%",
		d.sessionConfig.SenderCompID,
		d.sessionConfig.TargetCompID,
		d.sessionConfig.Address,
		params,
		elapsed.Round(time.Second),
		stats.Total,
		successRate,
	)

	d.metricsPara.Text = fmt.Sprintf(
		"Messages Sent:     %d\nConfirmed:         %d\nFailed:            %d\nCurrent Rate:      %.2f msg/s\nSuccess Rate:      %.1f%%\nMin Latency:       %.2fms\nMean Latency:      %.2fms\nP50/P90/P99:       %.2f / %.2f / %.2f ms",
		stats.Total,
		stats.Successes,
		stats.Failures,
		currentMPS,
		successRate,
		stats.MinLatencyMs,
		stats.MeanLatencyMs,
		stats.P50LatencyMs,
		stats.P90LatencyMs,
		stats.P99LatencyMs,
	)

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %.2fms\nMean: %.2fms\nP50:  %.2fms\nP90:  %.2fms\nP99:  %.2fms",
		stats.MinLatencyMs,
		stats.MeanLatencyMs,
		stats.P50LatencyMs,
		stats.P90LatencyMs,
		stats.P99LatencyMs,
	)

	d.errorList.Rows = formatErrorListRows(stats.Errors)
	d.responseList.Rows = formatResponseListRows(stats.Responses)
}

// render draws all widgets to the screen.
func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func formatErrorListRows(errCounts map[string]int) []string {
	if len(errCounts) == 0 {
		return []string{"[No failures](fg:green)"}
	}
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
	if len(kinds) > 10 {
		kinds = kinds[:10]
	}
	formatted := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		formatted = append(formatted, fmt.Sprintf("[%s](fg:red) %d", metrics.FriendlyErrorName(kind), errCounts[kind]))
	}
	return formatted
}

func formatResponseListRows(buckets map[string]int) []string {
	rows := metrics.FlattenTypeBuckets(buckets)
	if len(rows) == 0 {
		return []string{"[Awaiting responses](fg:green)"}
	}
	formatted := make([]string, 0, len(rows))
	for _, row := range rows {
		label := row.MsgType
		if name := fix.MsgTypeName(row.MsgType); name != "" {
			label = fmt.Sprintf("%s %s", row.MsgType, name)
		}
		formatted = append(formatted, fmt.Sprintf("[%s](fg:cyan) %d", label, row.Count))
	}
	return formatted
}

// formatSessionParams formats the injection run parameters for display.
func (d *Dashboard) formatSessionParams() string {
	var parts []string

	// Transport (only show if non-default)
	if d.sessionConfig.Transport != "" && d.sessionConfig.Transport != "tcp" {
		parts = append(parts, fmt.Sprintf("Transport: %s", d.sessionConfig.Transport))
	}

	if d.sessionConfig.BeginString != "" {
		parts = append(parts, d.sessionConfig.BeginString)
	}

	// Rate
	if d.sessionConfig.Rate > 0 {
		parts = append(parts, fmt.Sprintf("Rate: %d/s", d.sessionConfig.Rate))
	} else {
		parts = append(parts, "Rate: unlimited")
	}

	if d.sessionConfig.BatchSize > 0 {
		parts = append(parts, fmt.Sprintf("Batch: %d", d.sessionConfig.BatchSize))
	}

	if d.sessionConfig.MaxConcurrent > 0 {
		parts = append(parts, fmt.Sprintf("In flight: %d", d.sessionConfig.MaxConcurrent))
	}

	// Templates queued
	if d.sessionConfig.Total > 0 {
		parts = append(parts, fmt.Sprintf("Templates: %d", d.sessionConfig.Total))
	}

	if d.sessionConfig.ResponseTimeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", d.sessionConfig.ResponseTimeout))
	}

	// Config file (only show if used)
	if d.sessionConfig.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", d.sessionConfig.ConfigFile))
	}

	if len(parts) == 0 {
		return ""
	}

	return strings.Join(parts, " | ")
}
