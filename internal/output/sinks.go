package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gofrs/flock"

	"github.com/torosent/fixfire/internal/metrics"
)

// csvHeader is the column layout of WriteCSV, one row per message in
// submission order. Raw message text stays out of the CSV; the JSON sink
// carries it.
var csvHeader = []string{
	"index", "seq_num", "key", "response_type", "success",
	"latency_ms", "submitted_at", "received_at", "error_kind", "error",
}

// WriteCSV writes per-message records to path as CSV.
func WriteCSV(path string, records []metrics.Record) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for i := range records {
		if err := w.Write(csvRow(&records[i])); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return writeLocked(path, buf.Bytes())
}

// WriteJSONResults writes per-message records to path as a JSON array.
func WriteJSONResults(path string, records []metrics.Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return writeLocked(path, data)
}

// writeLocked holds a sidecar lock while replacing path, so concurrent
// runs pointed at the same file cannot interleave their writes.
func writeLocked(path string, data []byte) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", lock.Path(), err)
	}
	defer lock.Unlock()
	return os.WriteFile(path, data, 0644)
}

func csvRow(rec *metrics.Record) []string {
	return []string{
		strconv.Itoa(rec.Index),
		strconv.Itoa(rec.SeqNum),
		rec.Key,
		rec.ResponseType,
		strconv.FormatBool(rec.Success),
		strconv.FormatFloat(rec.LatencyMs, 'f', 3, 64),
		formatTimestamp(rec.SubmittedAt),
		formatTimestamp(rec.ReceivedAt),
		rec.ErrKind,
		rec.Error,
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
