package output

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/torosent/fixfire/internal/metrics"
)

func sampleRecords(t *testing.T) []metrics.Record {
	t.Helper()

	collector := metrics.NewCollector(3)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	collector.Record(metrics.Record{
		Index:        0,
		SeqNum:       2,
		Key:          "ORD-1",
		SentText:     "35=D|11=ORD-1",
		SubmittedAt:  base,
		ResponseText: "35=8|11=ORD-1",
		ResponseType: "8",
		ReceivedAt:   base.Add(25 * time.Millisecond),
		Latency:      25 * time.Millisecond,
	})
	collector.Record(metrics.Record{
		Index:       1,
		SeqNum:      3,
		Key:         "ORD-2",
		SentText:    "35=D|11=ORD-2",
		SubmittedAt: base.Add(time.Millisecond),
		Err:         errors.New("response timeout"),
	})
	collector.Record(metrics.Record{
		Index:        2,
		SeqNum:       4,
		Key:          "ORD-3",
		SentText:     "35=D|11=ORD-3",
		SubmittedAt:  base.Add(2 * time.Millisecond),
		ResponseType: "8",
		ReceivedAt:   base.Add(40 * time.Millisecond),
		Latency:      38 * time.Millisecond,
	})
	return collector.Records()
}

func TestWriteCSV(t *testing.T) {
	records := sampleRecords(t)
	path := filepath.Join(t.TempDir(), "records.csv")

	if err := WriteCSV(path, records); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("row count = %d, want header + 3 records", len(rows))
	}
	if rows[0][0] != "index" || rows[0][2] != "key" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][2] != "ORD-1" || rows[1][4] != "true" {
		t.Errorf("first row = %v", rows[1])
	}
	if rows[2][2] != "ORD-2" || rows[2][4] != "false" {
		t.Errorf("second row = %v", rows[2])
	}
	if rows[2][8] == "" {
		t.Errorf("failed row should carry error kind, got %v", rows[2])
	}
	if rows[2][7] != "" {
		t.Errorf("timed-out row should have empty received_at, got %q", rows[2][7])
	}
}

func TestWriteCSVEmptyRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := WriteCSV(path, nil); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("row count = %d, want header only", len(rows))
	}
}

func TestWriteJSONResults(t *testing.T) {
	records := sampleRecords(t)
	path := filepath.Join(t.TempDir(), "records.json")

	if err := WriteJSONResults(path, records); err != nil {
		t.Fatalf("WriteJSONResults() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	var decoded []metrics.Record
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(decoded) != 3 {
		t.Fatalf("decoded %d records, want 3", len(decoded))
	}
	if decoded[0].Key != "ORD-1" || decoded[0].SentText != "35=D|11=ORD-1" {
		t.Errorf("first record = %+v", decoded[0])
	}
	if decoded[1].Success || decoded[1].Error == "" {
		t.Errorf("failed record = %+v", decoded[1])
	}
}

func TestWriteLockedLeavesSidecar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := WriteJSONResults(path, nil); err != nil {
		t.Fatalf("WriteJSONResults() error = %v", err)
	}
	if _, err := os.Stat(path + ".lock"); err != nil {
		t.Errorf("expected sidecar lock file: %v", err)
	}
}
