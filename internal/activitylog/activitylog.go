package activitylog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Action is what happened.
type Action string

const (
	ActionScan   Action = "scan"
	ActionCommit Action = "commit"
	ActionEdit   Action = "edit"
	ActionExport Action = "export"
)

// Entry is one row of activity-log.csv.
type Entry struct {
	Timestamp time.Time
	Action    Action
	ReceiptID string
	Count     int
	Details   string
}

// Header is the CSV header of activity-log.csv.
const Header = "timestamp,action,receipt_id,count,details"

// RelPath is the log location inside a project directory.
const RelPath = "logs/activity-log.csv"

const (
	numFields    = 5
	colTimestamp = 0
	colAction    = 1
	colReceiptID = 2
	colCount     = 3
	colDetails   = 4
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colAction] = string(e.Action)
	row[colReceiptID] = e.ReceiptID
	row[colCount] = strconv.Itoa(e.Count)
	row[colDetails] = e.Details
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	count, err := strconv.Atoi(record[colCount])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing count %q: %w", record[colCount], err)
	}

	return Entry{
		Timestamp: ts,
		Action:    Action(record[colAction]),
		ReceiptID: record[colReceiptID],
		Count:     count,
		Details:   record[colDetails],
	}, nil
}

// Append writes entries to <projectDir>/logs/activity-log.csv, creating the
// file and header if needed.
func Append(projectDir string, entries ...Entry) error {
	path := filepath.Join(projectDir, RelPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening activity log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns every entry in <projectDir>/logs/activity-log.csv, oldest
// first. A missing file yields no entries.
func Read(projectDir string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(projectDir, RelPath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening activity log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading activity log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	entries := make([]Entry, 0, len(records)-1)
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Recorder appends entries for one project and stamps them with now.
// A nil *Recorder discards everything.
type Recorder struct {
	dir string
	now func() time.Time
}

// NewRecorder returns a Recorder writing under projectDir.
func NewRecorder(projectDir string, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{dir: projectDir, now: now}
}

// Record appends one entry.
func (r *Recorder) Record(action Action, receiptID string, count int, details string) error {
	if r == nil {
		return nil
	}
	return Append(r.dir, Entry{
		Timestamp: r.now(),
		Action:    action,
		ReceiptID: receiptID,
		Count:     count,
		Details:   details,
	})
}
