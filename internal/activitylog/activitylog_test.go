package activitylog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp: testTime,
		Action:    ActionScan,
		ReceiptID: "1704450600000",
		Count:     1,
		Details:   "IMG_0001.jpg",
	}
}

func TestAppend_NewFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, testEntry()))

	raw, err := os.ReadFile(filepath.Join(dir, RelPath))
	require.NoError(t, err)
	assert.Equal(t, Header+"\n2024-01-05T10:30:00Z,scan,1704450600000,1,IMG_0001.jpg\n", string(raw))
}

func TestAppend_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, testEntry()))

	e2 := testEntry()
	e2.Action = ActionCommit
	e2.ReceiptID = ""
	e2.Count = 3
	e2.Details = "atomic"
	require.NoError(t, Append(dir, e2))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionScan, entries[0].Action)
	assert.Equal(t, ActionCommit, entries[1].Action)
	assert.Equal(t, 3, entries[1].Count)
}

func TestRead_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := testEntry()
	original.Details = `store "A, B"`
	require.NoError(t, Append(dir, original))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, original.Timestamp.Equal(entries[0].Timestamp))
	entries[0].Timestamp = original.Timestamp
	assert.Equal(t, original, entries[0])
}

func TestRead_NotFound(t *testing.T) {
	entries, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestRead_HeaderOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, RelPath), []byte(Header+"\n"), 0o644))

	entries, err := Read(dir)
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestRead_BadRow(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs"), 0o755))
	body := Header + "\nyesterday,scan,1,1,\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, RelPath), []byte(body), 0o644))

	_, err := Read(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestUnmarshalEntry_BadFieldCount(t *testing.T) {
	_, err := UnmarshalEntry([]string{"one", "two"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 5 fields")
}

func TestRecorder(t *testing.T) {
	dir := t.TempDir()
	rec := NewRecorder(dir, func() time.Time { return testTime })
	require.NoError(t, rec.Record(ActionExport, "", 12, "csv"))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, Entry{Timestamp: testTime, Action: ActionExport, Count: 12, Details: "csv"}, entries[0])
}

func TestRecorder_Nil(t *testing.T) {
	var rec *Recorder
	assert.NoError(t, rec.Record(ActionEdit, "1", 1, ""))
}
