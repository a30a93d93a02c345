package index

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/nbtrack/internal/record"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "db", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func writeLog(t *testing.T, path string, format record.Format, recs ...record.Record) {
	t.Helper()
	w := record.NewWriter(path, format)
	for _, r := range recs {
		require.NoError(t, w.Append(r))
	}
}

func rec(cellID, input, output string) record.Record {
	n := 1
	return record.Record{
		EventTime:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		NotebookPath:   "/work/analysis.ipynb",
		CellIndex:      1,
		CellID:         cellID,
		ExecutionCount: &n,
		Input:          input,
		Output:         output,
		RunID:          "run-1",
	}
}

func TestIndexAllIncremental(t *testing.T) {
	db := openTestDB(t)
	root := t.TempDir()
	jsonl := filepath.Join(root, "a.jsonl")
	text := filepath.Join(root, "exp", "b_io.log")
	writeLog(t, jsonl, record.FormatJSONL, rec("c1", "import pandas", ""), rec("c2", "df.head()", "   a  b"))
	writeLog(t, text, record.FormatText, rec("c9", "print('hi')", "hi"))

	patterns := []string{"**/*_io.log", "**/*.jsonl"}
	stats, err := IndexAll(db, root, patterns)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Scanned)
	assert.Equal(t, 2, stats.Updated)
	assert.Equal(t, 3, stats.Records)

	n, err := db.RecordCount()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, db.FTSIntegrity())

	stats, err = IndexAll(db, root, patterns)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Skipped, "unchanged logs are skipped")
	assert.Equal(t, 0, stats.Updated)

	// append grows the file so its size changes
	writeLog(t, jsonl, record.FormatJSONL, rec("c1", "import pandas as pd", ""))
	stats, err = IndexAll(db, root, patterns)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)
	n, err = db.RecordCount()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestIndexAllPrunesDeletedLogs(t *testing.T) {
	db := openTestDB(t)
	root := t.TempDir()
	path := filepath.Join(root, "gone.jsonl")
	writeLog(t, path, record.FormatJSONL, rec("c1", "x = 1", ""))

	_, err := IndexAll(db, root, []string{"*.jsonl"})
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	stats, err := IndexAll(db, root, []string{"*.jsonl"})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pruned)
	n, err := db.LogCount()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIndexFilesKeepsExplicitLogs(t *testing.T) {
	db := openTestDB(t)
	outside := filepath.Join(t.TempDir(), "elsewhere_io.log")
	writeLog(t, outside, record.FormatText, rec("c1", "x = 1", ""))

	stats, err := IndexFiles(db, []string{outside})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)

	// a scan of an unrelated root must not prune a log that still exists
	stats, err = IndexAll(db, t.TempDir(), []string{"*.jsonl"})
	require.NoError(t, err)
	assert.Zero(t, stats.Pruned)

	_, err = IndexFiles(db, []string{filepath.Join(t.TempDir(), "missing.jsonl")})
	assert.Error(t, err)
}

func TestCellHistory(t *testing.T) {
	db := openTestDB(t)
	path := filepath.Join(t.TempDir(), "h.jsonl")
	first := rec("c1", "x = 1", "")
	second := rec("c1", "x = 2", "2")
	second.EventTime = first.EventTime.Add(time.Minute)
	second.ExecutionCount = nil
	writeLog(t, path, record.FormatJSONL, second, first, rec("other", "y", ""))

	_, err := IndexFiles(db, []string{path})
	require.NoError(t, err)

	hist, err := db.CellHistory("/work/analysis.ipynb", "c1")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "x = 1", hist[0].Input)
	require.NotNil(t, hist[0].ExecutionCount)
	assert.Equal(t, 1, *hist[0].ExecutionCount)
	assert.True(t, first.EventTime.Equal(hist[0].EventTime))
	assert.Equal(t, "x = 2", hist[1].Input)
	assert.Equal(t, "2", hist[1].Output)
	assert.Nil(t, hist[1].ExecutionCount)
	assert.Equal(t, path, hist[1].LogPath)
	assert.Equal(t, 0, hist[1].Seq)
	assert.Equal(t, 1, hist[1].Line)
}

func TestFTSIntegrityDetectsDrift(t *testing.T) {
	db := openTestDB(t)
	path := filepath.Join(t.TempDir(), "a.jsonl")
	writeLog(t, path, record.FormatJSONL, rec("c1", "x = 1", ""), rec("c2", "y = 2", "2"))
	_, err := IndexFiles(db, []string{path})
	require.NoError(t, err)
	require.NoError(t, db.FTSIntegrity())

	// an index entry with no record behind it leaves the row counts equal
	_, err = db.Raw().Exec("INSERT INTO records_fts(rowid, input, output) VALUES (999, 'ghost', 'row')")
	require.NoError(t, err)

	n, err := db.RecordCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Error(t, db.FTSIntegrity())
}

func TestSchemaVersionForcesReindex(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "v.db")
	logPath := filepath.Join(dir, "a.jsonl")
	writeLog(t, logPath, record.FormatJSONL, rec("c1", "x", ""))

	db, err := OpenDB(dbPath)
	require.NoError(t, err)
	_, err = IndexFiles(db, []string{logPath})
	require.NoError(t, err)
	_, err = db.Raw().Exec("UPDATE meta SET value = 'old' WHERE key = 'schema_version'")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = OpenDB(dbPath)
	require.NoError(t, err)
	defer db.Close()
	stats, err := IndexFiles(db, []string{logPath})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)
}
