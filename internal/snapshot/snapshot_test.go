package snapshot

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Zuo-Peng/nbtrack/internal/digest"
	"github.com/Zuo-Peng/nbtrack/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSink struct {
	records []record.Record
	failIDs map[string]bool
}

func (s *memSink) Append(rec record.Record) error {
	if s.failIDs[rec.CellID] {
		return errors.New("disk full")
	}
	s.records = append(s.records, rec)
	return nil
}

type testCell struct {
	ID      string
	Type    string
	Source  string
	Outputs []map[string]any
}

func writeNotebook(t *testing.T, path string, cells ...testCell) {
	t.Helper()
	var raw []map[string]any
	for _, c := range cells {
		typ := c.Type
		if typ == "" {
			typ = "code"
		}
		m := map[string]any{
			"cell_type": typ,
			"source":    c.Source,
			"metadata":  map[string]any{},
		}
		if c.ID != "" {
			m["id"] = c.ID
		}
		if typ == "code" {
			outs := c.Outputs
			if outs == nil {
				outs = []map[string]any{}
			}
			m["outputs"] = outs
			m["execution_count"] = nil
		}
		raw = append(raw, m)
	}
	data, err := json.Marshal(map[string]any{"cells": raw, "nbformat": 4, "nbformat_minor": 5})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func stream(text string) map[string]any {
	return map[string]any{"output_type": "stream", "name": "stdout", "text": []string{text}}
}

func newTestExtractor(sink Sink) (*Extractor, *digest.Store) {
	store := digest.NewStore()
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return New(store, sink, Options{RunID: "run-1", Now: func() time.Time { return fixed }}), store
}

func TestExtractIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nb.ipynb")
	writeNotebook(t, path,
		testCell{ID: "a", Source: "x=1"},
		testCell{ID: "md", Type: "markdown", Source: "# notes"},
		testCell{ID: "b", Source: "print(x)", Outputs: []map[string]any{stream("1\n")}},
	)

	sink := &memSink{}
	ext, store := newTestExtractor(sink)

	res, err := ext.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Appended)
	assert.Equal(t, 2, store.Len())
	require.Len(t, sink.records, 2)
	assert.Equal(t, "a", sink.records[0].CellID)
	assert.Equal(t, 1, sink.records[0].CellIndex)
	assert.Equal(t, "b", sink.records[1].CellID)
	assert.Equal(t, 3, sink.records[1].CellIndex)
	assert.Equal(t, "1", sink.records[1].Output)
	assert.Equal(t, "run-1", sink.records[1].RunID)
	assert.Equal(t, path, sink.records[0].NotebookPath)
	assert.NotNil(t, sink.records[0].NotebookMtime)

	res, err = ext.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Appended)
	assert.Equal(t, 2, res.Unchanged)
	assert.Len(t, sink.records, 2)
}

func TestExtractExactlyOncePerChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nb.ipynb")
	writeNotebook(t, path, testCell{ID: "a", Source: "x=1"}, testCell{ID: "b", Source: "y=2"})

	sink := &memSink{}
	ext, _ := newTestExtractor(sink)
	_, err := ext.Extract(path)
	require.NoError(t, err)
	require.Len(t, sink.records, 2)

	writeNotebook(t, path,
		testCell{ID: "a", Source: "x=1", Outputs: []map[string]any{stream("1")}},
		testCell{ID: "b", Source: "y=2"},
	)

	res, err := ext.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Appended)
	require.Len(t, sink.records, 3)
	assert.Equal(t, "a", sink.records[2].CellID)
	assert.Equal(t, "1", sink.records[2].Output)

	for i := 0; i < 3; i++ {
		res, err = ext.Extract(path)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Appended)
	}
	assert.Len(t, sink.records, 3)
}

func TestExtractTruncatedLeavesStoreUntouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nb.ipynb")
	writeNotebook(t, path, testCell{ID: "a", Source: "x=1"})

	sink := &memSink{}
	ext, store := newTestExtractor(sink)
	_, err := ext.Extract(path)
	require.NoError(t, err)
	before, _ := store.Get("a")

	// the pending change lands on disk as a partial write
	writeNotebook(t, path, testCell{ID: "a", Source: "x=1", Outputs: []map[string]any{stream("1")}})
	full, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, full[:len(full)/2], 0o644))

	res, err := ext.Extract(path)
	assert.ErrorIs(t, err, ErrUnreadable)
	assert.Equal(t, 0, res.Appended)
	after, _ := store.Get("a")
	assert.Equal(t, before, after)
	assert.Len(t, sink.records, 1)

	// the completed save still surfaces the pending change
	require.NoError(t, os.WriteFile(path, full, 0o644))
	res, err = ext.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Appended)
	assert.Equal(t, "1", sink.records[1].Output)
}

func TestExtractMissingFile(t *testing.T) {
	ext, store := newTestExtractor(&memSink{})
	_, err := ext.Extract(filepath.Join(t.TempDir(), "gone.ipynb"))
	assert.ErrorIs(t, err, ErrUnreadable)
	assert.Equal(t, 0, store.Len())
}

func TestExtractWriteFailureRetried(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nb.ipynb")
	writeNotebook(t, path,
		testCell{ID: "a", Source: "x=1"},
		testCell{ID: "b", Source: "y=2"},
		testCell{ID: "c", Source: "z=3"},
	)

	sink := &memSink{failIDs: map[string]bool{"b": true}}
	ext, store := newTestExtractor(sink)

	res, err := ext.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Appended)
	assert.Equal(t, 1, res.Failed)
	_, ok := store.Get("b")
	assert.False(t, ok, "failed cell must not be marked seen")
	_, ok = store.Get("c")
	assert.True(t, ok, "later cells still processed")

	sink.failIDs = nil
	res, err = ext.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Appended)
	assert.Equal(t, "b", sink.records[len(sink.records)-1].CellID)
}

func TestExtractWithRecordWriter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nb.ipynb")
	logPath := filepath.Join(dir, "logs", "nb_io.jsonl")
	writeNotebook(t, path, testCell{Source: "x=1"})

	ext, _ := newTestExtractor(record.NewWriter(logPath, record.FormatJSONL))
	res, err := ext.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Appended)

	_, entries, err := record.ReadLog(logPath)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "idx:0", entries[0].CellID)
	assert.Equal(t, "x=1", entries[0].Input)
}
