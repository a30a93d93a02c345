package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// absent renders a missing optional value in the text format.
const absent = "-"

// Writer appends records to a log file. Each Append opens, writes one
// complete block, syncs and closes, so a crash never leaves a half-open file
// handle and the file is only ever extended.
type Writer struct {
	Path   string
	Format Format
}

func NewWriter(path string, format Format) *Writer {
	return &Writer{Path: path, Format: format}
}

// Append serializes rec and appends it to the log. Errors are returned as-is
// to the caller; nothing is retried here.
func (w *Writer) Append(rec Record) error {
	data, err := Encode(rec, w.Format)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(w.Path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	f, err := os.OpenFile(w.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("append log: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync log: %w", err)
	}
	return f.Close()
}

// Check verifies the log can be opened for appending, creating missing
// parent directories. It writes nothing.
func (w *Writer) Check() error {
	if err := os.MkdirAll(filepath.Dir(w.Path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(w.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	return f.Close()
}

// Encode renders rec as one block in the given format.
func Encode(rec Record, format Format) ([]byte, error) {
	switch format {
	case FormatJSONL:
		return encodeJSON(rec)
	case FormatText:
		return encodeText(rec), nil
	default:
		return nil, fmt.Errorf("unknown format %d", format)
	}
}

func encodeJSON(rec Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil // Encode terminates with '\n'
}

func encodeText(rec Record) []byte {
	lines := []string{
		"# Snapshot " + rec.EventTime.Format(time.RFC3339Nano),
		"- notebook_path: " + rec.NotebookPath,
		"- notebook_mtime: " + optTime(rec.NotebookMtime),
		"- cell_index: " + strconv.Itoa(rec.CellIndex),
		"- cell_id: " + rec.CellID,
	}
	if rec.RunID != "" {
		lines = append(lines, "- run_id: "+rec.RunID)
	}
	lines = append(lines,
		"- exec_count: "+optInt(rec.ExecutionCount),
		"- exec_start: "+optString(rec.ExecStart),
		"- exec_end: "+optString(rec.ExecEnd),
		"",
		"## Input:",
		rec.Input,
		"",
		"## Output:",
		rec.Output,
		"\n",
	)
	return []byte(strings.Join(lines, "\n"))
}

func optTime(t *time.Time) string {
	if t == nil {
		return absent
	}
	return t.Format(time.RFC3339Nano)
}

func optInt(n *int) string {
	if n == nil {
		return absent
	}
	return strconv.Itoa(*n)
}

func optString(s *string) string {
	if s == nil {
		return absent
	}
	return *s
}
