package record

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	headerPrefix = "# Snapshot "
	pathPrefix   = "- notebook_path: "
	inputMarker  = "## Input:"
	outputMarker = "## Output:"
)

// DetectFormat guesses a log's format from its extension, falling back to
// the first non-blank byte ('{' means jsonl). Empty files are text.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".json", ".ndjson":
		return FormatJSONL, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return FormatText, err
	}
	defer f.Close()

	head := make([]byte, 4096)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return FormatText, err
	}
	trimmed := bytes.TrimLeft(head[:n], " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSONL, nil
	}
	return FormatText, nil
}

// ReadLog detects the format of the log at path and decodes every record.
func ReadLog(path string) (Format, []Entry, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return format, nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return format, nil, err
	}
	defer f.Close()

	entries, err := Decode(f, format)
	return format, entries, err
}

// Decode reads all records from r. Lines or blocks that do not parse are
// skipped.
func Decode(r io.Reader, format Format) ([]Entry, error) {
	if format == FormatJSONL {
		return decodeJSONL(r)
	}
	return decodeText(r)
}

// eachLine calls fn with every line of r, without its terminator. Line
// length is unbounded.
func eachLine(r io.Reader, fn func(line []byte)) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			line = bytes.TrimSuffix(line, []byte("\n"))
			fn(bytes.TrimSuffix(line, []byte("\r")))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func decodeJSONL(r io.Reader) ([]Entry, error) {
	var entries []Entry
	lineNum := 0
	err := eachLine(r, func(line []byte) {
		lineNum++
		if len(bytes.TrimSpace(line)) == 0 {
			return
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return
		}
		entries = append(entries, Entry{Record: rec, Line: lineNum})
	})
	return entries, err
}

func decodeText(r io.Reader) ([]Entry, error) {
	var lines []string
	if err := eachLine(r, func(line []byte) {
		lines = append(lines, string(line))
	}); err != nil {
		return nil, err
	}

	var starts []int
	for i := range lines {
		if strings.HasPrefix(lines[i], headerPrefix) && i+1 < len(lines) && strings.HasPrefix(lines[i+1], pathPrefix) {
			starts = append(starts, i)
		}
	}

	var entries []Entry
	for k, start := range starts {
		end := len(lines)
		if k+1 < len(starts) {
			end = starts[k+1]
		}
		rec, ok := parseBlock(lines[start:end])
		if !ok {
			continue
		}
		entries = append(entries, Entry{Record: rec, Line: start + 1})
	}
	return entries, nil
}

func parseBlock(block []string) (Record, bool) {
	var rec Record
	rec.EventTime, _ = time.Parse(time.RFC3339Nano, strings.TrimPrefix(block[0], headerPrefix))

	i := 1
	for ; i < len(block) && block[i] != ""; i++ {
		rest, ok := strings.CutPrefix(block[i], "- ")
		if !ok {
			return rec, false
		}
		key, val, _ := strings.Cut(rest, ":")
		setField(&rec, key, strings.TrimPrefix(val, " "))
	}

	for i < len(block) && block[i] == "" {
		i++
	}
	if i >= len(block) || block[i] != inputMarker {
		return rec, false
	}
	i++

	out := -1
	for j := i; j < len(block); j++ {
		if block[j] == outputMarker && j > i && block[j-1] == "" {
			out = j
			break
		}
	}
	if out < 0 {
		return rec, false
	}

	rec.Input = strings.TrimSpace(strings.Join(block[i:out-1], "\n"))
	rec.Output = strings.TrimSpace(strings.Join(block[out+1:], "\n"))
	return rec, true
}

func setField(rec *Record, key, val string) {
	switch key {
	case "notebook_path":
		rec.NotebookPath = val
	case "notebook_mtime":
		if t, err := time.Parse(time.RFC3339Nano, val); err == nil {
			rec.NotebookMtime = &t
		}
	case "cell_index":
		rec.CellIndex, _ = strconv.Atoi(val)
	case "cell_id":
		rec.CellID = val
	case "run_id":
		rec.RunID = val
	case "exec_count":
		if n, err := strconv.Atoi(val); err == nil {
			rec.ExecutionCount = &n
		}
	case "exec_start":
		if val != absent {
			rec.ExecStart = &val
		}
	case "exec_end":
		if val != absent {
			rec.ExecEnd = &val
		}
	}
}
