// Package record defines the lineage log entry and its two on-disk formats.
package record

import (
	"fmt"
	"strings"
	"time"
)

// Record is one observed cell state. The JSON keys are the contract that
// downstream readers of the log depend on.
type Record struct {
	EventTime      time.Time  `json:"event_time"`
	NotebookPath   string     `json:"notebook_path"`
	NotebookMtime  *time.Time `json:"notebook_mtime"`
	CellIndex      int        `json:"cell_index"`
	CellID         string     `json:"cell_id"`
	ExecutionCount *int       `json:"execution_count"`
	ExecStart      *string    `json:"exec_start"`
	ExecEnd        *string    `json:"exec_end"`
	Input          string     `json:"input"`
	Output         string     `json:"output"`
	RunID          string     `json:"run_id,omitempty"`
}

type Format int

const (
	FormatText Format = iota
	FormatJSONL
)

func (f Format) String() string {
	switch f {
	case FormatJSONL:
		return "jsonl"
	default:
		return "text"
	}
}

// ParseFormat accepts "text"/"txt" and "jsonl"/"json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "jsonl", "json":
		return FormatJSONL, nil
	default:
		return FormatText, fmt.Errorf("unknown log format %q (want text or jsonl)", s)
	}
}

// Entry is a record read back from a log, with the 1-based line where it
// starts.
type Entry struct {
	Record
	Line int
}
