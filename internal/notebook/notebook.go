// Package notebook decodes .ipynb documents into read-only cell views.
package notebook

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
)

type rawNotebook struct {
	Cells []rawCell `json:"cells"`
}

type rawCell struct {
	ID             json.RawMessage   `json:"id"`
	CellType       string            `json:"cell_type"`
	Source         json.RawMessage   `json:"source"`
	Outputs        []json.RawMessage `json:"outputs"`
	ExecutionCount json.RawMessage   `json:"execution_count"`
	Metadata       json.RawMessage   `json:"metadata"`
}

type rawOutput struct {
	Text   json.RawMessage            `json:"text"`
	Data   map[string]json.RawMessage `json:"data"`
	EName  json.RawMessage            `json:"ename"`
	EValue json.RawMessage            `json:"evalue"`
}

// ExecuteTime nbextension writes start_time/end_time, JupyterLab's
// record_timing writes the execution block.
type rawMetadata struct {
	ExecuteTime map[string]json.RawMessage `json:"ExecuteTime"`
	Execution   map[string]json.RawMessage `json:"execution"`
}

var (
	startKeys = []string{"start_time", "started", "iopub.execute_input"}
	endKeys   = []string{"end_time", "finished", "shell.execute_reply"}
)

// Read loads and decodes the notebook at path. A failed stat leaves Mtime nil;
// a failed read or decode is returned as an error.
func Read(path string) (*Notebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	nb, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	nb.Path = path

	if info, err := os.Stat(path); err == nil {
		mt := info.ModTime()
		nb.Mtime = &mt
	}
	return nb, nil
}

// Parse decodes notebook JSON. Truncated or malformed input is an error.
func Parse(data []byte) (*Notebook, error) {
	var raw rawNotebook
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	nb := &Notebook{Cells: make([]Cell, 0, len(raw.Cells))}
	seen := make(map[string]struct{})

	for i, rc := range raw.Cells {
		cell := Cell{
			Index:          i + 1,
			ID:             cellID(rc.ID),
			Type:           rc.CellType,
			Input:          strings.TrimSpace(decodeText(rc.Source)),
			ExecutionCount: execCount(rc.ExecutionCount),
		}

		// ids must be unique among code cells within one read
		if cell.IsCode() {
			if _, dup := seen[cell.ID]; cell.ID == "" || dup {
				cell.ID = fmt.Sprintf("idx:%d", i)
			}
			seen[cell.ID] = struct{}{}
		} else if cell.ID == "" {
			cell.ID = fmt.Sprintf("idx:%d", i)
		}

		for _, ro := range rc.Outputs {
			cell.Outputs = append(cell.Outputs, decodeOutput(ro))
		}
		cell.ExecStart, cell.ExecEnd = execTimes(rc.Metadata)

		nb.Cells = append(nb.Cells, cell)
	}
	return nb, nil
}

// decodeOutput classifies a fragment by which fields it carries: text first,
// then text/plain data, then ename+evalue.
func decodeOutput(raw json.RawMessage) Output {
	var ro rawOutput
	if err := json.Unmarshal(raw, &ro); err != nil {
		return Output{Kind: OutputUnknown}
	}

	if len(ro.Text) > 0 {
		return Output{Kind: OutputStream, Text: decodeText(ro.Text)}
	}
	if plain, ok := ro.Data["text/plain"]; ok {
		return Output{Kind: OutputData, Text: decodeText(plain)}
	}
	if len(ro.EName) > 0 && len(ro.EValue) > 0 {
		return Output{
			Kind:   OutputError,
			EName:  scalarString(ro.EName),
			EValue: scalarString(ro.EValue),
		}
	}
	return Output{Kind: OutputUnknown}
}

// decodeText accepts nbformat's multiline form: a string or a list of strings.
func decodeText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var parts []string
	if err := json.Unmarshal(raw, &parts); err == nil {
		return strings.Join(parts, "")
	}
	return ""
}

// cellID keeps string ids only. Anything else falls back to the positional
// id for that cell.
func cellID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// execCount accepts integers and integral floats such as 3.0. Other values
// read as never executed.
func execCount(raw json.RawMessage) *int {
	var f *float64
	if err := json.Unmarshal(raw, &f); err != nil || f == nil {
		return nil
	}
	if *f != math.Trunc(*f) || *f < 0 || *f > math.MaxInt32 {
		return nil
	}
	n := int(*f)
	return &n
}

func scalarString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func execTimes(raw json.RawMessage) (start, end *string) {
	if len(raw) == 0 {
		return nil, nil
	}

	var meta rawMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, nil
	}

	block := meta.ExecuteTime
	if len(block) == 0 {
		block = meta.Execution
	}
	return firstString(block, startKeys), firstString(block, endKeys)
}

func firstString(block map[string]json.RawMessage, keys []string) *string {
	for _, k := range keys {
		raw, ok := block[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return &s
		}
	}
	return nil
}
