package notebook

import (
	"strings"
	"time"
)

// OutputKind tags the textual output fragments a cell can carry.
type OutputKind int

const (
	OutputUnknown OutputKind = iota
	OutputStream             // stdout/stderr text
	OutputData               // execute_result / display_data with text/plain
	OutputError              // raised exception
)

func (k OutputKind) String() string {
	switch k {
	case OutputStream:
		return "stream"
	case OutputData:
		return "data"
	case OutputError:
		return "error"
	default:
		return "unknown"
	}
}

type Output struct {
	Kind   OutputKind
	Text   string // stream text or text/plain data
	EName  string // error only
	EValue string // error only
}

// Render returns the fragment as it contributes to a cell's output text.
// Unknown fragments contribute nothing.
func (o Output) Render() string {
	switch o.Kind {
	case OutputStream, OutputData:
		return o.Text
	case OutputError:
		return "Error: " + o.EName + ": " + o.EValue + "\n"
	default:
		return ""
	}
}

type Cell struct {
	Index          int    // 1-based position among all cells
	ID             string // native id, or "idx:<0-based position>"
	Type           string // "code", "markdown", "raw"
	Input          string
	Outputs        []Output
	ExecutionCount *int
	ExecStart      *string
	ExecEnd        *string
}

func (c Cell) IsCode() bool { return c.Type == "code" }

// OutputText joins all textual fragments and trims the result.
func (c Cell) OutputText() string {
	var b strings.Builder
	for _, o := range c.Outputs {
		b.WriteString(o.Render())
	}
	return strings.TrimSpace(b.String())
}

type Notebook struct {
	Path  string
	Mtime *time.Time // nil when the file could not be stat'ed
	Cells []Cell
}

// CodeCells returns the code cells in document order.
func (n *Notebook) CodeCells() []Cell {
	var cells []Cell
	for _, c := range n.Cells {
		if c.IsCode() {
			cells = append(cells, c)
		}
	}
	return cells
}
