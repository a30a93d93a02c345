package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/mattn/go-runewidth"

	"github.com/Zuo-Peng/nbtrack/internal/record"
)

const (
	colorReset   = "\033[0m"
	colorHeader  = "\033[1;34m" // bold blue
	colorOutput  = "\033[32m"   // green
	colorDim     = "\033[2m"
	colorHit     = "\033[43m"   // yellow background
	colorBoldRed = "\033[1;31m" // bold red for keyword highlights
)

type Options struct {
	HitSeq int    // record to mark, -1 for none
	Width  int    // wrap width (0 = no wrap)
	Query  string // search query for keyword highlighting
	Plain  bool   // no ANSI at all
	Style  string // chroma style for inputs, "" = monokai
}

// fts5Operators are FTS5 operators that should not be highlighted as keywords.
var fts5Operators = map[string]bool{
	"AND": true, "OR": true, "NOT": true, "NEAR": true,
	"and": true, "or": true, "not": true, "near": true,
}

// highlightKeywords wraps case-insensitive matches of query terms in bold red ANSI codes.
func highlightKeywords(text, query string) string {
	if query == "" {
		return text
	}
	terms := strings.Fields(query)
	var filtered []string
	for _, t := range terms {
		if !fts5Operators[t] {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) == 0 {
		return text
	}
	for _, term := range filtered {
		lower := strings.ToLower(term)
		i := 0
		for i < len(text) {
			idx := strings.Index(strings.ToLower(text[i:]), lower)
			if idx < 0 {
				break
			}
			pos := i + idx
			if pos+len(term) > len(text) {
				break
			}
			orig := text[pos : pos+len(term)]
			replacement := colorBoldRed + orig + colorReset
			text = text[:pos] + replacement + text[pos+len(term):]
			i = pos + len(replacement)
		}
	}
	return text
}

// highlightCode colors cell source as Python for a 256-color terminal. On
// any lexer or formatter failure the source is returned unchanged.
func highlightCode(src, style string) string {
	if style == "" {
		style = "monokai"
	}
	var b strings.Builder
	if err := quick.Highlight(&b, src, "python", "terminal256", style); err != nil {
		return src
	}
	return strings.TrimRight(b.String(), "\n")
}

// indentLines prepends each line of text with the given prefix.
func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// wrapLine breaks a single line into multiple lines that fit within maxWidth
// visible columns, correctly skipping ANSI escape sequences when measuring width.
func wrapLine(line string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{line}
	}

	var result []string
	var cur strings.Builder
	visW := 0

	i := 0
	for i < len(line) {
		// check for ANSI escape sequence: ESC[ ... m
		if i+1 < len(line) && line[i] == '\033' && line[i+1] == '[' {
			j := i + 2
			for j < len(line) && line[j] != 'm' {
				j++
			}
			if j < len(line) {
				j++ // include 'm'
			}
			cur.WriteString(line[i:j])
			i = j
			continue
		}

		r, size := utf8.DecodeRuneInString(line[i:])
		rw := runewidth.RuneWidth(r)

		if visW+rw > maxWidth {
			result = append(result, cur.String())
			cur.Reset()
			visW = 0
		}

		cur.WriteRune(r)
		visW += rw
		i += size
	}

	if cur.Len() > 0 {
		result = append(result, cur.String())
	}

	if len(result) == 0 {
		return []string{""}
	}
	return result
}

// Summary is a one-line description of an entry for list views.
func Summary(e record.Entry) string {
	first := strings.TrimSpace(e.Input)
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	if first == "" {
		first = "(empty)"
	}
	return fmt.Sprintf("#%d %s %s %s", e.CellIndex, e.CellID, execLabel(e.ExecutionCount), first)
}

func execLabel(n *int) string {
	if n == nil {
		return "In[ ]"
	}
	return fmt.Sprintf("In[%d]", *n)
}

func header(e record.Entry) string {
	parts := []string{
		e.EventTime.Local().Format("2006-01-02 15:04:05"),
		fmt.Sprintf("cell %d", e.CellIndex),
		e.CellID,
		execLabel(e.ExecutionCount),
	}
	if e.ExecStart != nil && e.ExecEnd != nil {
		parts = append(parts, *e.ExecStart+" -> "+*e.ExecEnd)
	}
	return strings.Join(parts, "  ")
}

// RenderLog renders entries and returns the content together with the
// 0-based line number of the HitSeq entry header (-1 if none).
func RenderLog(entries []record.Entry, opts Options) (string, int) {
	if len(entries) == 0 {
		return "(empty log)", -1
	}

	color := func(c, s string) string {
		if opts.Plain {
			return s
		}
		return c + s + colorReset
	}

	var b strings.Builder
	hitLine := -1
	lineCount := 0
	separator := color(colorDim, strings.Repeat("-", 50))

	// helper to track line count; wraps long lines if Width is set
	writeLine := func(s string) {
		for _, wl := range wrapLine(s, opts.Width) {
			b.WriteString(wl)
			b.WriteString("\n")
			lineCount++
		}
	}

	writeLine(color(colorDim, fmt.Sprintf("--- %s (%d records) ---", entries[0].NotebookPath, len(entries))))

	for i, e := range entries {
		if i > 0 {
			writeLine(separator)
		}
		if i == opts.HitSeq {
			hitLine = lineCount
			writeLine(color(colorHit, ">> "+header(e)+" <<"))
		} else {
			writeLine(color(colorHeader, header(e)))
		}

		input := e.Input
		switch {
		case opts.Plain:
		case opts.Query != "":
			input = highlightKeywords(input, opts.Query)
		default:
			input = highlightCode(input, opts.Style)
		}
		for _, l := range strings.Split(indentLines(input, "  "), "\n") {
			writeLine(l)
		}

		if e.Output != "" {
			writeLine(color(colorDim, "  Out:"))
			output := e.Output
			if !opts.Plain {
				output = colorOutput + highlightKeywords(output, opts.Query) + colorReset
			}
			for _, l := range strings.Split(indentLines(output, "  "), "\n") {
				writeLine(l)
			}
		}
		writeLine("") // blank line after record
	}

	return b.String(), hitLine
}

// Match reports whether e belongs to cell cellID (when set) and its input
// or output contains query case-insensitively (when set).
func Match(e record.Entry, cellID, query string) bool {
	if cellID != "" && e.CellID != cellID {
		return false
	}
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(e.Input), q) ||
		strings.Contains(strings.ToLower(e.Output), q)
}

// Filter keeps the entries that Match.
func Filter(entries []record.Entry, cellID, query string) []record.Entry {
	var out []record.Entry
	for _, e := range entries {
		if Match(e, cellID, query) {
			out = append(out, e)
		}
	}
	return out
}
