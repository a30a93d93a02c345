package search

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	"github.com/Zuo-Peng/nbtrack/internal/digest"
	"github.com/Zuo-Peng/nbtrack/internal/index"
)

type Result struct {
	LogPath      string
	Seq          int
	LineNumber   int
	EventTime    string
	NotebookPath string
	CellIndex    int
	CellID       string
	Snippet      string
	Rank         float64

	state digest.Digest // input and output of the matched record
}

type Options struct {
	Query    string
	Notebook string // "" = all, else exact notebook path
	CellID   string // "" = all
	Since    string // "" = no filter, e.g. "2024-01-01"
	Limit    int
}

// containsCJK returns true if the string contains any CJK Unified Ideograph.
func containsCJK(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// makeSnippet extracts a snippet around the first occurrence of query in text.
func makeSnippet(text, query string, contextChars int) string {
	runes := []rune(text)
	idx := indexFold(text, query)
	if idx < 0 {
		// no match, return head
		if len(runes) > contextChars*2 {
			return string(runes[:contextChars*2]) + "..."
		}
		return text
	}
	runePos := len([]rune(text[:idx]))
	qLen := min(len([]rune(query)), len(runes)-runePos)
	start := max(runePos-contextChars, 0)
	end := min(runePos+qLen+contextChars, len(runes))
	prefix := ""
	suffix := ""
	if start > 0 {
		prefix = "..."
	}
	if end < len(runes) {
		suffix = "..."
	}
	// wrap the matched part with markers
	snippet := string(runes[start:runePos]) +
		">>>" + string(runes[runePos:runePos+qLen]) + "<<<" +
		string(runes[runePos+qLen:end])
	return prefix + snippet + suffix
}

// indexFold is a case-insensitive strings.Index returning a byte offset into
// s. It falls back to an exact match when lowering changes byte lengths.
func indexFold(s, sub string) int {
	lower := strings.ToLower(s)
	if len(lower) != len(s) {
		return strings.Index(s, sub)
	}
	return strings.Index(lower, strings.ToLower(sub))
}

// Search matches query against record inputs and outputs. Records that
// repeat an earlier cell state (the same input and output re-asserted after
// a daemon restart) collapse into the best-ranked one.
func Search(db *index.DB, opts Options) ([]Result, error) {
	if strings.TrimSpace(opts.Query) == "" {
		return nil, fmt.Errorf("empty query")
	}
	if opts.Limit <= 0 {
		opts.Limit = 100
	}

	// Fetch more results before dedup so we still have enough after
	origLimit := opts.Limit
	opts.Limit = origLimit * 3

	var results []Result
	var err error
	if containsCJK(opts.Query) {
		results, err = searchLike(db, opts)
	} else {
		results, err = searchFTS(db, opts)
	}
	if err != nil {
		return nil, err
	}

	type stateKey struct {
		notebook, cell string
		state          digest.Digest
	}
	seen := make(map[stateKey]bool)
	var deduped []Result
	for _, r := range results {
		k := stateKey{r.NotebookPath, r.CellID, r.state}
		if seen[k] {
			continue
		}
		seen[k] = true
		deduped = append(deduped, r)
		if len(deduped) >= origLimit {
			break
		}
	}
	return deduped, nil
}

func filters(opts Options) ([]string, []interface{}) {
	var conditions []string
	var args []interface{}

	if opts.Notebook != "" {
		conditions = append(conditions, "r.notebook_path = ?")
		args = append(args, opts.Notebook)
	}
	if opts.CellID != "" {
		conditions = append(conditions, "r.cell_id = ?")
		args = append(args, opts.CellID)
	}
	if opts.Since != "" {
		conditions = append(conditions, "r.event_time >= ?")
		args = append(args, opts.Since)
	}
	return conditions, args
}

func searchFTS(db *index.DB, opts Options) ([]Result, error) {
	conditions := []string{"records_fts MATCH ?"}
	args := []interface{}{ftsQuery(opts.Query)}

	more, moreArgs := filters(opts)
	conditions = append(conditions, more...)
	args = append(args, moreArgs...)

	query := fmt.Sprintf(`
		SELECT
			r.log_path,
			r.seq,
			r.line_number,
			r.event_time,
			r.notebook_path,
			r.cell_index,
			r.cell_id,
			r.input,
			r.output,
			snippet(records_fts, -1, '>>>', '<<<', '...', 16) as snip,
			bm25(records_fts, 2.0, 1.0) as rank
		FROM records_fts
		JOIN records r ON records_fts.rowid = r.rowid
		WHERE %s
		ORDER BY rank
		LIMIT ?
	`, strings.Join(conditions, " AND "))

	args = append(args, opts.Limit)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// ftsQuery quotes each term so code punctuation such as "df.head()" is
// matched as tokens instead of parsed as FTS5 syntax.
func ftsQuery(q string) string {
	fields := strings.Fields(q)
	for i, f := range fields {
		fields[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(fields, " ")
}

func searchLike(db *index.DB, opts Options) ([]Result, error) {
	// LIKE match for CJK substring search
	conditions := []string{"(r.input LIKE ? OR r.output LIKE ?)"}
	pattern := "%" + opts.Query + "%"
	args := []interface{}{pattern, pattern}

	more, moreArgs := filters(opts)
	conditions = append(conditions, more...)
	args = append(args, moreArgs...)

	query := fmt.Sprintf(`
		SELECT
			r.log_path,
			r.seq,
			r.line_number,
			r.event_time,
			r.notebook_path,
			r.cell_index,
			r.cell_id,
			r.input,
			r.output
		FROM records r
		WHERE %s
		ORDER BY r.event_time DESC
		LIMIT ?
	`, strings.Join(conditions, " AND "))

	args = append(args, opts.Limit)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var input, output string
		if err := rows.Scan(
			&r.LogPath, &r.Seq, &r.LineNumber, &r.EventTime,
			&r.NotebookPath, &r.CellIndex, &r.CellID,
			&input, &output,
		); err != nil {
			return nil, err
		}
		r.state = digest.Sum(input, output)
		text := input
		if indexFold(text, opts.Query) < 0 {
			text = output
		}
		r.Snippet = makeSnippet(text, opts.Query, 30)
		results = append(results, r)
	}
	return results, rows.Err()
}

func scanResults(rows *sql.Rows) ([]Result, error) {
	var results []Result
	for rows.Next() {
		var r Result
		var input, output string
		if err := rows.Scan(
			&r.LogPath, &r.Seq, &r.LineNumber, &r.EventTime,
			&r.NotebookPath, &r.CellIndex, &r.CellID,
			&input, &output, &r.Snippet, &r.Rank,
		); err != nil {
			return nil, err
		}
		r.state = digest.Sum(input, output)
		results = append(results, r)
	}
	return results, rows.Err()
}
