// Package snapshot diffs a notebook against the last recorded cell digests
// and appends a record for every cell whose content or output changed.
package snapshot

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Zuo-Peng/nbtrack/internal/digest"
	"github.com/Zuo-Peng/nbtrack/internal/notebook"
	"github.com/Zuo-Peng/nbtrack/internal/record"
)

// ErrUnreadable wraps read and decode failures. The notebook is usually
// mid-save; the next trigger retries against the complete file.
var ErrUnreadable = errors.New("notebook unreadable")

// Sink receives change records. record.Writer is the production sink.
type Sink interface {
	Append(rec record.Record) error
}

type Options struct {
	RunID  string
	Logger *slog.Logger
	Now    func() time.Time
}

type Extractor struct {
	store *digest.Store
	sink  Sink
	opts  Options
}

// Result summarizes one pass.
type Result struct {
	Appended  int
	Unchanged int
	Failed    int
	Records   []record.Record // appended records, in document order
}

func (r Result) String() string {
	return fmt.Sprintf("appended=%d unchanged=%d failed=%d", r.Appended, r.Unchanged, r.Failed)
}

func New(store *digest.Store, sink Sink, opts Options) *Extractor {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Extractor{store: store, sink: sink, opts: opts}
}

// Extract reads the notebook at path and appends a record for each code cell
// whose digest differs from the store. The store is updated for a cell only
// after its record was appended, so a failed append is retried on the next
// pass. A read or decode failure returns ErrUnreadable and touches nothing.
func (e *Extractor) Extract(path string) (Result, error) {
	var res Result

	nb, err := notebook.Read(path)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	eventTime := e.opts.Now().UTC()
	var mtime *time.Time
	if nb.Mtime != nil {
		mt := nb.Mtime.UTC()
		mtime = &mt
	}

	for _, cell := range nb.CodeCells() {
		output := cell.OutputText()
		d := digest.Sum(cell.Input, output)
		if !e.store.Changed(cell.ID, d) {
			res.Unchanged++
			continue
		}

		rec := record.Record{
			EventTime:      eventTime,
			NotebookPath:   path,
			NotebookMtime:  mtime,
			CellIndex:      cell.Index,
			CellID:         cell.ID,
			ExecutionCount: cell.ExecutionCount,
			ExecStart:      cell.ExecStart,
			ExecEnd:        cell.ExecEnd,
			Input:          cell.Input,
			Output:         output,
			RunID:          e.opts.RunID,
		}

		if err := e.sink.Append(rec); err != nil {
			res.Failed++
			e.opts.Logger.Warn("snapshot: append failed", "cell_id", cell.ID, "cell_index", cell.Index, "error", err)
			continue
		}
		e.store.Set(cell.ID, d)
		res.Appended++
		res.Records = append(res.Records, rec)
	}

	return res, nil
}
