// Package daemon runs the notebook change tracker: validate, take one
// snapshot, then optionally keep snapshotting on every qualifying save until
// the context is cancelled.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Zuo-Peng/nbtrack/internal/digest"
	"github.com/Zuo-Peng/nbtrack/internal/record"
	"github.com/Zuo-Peng/nbtrack/internal/snapshot"
	"github.com/Zuo-Peng/nbtrack/internal/watch"
	"github.com/google/uuid"
)

// ErrNotebookNotFound is returned when the watched notebook does not exist
// at startup.
var ErrNotebookNotFound = errors.New("notebook not found")

type Options struct {
	NotebookPath string
	OutputPath   string
	Format       record.Format
	Debounce     time.Duration
	Once         bool
	Logger       *slog.Logger

	// RunID tags every record of this run. Generated when empty.
	RunID string
	// OnPass, if set, is called after every extraction pass. Used by tests
	// and for reporting.
	OnPass func(snapshot.Result, error)
}

// Run validates opts, performs the initial pass and, unless opts.Once is
// set, watches the notebook until ctx is cancelled. Startup failures are
// returned; per-pass failures are logged and never end the run.
func Run(ctx context.Context, opts Options) error {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	nbPath, err := filepath.Abs(opts.NotebookPath)
	if err != nil {
		return fmt.Errorf("resolve notebook path: %w", err)
	}
	outPath, err := filepath.Abs(opts.OutputPath)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	info, err := os.Stat(nbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotebookNotFound, nbPath)
		}
		return fmt.Errorf("stat notebook: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrNotebookNotFound, nbPath)
	}

	writer := record.NewWriter(outPath, opts.Format)
	if err := writer.Check(); err != nil {
		return fmt.Errorf("output %s: %w", outPath, err)
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log = log.With("run_id", runID)

	log.Info("daemon: starting", "notebook", nbPath, "output", outPath, "format", opts.Format.String())

	store := digest.NewStore()
	ext := snapshot.New(store, writer, snapshot.Options{RunID: runID, Logger: log})

	pass := func(trigger string) {
		res, err := ext.Extract(nbPath)
		if err != nil {
			log.Warn("daemon: pass skipped", "trigger", trigger, "error", err)
		} else {
			log.Info("daemon: pass complete", "trigger", trigger,
				"appended", res.Appended, "unchanged", res.Unchanged, "failed", res.Failed, "tracked", store.Len())
		}
		if opts.OnPass != nil {
			opts.OnPass(res, err)
		}
	}

	pass("startup")

	if opts.Once {
		return nil
	}

	w, err := watch.New(nbPath, watch.Options{Debounce: opts.Debounce, Logger: log})
	if err != nil {
		return err
	}
	// the pass ignores ctx so a fire is never cut off mid-append
	if err := w.Run(ctx, func(context.Context) { pass("change") }); err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	log.Info("daemon: stopped")
	return nil
}
