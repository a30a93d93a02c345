// Package watch subscribes to file-system notifications for a single file
// and runs an action when it changes, coalescing bursts of save events.
//
// Typical usage:
//
//	w, _ := watch.New(path, watch.Options{Debounce: 500 * time.Millisecond})
//	err := w.Run(ctx, func(ctx context.Context) { extract() })
//
// Notifications are handled on one goroutine and the action runs
// synchronously on it, so two actions never overlap.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Options tunes the watcher behaviour.
type Options struct {
	// Debounce is the minimum spacing between two actions. An accepted event
	// that arrives sooner than Debounce after the last action is dropped.
	// 0 fires on every accepted event.
	Debounce time.Duration
	// Logger overrides the default slog logger.
	Logger *slog.Logger
	// Now overrides the clock used for debouncing.
	Now func() time.Time
}

func (o *Options) defaults() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Watcher watches the parent directory of a target file. Editors and
// kernels often save by writing a temp file and renaming it over the target,
// which a watch on the file itself would lose.
type Watcher struct {
	target   string // absolute, cleaned
	resolved string // target with symlinks evaluated, when resolvable
	name     string
	opts     Options

	// lastFire is only touched by the event loop goroutine.
	lastFire time.Time
	hasFired bool

	ready     chan struct{}
	readyOnce sync.Once

	events    atomic.Int64
	accepted  atomic.Int64
	coalesced atomic.Int64
	fires     atomic.Int64
	errors    atomic.Int64
}

// Stats are point-in-time counters.
type Stats struct {
	Events    int64 `json:"events"`
	Accepted  int64 `json:"accepted"`
	Coalesced int64 `json:"coalesced"`
	Fires     int64 `json:"fires"`
	Errors    int64 `json:"errors"`
}

// New creates a Watcher for target. Call Run to start the loop.
func New(target string, opts Options) (*Watcher, error) {
	opts.defaults()

	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", target, err)
	}
	w := &Watcher{
		target:   abs,
		resolved: abs,
		name:     filepath.Base(abs),
		opts:     opts,
		ready:    make(chan struct{}),
	}
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		w.resolved = r
	}
	return w, nil
}

// Ready is closed once the directory subscription is in place.
func (w *Watcher) Ready() <-chan struct{} { return w.ready }

// Stats returns the current counters.
func (w *Watcher) Stats() Stats {
	return Stats{
		Events:    w.events.Load(),
		Accepted:  w.accepted.Load(),
		Coalesced: w.coalesced.Load(),
		Fires:     w.fires.Load(),
		Errors:    w.errors.Load(),
	}
}

// Run blocks until ctx is cancelled, calling action for each accepted,
// non-coalesced event. Failing to establish the subscription is returned as
// an error; delivery errors afterwards are logged and counted. An action
// that is running when ctx is cancelled completes before Run returns.
func (w *Watcher) Run(ctx context.Context, action func(context.Context)) error {
	log := w.opts.Logger

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	dir := filepath.Dir(w.target)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.readyOnce.Do(func() { close(w.ready) })

	log.Info("watch: started", "dir", dir, "target", w.name, "debounce", w.opts.Debounce)

	for {
		select {
		case <-ctx.Done():
			log.Info("watch: stopped", "stats", w.Stats())
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev, action)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.errors.Add(1)
			log.Warn("watch: notification error", "error", err)
		}
	}
}

// handle applies the filter and debounce policy to one event and runs
// action when it qualifies. It reports whether action ran.
func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event, action func(context.Context)) bool {
	w.events.Add(1)

	// a rename into place is reported as Create on the destination
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}
	if !w.Matches(ev.Name) {
		return false
	}
	w.accepted.Add(1)

	if !w.allow(w.opts.Now()) {
		w.coalesced.Add(1)
		w.opts.Logger.Debug("watch: event coalesced", "path", ev.Name, "op", ev.Op.String())
		return false
	}

	w.fires.Add(1)
	w.opts.Logger.Info("watch: change detected", "path", ev.Name, "op", ev.Op.String())
	action(ctx)
	return true
}

// allow is the leading-edge debounce: the first event fires, later ones
// within Debounce of the last fire are dropped.
func (w *Watcher) allow(now time.Time) bool {
	if w.hasFired && now.Sub(w.lastFire) < w.opts.Debounce {
		return false
	}
	w.lastFire = now
	w.hasFired = true
	return true
}

// Matches reports whether path names the watched file, by base name or by
// resolved absolute path.
func (w *Watcher) Matches(path string) bool {
	if filepath.Base(path) == w.name {
		return true
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if abs == w.target {
		return true
	}
	if r, err := filepath.EvalSymlinks(abs); err == nil && r == w.resolved {
		return true
	}
	return false
}
