// Package watch provides a generic "poll file, detect change, debounce,
// reload" loop. lapsed uses it to apply hand edits of the config file to the
// running scheduler without a restart.
//
// Typical usage:
//
//	w := watch.New(path, watch.Options{Interval: 2*time.Second, Debounce: 500*time.Millisecond})
//	go w.OnChange(ctx, func() error { return svc.ReloadFromDisk() })
package watch

import (
	"context"
	"hash/fnv"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

// ChangeDetector reads a change token for a file. Two calls that return
// different values mean "something changed". A missing file maps to token 0
// rather than an error, so watching a not-yet-written config is fine.
type ChangeDetector func(path string) (uint64, error)

// Options tunes the watcher behaviour.
type Options struct {
	// Interval is the polling frequency. Default: 2s.
	Interval time.Duration
	// Debounce is the quiet period after a change is detected before the
	// action fires. If more changes arrive during the window the timer
	// resets. 0 means fire immediately. Default: 0.
	Debounce time.Duration
	// Detector overrides the default ContentHash detector.
	Detector ChangeDetector
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Interval <= 0 {
		o.Interval = 2 * time.Second
	}
	if o.Detector == nil {
		o.Detector = ContentHash
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Watcher polls a file for changes and runs an action when one is detected.
// It is safe for concurrent use.
type Watcher struct {
	path string
	opts Options

	// token is the last successfully processed change token.
	token atomic.Uint64

	// Counters for observability (exported via Stats).
	checks   atomic.Int64
	changes  atomic.Int64
	errors   atomic.Int64
	reloads  atomic.Int64
	reloadNs atomic.Int64
}

// Stats are point-in-time counters.
type Stats struct {
	Checks          int64         `json:"checks"`
	ChangesDetected int64         `json:"changes_detected"`
	Errors          int64         `json:"errors"`
	Reloads         int64         `json:"reloads"`
	AvgReloadTime   time.Duration `json:"avg_reload_time"`
}

// New creates a Watcher for path. Call OnChange to start the loop.
func New(path string, opts Options) *Watcher {
	opts.defaults()
	return &Watcher{path: path, opts: opts}
}

// Stats returns the current counters.
func (w *Watcher) Stats() Stats {
	s := Stats{
		Checks:          w.checks.Load(),
		ChangesDetected: w.changes.Load(),
		Errors:          w.errors.Load(),
		Reloads:         w.reloads.Load(),
	}
	if s.Reloads > 0 {
		s.AvgReloadTime = time.Duration(w.reloadNs.Load() / s.Reloads)
	}
	return s
}

// OnChange blocks until ctx is cancelled, polling at opts.Interval.
// When the detector reports a token change and the debounce window passes
// without further changes, action is called.
//
// If action returns an error the token is NOT advanced — the action will be
// retried on the next poll cycle.
func (w *Watcher) OnChange(ctx context.Context, action func() error) {
	log := w.opts.Logger

	// Seed initial token so startup state does not count as a change.
	tok, err := w.opts.Detector(w.path)
	if err != nil {
		log.Warn("watch: initial check failed", "path", w.path, "error", err)
	} else {
		w.token.Store(tok)
	}

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time
	var pending uint64
	havePending := false

	log.Info("watch: started", "path", w.path, "interval", w.opts.Interval, "debounce", w.opts.Debounce)

	for {
		select {
		case <-ctx.Done():
			log.Info("watch: stopped", "path", w.path)
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case <-ticker.C:
			w.checks.Add(1)
			cur, err := w.opts.Detector(w.path)
			if err != nil {
				w.errors.Add(1)
				log.Warn("watch: check failed", "path", w.path, "error", err)
				continue
			}
			if cur != w.token.Load() && (!havePending || cur != pending) {
				w.changes.Add(1)
				pending = cur
				havePending = true

				if w.opts.Debounce <= 0 {
					w.fire(log, action, pending)
					havePending = false
				} else {
					// (Re)start the debounce timer only when the pending
					// token actually changed, not on every poll cycle.
					if debounceTimer != nil {
						debounceTimer.Stop()
					}
					debounceTimer = time.NewTimer(w.opts.Debounce)
					debounceCh = debounceTimer.C
					log.Debug("watch: change detected, debouncing", "path", w.path)
				}
			}

		case <-debounceCh:
			debounceCh = nil
			if havePending {
				w.fire(log, action, pending)
				havePending = false
			}
		}
	}
}

func (w *Watcher) fire(log *slog.Logger, action func() error, tok uint64) {
	log.Info("watch: reloading", "path", w.path)
	start := time.Now()
	if err := action(); err != nil {
		w.errors.Add(1)
		log.Error("watch: reload failed", "path", w.path, "error", err)
		return
	}
	elapsed := time.Since(start)
	w.reloads.Add(1)
	w.reloadNs.Add(int64(elapsed))
	w.token.Store(tok)
	log.Info("watch: reload complete", "path", w.path, "duration", elapsed)
}

// ---------- Built-in detectors ----------

// ContentHash hashes the file contents with FNV-64a. Robust against editors
// that rewrite files with unchanged mtime granularity; fine for config-sized
// files.
func ContentHash(path string) (uint64, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := fnv.New64a()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// ModTimeSize combines mtime and size into a cheap change token. Use for
// files too large to hash on every poll.
func ModTimeSize(path string) (uint64, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	h := fnv.New64a()
	var buf [16]byte
	mt := info.ModTime().UnixNano()
	sz := info.Size()
	for i := 0; i < 8; i++ {
		buf[i] = byte(mt >> (8 * i))
		buf[8+i] = byte(sz >> (8 * i))
	}
	h.Write(buf[:])
	return h.Sum64(), nil
}
