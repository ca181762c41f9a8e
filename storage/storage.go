// CLAUDE:SUMMARY Date-partitioned frame storage with atomic temp-file-then-rename publish.
// Package storage organises captured frames on disk.
//
// Frames land in output_root/YYYY-MM-DD/img_HH-MM-SS.jpg. Writes go to a
// temporary file in the destination directory and are renamed into place, so
// a reader never observes a partially written image. Name collisions get a
// numeric suffix instead of overwriting.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	dateLayout = "2006-01-02"
	nameLayout = "15-04-05"
)

// Record describes one stored capture.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
	Size      int64     `json:"size_bytes"`
}

// Error is a storage failure: directory creation, write, or publish. It wraps
// the underlying cause and is never swallowed by the organiser.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Organizer writes frames under a fixed output root.
type Organizer struct {
	root string
	ext  string
}

// Option customises an Organizer.
type Option func(*Organizer)

// WithExtension overrides the file extension. Default: ".jpg".
func WithExtension(ext string) Option {
	return func(o *Organizer) { o.ext = ext }
}

// New creates an Organizer rooted at root. The root is created lazily on the
// first Store call.
func New(root string, opts ...Option) *Organizer {
	o := &Organizer{root: root, ext: ".jpg"}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Root returns the output root.
func (o *Organizer) Root() string { return o.root }

// Store writes data as the capture taken at ts and publishes it atomically.
// The returned Record carries the final path and size.
func (o *Organizer) Store(data []byte, ts time.Time) (Record, error) {
	dir := filepath.Join(o.root, ts.Format(dateLayout))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Record{}, &Error{Op: "mkdir", Path: dir, Err: err}
	}

	final, err := o.pickName(dir, ts)
	if err != nil {
		return Record{}, err
	}

	tmp, err := os.CreateTemp(dir, ".capture-*.tmp")
	if err != nil {
		return Record{}, &Error{Op: "create temp", Path: dir, Err: err}
	}
	tmpName := tmp.Name()
	// Any failure past this point must not leave the temp file behind.
	fail := func(op string, err error) (Record, error) {
		tmp.Close()
		os.Remove(tmpName)
		return Record{}, &Error{Op: op, Path: final, Err: err}
	}

	if _, err := tmp.Write(data); err != nil {
		return fail("write", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync", err)
	}
	if err := tmp.Close(); err != nil {
		return fail("close", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fail("chmod", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		return fail("publish", err)
	}

	return Record{Timestamp: ts, Path: final, Size: int64(len(data))}, nil
}

// pickName derives the second-precision filename for ts, appending _1, _2, …
// when the name is already taken. Overwriting an existing frame is never an
// acceptable outcome.
func (o *Organizer) pickName(dir string, ts time.Time) (string, error) {
	base := "img_" + ts.Format(nameLayout)
	name := filepath.Join(dir, base+o.ext)
	for i := 1; ; i++ {
		_, err := os.Stat(name)
		if os.IsNotExist(err) {
			return name, nil
		}
		if err != nil {
			return "", &Error{Op: "stat", Path: name, Err: err}
		}
		name = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, i, o.ext))
	}
}

// Dates lists the date directories under the root, newest first. A missing
// root is an empty listing, not an error.
func (o *Organizer) Dates() ([]string, error) {
	entries, err := os.ReadDir(o.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &Error{Op: "list", Path: o.root, Err: err}
	}
	var dates []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse(dateLayout, e.Name()); err != nil {
			continue
		}
		dates = append(dates, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

// List returns the capture filenames for a date, oldest first.
func (o *Organizer) List(date string) ([]string, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, &Error{Op: "list", Path: date, Err: err}
	}
	dir := filepath.Join(o.root, date)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &Error{Op: "list", Path: dir, Err: err}
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != o.ext {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// PruneBefore removes whole date directories older than cutoff's calendar
// date. It returns the number of directories removed.
func (o *Organizer) PruneBefore(cutoff time.Time) (int, error) {
	dates, err := o.Dates()
	if err != nil {
		return 0, err
	}
	limit := cutoff.Format(dateLayout)
	removed := 0
	for _, d := range dates {
		if d >= limit {
			continue
		}
		if err := os.RemoveAll(filepath.Join(o.root, d)); err != nil {
			return removed, &Error{Op: "prune", Path: d, Err: err}
		}
		removed++
	}
	return removed, nil
}
