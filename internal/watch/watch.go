// Package watch re-runs a callback when OpenQASM sources or the project
// manifest change on disk.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"qlower/internal/driver"
	"qlower/internal/project"
)

const defaultDebounce = 150 * time.Millisecond

type Options struct {
	// Debounce coalesces bursts of events; editors often write a file in
	// several steps.
	Debounce time.Duration
	// Relevant selects the paths that trigger a rebuild. Defaults to
	// .qasm files and qlower.toml.
	Relevant func(path string) bool
}

// Relevant is the default path filter.
func Relevant(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return strings.HasSuffix(base, driver.SourceExt) || base == project.ManifestName
}

// Run watches roots recursively and calls onChange with the sorted set of
// changed paths after each quiet period. It returns nil when ctx is
// cancelled and the first watcher error otherwise.
func Run(ctx context.Context, roots []string, opts Options, onChange func(changed []string)) error {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.Relevant == nil {
		opts.Relevant = Relevant
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, root := range roots {
		if err := addTree(w, root); err != nil {
			return err
		}
	}

	pending := make(map[string]struct{})
	timer := time.NewTimer(opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					// New subdirectories are watched too; errors here only
					// mean the directory vanished again.
					_ = addTree(w, ev.Name)
					continue
				}
			}
			if ev.Op == fsnotify.Chmod || !opts.Relevant(ev.Name) {
				continue
			}
			pending[filepath.Clean(ev.Name)] = struct{}{}
			timer.Reset(opts.Debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return err
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			clear(pending)
			slices.Sort(changed)
			onChange(changed)
		}
	}
}

// addTree watches root and every directory below it. A file root watches
// its parent directory.
func addTree(w *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.Add(filepath.Dir(root))
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
