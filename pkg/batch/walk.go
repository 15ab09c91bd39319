package batch

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Walk enumerates candidate source files under Root.
type Walk struct {
	Root string
	// Recursive descends into subdirectories; otherwise only the direct
	// children of Root are visited.
	Recursive bool
	// Exclude lists directories that are never entered, typically the
	// output directory.
	Exclude []string
	// OnError is told about entries that could not be read. They are
	// skipped either way.
	OnError func(path string, err error)
}

// Each calls fn for every regular file, in lexical order. A Root that is a
// file yields only itself. Each stops early when fn returns an error and
// returns that error.
func (w Walk) Each(fn func(path string) error) error {
	fi, err := os.Stat(w.Root)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fn(w.Root)
	}

	// WalkDir does not follow a symlinked root, so walk its target and
	// hand back paths under the caller's Root.
	resolved, err := filepath.EvalSymlinks(w.Root)
	if err != nil {
		return err
	}
	display := func(p string) string {
		if resolved == w.Root {
			return p
		}
		rel, err := filepath.Rel(resolved, p)
		if err != nil {
			return p
		}
		return filepath.Join(w.Root, rel)
	}

	excluded := make(map[string]bool, len(w.Exclude))
	for _, e := range w.Exclude {
		if abs, err := filepath.Abs(e); err == nil {
			excluded[abs] = true
		}
	}

	return filepath.WalkDir(resolved, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.report(display(path), err)
			if d != nil && d.IsDir() && path != resolved {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path == resolved {
				return nil
			}
			if !w.Recursive || w.isExcluded(excluded, display(path)) || w.isExcluded(excluded, path) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			if d.Type()&fs.ModeSymlink == 0 {
				return nil
			}
			target, err := os.Stat(path)
			if err != nil {
				w.report(display(path), err)
				return nil
			}
			if !target.Mode().IsRegular() {
				return nil
			}
		}
		return fn(display(path))
	})
}

func (w Walk) isExcluded(excluded map[string]bool, path string) bool {
	if len(excluded) == 0 {
		return false
	}
	abs, err := filepath.Abs(path)
	return err == nil && excluded[abs]
}

func (w Walk) report(path string, err error) {
	if w.OnError != nil && !errors.Is(err, fs.SkipDir) {
		w.OnError(path, err)
	}
}
