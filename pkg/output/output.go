// Package output names tile files and prepares their destination.
package output

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDir is used when no output directory is given.
const DefaultDir = "splixed-images"

// Name returns the file name of the tile at row, col: {stem}-r{row}c{col}.{ext}.
func Name(stem string, row, col int, ext string) string {
	return fmt.Sprintf("%s-r%dc%d.%s", stem, row, col, ext)
}

// Resolve returns the destination path of a tile under dir.
func Resolve(dir, stem string, row, col int, ext string) string {
	return filepath.Join(dir, Name(stem, row, col, ext))
}

// Stem is the file name of path without directories and extension.
func Stem(path string) (string, error) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		return "", fmt.Errorf("no file stem in %q", path)
	}
	return stem, nil
}

// EnsureDir creates dir and its parents. It may be called concurrently for
// the same directory.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	fi, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// Clear removes a file left at path by an earlier run. A missing file is
// not an error.
func Clear(path string) error {
	fi, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
