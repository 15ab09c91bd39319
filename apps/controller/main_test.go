package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/PhantomInTheWire/splix/pkg/batch"
	"github.com/PhantomInTheWire/splix/pkg/grid"
)

type fakeUploader struct {
	keys []string
	fail string
}

func (f *fakeUploader) Upload(_ context.Context, file, key string) error {
	if f.fail != "" && strings.Contains(file, f.fail) {
		return errors.New("denied")
	}
	f.keys = append(f.keys, key)
	return nil
}

type fakeDispatcher struct{ sources []string }

func (f *fakeDispatcher) Dispatch(_ context.Context, key string) (string, error) {
	f.sources = append(f.sources, key)
	return "job-" + filepath.Base(key), nil
}

func TestDispatchAll(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.jpeg", "c.png", "readme.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	up := &fakeUploader{fail: "c.png"}
	d := &fakeDispatcher{}
	n := dispatchAll(context.Background(), batch.Request{Source: dir}, up, d)
	if n != 2 {
		t.Errorf("created %d jobs, want 2", n)
	}
	sort.Strings(d.sources)
	if strings.Join(d.sources, ",") != "sources/a.png,sources/b.jpeg" {
		t.Errorf("dispatched %v", d.sources)
	}
}

func TestDispatchAllKeepsSubdirectories(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png", "2023/a.png", "2024/a.png"} {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	up := &fakeUploader{}
	n := dispatchAll(context.Background(), batch.Request{Source: dir, Recursive: true}, up, &fakeDispatcher{})
	if n != 3 {
		t.Errorf("created %d jobs, want 3", n)
	}
	sort.Strings(up.keys)
	if got := strings.Join(up.keys, ","); got != "sources/2023/a.png,sources/2024/a.png,sources/a.png" {
		t.Errorf("keys %s", got)
	}
}

func TestSourceKey(t *testing.T) {
	file := filepath.Join("photos", "cat.png")
	if got := sourceKey(file, file); got != "sources/cat.png" {
		t.Errorf("single file key = %q", got)
	}
	if got := sourceKey("photos", filepath.Join("photos", "x", "cat.png")); got != "sources/x/cat.png" {
		t.Errorf("nested key = %q", got)
	}
}

func TestAxisArg(t *testing.T) {
	if got := axisArg(grid.Single); got != "" {
		t.Errorf("axisArg(Single) = %q", got)
	}
	if got := axisArg(grid.MustSpec(2, 3)); got != "2,3" {
		t.Errorf("axisArg(2,3) = %q", got)
	}
	if got := axisArg(grid.MustSpec(4)); got != "4" {
		t.Errorf("axisArg(4) = %q", got)
	}
}
