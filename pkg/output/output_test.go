package output

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestName(t *testing.T) {
	if got := Name("cat", 2, 10, "jpg"); got != "cat-r2c10.jpg" {
		t.Errorf("Name = %q", got)
	}
	if got := Resolve("out", "cat", 0, 0, "png"); got != filepath.Join("out", "cat-r0c0.png") {
		t.Errorf("Resolve = %q", got)
	}
}

func TestNamesAreDistinct(t *testing.T) {
	seen := map[string]bool{}
	for r := 0; r < 16; r++ {
		for c := 0; c < 16; c++ {
			p := Resolve("out", "img", r, c, "png")
			if seen[p] {
				t.Fatalf("duplicate path %s", p)
			}
			seen[p] = true
		}
	}
	// r1c11 and r11c1 must not collide
	if Name("a", 1, 11, "png") == Name("a", 11, 1, "png") {
		t.Error("r1c11 collides with r11c1")
	}
}

func TestStem(t *testing.T) {
	tests := map[string]string{
		"photos/holiday.beach.jpg": "holiday.beach",
		"scan.TIFF":                "scan",
		"noext":                    "noext",
	}
	for in, want := range tests {
		got, err := Stem(in)
		if err != nil || got != want {
			t.Errorf("Stem(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := Stem("/"); err == nil {
		t.Error("Stem(/) succeeded")
	}
}

func TestEnsureDirConcurrent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- EnsureDir(dir)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("EnsureDir: %v", err)
		}
	}
}

func TestEnsureDirOverFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "taken")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := EnsureDir(file); err == nil {
		t.Error("EnsureDir over a regular file succeeded")
	}
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "old-r0c0.png")
	if err := Clear(path); err != nil {
		t.Fatalf("Clear on missing file: %v", err)
	}
	if err := os.WriteFile(path, []byte("stale"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := Clear(path); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still present: %v", err)
	}

	sub := filepath.Join(dir, "blocked-r0c0.png")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := Clear(sub); err == nil {
		t.Error("Clear on a directory succeeded")
	}
}
