package codec

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 16), G: uint8(y * 16), B: 0x80, A: 0xff})
		}
	}
	return img
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
		ext  string
	}{
		{"a/photo.JPEG", JPEG, "jpg"},
		{"photo.jpg", JPEG, "jpg"},
		{"scan.tif", TIFF, "tiff"},
		{"icon.png", PNG, "png"},
		{"anim.gif", GIF, "gif"},
		{"old.bmp", BMP, "bmp"},
		{"web.webp", WebP, "png"},
	}
	for _, tt := range tests {
		got, err := FormatFromPath(tt.path)
		if err != nil {
			t.Fatalf("FormatFromPath(%q): %v", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("FormatFromPath(%q) = %s, want %s", tt.path, got, tt.want)
		}
		if got.Ext() != tt.ext {
			t.Errorf("%s.Ext() = %q, want %q", got, got.Ext(), tt.ext)
		}
	}

	for _, p := range []string{"notes.txt", "Makefile", "archive.tar.gz"} {
		if _, err := FormatFromPath(p); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("FormatFromPath(%q) err = %v, want ErrUnsupportedFormat", p, err)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := Codec{Quality: 90}
	for _, f := range []Format{PNG, JPEG, GIF, TIFF, BMP} {
		path := filepath.Join(dir, "img."+f.Ext())
		if err := c.Encode(gradient(12, 7), f, path); err != nil {
			t.Fatalf("Encode %s: %v", f, err)
		}
		img, err := c.Decode(path)
		if err != nil {
			t.Fatalf("Decode %s: %v", f, err)
		}
		if img.Width != 12 || img.Height != 7 || img.Format != f {
			t.Errorf("%s decoded as %dx%d %s", f, img.Width, img.Height, img.Format)
		}
	}
}

func TestDecodeCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.png")
	if err := os.WriteFile(path, []byte("not a png"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := (Codec{}).Decode(path); err == nil {
		t.Error("Decode of corrupt file succeeded")
	}
}

func TestEncodeRemovesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.png")
	empty := image.NewNRGBA(image.Rect(0, 0, 0, 0))
	if err := (Codec{}).Encode(empty, PNG, path); err == nil {
		t.Fatal("Encode of empty image succeeded")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("partial file left behind: %v", err)
	}
}
