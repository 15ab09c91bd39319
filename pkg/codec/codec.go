// Package codec decodes source images and encodes tiles.
package codec

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

// Format identifies an image container.
type Format int

const (
	Unknown Format = iota
	JPEG
	PNG
	GIF
	TIFF
	BMP
	WebP
)

var extensions = map[string]Format{
	"jpg":  JPEG,
	"jpeg": JPEG,
	"png":  PNG,
	"gif":  GIF,
	"tif":  TIFF,
	"tiff": TIFF,
	"bmp":  BMP,
	"webp": WebP,
}

// FormatFromPath maps a file extension to a Format.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	return Unknown, fmt.Errorf("%q: %w", filepath.Ext(path), ErrUnsupportedFormat)
}

func (f Format) String() string {
	switch f {
	case JPEG:
		return "JPEG"
	case PNG:
		return "PNG"
	case GIF:
		return "GIF"
	case TIFF:
		return "TIFF"
	case BMP:
		return "BMP"
	case WebP:
		return "WebP"
	}
	return "unknown"
}

// Output is the format tiles of this source are written in. WebP can only
// be decoded, so its tiles are written as PNG.
func (f Format) Output() Format {
	if f == WebP {
		return PNG
	}
	return f
}

// Ext is the canonical extension for tiles written in f.
func (f Format) Ext() string {
	switch f.Output() {
	case JPEG:
		return "jpg"
	case PNG:
		return "png"
	case GIF:
		return "gif"
	case TIFF:
		return "tiff"
	case BMP:
		return "bmp"
	}
	return ""
}

func (f Format) imaging() (imaging.Format, error) {
	switch f.Output() {
	case JPEG:
		return imaging.JPEG, nil
	case PNG:
		return imaging.PNG, nil
	case GIF:
		return imaging.GIF, nil
	case TIFF:
		return imaging.TIFF, nil
	case BMP:
		return imaging.BMP, nil
	}
	return 0, fmt.Errorf("encode %s: %w", f, ErrUnsupportedFormat)
}

// Image is a decoded source image.
type Image struct {
	Pixels image.Image
	Width  int
	Height int
	Format Format
}

// Codec decodes and encodes with imaging.
type Codec struct {
	// Quality is the JPEG quality, 1-100.
	Quality int
	// AutoOrient applies the EXIF orientation tag on decode.
	AutoOrient bool
}

// Decode reads path as an image. The format comes from the extension, the
// pixels from the content.
func (c Codec) Decode(path string) (*Image, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(c.AutoOrient))
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy())
	}
	return &Image{Pixels: img, Width: b.Dx(), Height: b.Dy(), Format: format}, nil
}

// EncodeTo writes img to w in format.
func (c Codec) EncodeTo(w io.Writer, img image.Image, format Format) error {
	f, err := format.imaging()
	if err != nil {
		return err
	}
	var opts []imaging.EncodeOption
	if c.Quality > 0 {
		opts = append(opts, imaging.JPEGQuality(c.Quality))
	}
	return imaging.Encode(w, img, f, opts...)
}

// Encode creates path and writes img into it. A partially written file is
// removed.
func (c Codec) Encode(img image.Image, format Format, path string) (err error) {
	if _, err := format.imaging(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = cErr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	return c.EncodeTo(f, img, format)
}
