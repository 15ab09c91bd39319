// Package split cuts decoded images into independent tiles.
package split

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/PhantomInTheWire/splix/pkg/grid"
)

// Tile is one cell of the output grid with its own pixel buffer.
type Tile struct {
	Rect   grid.Rect
	Pixels *image.NRGBA
}

// Crop copies r out of src. The rectangle is relative to src's origin and
// the returned buffer never shares storage with src.
func Crop(src image.Image, r grid.Rect) *image.NRGBA {
	origin := src.Bounds().Min
	return imaging.Crop(src, r.Bounds().Add(origin))
}

// Tiles crops every rectangle of the plan in row-major order and hands each
// tile to fn. Iteration stops when fn returns false. Tiles are created one
// at a time so at most one is alive per caller.
func Tiles(src image.Image, plan grid.Plan, fn func(Tile) bool) {
	for _, r := range plan.Rects() {
		if !fn(Tile{Rect: r, Pixels: Crop(src, r)}) {
			return
		}
	}
}
