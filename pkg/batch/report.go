package batch

import (
	"fmt"
	"sync/atomic"
)

// Report counts what a run did. Counters are updated concurrently by the
// workers and are final once Run returns.
type Report struct {
	Files     atomic.Int64 // candidate files discovered
	Images    atomic.Int64 // files decoded as images
	Skipped   atomic.Int64 // files skipped as non-images or for a directory failure
	Tiles     atomic.Int64 // tiles planned
	Written   atomic.Int64 // tiles written
	Failed    atomic.Int64 // tiles skipped after an error
	Empty     atomic.Int64 // zero-area tiles not written
	Published atomic.Int64 // tiles uploaded
}

func (r *Report) String() string {
	return fmt.Sprintf("%d files, %d images, %d skipped; %d tiles: %d written, %d failed, %d empty, %d published",
		r.Files.Load(), r.Images.Load(), r.Skipped.Load(),
		r.Tiles.Load(), r.Written.Load(), r.Failed.Load(), r.Empty.Load(), r.Published.Load())
}
