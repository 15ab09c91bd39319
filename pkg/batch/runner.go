// Package batch splits every image under a path into grid tiles.
package batch

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/PhantomInTheWire/splix/pkg/codec"
	"github.com/PhantomInTheWire/splix/pkg/grid"
	"github.com/PhantomInTheWire/splix/pkg/output"
	"github.com/PhantomInTheWire/splix/pkg/split"
)

// Request is a validated split request.
type Request struct {
	Source    string
	Rows      grid.Spec
	Cols      grid.Spec
	OutputDir string
	Recursive bool

	// Workers is the number of source files processed at once. Zero means
	// GOMAXPROCS.
	Workers int
	// TileWorkers is the number of tiles of one file written at once.
	TileWorkers int
}

// Stage is a step in the life of a source file or tile.
type Stage string

const (
	StageDiscovered Stage = "discovered"
	StageDecoded    Stage = "decoded"
	StagePlanned    Stage = "planned"
	StageCropped    Stage = "cropped"
	StageNamed      Stage = "named"
	StageWritten    Stage = "written"
	StageSkipped    Stage = "skipped"
	StageDone       Stage = "done"
)

// Codec turns source files into pixels and tiles back into files.
type Codec interface {
	Decode(path string) (*codec.Image, error)
	Encode(img image.Image, format codec.Format, path string) error
}

// Publisher receives every tile written to disk.
type Publisher interface {
	Publish(ctx context.Context, path string) error
}

// Runner applies a Request to every candidate file.
type Runner struct {
	Codec Codec
	// Publisher is optional.
	Publisher Publisher
	// Diag receives one line per failure. Defaults to os.Stderr.
	Diag io.Writer

	mu sync.Mutex
}

// NewRunner returns a Runner that decodes and encodes with c.
func NewRunner(c Codec) *Runner {
	return &Runner{Codec: c, Diag: os.Stderr}
}

// Run processes every file under req.Source. Failures are reported through
// Diag and counted in the returned Report; they never stop other files.
// Cancelling ctx stops new files from being started.
func (r *Runner) Run(ctx context.Context, req Request) *Report {
	rep := &Report{}
	workers := req.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	Logger().Info("split start", "source", req.Source, "rows", req.Rows.String(), "cols", req.Cols.String(),
		"output", req.OutputDir, "recursive", req.Recursive, "workers", workers)

	files := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range files {
				r.processFile(ctx, req, path, rep)
			}
		}()
	}

	walk := Walk{
		Root:      req.Source,
		Recursive: req.Recursive,
		Exclude:   []string{req.OutputDir},
		OnError: func(path string, err error) {
			r.diag(fmt.Errorf("cannot read %s: %w", path, err))
		},
	}
	err := walk.Each(func(path string) error {
		rep.Files.Add(1)
		select {
		case files <- path:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	close(files)
	wg.Wait()

	if err != nil {
		r.diag(fmt.Errorf("walk %s: %w", req.Source, err))
	}
	Logger().Info("split done", "report", rep.String())
	return rep
}

func (r *Runner) processFile(ctx context.Context, req Request, path string, rep *Report) {
	log := Logger().With("file", path)
	log.Debug("file", "stage", StageDiscovered)

	img, err := r.Codec.Decode(path)
	if err != nil {
		rep.Skipped.Add(1)
		log.Debug("file", "stage", StageSkipped, "err", &Error{Kind: Decode, Path: path, Err: err})
		return
	}
	rep.Images.Add(1)
	log.Debug("file", "stage", StageDecoded, "width", img.Width, "height", img.Height, "format", img.Format.String())

	stem, err := output.Stem(path)
	if err != nil {
		rep.Skipped.Add(1)
		r.diag(&Error{Kind: Decode, Path: path, Err: err})
		return
	}

	plan := grid.NewPlan(img.Width, img.Height, req.Rows, req.Cols)
	rep.Tiles.Add(int64(plan.Len()))
	log.Debug("file", "stage", StagePlanned, "rows", len(plan.Rows), "cols", len(plan.Cols))

	if err := output.EnsureDir(req.OutputDir); err != nil {
		rep.Skipped.Add(1)
		rep.Failed.Add(int64(plan.Len()))
		r.diag(&Error{Kind: Directory, Path: req.OutputDir, Err: err})
		return
	}

	t := tileJob{req: req, src: img, stem: stem, rep: rep}
	tileWorkers := min(max(req.TileWorkers, 1), plan.Len())
	if tileWorkers <= 1 {
		split.Tiles(img.Pixels, plan, func(tile split.Tile) bool {
			r.writeTile(ctx, t, tile)
			return true
		})
		log.Debug("file", "stage", StageDone)
		return
	}

	// tiles are cropped here and encoded by the workers
	tiles := make(chan split.Tile)
	var wg sync.WaitGroup
	for i := 0; i < tileWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tile := range tiles {
				r.writeTile(ctx, t, tile)
			}
		}()
	}
	split.Tiles(img.Pixels, plan, func(tile split.Tile) bool {
		tiles <- tile
		return true
	})
	close(tiles)
	wg.Wait()
	log.Debug("file", "stage", StageDone)
}

type tileJob struct {
	req  Request
	src  *codec.Image
	stem string
	rep  *Report
}

func (r *Runner) writeTile(ctx context.Context, t tileJob, tile split.Tile) {
	rect := tile.Rect
	dst := output.Resolve(t.req.OutputDir, t.stem, rect.Row, rect.Col, t.src.Format.Ext())
	if rect.Empty() {
		t.rep.Empty.Add(1)
		r.diagf("Skipping empty tile %s (%dx%d)", dst, rect.Width, rect.Height)
		return
	}

	log := Logger().With("tile", dst)
	log.Debug("tile", "stage", StageCropped, "x", rect.X, "y", rect.Y, "w", rect.Width, "h", rect.Height)
	log.Debug("tile", "stage", StageNamed)

	if err := output.Clear(dst); err != nil {
		t.rep.Failed.Add(1)
		r.diag(&Error{Kind: Collision, Path: dst, Err: err})
		return
	}
	if err := r.Codec.Encode(tile.Pixels, t.src.Format, dst); err != nil {
		t.rep.Failed.Add(1)
		r.diag(&Error{Kind: Encode, Path: dst, Err: err})
		return
	}
	t.rep.Written.Add(1)
	log.Debug("tile", "stage", StageWritten)

	if r.Publisher == nil {
		return
	}
	if err := r.Publisher.Publish(ctx, dst); err != nil {
		r.diag(&Error{Kind: Publish, Path: dst, Err: err})
		return
	}
	t.rep.Published.Add(1)
}

func (r *Runner) diag(err error) {
	Logger().Warn("skipped", "err", err)
	r.diagf("%v", err)
}

// diagf writes one line to Diag. Lines from concurrent workers never
// interleave.
func (r *Runner) diagf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := r.Diag
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "splix: "+format+"\n", args...)
}
