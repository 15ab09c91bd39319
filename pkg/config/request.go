package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/PhantomInTheWire/splix/pkg/batch"
	"github.com/PhantomInTheWire/splix/pkg/grid"
)

// Args are the per-run values from the command line. A nil Rows or Cols
// means the axis was not given.
type Args struct {
	Source    string
	Rows      []int
	Cols      []int
	OutputDir string
	Recursive bool
}

func invalid(arg, format string, a ...any) error {
	return &batch.Error{Kind: batch.Validation, Path: arg, Err: fmt.Errorf(format, a...)}
}

// Request validates args and combines them with cfg. Every returned error
// is a *batch.Error of kind Validation.
func Request(args Args, cfg Config) (batch.Request, error) {
	if args.Source == "" {
		return batch.Request{}, invalid("image", "No image path provided")
	}
	if _, err := os.Stat(args.Source); err != nil {
		return batch.Request{}, invalid("image", "The provided path '%s' does not exist", args.Source)
	}
	if args.Rows == nil && args.Cols == nil {
		return batch.Request{}, invalid("", "At least one of '--rows', '--cols' needs to be specified")
	}

	rows, err := axis(args.Rows, "rows", "row")
	if err != nil {
		return batch.Request{}, err
	}
	cols, err := axis(args.Cols, "cols", "column")
	if err != nil {
		return batch.Request{}, err
	}

	outDir := args.OutputDir
	if outDir == "" {
		outDir = cfg.OutputDir
	}
	if cfg.Workers < 0 || cfg.TileWorkers < 0 {
		return batch.Request{}, invalid("jobs", "Worker counts must not be negative")
	}
	if cfg.Quality < 1 || cfg.Quality > 100 {
		return batch.Request{}, invalid("quality", "JPEG quality must be between 1 and 100, got %d", cfg.Quality)
	}

	return batch.Request{
		Source:      args.Source,
		Rows:        rows,
		Cols:        cols,
		OutputDir:   outDir,
		Recursive:   args.Recursive,
		Workers:     cfg.Workers,
		TileWorkers: cfg.TileWorkers,
	}, nil
}

func axis(weights []int, arg, noun string) (grid.Spec, error) {
	if weights == nil {
		return grid.Single, nil
	}
	spec, err := grid.NewSpec(weights...)
	switch {
	case errors.Is(err, grid.ErrEmptySpec):
		return grid.Spec{}, invalid(arg, "At least one %s size is required", noun)
	case errors.Is(err, grid.ErrNonPositiveWeight):
		return grid.Spec{}, invalid(arg, "All %s sizes must be greater than zero", noun)
	case err != nil:
		return grid.Spec{}, invalid(arg, "%v", err)
	}
	return spec, nil
}
