// Command splix splits images into a grid of tiles.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/pflag"

	"github.com/PhantomInTheWire/splix/pkg/batch"
	"github.com/PhantomInTheWire/splix/pkg/codec"
	"github.com/PhantomInTheWire/splix/pkg/config"
	"github.com/PhantomInTheWire/splix/pkg/storage"
)

var version = "dev"

const usage = `Usage: splix [flags] <images>

Split an image, or every image in a directory, into a grid of tiles.

  -r 4        Split the image into 4 equal rows.
  -r 2,3,1,5  Split the image into four rows of different heights. The image
              is divided vertically into 2+3+1+5=11 equal sections; the first
              row takes 2 sections, the second 3, and so on.

Columns work the same way with -c.

Flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	if code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, argv []string, stderr io.Writer) int {
	fs := pflag.NewFlagSet("splix", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	rows := fs.IntSliceP("rows", "r", nil, "number of rows, or comma-separated row weights")
	cols := fs.IntSliceP("cols", "c", nil, "number of columns, or comma-separated column weights")
	outDir := fs.StringP("output-dir", "d", "", "directory to save the tiles in (default \"splixed-images\")")
	recursive := fs.BoolP("recursive", "R", false, "search the directory for images recursively")
	workers := fs.IntP("jobs", "j", -1, "images processed at once (default GOMAXPROCS)")
	tileWorkers := fs.Int("tile-jobs", -1, "tiles of one image written at once (default 1)")
	quality := fs.IntP("quality", "q", -1, "JPEG quality, 1-100 (default 95)")
	upload := fs.Bool("upload", false, "upload every tile to the configured bucket")
	cfgPath := fs.String("config", "", "YAML config file")
	logLevel := fs.String("log-level", "", "debug, info, warn or error (default warn)")
	showVersion := fs.Bool("version", false, "print the version and exit")

	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *showVersion {
		fmt.Fprintln(stderr, "splix", version)
		return 0
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "splix: %v\n", err)
		return 2
	}
	if fs.Changed("jobs") {
		cfg.Workers = *workers
	}
	if fs.Changed("tile-jobs") {
		cfg.TileWorkers = *tileWorkers
	}
	if fs.Changed("quality") {
		cfg.Quality = *quality
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "splix: log-level: %v\n", err)
		return 2
	}
	batch.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	args := config.Args{OutputDir: *outDir, Recursive: *recursive}
	if fs.NArg() > 0 {
		args.Source = fs.Arg(0)
	}
	if fs.Changed("rows") {
		args.Rows = append([]int{}, (*rows)...)
	}
	if fs.Changed("cols") {
		args.Cols = append([]int{}, (*cols)...)
	}
	req, err := config.Request(args, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "splix: %v\n", err)
		return 2
	}

	runner := batch.NewRunner(codec.Codec{Quality: cfg.Quality, AutoOrient: cfg.AutoOrient})
	runner.Diag = stderr
	if *upload {
		if !cfg.Storage.Enabled() {
			fmt.Fprintln(stderr, "splix: upload: no bucket configured (storage.bucket or SPLIX_S3_BUCKET)")
			return 2
		}
		up, err := storage.NewUploader(ctx, cfg.Storage)
		if err != nil {
			fmt.Fprintf(stderr, "splix: upload: %v\n", err)
			return 2
		}
		runner.Publisher = up
	}

	rep := runner.Run(ctx, req)
	if rep.Images.Load() == 0 {
		batch.Logger().Warn("no images found", "source", req.Source)
	}
	return 0
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(strings.TrimSpace(s)))
	return l, err
}
