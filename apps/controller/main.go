// Command controller uploads source images to the bucket and starts one
// Kubernetes Job per image to split it in the cluster.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/PhantomInTheWire/splix/pkg/batch"
	"github.com/PhantomInTheWire/splix/pkg/codec"
	"github.com/PhantomInTheWire/splix/pkg/config"
	"github.com/PhantomInTheWire/splix/pkg/grid"
	"github.com/PhantomInTheWire/splix/pkg/kube"
	"github.com/PhantomInTheWire/splix/pkg/storage"
)

// sourcePrefix is where source images live in the bucket.
const sourcePrefix = "sources"

type uploader interface {
	Upload(ctx context.Context, file, key string) error
}

type dispatcher interface {
	Dispatch(ctx context.Context, sourceKey string) (string, error)
}

func main() {
	fs := pflag.NewFlagSet("controller", pflag.ExitOnError)
	rows := fs.IntSliceP("rows", "r", nil, "number of rows, or comma-separated row weights")
	cols := fs.IntSliceP("cols", "c", nil, "number of columns, or comma-separated column weights")
	recursive := fs.BoolP("recursive", "R", false, "search the directory for images recursively")
	cfgPath := fs.String("config", "", "YAML config file")
	kubeconfig := fs.String("kubeconfig", "", "path to kubeconfig (default ~/.kube/config)")
	_ = fs.Parse(os.Args[1:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: controller [flags] <images>")
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}
	args := config.Args{Source: fs.Arg(0), Recursive: *recursive}
	if fs.Changed("rows") {
		args.Rows = *rows
	}
	if fs.Changed("cols") {
		args.Cols = *cols
	}
	req, err := config.Request(args, cfg)
	if err != nil {
		log.Fatalf("splix: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if !cfg.Storage.Enabled() {
		log.Fatal("no bucket configured (storage.bucket or SPLIX_S3_BUCKET)")
	}
	up, err := storage.NewUploader(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("failed to connect to bucket: %v", err)
	}
	jobCfg := cfg.Kube
	jobCfg.Rows, jobCfg.Cols = axisArg(req.Rows), axisArg(req.Cols)
	d, err := kube.NewDispatcher(*kubeconfig, jobCfg)
	if err != nil {
		log.Fatalf("error connecting to cluster: %v", err)
	}

	if n := dispatchAll(ctx, req, up, d); n == 0 {
		log.Printf("No images in %s", req.Source)
	}
}

// axisArg renders a spec for the in-cluster command line. An unsplit axis
// is left out.
func axisArg(s grid.Spec) string {
	if s.Shorthand() && s.Weights()[0] == 1 {
		return ""
	}
	return s.String()
}

// sourceKey names the bucket object for file, keeping its path below root
// so images with the same name in different directories stay apart.
func sourceKey(root, file string) string {
	rel, err := filepath.Rel(root, file)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(file)
	}
	return path.Join(sourcePrefix, filepath.ToSlash(rel))
}

// dispatchAll uploads and dispatches every image under req.Source and
// returns how many Jobs were created. Failures are logged per image.
func dispatchAll(ctx context.Context, req batch.Request, up uploader, d dispatcher) int {
	created := 0
	walk := batch.Walk{
		Root:      req.Source,
		Recursive: req.Recursive,
		OnError: func(p string, err error) {
			log.Printf("cannot read %s: %v", p, err)
		},
	}
	err := walk.Each(func(file string) error {
		if _, err := codec.FormatFromPath(file); err != nil {
			return nil
		}
		key := sourceKey(req.Source, file)
		if err := up.Upload(ctx, file, key); err != nil {
			log.Printf("Failed to upload source %s: %v", file, err)
			return nil
		}
		name, err := d.Dispatch(ctx, key)
		if err != nil {
			log.Printf("Failed to create job for source %s: %v", file, err)
			return nil
		}
		created++
		log.Printf("Job %s created for source: %s", name, file)
		return ctx.Err()
	})
	if err != nil {
		log.Printf("walk %s: %v", req.Source, err)
	}
	return created
}
