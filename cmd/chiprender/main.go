// Command chiprender renders XM and MOD files into WAV files.
//
// Usage:
//
//	chiprender -dir out -j 4 a.xm b.mod c.mod
//
// Every input file is rendered by its own goroutine, -j limits how many
// of them run at once. The output file is named after the input one.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/quasilyte/chipmix"
	"github.com/quasilyte/chipmix/internal/songload"
	"github.com/quasilyte/chipmix/internal/wavout"
	"golang.org/x/sync/errgroup"
)

const defaultTimeout = 5 * time.Minute

type options struct {
	song    songload.Config
	dir     string
	jobs    int
	timeout time.Duration
	verbose bool
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("chiprender: ")

	var opts options
	opts.song.BindFlags(flag.CommandLine)
	flag.StringVar(&opts.dir, "dir", ".", "output directory")
	flag.IntVar(&opts.jobs, "j", runtime.NumCPU(), "max number of files rendered at once")
	flag.DurationVar(&opts.timeout, "timeout", defaultTimeout, "max rendered duration per file")
	flag.BoolVar(&opts.verbose, "v", false, "print every rendered file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: chiprender [flags] files...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(context.Background(), flag.Args(), opts); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, files []string, opts options) error {
	if opts.jobs <= 0 {
		return errors.New("-j must be positive")
	}
	if opts.timeout <= 0 {
		return errors.New("-timeout must be positive")
	}
	if err := os.MkdirAll(opts.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.jobs)
	for _, filename := range files {
		filename := filename
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out := outputPath(opts.dir, filename)
			frames, err := renderFile(filename, out, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", filename, err)
			}
			if opts.verbose {
				log.Printf("%s -> %s (%.2fs)", filename, out, float64(frames)/chipmix.SampleRate)
			}
			return nil
		})
	}
	return g.Wait()
}

func renderFile(filename, out string, opts options) (int, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return 0, err
	}
	song, err := songload.Load(data, opts.song)
	if err != nil {
		return 0, err
	}
	return wavout.Render(out, song.Stream, int(opts.timeout.Seconds()*chipmix.SampleRate))
}

func outputPath(dir, filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+".wav")
}
