// Command chipplay plays XM and MOD files.
//
// Usage:
//
//	chipplay song.xm                 # play in the terminal
//	chipplay -window song.mod        # play in a window
//	chipplay -out song.wav song.mod  # render into a WAV file
//
// The terminal mode keys: p (pause), l (toggle looping), r (rewind), q or ESC (quit).
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/quasilyte/chipmix"
	"github.com/quasilyte/chipmix/internal/songload"
	"github.com/quasilyte/chipmix/internal/wavout"
)

const defaultTimeout = 5 * time.Minute

type options struct {
	song    songload.Config
	out     string
	window  bool
	timeout time.Duration
	verbose bool
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("chipplay: ")

	var opts options
	opts.song.BindFlags(flag.CommandLine)
	flag.StringVar(&opts.out, "out", "", "render into the WAV file instead of playing")
	flag.BoolVar(&opts.window, "window", false, "play in a window")
	flag.DurationVar(&opts.timeout, "timeout", defaultTimeout, "stop the playback after this duration")
	flag.BoolVar(&opts.verbose, "v", false, "print the song info and the progress")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: chipplay [flags] path/to/song.{xm,mod}\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), opts); err != nil {
		log.Fatal(err)
	}
}

func run(filename string, opts options) error {
	if opts.timeout <= 0 {
		return errors.New("-timeout must be positive")
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read module file: %w", err)
	}
	song, err := songload.Load(data, opts.song)
	if err != nil {
		return fmt.Errorf("load %s: %w", filename, err)
	}

	if opts.verbose {
		info := song.Stream.GetInfo()
		log.Printf("%s: %q (%s, %d channels, %d KiB of sample memory)",
			filename, song.Title, song.Format, song.NumChannels, info.MemoryUsage/1024)
		song.Stream.SetEventHandler(func(e chipmix.StreamEvent) {
			if e.Kind == chipmix.EventComplete {
				log.Printf("song end at %.2fs", e.Time)
			}
		})
	}

	switch {
	case opts.out != "":
		return renderWAV(song, opts.out, opts.timeout)
	case opts.window:
		return playWindow(song, filename, opts.timeout)
	default:
		return playTerminal(song, opts.timeout)
	}
}

func renderWAV(song *songload.Song, path string, timeout time.Duration) error {
	frames, err := wavout.Render(path, song.Stream, int(timeout.Seconds()*chipmix.SampleRate))
	if err != nil {
		return err
	}
	log.Printf("wrote %s (%.2fs)", path, float64(frames)/chipmix.SampleRate)
	return nil
}
