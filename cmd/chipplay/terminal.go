package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/quasilyte/chipmix"
	"github.com/quasilyte/chipmix/internal/songload"
	"golang.org/x/term"
)

const (
	keyEscape = 0x1b
	keyCtrlC  = 0x03
)

// playTerminal plays the song through the default audio device.
// When stdin is a terminal, it's switched to the raw mode to read the control keys.
func playTerminal(song *songload.Song, timeout time.Duration) error {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   chipmix.SampleRate,
		ChannelCount: chipmix.Channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return fmt.Errorf("create audio context: %w", err)
	}
	<-ready

	player := ctx.NewPlayer(song.Stream)
	defer player.Close()

	keys := make(chan byte)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("set terminal raw mode: %w", err)
		}
		defer term.Restore(fd, oldState)
		go readKeys(os.Stdin, keys)
	}

	// Raw mode disables the output post-processing, hence the explicit \r.
	fmt.Printf("playing %q, press q to quit\r\n", song.Title)

	player.Play()
	paused := false
	deadline := time.After(timeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			return nil

		case <-ticker.C:
			if err := player.Err(); err != nil {
				return fmt.Errorf("playback: %w", err)
			}
			if !paused && !player.IsPlaying() {
				return nil
			}

		case k := <-keys:
			switch k {
			case 'q', keyEscape, keyCtrlC:
				return nil
			case 'p':
				paused = !paused
				if paused {
					player.Pause()
				} else {
					player.Play()
				}
			case 'l':
				loop := !song.Stream.Looping()
				song.Stream.SetLooping(loop)
				fmt.Printf("looping: %v\r\n", loop)
			case 'r':
				if _, err := player.Seek(0, io.SeekStart); err != nil {
					return fmt.Errorf("rewind: %w", err)
				}
				if !paused {
					player.Play()
				}
			}
		}
	}
}

func readKeys(r io.Reader, keys chan<- byte) {
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if err != nil {
			return
		}
		if n != 0 {
			keys <- buf[0]
		}
	}
}
