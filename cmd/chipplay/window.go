package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/quasilyte/chipmix"
	"github.com/quasilyte/chipmix/internal/songload"
	"github.com/quasilyte/chipmix/xm"
	"github.com/quasilyte/chipmix/xmfile"
)

// C-4 in the XM note numbering: (octave × 12) + note index + 1.
const synthNote = 49

var synthKeys = []ebiten.Key{
	ebiten.Key1, ebiten.Key2, ebiten.Key3,
	ebiten.Key4, ebiten.Key5, ebiten.Key6,
	ebiten.Key7, ebiten.Key8, ebiten.Key9,
}

// playWindow plays the song using the Ebitengine audio player.
//
// For XM songs, keys 1-9 play the module instruments on top of the song.
func playWindow(song *songload.Song, filename string, timeout time.Duration) error {
	// You can have multiple players, but only one audio context.
	audioContext := audio.NewContext(chipmix.SampleRate)
	player, err := audioContext.NewPlayer(song.Stream)
	if err != nil {
		return fmt.Errorf("create audio player: %w", err)
	}
	defer player.Close()

	g := &game{
		song:     song,
		player:   player,
		filename: filename,
		timeout:  timeout,
		started:  time.Now(),
	}

	if song.XM != nil {
		g.synth = xm.NewSynthesizer(xm.SynthesizerConfig{NumChannels: 2})
		if err := g.synth.LoadInstruments(song.XM, xm.Config{}); err != nil {
			return fmt.Errorf("load instruments: %w", err)
		}
		g.synthPlayer, err = audioContext.NewPlayer(g.synth)
		if err != nil {
			return fmt.Errorf("create synthesizer player: %w", err)
		}
		defer g.synthPlayer.Close()
	}

	ebiten.SetWindowTitle("chipplay: " + filename)
	player.Play()
	return ebiten.RunGame(g)
}

type game struct {
	song   *songload.Song
	player *audio.Player

	synth       *xm.Synthesizer
	synthPlayer *audio.Player

	filename string
	paused   bool

	timeout time.Duration
	started time.Time
}

func (g *game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || time.Since(g.started) > g.timeout {
		return ebiten.Termination
	}

	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
		if g.paused {
			g.player.Pause()
		} else {
			g.player.Play()
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyL) {
		g.song.Stream.SetLooping(!g.song.Stream.Looping())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		if err := g.player.Rewind(); err != nil {
			return err
		}
	}

	if g.synth == nil {
		return nil
	}
	for i, k := range synthKeys {
		if i >= len(g.song.XM.Instruments) {
			break
		}
		if !inpututil.IsKeyJustPressed(k) {
			continue
		}
		err := g.synth.PlayNote(0.5, xmfile.PatternNote{
			Note:       synthNote,
			Instrument: uint8(i + 1),
		})
		if err != nil {
			return err
		}
		if err := g.synthPlayer.Rewind(); err != nil {
			return err
		}
		g.synthPlayer.Play()
	}

	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %q (%s, %d channels)\n", g.filename, g.song.Title, g.song.Format, g.song.NumChannels)
	switch {
	case g.paused:
		b.WriteString("Paused... press SPACE\n")
	case !g.player.IsPlaying():
		b.WriteString("Finished, press R to replay\n")
	default:
		fmt.Fprintf(&b, "Playing %s\n", g.player.Position().Truncate(time.Second))
	}
	fmt.Fprintf(&b, "Looping: %v (L)\n", g.song.Stream.Looping())
	if g.synth != nil {
		b.WriteString("Keys 1-9 play the instruments\n")
	}
	ebitenutil.DebugPrint(screen, b.String())
}

func (g *game) Layout(_, _ int) (int, int) {
	return 640, 480
}
