package songload

import (
	"flag"
	"fmt"
	"strings"

	"github.com/quasilyte/chipmix/amiga"
	"github.com/quasilyte/chipmix/protracker"
	"github.com/quasilyte/chipmix/soundblaster"
)

// BindFlags registers the command-line flags for the chip and player settings.
// The flags write directly into c.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.Loop, "loop", c.Loop, "loop the song")
	fs.BoolVar(&c.NTSC, "ntsc", c.NTSC, "use the NTSC timing for MOD files")
	fs.Func("quality", "XM mixing quality: accurate or fast", func(s string) error {
		return parseEnum(s, &c.Quality, soundblaster.Accurate, soundblaster.Fast)
	})
	fs.Func("model", "MOD output filter model: A500 or A1200", func(s string) error {
		return parseEnum(s, &c.Model, amiga.ModelA500, amiga.ModelA1200)
	})
	fs.Func("filter", "MOD LED filter: auto, on or off", func(s string) error {
		return parseEnum(s, &c.Filter, amiga.FilterAuto, amiga.FilterOn, amiga.FilterOff)
	})
	fs.Func("version", "MOD replay routine version: auto, 1.0, 1.1 or 1.2", func(s string) error {
		return parseEnum(s, &c.Version, protracker.VersionAuto, protracker.Version10, protracker.Version11, protracker.Version12)
	})
}

func parseEnum[T fmt.Stringer](s string, dst *T, values ...T) error {
	names := make([]string, len(values))
	for i, v := range values {
		if strings.EqualFold(s, v.String()) {
			*dst = v
			return nil
		}
		names[i] = v.String()
	}
	return fmt.Errorf("unexpected value %q, expected one of: %s", s, strings.Join(names, ", "))
}
