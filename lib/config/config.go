// Package config loads the gifburst settings.
//
// Values come from config.yaml (if any), then GIFBURST_ prefixed
// environment variables, then command line flags. Nested keys map to
// upper case env names joined with _, e.g. GIFBURST_CAPTURE_INTERVAL.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kkyr/fig"
	"github.com/nvlled/gifburst/lib/framerate"
	"github.com/nvlled/gifburst/lib/gifenc"
	"github.com/spf13/pflag"
)

const EnvPrefix = "GIFBURST"

// Capture rates outside MinFps..MaxFps are clamped.
const (
	MinFps = 1
	MaxFps = 30
)

type Config struct {
	Capture struct {
		Interval time.Duration `default:"250ms"`
		Duration time.Duration `default:"4s"`
		// Fps overrides Interval when positive, clamped to MaxFps.
		Fps     int
		Display int
	}
	Gif struct {
		// Delay between frames in the output, the capture interval when zero.
		Delay   time.Duration
		Palette string `default:"mediancut"`
		Dither  bool
		// Loop is the GIF repetition count, 0 loops forever.
		Loop int
	}
	Cache struct {
		Dir string `default:"cache/gif"`
	}
	Log struct {
		Debug   bool
		Console bool
		NoColor bool
	}
	Monitoring struct {
		// Addr of the metrics server, disabled when empty.
		Addr      string
		Profiling bool
	}
}

// Load reads the configuration file from path, or from the default
// locations when path is empty. A missing file is only an error when
// path was given.
func Load(path string) (*Config, error) {
	var conf Config
	dirs := []string{path}
	if path == "" {
		dirs = append(dirs, ".", "configs")
		if home, err := os.UserHomeDir(); err == nil {
			dirs = append(dirs, home+"/.gifburst")
		}
	}
	err := fig.Load(&conf, fig.Dirs(dirs...), fig.UseEnv(EnvPrefix))
	if path == "" && errors.Is(err, fig.ErrFileNotFound) {
		conf = Config{}
		err = fig.Load(&conf, fig.IgnoreFile(), fig.UseEnv(EnvPrefix))
	}
	if err != nil {
		return nil, err
	}
	return &conf, nil
}

// Path picks the --conf value out of args without parsing anything else.
func Path(args []string) string {
	fs := pflag.NewFlagSet("conf", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	fs.SetOutput(io.Discard)
	path := fs.StringP("conf", "c", "", "")
	_ = fs.Parse(args)
	return *path
}

// WithFlags binds the settings to fs, keeping the loaded values as defaults.
func (c *Config) WithFlags(fs *pflag.FlagSet) *Config {
	fs.StringP("conf", "c", "", "Set custom configuration file path")
	fs.DurationVar(&c.Capture.Interval, "interval", c.Capture.Interval, "Time between two captures")
	fs.DurationVar(&c.Capture.Duration, "duration", c.Capture.Duration, "Total capture time")
	fs.IntVar(&c.Capture.Fps, "fps", c.Capture.Fps, "Captures per second, overrides --interval")
	fs.IntVar(&c.Capture.Display, "display", c.Capture.Display, "Index of the display to capture")
	fs.DurationVar(&c.Gif.Delay, "delay", c.Gif.Delay, "Frame delay of the gif, defaults to the capture interval")
	fs.StringVar(&c.Gif.Palette, "palette", c.Gif.Palette, "Palette generator: [mediancut, palgen]")
	fs.BoolVar(&c.Gif.Dither, "dither", c.Gif.Dither, "Dither frames onto the palette")
	fs.IntVar(&c.Gif.Loop, "loop", c.Gif.Loop, "Gif repetitions, 0 loops forever")
	fs.StringVar(&c.Cache.Dir, "cache", c.Cache.Dir, "Cache directory for the gifs")
	fs.BoolVarP(&c.Log.Debug, "debug", "d", c.Log.Debug, "Debug logging")
	fs.BoolVar(&c.Log.Console, "console", c.Log.Console, "Human readable logs")
	fs.BoolVar(&c.Log.NoColor, "nocolor", c.Log.NoColor, "Disable log colors")
	fs.StringVar(&c.Monitoring.Addr, "monitoring.addr", c.Monitoring.Addr, "Metrics server address, e.g. :9000")
	fs.BoolVar(&c.Monitoring.Profiling, "monitoring.profiling", c.Monitoring.Profiling, "Serve pprof handlers")
	return c
}

func (c *Config) Validate() error {
	if err := c.Cadence().Validate(); err != nil {
		return err
	}
	if c.Capture.Fps < 0 {
		return fmt.Errorf("negative fps %v", c.Capture.Fps)
	}
	if c.Capture.Display < 0 {
		return fmt.Errorf("negative display index %v", c.Capture.Display)
	}
	if c.Gif.Delay < 0 {
		return fmt.Errorf("negative gif delay %v", c.Gif.Delay)
	}
	if c.Gif.Loop < 0 || c.Gif.Loop > 0xffff {
		return fmt.Errorf("gif loop count %v out of range", c.Gif.Loop)
	}
	if c.Cache.Dir == "" {
		return errors.New("empty cache directory")
	}
	return gifenc.PaletteMode(c.Gif.Palette).Validate()
}

func (c *Config) Cadence() framerate.Cadence {
	if c.Capture.Fps > 0 {
		return framerate.FromRate(framerate.PerSecond(c.Capture.Fps).Clamp(MinFps, MaxFps), c.Capture.Duration)
	}
	return framerate.Cadence{Interval: c.Capture.Interval, Total: c.Capture.Duration}
}

func (c *Config) GifOptions() gifenc.Options {
	delay := c.Gif.Delay
	if delay == 0 {
		delay = c.Cadence().Interval
	}
	return gifenc.Options{
		Delay:     delay,
		LoopCount: c.Gif.Loop,
		Palette:   gifenc.PaletteMode(c.Gif.Palette),
		Dither:    c.Gif.Dither,
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("capture %v, gif %v/%v, cache %v", c.Cadence(), c.Gif.Palette, c.Gif.Delay, c.Cache.Dir)
}
