package main

import (
	"fmt"
	"image/color"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cbegin/keyfall-go/internal/config"
	intlog "github.com/cbegin/keyfall-go/internal/log"
	"github.com/cbegin/keyfall-go/internal/track"
)

var rootCmd = &cobra.Command{
	Use:   "keyfall",
	Short: "Falling note trails for key presses",
	Long: `keyfall draws a note in a lane for every key press. The note grows while
the key is held and scrolls away once it is released.`,
	SilenceUsage: true,
}

var logLevel string

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug|info|warn|error|none")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func newLogger() *intlog.Logger {
	return intlog.New(os.Stderr, intlog.LevelFromString(logLevel))
}

// settingsFlags are the note effect flags shared by every subcommand.
type settingsFlags struct {
	speed      float64
	reverse    bool
	delayed    bool
	fade       string
	fadeZone   float64
	radius     float64
	minLength  float64
	color      string
	opacity    float64
	glow       float64
	glowAlpha  float64
	gap        float64
	layoutPath string
}

func (f *settingsFlags) register(cmd *cobra.Command) {
	d := config.Default()
	fl := cmd.Flags()
	fl.Float64Var(&f.speed, "speed", d.Speed, "flow speed in pixels per second")
	fl.BoolVar(&f.reverse, "reverse", false, "notes flow down from the top of the lane")
	fl.BoolVar(&f.delayed, "delayed", false, "stretch short taps to the minimum length")
	fl.StringVar(&f.fade, "fade", string(d.FadePosition), "fade edge: auto|top|bottom|none")
	fl.Float64Var(&f.fadeZone, "fade-zone", d.FadeZonePx, "fade zone height in pixels")
	fl.Float64Var(&f.radius, "radius", d.BorderRadius, "note corner radius in pixels")
	fl.Float64Var(&f.minLength, "min-length", d.ShortNoteMinLengthPx, "minimum length of a delayed short note in pixels")
	fl.StringVar(&f.color, "color", "#4fc3f7..#0277bd", "note color or top..bottom gradient")
	fl.Float64Var(&f.opacity, "opacity", 0.9, "note opacity")
	fl.Float64Var(&f.glow, "glow", 0, "glow size in pixels (0 disables)")
	fl.Float64Var(&f.glowAlpha, "glow-opacity", 0.5, "glow opacity")
	fl.Float64Var(&f.gap, "gap", 4, "gap between generated lanes in pixels")
	fl.StringVar(&f.layoutPath, "layout", "", "JSON track layout; overrides the generated lanes")
}

func (f *settingsFlags) settings() (config.Settings, error) {
	fade, err := config.ParseFadePosition(f.fade)
	if err != nil {
		return config.Settings{}, err
	}
	s := config.Default()
	s.Speed = f.speed
	s.Reverse = f.reverse
	s.DelayedNoteEnabled = f.delayed
	s.FadePosition = fade
	s.FadeZonePx = f.fadeZone
	s.BorderRadius = f.radius
	s.ShortNoteMinLengthPx = f.minLength
	return s, s.Validate()
}

// style is the lane style for generated layouts.
func (f *settingsFlags) style() (track.RowOptions, error) {
	g, err := track.ParseGradient(f.color)
	if err != nil {
		return track.RowOptions{}, err
	}
	opts := track.RowOptions{Gap: f.gap, Color: g, Opacity: f.opacity, BorderRadius: f.radius}
	if f.glow > 0 {
		opts.Glow = track.Glow{Enabled: true, Size: f.glow, Opacity: f.glowAlpha, Color: g}
	}
	return opts, nil
}

// loadLayout reads the --layout file, or returns nil when none was given.
func (f *settingsFlags) loadLayout() ([]track.Track, error) {
	if f.layoutPath == "" {
		return nil, nil
	}
	file, err := os.Open(f.layoutPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	tracks, err := track.LoadLayout(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.layoutPath, err)
	}
	return tracks, nil
}

func splitKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func parseBackground(s string) (color.Color, error) {
	if s == "" || strings.EqualFold(s, "transparent") {
		return color.Transparent, nil
	}
	c, err := track.ParseColor(s)
	if err != nil {
		return nil, err
	}
	return c.NRGBA(), nil
}
