package keyfall

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/cbegin/keyfall-go/internal/bridge"
	"github.com/cbegin/keyfall-go/internal/config"
	"github.com/cbegin/keyfall-go/internal/engine"
	"github.com/cbegin/keyfall-go/internal/host"
	"github.com/cbegin/keyfall-go/internal/input"
	intlog "github.com/cbegin/keyfall-go/internal/log"
	"github.com/cbegin/keyfall-go/internal/raster"
	"github.com/cbegin/keyfall-go/internal/track"
)

type ExportOptions struct {
	Width, Height int
	FPS           float64
	Background    color.Color
	Settings      config.Settings
	Tracks        []track.Track
	// MaxFrames stops the export early; 0 renders until every note is gone.
	MaxFrames int
	Logger    *intlog.Logger
}

func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Width:      1280,
		Height:     720,
		FPS:        60,
		Background: color.Black,
		Settings:   config.Default(),
	}
}

// FrameFunc receives every rendered frame. The image is reused for the next
// frame.
type FrameFunc func(index int, at float64, img image.Image) error

// Export replays sched offline against a manual clock and renders a frame
// every 1/FPS seconds until the schedule is exhausted and the last note has
// scrolled away. It returns the number of frames rendered.
func Export(sched input.Schedule, opts ExportOptions, emit FrameFunc) (int, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return 0, fmt.Errorf("export: invalid frame size %dx%d", opts.Width, opts.Height)
	}
	if opts.FPS <= 0 {
		return 0, errors.New("export: fps must be positive")
	}
	if err := opts.Settings.Validate(); err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = intlog.Discard()
	}

	// Engine time never reaches 0, so the whole schedule starts at 1ms.
	const origin = 1
	clock := engine.NewManualClock(origin)
	h, err := host.NewLocal(host.Config{
		Settings: opts.Settings,
		Tracks:   opts.Tracks,
		Clock:    clock,
		Logger:   opts.Logger,
	})
	if err != nil {
		return 0, err
	}
	defer h.Close()

	pending := append(input.Schedule(nil), sched...)
	pending.Sort()
	// Release anything still held when the schedule ends; ups for idle keys
	// are ignored by the engine.
	end := pending.Duration()
	for _, key := range pending.Keys() {
		pending = append(pending, input.KeyEvent{Key: key, State: input.Up, At: end})
	}
	pending = pending.Shift(origin)

	r := raster.New(opts.Width, opts.Height, opts.Background, opts.Settings)
	rd := h.Reader()
	frame := bridge.NewFrame()
	step := 1000 / opts.FPS

	n := 0
	for {
		at := origin + float64(n)*step
		var due input.Schedule
		due, pending = pending.Until(at)
		for _, ev := range due {
			h.Key(ev)
		}
		clock.Set(at)
		h.Pump()
		rd.Load(frame)

		img := r.Render(frame, at)
		if err := emit(n, at, img); err != nil {
			return n, err
		}
		n++

		if len(pending) == 0 && !h.HasPendingWork() {
			break
		}
		if opts.MaxFrames > 0 && n >= opts.MaxFrames {
			opts.Logger.Warnf("export: stopped at %d frames with %d notes live", n, frame.Count())
			break
		}
	}
	opts.Logger.Infof("export: %d frames, %.1fs", n, float64(n)/opts.FPS)
	return n, nil
}

// PNGWriter returns a FrameFunc that writes frame_00000.png style files into
// dir.
func PNGWriter(dir string) (FrameFunc, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return func(index int, _ float64, img image.Image) error {
		path := filepath.Join(dir, fmt.Sprintf("frame_%05d.png", index))
		if err := raster.SavePNG(path, img); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		return nil
	}, nil
}

// KeyboardLayout lays out one lane per note between the lowest and highest
// note of a MIDI schedule, filling width. Lanes are keyed "n<note>".
func KeyboardLayout(sched input.Schedule, width, height float64, style track.RowOptions) []track.Track {
	lo, hi, ok := sched.NoteRange()
	if !ok {
		return nil
	}
	keys := make([]string, 0, hi-lo+1)
	for note := lo; note <= hi; note++ {
		keys = append(keys, input.NoteKey(uint8(note)))
	}
	n := float64(len(keys))
	style.Width = (width - style.Gap*(n-1)) / n
	style.BottomY = height
	if style.Height <= 0 {
		style.Height = height
	}
	return track.Row(keys, style)
}

// SortedKeys orders "n<note>" keys by note number and any other keys
// lexically after them.
func SortedKeys(keys []string) []string {
	out := append([]string(nil), keys...)
	num := func(k string) (int, bool) {
		if len(k) < 2 || k[0] != 'n' {
			return 0, false
		}
		n, err := strconv.Atoi(k[1:])
		return n, err == nil
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, aok := num(out[i])
		b, bok := num(out[j])
		switch {
		case aok && bok:
			return a < b
		case aok != bok:
			return aok
		default:
			return out[i] < out[j]
		}
	})
	return out
}
