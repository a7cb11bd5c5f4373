package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cbegin/keyfall-go"
	"github.com/cbegin/keyfall-go/internal/input"
)

var (
	exportFlags     settingsFlags
	exportOut       string
	exportWidth     int
	exportHeight    int
	exportFPS       float64
	exportMaxFrames int
	exportBG        string
	exportChannel   int
	exportTranspose int
)

func init() {
	exportFlags.register(exportCmd)
	fl := exportCmd.Flags()
	fl.StringVarP(&exportOut, "out", "o", "frames", "output directory for PNG frames")
	fl.IntVar(&exportWidth, "width", 1280, "frame width")
	fl.IntVar(&exportHeight, "height", 720, "frame height")
	fl.Float64Var(&exportFPS, "fps", 60, "frames per second")
	fl.IntVar(&exportMaxFrames, "max-frames", 0, "stop after this many frames (0 = until the last note is gone)")
	fl.StringVar(&exportBG, "background", "black", "frame background color or transparent")
	fl.IntVar(&exportChannel, "channel", input.AllChannels, "MIDI channel to read (-1 = all)")
	fl.IntVar(&exportTranspose, "transpose", 0, "semitones added to every note")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <file.mid>",
	Short: "Render a MIDI file to PNG frames",
	Long: `Render a MIDI file to a numbered PNG sequence, one lane per note between
the lowest and highest note played. Combine the frames with e.g.
ffmpeg -i frames/frame_%05d.png.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(args[0])
	},
}

func runExport(path string) error {
	logger := newLogger()
	sched, err := input.ReadMIDIFile(path, input.MIDIOptions{Channel: exportChannel, Transpose: exportTranspose})
	if err != nil {
		return err
	}
	if len(sched) == 0 {
		return fmt.Errorf("%s: no notes", path)
	}
	settings, err := exportFlags.settings()
	if err != nil {
		return err
	}
	bg, err := parseBackground(exportBG)
	if err != nil {
		return err
	}

	opts := keyfall.DefaultExportOptions()
	opts.Width, opts.Height = exportWidth, exportHeight
	opts.FPS = exportFPS
	opts.MaxFrames = exportMaxFrames
	opts.Background = bg
	opts.Settings = settings
	opts.Logger = logger
	opts.Tracks, err = exportFlags.loadLayout()
	if err != nil {
		return err
	}
	if opts.Tracks == nil {
		style, err := exportFlags.style()
		if err != nil {
			return err
		}
		opts.Tracks = keyfall.KeyboardLayout(sched, float64(exportWidth), float64(exportHeight), style)
	}

	emit, err := keyfall.PNGWriter(exportOut)
	if err != nil {
		return err
	}
	lo, hi, _ := sched.NoteRange()
	logger.Infof("export: %s, %d events, notes %d..%d, %.1fs", path, len(sched), lo, hi, sched.Duration()/1000)
	n, err := keyfall.Export(sched, opts, emit)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %d frames to %s\n", n, exportOut)
	return nil
}
