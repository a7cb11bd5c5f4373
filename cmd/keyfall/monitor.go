package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cbegin/keyfall-go"
	"github.com/cbegin/keyfall-go/internal/input"
	intlog "github.com/cbegin/keyfall-go/internal/log"
	"github.com/cbegin/keyfall-go/internal/monitor"
	"github.com/cbegin/keyfall-go/internal/track"
)

const pumpInterval = 4 * time.Millisecond

var (
	monitorFlags settingsFlags
	monitorKeys  string
	monitorLocal bool
	monitorLoop  bool
	monitorRate  float64
)

func init() {
	monitorFlags.register(monitorCmd)
	fl := monitorCmd.Flags()
	fl.StringVar(&monitorKeys, "keys", "A,S,D,F", "keys for the built-in demo pattern")
	fl.BoolVar(&monitorLocal, "local", false, "pump a local host instead of the background worker")
	fl.BoolVar(&monitorLoop, "loop", false, "repeat the replay until quit")
	fl.Float64Var(&monitorRate, "rate", 1, "playback rate")
	rootCmd.AddCommand(monitorCmd)
}

var monitorCmd = &cobra.Command{
	Use:   "monitor [file.mid]",
	Short: "Replay key presses and watch the note lifecycle in the terminal",
	Long: `Replay a MIDI file, or a built-in pattern over --keys, through the note
engine in real time and show held keys, live notes and lifecycle events.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		return runMonitor(path)
	},
}

// demoSchedule plays an ascending run over keys with a short tap, a held note
// and a chord.
func demoSchedule(keys []string) input.Schedule {
	var s input.Schedule
	at := 0.0
	for i, k := range keys {
		hold := 60.0
		if i%2 == 1 {
			hold = 400
		}
		s = append(s,
			input.KeyEvent{Key: k, State: input.Down, At: at},
			input.KeyEvent{Key: k, State: input.Up, At: at + hold},
		)
		at += 250
	}
	for _, k := range keys {
		s = append(s,
			input.KeyEvent{Key: k, State: input.Down, At: at},
			input.KeyEvent{Key: k, State: input.Up, At: at + 300},
		)
	}
	s.Sort()
	return s
}

func runMonitor(path string) error {
	settings, err := monitorFlags.settings()
	if err != nil {
		return err
	}
	if monitorRate <= 0 {
		return fmt.Errorf("rate must be positive")
	}
	style, err := monitorFlags.style()
	if err != nil {
		return err
	}
	style.Height = settings.TrackHeight
	style.BottomY = settings.TrackHeight

	var (
		sched  input.Schedule
		tracks []track.Track
		title  = "demo"
	)
	if path != "" {
		sched, err = input.ReadMIDIFile(path, input.MIDIOptions{Channel: input.AllChannels})
		if err != nil {
			return err
		}
		tracks = keyfall.KeyboardLayout(sched, 800, settings.TrackHeight, style)
		title = filepath.Base(path)
	} else {
		keys := splitKeys(monitorKeys)
		style.Width = 40
		tracks = track.Row(keys, style)
		sched = demoSchedule(keys)
	}
	if layout, err := monitorFlags.loadLayout(); err != nil {
		return err
	} else if layout != nil {
		tracks = layout
	}
	if len(sched) == 0 {
		return fmt.Errorf("nothing to replay")
	}

	// The terminal belongs to the UI; keep log output off it.
	o, err := keyfall.New(
		keyfall.WithSettings(settings),
		keyfall.WithTracks(tracks),
		keyfall.WithBackground(!monitorLocal),
		keyfall.WithLogger(intlog.Discard()),
	)
	if err != nil {
		return err
	}
	defer o.Close()

	keys := make([]string, 0, len(tracks))
	for _, t := range tracks {
		keys = append(keys, t.Key)
	}
	model := monitor.New(o.Subscribe(), fmt.Sprintf("keyfall %s (%s host)", title, o.HostKind()), keyfall.SortedKeys(keys))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go replay(ctx, o, sched)
	if monitorLocal {
		go pump(ctx, o)
	}

	_, err = tea.NewProgram(model).Run()
	return err
}

// replay sends sched to o in real time, scaled by --rate.
func replay(ctx context.Context, o *keyfall.Overlay, sched input.Schedule) {
	for {
		start := time.Now()
		for _, ev := range sched {
			wait := time.Duration(ev.At/monitorRate*float64(time.Millisecond)) - time.Since(start)
			if wait > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(wait):
				}
			}
			o.Key(input.KeyEvent{Key: ev.Key, State: ev.State})
		}
		if !monitorLoop {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func pump(ctx context.Context, o *keyfall.Overlay) {
	t := time.NewTicker(pumpInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			o.Pump()
		}
	}
}
