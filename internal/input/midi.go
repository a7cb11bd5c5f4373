package input

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"gitlab.com/gomidi/midi/v2/smf"
)

// NoteKey is the track key a MIDI note number maps to.
func NoteKey(note uint8) string {
	return "n" + strconv.Itoa(int(note))
}

// AllChannels selects every channel in MIDIOptions.
const AllChannels = -1

type MIDIOptions struct {
	// Channel filters note events; AllChannels keeps them all.
	Channel int
	// Transpose is added to every note number; notes shifted out of 0..127
	// are dropped.
	Transpose int
}

// ReadMIDI turns the note events of a standard MIDI file into a schedule.
// Times are milliseconds from the start of the file, tempo changes included.
func ReadMIDI(r io.Reader, opts MIDIOptions) (Schedule, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("read midi: %w", err)
	}
	var out Schedule
	for _, tr := range s.Tracks {
		var absTicks int64
		for _, ev := range tr {
			absTicks += int64(ev.Delta)
			var ch, key, vel uint8
			var state State
			switch {
			case ev.Message.GetNoteStart(&ch, &key, &vel):
				state = Down
			case ev.Message.GetNoteEnd(&ch, &key):
				state = Up
			default:
				continue
			}
			if opts.Channel != AllChannels && int(ch) != opts.Channel {
				continue
			}
			note := int(key) + opts.Transpose
			if note < 0 || note > 127 {
				continue
			}
			out = append(out, KeyEvent{
				Key:   NoteKey(uint8(note)),
				State: state,
				At:    float64(s.TimeAt(absTicks)) / 1000,
			})
		}
	}
	// A release and a re-press of the same note on one tick must release
	// first.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].At != out[j].At {
			return out[i].At < out[j].At
		}
		return out[i].State == Up && out[j].State == Down
	})
	return out, nil
}

func ReadMIDIFile(path string, opts MIDIOptions) (Schedule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadMIDI(f, opts)
}

// NoteRange returns the lowest and highest note numbers used by the schedule
// keys produced by ReadMIDI.
func (s Schedule) NoteRange() (lo, hi int, ok bool) {
	lo, hi = 128, -1
	for _, ev := range s {
		if len(ev.Key) < 2 || ev.Key[0] != 'n' {
			continue
		}
		n, err := strconv.Atoi(ev.Key[1:])
		if err != nil {
			continue
		}
		lo, hi = min(lo, n), max(hi, n)
	}
	return lo, hi, hi >= 0
}
