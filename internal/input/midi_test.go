package input

import (
	"bytes"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// writeSMF builds a one-track file at 120 bpm with 480 ticks per quarter, so
// one tick is 1000/960 ms.
func writeSMF(t *testing.T, add func(tr *smf.Track)) *bytes.Buffer {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(480)
	var tr smf.Track
	tr.Add(0, smf.MetaTempo(120))
	add(&tr)
	tr.Close(0)
	if err := s.Add(tr); err != nil {
		t.Fatalf("add track: %v", err)
	}
	var out bytes.Buffer
	if _, err := s.WriteTo(&out); err != nil {
		t.Fatalf("write smf: %v", err)
	}
	return &out
}

func TestReadMIDI(t *testing.T) {
	data := writeSMF(t, func(tr *smf.Track) {
		tr.Add(0, midi.NoteOn(0, 60, 100))
		tr.Add(480, midi.NoteOff(0, 60))   // 500ms
		tr.Add(0, midi.NoteOn(1, 64, 90))  // 500ms
		tr.Add(240, midi.NoteOn(1, 64, 0)) // 750ms, velocity 0 ends the note
	})
	sched, err := ReadMIDI(data, MIDIOptions{Channel: AllChannels})
	if err != nil {
		t.Fatalf("ReadMIDI: %v", err)
	}
	want := Schedule{
		{Key: "n60", State: Down, At: 0},
		{Key: "n60", State: Up, At: 500},
		{Key: "n64", State: Down, At: 500},
		{Key: "n64", State: Up, At: 750},
	}
	if len(sched) != len(want) {
		t.Fatalf("got %d events %v, want %d", len(sched), sched, len(want))
	}
	for i := range want {
		if sched[i] != want[i] {
			t.Fatalf("event %d = %v, want %v", i, sched[i], want[i])
		}
	}
	if lo, hi, ok := sched.NoteRange(); !ok || lo != 60 || hi != 64 {
		t.Fatalf("NoteRange = %d, %d, %v", lo, hi, ok)
	}
}

func TestReadMIDIReleaseBeforeRepress(t *testing.T) {
	data := writeSMF(t, func(tr *smf.Track) {
		tr.Add(0, midi.NoteOn(0, 50, 100))
		// Re-press written before the release on the same tick.
		tr.Add(480, midi.NoteOn(0, 50, 100))
		tr.Add(0, midi.NoteOff(0, 50))
		tr.Add(480, midi.NoteOff(0, 50))
	})
	sched, err := ReadMIDI(data, MIDIOptions{Channel: AllChannels})
	if err != nil {
		t.Fatalf("ReadMIDI: %v", err)
	}
	if len(sched) != 4 || sched[1].State != Up || sched[2].State != Down {
		t.Fatalf("schedule = %v", sched)
	}
}

func TestReadMIDIChannelAndTranspose(t *testing.T) {
	data := writeSMF(t, func(tr *smf.Track) {
		tr.Add(0, midi.NoteOn(0, 60, 100))
		tr.Add(0, midi.NoteOn(2, 126, 100))
		tr.Add(10, midi.NoteOff(0, 60))
		tr.Add(0, midi.NoteOff(2, 126))
	})
	sched, err := ReadMIDI(data, MIDIOptions{Channel: 2, Transpose: 1})
	if err != nil {
		t.Fatalf("ReadMIDI: %v", err)
	}
	if len(sched) != 2 || sched[0].Key != "n127" {
		t.Fatalf("schedule = %v", sched)
	}
	data = writeSMF(t, func(tr *smf.Track) {
		tr.Add(0, midi.NoteOn(0, 127, 100))
		tr.Add(10, midi.NoteOff(0, 127))
	})
	sched, err = ReadMIDI(data, MIDIOptions{Channel: AllChannels, Transpose: 1})
	if err != nil {
		t.Fatalf("ReadMIDI: %v", err)
	}
	if len(sched) != 0 {
		t.Fatalf("out of range notes kept: %v", sched)
	}
}

func TestReadMIDIRejectsGarbage(t *testing.T) {
	if _, err := ReadMIDI(bytes.NewReader([]byte("not a midi file")), MIDIOptions{}); err == nil {
		t.Fatal("expected an error")
	}
}

func TestScheduleHelpers(t *testing.T) {
	s := Schedule{
		{Key: "b", State: Down, At: 20},
		{Key: "a", State: Down, At: 10},
		{Key: "a", State: Up, At: 30},
	}
	s.Sort()
	if s[0].Key != "a" || s.Duration() != 30 {
		t.Fatalf("sorted = %v", s)
	}
	if keys := s.Keys(); len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("keys = %v", keys)
	}
	shifted := s.Shift(100)
	if shifted[0].At != 110 || s[0].At != 10 {
		t.Fatalf("Shift must copy: %v / %v", shifted, s)
	}
	due, rest := s.Until(20)
	if len(due) != 2 || len(rest) != 1 {
		t.Fatalf("Until(20) = %v | %v", due, rest)
	}
	if st, err := ParseState("up"); err != nil || st != Up {
		t.Fatalf("ParseState(up) = %v, %v", st, err)
	}
	if _, err := ParseState("sideways"); err == nil {
		t.Fatal("expected ParseState error")
	}
}
