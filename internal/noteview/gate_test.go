package noteview

import (
	"testing"

	"github.com/cbegin/keyfall-go/internal/bridge"
	"github.com/cbegin/keyfall-go/internal/engine"
	"github.com/cbegin/keyfall-go/internal/notebuf"
)

func TestGateStopsOnlyOnCurrentEmptyFrame(t *testing.T) {
	tests := []struct {
		name             string
		count            int
		version, current uint32
		want             Action
		running          bool
	}{
		{"notes", 3, 4, 4, Draw, true},
		{"stale notes", 3, 2, 4, Draw, true},
		{"current empty", 0, 4, 4, Clear, false},
		{"torn empty", 0, 2, 4, Clear, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGate(true)
			if got := g.Frame(tt.count, tt.version, tt.current); got != tt.want {
				t.Fatalf("Frame = %v, want %v", got, tt.want)
			}
			if g.Running() != tt.running {
				t.Fatalf("Running = %v, want %v", g.Running(), tt.running)
			}
		})
	}
}

func TestGateWithoutEventsNeverStops(t *testing.T) {
	g := NewGate(false)
	for i := 0; i < 3; i++ {
		if got := g.Frame(0, 2, 2); got != Clear || !g.Running() {
			t.Fatalf("frame %d: %v running=%v", i, got, g.Running())
		}
	}
}

func TestGateRestartsOnAdd(t *testing.T) {
	g := NewGate(true)
	g.Frame(0, 2, 2)
	g.Observe([]engine.Event{{Type: engine.EventCleanup}, {Type: engine.EventClear}})
	if g.Running() {
		t.Fatal("cleanup and clear must not restart the gate")
	}
	g.Observe([]engine.Event{{Type: engine.EventFinalize}, {Type: engine.EventAdd}})
	if !g.Running() {
		t.Fatal("add did not restart the gate")
	}
	g.Frame(0, 4, 4)
	g.Wake()
	if !g.Running() {
		t.Fatal("Wake did not restart the gate")
	}
}

// TestGateClearsOnceWhenEmptied drives the gate the way the ebiten pipeline
// does: drain events, then load and decide once per frame.
func TestGateClearsOnceWhenEmptied(t *testing.T) {
	buf := glowBuffer(t)
	region := bridge.NewRegion()
	w := region.Writer()
	rd := region.Reader()
	hub := bridge.NewHub()
	sub := hub.Subscribe()
	frame := bridge.NewFrame()
	gate := NewGate(true)

	var actions []Action
	var evs []engine.Event
	drawFrame := func() {
		evs = sub.Drain(evs[:0])
		gate.Observe(evs)
		if !gate.Running() {
			actions = append(actions, Skip)
			return
		}
		rd.Load(frame)
		actions = append(actions, gate.Frame(frame.Count(), frame.Version(), region.Version()))
	}

	w.Publish(buf)
	drawFrame()
	drawFrame()

	id := notebuf.NewNoteID()
	slot := buf.Allocate("A", id, 1000)
	w.Publish(buf)
	hub.Publish(engine.Event{Type: engine.EventAdd, Key: "A", NoteID: id, Slot: slot})
	drawFrame()
	drawFrame()

	buf.Release(id)
	w.Publish(buf)
	hub.Publish(engine.Event{Type: engine.EventCleanup, Key: "A", NoteID: id, Slot: slot})
	drawFrame()
	drawFrame()
	drawFrame()

	want := []Action{Clear, Skip, Draw, Draw, Clear, Skip, Skip}
	if len(actions) != len(want) {
		t.Fatalf("actions = %v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Fatalf("actions = %v, want %v", actions, want)
		}
	}
}
