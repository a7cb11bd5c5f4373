package engine

import (
	"testing"

	"github.com/cbegin/keyfall-go/internal/config"
	"github.com/cbegin/keyfall-go/internal/input"
	"github.com/cbegin/keyfall-go/internal/notebuf"
	"github.com/cbegin/keyfall-go/internal/track"
)

// t0 stands in for "t=0"; engine timestamps are never zero.
const t0 = 1000.0

type recorder struct {
	events []Event
}

func (r *recorder) emit(ev Event) { r.events = append(r.events, ev) }

func (r *recorder) count(typ EventType) int {
	n := 0
	for _, ev := range r.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func newTestEngine(t *testing.T, delayed bool) (*Engine, *recorder) {
	t.Helper()
	s := config.Default()
	s.Speed = 500
	s.ShortNoteThresholdMs = 120
	s.ShortNoteMinLengthPx = 20
	s.DelayedNoteEnabled = delayed
	buf := notebuf.New()
	rec := &recorder{}
	e := New(buf, s, WithEmitter(rec.emit))
	e.UpdateTrackLayouts(track.Row([]string{"A", "S", "D", "F", "G"}, track.RowOptions{
		Width: 40, Gap: 4, BottomY: 600, Height: 400, Opacity: 1, Color: track.Solid(track.White),
	}))
	return e, rec
}

func noteFor(t *testing.T, e *Engine, key string) notebuf.Note {
	t.Helper()
	for i := 0; i < e.buf.Count(); i++ {
		if e.buf.KeyAt(i) == key {
			n, _ := e.buf.Note(i)
			return n
		}
	}
	t.Fatalf("no note for key %q", key)
	return notebuf.Note{}
}

func TestImmediateModePressAndRelease(t *testing.T) {
	e, rec := newTestEngine(t, false)
	if e.buf.Count() != 0 {
		t.Fatalf("expected empty buffer")
	}
	e.HandleKey(input.KeyEvent{Key: "A", State: input.Down, At: t0})
	if e.buf.Count() != 1 {
		t.Fatalf("count after down = %d, want 1", e.buf.Count())
	}
	n := noteFor(t, e, "A")
	if !n.IsActive() || n.StartTime != t0 {
		t.Fatalf("unexpected note after down %+v", n)
	}
	if e.State("A") != Active {
		t.Fatalf("state = %v, want active", e.State("A"))
	}

	e.HandleKey(input.KeyEvent{Key: "A", State: input.Up, At: t0 + 120})
	if e.buf.Count() != 1 {
		t.Fatalf("note should remain until scrolled off, count = %d", e.buf.Count())
	}
	n = noteFor(t, e, "A")
	if n.EndTime != t0+120 {
		t.Fatalf("end time = %v, want %v", n.EndTime, t0+120)
	}
	if rec.count(EventAdd) != 1 || rec.count(EventFinalize) != 1 {
		t.Fatalf("events = %+v", rec.events)
	}
	if e.State("A") != Idle {
		t.Fatalf("key should be idle after release")
	}
}

func TestImmediateModeIgnoresRepeat(t *testing.T) {
	e, rec := newTestEngine(t, false)
	e.KeyDown("A", t0)
	e.KeyDown("A", t0+30)
	e.KeyDown("A", t0+60)
	if e.buf.Count() != 1 || rec.count(EventAdd) != 1 {
		t.Fatalf("key repeat allocated extra notes: count=%d", e.buf.Count())
	}
}

func TestUnknownKeyIsIgnored(t *testing.T) {
	e, rec := newTestEngine(t, true)
	e.KeyDown("Z", t0)
	e.Advance(t0 + 500)
	e.KeyUp("Z", t0+600)
	if e.buf.Count() != 0 || len(rec.events) != 0 || e.HasPendingWork() {
		t.Fatalf("unknown key should be a no-op")
	}
}

func TestDelayedShortTap(t *testing.T) {
	e, rec := newTestEngine(t, true)
	grow := e.settings.GrowMs()
	if grow != 40 {
		t.Fatalf("grow ms = %v, want 40", grow)
	}
	e.HandleKey(input.KeyEvent{Key: "S", State: input.Down, At: t0})
	e.HandleKey(input.KeyEvent{Key: "S", State: input.Up, At: t0 + 40})
	if e.State("S") != Pending {
		t.Fatalf("state = %v, want pending", e.State("S"))
	}
	e.Advance(t0 + 119)
	if e.buf.Count() != 0 {
		t.Fatalf("no note may exist before the threshold")
	}
	e.Advance(t0 + 120)
	if e.buf.Count() != 1 {
		t.Fatalf("note should be allocated at threshold")
	}
	n := noteFor(t, e, "S")
	if n.StartTime != t0+120 || !n.IsActive() {
		t.Fatalf("unexpected short note %+v", n)
	}
	if due, ok := e.NextDeadline(); !ok || due != t0+120+grow {
		t.Fatalf("finalize should be scheduled at %v, got %v (%v)", t0+120+grow, due, ok)
	}

	// A second tap while the short note is still growing is ignored.
	e.KeyDown("S", t0+130)
	e.KeyUp("S", t0+135)
	e.Advance(t0 + 120 + grow)
	n = noteFor(t, e, "S")
	if n.EndTime != t0+120+grow {
		t.Fatalf("end time = %v, want %v", n.EndTime, t0+120+grow)
	}
	if rec.count(EventAdd) != 1 || rec.count(EventFinalize) != 1 {
		t.Fatalf("events = %+v", rec.events)
	}
	if e.State("S") != Idle {
		t.Fatalf("key should be idle after auto finalize")
	}
}

func TestDelayedLongHold(t *testing.T) {
	e, _ := newTestEngine(t, true)
	e.HandleKey(input.KeyEvent{Key: "D", State: input.Down, At: t0})
	e.Advance(t0 + 120)
	n := noteFor(t, e, "D")
	if n.StartTime != t0+120 || !n.IsActive() {
		t.Fatalf("long hold should allocate active note at threshold: %+v", n)
	}
	if _, ok := e.NextDeadline(); ok {
		t.Fatalf("held note must not schedule a finalize")
	}
	e.HandleKey(input.KeyEvent{Key: "D", State: input.Up, At: t0 + 500})
	n = noteFor(t, e, "D")
	if n.EndTime != t0+500 {
		t.Fatalf("end time = %v, want %v", n.EndTime, t0+500)
	}
}

func TestDelayedDownWhilePendingIsIgnored(t *testing.T) {
	e, rec := newTestEngine(t, true)
	e.KeyDown("F", t0)
	e.KeyUp("F", t0+10)
	e.KeyDown("F", t0+20) // faster than the threshold: dropped
	e.KeyUp("F", t0+30)
	e.Advance(t0 + 1000)
	if rec.count(EventAdd) != 1 {
		t.Fatalf("expected exactly one note for a double tap inside the window, got %d", rec.count(EventAdd))
	}
}

func TestHandleKeyFiresDueTimersFirst(t *testing.T) {
	e, _ := newTestEngine(t, true)
	e.HandleKey(input.KeyEvent{Key: "A", State: input.Down, At: t0})
	// No explicit Advance: the key-up after the threshold must observe the
	// committed note and finalize it.
	e.HandleKey(input.KeyEvent{Key: "A", State: input.Up, At: t0 + 300})
	n := noteFor(t, e, "A")
	if n.StartTime != t0+120 || n.EndTime != t0+300 {
		t.Fatalf("unexpected note %+v", n)
	}
}

func TestSweepReleasesScrolledNotes(t *testing.T) {
	e, rec := newTestEngine(t, false)
	e.KeyDown("A", t0)
	e.KeyUp("A", t0+100)
	e.KeyDown("S", t0+50) // still held

	// height 400 + margin 100 = 500px at 0.5 px/ms = 1000ms after release.
	e.Advance(t0 + 100 + 999)
	if e.buf.Count() != 2 {
		t.Fatalf("note released too early")
	}
	e.Advance(t0 + 100 + 1001 + e.settings.SweepIntervalMs)
	if e.buf.Count() != 1 {
		t.Fatalf("expected scrolled note to be released, count=%d", e.buf.Count())
	}
	if rec.count(EventCleanup) != 1 {
		t.Fatalf("expected one cleanup event, got %d", rec.count(EventCleanup))
	}
	if !noteFor(t, e, "S").IsActive() {
		t.Fatalf("held note must survive the sweep")
	}
}

func TestDisableClearsEverything(t *testing.T) {
	e, rec := newTestEngine(t, true)
	e.UpdateSettings(func() config.Settings { s := e.settings; s.DelayedNoteEnabled = false; return s }())
	for i, k := range []string{"A", "S", "D", "F", "G"} {
		e.KeyDown(k, t0+float64(i))
		if i%2 == 0 {
			e.KeyUp(k, t0+float64(i)+10)
		}
	}
	s := e.settings
	s.DelayedNoteEnabled = true
	e.UpdateSettings(s)
	e.KeyUp("S", t0+20)
	e.KeyDown("S", t0+30) // pending timer armed
	if e.buf.Count() != 5 {
		t.Fatalf("setup: count = %d", e.buf.Count())
	}

	e.SetEnabled(false)
	if e.buf.Count() != 0 {
		t.Fatalf("count after disable = %d", e.buf.Count())
	}
	if rec.count(EventClear) != 1 {
		t.Fatalf("clear events = %d, want 1", rec.count(EventClear))
	}
	if e.HasPendingWork() {
		t.Fatalf("disabled engine should have no pending work")
	}
	e.SetEnabled(false)
	if rec.count(EventClear) != 1 {
		t.Fatalf("repeated disable must not emit another clear")
	}
	e.Advance(t0 + 5000)
	e.KeyDown("A", t0+5000)
	if e.buf.Count() != 0 {
		t.Fatalf("disabled engine must ignore keys")
	}

	e.SetEnabled(true)
	e.KeyDown("S", t0+6000)
	e.Advance(t0 + 6200)
	if e.buf.Count() != 1 {
		t.Fatalf("re-enabled engine should work again")
	}
}

func TestCapacityExceededDropsPress(t *testing.T) {
	e, _ := newTestEngine(t, false)
	tracks := make([]track.Track, 0, notebuf.MaxNotes+1)
	keys := make([]string, 0, notebuf.MaxNotes+1)
	for i := 0; i <= notebuf.MaxNotes; i++ {
		k := "k" + string(rune('a'+i%26)) + string(rune('a'+i/26%26)) + string(rune('a'+i/676))
		keys = append(keys, k)
	}
	tracks = append(tracks, track.Row(keys, track.RowOptions{Width: 1, Height: 100, Opacity: 1})...)
	e.UpdateTrackLayouts(tracks)
	for i := 0; i < notebuf.MaxNotes; i++ {
		e.KeyDown(keys[i], t0+float64(i))
	}
	if e.buf.Count() != notebuf.MaxNotes {
		t.Fatalf("count = %d", e.buf.Count())
	}
	last := keys[notebuf.MaxNotes]
	e.KeyDown(last, t0+5000)
	if e.buf.Count() != notebuf.MaxNotes || e.State(last) != Idle {
		t.Fatalf("overflow press should be dropped, count=%d state=%v", e.buf.Count(), e.State(last))
	}
}

func TestLayoutChangeKeepsInFlightNotes(t *testing.T) {
	e, _ := newTestEngine(t, false)
	e.KeyDown("A", t0)
	e.KeyDown("D", t0+1)
	tracks := track.Row([]string{"D", "A"}, track.RowOptions{Width: 40, BottomY: 600, Height: 400, Opacity: 1})
	e.UpdateTrackLayouts(tracks)
	if e.buf.Count() != 2 {
		t.Fatalf("layout change dropped notes")
	}
	if e.buf.KeyAt(0) != "D" {
		t.Fatalf("D should now draw first, got %q", e.buf.KeyAt(0))
	}
	e.KeyUp("A", t0+200)
	if noteFor(t, e, "A").EndTime != t0+200 {
		t.Fatalf("finalize after layout change failed")
	}
}

func TestHasPendingWork(t *testing.T) {
	e, _ := newTestEngine(t, true)
	if e.HasPendingWork() {
		t.Fatalf("fresh engine has no work")
	}
	e.KeyDown("A", t0)
	if !e.HasPendingWork() {
		t.Fatalf("pending press is work")
	}
	e.KeyUp("A", t0+10)
	e.Advance(t0 + 120 + 40)
	if !e.HasPendingWork() {
		t.Fatalf("live note awaiting cleanup is work")
	}
	e.Advance(t0 + 10000)
	if e.HasPendingWork() {
		t.Fatalf("engine should be idle after cleanup, count=%d", e.buf.Count())
	}
}

func TestManualClock(t *testing.T) {
	c := NewManualClock(0)
	if c.Now() != 1 {
		t.Fatalf("manual clock must not start at zero")
	}
	c.Advance(15)
	if c.Now() != 16 {
		t.Fatalf("Now = %v", c.Now())
	}
	m := NewMonotonicClock()
	if m.Now() < 1 {
		t.Fatalf("monotonic clock below epoch")
	}
	m.Rebase()
	if m.Now() < 1 {
		t.Fatalf("rebased clock below epoch")
	}
}

func TestSweepRunsAfterRebase(t *testing.T) {
	e, rec := newTestEngine(t, false)
	e.Advance(70_000)

	e.Rebase(1)
	e.HandleKey(input.KeyEvent{Key: "A", State: input.Down, At: 100})
	e.HandleKey(input.KeyEvent{Key: "A", State: input.Up, At: 200})
	e.Advance(1300)
	if e.buf.Count() != 0 || rec.count(EventCleanup) != 1 {
		t.Fatalf("count=%d cleanups=%d after rebase", e.buf.Count(), rec.count(EventCleanup))
	}

	// A clock that moved backwards without Rebase still sweeps.
	e.Advance(90_000)
	e.HandleKey(input.KeyEvent{Key: "S", State: input.Down, At: 100})
	e.HandleKey(input.KeyEvent{Key: "S", State: input.Up, At: 200})
	e.Advance(1300)
	if e.buf.Count() != 0 {
		t.Fatalf("count=%d after the clock went backwards", e.buf.Count())
	}
}
