// Package engine turns key transitions into note buffer mutations. It owns a
// per-key state machine and the timers that implement delayed short/long
// note classification. An Engine is single-writer: callers serialize access.
package engine

import (
	"github.com/cbegin/keyfall-go/internal/config"
	"github.com/cbegin/keyfall-go/internal/input"
	intlog "github.com/cbegin/keyfall-go/internal/log"
	"github.com/cbegin/keyfall-go/internal/notebuf"
	"github.com/cbegin/keyfall-go/internal/track"
)

// Phase is the per-key state.
type Phase int

const (
	Idle    Phase = iota
	Pending       // pressed inside the delay window, no note yet
	Active        // a note is allocated and growing
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// EventType names a structural change of the note set.
type EventType string

const (
	EventAdd      EventType = "add"
	EventFinalize EventType = "finalize"
	EventCleanup  EventType = "cleanup"
	EventClear    EventType = "clear"
)

// Event is a discrete lifecycle notification. Slot is the buffer slot at the
// time of the change; Count is the live note count after it.
type Event struct {
	Type   EventType
	Key    string
	NoteID notebuf.NoteID
	Slot   int
	Time   float64
	Count  int
}

type keyState struct {
	phase    Phase
	pressID  uint64
	released bool
	noteID   notebuf.NoteID
	// autoFinalize marks a short tap whose finalize is already scheduled;
	// key-up is ignored for it.
	autoFinalize bool
	timer        *timer
}

type Option func(*Engine)

// WithEmitter installs the lifecycle event sink. It is called synchronously
// from the goroutine driving the engine.
func WithEmitter(emit func(Event)) Option {
	return func(e *Engine) {
		e.emit = emit
	}
}

func WithLogger(l *intlog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

type Engine struct {
	buf       *notebuf.Buffer
	settings  config.Settings
	enabled   bool
	keys      map[string]*keyState
	timers    timerQueue
	seq       uint64
	nextPress uint64
	lastSweep float64
	emit      func(Event)
	log       *intlog.Logger
}

func New(buf *notebuf.Buffer, settings config.Settings, opts ...Option) *Engine {
	e := &Engine{
		buf:      buf,
		settings: settings,
		enabled:  true,
		keys:     make(map[string]*keyState),
		emit:     func(Event) {},
		log:      intlog.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	buf.SetDefaultRadius(settings.BorderRadius)
	return e
}

func (e *Engine) Buffer() *notebuf.Buffer { return e.buf }

func (e *Engine) Settings() config.Settings { return e.settings }

func (e *Engine) Enabled() bool { return e.enabled }

// State reports the phase of a key.
func (e *Engine) State(key string) Phase {
	if st, ok := e.keys[key]; ok {
		return st.phase
	}
	return Idle
}

// HandleKey processes one transition at ev.At, first firing anything due.
func (e *Engine) HandleKey(ev input.KeyEvent) {
	e.Advance(ev.At)
	if ev.State == input.Down {
		e.KeyDown(ev.Key, ev.At)
		return
	}
	e.KeyUp(ev.Key, ev.At)
}

func (e *Engine) KeyDown(key string, now float64) {
	if !e.enabled {
		return
	}
	if st, ok := e.keys[key]; ok && st.phase != Idle {
		// Key repeat, or a new press before the previous one resolved.
		return
	}
	if _, ok := e.buf.Track(key); !ok {
		e.log.Debugf("engine: key %q has no track", key)
		return
	}
	st := e.state(key)
	e.nextPress++
	st.pressID = e.nextPress
	st.released = false
	st.autoFinalize = false

	if !e.settings.DelayedNoteEnabled {
		e.allocate(key, st, now)
		return
	}
	st.phase = Pending
	st.timer = e.schedule(&timer{
		due:     now + e.settings.ShortNoteThresholdMs,
		kind:    timerPending,
		key:     key,
		pressID: st.pressID,
	})
}

func (e *Engine) KeyUp(key string, now float64) {
	if !e.enabled {
		return
	}
	st, ok := e.keys[key]
	if !ok {
		return
	}
	switch st.phase {
	case Pending:
		// The pending timer stays armed; it decides short vs long on fire.
		st.released = true
	case Active:
		if st.autoFinalize {
			return
		}
		e.finalize(key, st, now)
	}
}

// Advance fires every timer due at or before now, in due order, then runs the
// cleanup sweep when its interval has elapsed.
func (e *Engine) Advance(now float64) {
	for {
		t := e.timers.popDue(now)
		if t == nil {
			break
		}
		e.fire(t)
	}
	if now < e.lastSweep || now-e.lastSweep >= e.settings.SweepIntervalMs {
		e.Sweep(now)
	}
}

// Rebase restarts the sweep interval at now after the clock's epoch moved.
func (e *Engine) Rebase(now float64) {
	e.lastSweep = now
}

// NextDeadline returns the earliest scheduled timer.
func (e *Engine) NextDeadline() (float64, bool) {
	return e.timers.next()
}

// Sweep releases finalized notes that have scrolled past their lane and
// returns how many were released.
func (e *Engine) Sweep(now float64) int {
	e.lastSweep = now
	n := e.buf.Count()
	if n == 0 {
		return 0
	}
	pxPerMs := e.settings.PxPerMs()
	var expired []notebuf.NoteID
	var keys []string
	for i := 0; i < n; i++ {
		note := notebuf.Decode(e.buf, i)
		if note.IsActive() {
			continue
		}
		travelled := (now - note.EndTime) * pxPerMs
		if travelled > e.settings.CleanupDistancePx(note.Height) {
			expired = append(expired, e.buf.IDAt(i))
			keys = append(keys, e.buf.KeyAt(i))
		}
	}
	for i, id := range expired {
		slot := e.buf.Release(id)
		if slot < 0 {
			continue
		}
		e.emit(Event{Type: EventCleanup, Key: keys[i], NoteID: id, Slot: slot, Time: now, Count: e.buf.Count()})
	}
	return len(expired)
}

// SetEnabled toggles the effect. Disabling cancels every timer and clears all
// notes in one step.
func (e *Engine) SetEnabled(enabled bool) {
	if e.enabled == enabled {
		return
	}
	e.enabled = enabled
	if !enabled {
		e.Clear()
	}
}

// Clear cancels all pending work, drops every note and emits one clear event.
func (e *Engine) Clear() {
	e.timers.reset()
	for key, st := range e.keys {
		st.timer = nil
		delete(e.keys, key)
	}
	e.buf.Clear()
	e.emit(Event{Type: EventClear, Slot: -1})
}

// UpdateSettings swaps the settings; derived values are recomputed on use.
// Timers already scheduled keep their due time.
func (e *Engine) UpdateSettings(s config.Settings) {
	e.settings = s
	e.buf.SetDefaultRadius(s.BorderRadius)
}

// UpdateTrackLayouts replaces the layout. In-flight notes survive; their
// draw order and lane geometry follow the new layout.
func (e *Engine) UpdateTrackLayouts(tracks []track.Track) {
	e.buf.UpdateTrackLayouts(tracks)
}

// HasPendingWork reports whether the engine still needs to be advanced: a key
// is pending or active, a timer is queued, or notes await cleanup.
func (e *Engine) HasPendingWork() bool {
	if len(e.timers) > 0 || e.buf.Count() > 0 {
		return true
	}
	for _, st := range e.keys {
		if st.phase != Idle {
			return true
		}
	}
	return false
}

func (e *Engine) state(key string) *keyState {
	st, ok := e.keys[key]
	if !ok {
		st = &keyState{}
		e.keys[key] = st
	}
	return st
}

func (e *Engine) schedule(t *timer) *timer {
	e.seq++
	t.seq = e.seq
	e.timers.schedule(t)
	return t
}

func (e *Engine) fire(t *timer) {
	st, ok := e.keys[t.key]
	if !ok || st.timer != t {
		return
	}
	st.timer = nil
	switch t.kind {
	case timerPending:
		if st.phase != Pending || st.pressID != t.pressID {
			return
		}
		if !e.allocate(t.key, st, t.due) {
			return
		}
		if st.released {
			st.autoFinalize = true
			st.timer = e.schedule(&timer{
				due:     t.due + e.settings.GrowMs(),
				kind:    timerFinalize,
				key:     t.key,
				pressID: st.pressID,
				noteID:  st.noteID,
			})
		}
	case timerFinalize:
		if st.phase != Active || st.noteID != t.noteID {
			return
		}
		e.finalize(t.key, st, t.due)
	}
}

// allocate commits a note for key. On failure the key returns to idle.
func (e *Engine) allocate(key string, st *keyState, now float64) bool {
	id := notebuf.NewNoteID()
	slot := e.buf.Allocate(key, id, now)
	if slot < 0 {
		e.log.Debugf("engine: allocate %q rejected (count=%d)", key, e.buf.Count())
		e.reset(key, st)
		return false
	}
	st.phase = Active
	st.noteID = id
	e.emit(Event{Type: EventAdd, Key: key, NoteID: id, Slot: slot, Time: now, Count: e.buf.Count()})
	return true
}

func (e *Engine) finalize(key string, st *keyState, now float64) {
	id := st.noteID
	e.timers.cancel(st.timer)
	e.reset(key, st)
	slot := e.buf.Finalize(id, now)
	if slot < 0 {
		e.log.Debugf("engine: finalize %q: note no longer live", key)
		return
	}
	e.emit(Event{Type: EventFinalize, Key: key, NoteID: id, Slot: slot, Time: now, Count: e.buf.Count()})
}

func (e *Engine) reset(key string, st *keyState) {
	st.timer = nil
	delete(e.keys, key)
}
