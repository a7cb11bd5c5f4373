package noteview

import "github.com/cbegin/keyfall-go/internal/engine"

// Action is what a renderer does with the frame it just loaded.
type Action int

const (
	// Skip leaves the target untouched; the last image stays up.
	Skip Action = iota
	// Clear empties the target and draws nothing.
	Clear
	// Draw clears the target and draws the frame's notes.
	Draw
)

func (a Action) String() string {
	switch a {
	case Skip:
		return "skip"
	case Clear:
		return "clear"
	case Draw:
		return "draw"
	default:
		return "unknown"
	}
}

// Gate decides per frame whether a renderer draws. It starts running, stops
// after clearing an up-to-date empty frame and runs again on the next add.
// A gate that does not watch events never stops.
type Gate struct {
	watched bool
	running bool
}

func NewGate(watched bool) *Gate {
	return &Gate{watched: watched, running: true}
}

// Observe restarts the gate when evs contains an add.
func (g *Gate) Observe(evs []engine.Event) {
	for _, ev := range evs {
		if ev.Type == engine.EventAdd {
			g.running = true
			return
		}
	}
}

// Wake restarts the gate, e.g. after a resize or a settings change.
func (g *Gate) Wake() { g.running = true }

func (g *Gate) Running() bool { return g.running }

// Frame decides what to do with a loaded frame of count notes at version,
// where current is the region's latest version. A torn read leaves version
// behind current, so an empty frame only stops the gate when it is current.
func (g *Gate) Frame(count int, version, current uint32) Action {
	if !g.running {
		return Skip
	}
	if count > 0 {
		return Draw
	}
	if g.watched && version == current {
		g.running = false
	}
	return Clear
}
