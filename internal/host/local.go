package host

import (
	"sync"

	"github.com/cbegin/keyfall-go/internal/bridge"
	"github.com/cbegin/keyfall-go/internal/config"
	"github.com/cbegin/keyfall-go/internal/engine"
	"github.com/cbegin/keyfall-go/internal/input"
	"github.com/cbegin/keyfall-go/internal/track"
)

// Local runs the engine on the caller's goroutine. Commands take effect
// immediately; timers and cleanup only advance when Pump is called.
type Local struct {
	mu     sync.Mutex
	core   *core
	closed bool
}

func NewLocal(cfg Config) (*Local, error) {
	cfg.setDefaults()
	c, err := newCore(cfg)
	if err != nil {
		return nil, err
	}
	return &Local{core: c}, nil
}

func (l *Local) Kind() Kind { return KindLocal }

func (l *Local) Key(ev input.KeyEvent) {
	l.do(func(c *core) { c.key(ev) })
}

func (l *Local) UpdateSettings(s config.Settings) {
	l.do(func(c *core) { c.eng.UpdateSettings(s) })
}

func (l *Local) UpdateTrackLayouts(tracks []track.Track) {
	l.do(func(c *core) { c.eng.UpdateTrackLayouts(tracks) })
}

func (l *Local) SetEnabled(enabled bool) {
	l.do(func(c *core) { c.eng.SetEnabled(enabled) })
}

func (l *Local) Pump() {
	l.do(func(c *core) { c.eng.Advance(c.clock.Now()) })
}

func (l *Local) do(fn func(c *core)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	fn(l.core)
	l.core.flush()
}

func (l *Local) Subscribe() *bridge.Subscription { return l.core.hub.Subscribe() }

func (l *Local) Reader() *bridge.Reader { return l.core.region.Reader() }

func (l *Local) Clock() engine.Clock { return l.core.clock }

// HasPendingWork reports whether Pump still has anything to do.
func (l *Local) HasPendingWork() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.core.eng.HasPendingWork()
}

func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.core.close()
	return nil
}
