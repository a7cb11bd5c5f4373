package host

import (
	"errors"

	"github.com/cbegin/keyfall-go/internal/bridge"
	"github.com/cbegin/keyfall-go/internal/engine"
	"github.com/cbegin/keyfall-go/internal/input"
	intlog "github.com/cbegin/keyfall-go/internal/log"
	"github.com/cbegin/keyfall-go/internal/notebuf"
)

var errRegionClaimed = errors.New("region writer already claimed")

// core is the engine plus its publishing side. It is driven by exactly one
// goroutine at a time.
type core struct {
	eng       *engine.Engine
	buf       *notebuf.Buffer
	region    *bridge.Region
	writer    *bridge.Writer
	hub       *bridge.Hub
	clock     engine.Clock
	log       *intlog.Logger
	pending   []engine.Event
	published uint32
}

func newCore(cfg Config) (*core, error) {
	region := cfg.Region
	if region == nil {
		region = bridge.NewRegion()
	}
	w := region.Writer()
	if w == nil {
		return nil, errRegionClaimed
	}
	c := &core{
		buf:    notebuf.New(),
		region: region,
		writer: w,
		hub:    bridge.NewHub(),
		clock:  cfg.Clock,
		log:    cfg.Logger,
	}
	c.eng = engine.New(c.buf, cfg.Settings,
		engine.WithEmitter(c.collect),
		engine.WithLogger(cfg.Logger),
	)
	c.eng.UpdateTrackLayouts(cfg.Tracks)
	c.publish()
	return c, nil
}

func (c *core) collect(ev engine.Event) {
	c.pending = append(c.pending, ev)
}

func (c *core) key(ev input.KeyEvent) {
	if ev.At == 0 {
		ev.At = c.clock.Now()
	}
	c.eng.HandleKey(ev)
}

// step advances the engine to now and flushes the batch.
func (c *core) step() {
	c.eng.Advance(c.clock.Now())
	c.flush()
}

// flush publishes the buffer if it changed, then delivers the batch's events.
// Events go out after the data so a renderer woken by an add already finds
// the note in the region.
func (c *core) flush() {
	if c.buf.Version() != c.published {
		c.publish()
	}
	for _, ev := range c.pending {
		c.hub.Publish(ev)
	}
	clear(c.pending)
	c.pending = c.pending[:0]

	if rb, ok := c.clock.(interface{ Rebase() }); ok && !c.eng.HasPendingWork() && c.clock.Now() > rebaseAfterMs {
		rb.Rebase()
		c.eng.Rebase(c.clock.Now())
		c.log.Debugf("host: clock rebased")
	}
}

func (c *core) publish() {
	c.writer.Publish(c.buf)
	c.published = c.buf.Version()
}

func (c *core) close() {
	c.hub.Close()
}
