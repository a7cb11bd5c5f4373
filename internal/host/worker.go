package host

import (
	"fmt"
	"sync"
	"time"

	"github.com/cbegin/keyfall-go/internal/bridge"
	"github.com/cbegin/keyfall-go/internal/config"
	"github.com/cbegin/keyfall-go/internal/engine"
	"github.com/cbegin/keyfall-go/internal/input"
	"github.com/cbegin/keyfall-go/internal/track"
)

type msgKind int

const (
	msgKey msgKind = iota
	msgSettings
	msgTracks
	msgEnabled
)

type message struct {
	kind     msgKind
	key      input.KeyEvent
	settings config.Settings
	tracks   []track.Track
	enabled  bool
}

// Worker owns the engine on a dedicated goroutine. Commands are queued as
// messages; a ticker advances timers and cleanup only while there is work.
type Worker struct {
	core *core
	tick time.Duration

	msgs chan message
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

// StartWorker starts the background context. It fails with
// ErrWorkerUnavailable when the publishing region cannot be claimed.
func StartWorker(cfg Config) (*Worker, error) {
	cfg.setDefaults()
	c, err := newCore(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWorkerUnavailable, err)
	}
	w := &Worker{
		core: c,
		tick: cfg.Tick,
		msgs: make(chan message, cfg.Queue),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Worker) Kind() Kind { return KindWorker }

// Key queues a transition. Events with a zero timestamp are stamped when the
// worker receives them, after any clock rebase has happened.
func (w *Worker) Key(ev input.KeyEvent) {
	w.send(message{kind: msgKey, key: ev})
}

func (w *Worker) UpdateSettings(s config.Settings) {
	w.send(message{kind: msgSettings, settings: s})
}

func (w *Worker) UpdateTrackLayouts(tracks []track.Track) {
	w.send(message{kind: msgTracks, tracks: append([]track.Track(nil), tracks...)})
}

func (w *Worker) SetEnabled(enabled bool) {
	w.send(message{kind: msgEnabled, enabled: enabled})
}

func (w *Worker) Pump() {}

func (w *Worker) Subscribe() *bridge.Subscription { return w.core.hub.Subscribe() }

func (w *Worker) Reader() *bridge.Reader { return w.core.region.Reader() }

func (w *Worker) Clock() engine.Clock { return w.core.clock }

// Close stops the goroutine and closes every subscription.
func (w *Worker) Close() error {
	w.once.Do(func() {
		close(w.quit)
		<-w.done
		w.core.close()
	})
	return nil
}

func (w *Worker) send(m message) {
	select {
	case w.msgs <- m:
	case <-w.quit:
	}
}

func (w *Worker) run() {
	defer close(w.done)
	var (
		ticker *time.Ticker
		tick   <-chan time.Time
	)
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		select {
		case <-w.quit:
			return
		case m := <-w.msgs:
			w.apply(m)
			w.drain()
			w.core.flush()
		case <-tick:
			w.core.step()
		}

		busy := w.core.eng.HasPendingWork()
		switch {
		case busy && ticker == nil:
			ticker = time.NewTicker(w.tick)
			tick = ticker.C
		case !busy && ticker != nil:
			ticker.Stop()
			ticker, tick = nil, nil
		}
	}
}

// drain applies whatever else is already queued so a burst is published
// once.
func (w *Worker) drain() {
	for {
		select {
		case m := <-w.msgs:
			w.apply(m)
		default:
			return
		}
	}
}

func (w *Worker) apply(m message) {
	c := w.core
	switch m.kind {
	case msgKey:
		c.key(m.key)
	case msgSettings:
		c.eng.UpdateSettings(m.settings)
	case msgTracks:
		c.eng.UpdateTrackLayouts(m.tracks)
	case msgEnabled:
		c.eng.SetEnabled(m.enabled)
	}
}

// Running reports whether the goroutine is still alive.
func (w *Worker) Running() bool {
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}
