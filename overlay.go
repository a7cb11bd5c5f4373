// Package keyfall draws falling notes for key presses. An Overlay accepts key
// transitions, turns them into growing and scrolling notes, and publishes the
// live notes for a renderer to draw.
package keyfall

import (
	"errors"
	"sync"
	"time"

	"github.com/bep/debounce"

	"github.com/cbegin/keyfall-go/internal/bridge"
	"github.com/cbegin/keyfall-go/internal/config"
	"github.com/cbegin/keyfall-go/internal/engine"
	"github.com/cbegin/keyfall-go/internal/host"
	"github.com/cbegin/keyfall-go/internal/input"
	intlog "github.com/cbegin/keyfall-go/internal/log"
	"github.com/cbegin/keyfall-go/internal/track"
)

// Event is a note lifecycle notification delivered by Watch.
type Event = engine.Event

const (
	EventAdd      = engine.EventAdd
	EventFinalize = engine.EventFinalize
	EventCleanup  = engine.EventCleanup
	EventClear    = engine.EventClear
)

type OverlayOption func(*overlayConfig)

type overlayConfig struct {
	settings       config.Settings
	tracks         []track.Track
	background     bool
	logger         *intlog.Logger
	clock          engine.Clock
	eventBuffer    int
	layoutDebounce time.Duration
}

func defaultOverlayConfig() overlayConfig {
	return overlayConfig{
		settings:       config.Default(),
		background:     true,
		eventBuffer:    64,
		layoutDebounce: 150 * time.Millisecond,
	}
}

func WithSettings(s config.Settings) OverlayOption {
	return func(cfg *overlayConfig) {
		cfg.settings = s
	}
}

func WithTracks(tracks []track.Track) OverlayOption {
	return func(cfg *overlayConfig) {
		cfg.tracks = tracks
	}
}

// WithBackground selects the background worker (true, default) or the
// frame-pumped local host (false).
func WithBackground(enabled bool) OverlayOption {
	return func(cfg *overlayConfig) {
		cfg.background = enabled
	}
}

func WithLogger(l *intlog.Logger) OverlayOption {
	return func(cfg *overlayConfig) {
		cfg.logger = l
	}
}

// WithClock replaces the monotonic clock, e.g. with an engine.ManualClock for
// offline rendering.
func WithClock(c engine.Clock) OverlayOption {
	return func(cfg *overlayConfig) {
		cfg.clock = c
	}
}

// WithEventBuffer sets the capacity of the channel returned by Watch.
func WithEventBuffer(n int) OverlayOption {
	return func(cfg *overlayConfig) {
		if n > 0 {
			cfg.eventBuffer = n
		}
	}
}

// WithLayoutDebounce sets how long ResizeLayout waits for the layout to
// settle before applying it.
func WithLayoutDebounce(d time.Duration) OverlayOption {
	return func(cfg *overlayConfig) {
		cfg.layoutDebounce = d
	}
}

var errClosed = errors.New("keyfall: overlay closed")

type Overlay struct {
	mu       sync.Mutex
	host     host.Host
	settings config.Settings
	tracks   []track.Track
	enabled  bool
	closed   bool
	log      *intlog.Logger

	debounced   func(func())
	eventBuffer int
	watch       *watcher
}

// watcher forwards one Watch subscription into its channel.
type watcher struct {
	sub  *bridge.Subscription
	stop chan struct{}
	done chan struct{}
}

func (w *watcher) close() {
	close(w.stop)
	w.sub.Unsubscribe()
	<-w.done
}

func New(opts ...OverlayOption) (*Overlay, error) {
	cfg := defaultOverlayConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.settings.Validate(); err != nil {
		return nil, err
	}
	if cfg.logger == nil {
		cfg.logger = intlog.Discard()
	}
	h, err := host.Start(host.Config{
		Settings:   cfg.settings,
		Tracks:     cfg.tracks,
		Clock:      cfg.clock,
		Logger:     cfg.logger,
		Background: cfg.background,
	})
	if err != nil {
		return nil, err
	}
	cfg.logger.Infof("keyfall: %s host, %d tracks", h.Kind(), len(cfg.tracks))
	return &Overlay{
		host:        h,
		settings:    cfg.settings,
		tracks:      append([]track.Track(nil), cfg.tracks...),
		enabled:     true,
		log:         cfg.logger,
		debounced:   debounce.New(cfg.layoutDebounce),
		eventBuffer: cfg.eventBuffer,
	}, nil
}

// Key forwards one transition. A zero At is stamped on receipt.
func (o *Overlay) Key(ev input.KeyEvent) {
	if o.isClosed() {
		return
	}
	o.host.Key(ev)
}

func (o *Overlay) KeyDown(key string) {
	o.Key(input.KeyEvent{Key: key, State: input.Down})
}

func (o *Overlay) KeyUp(key string) {
	o.Key(input.KeyEvent{Key: key, State: input.Up})
}

// UpdateSettings replaces the settings wholesale after validating them.
func (o *Overlay) UpdateSettings(s config.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return errClosed
	}
	o.settings = s
	o.mu.Unlock()
	o.host.UpdateSettings(s)
	return nil
}

func (o *Overlay) Settings() config.Settings {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.settings
}

// UpdateTrackLayouts applies a new layout immediately. Notes in flight keep
// going in their lanes' new geometry.
func (o *Overlay) UpdateTrackLayouts(tracks []track.Track) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.tracks = append([]track.Track(nil), tracks...)
	o.mu.Unlock()
	o.host.UpdateTrackLayouts(tracks)
}

// ResizeLayout is UpdateTrackLayouts for bursts such as window resizes: only
// the last layout of a burst is applied, once the burst has settled.
func (o *Overlay) ResizeLayout(tracks []track.Track) {
	tracks = append([]track.Track(nil), tracks...)
	o.debounced(func() {
		o.UpdateTrackLayouts(tracks)
	})
}

func (o *Overlay) Tracks() []track.Track {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]track.Track(nil), o.tracks...)
}

// SetEnabled toggles the effect. Disabling drops every note at once.
func (o *Overlay) SetEnabled(enabled bool) {
	o.mu.Lock()
	if o.closed || o.enabled == enabled {
		o.mu.Unlock()
		return
	}
	o.enabled = enabled
	o.mu.Unlock()
	o.host.SetEnabled(enabled)
}

func (o *Overlay) Enabled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.enabled
}

// Pump advances a local host to the current time. Call it once per frame;
// it does nothing for the background worker.
func (o *Overlay) Pump() {
	if o.isClosed() {
		return
	}
	o.host.Pump()
}

// Subscribe returns a mailbox of lifecycle events for callers that poll once
// per frame instead of receiving from a channel.
func (o *Overlay) Subscribe() *bridge.Subscription {
	return o.host.Subscribe()
}

// Reader returns a reader of the published note frame.
func (o *Overlay) Reader() *bridge.Reader {
	return o.host.Reader()
}

// Clock is the time base of published note timestamps.
func (o *Overlay) Clock() engine.Clock {
	return o.host.Clock()
}

func (o *Overlay) HostKind() host.Kind {
	return o.host.Kind()
}

// Watch returns a channel that receives lifecycle events in order:
//   - EventAdd: a note appeared (Key, NoteID, Slot set)
//   - EventFinalize: a note stopped growing
//   - EventCleanup: a note scrolled off and was released
//   - EventClear: every note was dropped at once
//
// The channel is buffered (WithEventBuffer, default 64). Events wait in a
// mailbox while it is full; nothing is dropped. Only the most recent Watch
// channel receives events. The channel is closed by Close, and a Watch after
// Close returns a closed channel.
func (o *Overlay) Watch() <-chan Event {
	ch := make(chan Event, o.eventBuffer)
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		close(ch)
		return ch
	}
	w := &watcher{
		sub:  o.host.Subscribe(),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	prev := o.watch
	o.watch = w
	o.mu.Unlock()
	if prev != nil {
		prev.close()
	}

	go func() {
		defer close(w.done)
		defer close(ch)
		var batch []Event
		for range w.sub.Ready() {
			batch = w.sub.Drain(batch[:0])
			for _, ev := range batch {
				select {
				case ch <- ev:
				case <-w.stop:
					return
				}
			}
		}
	}()
	return ch
}

func (o *Overlay) isClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

// Close stops the host and closes every event channel.
func (o *Overlay) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	w := o.watch
	o.watch = nil
	o.mu.Unlock()
	if w != nil {
		w.close()
	}
	return o.host.Close()
}
