// Package host runs the note engine in one of two execution contexts: a
// background Worker goroutine that owns the engine outright, or a Local host
// the presentation loop pumps once per frame. Both publish through a bridge
// region and fan lifecycle events out through a bridge hub.
package host

import (
	"errors"
	"fmt"
	"time"

	"github.com/cbegin/keyfall-go/internal/bridge"
	"github.com/cbegin/keyfall-go/internal/config"
	"github.com/cbegin/keyfall-go/internal/engine"
	"github.com/cbegin/keyfall-go/internal/input"
	intlog "github.com/cbegin/keyfall-go/internal/log"
	"github.com/cbegin/keyfall-go/internal/track"
)

// ErrWorkerUnavailable is returned when the background context cannot be set
// up. Start falls back to a Local host when it sees it.
var ErrWorkerUnavailable = errors.New("host: background worker unavailable")

type Kind string

const (
	KindWorker Kind = "worker"
	KindLocal  Kind = "local"
)

// Host is the command surface shared by both execution contexts.
type Host interface {
	Kind() Kind
	Key(ev input.KeyEvent)
	UpdateSettings(s config.Settings)
	UpdateTrackLayouts(tracks []track.Track)
	SetEnabled(enabled bool)
	// Pump advances a Local host to the current time. It is a no-op for a
	// Worker, which keeps its own ticker.
	Pump()
	Subscribe() *bridge.Subscription
	Reader() *bridge.Reader
	Clock() engine.Clock
	Close() error
}

type Config struct {
	Settings config.Settings
	Tracks   []track.Track
	Clock    engine.Clock
	Logger   *intlog.Logger
	// Background asks Start for a Worker.
	Background bool
	// Region is an optional shared block to publish into. Its writer must
	// not have been claimed yet.
	Region *bridge.Region
	// Tick is the Worker's frame interval while notes are live.
	Tick time.Duration
	// Queue is the Worker's inbound message buffer.
	Queue int
}

const (
	defaultTick  = 4 * time.Millisecond
	defaultQueue = 256
	// rebaseAfterMs bounds engine timestamps so they stay exact in float32.
	rebaseAfterMs = 60_000
)

func (c *Config) setDefaults() {
	if c.Clock == nil {
		c.Clock = engine.NewMonotonicClock()
	}
	if c.Logger == nil {
		c.Logger = intlog.Discard()
	}
	if c.Tick <= 0 {
		c.Tick = defaultTick
	}
	if c.Queue <= 0 {
		c.Queue = defaultQueue
	}
}

// Start builds the preferred host. A Worker that fails to start is logged and
// replaced by a Local host on a private region.
func Start(cfg Config) (Host, error) {
	cfg.setDefaults()
	if err := cfg.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("host: %w", err)
	}
	if cfg.Background {
		w, err := StartWorker(cfg)
		if err == nil {
			return w, nil
		}
		cfg.Logger.Warnf("host: %v; falling back to local", err)
		cfg.Region = nil
	}
	return NewLocal(cfg)
}
