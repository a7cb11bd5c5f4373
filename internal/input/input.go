// Package input defines the raw key-state stream consumed by the engine and
// the sources that produce it.
package input

import (
	"fmt"
	"sort"
	"strings"
)

type State int

const (
	Down State = iota
	Up
)

func (s State) String() string {
	if s == Down {
		return "DOWN"
	}
	return "UP"
}

// ParseState accepts "DOWN" or "UP" in any case.
func ParseState(s string) (State, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DOWN":
		return Down, nil
	case "UP":
		return Up, nil
	default:
		return Down, fmt.Errorf("invalid key state %q", s)
	}
}

// KeyEvent is one key transition. Key is an opaque track identifier. At is an
// engine-clock timestamp in ms; zero means "stamp on receipt".
type KeyEvent struct {
	Key   string
	State State
	At    float64
}

func (e KeyEvent) String() string {
	return fmt.Sprintf("%s %s @%.1f", e.Key, e.State, e.At)
}

// Schedule is a time-ordered list of key events.
type Schedule []KeyEvent

// Sort orders events by time; ties keep their relative order.
func (s Schedule) Sort() {
	sort.SliceStable(s, func(i, j int) bool { return s[i].At < s[j].At })
}

// Duration is the timestamp of the last event.
func (s Schedule) Duration() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].At
}

// Keys returns the distinct keys in first-seen order.
func (s Schedule) Keys() []string {
	seen := make(map[string]bool)
	var out []string
	for _, ev := range s {
		if !seen[ev.Key] {
			seen[ev.Key] = true
			out = append(out, ev.Key)
		}
	}
	return out
}

// Shift returns a copy with every timestamp offset by ms.
func (s Schedule) Shift(ms float64) Schedule {
	out := make(Schedule, len(s))
	for i, ev := range s {
		ev.At += ms
		out[i] = ev
	}
	return out
}

// Until splits off the events at or before t; rest keeps the remainder.
func (s Schedule) Until(t float64) (due, rest Schedule) {
	i := sort.Search(len(s), func(i int) bool { return s[i].At > t })
	return s[:i], s[i:]
}
