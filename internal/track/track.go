// Package track maps logical keys to lane geometry and visual style.
package track

import "sort"

type Point struct {
	X, Y float64
}

type Glow struct {
	Enabled bool
	Size    float64
	Opacity float64
	Color   Gradient
}

// Track is one lane. Position.Y is the lane's bottom edge (the key line);
// the lane extends Height pixels above it.
type Track struct {
	Key          string
	Index        int
	Position     Point
	Width        float64
	Height       float64
	Color        Gradient
	Opacity      float64
	Glow         Glow
	BorderRadius float64
}

// Top returns the y coordinate of the lane's far edge.
func (t Track) Top() float64 {
	return t.Position.Y - t.Height
}

// Table is an immutable key -> track lookup. Build a new one on every layout
// change.
type Table struct {
	byKey   map[string]Track
	ordered []Track
}

func NewTable(tracks []Track) *Table {
	t := &Table{
		byKey:   make(map[string]Track, len(tracks)),
		ordered: make([]Track, 0, len(tracks)),
	}
	for _, tr := range tracks {
		if tr.Key == "" {
			continue
		}
		if _, dup := t.byKey[tr.Key]; dup {
			continue
		}
		t.byKey[tr.Key] = tr
		t.ordered = append(t.ordered, tr)
	}
	sort.SliceStable(t.ordered, func(i, j int) bool {
		return t.ordered[i].Index < t.ordered[j].Index
	})
	return t
}

func (t *Table) Lookup(key string) (Track, bool) {
	if t == nil {
		return Track{}, false
	}
	tr, ok := t.byKey[key]
	return tr, ok
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.ordered)
}

// Tracks returns the tracks in draw order. The slice must not be modified.
func (t *Table) Tracks() []Track {
	if t == nil {
		return nil
	}
	return t.ordered
}
