// Package notebuf is the structure-of-arrays store of live notes. Slots are
// kept sorted by track index so renderers can draw them in order without a
// per-frame sort; insertion and removal shift the tail of every array.
package notebuf

import (
	"sort"

	"github.com/google/uuid"

	"github.com/cbegin/keyfall-go/internal/mathx"
	"github.com/cbegin/keyfall-go/internal/track"
)

// NoteID identifies one allocation.
type NoteID = uuid.UUID

// NewNoteID returns a fresh random id.
func NewNoteID() NoteID {
	return uuid.New()
}

// Buffer is owned by a single writer. None of its methods are safe for
// concurrent use; readers in other goroutines go through the bridge.
type Buffer struct {
	fields  [NumFields][]float32
	ids     []NoteID
	keys    []string
	slots   map[NoteID]int
	count   int
	version uint32
	table   *track.Table

	defaultRadius float32
}

func New() *Buffer {
	b := &Buffer{
		ids:   make([]NoteID, MaxNotes),
		keys:  make([]string, MaxNotes),
		slots: make(map[NoteID]int, 64),
		table: track.NewTable(nil),
	}
	for f := Field(0); f < NumFields; f++ {
		b.fields[f] = make([]float32, MaxNotes*f.Components())
	}
	return b
}

func (b *Buffer) Count() int { return b.count }

// Version increases on every mutating call.
func (b *Buffer) Version() uint32 { return b.version }

// Field returns the live prefix of a field array. Callers must not modify it.
func (b *Buffer) Field(f Field) []float32 {
	return b.fields[f][:b.count*f.Components()]
}

// Slot returns the slot of a live id, or -1.
func (b *Buffer) Slot(id NoteID) int {
	if s, ok := b.slots[id]; ok {
		return s
	}
	return -1
}

func (b *Buffer) IDAt(slot int) NoteID {
	if slot < 0 || slot >= b.count {
		return uuid.Nil
	}
	return b.ids[slot]
}

func (b *Buffer) KeyAt(slot int) string {
	if slot < 0 || slot >= b.count {
		return ""
	}
	return b.keys[slot]
}

// Note decodes a live slot.
func (b *Buffer) Note(slot int) (Note, bool) {
	if slot < 0 || slot >= b.count {
		return Note{}, false
	}
	return Decode(b, slot), true
}

// Track looks a key up in the current layout.
func (b *Buffer) Track(key string) (track.Track, bool) {
	return b.table.Lookup(key)
}

// SetDefaultRadius sets the corner radius used for tracks whose own
// BorderRadius is zero. It applies to later allocations only.
func (b *Buffer) SetDefaultRadius(r float64) {
	b.defaultRadius = float32(r)
}

// UpdateTrackLayouts swaps the layout, refreshes the track index and lane
// geometry of every live note and restores slot order.
func (b *Buffer) UpdateTrackLayouts(tracks []track.Track) {
	b.table = track.NewTable(tracks)
	for i := 0; i < b.count; i++ {
		tr, ok := b.table.Lookup(b.keys[i])
		if !ok {
			continue
		}
		b.writeGeometry(i, tr)
	}
	b.resort()
	b.version++
}

// Allocate inserts a note and returns its slot, or -1 when the track is
// unknown, the id is already live or the buffer is full.
func (b *Buffer) Allocate(trackKey string, id NoteID, startTime float64) int {
	tr, ok := b.table.Lookup(trackKey)
	if !ok {
		return -1
	}
	if _, live := b.slots[id]; live {
		return -1
	}
	if b.count >= MaxNotes {
		return -1
	}

	idx := float32(tr.Index)
	pos := b.count
	order := b.fields[FieldTrackIndex]
	for i := 0; i < b.count; i++ {
		if order[i] > idx {
			pos = i
			break
		}
	}

	b.shiftRight(pos)
	b.count++
	b.writeNote(pos, tr, startTime)
	b.ids[pos] = id
	b.keys[pos] = trackKey
	b.slots[id] = pos
	b.version++
	return pos
}

// Finalize records the release time. The stored end time never precedes the
// start time and never moves backwards.
func (b *Buffer) Finalize(id NoteID, endTime float64) int {
	slot, ok := b.slots[id]
	if !ok {
		return -1
	}
	tm := b.fields[FieldTime][slot*3:]
	end := float32(endTime)
	if end < tm[TimeStart] {
		end = tm[TimeStart]
	}
	if end < tm[TimeEnd] {
		end = tm[TimeEnd]
	}
	tm[TimeEnd] = end
	b.version++
	return slot
}

// Release removes a note and returns the slot it occupied, or -1.
func (b *Buffer) Release(id NoteID) int {
	slot, ok := b.slots[id]
	if !ok {
		return -1
	}
	last := b.count - 1
	for f := Field(0); f < NumFields; f++ {
		c := f.Components()
		arr := b.fields[f]
		copy(arr[slot*c:last*c], arr[(slot+1)*c:b.count*c])
		clear(arr[last*c : b.count*c])
	}
	copy(b.ids[slot:last], b.ids[slot+1:b.count])
	copy(b.keys[slot:last], b.keys[slot+1:b.count])
	b.ids[last] = uuid.Nil
	b.keys[last] = ""
	delete(b.slots, id)
	b.count--
	for i := slot; i < b.count; i++ {
		b.slots[b.ids[i]] = i
	}
	b.version++
	return slot
}

// Clear drops every note.
func (b *Buffer) Clear() {
	for f := Field(0); f < NumFields; f++ {
		clear(b.fields[f])
	}
	clear(b.ids[:b.count])
	clear(b.keys[:b.count])
	clear(b.slots)
	b.count = 0
	b.version++
}

// IDs returns the live ids in slot order.
func (b *Buffer) IDs() []NoteID {
	out := make([]NoteID, b.count)
	copy(out, b.ids[:b.count])
	return out
}

func (b *Buffer) shiftRight(pos int) {
	if pos >= b.count {
		return
	}
	for f := Field(0); f < NumFields; f++ {
		c := f.Components()
		arr := b.fields[f]
		copy(arr[(pos+1)*c:(b.count+1)*c], arr[pos*c:b.count*c])
	}
	copy(b.ids[pos+1:b.count+1], b.ids[pos:b.count])
	copy(b.keys[pos+1:b.count+1], b.keys[pos:b.count])
	for i := pos + 1; i <= b.count; i++ {
		b.slots[b.ids[i]] = i
	}
}

func (b *Buffer) writeNote(slot int, tr track.Track, startTime float64) {
	tm := b.fields[FieldTime][slot*3:]
	tm[TimeStart] = float32(startTime)
	tm[TimeEnd] = 0
	b.writeGeometry(slot, tr)

	opacity := float32(tr.Opacity)
	putRGBA(b.fields[FieldColorTop][slot*4:], tr.Color.Top.WithOpacity(opacity))
	putRGBA(b.fields[FieldColorBottom][slot*4:], tr.Color.Bottom.WithOpacity(opacity))

	radius := float32(tr.BorderRadius)
	if radius == 0 {
		radius = b.defaultRadius
	}
	b.fields[FieldRadius][slot] = radius

	gl := b.fields[FieldGlow][slot*2:]
	gt := b.fields[FieldGlowTop][slot*3:]
	gb := b.fields[FieldGlowBottom][slot*3:]
	if tr.Glow.Enabled && tr.Glow.Size > 0 {
		gl[GlowSize] = float32(tr.Glow.Size)
		gl[GlowOpacity] = mathx.Clamp01(float32(tr.Glow.Opacity))
		putRGB(gt, tr.Glow.Color.Top)
		putRGB(gb, tr.Glow.Color.Bottom)
	} else {
		clear(gl[:2])
		clear(gt[:3])
		clear(gb[:3])
	}
}

func (b *Buffer) writeGeometry(slot int, tr track.Track) {
	b.fields[FieldTime][slot*3+TimeTrackX] = float32(tr.Position.X)
	sz := b.fields[FieldSize][slot*3:]
	sz[SizeWidth] = float32(tr.Width)
	sz[SizeBottomY] = float32(tr.Position.Y)
	sz[SizeHeight] = float32(tr.Height)
	b.fields[FieldTrackIndex][slot] = float32(tr.Index)
}

// resort stably reorders live slots by track index after a layout change.
func (b *Buffer) resort() {
	order := b.fields[FieldTrackIndex][:b.count]
	if sort.SliceIsSorted(order, func(i, j int) bool { return order[i] < order[j] }) {
		return
	}
	perm := make([]int, b.count)
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(i, j int) bool { return order[perm[i]] < order[perm[j]] })

	for f := Field(0); f < NumFields; f++ {
		c := f.Components()
		arr := b.fields[f]
		scratch := make([]float32, b.count*c)
		copy(scratch, arr[:b.count*c])
		for dst, src := range perm {
			copy(arr[dst*c:(dst+1)*c], scratch[src*c:(src+1)*c])
		}
	}
	ids := make([]NoteID, b.count)
	keys := make([]string, b.count)
	copy(ids, b.ids[:b.count])
	copy(keys, b.keys[:b.count])
	for dst, src := range perm {
		b.ids[dst] = ids[src]
		b.keys[dst] = keys[src]
		b.slots[ids[src]] = dst
	}
}

func putRGBA(dst []float32, c track.RGBA) {
	dst[0], dst[1], dst[2], dst[3] = c.R, c.G, c.B, c.A
}

func putRGB(dst []float32, c track.RGBA) {
	dst[0], dst[1], dst[2] = c.R, c.G, c.B
}
