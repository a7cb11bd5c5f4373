// Package bridge publishes the engine's note store to the presentation side
// without serialization. A Region is a fixed-layout block of 32-bit words: a
// two-word header (version, active count) followed by one sub-view per note
// field. Every word is accessed atomically, so the single writer and any
// number of readers never race at the memory-model level; the version
// protocol decides which reads form a consistent snapshot.
package bridge

import (
	"math"
	"sync/atomic"

	"github.com/cbegin/keyfall-go/internal/notebuf"
)

const (
	headerVersion = 0
	headerCount   = 1
	headerWords   = 2
)

// Region is the shared block. Create one with NewRegion and hand its Writer
// to the engine side and Readers to the presentation side.
type Region struct {
	header  [headerWords]atomic.Uint32
	data    []uint32
	offsets [notebuf.NumFields]int
	writer  atomic.Bool
}

func NewRegion() *Region {
	r := &Region{}
	off := 0
	for f := notebuf.Field(0); f < notebuf.NumFields; f++ {
		r.offsets[f] = off
		off += notebuf.MaxNotes * f.Components()
	}
	r.data = make([]uint32, off)
	return r
}

// Words is the size of the data region in 32-bit words.
func (r *Region) Words() int { return len(r.data) }

// Version is the last committed version. It is always even; an odd value is
// never observable through this accessor.
func (r *Region) Version() uint32 {
	return r.header[headerVersion].Load() &^ 1
}

// Count is the active count of the last committed snapshot.
func (r *Region) Count() int {
	return int(r.header[headerCount].Load())
}

func (r *Region) view(f notebuf.Field) []uint32 {
	off := r.offsets[f]
	return r.data[off : off+notebuf.MaxNotes*f.Components()]
}

// Writer is the only way to mutate a Region. Publish copies data first and
// stores the version last, so a reader that sees a committed version also
// sees the matching data.
type Writer struct {
	region *Region
}

// Writer returns the region's writer. Only one writer may exist; a second
// call returns nil.
func (r *Region) Writer() *Writer {
	if !r.writer.CompareAndSwap(false, true) {
		return nil
	}
	return &Writer{region: r}
}

// Publish copies the live prefix of every field of v into the region.
func (w *Writer) Publish(v notebuf.View) uint32 {
	r := w.region
	v0 := r.header[headerVersion].Load()
	// Odd marks a write in progress; readers that see it keep their last
	// snapshot.
	r.header[headerVersion].Store(v0 | 1)

	count := v.Count()
	if count > notebuf.MaxNotes {
		count = notebuf.MaxNotes
	}
	for f := notebuf.Field(0); f < notebuf.NumFields; f++ {
		src := v.Field(f)
		dst := r.view(f)
		n := count * f.Components()
		for i := 0; i < n; i++ {
			atomic.StoreUint32(&dst[i], math.Float32bits(src[i]))
		}
	}
	r.header[headerCount].Store(uint32(count))

	next := (v0 | 1) + 1
	r.header[headerVersion].Store(next)
	return next
}

// Reader copies committed snapshots out of a Region into a Frame it owns.
type Reader struct {
	region *Region
}

func (r *Region) Reader() *Reader {
	return &Reader{region: r}
}

// Region exposes the underlying shared block.
func (rd *Reader) Region() *Region { return rd.region }

// Load refreshes frame if a newer committed version exists. It returns true
// when frame now holds a new snapshot; on a torn or in-progress read frame
// keeps its previous contents.
func (rd *Reader) Load(frame *Frame) bool {
	r := rd.region
	v1 := r.header[headerVersion].Load()
	if v1&1 == 1 || (frame.loaded && v1 == frame.version) {
		return false
	}
	count := int(r.header[headerCount].Load())
	if count > notebuf.MaxNotes {
		return false
	}
	for f := notebuf.Field(0); f < notebuf.NumFields; f++ {
		n := count * f.Components()
		src := r.view(f)
		dst := frame.scratch[f][:n]
		for i := 0; i < n; i++ {
			dst[i] = math.Float32frombits(atomic.LoadUint32(&src[i]))
		}
	}
	if r.header[headerVersion].Load() != v1 {
		return false
	}
	frame.fields, frame.scratch = frame.scratch, frame.fields
	frame.count = count
	frame.version = v1
	frame.loaded = true
	return true
}

// Frame is a reader-owned snapshot. It implements notebuf.View.
type Frame struct {
	fields  [notebuf.NumFields][]float32
	scratch [notebuf.NumFields][]float32
	count   int
	version uint32
	loaded  bool
}

func NewFrame() *Frame {
	fr := &Frame{}
	for f := notebuf.Field(0); f < notebuf.NumFields; f++ {
		fr.fields[f] = make([]float32, notebuf.MaxNotes*f.Components())
		fr.scratch[f] = make([]float32, notebuf.MaxNotes*f.Components())
	}
	return fr
}

func (fr *Frame) Count() int { return fr.count }

func (fr *Frame) Version() uint32 { return fr.version }

func (fr *Frame) Field(f notebuf.Field) []float32 {
	return fr.fields[f][:fr.count*f.Components()]
}

// Note decodes slot i of the snapshot.
func (fr *Frame) Note(i int) notebuf.Note {
	return notebuf.Decode(fr, i)
}
