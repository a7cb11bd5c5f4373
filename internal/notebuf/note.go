package notebuf

import "github.com/cbegin/keyfall-go/internal/track"

// View is read-only access to a note store laid out by Field. Both the
// engine-side Buffer and a reader-side snapshot implement it.
type View interface {
	Count() int
	Field(f Field) []float32
}

// Note is the decoded numeric state of one slot.
type Note struct {
	StartTime   float64
	EndTime     float64
	TrackX      float64
	Width       float64
	BottomY     float64
	Height      float64
	ColorTop    track.RGBA
	ColorBottom track.RGBA
	Radius      float64
	TrackIndex  int
	GlowSize    float64
	GlowOpacity float64
	GlowTop     track.RGBA
	GlowBottom  track.RGBA
}

// IsActive reports whether the key is still held.
func (n Note) IsActive() bool {
	return n.EndTime == 0
}

// IsTombstone reports a zeroed slot that must not be drawn.
func (n Note) IsTombstone() bool {
	return n.StartTime == 0
}

// Decode reads slot i of v. The caller guarantees i < v.Count().
func Decode(v View, i int) Note {
	tm := v.Field(FieldTime)[i*3:]
	sz := v.Field(FieldSize)[i*3:]
	ct := v.Field(FieldColorTop)[i*4:]
	cb := v.Field(FieldColorBottom)[i*4:]
	gl := v.Field(FieldGlow)[i*2:]
	gt := v.Field(FieldGlowTop)[i*3:]
	gb := v.Field(FieldGlowBottom)[i*3:]
	return Note{
		StartTime:   float64(tm[TimeStart]),
		EndTime:     float64(tm[TimeEnd]),
		TrackX:      float64(tm[TimeTrackX]),
		Width:       float64(sz[SizeWidth]),
		BottomY:     float64(sz[SizeBottomY]),
		Height:      float64(sz[SizeHeight]),
		ColorTop:    track.RGBA{R: ct[0], G: ct[1], B: ct[2], A: ct[3]},
		ColorBottom: track.RGBA{R: cb[0], G: cb[1], B: cb[2], A: cb[3]},
		Radius:      float64(v.Field(FieldRadius)[i]),
		TrackIndex:  int(v.Field(FieldTrackIndex)[i]),
		GlowSize:    float64(gl[GlowSize]),
		GlowOpacity: float64(gl[GlowOpacity]),
		GlowTop:     track.RGBA{R: gt[0], G: gt[1], B: gt[2], A: 1},
		GlowBottom:  track.RGBA{R: gb[0], G: gb[1], B: gb[2], A: 1},
	}
}
