package noteview

import (
	"github.com/cbegin/keyfall-go/internal/config"
	"github.com/cbegin/keyfall-go/internal/notebuf"
	"github.com/cbegin/keyfall-go/internal/track"
)

type QuadKind int

const (
	QuadGlow QuadKind = iota
	QuadBody
)

// Quad is one screen-aligned rectangle a renderer fills. The shape inside it
// is a box of half extents (HalfW, HalfH) centered at (CX, CY): a body fills
// the box with rounded corners, a glow fills the GlowSize band around it.
type Quad struct {
	Kind QuadKind
	Slot int

	X0, Y0, X1, Y1 float64
	CX, CY         float64
	HalfW, HalfH   float64
	Radius         float64
	GlowSize       float64

	// ColorTop and ColorBottom are the colors at Y0 and Y1.
	ColorTop, ColorBottom track.RGBA

	LaneTop, LaneBottom float64
}

// Fade describes the fade ramp as a direction and an edge: alpha is
// clamp(Dir*(y-edge)/Zone, 0, 1) where edge is the lane top for Dir > 0 and
// the lane bottom for Dir < 0. Dir 0 disables the fade.
type Fade struct {
	Dir  float64
	Zone float64
}

func FadeOf(s config.Settings) Fade {
	if s.FadeZonePx <= 0 {
		return Fade{}
	}
	switch s.ResolvedFade() {
	case config.FadeTop:
		return Fade{Dir: 1, Zone: s.FadeZonePx}
	case config.FadeBottom:
		return Fade{Dir: -1, Zone: s.FadeZonePx}
	}
	return Fade{}
}

// Edge picks the lane edge the fade is measured from.
func (f Fade) Edge(q Quad) float64 {
	if f.Dir < 0 {
		return q.LaneBottom
	}
	return q.LaneTop
}

// AppendQuads appends the quads for every visible note of v at time now:
// all glows first, then all bodies, each in slot order.
func AppendQuads(dst []Quad, v notebuf.View, now float64, s config.Settings) []Quad {
	n := v.Count()
	for i := 0; i < n; i++ {
		note := notebuf.Decode(v, i)
		ext := Compute(note, now, s)
		if !ext.Visible || !HasGlow(note) {
			continue
		}
		g := note.GlowSize
		dst = append(dst, quadFor(QuadGlow, i, ext, Glow(note), ext.X-g, ext.Top-g, ext.X+ext.Width+g, ext.Bottom+g, g))
	}
	for i := 0; i < n; i++ {
		note := notebuf.Decode(v, i)
		ext := Compute(note, now, s)
		if !ext.Visible {
			continue
		}
		dst = append(dst, quadFor(QuadBody, i, ext, Body(note), ext.X, ext.Top, ext.X+ext.Width, ext.Bottom, 0))
	}
	return dst
}

func quadFor(kind QuadKind, slot int, ext Extent, g track.Gradient, x0, y0, x1, y1, glow float64) Quad {
	return Quad{
		Kind:        kind,
		Slot:        slot,
		X0:          x0,
		Y0:          y0,
		X1:          x1,
		Y1:          y1,
		CX:          ext.CenterX(),
		CY:          ext.CenterY(),
		HalfW:       ext.Width / 2,
		HalfH:       (ext.BodyBottom - ext.BodyTop) / 2,
		Radius:      ext.Radius,
		GlowSize:    glow,
		ColorTop:    ColorAt(g, y0, ext),
		ColorBottom: ColorAt(g, y1, ext),
		LaneTop:     ext.LaneTop,
		LaneBottom:  ext.LaneBottom,
	}
}
