// Package noteview is the per-note geometry both renderers share: where a
// note is on screen at a given time, how much of it the fade zone eats, and
// how its rounded corners are antialiased.
package noteview

import (
	"math"

	"github.com/cbegin/keyfall-go/internal/config"
	"github.com/cbegin/keyfall-go/internal/mathx"
	"github.com/cbegin/keyfall-go/internal/notebuf"
	"github.com/cbegin/keyfall-go/internal/track"
)

// Extent is a note's screen rectangle at one instant. Y grows downward.
// Body is the full note, which may hang outside the lane; Top and Bottom are
// the part clipped to the lane and are what gets drawn.
type Extent struct {
	X, Width float64

	BodyTop, BodyBottom float64
	Top, Bottom         float64

	LaneTop, LaneBottom float64

	Length float64 // unclipped note length in px
	Travel float64 // distance the trailing edge has moved from the origin
	Radius float64

	Visible bool
}

// Height is the visible height.
func (e Extent) Height() float64 {
	return e.Bottom - e.Top
}

// CenterX and CenterY are the middle of the unclipped body.
func (e Extent) CenterX() float64 { return e.X + e.Width/2 }

func (e Extent) CenterY() float64 { return (e.BodyTop + e.BodyBottom) / 2 }

// Compute places n at time now. Active notes grow from the lane origin at
// Speed px/s up to the lane height. Finalized notes keep the length they had
// at release and slide away from the origin until they leave the lane.
func Compute(n notebuf.Note, now float64, s config.Settings) Extent {
	ext := Extent{
		X:          n.TrackX,
		Width:      n.Width,
		LaneBottom: n.BottomY,
		LaneTop:    n.BottomY - n.Height,
		Radius:     n.Radius,
	}
	if n.IsTombstone() || n.Height <= 0 || n.Width <= 0 {
		return ext
	}
	pxPerMs := s.PxPerMs()
	if n.IsActive() {
		ext.Length = math.Max(0, (now-n.StartTime)*pxPerMs)
	} else {
		ext.Length = math.Max(0, (n.EndTime-n.StartTime)*pxPerMs)
		ext.Travel = math.Max(0, (now-n.EndTime)*pxPerMs)
	}
	ext.Length = math.Min(ext.Length, n.Height)

	if s.Reverse {
		ext.BodyTop = ext.LaneTop + ext.Travel
		ext.BodyBottom = ext.BodyTop + ext.Length
	} else {
		ext.BodyBottom = ext.LaneBottom - ext.Travel
		ext.BodyTop = ext.BodyBottom - ext.Length
	}
	ext.Top = mathx.Clamp(ext.BodyTop, ext.LaneTop, ext.LaneBottom)
	ext.Bottom = mathx.Clamp(ext.BodyBottom, ext.LaneTop, ext.LaneBottom)
	ext.Visible = ext.Length > 0 && ext.Travel < n.Height && ext.Bottom > ext.Top
	return ext
}

// FadeAlpha is the fade multiplier at screen row y inside a lane. It ramps
// from 0 at the faded edge to 1 at zone pixels away from it.
func FadeAlpha(y, laneTop, laneBottom float64, s config.Settings) float64 {
	zone := s.FadeZonePx
	if zone <= 0 {
		return 1
	}
	switch s.ResolvedFade() {
	case config.FadeTop:
		return mathx.Clamp01((y - laneTop) / zone)
	case config.FadeBottom:
		return mathx.Clamp01((laneBottom - y) / zone)
	default:
		return 1
	}
}

// RoundedBoxSDF is the signed distance from (px, py), relative to the box
// center, to a box of half extents (hx, hy) with corner radius r. Negative is
// inside.
func RoundedBoxSDF(px, py, hx, hy, r float64) float64 {
	r = mathx.Clamp(r, 0, math.Min(hx, hy))
	qx := math.Abs(px) - hx + r
	qy := math.Abs(py) - hy + r
	outside := math.Hypot(math.Max(qx, 0), math.Max(qy, 0))
	inside := math.Min(math.Max(qx, qy), 0)
	return outside + inside - r
}

// Coverage turns a signed distance into pixel coverage with a one pixel
// antialiased edge.
func Coverage(d float64) float64 {
	return 1 - mathx.Smoothstep(-0.5, 0.5, d)
}

// ColorAt interpolates a vertical gradient across the unclipped body so the
// colors stay attached to the note as it moves.
func ColorAt(g track.Gradient, y float64, e Extent) track.RGBA {
	span := e.BodyBottom - e.BodyTop
	t := float32(0)
	if span > 0 {
		t = float32(mathx.Clamp01((y - e.BodyTop) / span))
	}
	return track.RGBA{
		R: mathx.Lerp(g.Top.R, g.Bottom.R, t),
		G: mathx.Lerp(g.Top.G, g.Bottom.G, t),
		B: mathx.Lerp(g.Top.B, g.Bottom.B, t),
		A: mathx.Lerp(g.Top.A, g.Bottom.A, t),
	}
}

// Body is the note's fill gradient.
func Body(n notebuf.Note) track.Gradient {
	return track.Gradient{Top: n.ColorTop, Bottom: n.ColorBottom}
}

// Glow is the halo gradient with its opacity applied.
func Glow(n notebuf.Note) track.Gradient {
	op := float32(n.GlowOpacity)
	return track.Gradient{Top: n.GlowTop.WithOpacity(op), Bottom: n.GlowBottom.WithOpacity(op)}
}

// HasGlow reports whether a halo should be drawn.
func HasGlow(n notebuf.Note) bool {
	return n.GlowSize > 0 && n.GlowOpacity > 0
}
