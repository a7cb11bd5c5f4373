// Package raster is the software renderer. It draws the same quads as the
// GPU pipeline with fogleman/gg so frames can be exported without a window.
package raster

import (
	"image"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"

	"github.com/cbegin/keyfall-go/internal/config"
	"github.com/cbegin/keyfall-go/internal/mathx"
	"github.com/cbegin/keyfall-go/internal/notebuf"
	"github.com/cbegin/keyfall-go/internal/noteview"
	"github.com/cbegin/keyfall-go/internal/track"
)

// stopSpacing is the distance in pixels between gradient stops used to bake
// the fade ramp into a fill.
const stopSpacing = 8

type Renderer struct {
	dc       *gg.Context
	bg       color.Color
	settings config.Settings
	quads    []noteview.Quad
}

func New(width, height int, bg color.Color, settings config.Settings) *Renderer {
	if bg == nil {
		bg = color.Transparent
	}
	return &Renderer{
		dc:       gg.NewContext(width, height),
		bg:       bg,
		settings: settings,
	}
}

func (r *Renderer) SetSettings(s config.Settings) {
	r.settings = s
}

func (r *Renderer) Width() int  { return r.dc.Width() }
func (r *Renderer) Height() int { return r.dc.Height() }

// Render draws every visible note of v at time now and returns the frame.
// The returned image is reused by the next call.
func (r *Renderer) Render(v notebuf.View, now float64) image.Image {
	dc := r.dc
	dc.ResetClip()
	dc.SetColor(r.bg)
	dc.Clear()

	r.quads = noteview.AppendQuads(r.quads[:0], v, now, r.settings)
	for _, q := range r.quads {
		switch q.Kind {
		case noteview.QuadGlow:
			r.drawGlow(q)
		case noteview.QuadBody:
			r.drawBody(q)
		}
	}
	return dc.Image()
}

// Quads is the number of quads drawn by the last Render.
func (r *Renderer) Quads() int { return len(r.quads) }

func (r *Renderer) EncodePNG(w io.Writer) error {
	return r.dc.EncodePNG(w)
}

func (r *Renderer) SavePNG(path string) error {
	return r.dc.SavePNG(path)
}

// SavePNG writes any frame, e.g. one returned by Render, to path.
func SavePNG(path string, img image.Image) error {
	return gg.SavePNG(path, img)
}

func (r *Renderer) drawBody(q noteview.Quad) {
	dc := r.dc
	dc.Push()
	defer dc.Pop()
	dc.DrawRectangle(q.X0, q.Y0, q.X1-q.X0, q.Y1-q.Y0)
	dc.Clip()

	w, h := 2*q.HalfW, 2*q.HalfH
	radius := mathx.Clamp(q.Radius, 0, math.Min(q.HalfW, q.HalfH))
	dc.DrawRoundedRectangle(q.CX-q.HalfW, q.CY-q.HalfH, w, h, radius)
	dc.SetFillStyle(r.fill(q, 1))
	dc.Fill()
}

// drawGlow strokes one-pixel rings outward from the body edge with a
// quadratic falloff.
func (r *Renderer) drawGlow(q noteview.Quad) {
	dc := r.dc
	dc.Push()
	defer dc.Pop()
	dc.DrawRectangle(q.X0, q.Y0, q.X1-q.X0, q.Y1-q.Y0)
	dc.Clip()

	dc.SetLineWidth(1)
	for d := 0.5; d < q.GlowSize; d++ {
		k := 1 - d/q.GlowSize
		dc.DrawRoundedRectangle(q.CX-q.HalfW-d, q.CY-q.HalfH-d, 2*(q.HalfW+d), 2*(q.HalfH+d), d)
		dc.SetStrokeStyle(r.fill(q, k*k))
		dc.Stroke()
	}
}

// fill bakes the quad's vertical color ramp and the lane fade into a linear
// gradient.
func (r *Renderer) fill(q noteview.Quad, scale float64) gg.Pattern {
	span := q.Y1 - q.Y0
	grad := gg.NewLinearGradient(0, q.Y0, 0, q.Y1)
	n := int(math.Ceil(span / stopSpacing))
	if n < 1 {
		n = 1
	}
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		y := q.Y0 + t*span
		c := lerpRGBA(q.ColorTop, q.ColorBottom, float32(t))
		a := float64(c.A) * scale * noteview.FadeAlpha(y, q.LaneTop, q.LaneBottom, r.settings)
		c.A = float32(mathx.Clamp01(a))
		grad.AddColorStop(t, c.NRGBA())
	}
	return grad
}

func lerpRGBA(a, b track.RGBA, t float32) track.RGBA {
	return track.RGBA{
		R: mathx.Lerp(a.R, b.R, t),
		G: mathx.Lerp(a.G, b.G, t),
		B: mathx.Lerp(a.B, b.B, t),
		A: mathx.Lerp(a.A, b.A, t),
	}
}
