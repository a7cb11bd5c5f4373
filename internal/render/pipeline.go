// Package render draws the shared note frame with ebiten. Every visible note
// becomes one quad (plus one for its glow), all of them submitted in a single
// DrawTrianglesShader call with a Kage shader doing the rounded corners,
// antialiasing and fade.
package render

import (
	_ "embed"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/cbegin/keyfall-go/internal/bridge"
	"github.com/cbegin/keyfall-go/internal/config"
	"github.com/cbegin/keyfall-go/internal/engine"
	"github.com/cbegin/keyfall-go/internal/noteview"
)

//go:embed notes.kage
var shaderSrc []byte

// Stats describes the last Draw.
type Stats struct {
	Running bool
	Version uint32
	Notes   int
	Quads   int
	Frames  uint64
}

// Pipeline owns the reader side of a bridge region. It is driven from the
// ebiten goroutine only.
type Pipeline struct {
	shader   *ebiten.Shader
	reader   *bridge.Reader
	sub      *bridge.Subscription
	frame    *bridge.Frame
	settings config.Settings
	gate     *noteview.Gate

	quads    []noteview.Quad
	verts    []noteview.Vertex
	vertices []ebiten.Vertex
	indices  []uint16
	events   []engine.Event
	op       ebiten.DrawTrianglesShaderOptions

	stats Stats
}

// NewPipeline compiles the shader. sub may be nil, in which case the pipeline
// never stops drawing.
func NewPipeline(reader *bridge.Reader, sub *bridge.Subscription, settings config.Settings) (*Pipeline, error) {
	shader, err := ebiten.NewShader(shaderSrc)
	if err != nil {
		return nil, fmt.Errorf("render: compile shader: %w", err)
	}
	p := &Pipeline{
		shader:   shader,
		reader:   reader,
		sub:      sub,
		frame:    bridge.NewFrame(),
		settings: settings,
		// Starts running so the first frame syncs with whatever is live.
		gate: noteview.NewGate(sub != nil),
	}
	p.op.Uniforms = make(map[string]any, 2)
	return p, nil
}

func (p *Pipeline) SetSettings(s config.Settings) {
	p.settings = s
	p.gate.Wake()
}

// Wake restarts drawing, e.g. after the window was resized.
func (p *Pipeline) Wake() {
	p.gate.Wake()
}

func (p *Pipeline) Running() bool { return p.gate.Running() }

func (p *Pipeline) Stats() Stats { return p.stats }

// Poll drains lifecycle events and restarts a stopped pipeline on an add.
// Draw polls too; call it from Update when Draw may be skipped.
func (p *Pipeline) Poll() {
	if p.sub == nil {
		return
	}
	p.events = p.sub.Drain(p.events[:0])
	p.gate.Observe(p.events)
}

// Draw renders the latest frame onto dst at time now and reports whether dst
// was touched. While stopped it leaves dst alone; the screen must not be
// cleared every frame for the last (empty) image to stay up.
func (p *Pipeline) Draw(dst *ebiten.Image, now float64) bool {
	p.Poll()
	if !p.gate.Running() {
		return false
	}
	p.reader.Load(p.frame)
	p.stats.Version = p.frame.Version()
	p.stats.Notes = p.frame.Count()

	action := p.gate.Frame(p.frame.Count(), p.frame.Version(), p.reader.Region().Version())
	p.stats.Running = p.gate.Running()
	switch action {
	case noteview.Skip:
		return false
	case noteview.Clear:
		p.stats.Quads = 0
		dst.Clear()
		return true
	}

	dst.Clear()
	p.quads = noteview.AppendQuads(p.quads[:0], p.frame, now, p.settings)
	p.stats.Quads = len(p.quads)
	p.stats.Frames++
	if len(p.quads) == 0 {
		return true
	}

	fade := noteview.FadeOf(p.settings)
	p.verts, p.indices = noteview.AppendVertices(p.verts[:0], p.indices[:0], p.quads, fade)
	p.vertices = toEbiten(p.vertices[:0], p.verts)
	p.op.Uniforms["FadeDir"] = float32(fade.Dir)
	p.op.Uniforms["FadeZone"] = float32(fade.Zone)
	dst.DrawTrianglesShader(p.vertices, p.indices, p.shader, &p.op)
	return true
}

func toEbiten(dst []ebiten.Vertex, vs []noteview.Vertex) []ebiten.Vertex {
	for _, v := range vs {
		dst = append(dst, ebiten.Vertex{
			DstX:    v.DstX,
			DstY:    v.DstY,
			SrcX:    v.SrcX,
			SrcY:    v.SrcY,
			ColorR:  v.Color.R,
			ColorG:  v.Color.G,
			ColorB:  v.Color.B,
			ColorA:  v.Color.A,
			Custom0: v.Custom[0],
			Custom1: v.Custom[1],
			Custom2: v.Custom[2],
			Custom3: v.Custom[3],
		})
	}
	return dst
}
