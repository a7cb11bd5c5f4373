package noteview

import "github.com/cbegin/keyfall-go/internal/track"

// Vertex is one quad corner in the layout the note shader reads: Src is the
// position relative to the note center, Custom holds the half extents, the
// radius (negated glow size for glows) and the fade edge.
type Vertex struct {
	DstX, DstY float32
	SrcX, SrcY float32
	Color      track.RGBA
	Custom     [4]float32
}

// MaxQuads is how many quads fit one draw call with 16-bit indices.
const MaxQuads = (1 << 16) / 4

// AppendVertices converts quads to four vertices and six indices each,
// dropping quads past MaxQuads.
func AppendVertices(vs []Vertex, is []uint16, quads []Quad, fade Fade) ([]Vertex, []uint16) {
	for _, q := range quads {
		if len(vs)/4 >= MaxQuads {
			break
		}
		shape := float32(q.Radius)
		if q.Kind == QuadGlow {
			shape = -float32(q.GlowSize)
		}
		custom := [4]float32{float32(q.HalfW), float32(q.HalfH), shape, float32(fade.Edge(q))}
		corner := func(x, y float64, c track.RGBA) Vertex {
			return Vertex{
				DstX:   float32(x),
				DstY:   float32(y),
				SrcX:   float32(x - q.CX),
				SrcY:   float32(y - q.CY),
				Color:  c,
				Custom: custom,
			}
		}
		base := uint16(len(vs))
		vs = append(vs,
			corner(q.X0, q.Y0, q.ColorTop),
			corner(q.X1, q.Y0, q.ColorTop),
			corner(q.X0, q.Y1, q.ColorBottom),
			corner(q.X1, q.Y1, q.ColorBottom),
		)
		is = append(is, base, base+1, base+2, base+1, base+3, base+2)
	}
	return vs, is
}
