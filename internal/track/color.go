package track

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"

	"github.com/cbegin/keyfall-go/internal/mathx"
)

// RGBA is a straight-alpha color with components in [0, 1], the form the
// shader and the note buffer consume.
type RGBA struct {
	R, G, B, A float32
}

var White = RGBA{1, 1, 1, 1}

// FromColor converts any image/color value to straight-alpha RGBA.
func FromColor(c color.Color) RGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGBA{
		R: float32(n.R) / 255,
		G: float32(n.G) / 255,
		B: float32(n.B) / 255,
		A: float32(n.A) / 255,
	}
}

// NRGBA converts back to an 8-bit straight-alpha color.
func (c RGBA) NRGBA() color.NRGBA {
	return color.NRGBA{R: to8(c.R), G: to8(c.G), B: to8(c.B), A: to8(c.A)}
}

// WithOpacity scales alpha by opacity clamped to [0, 1].
func (c RGBA) WithOpacity(opacity float32) RGBA {
	c.A *= mathx.Clamp01(opacity)
	return c
}

func to8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// Gradient is a two-stop vertical gradient. A solid color has Top == Bottom.
type Gradient struct {
	Top    RGBA
	Bottom RGBA
}

func Solid(c RGBA) Gradient {
	return Gradient{Top: c, Bottom: c}
}

// ParseColor accepts #rgb, #rrggbb, #rrggbbaa or a CSS/SVG color name.
func ParseColor(s string) (RGBA, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RGBA{}, fmt.Errorf("empty color")
	}
	if !strings.HasPrefix(s, "#") {
		c, ok := colornames.Map[strings.ToLower(s)]
		if !ok {
			return RGBA{}, fmt.Errorf("unknown color name %q", s)
		}
		return FromColor(c), nil
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return FromColor(color.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}), nil
}

// ParseGradient accepts a single color or "top..bottom".
func ParseGradient(s string) (Gradient, error) {
	if top, bottom, ok := strings.Cut(s, ".."); ok {
		t, err := ParseColor(top)
		if err != nil {
			return Gradient{}, err
		}
		b, err := ParseColor(bottom)
		if err != nil {
			return Gradient{}, err
		}
		return Gradient{Top: t, Bottom: b}, nil
	}
	c, err := ParseColor(s)
	if err != nil {
		return Gradient{}, err
	}
	return Solid(c), nil
}
