// Package mathx holds small generic numeric helpers shared by the engine and
// the renderers.
package mathx

import "golang.org/x/exp/constraints"

type Number interface {
	constraints.Integer | constraints.Float
}

func Clamp[T Number](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 clamps v into [0, 1].
func Clamp01[T constraints.Float](v T) T {
	return Clamp(v, 0, 1)
}

func Lerp[T constraints.Float](a, b, t T) T {
	return a + (b-a)*t
}

// Smoothstep is the GLSL smoothstep: 0 below e0, 1 above e1, cubic in between.
func Smoothstep[T constraints.Float](e0, e1, x T) T {
	if e0 == e1 {
		if x < e0 {
			return 0
		}
		return 1
	}
	t := Clamp01((x - e0) / (e1 - e0))
	return t * t * (3 - 2*t)
}
