package track

import (
	"encoding/json"
	"fmt"
	"io"
)

// RowOptions describes a single horizontal row of equally sized lanes.
type RowOptions struct {
	OriginX      float64
	BottomY      float64
	Width        float64
	Gap          float64
	Height       float64
	Color        Gradient
	Opacity      float64
	Glow         Glow
	BorderRadius float64
}

// Row lays keys left to right; the first key gets index 0.
func Row(keys []string, opts RowOptions) []Track {
	out := make([]Track, 0, len(keys))
	for i, k := range keys {
		out = append(out, Track{
			Key:          k,
			Index:        i,
			Position:     Point{X: opts.OriginX + float64(i)*(opts.Width+opts.Gap), Y: opts.BottomY},
			Width:        opts.Width,
			Height:       opts.Height,
			Color:        opts.Color,
			Opacity:      opts.Opacity,
			Glow:         opts.Glow,
			BorderRadius: opts.BorderRadius,
		})
	}
	return out
}

type layoutFile struct {
	Tracks []trackJSON `json:"tracks"`
}

type trackJSON struct {
	Key          string    `json:"key"`
	Index        *int      `json:"index"`
	X            float64   `json:"x"`
	Y            float64   `json:"y"`
	Width        float64   `json:"width"`
	Height       float64   `json:"height"`
	Color        string    `json:"color"`
	Opacity      *float64  `json:"opacity"`
	BorderRadius float64   `json:"borderRadius"`
	Glow         *glowJSON `json:"glow"`
}

type glowJSON struct {
	Enabled bool    `json:"enabled"`
	Size    float64 `json:"size"`
	Opacity float64 `json:"opacity"`
	Color   string  `json:"color"`
}

// LoadLayout decodes a JSON layout:
//
//	{"tracks":[{"key":"D","x":0,"y":600,"width":60,"height":400,
//	  "color":"#4fc3f7..#0277bd","opacity":0.9,"borderRadius":4,
//	  "glow":{"enabled":true,"size":8,"opacity":0.5,"color":"white"}}]}
//
// Tracks without an explicit index get their position in the list.
func LoadLayout(r io.Reader) ([]Track, error) {
	var f layoutFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode layout: %w", err)
	}
	out := make([]Track, 0, len(f.Tracks))
	for i, tj := range f.Tracks {
		if tj.Key == "" {
			return nil, fmt.Errorf("track %d: missing key", i)
		}
		if tj.Width <= 0 || tj.Height <= 0 {
			return nil, fmt.Errorf("track %q: width and height must be positive", tj.Key)
		}
		tr := Track{
			Key:          tj.Key,
			Index:        i,
			Position:     Point{X: tj.X, Y: tj.Y},
			Width:        tj.Width,
			Height:       tj.Height,
			Opacity:      1,
			Color:        Solid(White),
			BorderRadius: tj.BorderRadius,
		}
		if tj.Index != nil {
			tr.Index = *tj.Index
		}
		if tj.Opacity != nil {
			if *tj.Opacity < 0 || *tj.Opacity > 1 {
				return nil, fmt.Errorf("track %q: opacity %v outside [0,1]", tj.Key, *tj.Opacity)
			}
			tr.Opacity = *tj.Opacity
		}
		if tj.Color != "" {
			g, err := ParseGradient(tj.Color)
			if err != nil {
				return nil, fmt.Errorf("track %q: %w", tj.Key, err)
			}
			tr.Color = g
		}
		if tj.Glow != nil {
			if tj.Glow.Opacity < 0 || tj.Glow.Opacity > 1 {
				return nil, fmt.Errorf("track %q glow: opacity %v outside [0,1]", tj.Key, tj.Glow.Opacity)
			}
			if tj.Glow.Size < 0 {
				return nil, fmt.Errorf("track %q glow: negative size", tj.Key)
			}
			tr.Glow = Glow{Enabled: tj.Glow.Enabled, Size: tj.Glow.Size, Opacity: tj.Glow.Opacity, Color: tr.Color}
			if tj.Glow.Color != "" {
				g, err := ParseGradient(tj.Glow.Color)
				if err != nil {
					return nil, fmt.Errorf("track %q glow: %w", tj.Key, err)
				}
				tr.Glow.Color = g
			}
		}
		out = append(out, tr)
	}
	return out, nil
}
