// Package config holds the note effect settings pushed by collaborators and
// the timing constants derived from them.
package config

import (
	"errors"
	"fmt"
	"strings"
)

type FadePosition string

const (
	FadeAuto   FadePosition = "auto"
	FadeTop    FadePosition = "top"
	FadeBottom FadePosition = "bottom"
	FadeNone   FadePosition = "none"
)

// ParseFadePosition accepts auto|top|bottom|none (case-insensitive).
func ParseFadePosition(s string) (FadePosition, error) {
	switch p := FadePosition(strings.ToLower(strings.TrimSpace(s))); p {
	case FadeAuto, FadeTop, FadeBottom, FadeNone:
		return p, nil
	case "":
		return FadeAuto, nil
	default:
		return "", fmt.Errorf("invalid fade position %q (expected auto|top|bottom|none)", s)
	}
}

// Settings is pushed wholesale on every change.
type Settings struct {
	Speed                float64 // flow speed, pixels per second
	TrackHeight          float64 // default lane length for generated layouts
	Reverse              bool    // notes flow downward from the lane top
	ShortNoteThresholdMs float64
	ShortNoteMinLengthPx float64
	DelayedNoteEnabled   bool
	FadePosition         FadePosition
	BorderRadius         float64 // fallback radius for tracks that do not set one
	FadeZonePx           float64
	CleanupMarginPx      float64
	SweepIntervalMs      float64
}

func Default() Settings {
	return Settings{
		Speed:                600,
		TrackHeight:          400,
		ShortNoteThresholdMs: 120,
		ShortNoteMinLengthPx: 10,
		FadePosition:         FadeAuto,
		BorderRadius:         2,
		FadeZonePx:           50,
		CleanupMarginPx:      100,
		SweepIntervalMs:      100,
	}
}

var errNonPositiveSpeed = errors.New("speed must be positive")

func (s Settings) Validate() error {
	if s.Speed <= 0 {
		return errNonPositiveSpeed
	}
	if s.TrackHeight <= 0 {
		return fmt.Errorf("track height must be positive, got %v", s.TrackHeight)
	}
	if s.ShortNoteThresholdMs < 0 || s.ShortNoteMinLengthPx < 0 {
		return errors.New("short note threshold and minimum length must not be negative")
	}
	if s.FadeZonePx < 0 || s.CleanupMarginPx < 0 || s.SweepIntervalMs < 0 {
		return errors.New("fade zone, cleanup margin and sweep interval must not be negative")
	}
	if _, err := ParseFadePosition(string(s.FadePosition)); err != nil {
		return err
	}
	return nil
}

// PxPerMs is the flow speed in pixels per millisecond.
func (s Settings) PxPerMs() float64 {
	return s.Speed / 1000
}

// GrowMs is how long a short tap keeps growing so it reaches
// ShortNoteMinLengthPx on screen.
func (s Settings) GrowMs() float64 {
	if s.Speed <= 0 {
		return 0
	}
	return s.ShortNoteMinLengthPx * 1000 / s.Speed
}

// CleanupDistancePx is how far a finalized note must travel before the sweep
// releases it.
func (s Settings) CleanupDistancePx(laneHeight float64) float64 {
	return laneHeight + s.CleanupMarginPx
}

// ResolvedFade returns the effective fade edge: auto picks the exit edge,
// which is the top in normal mode and the bottom when reversed.
func (s Settings) ResolvedFade() FadePosition {
	switch s.FadePosition {
	case FadeTop, FadeBottom, FadeNone:
		return s.FadePosition
	}
	if s.Reverse {
		return FadeBottom
	}
	return FadeTop
}
