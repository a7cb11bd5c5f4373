package noteview

import (
	"math"
	"testing"

	"github.com/cbegin/keyfall-go/internal/config"
	"github.com/cbegin/keyfall-go/internal/notebuf"
	"github.com/cbegin/keyfall-go/internal/track"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func testNote(start, end float64) notebuf.Note {
	return notebuf.Note{
		StartTime: start,
		EndTime:   end,
		TrackX:    100,
		Width:     40,
		BottomY:   600,
		Height:    400,
		Radius:    4,
	}
}

func testSettings() config.Settings {
	s := config.Default()
	s.Speed = 500 // 0.5 px/ms
	return s
}

func TestComputeNormal(t *testing.T) {
	s := testSettings()
	tests := []struct {
		name                 string
		start, end, now      float64
		top, bottom, visible float64
		length, travel       float64
	}{
		{"growing", 1000, 0, 1200, 500, 600, 1, 100, 0},
		{"clamped to lane", 1000, 0, 3000, 200, 600, 1, 400, 0},
		{"just allocated", 1000, 0, 1000, 600, 600, 0, 0, 0},
		{"finalized moving", 1000, 1200, 1400, 400, 500, 1, 100, 100},
		{"partly exited", 1000, 1200, 1900, 200, 250, 1, 100, 350},
		{"fully exited", 1000, 1200, 2000, 200, 200, 0, 100, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Compute(testNote(tt.start, tt.end), tt.now, s)
			if !near(e.Top, tt.top) || !near(e.Bottom, tt.bottom) {
				t.Fatalf("visible span = [%v, %v], want [%v, %v]", e.Top, e.Bottom, tt.top, tt.bottom)
			}
			if e.Visible != (tt.visible == 1) {
				t.Fatalf("Visible = %v", e.Visible)
			}
			if !near(e.Length, tt.length) || !near(e.Travel, tt.travel) {
				t.Fatalf("length/travel = %v/%v, want %v/%v", e.Length, e.Travel, tt.length, tt.travel)
			}
		})
	}
}

func TestComputeBodyHangsOutsideLane(t *testing.T) {
	e := Compute(testNote(1000, 1200), 2100, testSettings())
	// Trailing edge travelled 450px from y=600; the 100px body spans 50..150
	// and the lane clips it at 200.
	if !near(e.BodyBottom, 150) || !near(e.BodyTop, 50) {
		t.Fatalf("body = [%v, %v], want [50, 150]", e.BodyTop, e.BodyBottom)
	}
	if e.Visible {
		t.Fatal("note above the lane must not be visible")
	}
}

func TestComputeReverse(t *testing.T) {
	s := testSettings()
	s.Reverse = true
	e := Compute(testNote(1000, 0), 1200, s)
	if !near(e.Top, 200) || !near(e.Bottom, 300) {
		t.Fatalf("reverse growing = [%v, %v], want [200, 300]", e.Top, e.Bottom)
	}
	e = Compute(testNote(1000, 1200), 1400, s)
	if !near(e.Top, 300) || !near(e.Bottom, 400) {
		t.Fatalf("reverse moving = [%v, %v], want [300, 400]", e.Top, e.Bottom)
	}
}

func TestComputeSkipsTombstones(t *testing.T) {
	if Compute(notebuf.Note{}, 5000, testSettings()).Visible {
		t.Fatal("zeroed slot reported visible")
	}
}

func TestFinalizedLengthIsFrozen(t *testing.T) {
	s := testSettings()
	n := testNote(1000, 1300)
	a := Compute(n, 1400, s)
	b := Compute(n, 1600, s)
	if !near(a.Length, b.Length) || !near(a.Length, 150) {
		t.Fatalf("length changed after release: %v then %v", a.Length, b.Length)
	}
	if !near(b.Travel-a.Travel, 100) {
		t.Fatalf("travel delta = %v, want 100", b.Travel-a.Travel)
	}
}

func TestFadeAlpha(t *testing.T) {
	s := testSettings()
	s.FadeZonePx = 50
	tests := []struct {
		name    string
		pos     config.FadePosition
		reverse bool
		y       float64
		want    float64
	}{
		{"auto top edge", config.FadeAuto, false, 200, 0},
		{"auto mid zone", config.FadeAuto, false, 225, 0.5},
		{"auto past zone", config.FadeAuto, false, 300, 1},
		{"auto reverse bottom edge", config.FadeAuto, true, 600, 0},
		{"auto reverse top", config.FadeAuto, true, 200, 1},
		{"bottom", config.FadeBottom, false, 590, 0.2},
		{"top explicit in reverse", config.FadeTop, true, 210, 0.2},
		{"none", config.FadeNone, false, 200, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.FadePosition = tt.pos
			s.Reverse = tt.reverse
			if got := FadeAlpha(tt.y, 200, 600, s); !near(got, tt.want) {
				t.Fatalf("FadeAlpha(%v) = %v, want %v", tt.y, got, tt.want)
			}
		})
	}
	s.FadePosition = config.FadeTop
	s.FadeZonePx = 0
	if got := FadeAlpha(200, 200, 600, s); got != 1 {
		t.Fatalf("zero fade zone alpha = %v, want 1", got)
	}
}

func TestRoundedBoxSDF(t *testing.T) {
	tests := []struct {
		name   string
		px, py float64
		want   float64
	}{
		{"center", 0, 0, -10},
		{"edge", 20, 0, 0},
		{"outside edge", 25, 0, 5},
		{"corner rounded", 20, 10, math.Sqrt2*4 - 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoundedBoxSDF(tt.px, tt.py, 20, 10, 4); !near(got, tt.want) {
				t.Fatalf("sdf = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCoverage(t *testing.T) {
	if Coverage(-2) != 1 || Coverage(2) != 0 {
		t.Fatalf("coverage inside/outside = %v/%v", Coverage(-2), Coverage(2))
	}
	if got := Coverage(0); !near(got, 0.5) {
		t.Fatalf("coverage on edge = %v, want 0.5", got)
	}
}

func TestColorAtFollowsBody(t *testing.T) {
	g := track.Gradient{Top: track.RGBA{R: 1, A: 1}, Bottom: track.RGBA{B: 1, A: 1}}
	e := Extent{BodyTop: 100, BodyBottom: 200}
	if c := ColorAt(g, 100, e); c.R != 1 || c.B != 0 {
		t.Fatalf("top color = %+v", c)
	}
	if c := ColorAt(g, 150, e); math.Abs(float64(c.R-0.5)) > 1e-6 || math.Abs(float64(c.B-0.5)) > 1e-6 {
		t.Fatalf("mid color = %+v", c)
	}
	if c := ColorAt(g, 250, e); c.B != 1 {
		t.Fatalf("below body color = %+v", c)
	}
}
