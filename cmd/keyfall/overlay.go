package main

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/spf13/cobra"

	"github.com/cbegin/keyfall-go"
	"github.com/cbegin/keyfall-go/internal/render"
	"github.com/cbegin/keyfall-go/internal/track"
)

const (
	windowW    = 480
	windowH    = 600
	minWindowW = 120
	minWindowH = 120

	laneMargin = 8
)

var (
	overlayFlags settingsFlags
	overlayKeys  string
	overlayLocal bool
	overlayDebug bool
	overlayFloat bool
	overlayBG    string
)

func init() {
	overlayFlags.register(overlayCmd)
	fl := overlayCmd.Flags()
	fl.StringVar(&overlayKeys, "keys", "D,F,J,K", "comma separated keys, one lane each")
	fl.BoolVar(&overlayLocal, "local", false, "advance notes on the render loop instead of a background worker")
	fl.BoolVar(&overlayDebug, "debug", false, "print frame stats")
	fl.BoolVar(&overlayFloat, "float", true, "borderless window that stays on top")
	fl.StringVar(&overlayBG, "background", "transparent", "window background color")
	rootCmd.AddCommand(overlayCmd)
}

var overlayCmd = &cobra.Command{
	Use:   "overlay",
	Short: "Open a transparent window that draws notes for key presses",
	Long: `Open a transparent window that draws notes for key presses. Each --keys
entry gets a lane; F12 toggles the effect and Escape quits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOverlay()
	},
}

type game struct {
	overlay  *keyfall.Overlay
	pipeline *render.Pipeline
	style    track.RowOptions
	keys     []string
	bindings map[ebiten.Key]string
	fixed    bool
	bg       color.Color
	debug    bool

	canvas  *ebiten.Image
	pressed []ebiten.Key
	viewW   int
	viewH   int
}

func newGame() (*game, error) {
	settings, err := overlayFlags.settings()
	if err != nil {
		return nil, err
	}
	style, err := overlayFlags.style()
	if err != nil {
		return nil, err
	}
	bg, err := parseBackground(overlayBG)
	if err != nil {
		return nil, err
	}
	tracks, err := overlayFlags.loadLayout()
	if err != nil {
		return nil, err
	}
	keys := splitKeys(overlayKeys)
	fixed := tracks != nil
	if fixed {
		keys = keys[:0]
		for _, t := range tracks {
			keys = append(keys, t.Key)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no keys to draw")
	}
	bindings, err := bindKeys(keys)
	if err != nil {
		return nil, err
	}

	g := &game{
		style:    style,
		keys:     keys,
		bindings: bindings,
		fixed:    fixed,
		bg:       bg,
		debug:    overlayDebug,
		viewW:    windowW,
		viewH:    windowH,
	}
	if !fixed {
		tracks = g.rowLayout(windowW, windowH)
	}
	o, err := keyfall.New(
		keyfall.WithSettings(settings),
		keyfall.WithTracks(tracks),
		keyfall.WithBackground(!overlayLocal),
		keyfall.WithLogger(newLogger()),
	)
	if err != nil {
		return nil, err
	}
	p, err := render.NewPipeline(o.Reader(), o.Subscribe(), settings)
	if err != nil {
		o.Close()
		return nil, err
	}
	g.overlay = o
	g.pipeline = p
	return g, nil
}

// bindKeys maps ebiten keys to lane keys by name, e.g. "d" or "Space".
func bindKeys(keys []string) (map[ebiten.Key]string, error) {
	byName := make(map[string]ebiten.Key)
	for k := ebiten.Key(0); k <= ebiten.KeyMax; k++ {
		byName[strings.ToLower(k.String())] = k
	}
	out := make(map[ebiten.Key]string, len(keys))
	for _, name := range keys {
		k, ok := byName[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown key %q", name)
		}
		out[k] = name
	}
	return out, nil
}

func (g *game) rowLayout(w, h int) []track.Track {
	opts := g.style
	n := float64(len(g.keys))
	opts.OriginX = laneMargin
	opts.Width = (float64(w) - 2*laneMargin - opts.Gap*(n-1)) / n
	opts.BottomY = float64(h) - laneMargin
	opts.Height = float64(h) - 2*laneMargin
	return track.Row(g.keys, opts)
}

func (g *game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		g.overlay.SetEnabled(!g.overlay.Enabled())
	}

	g.pressed = inpututil.AppendJustPressedKeys(g.pressed[:0])
	for _, k := range g.pressed {
		if key, ok := g.bindings[k]; ok {
			g.overlay.KeyDown(key)
		}
	}
	g.pressed = inpututil.AppendJustReleasedKeys(g.pressed[:0])
	for _, k := range g.pressed {
		if key, ok := g.bindings[k]; ok {
			g.overlay.KeyUp(key)
		}
	}
	g.overlay.Pump()
	g.pipeline.Poll()
	if g.debug {
		g.pipeline.Wake()
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	target := screen
	opaque := false
	if _, _, _, a := g.bg.RGBA(); a > 0 {
		opaque = true
		target = g.canvasFor(screen)
	}
	// A stopped pipeline leaves target alone so the last image stays up.
	if !g.pipeline.Draw(target, g.overlay.Clock().Now()) {
		return
	}
	if opaque {
		screen.Fill(g.bg)
		screen.DrawImage(target, nil)
	}
	if g.debug {
		st := g.pipeline.Stats()
		ebitenutil.DebugPrint(screen, fmt.Sprintf(
			"%s host  v%d\nnotes %d  quads %d  frames %d\nfps %.0f",
			g.overlay.HostKind(), st.Version, st.Notes, st.Quads, st.Frames, ebiten.ActualFPS()))
	}
}

// canvasFor returns an offscreen image the size of screen for drawing notes
// over an opaque background.
func (g *game) canvasFor(screen *ebiten.Image) *ebiten.Image {
	b := screen.Bounds()
	if g.canvas == nil || g.canvas.Bounds() != b {
		if g.canvas != nil {
			g.canvas.Deallocate()
		}
		g.canvas = ebiten.NewImage(b.Dx(), b.Dy())
	}
	return g.canvas
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	if outsideW < minWindowW {
		outsideW = minWindowW
	}
	if outsideH < minWindowH {
		outsideH = minWindowH
	}
	if outsideW != g.viewW || outsideH != g.viewH {
		g.viewW = outsideW
		g.viewH = outsideH
		if !g.fixed {
			g.overlay.ResizeLayout(g.rowLayout(outsideW, outsideH))
		}
		g.pipeline.Wake()
	}
	return outsideW, outsideH
}

func (g *game) Close() { _ = g.overlay.Close() }

func runOverlay() error {
	g, err := newGame()
	if err != nil {
		return err
	}
	defer g.Close()

	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(minWindowW, minWindowH, -1, -1)
	ebiten.SetWindowTitle("keyfall")
	ebiten.SetScreenClearedEveryFrame(false)
	if overlayFloat {
		ebiten.SetWindowDecorated(false)
		ebiten.SetWindowFloating(true)
	}
	return ebiten.RunGameWithOptions(g, &ebiten.RunGameOptions{ScreenTransparent: true})
}
