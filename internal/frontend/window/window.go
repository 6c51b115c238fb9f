// Package window runs an App inside an ebiten window. Keyboard and gamepad
// events are read at the start of every update, then one animation frame is
// dispatched and the canvas is copied to the screen.
package window

import (
	"errors"
	"time"

	"github.com/caffeineduck/wasmplay/input"
	"github.com/caffeineduck/wasmplay/internal/app"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"go.uber.org/zap"
)

// Title is the default window title.
const Title = "wasmplay"

type game struct {
	app    *app.App
	log    *zap.Logger
	start  time.Time
	scale  float64
	canvas *ebiten.Image

	keys []ebiten.Key
	pads []ebiten.GamepadID
	// connected gamepads, watched for disconnects
	known []ebiten.GamepadID
}

// Run opens a window sized to the canvas times the configured scale and
// blocks until it is closed or the frame loop fails.
func Run(a *app.App) error {
	cfg := a.Config.Canvas
	ebiten.SetWindowTitle(Title)
	ebiten.SetWindowSize(int(float64(cfg.Width)*cfg.Scale), int(float64(cfg.Height)*cfg.Scale))
	ebiten.SetTPS(cfg.TPS)

	if err := a.Start(); err != nil {
		return err
	}
	g := &game{
		app:    a,
		log:    a.Log.Named("window"),
		start:  time.Now(),
		scale:  cfg.Scale,
		canvas: ebiten.NewImage(cfg.Width, cfg.Height),
	}
	err := ebiten.RunGame(g)
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

func (g *game) Update() error {
	g.updateGamepads()
	if err := g.updateKeys(); err != nil {
		return err
	}
	if err := g.app.Frame(float64(time.Since(g.start).Microseconds()) / 1000); err != nil {
		g.log.Error("frame loop stopped", zap.Error(err))
		return err
	}
	if !g.app.Running() {
		return ebiten.Termination
	}
	return nil
}

func (g *game) updateGamepads() {
	live := g.known[:0]
	for _, id := range g.known {
		if inpututil.IsGamepadJustDisconnected(id) {
			g.app.Input.Disconnect(int(id))
			continue
		}
		live = append(live, id)
	}
	g.known = live

	g.pads = inpututil.AppendJustConnectedGamepadIDs(g.pads[:0])
	for _, id := range g.pads {
		dev := &Gamepad{id: id, name: ebiten.GamepadName(id), standard: ebiten.IsStandardGamepadLayoutAvailable(id)}
		if _, ok := g.app.Input.Connect(dev); ok {
			g.known = append(g.known, id)
		}
	}
}

func (g *game) updateKeys() error {
	shift := ebiten.IsKeyPressed(ebiten.KeyShift)

	g.keys = inpututil.AppendJustPressedKeys(g.keys[:0])
	for _, k := range g.keys {
		if err := g.app.Keyboard.Down(input.DOMKey(k.String(), shift)); err != nil {
			return err
		}
	}
	g.keys = inpututil.AppendJustReleasedKeys(g.keys[:0])
	for _, k := range g.keys {
		if err := g.app.Keyboard.Up(input.DOMKey(k.String(), shift)); err != nil {
			return err
		}
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	img := g.app.Canvas.Surface().Image()
	if b := g.canvas.Bounds(); b.Dx() != img.Rect.Dx() || b.Dy() != img.Rect.Dy() {
		g.canvas.Deallocate()
		g.canvas = ebiten.NewImage(img.Rect.Dx(), img.Rect.Dy())
	}
	g.canvas.WritePixels(img.Pix)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(g.scale, g.scale)
	screen.DrawImage(g.canvas, op)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	s := g.app.Canvas.Surface()
	return int(float64(s.Width()) * g.scale), int(float64(s.Height()) * g.scale)
}

// Gamepad is an ebiten gamepad seen as an input.Device. Standard-layout pads
// report W3C button and axis order. Others report their raw values.
type Gamepad struct {
	id       ebiten.GamepadID
	name     string
	standard bool
}

func (p *Gamepad) ID() int        { return int(p.id) }
func (p *Gamepad) Name() string   { return p.name }
func (p *Gamepad) Standard() bool { return p.standard }

func (p *Gamepad) Read(st *input.ControllerState) {
	st.Axes = st.Axes[:0]
	st.Buttons = st.Buttons[:0]
	if p.standard {
		for a := ebiten.StandardGamepadAxis(0); a <= ebiten.StandardGamepadAxisMax; a++ {
			st.Axes = append(st.Axes, ebiten.StandardGamepadAxisValue(p.id, a))
		}
		for b := ebiten.StandardGamepadButton(0); b <= ebiten.StandardGamepadButtonMax; b++ {
			st.Buttons = append(st.Buttons, ebiten.IsStandardGamepadButtonPressed(p.id, b))
		}
		return
	}
	for a := 0; a < ebiten.GamepadAxisCount(p.id); a++ {
		st.Axes = append(st.Axes, ebiten.GamepadAxisValue(p.id, a))
	}
	for b := 0; b < ebiten.GamepadButtonCount(p.id); b++ {
		st.Buttons = append(st.Buttons, ebiten.IsGamepadButtonPressed(p.id, ebiten.GamepadButton(b)))
	}
}
