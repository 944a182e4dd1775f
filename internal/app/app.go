//go:build ebiten

package app

import (
	"context"
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"mixcrop/internal/core"
	"mixcrop/internal/render"
	"mixcrop/internal/setup"
	"mixcrop/internal/ui"
)

// Game adapts a coupled run to the ebiten.Game interface.
type Game struct {
	run     *setup.Run
	raster  *core.ByteGrid
	painter *render.GridPainter
	palette []color.RGBA
	overlay *ui.Overlay
	hud     *ui.HUD
	timer   *core.FixedStep

	scale    int
	panel    int
	paused   bool
	tickOnce bool
	t        int
	err      error
}

// New constructs a Game drawing run on a square raster of cfg.Raster cells.
func New(run *setup.Run, cfg *Config) (*Game, error) {
	g := &Game{
		run:     run,
		raster:  core.NewByteGrid(cfg.Raster, cfg.Raster),
		painter: render.NewGridPainter(cfg.Raster, cfg.Raster),
		palette: render.FamilyPalette(),
		timer:   core.NewFixedStep(cfg.SPS),
		scale:   cfg.Scale,
		panel:   cfg.Panel,
	}
	if err := run.Planter.Rasterize(g.raster); err != nil {
		return nil, err
	}
	g.overlay = ui.NewOverlay(func(w, h int) []float32 {
		return render.WaterMask(run.Supply.State, w, h)
	}, cfg.Raster, cfg.Raster, cfg.Scale)
	g.hud = ui.NewHUD(g, cfg.Panel)
	return g, nil
}

// Parameters combines the planter layout with the last step.
func (g *Game) Parameters() core.ParameterSnapshot {
	s := g.run.Planter.Parameters()
	s.Groups = append([]core.ParameterGroup{RunGroup(g.run.Simulation.Reports(), g.paused)}, s.Groups...)
	return s
}

// Update handles per-frame input and advances the run at the step rate.
func (g *Game) Update() error {
	if g.err != nil {
		return g.err
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		g.tickOnce = true
	}
	g.overlay.Update()

	due := g.timer.ShouldStep()
	if (!g.paused && due) || g.tickOnce {
		g.tickOnce = false
		if g.t < g.run.Config.Steps || g.run.Config.Steps == 0 {
			if _, err := g.run.Simulation.Step(context.Background(), g.t); err != nil {
				g.err = fmt.Errorf("viewer: %w", err)
				return g.err
			}
			g.t++
		}
	}
	g.hud.Update()
	return nil
}

// Draw renders the layout, the overlay and the panel.
func (g *Game) Draw(screen *ebiten.Image) {
	g.painter.Blit(screen, g.raster.Cells(), g.palette, g.scale)
	g.overlay.Draw(screen)
	g.hud.Draw(screen, g.raster.W*g.scale, g.raster.H*g.scale)
}

// Layout returns the logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.raster.W*g.scale + g.panel, g.raster.H * g.scale
}
