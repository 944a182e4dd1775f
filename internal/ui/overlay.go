//go:build ebiten

package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"mixcrop/internal/render"
)

// MaskSource provides an intensity mask of the given raster size.
type MaskSource func(w, h int) []float32

// Overlay draws the soil water mask over the layout when toggled with 1.
type Overlay struct {
	water   MaskSource
	painter *render.GridPainter
	scale   int
	show    bool
}

// NewOverlay constructs an overlay for a w by h raster.
func NewOverlay(water MaskSource, w, h, scale int) *Overlay {
	return &Overlay{water: water, painter: render.NewGridPainter(w, h), scale: scale}
}

// Update toggles the mask.
func (o *Overlay) Update() {
	if inpututil.IsKeyJustPressed(ebiten.KeyDigit1) {
		o.show = !o.show
	}
}

// Draw renders the overlay onto the provided screen.
func (o *Overlay) Draw(screen *ebiten.Image) {
	if !o.show || o.water == nil {
		return
	}
	w, h := o.painter.Size()
	o.painter.BlitMask(screen, o.water(w, h), color.RGBA{R: 64, G: 164, B: 223}, o.scale)
}
