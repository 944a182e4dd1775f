//go:build ebiten

package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

const (
	panelPadding = 12
	lineHeight   = 16
	glyphWidth   = 7
)

// HUD renders the parameter panel to the right of the layout view.
type HUD struct {
	src        ParameterProvider
	width      int
	panel      *ebiten.Image
	lastHeight int
	lines      []string
}

// NewHUD constructs a HUD for the provided source and panel width.
func NewHUD(src ParameterProvider, width int) *HUD {
	return &HUD{src: src, width: max(width, 0)}
}

// Update refreshes the cached lines from the source.
func (h *HUD) Update() {
	if h == nil || h.src == nil {
		return
	}
	h.lines = Lines(h.src.Parameters(), (h.width-2*panelPadding)/glyphWidth)
}

// Draw paints the panel at offsetX with the given height.
func (h *HUD) Draw(screen *ebiten.Image, offsetX, height int) {
	if h == nil || h.width <= 0 || height <= 0 {
		return
	}
	if h.panel == nil || h.lastHeight != height {
		h.panel = ebiten.NewImage(h.width, height)
		h.lastHeight = height
	}
	h.panel.Fill(color.RGBA{R: 16, G: 16, B: 20, A: 255})
	face := basicfont.Face7x13
	for i, line := range h.lines {
		y := panelPadding + (i+1)*lineHeight
		if y > height {
			break
		}
		col := color.RGBA{R: 220, G: 220, B: 230, A: 255}
		if len(line) > 0 && line[0] != ' ' {
			col = color.RGBA{R: 200, G: 200, B: 120, A: 255}
		}
		text.Draw(h.panel, line, face, panelPadding, y, col)
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(offsetX), 0)
	screen.DrawImage(h.panel, op)
}
