// Package render turns planter rasters and soil fields into pixels.
package render

import (
	"image/color"
	"math"

	"mixcrop/internal/index"
	"mixcrop/internal/soil"
)

// FamilyPalette colours raster cells: 0 is bare soil, 1 + family a plant.
func FamilyPalette() []color.RGBA {
	p := make([]color.RGBA, len(index.Families())+1)
	p[0] = color.RGBA{R: 74, G: 52, B: 36, A: 255}
	p[1+int(index.FamilyLegume)] = color.RGBA{R: 96, G: 200, B: 96, A: 255}
	p[1+int(index.FamilyCereal)] = color.RGBA{R: 226, G: 196, B: 84, A: 255}
	p[1+int(index.FamilyOther)] = color.RGBA{R: 176, G: 110, B: 210, A: 255}
	return p
}

// fillPaletteRGBA converts cell values into RGBA pixels using a palette. When
// the palette is empty the buffer is cleared to transparent black.
func fillPaletteRGBA(buf []byte, cells []uint8, palette []color.RGBA) {
	if len(palette) == 0 {
		for i := range cells {
			base := i * 4
			buf[base+0] = 0
			buf[base+1] = 0
			buf[base+2] = 0
			buf[base+3] = 0
		}
		return
	}

	last := len(palette) - 1
	for i, c := range cells {
		idx := int(c)
		if idx > last {
			idx = last
		}
		base := i * 4
		col := palette[idx]
		buf[base+0] = col.R
		buf[base+1] = col.G
		buf[base+2] = col.B
		buf[base+3] = col.A
	}
}

// fillMaskRGBA tints buf by mask intensities in [0, 1]; zero is transparent.
func fillMaskRGBA(buf []byte, mask []float32, tint color.RGBA) {
	const (
		maxAlpha      = 140.0
		glowBase      = 0.35
		glowRange     = 0.65
		intensityBias = 0.75
	)
	for i, m := range mask {
		base := i * 4
		intensity := math.Min(math.Max(float64(m), 0), 1)
		if intensity == 0 {
			buf[base+0] = 0
			buf[base+1] = 0
			buf[base+2] = 0
			buf[base+3] = 0
			continue
		}
		glow := glowBase + glowRange*math.Sqrt(intensity)
		buf[base+0] = scaleComponent(tint.R, glow)
		buf[base+1] = scaleComponent(tint.G, glow)
		buf[base+2] = scaleComponent(tint.B, glow)
		buf[base+3] = uint8(math.Round(maxAlpha * math.Pow(intensity, intensityBias)))
	}
}

func scaleComponent(v uint8, f float64) uint8 {
	return uint8(math.Min(255, math.Round(float64(v)*f)))
}

// WaterMask samples the column-mean FTSW of s on a w by h raster laid over
// the soil grid, north up.
func WaterMask(s *soil.State, w, h int) []float32 {
	g := s.Grid
	out := make([]float32, w*h)
	if g.NX == 0 || g.NY == 0 || w <= 0 || h <= 0 {
		return out
	}
	cols := make([]float32, g.NX*g.NY)
	for ix := 0; ix < g.NX; ix++ {
		for iy := 0; iy < g.NY; iy++ {
			sum := 0.0
			for iz := 0; iz < g.NZ; iz++ {
				sum += s.FTSW(g.Flat(iz, ix, iy))
			}
			cols[ix*g.NY+iy] = float32(sum / float64(g.NZ))
		}
	}
	for y := 0; y < h; y++ {
		iy := min((h-1-y)*g.NY/h, g.NY-1)
		for x := 0; x < w; x++ {
			ix := min(x*g.NX/w, g.NX-1)
			out[y*w+x] = cols[ix*g.NY+iy]
		}
	}
	return out
}
