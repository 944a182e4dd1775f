// Package soil carries the soil exchange of a coupled run: voxel grid,
// per-plant contributions, their aggregation for one shared engine call and
// the split of the engine's flat results back to each slot.
package soil

import (
	"math"

	"github.com/ctessum/geom"

	"mixcrop/internal/layout"
)

// Grid is the voxel index space (iz, ix, iy) shared by the soil engine and
// root-length arrays. Sizes are in metres; iz = 0 is the surface layer.
type Grid struct {
	NZ, NX, NY int
	DX, DY, DZ float64
	Origin     geom.Point
}

// GridFor splits domain d into nx by ny columns of nz layers of depth dz.
func GridFor(d layout.Domain, nx, ny, nz int, dz float64) Grid {
	nx, ny, nz = max(nx, 1), max(ny, 1), max(nz, 1)
	return Grid{
		NZ: nz, NX: nx, NY: ny,
		DX:     d.Width() / float64(nx),
		DY:     d.Height() / float64(ny),
		DZ:     dz,
		Origin: d.Min(),
	}
}

// Len returns the number of voxels.
func (g Grid) Len() int { return g.NZ * g.NX * g.NY }

// Flat returns the linear index of voxel (iz, ix, iy).
func (g Grid) Flat(iz, ix, iy int) int { return (iz*g.NX+ix)*g.NY + iy }

// Area returns the horizontal surface of the grid in square metres.
func (g Grid) Area() float64 { return float64(g.NX) * g.DX * float64(g.NY) * g.DY }

// VoxelVolume returns the volume of one voxel in cubic metres.
func (g Grid) VoxelVolume() float64 { return g.DX * g.DY * g.DZ }

// VoxelXY returns the column holding (x, y). ok is false outside the grid.
func (g Grid) VoxelXY(x, y float64) (ix, iy int, ok bool) {
	if g.DX <= 0 || g.DY <= 0 {
		return 0, 0, false
	}
	ix = int(math.Floor((x - g.Origin.X) / g.DX))
	iy = int(math.Floor((y - g.Origin.Y) / g.DY))
	ok = ix >= 0 && iy >= 0 && ix < g.NX && iy < g.NY
	return ix, iy, ok
}

// Clamp returns the column holding (x, y), snapping outside points to the border.
func (g Grid) Clamp(x, y float64) (ix, iy int) {
	ix, iy, _ = g.VoxelXY(x, y)
	return min(max(ix, 0), g.NX-1), min(max(iy, 0), g.NY-1)
}

// Column spreads length evenly over the layers of column (ix, iy) down to
// depth. A non-positive depth uses the whole profile; at least the surface
// layer always receives roots.
func (g Grid) Column(ix, iy int, length, depth float64) []float64 {
	out := make([]float64, g.Len())
	layers := g.NZ
	if depth > 0 && g.DZ > 0 {
		layers = min(max(int(math.Ceil(depth/g.DZ)), 1), g.NZ)
	}
	per := length / float64(layers)
	for iz := 0; iz < layers; iz++ {
		out[g.Flat(iz, ix, iy)] = per
	}
	return out
}

// Uniform fills every voxel with v.
func (g Grid) Uniform(v float64) []float64 {
	out := make([]float64, g.Len())
	for i := range out {
		out[i] = v
	}
	return out
}
