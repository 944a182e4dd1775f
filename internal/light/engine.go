package light

import (
	"errors"
	"fmt"
	"math"

	"mixcrop/internal/layout"
	"mixcrop/internal/scene"
)

var (
	// ErrGridScene is returned when a triangle engine receives voxel grids.
	ErrGridScene = errors.New("light: triangle model cannot take voxel grids")
	// ErrDomain is returned for a degenerate light domain.
	ErrDomain = errors.New("light: empty domain")
)

// Engine runs one light pass on an aggregated scene in metres.
type Engine interface {
	Run(sc scene.Scene, d layout.Domain) (Results, error)
}

// TurbidEngine treats the canopy as a turbid medium: leaf area is binned into
// voxels and light is attenuated column by column with Beer-Lambert, then
// shared between the elements of a voxel by area. Shapes are reported per
// organ and grid entities per voxel.
type TurbidEngine struct {
	cfg Config
}

// NewTurbidEngine validates cfg.
func NewTurbidEngine(cfg Config) (*TurbidEngine, error) {
	if cfg.Model < ModelCaribu || cfg.Model > ModelRiRi5 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownModel, int(cfg.Model))
	}
	if cfg.Extinction <= 0 {
		return nil, fmt.Errorf("light: extinction must be positive, got %v", cfg.Extinction)
	}
	v := cfg.VoxelSize
	if v.X <= 0 || v.Y <= 0 || v.Z <= 0 {
		return nil, fmt.Errorf("light: voxel size must be positive, got %+v", v)
	}
	return &TurbidEngine{cfg: cfg}, nil
}

// Config returns the engine configuration.
func (e *TurbidEngine) Config() Config { return e.cfg }

type element struct {
	slot   int
	entity int
	organ  int
	area   float64
	at     layout.Vec3
}

type voxelKey struct{ slot, entity, voxel int }

// Run lights sc over domain d. An empty scene yields Empty().
func (e *TurbidEngine) Run(sc scene.Scene, d layout.Domain) (Results, error) {
	if sc.Empty() {
		return Empty(), nil
	}
	if !e.cfg.Model.Voxel() && len(sc.Grids) > 0 {
		return Results{}, ErrGridScene
	}
	width, height := d.Width(), d.Height()
	if width <= 0 || height <= 0 {
		return Results{}, fmt.Errorf("%w: %s", ErrDomain, d)
	}
	vs := e.cfg.Voxel(len(sc.Grids) > 0)
	nx := max(1, int(math.Ceil(width/vs.X-1e-9)))
	ny := max(1, int(math.Ceil(height/vs.Y-1e-9)))
	dx, dy, dz := width/float64(nx), height/float64(ny), vs.Z
	top := sc.Top()
	nz := max(1, int(math.Ceil(top/dz-1e-9)))
	origin := d.Min()

	var res Results
	var elems []element
	for _, sh := range sc.Shapes {
		res.Organs = append(res.Organs, OrganResult{Slot: sh.Slot, ID: sh.ID, Plant: sh.Plant, Area: sh.Area()})
		elems = append(elems, element{slot: sh.Slot, entity: -1, organ: len(res.Organs) - 1, area: sh.Area(), at: sh.Centroid()})
	}
	for _, g := range sc.Grids {
		for ent, areas := range g.Area {
			slot := ent
			if ent < len(g.Slots) {
				slot = g.Slots[ent]
			}
			for iz := 0; iz < g.NZ; iz++ {
				for ix := 0; ix < g.NX; ix++ {
					for iy := 0; iy < g.NY; iy++ {
						a := areas[(iz*g.NX+ix)*g.NY+iy]
						if a <= 0 {
							continue
						}
						at := layout.Vec3{
							X: g.Origin.X + (float64(ix)+0.5)*g.Size.X,
							Y: g.Origin.Y + (float64(iy)+0.5)*g.Size.Y,
							Z: g.Origin.Z + (float64(g.NZ-iz)-0.5)*g.Size.Z,
						}
						elems = append(elems, element{slot: slot, entity: ent, organ: -1, area: a, at: at})
					}
				}
			}
		}
	}

	clamp := func(v, n int) int { return min(max(v, 0), n-1) }
	voxelOf := func(p layout.Vec3) (iz, ix, iy int) {
		ix = clamp(int(math.Floor((p.X-origin.X)/dx)), nx)
		iy = clamp(int(math.Floor((p.Y-origin.Y)/dy)), ny)
		iz = clamp(int(math.Floor((top-p.Z)/dz)), nz)
		return iz, ix, iy
	}
	flat := func(iz, ix, iy int) int { return (iz*nx+ix)*ny + iy }

	leaf := make([]float64, nz*nx*ny)
	for _, el := range elems {
		leaf[flat(voxelOf(el.at))] += el.area
	}

	// per unit leaf area absorption of each voxel
	cell := dx * dy
	perArea := make([]float64, len(leaf))
	transmitted := 0.0
	for ix := 0; ix < nx; ix++ {
		for iy := 0; iy < ny; iy++ {
			incoming := 1.0
			for iz := 0; iz < nz; iz++ {
				v := flat(iz, ix, iy)
				if leaf[v] <= 0 {
					continue
				}
				t := math.Exp(-e.cfg.Extinction * leaf[v] / cell)
				perArea[v] = incoming * (1 - t) * cell / leaf[v]
				incoming *= t
			}
			transmitted += incoming * cell
		}
	}
	res.SoilEnergy = transmitted / (width * height)
	res.Total = 1 - res.SoilEnergy

	seen := map[voxelKey]int{}
	for _, el := range elems {
		iz, ix, iy := voxelOf(el.at)
		v := flat(iz, ix, iy)
		absorbed := el.area * perArea[v]
		if el.organ >= 0 {
			res.Organs[el.organ].Absorbed += absorbed
			continue
		}
		k := voxelKey{el.slot, el.entity, v}
		i, ok := seen[k]
		if !ok {
			i = len(res.Voxels)
			seen[k] = i
			res.Voxels = append(res.Voxels, VoxelResult{Slot: el.slot, Entity: el.entity, Voxel: v, IZ: iz, IX: ix, IY: iy})
		}
		res.Voxels[i].Area += el.area
		res.Voxels[i].Intercepted += absorbed
	}
	for i := range res.Organs {
		if a := res.Organs[i].Area; a > 0 {
			res.Organs[i].Ei = res.Organs[i].Absorbed / a
		}
	}
	return res, nil
}
