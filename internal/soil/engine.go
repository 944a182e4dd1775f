package soil

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Engine runs one soil step on an aggregated input.
type Engine interface {
	Step(in Input) (Results, error)
}

// Profile describes a homogeneous soil.
type Profile struct {
	// FieldCapacity and WiltingPoint are volumetric water contents (m³/m³).
	FieldCapacity float64
	WiltingPoint  float64
	// InitialFTSW sets the starting water content between the two.
	InitialFTSW float64
	// MineralN is the starting mineral nitrogen concentration in g N/m³.
	MineralN float64
}

// DefaultProfile returns a loam at field capacity.
func DefaultProfile() Profile {
	return Profile{FieldCapacity: 0.3, WiltingPoint: 0.1, InitialFTSW: 1, MineralN: 5}
}

// State is the single shared soil store of a run. Water is held in litres
// and mineral nitrogen in grams, per voxel.
type State struct {
	Grid     Grid
	Water    []float64
	Capacity []float64
	Wilting  []float64
	Mineral  []float64
	// Drainage accumulates water lost below the profile, in litres.
	Drainage float64
}

// NewState fills g with profile p.
func NewState(g Grid, p Profile) *State {
	litres := g.VoxelVolume() * 1000
	s := &State{
		Grid:     g,
		Water:    make([]float64, g.Len()),
		Capacity: make([]float64, g.Len()),
		Wilting:  make([]float64, g.Len()),
		Mineral:  make([]float64, g.Len()),
	}
	ftsw := math.Min(math.Max(p.InitialFTSW, 0), 1)
	for v := range s.Water {
		s.Capacity[v] = p.FieldCapacity * litres
		s.Wilting[v] = p.WiltingPoint * litres
		s.Water[v] = s.Wilting[v] + ftsw*(s.Capacity[v]-s.Wilting[v])
		s.Mineral[v] = p.MineralN * g.VoxelVolume()
	}
	return s
}

// FTSW returns the fraction of transpirable water of voxel v.
func (s *State) FTSW(v int) float64 {
	span := s.Capacity[v] - s.Wilting[v]
	if span <= 0 {
		return 0
	}
	return math.Min(math.Max((s.Water[v]-s.Wilting[v])/span, 0), 1)
}

// TotalWater returns the water stored in the profile, in mm over the grid.
func (s *State) TotalWater() float64 {
	a := s.Grid.Area()
	if a <= 0 {
		return 0
	}
	return floats.Sum(s.Water) / a
}

// ErrNoSoil is returned when an input carries no soil state.
var ErrNoSoil = errors.New("soil: input has no soil state")

// Uptake options of the bucket engine.
const (
	// UptakeSupply takes what roots can extract.
	UptakeSupply = 0
	// UptakeDemand additionally caps each plant by its nitrogen status.
	UptakeDemand = 1
)

// BucketEngine is a layered bucket model: rain fills layers top-down,
// transpiration and uptake are shared between plants by root length.
type BucketEngine struct{}

// Step applies one day to in.Soil and returns per-plant fluxes.
func (BucketEngine) Step(in Input) (Results, error) {
	s := in.Soil
	if s == nil {
		return Results{}, ErrNoSoil
	}
	g := s.Grid
	for p, roots := range in.RootLength {
		if len(roots) != g.Len() {
			return Results{}, fmt.Errorf("%w: plant %d has %d voxels, soil has %d", ErrShape, p, len(roots), g.Len())
		}
	}
	if len(in.Interception) != in.Plants() || len(in.RootN) != in.Plants() || len(in.PlantParams) != in.Plants() {
		return Results{}, fmt.Errorf("%w: per-plant fields disagree on plant count", ErrShape)
	}
	area := g.Area()
	columns := float64(g.NX * g.NY)

	// rain and irrigation fill the profile from the top
	inflow := (in.Meteo.Rain + in.Management.Irrigation) * area / columns
	for ix := 0; ix < g.NX; ix++ {
		for iy := 0; iy < g.NY; iy++ {
			w := inflow
			for iz := 0; iz < g.NZ && w > 0; iz++ {
				v := g.Flat(iz, ix, iy)
				room := math.Max(s.Capacity[v]-s.Water[v], 0)
				take := math.Min(room, w)
				s.Water[v] += take
				w -= take
			}
			s.Drainage += w
		}
	}

	// nitrogen inputs
	surfaceN := in.Management.FertiliserN
	if in.ResidueOption != 0 {
		surfaceN += in.Management.ResidueN
	}
	// kg/ha -> g/m²
	perColumn := surfaceN * 0.1 * area / columns
	for ix := 0; ix < g.NX; ix++ {
		for iy := 0; iy < g.NY; iy++ {
			s.Mineral[g.Flat(0, ix, iy)] += perColumn
		}
	}
	if in.NBalance.Mineralisation > 0 {
		floats.AddConst(in.NBalance.Mineralisation*g.VoxelVolume(), s.Mineral)
	}

	n := in.Plants()
	res := Results{
		Soil:            s,
		FTSW:            make([]float64, n),
		Transpiration:   make([]float64, n),
		Uptake:          make([][]float64, n),
		SoilTemperature: in.Meteo.TMean,
	}

	// water stress seen by each plant, weighted by its roots
	rootTotal := make([]float64, n)
	for p, roots := range in.RootLength {
		rootTotal[p] = floats.Sum(roots)
		if rootTotal[p] <= 0 {
			continue
		}
		w := 0.0
		for v, rl := range roots {
			if rl > 0 {
				w += rl * s.FTSW(v)
			}
		}
		res.FTSW[p] = w / rootTotal[p]
	}

	// transpiration requests, shared per voxel by root length
	request := make([]float64, g.Len())
	demand := make([]float64, n)
	for p := range in.RootLength {
		if rootTotal[p] <= 0 {
			continue
		}
		threshold := in.PlantParams[p].Get("ftsw_threshold", 0.4)
		stress := 1.0
		if threshold > 0 {
			stress = math.Min(1, res.FTSW[p]/threshold)
		}
		demand[p] = in.Meteo.PET * in.Interception[p] * stress * area
		for v, rl := range in.RootLength[p] {
			request[v] += demand[p] * rl / rootTotal[p]
		}
	}
	supply := make([]float64, g.Len())
	for v := range request {
		avail := math.Max(s.Water[v]-s.Wilting[v], 0)
		supply[v] = 1
		if request[v] > avail && request[v] > 0 {
			supply[v] = avail / request[v]
		}
	}
	for p := range in.RootLength {
		if rootTotal[p] <= 0 {
			continue
		}
		taken := 0.0
		for v, rl := range in.RootLength[p] {
			if rl <= 0 {
				continue
			}
			w := demand[p] * rl / rootTotal[p] * supply[v]
			s.Water[v] -= w
			taken += w
		}
		res.Transpiration[p] = taken / area
	}

	// soil evaporation from the surface layer under the uncovered fraction
	cover := math.Min(floats.Sum(in.Interception), 1)
	for ix := 0; ix < g.NX; ix++ {
		for iy := 0; iy < g.NY; iy++ {
			v := g.Flat(0, ix, iy)
			ev := in.Meteo.PET * (1 - cover) * s.FTSW(v) * area / columns
			ev = math.Min(ev, math.Max(s.Water[v]-s.Wilting[v], 0))
			s.Water[v] -= ev
			res.Evaporation += ev / area
		}
	}

	// nitrogen uptake, Michaelis-Menten on local concentration
	km := in.NBalance.UptakeKm
	if km <= 0 {
		km = 5
	}
	vol := g.VoxelVolume()
	potential := make([][]float64, n)
	claimed := make([]float64, g.Len())
	for p, roots := range in.RootLength {
		vmax := in.PlantParams[p].Get("n_uptake_max", 0.002)
		potential[p] = make([]float64, g.Len())
		for v, rl := range roots {
			if rl <= 0 || vol <= 0 {
				continue
			}
			c := s.Mineral[v] / vol
			potential[p][v] = vmax * rl * c / (c + km)
		}
		if in.UptakeOption == UptakeDemand {
			if total := floats.Sum(potential[p]); total > in.RootN[p] && total > 0 {
				floats.Scale(math.Max(in.RootN[p], 0)/total, potential[p])
			}
		}
		floats.Add(claimed, potential[p])
	}
	for p := range potential {
		res.Uptake[p] = make([]float64, g.Len())
		for v, want := range potential[p] {
			if want <= 0 {
				continue
			}
			share := 1.0
			if claimed[v] > s.Mineral[v] {
				share = s.Mineral[v] / claimed[v]
			}
			res.Uptake[p][v] = want * share
		}
	}
	for p := range res.Uptake {
		floats.Sub(s.Mineral, res.Uptake[p])
	}
	for v := range s.Mineral {
		s.Mineral[v] = math.Max(s.Mineral[v], 0)
	}
	return res, nil
}
