// Package stand keeps the per-plant state of the reference plant models: a
// light-use-efficiency growth rule driven by the shared light and soil
// exchanges.
package stand

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"

	"gonum.org/v1/gonum/floats"

	"mixcrop/internal/layout"
	"mixcrop/internal/light"
	"mixcrop/internal/scene"
	"mixcrop/internal/soil"
	"mixcrop/internal/units"
)

var (
	// ErrSetting is returned for a malformed wrapper setting.
	ErrSetting = errors.New("stand: invalid setting")
	// ErrPlantCount is returned when exchange results do not match the stand.
	ErrPlantCount = errors.New("stand: plant count mismatch")
)

// Params drives growth. Lengths are in metres and areas in m² whatever the
// native unit of the model.
type Params struct {
	// Emergence is the first step with plants.
	Emergence int
	// Heading is the number of steps after emergence when leaf expansion
	// and height growth stop. Zero never stops.
	Heading int
	// RUE is the radiation use efficiency in g/MJ.
	RUE float64
	// SLA is the specific leaf area in m²/g.
	SLA          float64
	LeafFraction float64
	InitialArea  float64
	// Heights in m, HeightRate in m/step.
	InitialHeight float64
	HeightRate    float64
	MaxHeight     float64
	// RootRatio is root length per root biomass, in m/g.
	RootRatio float64
	// InitialRoot is the seedling root length in m. Zero derives it from
	// the initial leaf area through SLA, LeafFraction and RootRatio.
	InitialRoot  float64
	InitialDepth float64
	RootSpeed    float64
	MaxDepth     float64
	// InitialN is the seed nitrogen in g.
	InitialN      float64
	NUptakeMax    float64
	FTSWThreshold float64
	// Fixation is symbiotic nitrogen gained per gram of new biomass.
	Fixation float64
}

// With overrides p from string settings. Unknown keys are left to the caller.
func (p Params) With(settings map[string]string) (Params, error) {
	floatsByKey := map[string]*float64{
		"rue":            &p.RUE,
		"sla":            &p.SLA,
		"leaf_fraction":  &p.LeafFraction,
		"initial_area":   &p.InitialArea,
		"initial_height": &p.InitialHeight,
		"height_rate":    &p.HeightRate,
		"max_height":     &p.MaxHeight,
		"root_ratio":     &p.RootRatio,
		"initial_root":   &p.InitialRoot,
		"initial_depth":  &p.InitialDepth,
		"root_speed":     &p.RootSpeed,
		"max_depth":      &p.MaxDepth,
		"initial_n":      &p.InitialN,
		"n_uptake_max":   &p.NUptakeMax,
		"ftsw_threshold": &p.FTSWThreshold,
		"fixation":       &p.Fixation,
	}
	intsByKey := map[string]*int{
		"emergence": &p.Emergence,
		"heading":   &p.Heading,
	}
	for k, v := range settings {
		if dst, ok := intsByKey[k]; ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return p, fmt.Errorf("%w: %s=%q", ErrSetting, k, v)
			}
			*dst = n
			continue
		}
		if dst, ok := floatsByKey[k]; ok {
			x, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return p, fmt.Errorf("%w: %s=%q", ErrSetting, k, v)
			}
			*dst = x
		}
	}
	return p, nil
}

// SeedlingRoot returns the root length of an emerging plant, in m.
func (p Params) SeedlingRoot() float64 {
	if p.InitialRoot > 0 {
		return p.InitialRoot
	}
	if p.SLA <= 0 || p.LeafFraction <= 0 || p.LeafFraction >= 1 {
		return 0
	}
	leaf := p.InitialArea / p.SLA
	return p.RootRatio * leaf * (1 - p.LeafFraction) / p.LeafFraction
}

// SoilParams returns the genotype parameters passed to the soil engine.
func (p Params) SoilParams() soil.PlantParams {
	return soil.PlantParams{"n_uptake_max": p.NUptakeMax, "ftsw_threshold": p.FTSWThreshold}
}

// Plant is the state of one plant.
type Plant struct {
	// Pos is the stem base in the native unit.
	Pos           layout.Vec3
	Biomass       float64
	LeafArea      float64
	Height        float64
	RootLength    float64
	RootDepth     float64
	N             float64
	PAR           float64
	Epsi          float64
	FTSW          float64
	Transpiration float64
	Uptake        float64
}

// Stand is the plant population of one slot. Derive opens a working copy
// that the exchanges update; Run commits it.
type Stand struct {
	params    Params
	unit      units.Unit
	positions []layout.Vec3
	plants    []Plant
	work      []Plant
	age       int
}

// New returns a stand that emerges at positions, given in unit.
func New(p Params, unit units.Unit, positions []layout.Vec3) *Stand {
	return &Stand{params: p, unit: unit, positions: slices.Clone(positions)}
}

// Params returns the growth parameters.
func (s *Stand) Params() Params { return s.params }

// Unit returns the native length unit.
func (s *Stand) Unit() units.Unit { return s.unit }

// Plants returns the working plants of the current step.
func (s *Stand) Plants() []Plant { return s.work }

// Committed returns the plants as of the last Run.
func (s *Stand) Committed() []Plant { return slices.Clone(s.plants) }

// Len returns the number of working plants.
func (s *Stand) Len() int { return len(s.work) }

// Derive grows the committed plants with the light and water of the last
// step and emerges the stand at its emergence step.
func (s *Stand) Derive(t int) {
	s.work = slices.Clone(s.plants)
	if len(s.work) == 0 {
		if t < s.params.Emergence {
			return
		}
		p := s.params
		root := p.SeedlingRoot()
		for _, pos := range s.positions {
			s.work = append(s.work, Plant{
				Pos:        pos,
				LeafArea:   p.InitialArea,
				Height:     p.InitialHeight,
				RootLength: root,
				RootDepth:  p.InitialDepth,
				N:          p.InitialN,
				FTSW:       1,
			})
		}
		s.age = 0
		return
	}
	p := s.params
	expanding := p.Heading <= 0 || s.age < p.Heading
	for i := range s.work {
		pl := &s.work[i]
		stress := 1.0
		if p.FTSWThreshold > 0 {
			stress = math.Min(1, pl.FTSW/p.FTSWThreshold)
		}
		grown := p.RUE * pl.PAR * stress
		pl.Biomass += grown
		pl.N += p.Fixation * grown
		pl.RootLength += p.RootRatio * (1 - p.LeafFraction) * grown
		pl.RootDepth = math.Min(p.MaxDepth, pl.RootDepth+p.RootSpeed*stress)
		if expanding {
			pl.LeafArea += p.SLA * p.LeafFraction * grown
			pl.Height = math.Min(p.MaxHeight, pl.Height+p.HeightRate*stress)
		}
		pl.PAR = 0
	}
	s.age++
}

// Leaves returns one horizontal leaf per plant at its height, in the native
// unit, tagged with species.
func (s *Stand) Leaves(species int) []scene.Shape {
	f := s.unit.FromMetres(1)
	out := make([]scene.Shape, 0, len(s.work))
	for i, pl := range s.work {
		if pl.LeafArea <= 0 {
			continue
		}
		at := layout.Vec3{X: pl.Pos.X, Y: pl.Pos.Y, Z: pl.Height * f}
		out = append(out, scene.Leaf(i, i, species, at, pl.LeafArea*f*f))
	}
	return out
}

// LeafShare splits absorbed energy between plants by leaf area.
func (s *Stand) LeafShare(absorbed float64) []float64 {
	out := make([]float64, len(s.work))
	for i, pl := range s.work {
		out[i] = pl.LeafArea
	}
	if total := floats.Sum(out); total > 0 {
		floats.Scale(absorbed/total, out)
	}
	return out
}

// Light records the light of the step. parip is each plant's absorbed energy
// per unit incident irradiance in m², energy the incident PAR in W/m²,
// intercepted the canopy intercepted fraction and ground the domain area.
func (s *Stand) Light(energy float64, parip []float64, intercepted, ground float64) error {
	if len(parip) != len(s.work) {
		return fmt.Errorf("%w: %d light values for %d plants", ErrPlantCount, len(parip), len(s.work))
	}
	epsi := light.ShareInterception(intercepted, parip, intercepted*ground)
	for i := range s.work {
		s.work[i].PAR = parip[i] * energy * light.DailyMJ
		s.work[i].Epsi = epsi[i]
	}
	return nil
}

// Contribution returns the soil exchange of the stand on g. place maps a
// native position to shared metres. A rootless plant still reaches the
// surface layer with soil.BareEpsilon.
func (s *Stand) Contribution(g soil.Grid, place func(layout.Vec3) layout.Vec3) soil.Contribution {
	c := soil.Contribution{}
	params := s.params.SoilParams()
	for _, pl := range s.work {
		m := place(pl.Pos)
		ix, iy := g.Clamp(m.X, m.Y)
		depth := pl.RootDepth
		if depth <= 0 {
			depth = g.DZ
		}
		length := pl.RootLength
		if length <= 0 {
			depth = g.DZ
			length = soil.BareEpsilon
		}
		c.RootLength = append(c.RootLength, g.Column(ix, iy, length, depth))
		c.RootN = append(c.RootN, pl.N)
		c.Params = append(c.Params, params)
		c.Interception = append(c.Interception, pl.Epsi)
	}
	return c
}

// ApplySoil takes the stand's share of the soil results.
func (s *Stand) ApplySoil(r soil.Results) error {
	if r.Plants() != len(s.work) {
		return fmt.Errorf("%w: %d soil results for %d plants", ErrPlantCount, r.Plants(), len(s.work))
	}
	up := r.PlantUptake()
	for i := range s.work {
		pl := &s.work[i]
		pl.FTSW = r.FTSW[i]
		pl.Transpiration = r.Transpiration[i]
		pl.Uptake = up[i]
		pl.N += up[i]
	}
	return nil
}

// Run commits the working plants.
func (s *Stand) Run() { s.plants = s.work }

// Totals sums biomass, leaf area and nitrogen of the working plants.
func (s *Stand) Totals() (biomass, leafArea, n float64) {
	for _, pl := range s.work {
		biomass += pl.Biomass
		leafArea += pl.LeafArea
		n += pl.N
	}
	return biomass, leafArea, n
}

// Voxelize bins the leaves of several stands into one grid in the native
// unit of the first. Entity k holds stand k and carries species k. width and
// depth are the horizontal extent and size the voxel, both native.
func Voxelize(stands []*Stand, size layout.Vec3, width, depth float64) scene.LeafGrid {
	if len(stands) == 0 || size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return scene.LeafGrid{}
	}
	f := stands[0].unit.FromMetres(1)
	top := 0.0
	for _, s := range stands {
		for _, pl := range s.work {
			top = math.Max(top, pl.Height*f)
		}
	}
	g := scene.LeafGrid{
		NX:   max(1, int(math.Ceil(width/size.X-1e-9))),
		NY:   max(1, int(math.Ceil(depth/size.Y-1e-9))),
		NZ:   max(1, int(math.Floor(top/size.Z))+1),
		Size: size,
	}
	for k, s := range stands {
		areas := make([]float64, g.NZ*g.NX*g.NY)
		for _, pl := range s.work {
			if pl.LeafArea <= 0 {
				continue
			}
			ix := min(max(int(math.Floor(pl.Pos.X/size.X)), 0), g.NX-1)
			iy := min(max(int(math.Floor(pl.Pos.Y/size.Y)), 0), g.NY-1)
			fromBottom := min(max(int(math.Floor(pl.Height*f/size.Z)), 0), g.NZ-1)
			iz := g.NZ - 1 - fromBottom
			areas[(iz*g.NX+ix)*g.NY+iy] += pl.LeafArea * f * f
		}
		g.Area = append(g.Area, areas)
		g.Slots = append(g.Slots, k)
	}
	return g
}
