package soil

import (
	"errors"
	"fmt"
)

var (
	// ErrBlockMismatch is returned when flat engine results do not match the
	// plant blocks they were aggregated from.
	ErrBlockMismatch = errors.New("soil: block lengths do not match flat results")
	// ErrShape is returned when a contribution is inconsistent with itself or the grid.
	ErrShape = errors.New("soil: malformed contribution")
)

// PlantParams are the genotype parameters of one plant.
type PlantParams map[string]float64

// Get returns the value for key, or def when absent.
func (p PlantParams) Get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Contribution is one slot's per-plant soil exchange. Every field holds one
// entry per plant, in the same plant order.
type Contribution struct {
	// RootN is each plant's nitrogen status, used to cap uptake.
	RootN []float64
	// RootLength holds per plant the root length in every voxel, in metres.
	RootLength [][]float64
	// Params holds the genotype parameters of every plant.
	Params []PlantParams
	// Interception is the fraction of incident light intercepted per plant.
	Interception []float64
}

// Plants returns the number of plants in the contribution.
func (c Contribution) Plants() int { return len(c.RootLength) }

// Validate checks that all fields agree on the plant count and that root
// arrays match g.
func (c Contribution) Validate(g Grid) error {
	n := c.Plants()
	if len(c.RootN) != n || len(c.Params) != n || len(c.Interception) != n {
		return fmt.Errorf("%w: %d root arrays, %d N, %d params, %d interception",
			ErrShape, n, len(c.RootN), len(c.Params), len(c.Interception))
	}
	for p, roots := range c.RootLength {
		if len(roots) != g.Len() {
			return fmt.Errorf("%w: plant %d has %d voxels, grid has %d", ErrShape, p, len(roots), g.Len())
		}
	}
	return nil
}

// Meteo is one day of weather.
type Meteo struct {
	DOY int
	// RG is global radiation in J/cm²/day.
	RG float64
	// PET is potential evapotranspiration in mm/day.
	PET float64
	// Rain in mm/day.
	Rain float64
	// TMean is the mean air temperature in °C.
	TMean float64
}

// Management is one day of crop management.
type Management struct {
	// Irrigation in mm.
	Irrigation float64
	// FertiliserN in kg N/ha.
	FertiliserN float64
	// ResidueN is nitrogen released by crop residues, in kg N/ha.
	ResidueN float64
}

// NBalance holds the soil nitrogen balance parameters.
type NBalance struct {
	// Mineralisation adds mineral nitrogen in g N/m³/day to every voxel.
	Mineralisation float64
	// UptakeKm is the half-saturation mineral N concentration in g N/m³.
	UptakeKm float64
}

// Shared is the part of the soil input supplied once per step by a single
// representative instance.
type Shared struct {
	Soil          *State
	NBalance      NBalance
	Meteo         Meteo
	Management    Management
	ResidueOption int
	UptakeOption  int
}

// Input is the aggregated soil input of one step.
type Input struct {
	Soil          *State
	NBalance      NBalance
	Meteo         Meteo
	Management    Management
	PlantParams   []PlantParams
	Interception  []float64
	RootLength    [][]float64
	RootN         []float64
	ResidueOption int
	UptakeOption  int
}

// Plants returns the number of plants in the aggregated input.
func (in Input) Plants() int { return len(in.RootLength) }

// Positional returns the input in the fixed engine order: soil, N balance,
// meteo, management, plant params, interception, root length, root N,
// residue option, uptake option.
func (in Input) Positional() [10]any {
	return [10]any{
		in.Soil, in.NBalance, in.Meteo, in.Management,
		in.PlantParams, in.Interception, in.RootLength, in.RootN,
		in.ResidueOption, in.UptakeOption,
	}
}

// BareEpsilon is the root length per voxel of the placeholder plant used on
// bare soil.
const BareEpsilon = 1e-10

// BareContribution returns a single near-zero plant so the soil engine can
// run on a bare domain.
func BareContribution(g Grid, params PlantParams, epsilon float64) Contribution {
	if epsilon <= 0 {
		epsilon = BareEpsilon
	}
	return Contribution{
		RootN:        []float64{1.0},
		RootLength:   [][]float64{g.Uniform(epsilon)},
		Params:       []PlantParams{params},
		Interception: []float64{0.0},
	}
}
