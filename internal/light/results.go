package light

import "slices"

// OrganResult is the light of one shape of a triangle scene.
type OrganResult struct {
	Slot  int
	ID    int
	Plant int
	// Area is the organ surface in m².
	Area float64
	// Ei is the intercepted fraction of incident light per unit leaf area.
	Ei float64
	// Absorbed is Ei times Area: the absorbed energy per unit incident
	// irradiance, in m².
	Absorbed float64
}

// VoxelResult is the light of one entity in one voxel of a voxel run.
type VoxelResult struct {
	Slot int
	// Entity is the entity index inside the source grid, or -1 for
	// voxelised shapes.
	Entity     int
	Voxel      int
	IZ, IX, IY int
	// Area is the leaf area of the entity in the voxel, in m².
	Area float64
	// Intercepted is the absorbed energy per unit incident irradiance, in m².
	Intercepted float64
}

// Results is the output of one light engine run.
type Results struct {
	Organs []OrganResult
	Voxels []VoxelResult
	// Total is the fraction of incident light intercepted by the canopy.
	Total float64
	// SoilEnergy is the fraction transmitted to the ground, or -1 when the
	// engine could not resolve it.
	SoilEnergy float64
}

// Empty returns the results of a bare scene.
func Empty() Results { return Results{SoilEnergy: -1} }

// ForSlots keeps the entries belonging to slots. Totals are kept.
func (r Results) ForSlots(slots []int) Results {
	out := Results{Total: r.Total, SoilEnergy: r.SoilEnergy}
	for _, o := range r.Organs {
		if slices.Contains(slots, o.Slot) {
			out.Organs = append(out.Organs, o)
		}
	}
	for _, v := range r.Voxels {
		if slices.Contains(slots, v.Slot) {
			out.Voxels = append(out.Voxels, v)
		}
	}
	return out
}

// Absorbed sums absorbed energy over every entry.
func (r Results) Absorbed() float64 {
	total := 0.0
	for _, o := range r.Organs {
		total += o.Absorbed
	}
	for _, v := range r.Voxels {
		total += v.Intercepted
	}
	return total
}

// ByPlant sums organ absorption per plant of slot, for a stand of n plants.
func (r Results) ByPlant(slot, n int) []float64 {
	out := make([]float64, n)
	for _, o := range r.Organs {
		if o.Slot == slot && o.Plant >= 0 && o.Plant < n {
			out[o.Plant] += o.Absorbed
		}
	}
	return out
}

// PAREnergy converts daily global radiation in J/cm²/day into mean
// photosynthetically active irradiance in W/m².
func PAREnergy(rg float64) float64 { return 0.48 * rg * 10000 / (3600 * 24) }

// DailyMJ converts a mean irradiance in W into MJ per day.
const DailyMJ = 3600 * 24 / 1e6

// ShareInterception splits the intercepted fraction of the whole canopy
// between plants in proportion to their absorbed energy parip, canopy being
// the energy absorbed by every plant of the run.
func ShareInterception(intercepted float64, parip []float64, canopy float64) []float64 {
	out := make([]float64, len(parip))
	for i, p := range parip {
		out[i] = intercepted * p / (canopy + 1e-14)
	}
	return out
}
