package soil

import "gonum.org/v1/gonum/floats"

// Results is the output of one soil engine call. Per-plant fields follow the
// plant order of the aggregated input.
type Results struct {
	Soil *State
	// Evaporation is soil evaporation over the grid, in mm.
	Evaporation float64
	// FTSW is the fraction of transpirable soil water seen by each plant.
	FTSW []float64
	// Transpiration per plant, in mm over the grid surface.
	Transpiration []float64
	// Uptake holds per plant the nitrogen taken from every voxel, in g N.
	Uptake [][]float64
	// SoilTemperature in °C.
	SoilTemperature float64
}

// Positional returns the results in the fixed engine order: soil,
// evaporation, ftsw, transpiration, uptake, soil temperature.
func (r Results) Positional() [6]any {
	return [6]any{r.Soil, r.Evaporation, r.FTSW, r.Transpiration, r.Uptake, r.SoilTemperature}
}

// Plants returns the number of plants covered.
func (r Results) Plants() int { return len(r.Transpiration) }

// PlantUptake returns the total nitrogen uptake of each plant.
func (r Results) PlantUptake() []float64 {
	out := make([]float64, len(r.Uptake))
	for p, u := range r.Uptake {
		out[p] = floats.Sum(u)
	}
	return out
}

// TotalTranspiration sums transpiration over plants.
func (r Results) TotalTranspiration() float64 { return floats.Sum(r.Transpiration) }

// TotalUptake sums nitrogen uptake over plants and voxels.
func (r Results) TotalUptake() float64 { return floats.Sum(r.PlantUptake()) }
