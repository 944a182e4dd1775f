package soil

import (
	"fmt"
	"slices"
)

// Blocks records the contiguous plant range each contribution occupies in an
// aggregated input.
type Blocks struct {
	lengths []int
	offsets []int
	total   int
}

// NewBlocks builds block boundaries from per-contribution plant counts.
func NewBlocks(lengths []int) Blocks {
	b := Blocks{lengths: slices.Clone(lengths), offsets: make([]int, len(lengths))}
	for i, n := range lengths {
		b.offsets[i] = b.total
		b.total += n
	}
	return b
}

// Len returns the number of blocks.
func (b Blocks) Len() int { return len(b.lengths) }

// Total returns the number of plants covered by all blocks.
func (b Blocks) Total() int { return b.total }

// Offset returns the first plant index of block i.
func (b Blocks) Offset(i int) int { return b.offsets[i] }

// Length returns the plant count of block i.
func (b Blocks) Length(i int) int { return b.lengths[i] }

func (b Blocks) check(what string, n int) error {
	if n != b.total {
		return fmt.Errorf("%w: %s has %d entries, blocks cover %d plants", ErrBlockMismatch, what, n, b.total)
	}
	return nil
}

// SplitFloats slices a flat per-plant array into independent per-block copies.
func (b Blocks) SplitFloats(flat []float64) ([][]float64, error) {
	if err := b.check("flat array", len(flat)); err != nil {
		return nil, err
	}
	out := make([][]float64, len(b.lengths))
	for i, n := range b.lengths {
		out[i] = slices.Clone(flat[b.offsets[i] : b.offsets[i]+n])
	}
	return out, nil
}

// Split slices engine results into one independent Results per block.
func (b Blocks) Split(r Results) ([]Results, error) {
	if err := b.check("transpiration", len(r.Transpiration)); err != nil {
		return nil, err
	}
	if err := b.check("uptake", len(r.Uptake)); err != nil {
		return nil, err
	}
	if err := b.check("ftsw", len(r.FTSW)); err != nil {
		return nil, err
	}
	out := make([]Results, len(b.lengths))
	for i, n := range b.lengths {
		lo, hi := b.offsets[i], b.offsets[i]+n
		uptake := make([][]float64, n)
		for p := range uptake {
			uptake[p] = slices.Clone(r.Uptake[lo+p])
		}
		out[i] = Results{
			Soil:            r.Soil,
			Evaporation:     r.Evaporation,
			FTSW:            slices.Clone(r.FTSW[lo:hi]),
			Transpiration:   slices.Clone(r.Transpiration[lo:hi]),
			Uptake:          uptake,
			SoilTemperature: r.SoilTemperature,
		}
	}
	return out, nil
}

// Concat joins per-block arrays back into one flat array.
func Concat(parts [][]float64) []float64 {
	var out []float64
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Unzip turns slot-ordered contributions into the four slot-aligned field
// sequences: root N, root length, plant params and interception.
func Unzip(contribs []Contribution) (rootN [][]float64, roots [][][]float64, params [][]PlantParams, interception [][]float64) {
	rootN = make([][]float64, len(contribs))
	roots = make([][][]float64, len(contribs))
	params = make([][]PlantParams, len(contribs))
	interception = make([][]float64, len(contribs))
	for i, c := range contribs {
		rootN[i] = c.RootN
		roots[i] = c.RootLength
		params[i] = c.Params
		interception[i] = c.Interception
	}
	return rootN, roots, params, interception
}

// Aggregate concatenates slot-ordered contributions into one engine input.
// Each contribution becomes one contiguous block of plants.
func Aggregate(shared Shared, contribs []Contribution, g Grid) (Input, Blocks, error) {
	lengths := make([]int, len(contribs))
	for i, c := range contribs {
		if err := c.Validate(g); err != nil {
			return Input{}, Blocks{}, fmt.Errorf("slot %d: %w", i, err)
		}
		lengths[i] = c.Plants()
	}
	rootN, roots, params, interception := Unzip(contribs)
	in := Input{
		Soil:          shared.Soil,
		NBalance:      shared.NBalance,
		Meteo:         shared.Meteo,
		Management:    shared.Management,
		ResidueOption: shared.ResidueOption,
		UptakeOption:  shared.UptakeOption,
		RootN:         Concat(rootN),
		Interception:  Concat(interception),
	}
	for i := range contribs {
		in.RootLength = append(in.RootLength, roots[i]...)
		in.PlantParams = append(in.PlantParams, params[i]...)
	}
	return in, NewBlocks(lengths), nil
}
