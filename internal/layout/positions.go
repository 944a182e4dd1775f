package layout

import (
	"fmt"
	"math"
	"slices"

	"mixcrop/internal/core"
	"mixcrop/internal/index"
	rng "mixcrop/pkg/core"
)

// Arrangement carries the native stand options of a legume instance.
type Arrangement struct {
	// Type is the arrangement tag, for example "random8" or "row4".
	Type string
	// Cote is the plot side in centimetres.
	Cote float64
	// NbCote is the number of plants along one side.
	NbCote int
	// OptDamier is the checkerboard period of species assignment.
	OptDamier int
}

var arrangements = []string{"random8", "damier8", "damier16", "row4", "row4_sp1", "homogeneous"}

func knownArrangement(tag string) bool { return slices.Contains(arrangements, tag) }

// GeneratePositions returns the plant positions of slot in the slot's native
// unit. Draws are reproducible for a given seed. Positions are cached when
// position saving is enabled, and always for other-family slots.
func (p *Planter) GeneratePositions(slot int, seed int64) ([]Vec3, error) {
	if slot < 0 || slot >= p.snap.Len() {
		return nil, fmt.Errorf("%w: slot %d out of range", ErrConfig, slot)
	}
	if cached, ok := p.positions[slot]; ok {
		return slices.Clone(cached), nil
	}
	var out []Vec3
	family := p.snap.FamilyOf(slot)
	switch {
	case family == index.FamilyLegume && p.cfg.Mode == ModeRow:
		out = p.rows(slot, seed, p.cfg.InterRows, 1.0)
	case family == index.FamilyLegume:
		out = p.lattice(slot)
	case p.cfg.Mode == ModeRow:
		out = p.rows(slot, seed, p.cfg.InterRows, 1.5)
	default:
		out = p.scatter(slot, seed)
	}
	if unit := p.tr.Unit(slot); unit.Metres() != 1 {
		for i := range out {
			out[i] = out[i].Scale(unit.FromMetres(1))
		}
	}
	if p.cfg.SavePositions || family == index.FamilyOther {
		p.positions[slot] = slices.Clone(out)
	}
	return out, nil
}

// Positions is GeneratePositions with DefaultSeed.
func (p *Planter) Positions(slot int) ([]Vec3, error) { return p.GeneratePositions(slot, DefaultSeed) }

// Place converts a native-unit position of slot into shared metres, translation included.
func (p *Planter) Place(slot int, pos Vec3) Vec3 { return p.tr.Apply(slot, pos) }

// scatter draws plants uniformly over the domain.
func (p *Planter) scatter(slot int, seed int64) []Vec3 {
	r := rng.NewRNG(seed)
	lo, hi := p.domain.Min(), p.domain.Max()
	out := make([]Vec3, p.counts[slot])
	for i := range out {
		out[i] = Vec3{X: r.Uniform(lo.X, hi.X), Y: r.Uniform(lo.Y, hi.Y)}
	}
	return out
}

// rows lays two rows of plants, the first at first*interRows and the second
// half the domain further, each position jittered by the configured noise.
func (p *Planter) rows(slot int, seed int64, interRows, first float64) []Vec3 {
	n := p.counts[slot]
	if n == 0 {
		return nil
	}
	r := rng.NewRNG(seed)
	const nrows = 2
	onRow := 2 * p.domain.Max().Y / float64(n)
	ys := []float64{
		interRows * first,
		(float64(p.totalRows)/nrows + first) * interRows,
	}
	out := make([]Vec3, 0, n)
	for _, y := range ys {
		for ix := 0; ix < n/nrows; ix++ {
			x := onRow * (0.5 + float64(ix))
			out = append(out, Vec3{X: r.Jitter(x, p.cfg.Noise), Y: r.Jitter(y, p.cfg.Noise)})
		}
	}
	return out
}

// lattice places legume plants on a square grid covering the plot.
func (p *Planter) lattice(slot int) []Vec3 {
	n := p.counts[slot]
	if n == 0 {
		return nil
	}
	side := p.domain.Width()
	if a, ok := p.arrangements[p.snap.Name(slot)]; ok && a.Cote > 0 {
		side = a.Cote * 0.01
	}
	per := int(math.Ceil(math.Sqrt(float64(n))))
	step := side / float64(per)
	out := make([]Vec3, 0, n)
	for i := 0; i < n; i++ {
		ix, iy := i%per, i/per
		out = append(out, Vec3{X: step * (0.5 + float64(ix)), Y: step * (0.5 + float64(iy))})
	}
	return out
}

// Rasterize marks every plant of every slot on g, scaled to the domain.
// A cell holds 1 + the family of the last plant drawn on it.
func (p *Planter) Rasterize(g *core.ByteGrid) error {
	g.Clear()
	w, h := p.domain.Width(), p.domain.Height()
	if w <= 0 || h <= 0 {
		return nil
	}
	origin := p.domain.Min()
	for slot := 0; slot < p.snap.Len(); slot++ {
		pos, err := p.Positions(slot)
		if err != nil {
			return err
		}
		v := uint8(p.snap.FamilyOf(slot)) + 1
		for _, q := range pos {
			m := p.Place(slot, q)
			x := int((m.X - origin.X) / w * float64(g.W))
			y := int((m.Y - origin.Y) / h * float64(g.H))
			g.Set(x, g.H-1-y, v)
		}
	}
	return nil
}
