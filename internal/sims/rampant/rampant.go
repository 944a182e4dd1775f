// Package rampant is the reference wrapper of the "other" family: a creeping
// plant spreading ramets around its crown, rooted evenly down its column.
package rampant

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"mixcrop/internal/coupling"
	"mixcrop/internal/index"
	"mixcrop/internal/layout"
	"mixcrop/internal/light"
	"mixcrop/internal/scene"
	"mixcrop/internal/sims/stand"
	"mixcrop/internal/soil"
	"mixcrop/internal/units"
)

func init() { coupling.Register("rampant", New) }

// DefaultParams returns a clover-like creeper with a full-depth root column.
func DefaultParams() stand.Params {
	return stand.Params{
		Emergence:     0,
		RUE:           1.5,
		SLA:           0.03,
		LeafFraction:  0.6,
		InitialArea:   5e-4,
		InitialHeight: 0.03,
		HeightRate:    0.002,
		MaxHeight:     0.15,
		RootRatio:     40,
		InitialDepth:  0.4,
		MaxDepth:      0.4,
		InitialN:      0.002,
		NUptakeMax:    0.0015,
		FTSWThreshold: 0.3,
	}
}

const (
	// DefaultRametBiomass is the biomass in g that buys one more ramet.
	DefaultRametBiomass = 0.5
	// DefaultMaxRamets caps the ramets of a plant.
	DefaultMaxRamets = 6
	// DefaultSpread is the ramet distance from the crown, in m.
	DefaultSpread = 0.04
)

// Wrapper couples one creeping stand.
type Wrapper struct {
	name    string
	slot    int
	planter *layout.Planter
	stand   *stand.Stand
	domain  layout.Domain
	log     *slog.Logger

	rametBiomass float64
	maxRamets    int
	spread       float64
}

// New builds a rampant wrapper on the planter positions of its slot.
func New(env coupling.Env, settings map[string]string) (coupling.Wrapper, error) {
	if env.Instance.Family != index.FamilyOther {
		return nil, fmt.Errorf("rampant: instance %q is %s", env.Instance.Name, env.Instance.Family)
	}
	if len(env.Slots) != 1 {
		return nil, fmt.Errorf("rampant %q: expected one slot, got %d", env.Instance.Name, len(env.Slots))
	}
	params, err := DefaultParams().With(settings)
	if err != nil {
		return nil, fmt.Errorf("rampant %q: %w", env.Instance.Name, err)
	}
	pos, err := env.Planter.GeneratePositions(env.Slots[0], env.Seed)
	if err != nil {
		return nil, fmt.Errorf("rampant %q: %w", env.Instance.Name, err)
	}
	w := &Wrapper{
		name:         env.Instance.Name,
		slot:         env.Slots[0],
		planter:      env.Planter,
		stand:        stand.New(params, units.Metre, pos),
		domain:       env.Planter.Domain(),
		log:          env.Logger,
		rametBiomass: DefaultRametBiomass,
		maxRamets:    DefaultMaxRamets,
		spread:       DefaultSpread,
	}
	if w.log == nil {
		w.log = slog.Default()
	}
	if v, ok := settings["ramet_biomass"]; ok {
		if w.rametBiomass, err = strconv.ParseFloat(v, 64); err != nil || w.rametBiomass <= 0 {
			return nil, fmt.Errorf("rampant %q: %w: ramet_biomass=%q", env.Instance.Name, stand.ErrSetting, v)
		}
	}
	if v, ok := settings["max_ramets"]; ok {
		if w.maxRamets, err = strconv.Atoi(v); err != nil || w.maxRamets < 0 {
			return nil, fmt.Errorf("rampant %q: %w: max_ramets=%q", env.Instance.Name, stand.ErrSetting, v)
		}
	}
	if v, ok := settings["spread"]; ok {
		if w.spread, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("rampant %q: %w: spread=%q", env.Instance.Name, stand.ErrSetting, v)
		}
	}
	return w, nil
}

func (w *Wrapper) Name() string { return w.name }
func (w *Wrapper) Family() index.Family { return index.FamilyOther }
func (w *Wrapper) SetDomain(d layout.Domain) { w.domain = d }

// Stand returns the plant state.
func (w *Wrapper) Stand() *stand.Stand { return w.stand }

func (w *Wrapper) Derive(t int) error {
	w.stand.Derive(t)
	return nil
}

// Ramets returns the number of ramets carried by a plant of biomass b.
func (w *Wrapper) Ramets(b float64) int {
	return min(int(b/w.rametBiomass), w.maxRamets)
}

// LightInputs spreads each plant's leaf area over its crown and ramets,
// evenly spaced on a circle around the crown.
func (w *Wrapper) LightInputs() (scene.Scene, error) {
	var sc scene.Scene
	for i, pl := range w.stand.Plants() {
		if pl.LeafArea <= 0 {
			continue
		}
		n := w.Ramets(pl.Biomass)
		area := pl.LeafArea / float64(n+1)
		crown := layout.Vec3{X: pl.Pos.X, Y: pl.Pos.Y, Z: pl.Height}
		sc.Shapes = append(sc.Shapes, scene.Leaf(i*(w.maxRamets+1), i, 0, crown, area))
		for r := 0; r < n; r++ {
			a := 2 * math.Pi * float64(r) / float64(n)
			at := layout.Vec3{
				X: crown.X + w.spread*math.Cos(a),
				Y: crown.Y + w.spread*math.Sin(a),
				Z: crown.Z / 2,
			}
			sc.Shapes = append(sc.Shapes, scene.Leaf(i*(w.maxRamets+1)+r+1, i, 0, at, area))
		}
	}
	return sc, nil
}

// LightResults assimilates epsi × energy × RUE × FTSW through the stand.
func (w *Wrapper) LightResults(energy float64, res light.Results) error {
	parip := res.ByPlant(w.slot, w.stand.Len())
	return w.stand.Light(energy, parip, res.Total, w.domain.Area())
}

func (w *Wrapper) SoilInputs(g soil.Grid) ([]soil.Contribution, error) {
	c := w.stand.Contribution(g, func(p layout.Vec3) layout.Vec3 { return w.planter.Place(w.slot, p) })
	return []soil.Contribution{c}, nil
}

func (w *Wrapper) SoilResults(res []soil.Results) error {
	if len(res) != 1 {
		return fmt.Errorf("%w: %d results for one slot", index.ErrSlotContribution, len(res))
	}
	return w.stand.ApplySoil(res[0])
}

func (w *Wrapper) Run() error {
	w.stand.Run()
	biomass, leaf, n := w.stand.Totals()
	w.log.Debug("rampant", "instance", w.name, "plants", w.stand.Len(), "biomass", biomass, "leaf_area", leaf, "n", n)
	return nil
}
