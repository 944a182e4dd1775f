// Package cereal is the reference cereal-family wrapper: a metre-native
// single-species stand whose plants stop expanding at heading.
package cereal

import (
	"fmt"
	"log/slog"

	"mixcrop/internal/coupling"
	"mixcrop/internal/index"
	"mixcrop/internal/layout"
	"mixcrop/internal/light"
	"mixcrop/internal/scene"
	"mixcrop/internal/sims/stand"
	"mixcrop/internal/soil"
	"mixcrop/internal/units"
)

func init() { coupling.Register("cereal", New) }

// DefaultParams returns a winter wheat.
func DefaultParams() stand.Params {
	return stand.Params{
		Emergence:     0,
		Heading:       60,
		RUE:           2.8,
		SLA:           0.022,
		LeafFraction:  0.45,
		InitialArea:   3e-4,
		InitialHeight: 0.05,
		HeightRate:    0.012,
		MaxHeight:     0.9,
		RootRatio:     90,
		InitialDepth:  0.05,
		RootSpeed:     0.015,
		MaxDepth:      1.2,
		InitialN:      0.003,
		NUptakeMax:    0.003,
		FTSWThreshold: 0.4,
	}
}

// Wrapper couples one cereal stand.
type Wrapper struct {
	name    string
	slot    int
	planter *layout.Planter
	stand   *stand.Stand
	domain  layout.Domain
	log     *slog.Logger
}

// New builds a cereal wrapper on the planter positions of its slot.
func New(env coupling.Env, settings map[string]string) (coupling.Wrapper, error) {
	if env.Instance.Family != index.FamilyCereal {
		return nil, fmt.Errorf("cereal: instance %q is %s", env.Instance.Name, env.Instance.Family)
	}
	if len(env.Slots) != 1 {
		return nil, fmt.Errorf("cereal %q: expected one slot, got %d", env.Instance.Name, len(env.Slots))
	}
	params, err := DefaultParams().With(settings)
	if err != nil {
		return nil, fmt.Errorf("cereal %q: %w", env.Instance.Name, err)
	}
	pos, err := env.Planter.GeneratePositions(env.Slots[0], env.Seed)
	if err != nil {
		return nil, fmt.Errorf("cereal %q: %w", env.Instance.Name, err)
	}
	w := &Wrapper{
		name:    env.Instance.Name,
		slot:    env.Slots[0],
		planter: env.Planter,
		stand:   stand.New(params, units.Metre, pos),
		domain:  env.Planter.Domain(),
		log:     env.Logger,
	}
	if w.log == nil {
		w.log = slog.Default()
	}
	return w, nil
}

func (w *Wrapper) Name() string { return w.name }
func (w *Wrapper) Family() index.Family { return index.FamilyCereal }
func (w *Wrapper) SetDomain(d layout.Domain) { w.domain = d }

// Stand returns the plant state.
func (w *Wrapper) Stand() *stand.Stand { return w.stand }

func (w *Wrapper) Derive(t int) error {
	w.stand.Derive(t)
	return nil
}

func (w *Wrapper) LightInputs() (scene.Scene, error) {
	return scene.Scene{Shapes: w.stand.Leaves(0)}, nil
}

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
	w.log.Debug("cereal", "instance", w.name, "plants", w.stand.Len(), "biomass", biomass, "leaf_area", leaf, "n", n)
	return nil
}
