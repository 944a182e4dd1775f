// Package legume is the reference legume-family wrapper: a centimetre-native
// model hosting one stand per species slot.
package legume

import (
	"fmt"
	"log/slog"
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

func init() {
	coupling.Register("legume", New)
	coupling.RegisterSpecies("legume", SpeciesCount)
}

// SpeciesCount returns the species listed by the "species" setting, zero
// when absent.
func SpeciesCount(settings map[string]string) (int, error) {
	v, ok := settings["species"]
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: species=%q", stand.ErrSetting, v)
	}
	return n, nil
}

// DefaultParams returns a forage legume.
func DefaultParams() stand.Params {
	return stand.Params{
		Emergence:     0,
		RUE:           1.8,
		SLA:           0.025,
		LeafFraction:  0.55,
		InitialArea:   2e-4,
		InitialHeight: 0.02,
		HeightRate:    0.004,
		MaxHeight:     0.45,
		RootRatio:     60,
		InitialDepth:  0.05,
		RootSpeed:     0.01,
		MaxDepth:      0.6,
		InitialN:      0.002,
		NUptakeMax:    0.001,
		FTSWThreshold: 0.35,
		Fixation:      0.03,
	}
}

// Wrapper couples the legume stands of one instance.
type Wrapper struct {
	name    string
	slots   []int
	planter *layout.Planter
	stands  []*stand.Stand
	domain  layout.Domain
	voxel   bool
	size    layout.Vec3
	log     *slog.Logger
}

// New builds a legume wrapper. Plants sit on the planter's native legume
// positions, one stand per species slot.
func New(env coupling.Env, settings map[string]string) (coupling.Wrapper, error) {
	if env.Instance.Family != index.FamilyLegume {
		return nil, fmt.Errorf("legume: instance %q is %s", env.Instance.Name, env.Instance.Family)
	}
	params, err := DefaultParams().With(settings)
	if err != nil {
		return nil, fmt.Errorf("legume %q: %w", env.Instance.Name, err)
	}
	w := &Wrapper{
		name:    env.Instance.Name,
		slots:   append([]int(nil), env.Slots...),
		planter: env.Planter,
		domain:  env.Planter.Domain(),
		voxel:   env.Light.Model.Voxel(),
		log:     env.Logger,
	}
	if w.log == nil {
		w.log = slog.Default()
	}
	// legume grids are exchanged in centimetres
	w.size = env.Light.LegumeVoxelCM
	if w.size.X <= 0 || w.size.Y <= 0 || w.size.Z <= 0 {
		w.size = env.Light.VoxelSize.Scale(units.Centimetre.FromMetres(1))
	}
	for k, slot := range env.Slots {
		pos, err := env.Planter.GeneratePositions(slot, env.Seed+int64(k))
		if err != nil {
			return nil, fmt.Errorf("legume %q: %w", env.Instance.Name, err)
		}
		w.stands = append(w.stands, stand.New(params, units.Centimetre, pos))
	}
	return w, nil
}

func (w *Wrapper) Name() string { return w.name }
func (w *Wrapper) Family() index.Family { return index.FamilyLegume }
func (w *Wrapper) SetDomain(d layout.Domain) { w.domain = d }

// Stands returns the stand of every species slot.
func (w *Wrapper) Stands() []*stand.Stand { return w.stands }

func (w *Wrapper) Derive(t int) error {
	for _, s := range w.stands {
		s.Derive(t)
	}
	return nil
}

// LightInputs returns leaves for triangle engines and a leaf grid for voxel
// engines, in centimetres.
func (w *Wrapper) LightInputs() (scene.Scene, error) {
	var sc scene.Scene
	if w.voxel {
		f := units.Centimetre.FromMetres(1)
		g := stand.Voxelize(w.stands, w.size, w.domain.Width()*f, w.domain.Height()*f)
		if len(g.Area) > 0 {
			sc.Grids = append(sc.Grids, g)
		}
		return sc, nil
	}
	for k, s := range w.stands {
		sc.Shapes = append(sc.Shapes, s.Leaves(k)...)
	}
	return sc, nil
}

// SlotLightInputs returns one scene per species slot. A voxel grid holds
// every species and sits on the first slot.
func (w *Wrapper) SlotLightInputs() ([]scene.Scene, error) {
	out := make([]scene.Scene, len(w.stands))
	if w.voxel && len(out) > 0 {
		sc, err := w.LightInputs()
		if err != nil {
			return nil, err
		}
		out[0] = sc
		return out, nil
	}
	for k, s := range w.stands {
		out[k] = scene.Scene{Shapes: s.Leaves(0)}
	}
	return out, nil
}

func (w *Wrapper) LightResults(energy float64, res light.Results) error {
	for k, s := range w.stands {
		slot := w.slots[k]
		var parip []float64
		if w.voxel {
			absorbed := 0.0
			for _, v := range res.Voxels {
				if v.Slot == slot {
					absorbed += v.Intercepted
				}
			}
			parip = s.LeafShare(absorbed)
		} else {
			parip = res.ByPlant(slot, s.Len())
		}
		if err := s.Light(energy, parip, res.Total, w.domain.Area()); err != nil {
			return fmt.Errorf("species %d: %w", k, err)
		}
	}
	return nil
}

func (w *Wrapper) SoilInputs(g soil.Grid) ([]soil.Contribution, error) {
	out := make([]soil.Contribution, len(w.stands))
	for k, s := range w.stands {
		slot := w.slots[k]
		out[k] = s.Contribution(g, func(p layout.Vec3) layout.Vec3 { return w.planter.Place(slot, p) })
	}
	return out, nil
}

func (w *Wrapper) SoilResults(res []soil.Results) error {
	if len(res) != len(w.stands) {
		return fmt.Errorf("%w: %d results for %d species", index.ErrSlotContribution, len(res), len(w.stands))
	}
	for k, s := range w.stands {
		if err := s.ApplySoil(res[k]); err != nil {
			return fmt.Errorf("species %d: %w", k, err)
		}
	}
	return nil
}

func (w *Wrapper) Run() error {
	for k, s := range w.stands {
		s.Run()
		biomass, leaf, n := s.Totals()
		w.log.Debug("legume", "instance", w.name, "species", k, "plants", s.Len(),
			"biomass", biomass, "leaf_area", leaf, "n", n)
	}
	return nil
}
