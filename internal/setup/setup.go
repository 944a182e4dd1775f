// Package setup assembles a coupled run from its configuration.
package setup

import (
	"errors"
	"fmt"
	"log/slog"

	"mixcrop/internal/config"
	"mixcrop/internal/coupling"
	"mixcrop/internal/layout"
	"mixcrop/internal/light"
	"mixcrop/internal/soil"
)

// ErrUnknownKind marks an instance whose wrapper kind is not registered.
var ErrUnknownKind = errors.New("setup: unknown wrapper kind")

// Options carries the ambient services handed to the simulation.
type Options struct {
	Logger   *slog.Logger
	Observer coupling.Observer
	Recorder coupling.Recorder
}

// Run is an assembled coupled run.
type Run struct {
	Config     config.Config
	Planter    *layout.Planter
	Light      *light.TurbidEngine
	Grid       soil.Grid
	Supply     *soil.Supply
	Simulation *coupling.Simulation
	// Wrappers are the instance wrappers in global order, before the soil
	// owner decoration.
	Wrappers []coupling.Wrapper
	// Owner is the instance supplying the shared soil input.
	Owner string
}

// Build constructs the index, planter, engines and wrappers of cfg.
func Build(cfg config.Config, opts Options) (*Run, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	snap, err := cfg.Index().Build()
	if err != nil {
		return nil, err
	}
	for _, ic := range cfg.Instances {
		count, ok := coupling.SpeciesOf(ic.Kind)
		if !ok {
			continue
		}
		n, err := count(ic.Settings)
		if err != nil {
			return nil, fmt.Errorf("instance %q: %w", ic.Name, err)
		}
		if n == 0 || n == len(snap.Slots(ic.Name)) {
			continue
		}
		if snap, err = snap.Expand(ic.Name, n); err != nil {
			return nil, err
		}
		log.Debug("species slots", "instance", ic.Name, "slots", n)
	}
	lc, err := cfg.Layout()
	if err != nil {
		return nil, err
	}
	planter, err := layout.New(snap, lc)
	if err != nil {
		return nil, err
	}
	lg, err := cfg.LightConfig()
	if err != nil {
		return nil, err
	}
	engine, err := light.NewTurbidEngine(lg)
	if err != nil {
		return nil, err
	}

	grid := soil.GridFor(planter.Domain(), cfg.Soil.NX, cfg.Soil.NY, cfg.Soil.NZ, cfg.Soil.DZ)
	weather := cfg.Weather()
	supply := &soil.Supply{
		State:         soil.NewState(grid, cfg.SoilProfile()),
		Weather:       weather,
		NBalance:      cfg.NBalance(),
		Events:        cfg.Events(),
		ResidueOption: cfg.Soil.ResidueOption,
		UptakeOption:  cfg.Soil.UptakeOption,
	}

	owner := cfg.Soil.Owner
	if owner == "" {
		owner = snap.Name(0)
	}
	r := &Run{Config: cfg, Planter: planter, Light: engine, Grid: grid, Supply: supply, Owner: owner}
	var coupled []coupling.Wrapper
	for _, ic := range cfg.Instances {
		in, err := snap.Instance(ic.Name)
		if err != nil {
			return nil, err
		}
		factory, ok := coupling.Lookup(ic.Kind)
		if !ok {
			return nil, fmt.Errorf("%w: %q for %q (have %v)", ErrUnknownKind, ic.Kind, ic.Name, coupling.Kinds())
		}
		slots := snap.Slots(ic.Name)
		w, err := factory(coupling.Env{
			Instance: in,
			Slots:    slots,
			Planter:  planter,
			Grid:     grid,
			Weather:  weather,
			Light:    lg,
			Seed:     cfg.Seed + int64(slots[0]),
			Logger:   log.With("instance", ic.Name),
		}, ic.Settings)
		if err != nil {
			return nil, err
		}
		r.Wrappers = append(r.Wrappers, w)
		if ic.Name == owner {
			w = coupling.WithSoil(w, supply.Shared)
		}
		coupled = append(coupled, w)
	}

	r.Simulation, err = coupling.New(planter, coupled, coupling.Options{
		Light:      engine,
		Soil:       soil.BucketEngine{},
		Grid:       grid,
		Weather:    weather,
		Schedule:   coupling.Schedule{LightEvery: cfg.Schedule.LightEvery, SoilEvery: cfg.Schedule.SoilEvery},
		BareParams: soil.PlantParams(cfg.Soil.BareParams),
		Logger:     log,
		Observer:   opts.Observer,
		Recorder:   opts.Recorder,
	})
	if err != nil {
		return nil, err
	}
	log.Info("run assembled",
		"instances", len(cfg.Instances),
		"slots", snap.Len(),
		"mode", planter.Mode().String(),
		"domain", planter.Domain().String(),
		"plants", planter.Counts(),
		"lightmodel", lg.Model.String(),
		"soil_owner", owner)
	return r, nil
}
