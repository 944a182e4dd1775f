package coupling

import (
	"log/slog"

	"mixcrop/internal/core"
	"mixcrop/internal/index"
	"mixcrop/internal/layout"
	"mixcrop/internal/light"
	"mixcrop/internal/soil"
)

// Env is what a wrapper factory gets to build one instance.
type Env struct {
	Instance index.Instance
	// Slots are the global slots the instance occupies.
	Slots   []int
	Planter *layout.Planter
	Grid    soil.Grid
	Weather soil.Weather
	Light   light.Config
	Seed    int64
	Logger  *slog.Logger
}

// Factory builds a wrapper from its environment and free-form settings.
type Factory func(env Env, settings map[string]string) (Wrapper, error)

var wrappers core.Registry[Factory]

// Register makes a wrapper kind available to run files.
func Register(kind string, f Factory) { wrappers.Register(kind, f) }

// Lookup returns the factory of kind.
func Lookup(kind string) (Factory, bool) { return wrappers.Lookup(kind) }

// Kinds lists the registered wrapper kinds.
func Kinds() []string { return wrappers.Names() }

// SpeciesCounter reads how many species slots an instance declares in its
// settings. Zero keeps the count of the run file.
type SpeciesCounter func(settings map[string]string) (int, error)

var species core.Registry[SpeciesCounter]

// RegisterSpecies lets a multi-species kind size its instance before the
// layout is planned.
func RegisterSpecies(kind string, f SpeciesCounter) { species.Register(kind, f) }

// SpeciesOf returns the species counter of kind.
func SpeciesOf(kind string) (SpeciesCounter, bool) { return species.Lookup(kind) }
