// Package coupling drives the per-step exchange between plant simulators and
// the shared light and soil engines.
package coupling

import (
	"errors"
	"fmt"

	"mixcrop/internal/index"
	"mixcrop/internal/layout"
	"mixcrop/internal/light"
	"mixcrop/internal/scene"
	"mixcrop/internal/soil"
)

// Wrapper is the capability set every participating simulator provides. The
// driver calls the methods once per step in the order they are listed.
type Wrapper interface {
	// Name returns the instance name declared in the index.
	Name() string
	// Family tags the wrapper for dispatch; it must match the index.
	Family() index.Family
	// Derive advances the internal growth state by one step.
	Derive(t int) error
	// LightInputs returns the current scene in the native length unit.
	LightInputs() (scene.Scene, error)
	// LightResults consumes the light results of this instance's slots.
	// energy is the incident PAR in W/m². An empty result must be tolerated.
	LightResults(energy float64, res light.Results) error
	// SoilInputs returns one contribution per occupied slot.
	SoilInputs(grid soil.Grid) ([]soil.Contribution, error)
	// SoilResults consumes the disaggregated results, one per occupied slot.
	SoilResults(res []soil.Results) error
	// Run commits the step.
	Run() error
}

// SharedSoilProvider is implemented by the representative instance that
// supplies the soil state, weather and management of a step.
type SharedSoilProvider interface {
	SharedSoil(t int) soil.Shared
}

// SlotSceneProvider is implemented by multi-slot wrappers that hand the light
// engine one scene per occupied slot. The driver calls it in place of
// LightInputs; shape species offsets are then relative to each slot.
type SlotSceneProvider interface {
	SlotLightInputs() ([]scene.Scene, error)
}

// DomainReceiver is implemented by wrappers that need the shared domain.
type DomainReceiver interface {
	SetDomain(d layout.Domain)
}

// Phase names one stage of a coupled step.
type Phase string

// Step phases, in execution order.
const (
	PhaseDerive       Phase = "derive"
	PhaseLightInputs  Phase = "light_inputs"
	PhaseLightEngine  Phase = "light_engine"
	PhaseLightResults Phase = "light_results"
	PhaseSoilInputs   Phase = "soil_inputs"
	PhaseSoilEngine   Phase = "soil_engine"
	PhaseSoilResults  Phase = "soil_results"
	PhaseRun          Phase = "run"
)

// Phases lists the step phases in execution order.
func Phases() []Phase {
	return []Phase{
		PhaseDerive, PhaseLightInputs, PhaseLightEngine, PhaseLightResults,
		PhaseSoilInputs, PhaseSoilEngine, PhaseSoilResults, PhaseRun,
	}
}

// PhaseError reports a failure inside one phase of a step. Instance is empty
// for failures of the shared engines and of aggregation.
type PhaseError struct {
	Instance string
	Phase    Phase
	Step     int
	Err      error
}

func (e *PhaseError) Error() string {
	if e.Instance == "" {
		return fmt.Sprintf("step %d: %s: %v", e.Step, e.Phase, e.Err)
	}
	return fmt.Sprintf("step %d: %s: %s: %v", e.Step, e.Instance, e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

var (
	// ErrWrapperMismatch is returned when wrappers do not cover the index.
	ErrWrapperMismatch = errors.New("coupling: wrappers do not match the index")
	// ErrNoSoilProvider is returned when no wrapper supplies the shared soil.
	ErrNoSoilProvider = errors.New("coupling: no wrapper supplies the shared soil")
)
