// Package app hosts the interactive layout viewer.
package app

import (
	"fmt"
	"math"

	"mixcrop/internal/core"
	"mixcrop/internal/coupling"
)

// RunGroup summarises the last completed step for the panel.
func RunGroup(reports []coupling.StepReport, paused bool) core.ParameterGroup {
	g := core.ParameterGroup{Name: "Run"}
	if len(reports) == 0 {
		g.Summary = "not started"
		return g
	}
	r := reports[len(reports)-1]
	g.Params = []core.Parameter{
		core.IntParam("t", "Step", r.T),
		core.IntParam("doy", "DOY", r.DOY),
		core.IntParam("plants", "Plants", r.Plants),
		core.FloatParam("intercepted", "Intercepted", round(r.Intercepted)),
		core.FloatParam("water", "Soil water (mm)", round(r.Water)),
		core.FloatParam("transpiration", "Transp. (mm)", round(r.Transpiration)),
	}
	state := "running"
	if paused {
		state = "paused"
	}
	g.Summary = fmt.Sprintf("%s, %s", state, r.Kind())
	return g
}

func round(v float64) float64 { return math.Round(v*1000) / 1000 }
