package soil

// Supply is the soil side of the representative instance: the one store,
// the weather and the management calendar of a run.
type Supply struct {
	State    *State
	Weather  Weather
	NBalance NBalance
	// Events holds management by step.
	Events        map[int]Management
	ResidueOption int
	UptakeOption  int
}

// Shared returns the shared soil input of step t.
func (s *Supply) Shared(t int) Shared {
	out := Shared{
		Soil:          s.State,
		NBalance:      s.NBalance,
		Management:    s.Events[t],
		ResidueOption: s.ResidueOption,
		UptakeOption:  s.UptakeOption,
	}
	if s.Weather != nil {
		out.Meteo = s.Weather.Day(t)
	}
	return out
}
