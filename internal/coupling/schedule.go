package coupling

// Schedule sets how often the light and soil exchanges run. A zero or
// negative interval means every step.
type Schedule struct {
	LightEvery int
	SoilEvery  int
}

// Light reports whether the light exchange runs at step t.
func (s Schedule) Light(t int) bool { return due(s.LightEvery, t) }

// Soil reports whether the soil exchange runs at step t.
func (s Schedule) Soil(t int) bool { return due(s.SoilEvery, t) }

func due(every, t int) bool { return every <= 1 || t%every == 0 }
