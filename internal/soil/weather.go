package soil

import "math"

// Weather supplies the meteorology of each step.
type Weather interface {
	Day(step int) Meteo
}

// Seasonal is a smooth annual weather cycle peaking at mid-year.
type Seasonal struct {
	StartDOY  int
	RGMean    float64
	RGAmp     float64
	PETMean   float64
	PETAmp    float64
	TMean     float64
	TAmp      float64
	RainEvery int
	Rain      float64
}

// DefaultSeasonal returns a temperate spring-summer climate.
func DefaultSeasonal() Seasonal {
	return Seasonal{
		StartDOY:  100,
		RGMean:    1500,
		RGAmp:     800,
		PETMean:   3,
		PETAmp:    2,
		TMean:     13,
		TAmp:      8,
		RainEvery: 5,
		Rain:      8,
	}
}

// Day returns the weather step days after StartDOY.
func (s Seasonal) Day(step int) Meteo {
	doy := (s.StartDOY+step-1)%365 + 1
	phase := math.Sin(2 * math.Pi * float64(doy-80) / 365)
	m := Meteo{
		DOY:   doy,
		RG:    math.Max(0, s.RGMean+s.RGAmp*phase),
		PET:   math.Max(0, s.PETMean+s.PETAmp*phase),
		TMean: s.TMean + s.TAmp*phase,
	}
	if s.RainEvery > 0 && step%s.RainEvery == s.RainEvery-1 {
		m.Rain = s.Rain
	}
	return m
}

// Table replays recorded days, cycling when the run outlasts the table.
type Table []Meteo

// Day returns the recorded weather of step.
func (t Table) Day(step int) Meteo {
	if len(t) == 0 {
		return Meteo{}
	}
	return t[step%len(t)]
}
