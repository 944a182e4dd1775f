package coupling

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mixcrop/internal/index"
	"mixcrop/internal/layout"
	"mixcrop/internal/light"
	"mixcrop/internal/scene"
	"mixcrop/internal/soil"
)

// Observer receives timing and summaries of every step.
type Observer interface {
	ObservePhase(phase Phase, d time.Duration)
	ObserveStep(r StepReport)
}

// Recorder persists step reports. Failures are logged and the run continues.
type Recorder interface {
	Record(ctx context.Context, r StepReport) error
}

// StepReport summarises one coupled step.
type StepReport struct {
	T   int
	DOY int
	// Light and Soil tell which exchanges ran.
	Light bool
	Soil  bool
	// Bare is set when the soil ran without any plant.
	Bare   bool
	Plants int
	// Energy is the incident PAR in W/m².
	Energy float64
	// Intercepted is the canopy intercepted fraction; SoilEnergy the
	// transmitted one, -1 when unknown.
	Intercepted float64
	SoilEnergy  float64
	// Transpiration and Evaporation in mm, Uptake in g N.
	Transpiration float64
	Evaporation   float64
	Uptake        float64
	// Water is the soil water store in mm.
	Water     float64
	Durations map[Phase]time.Duration
}

// Kind classifies the step by the exchanges it ran: bare, coupled,
// light_only, soil_only or plant_only.
func (r StepReport) Kind() string {
	switch {
	case r.Bare:
		return "bare"
	case r.Light && r.Soil:
		return "coupled"
	case r.Light:
		return "light_only"
	case r.Soil:
		return "soil_only"
	}
	return "plant_only"
}

// Options wires the shared engines and ambient services of a Simulation.
type Options struct {
	Light    light.Engine
	Soil     soil.Engine
	Grid     soil.Grid
	Weather  soil.Weather
	Schedule Schedule
	// BareParams are the parameters of the placeholder plant fed to the
	// soil engine when no instance has plants.
	BareParams soil.PlantParams
	Logger     *slog.Logger
	Observer   Observer
	Recorder   Recorder
}

// Simulation runs the fixed eight-phase step over a set of wrappers.
type Simulation struct {
	planter  *layout.Planter
	snap     *index.Snapshot
	wrappers []Wrapper
	provider SharedSoilProvider
	opts     Options
	log      *slog.Logger
	reports  []StepReport
}

// New checks that wrappers cover the instances of the planter's index, one
// wrapper per instance with a matching family, and hands them the domain.
func New(p *layout.Planter, wrappers []Wrapper, opts Options) (*Simulation, error) {
	snap := p.Index()
	byName := make(map[string]Wrapper, len(wrappers))
	for _, w := range wrappers {
		if _, dup := byName[w.Name()]; dup {
			return nil, fmt.Errorf("%w: duplicate wrapper %q", ErrWrapperMismatch, w.Name())
		}
		byName[w.Name()] = w
	}
	instances := snap.Instances()
	if len(instances) != len(wrappers) {
		return nil, fmt.Errorf("%w: %d instances, %d wrappers", ErrWrapperMismatch, len(instances), len(wrappers))
	}
	s := &Simulation{planter: p, snap: snap, opts: opts, log: opts.Logger}
	if s.log == nil {
		s.log = slog.Default()
	}
	for _, in := range instances {
		w, ok := byName[in.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %q: %w", ErrWrapperMismatch, in.Name, index.ErrUnknownInstance)
		}
		if w.Family() != in.Family {
			return nil, fmt.Errorf("%w: %q is %s, index says %s", ErrWrapperMismatch, in.Name, w.Family(), in.Family)
		}
		s.wrappers = append(s.wrappers, w)
		if r, ok := w.(DomainReceiver); ok {
			r.SetDomain(p.Domain())
		}
		if sp, ok := w.(SharedSoilProvider); ok && s.provider == nil {
			s.provider = sp
		}
	}
	if opts.Soil != nil && s.provider == nil {
		return nil, ErrNoSoilProvider
	}
	return s, nil
}

// Planter returns the layout of the run.
func (s *Simulation) Planter() *layout.Planter { return s.planter }

// Wrappers returns the wrappers in global order.
func (s *Simulation) Wrappers() []Wrapper { return append([]Wrapper(nil), s.wrappers...) }

// Reports returns the reports of every completed step.
func (s *Simulation) Reports() []StepReport { return append([]StepReport(nil), s.reports...) }

type stepper struct {
	t      int
	report *StepReport
	obs    Observer
}

func (st *stepper) phase(p Phase, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)
	st.report.Durations[p] += d
	if st.obs != nil {
		st.obs.ObservePhase(p, d)
	}
	return err
}

func (st *stepper) each(p Phase, ws []Wrapper, fn func(Wrapper) error) error {
	return st.phase(p, func() error {
		for _, w := range ws {
			if err := fn(w); err != nil {
				return &PhaseError{Instance: w.Name(), Phase: p, Step: st.t, Err: err}
			}
		}
		return nil
	})
}

func (st *stepper) shared(p Phase, fn func() error) error {
	return st.phase(p, func() error {
		if err := fn(); err != nil {
			return &PhaseError{Phase: p, Step: st.t, Err: err}
		}
		return nil
	})
}

// Step runs step t. Any failure aborts the step and is returned as a
// *PhaseError; wrappers already called keep whatever state they reached.
func (s *Simulation) Step(ctx context.Context, t int) (StepReport, error) {
	if err := ctx.Err(); err != nil {
		return StepReport{}, err
	}
	r := StepReport{T: t, SoilEnergy: -1, Durations: map[Phase]time.Duration{}}
	st := &stepper{t: t, report: &r, obs: s.opts.Observer}
	if s.opts.Weather != nil {
		day := s.opts.Weather.Day(t)
		r.DOY = day.DOY
		r.Energy = light.PAREnergy(day.RG)
	}

	if err := st.each(PhaseDerive, s.wrappers, func(w Wrapper) error { return w.Derive(t) }); err != nil {
		return r, err
	}
	if s.opts.Light != nil && s.opts.Schedule.Light(t) {
		if err := s.lightExchange(st); err != nil {
			return r, err
		}
	}
	if s.opts.Soil != nil && s.opts.Schedule.Soil(t) {
		if err := s.soilExchange(st); err != nil {
			return r, err
		}
	}
	if err := st.each(PhaseRun, s.wrappers, func(w Wrapper) error { return w.Run() }); err != nil {
		return r, err
	}

	s.reports = append(s.reports, r)
	if s.opts.Observer != nil {
		s.opts.Observer.ObserveStep(r)
	}
	if s.opts.Recorder != nil {
		if err := s.opts.Recorder.Record(ctx, r); err != nil {
			s.log.Warn("record step", "t", t, "err", err)
		}
	}
	s.log.Info("step", "t", t, "doy", r.DOY, "plants", r.Plants,
		"intercepted", r.Intercepted, "soil_energy", r.SoilEnergy,
		"transpiration", r.Transpiration, "uptake", r.Uptake)
	return r, nil
}

func (s *Simulation) lightExchange(st *stepper) error {
	r := st.report
	scenes := make(map[string]scene.Scene, len(s.wrappers))
	perSlot := map[string][]scene.Scene{}
	err := st.each(PhaseLightInputs, s.wrappers, func(w Wrapper) error {
		if sp, ok := slotScenes(w); ok {
			scs, err := sp.SlotLightInputs()
			if err != nil {
				return err
			}
			perSlot[w.Name()] = scs
			return nil
		}
		sc, err := w.LightInputs()
		if err != nil {
			return err
		}
		scenes[w.Name()] = sc
		return nil
	})
	if err != nil {
		return err
	}
	var res light.Results
	err = st.shared(PhaseLightEngine, func() error {
		merged, err := index.MergeScenes(s.snap, scenes)
		if err != nil {
			return err
		}
		slotted, err := index.MergeSceneSlots(s.snap, perSlot)
		if err != nil {
			return err
		}
		for i := range merged {
			merged[i] = merged[i].Join(slotted[i])
		}
		agg, err := scene.Aggregate(merged, s.planter.Transformations())
		if err != nil {
			return err
		}
		res, err = s.opts.Light.Run(agg, s.planter.Domain())
		return err
	})
	if err != nil {
		return err
	}
	r.Light = true
	r.Intercepted = res.Total
	r.SoilEnergy = res.SoilEnergy
	return st.each(PhaseLightResults, s.wrappers, func(w Wrapper) error {
		own := res.ForSlots(s.snap.Slots(w.Name()))
		s.log.Debug("light results", "instance", w.Name(), "absorbed", own.Absorbed())
		return w.LightResults(r.Energy, own)
	})
}

func (s *Simulation) soilExchange(st *stepper) error {
	r := st.report
	g := s.opts.Grid
	parts := make(map[string][]soil.Contribution, len(s.wrappers))
	err := st.each(PhaseSoilInputs, s.wrappers, func(w Wrapper) error {
		c, err := w.SoilInputs(g)
		if err != nil {
			return err
		}
		parts[w.Name()] = c
		return nil
	})
	if err != nil {
		return err
	}

	var split []soil.Results
	err = st.shared(PhaseSoilEngine, func() error {
		slots, err := index.MergeSoilInputs(s.snap, parts)
		if err != nil {
			return err
		}
		plants := 0
		for _, c := range slots {
			plants += c.Plants()
		}
		r.Plants = plants
		contribs := slots
		if plants == 0 {
			r.Bare = true
			contribs = []soil.Contribution{soil.BareContribution(g, s.opts.BareParams, soil.BareEpsilon)}
		}
		in, blocks, err := soil.Aggregate(s.provider.SharedSoil(st.t), contribs, g)
		if err != nil {
			return err
		}
		res, err := s.opts.Soil.Step(in)
		if err != nil {
			return err
		}
		if r.Bare {
			split = make([]soil.Results, len(slots))
			for i := range split {
				split[i] = soil.Results{Soil: res.Soil, Evaporation: res.Evaporation, SoilTemperature: res.SoilTemperature}
			}
		} else {
			r.Transpiration = res.TotalTranspiration()
			r.Uptake = res.TotalUptake()
			if split, err = blocks.Split(res); err != nil {
				return err
			}
		}
		r.Evaporation = res.Evaporation
		if res.Soil != nil {
			r.Water = res.Soil.TotalWater()
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.Soil = true
	return st.each(PhaseSoilResults, s.wrappers, func(w Wrapper) error {
		slots := s.snap.Slots(w.Name())
		own := make([]soil.Results, len(slots))
		for k, slot := range slots {
			own[k] = split[slot]
		}
		return w.SoilResults(own)
	})
}

// Run executes steps from 0 until steps or until ctx is done. ctx is only
// checked between steps.
func (s *Simulation) Run(ctx context.Context, steps int) error {
	for t := 0; t < steps; t++ {
		if _, err := s.Step(ctx, t); err != nil {
			return err
		}
	}
	return nil
}
