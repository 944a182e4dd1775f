// Package config loads the description of a coupled run.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"mixcrop/internal/index"
	"mixcrop/internal/layout"
	"mixcrop/internal/light"
	"mixcrop/internal/soil"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid marks a configuration that cannot describe a run.
var ErrInvalid = errors.New("config: invalid")

// Config describes one coupled run.
type Config struct {
	Steps     int        `yaml:"steps"`
	Seed      int64      `yaml:"seed"`
	Instances []Instance `yaml:"instances"`
	Planter   Planter    `yaml:"planter"`
	Light     Light      `yaml:"light"`
	Soil      Soil       `yaml:"soil"`
	Schedule  Schedule   `yaml:"schedule"`
	Record    Record     `yaml:"record"`
	Export    Export     `yaml:"export"`
}

// Instance declares one simulator and the wrapper kind driving it.
type Instance struct {
	Name     string            `yaml:"name"`
	Family   string            `yaml:"family"`
	Kind     string            `yaml:"kind"`
	Species  int               `yaml:"species"`
	Settings map[string]string `yaml:"settings"`
	// Density in plants/m².
	Density float64 `yaml:"density"`

	// Legume plot: side in cm, plants per species and arrangement tag.
	Cote        float64 `yaml:"cote"`
	Count       int     `yaml:"count"`
	Arrangement string  `yaml:"arrangement"`

	// Native stand domain in metres, as [xmin, ymin, xmax, ymax].
	Native    []float64 `yaml:"native"`
	Translate []float64 `yaml:"translate"`
}

// Planter holds the layout options shared by all instances.
type Planter struct {
	GenerationType string    `yaml:"generation_type"`
	InterRows      float64   `yaml:"inter_rows"`
	XYSquareLength float64   `yaml:"xy_square_length"`
	XYPlane        []float64 `yaml:"xy_plane"`
	Noise          float64   `yaml:"noise"`
	SavePositions  bool      `yaml:"save_positions"`
}

// Light configures the shared light engine.
type Light struct {
	Model      string  `yaml:"model"`
	Extinction float64 `yaml:"extinction"`
	// VoxelSize in m, LegumeVoxelCM in cm, both as [dx, dy, dz].
	VoxelSize     []float64 `yaml:"voxel_size"`
	LegumeVoxelCM []float64 `yaml:"legume_voxel_cm"`
}

// Soil configures the shared soil store and its representative instance.
type Soil struct {
	// Owner names the instance supplying the shared soil input. Empty
	// selects the first instance in global order.
	Owner         string   `yaml:"owner"`
	NX            int      `yaml:"nx"`
	NY            int      `yaml:"ny"`
	NZ            int      `yaml:"nz"`
	DZ            float64  `yaml:"dz"`
	Profile       Profile  `yaml:"profile"`
	NBalance      NBalance `yaml:"n_balance"`
	Weather       Weather  `yaml:"weather"`
	Management    []Event  `yaml:"management"`
	ResidueOption int      `yaml:"residue_option"`
	UptakeOption  int      `yaml:"uptake_option"`

	// BareParams parameterise the placeholder plant of bare-soil steps.
	BareParams map[string]float64 `yaml:"bare_params"`
}

type Profile struct {
	FieldCapacity float64 `yaml:"field_capacity"`
	WiltingPoint  float64 `yaml:"wilting_point"`
	InitialFTSW   float64 `yaml:"initial_ftsw"`
	MineralN      float64 `yaml:"mineral_n"`
}

type NBalance struct {
	Mineralisation float64 `yaml:"mineralisation"`
	UptakeKm       float64 `yaml:"uptake_km"`
}

// Weather is a seasonal cycle, replaced by Days when those are given.
type Weather struct {
	StartDOY  int     `yaml:"start_doy"`
	RGMean    float64 `yaml:"rg_mean"`
	RGAmp     float64 `yaml:"rg_amp"`
	PETMean   float64 `yaml:"pet_mean"`
	PETAmp    float64 `yaml:"pet_amp"`
	TMean     float64 `yaml:"t_mean"`
	TAmp      float64 `yaml:"t_amp"`
	RainEvery int     `yaml:"rain_every"`
	Rain      float64 `yaml:"rain"`
	Days      []Day   `yaml:"days"`
}

// Day is one recorded day of weather.
type Day struct {
	DOY   int     `yaml:"doy"`
	RG    float64 `yaml:"rg"`
	PET   float64 `yaml:"pet"`
	Rain  float64 `yaml:"rain"`
	TMean float64 `yaml:"t_mean"`
}

// Event is the management applied at one step.
type Event struct {
	Step        int     `yaml:"step"`
	Irrigation  float64 `yaml:"irrigation"`
	FertiliserN float64 `yaml:"fertiliser_n"`
	ResidueN    float64 `yaml:"residue_n"`
}

type Schedule struct {
	LightEvery int `yaml:"light_every"`
	SoilEvery  int `yaml:"soil_every"`
}

// Record selects the step store. An empty DSN disables recording.
type Record struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Export names the sink of the end-of-run tables: "fs:<dir>" or
// "s3://bucket/prefix". Empty disables the export.
type Export struct {
	Target string `yaml:"target"`
}

// DefaultConfig returns the embedded defaults.
func DefaultConfig() Config {
	var c Config
	if err := yaml.Unmarshal(defaultsYAML, &c); err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return c
}

// Parse overlays a YAML document on the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	c := DefaultConfig()
	if len(data) > 0 {
		defaults := c.Instances
		c.Instances = nil
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if c.Instances == nil {
			c.Instances = defaults
		}
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load reads a run file. An empty path returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// FromMap applies flag-style key/value overrides. Malformed values are ignored.
func (c *Config) FromMap(m map[string]string) {
	if v, ok := m["steps"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			c.Steps = parsed
		}
	}
	if v, ok := m["seed"]; ok {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Seed = parsed
		}
	}
	if v, ok := m["generation_type"]; ok {
		c.Planter.GenerationType = v
	}
	if v, ok := m["lightmodel"]; ok {
		c.Light.Model = v
	}
	if v, ok := m["light_every"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			c.Schedule.LightEvery = parsed
		}
	}
	if v, ok := m["soil_every"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			c.Schedule.SoilEvery = parsed
		}
	}
	if v, ok := m["soil_owner"]; ok {
		c.Soil.Owner = v
	}
	if v, ok := m["record"]; ok {
		c.Record.DSN = v
	}
	if v, ok := m["record_driver"]; ok {
		c.Record.Driver = v
	}
	if v, ok := m["export"]; ok {
		c.Export.Target = v
	}
}

// Validate enforces the closed enumerations and the shape of the run.
func (c Config) Validate() error {
	if c.Steps < 0 {
		return fmt.Errorf("%w: negative steps", ErrInvalid)
	}
	if len(c.Instances) == 0 {
		return fmt.Errorf("%w: no instances", ErrInvalid)
	}
	seen := map[string]bool{}
	for i, in := range c.Instances {
		if in.Name == "" {
			return fmt.Errorf("%w: instance %d has no name", ErrInvalid, i)
		}
		if seen[in.Name] {
			return fmt.Errorf("%w: duplicate instance %q", ErrInvalid, in.Name)
		}
		seen[in.Name] = true
		if _, err := index.ParseFamily(in.Family); err != nil {
			return fmt.Errorf("%w: instance %q: %w", ErrInvalid, in.Name, err)
		}
		if in.Kind == "" {
			return fmt.Errorf("%w: instance %q has no wrapper kind", ErrInvalid, in.Name)
		}
		if in.Native != nil && len(in.Native) != 4 {
			return fmt.Errorf("%w: instance %q: native domain needs 4 values", ErrInvalid, in.Name)
		}
		if in.Translate != nil && len(in.Translate) != 2 && len(in.Translate) != 3 {
			return fmt.Errorf("%w: instance %q: translate needs 2 or 3 values", ErrInvalid, in.Name)
		}
	}
	if _, err := layout.ParseMode(c.Planter.GenerationType); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Planter.XYPlane != nil && len(c.Planter.XYPlane) != 4 {
		return fmt.Errorf("%w: xy_plane needs 4 values", ErrInvalid)
	}
	if _, err := light.ParseModel(c.Light.Model); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if len(c.Light.VoxelSize) != 3 {
		return fmt.Errorf("%w: voxel_size needs 3 values", ErrInvalid)
	}
	if c.Light.LegumeVoxelCM != nil && len(c.Light.LegumeVoxelCM) != 3 {
		return fmt.Errorf("%w: legume_voxel_cm needs 3 values", ErrInvalid)
	}
	if c.Soil.Owner != "" && !seen[c.Soil.Owner] {
		return fmt.Errorf("%w: soil owner %q: %w", ErrInvalid, c.Soil.Owner, index.ErrUnknownInstance)
	}
	if c.Soil.NX < 1 || c.Soil.NY < 1 || c.Soil.NZ < 1 || c.Soil.DZ <= 0 {
		return fmt.Errorf("%w: soil grid %dx%dx%d by %g m", ErrInvalid, c.Soil.NX, c.Soil.NY, c.Soil.NZ, c.Soil.DZ)
	}
	switch c.Record.Driver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("%w: unknown record driver %q", ErrInvalid, c.Record.Driver)
	}
	return nil
}

// Index returns the instance declarations in global order.
func (c Config) Index() index.Builder {
	var b index.Builder
	for _, in := range c.Instances {
		f, _ := index.ParseFamily(in.Family)
		b.Instances = append(b.Instances, index.Instance{Name: in.Name, Family: f, Species: in.Species})
	}
	return b
}

// Layout returns the planter configuration.
func (c Config) Layout() (layout.Config, error) {
	mode, err := layout.ParseMode(c.Planter.GenerationType)
	if err != nil {
		return layout.Config{}, err
	}
	lc := layout.Config{
		Mode:           mode,
		InterRows:      c.Planter.InterRows,
		XYSquareLength: c.Planter.XYSquareLength,
		Noise:          c.Planter.Noise,
		SavePositions:  c.Planter.SavePositions,
		Density:        map[string]float64{},
		LegumeCote:     map[string]float64{},
		LegumeCount:    map[string]int{},
		Arrangement:    map[string]string{},
		Native:         map[string]layout.Domain{},
		Translate:      map[string]layout.Vec3{},
	}
	if p := c.Planter.XYPlane; len(p) == 4 {
		d := layout.NewDomain(p[0], p[1], p[2], p[3])
		lc.XYPlane = &d
	}
	for _, in := range c.Instances {
		if in.Density > 0 {
			lc.Density[in.Name] = in.Density
		}
		if in.Cote > 0 {
			lc.LegumeCote[in.Name] = in.Cote
		}
		if in.Count > 0 {
			lc.LegumeCount[in.Name] = in.Count
		}
		if in.Arrangement != "" {
			lc.Arrangement[in.Name] = in.Arrangement
		}
		if n := in.Native; len(n) == 4 {
			lc.Native[in.Name] = layout.NewDomain(n[0], n[1], n[2], n[3])
		}
		if v := in.Translate; len(v) >= 2 {
			t := layout.Vec3{X: v[0], Y: v[1]}
			if len(v) == 3 {
				t.Z = v[2]
			}
			lc.Translate[in.Name] = t
		}
	}
	return lc, nil
}

// LightConfig returns the light engine configuration.
func (c Config) LightConfig() (light.Config, error) {
	model, err := light.ParseModel(c.Light.Model)
	if err != nil {
		return light.Config{}, err
	}
	lc := light.Config{Model: model, Extinction: c.Light.Extinction}
	if v := c.Light.VoxelSize; len(v) == 3 {
		lc.VoxelSize = layout.Vec3{X: v[0], Y: v[1], Z: v[2]}
	}
	if v := c.Light.LegumeVoxelCM; len(v) == 3 {
		lc.LegumeVoxelCM = layout.Vec3{X: v[0], Y: v[1], Z: v[2]}
	}
	return lc, nil
}

// SoilProfile returns the initial soil profile.
func (c Config) SoilProfile() soil.Profile {
	p := c.Soil.Profile
	return soil.Profile{
		FieldCapacity: p.FieldCapacity,
		WiltingPoint:  p.WiltingPoint,
		InitialFTSW:   p.InitialFTSW,
		MineralN:      p.MineralN,
	}
}

// Weather returns the recorded days when given, the seasonal cycle otherwise.
func (c Config) Weather() soil.Weather {
	w := c.Soil.Weather
	if len(w.Days) > 0 {
		t := make(soil.Table, len(w.Days))
		for i, d := range w.Days {
			t[i] = soil.Meteo{DOY: d.DOY, RG: d.RG, PET: d.PET, Rain: d.Rain, TMean: d.TMean}
		}
		return t
	}
	return soil.Seasonal{
		StartDOY:  w.StartDOY,
		RGMean:    w.RGMean,
		RGAmp:     w.RGAmp,
		PETMean:   w.PETMean,
		PETAmp:    w.PETAmp,
		TMean:     w.TMean,
		TAmp:      w.TAmp,
		RainEvery: w.RainEvery,
		Rain:      w.Rain,
	}
}

// Events returns the management calendar by step. Events on the same step add up.
func (c Config) Events() map[int]soil.Management {
	out := map[int]soil.Management{}
	for _, e := range c.Soil.Management {
		m := out[e.Step]
		m.Irrigation += e.Irrigation
		m.FertiliserN += e.FertiliserN
		m.ResidueN += e.ResidueN
		out[e.Step] = m
	}
	return out
}

// NBalance returns the soil nitrogen parameters.
func (c Config) NBalance() soil.NBalance {
	return soil.NBalance{Mineralisation: c.Soil.NBalance.Mineralisation, UptakeKm: c.Soil.NBalance.UptakeKm}
}
