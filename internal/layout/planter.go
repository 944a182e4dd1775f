// Package layout builds the shared soil domain, plant counts and per-slot
// transformations of a coupled run.
package layout

import (
	"errors"
	"fmt"
	"math"

	"mixcrop/internal/core"
	"mixcrop/internal/index"
)

// ErrConfig marks an invalid planter configuration.
var ErrConfig = errors.New("layout: invalid configuration")

// Mode selects how the domain and plant counts are generated.
type Mode int

const (
	// ModeDefault lets every family keep its native stand layout.
	ModeDefault Mode = iota
	// ModeRandom scatters plants uniformly over a square domain.
	ModeRandom
	// ModeRow places each slot on its own pair of rows.
	ModeRow
)

// String returns the configuration tag of the mode.
func (m Mode) String() string {
	switch m {
	case ModeRandom:
		return "random"
	case ModeRow:
		return "row"
	default:
		return "default"
	}
}

// ParseMode reads a generation type tag.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "default", "":
		return ModeDefault, nil
	case "random":
		return ModeRandom, nil
	case "row":
		return ModeRow, nil
	}
	return ModeDefault, fmt.Errorf("%w: unknown generation type %q", ErrConfig, s)
}

// DomainSource records where the domain came from.
type DomainSource string

// Domain sources: a forced plane, cereal/other native stands, legume plots,
// or a union across families.
const (
	SourceInput  DomainSource = "input"
	SourceStand  DomainSource = "stand"
	SourceLegume DomainSource = "legume"
	SourceMix    DomainSource = "mix"
)

const (
	// DefaultSeed seeds position draws when the caller has no seed of its own.
	DefaultSeed int64 = 1234
	// DefaultCerealPlants is the stand size of a cereal instance in default mode.
	DefaultCerealPlants = 50
	// DefaultDensity is used for instances without a declared density, in plants/m².
	DefaultDensity = 250.0

	latticeSide   = 8
	latticePlants = latticeSide * latticeSide
)

// Config parameterises a Planter.
type Config struct {
	Mode Mode
	// InterRows is the spacing between two rows, in metres.
	InterRows float64
	// XYSquareLength is the side of the random-mode domain, in metres.
	XYSquareLength float64
	// XYPlane forces the domain in default mode.
	XYPlane *Domain
	// Density is the number of plants per square metre, by instance name.
	Density map[string]float64
	// LegumeCote is the side of a legume instance's native plot, in centimetres.
	LegumeCote map[string]float64
	// LegumeCount is the number of plants per legume species slot in default mode.
	LegumeCount map[string]int
	// Arrangement is a legume instance's native arrangement tag in default mode.
	Arrangement map[string]string
	// Native holds the native stand domain of non-legume instances, in metres.
	Native map[string]Domain
	// Translate offsets whole instances in default mode.
	Translate map[string]Vec3
	// Noise bounds the jitter of row positions, in metres.
	Noise float64
	// SavePositions caches generated positions across calls.
	SavePositions bool
}

// DefaultConfig returns the standard planter configuration.
func DefaultConfig() Config {
	return Config{
		Mode:           ModeDefault,
		InterRows:      0.15,
		XYSquareLength: 0.5,
	}
}

// Planter owns the frozen geometry of a run.
type Planter struct {
	cfg          Config
	snap         *index.Snapshot
	domain       Domain
	source       DomainSource
	counts       []int
	tr           Transformations
	arrangements map[string]Arrangement
	totalRows    int
	positions    map[int][]Vec3
}

// New computes the domain, plant counts and transformations for snap.
func New(snap *index.Snapshot, cfg Config) (*Planter, error) {
	if snap == nil || snap.Len() == 0 {
		return nil, fmt.Errorf("%w: no instances", ErrConfig)
	}
	if cfg.InterRows <= 0 {
		cfg.InterRows = 0.15
	}
	if cfg.XYSquareLength <= 0 {
		cfg.XYSquareLength = 0.5
	}
	p := &Planter{
		cfg:          cfg,
		snap:         snap,
		counts:       make([]int, snap.Len()),
		tr:           NewTransformations(snap),
		arrangements: map[string]Arrangement{},
		positions:    map[int][]Vec3{},
	}
	var err error
	switch cfg.Mode {
	case ModeDefault:
		err = p.planDefault()
	case ModeRandom:
		err = p.planRandom()
	case ModeRow:
		err = p.planRow()
	default:
		err = fmt.Errorf("%w: unknown generation type %d", ErrConfig, int(cfg.Mode))
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Planter) density(name string) float64 {
	if d, ok := p.cfg.Density[name]; ok && d > 0 {
		return d
	}
	return DefaultDensity
}

func (p *Planter) setCount(name string, n int) {
	for _, slot := range p.snap.Slots(name) {
		p.counts[slot] = n
	}
}

func (p *Planter) planRandom() error {
	side := p.cfg.XYSquareLength
	for _, in := range p.snap.Instances() {
		d, ok := p.cfg.Density[in.Name]
		if !ok {
			continue
		}
		if d <= 0 {
			return fmt.Errorf("%w: density of %q must be positive", ErrConfig, in.Name)
		}
		if in.Family == index.FamilyLegume {
			// the legume model needs an exact 8x8 lattice, so the square follows the density
			side = math.Sqrt(latticePlants / d)
		}
	}
	p.domain = Square(side)
	p.source = SourceMix
	for _, in := range p.snap.Instances() {
		d, ok := p.cfg.Density[in.Name]
		if !ok {
			continue
		}
		if in.Family == index.FamilyLegume {
			p.arrangements[in.Name] = Arrangement{Type: "random8", Cote: side * 100, NbCote: latticeSide, OptDamier: latticeSide}
			p.setCount(in.Name, latticePlants)
			continue
		}
		p.setCount(in.Name, int(side*side*d))
	}
	return nil
}

func (p *Planter) planRow() error {
	ir := p.cfg.InterRows
	p.totalRows = 2 * p.snap.Len()
	side := ir * float64(p.totalRows)
	p.domain = Square(side)
	p.source = SourceMix
	for _, in := range p.snap.Instances() {
		if in.Family != index.FamilyLegume {
			continue
		}
		var tag string
		switch in.Species {
		case 0, 1:
			tag = "row4_sp1"
		case 2:
			tag = "row4"
		default:
			return fmt.Errorf("%w: no row arrangement for %d legume species in %q", ErrConfig, in.Species, in.Name)
		}
		d := p.density(in.Name)
		p.arrangements[in.Name] = Arrangement{Type: tag, Cote: side * 100, NbCote: int(side * side * d / 2), OptDamier: 2}
	}
	for _, in := range p.snap.Instances() {
		if _, ok := p.cfg.Density[in.Name]; ok || in.Family == index.FamilyLegume {
			p.setCount(in.Name, int(side*side*p.density(in.Name)))
		}
	}

	if p.totalRows > 4 {
		for _, slot := range p.snap.FamilyIndices(index.FamilyLegume) {
			p.tr = p.tr.withTranslation(slot, Vec3{Y: float64(slot) * ir})
		}
		for _, f := range []index.Family{index.FamilyCereal, index.FamilyOther} {
			for _, slot := range p.snap.FamilyIndices(f) {
				p.tr = p.tr.withTranslation(slot, Vec3{Y: (float64(slot) - 0.5) * ir})
			}
		}
		return nil
	}
	// two slots at most: only one of them moves
	switch {
	case len(p.snap.Names(index.FamilyCereal)) > 1 || len(p.snap.Names(index.FamilyOther)) > 1:
		p.tr = p.tr.withTranslation(0, Vec3{Y: -ir})
	case len(p.snap.FamilyIndices(index.FamilyLegume)) > 1:
		p.tr = p.tr.withTranslation(1, Vec3{Y: ir})
	}
	return nil
}

func (p *Planter) planDefault() error {
	for _, slot := range p.snap.FamilyIndices(index.FamilyCereal) {
		p.counts[slot] = DefaultCerealPlants
	}
	for name, n := range p.cfg.LegumeCount {
		if _, err := p.snap.IndexOf(name); err != nil {
			return fmt.Errorf("legume count: %w", err)
		}
		p.setCount(name, n)
	}
	for name, tag := range p.cfg.Arrangement {
		if !knownArrangement(tag) {
			return fmt.Errorf("%w: unknown arrangement %q for %q", ErrConfig, tag, name)
		}
		p.arrangements[name] = Arrangement{Type: tag, Cote: p.cfg.LegumeCote[name]}
	}
	for name, v := range p.cfg.Translate {
		if _, err := p.snap.IndexOf(name); err != nil {
			return fmt.Errorf("translate: %w", err)
		}
		for _, slot := range p.snap.Slots(name) {
			p.tr = p.tr.withTranslation(slot, v)
		}
	}

	if p.cfg.XYPlane != nil {
		p.domain = *p.cfg.XYPlane
		p.source = SourceInput
		p.countOthers()
		return nil
	}

	var legume []Domain
	for _, name := range p.snap.Names(index.FamilyLegume) {
		cote, ok := p.cfg.LegumeCote[name]
		if !ok || cote <= 0 {
			return fmt.Errorf("%w: legume %q has no plot side", ErrConfig, name)
		}
		legume = append(legume, Square(cote*0.01).Translate(p.cfg.Translate[name]))
	}
	var stands []Domain
	for _, f := range []index.Family{index.FamilyCereal, index.FamilyOther} {
		for _, name := range p.snap.Names(f) {
			d, ok := p.cfg.Native[name]
			if !ok {
				if f != index.FamilyCereal {
					continue
				}
				d = StandDomain(p.density(name), p.cfg.InterRows, DefaultCerealPlants)
			}
			stands = append(stands, d.Translate(p.cfg.Translate[name]))
		}
	}

	switch {
	case len(legume) > 0 && len(stands) > 0:
		p.domain = unionAll(legume).Union(unionAll(stands))
		p.source = SourceMix
	case len(legume) > 0:
		p.domain = unionAll(legume)
		p.source = SourceLegume
	case len(stands) > 0:
		p.domain = unionAll(stands)
		p.source = SourceStand
	default:
		return fmt.Errorf("%w: no native domain available, set an xy plane", ErrConfig)
	}
	p.countOthers()
	return nil
}

// countOthers sizes other-family stands from their density in default mode.
func (p *Planter) countOthers() {
	for _, name := range p.snap.Names(index.FamilyOther) {
		if d, ok := p.cfg.Density[name]; ok && d > 0 {
			p.setCount(name, int(p.domain.Area()*d))
		}
	}
}

// StandDomain sizes a near-square row stand of n plants at the given density
// and row spacing.
func StandDomain(density, interRows float64, n int) Domain {
	if density <= 0 || interRows <= 0 || n <= 0 {
		return Domain{}
	}
	side := math.Sqrt(float64(n) / density)
	nrows := int(math.Max(1, math.Round(side/interRows)))
	perRow := int(math.Ceil(float64(n) / float64(nrows)))
	onRow := 1 / (density * interRows)
	return NewDomain(0, 0, float64(perRow)*onRow, float64(nrows)*interRows)
}

// Mode returns the generation mode.
func (p *Planter) Mode() Mode { return p.cfg.Mode }

// Domain returns the frozen shared domain.
func (p *Planter) Domain() Domain { return p.domain }

// Source reports where the domain came from.
func (p *Planter) Source() DomainSource { return p.source }

// Index returns the snapshot the planter was built for.
func (p *Planter) Index() *index.Snapshot { return p.snap }

// Count returns the planned number of plants on slot.
func (p *Planter) Count(slot int) int { return p.counts[slot] }

// Counts returns the planned plant count of every slot.
func (p *Planter) Counts() []int { return append([]int(nil), p.counts...) }

// Transformations returns the per-slot unit and translation table.
func (p *Planter) Transformations() Transformations { return p.tr }

// Arrangement returns the legume arrangement configured for name.
func (p *Planter) Arrangement(name string) (Arrangement, bool) {
	a, ok := p.arrangements[name]
	return a, ok
}

// InterRows returns the row spacing in metres.
func (p *Planter) InterRows() float64 { return p.cfg.InterRows }

// TotalRows returns the number of rows in row mode, zero otherwise.
func (p *Planter) TotalRows() int { return p.totalRows }

// Parameters exposes the planter layout for display and logging.
func (p *Planter) Parameters() core.ParameterSnapshot {
	general := core.ParameterGroup{
		Name: "Planter",
		Params: []core.Parameter{
			core.StringParam("generation_type", "Generation", p.cfg.Mode.String()),
			core.StringParam("domain_source", "Domain source", string(p.source)),
			core.FloatParam("domain_width", "Width (m)", p.domain.Width()),
			core.FloatParam("domain_height", "Height (m)", p.domain.Height()),
			core.FloatParam("inter_rows", "Inter rows (m)", p.cfg.InterRows),
		},
	}
	slots := core.ParameterGroup{Name: "Slots"}
	for slot, name := range p.snap.Order() {
		label := fmt.Sprintf("%d %s (%s)", slot, name, p.tr.Unit(slot))
		if v, ok := p.tr.Translation(slot); ok {
			label += fmt.Sprintf(" +(%g,%g)", v.X, v.Y)
		}
		slots.Params = append(slots.Params, core.IntParam(fmt.Sprintf("count_%d", slot), label, p.counts[slot]))
	}
	return core.ParameterSnapshot{Groups: []core.ParameterGroup{general, slots}}
}
