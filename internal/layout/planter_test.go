package layout

import (
	"errors"
	"math"
	"slices"
	"testing"

	"mixcrop/internal/core"
	"mixcrop/internal/index"
	"mixcrop/internal/units"
)

func build(t *testing.T, instances ...index.Instance) *index.Snapshot {
	t.Helper()
	s, err := index.Builder{Instances: instances}.Build()
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	return s
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRandomLegumeLattice(t *testing.T) {
	snap := build(t,
		index.Instance{Name: "legumeA", Family: index.FamilyLegume},
		index.Instance{Name: "wheatB", Family: index.FamilyCereal},
	)
	cfg := DefaultConfig()
	cfg.Mode = ModeRandom
	cfg.Density = map[string]float64{"legumeA": 256, "wheatB": 200}
	p, err := New(snap, cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !slices.Equal(p.Counts(), []int{64, 50}) {
		t.Fatalf("counts = %v", p.Counts())
	}
	if !near(p.Domain().Width(), 0.5) || !near(p.Domain().Height(), 0.5) {
		t.Fatalf("domain = %v", p.Domain())
	}
	a, ok := p.Arrangement("legumeA")
	if !ok || a.Type != "random8" || a.NbCote != 8 || !near(a.Cote, 50) {
		t.Fatalf("arrangement = %+v", a)
	}
	tr := p.Transformations()
	if tr.Unit(0) != units.Centimetre || tr.Unit(1) != units.Metre {
		t.Fatalf("units = %v %v", tr.Unit(0), tr.Unit(1))
	}
}

func TestRandomCountsIgnoreDeclarationOrder(t *testing.T) {
	snap := build(t,
		index.Instance{Name: "wheatB", Family: index.FamilyCereal},
		index.Instance{Name: "legumeA", Family: index.FamilyLegume},
	)
	cfg := DefaultConfig()
	cfg.Mode = ModeRandom
	cfg.XYSquareLength = 1
	cfg.Density = map[string]float64{"legumeA": 256, "wheatB": 200}
	p, err := New(snap, cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !near(p.Domain().Area(), 0.25) {
		t.Fatalf("domain = %v", p.Domain())
	}
	// the cereal density applies to the lattice-sized square, not the configured one
	if !slices.Equal(p.Counts(), []int{50, 64}) {
		t.Fatalf("counts = %v", p.Counts())
	}
}

func TestRowTwoInstancesSingleTranslation(t *testing.T) {
	snap := build(t,
		index.Instance{Name: "wheatA", Family: index.FamilyCereal},
		index.Instance{Name: "wheatB", Family: index.FamilyCereal},
	)
	cfg := DefaultConfig()
	cfg.Mode = ModeRow
	cfg.InterRows = 0.15
	p, err := New(snap, cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !near(p.Domain().Width(), 0.15*4) {
		t.Fatalf("side = %v", p.Domain().Width())
	}
	tr := p.Transformations()
	if got := tr.Translated(); !slices.Equal(got, []int{0}) {
		t.Fatalf("translated slots = %v", got)
	}
	if v, _ := tr.Translation(0); !near(v.Y, -0.15) {
		t.Fatalf("translation = %+v", v)
	}
}

func TestRowTwoLegumeSpecies(t *testing.T) {
	snap := build(t, index.Instance{Name: "mix", Family: index.FamilyLegume, Species: 2})
	cfg := DefaultConfig()
	cfg.Mode = ModeRow
	p, err := New(snap, cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := p.Transformations().Translated(); !slices.Equal(got, []int{1}) {
		t.Fatalf("translated slots = %v", got)
	}
	a, _ := p.Arrangement("mix")
	if a.Type != "row4" {
		t.Fatalf("arrangement = %q", a.Type)
	}
}

func TestRowManyInstancesInterleave(t *testing.T) {
	snap := build(t,
		index.Instance{Name: "leg", Family: index.FamilyLegume},
		index.Instance{Name: "wheat", Family: index.FamilyCereal},
		index.Instance{Name: "weed", Family: index.FamilyOther},
	)
	cfg := DefaultConfig()
	cfg.Mode = ModeRow
	cfg.Density = map[string]float64{"wheat": 100, "weed": 50}
	p, err := New(snap, cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	tr := p.Transformations()
	want := []float64{0, 0.075, 0.225}
	for slot, y := range want {
		v, ok := tr.Translation(slot)
		if !ok || !near(v.Y, y) {
			t.Fatalf("slot %d translation = %+v (%v), want y=%v", slot, v, ok, y)
		}
	}
}

func TestRowRejectsThreeSpecies(t *testing.T) {
	snap := build(t, index.Instance{Name: "mix", Family: index.FamilyLegume, Species: 3})
	cfg := DefaultConfig()
	cfg.Mode = ModeRow
	if _, err := New(snap, cfg); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestDefaultMixedUnion(t *testing.T) {
	snap := build(t,
		index.Instance{Name: "leg", Family: index.FamilyLegume},
		index.Instance{Name: "wheat", Family: index.FamilyCereal},
	)
	cfg := DefaultConfig()
	cfg.LegumeCote = map[string]float64{"leg": 40}
	cfg.LegumeCount = map[string]int{"leg": 16}
	cfg.Translate = map[string]Vec3{"leg": {X: 0.1}}
	cfg.Native = map[string]Domain{"wheat": NewDomain(0, 0, 0.3, 0.5)}
	p, err := New(snap, cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	d := p.Domain()
	if !near(d.Min().X, 0) || !near(d.Max().X, 0.5) || !near(d.Max().Y, 0.5) {
		t.Fatalf("domain = %v", d)
	}
	if p.Source() != SourceMix {
		t.Fatalf("source = %s", p.Source())
	}
	if !slices.Equal(p.Counts(), []int{16, DefaultCerealPlants}) {
		t.Fatalf("counts = %v", p.Counts())
	}
}

func TestDefaultLegumeOnly(t *testing.T) {
	snap := build(t, index.Instance{Name: "leg", Family: index.FamilyLegume})
	cfg := DefaultConfig()
	cfg.LegumeCote = map[string]float64{"leg": 80}
	p, err := New(snap, cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if p.Source() != SourceLegume || !near(p.Domain().Width(), 0.8) {
		t.Fatalf("domain %v from %s", p.Domain(), p.Source())
	}
}

func TestDefaultInputPlane(t *testing.T) {
	snap := build(t, index.Instance{Name: "wheat", Family: index.FamilyCereal})
	plane := NewDomain(0, 0, 2, 1)
	cfg := DefaultConfig()
	cfg.XYPlane = &plane
	p, err := New(snap, cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if p.Source() != SourceInput || !near(p.Domain().Area(), 2) {
		t.Fatalf("domain %v from %s", p.Domain(), p.Source())
	}
}

func TestUnknownArrangementFatal(t *testing.T) {
	snap := build(t, index.Instance{Name: "leg", Family: index.FamilyLegume})
	cfg := DefaultConfig()
	cfg.LegumeCote = map[string]float64{"leg": 50}
	cfg.Arrangement = map[string]string{"leg": "spiral"}
	if _, err := New(snap, cfg); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
	if _, err := ParseMode("hexagonal"); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig from ParseMode, got %v", err)
	}
}

func TestRandomPositionsDeterministic(t *testing.T) {
	snap := build(t, index.Instance{Name: "wheat", Family: index.FamilyCereal})
	cfg := DefaultConfig()
	cfg.Mode = ModeRandom
	cfg.Density = map[string]float64{"wheat": 100}
	a, _ := New(snap, cfg)
	b, _ := New(snap, cfg)
	pa, err := a.Positions(0)
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	pb, _ := b.Positions(0)
	if !slices.Equal(pa, pb) {
		t.Fatalf("same seed produced different positions")
	}
	for _, q := range pa {
		if q.X < 0 || q.X >= 0.5 || q.Y < 0 || q.Y >= 0.5 || q.Z != 0 {
			t.Fatalf("position out of domain: %+v", q)
		}
	}
	other, _ := a.GeneratePositions(0, 99)
	if slices.Equal(other, pa) {
		t.Fatalf("different seed produced identical positions without caching")
	}
}

func TestSavedPositionsReused(t *testing.T) {
	snap := build(t, index.Instance{Name: "wheat", Family: index.FamilyCereal})
	cfg := DefaultConfig()
	cfg.Mode = ModeRandom
	cfg.Density = map[string]float64{"wheat": 100}
	cfg.SavePositions = true
	p, _ := New(snap, cfg)
	first, _ := p.GeneratePositions(0, 1)
	second, _ := p.GeneratePositions(0, 2)
	if !slices.Equal(first, second) {
		t.Fatalf("cached positions not reused")
	}
}

func TestRowPositionsOnTwoRows(t *testing.T) {
	snap := build(t,
		index.Instance{Name: "wheatA", Family: index.FamilyCereal},
		index.Instance{Name: "wheatB", Family: index.FamilyCereal},
	)
	cfg := DefaultConfig()
	cfg.Mode = ModeRow
	cfg.Density = map[string]float64{"wheatA": 100, "wheatB": 100}
	cfg.Noise = 0.01
	p, _ := New(snap, cfg)
	pos, err := p.Positions(1)
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	n := p.Count(1)
	if len(pos) != 2*(n/2) {
		t.Fatalf("got %d positions for %d plants", len(pos), n)
	}
	rowA, rowB := 0.15*1.5, (4.0/2+1.5)*0.15
	for i, q := range pos {
		y := rowA
		if i >= n/2 {
			y = rowB
		}
		if math.Abs(q.Y-y) > 0.01+1e-12 {
			t.Fatalf("plant %d at y=%v, row at %v", i, q.Y, y)
		}
	}
}

func TestLegumePositionsNativeUnit(t *testing.T) {
	snap := build(t, index.Instance{Name: "leg", Family: index.FamilyLegume})
	cfg := DefaultConfig()
	cfg.Mode = ModeRandom
	cfg.Density = map[string]float64{"leg": 256}
	p, _ := New(snap, cfg)
	pos, err := p.Positions(0)
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	if len(pos) != 64 {
		t.Fatalf("len = %d", len(pos))
	}
	if !near(pos[0].X, 3.125) || !near(pos[0].Y, 3.125) {
		t.Fatalf("first plant at %+v cm", pos[0])
	}
	m := p.Place(0, pos[0])
	if !near(m.X, 0.03125) {
		t.Fatalf("placed at %+v m", m)
	}
}

func TestRasterizeMarksFamilies(t *testing.T) {
	snap := build(t,
		index.Instance{Name: "leg", Family: index.FamilyLegume},
		index.Instance{Name: "wheat", Family: index.FamilyCereal},
	)
	cfg := DefaultConfig()
	cfg.Mode = ModeRandom
	cfg.Density = map[string]float64{"leg": 256, "wheat": 200}
	p, _ := New(snap, cfg)
	g := core.NewByteGrid(32, 32)
	if err := p.Rasterize(g); err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	seen := map[uint8]bool{}
	for _, c := range g.Cells() {
		seen[c] = true
	}
	if !seen[1] || !seen[2] {
		t.Fatalf("expected both families on the raster, saw %v", seen)
	}
}

func TestStandDomain(t *testing.T) {
	d := StandDomain(250, 0.15, 50)
	if d.Area() <= 0 {
		t.Fatalf("empty stand domain")
	}
	if !near(math.Mod(d.Height(), 0.15), 0) && !near(math.Mod(d.Height(), 0.15), 0.15) {
		t.Fatalf("stand height %v not a multiple of the row spacing", d.Height())
	}
}
