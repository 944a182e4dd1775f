package stand

import (
	"errors"
	"math"
	"testing"

	"mixcrop/internal/layout"
	"mixcrop/internal/light"
	"mixcrop/internal/soil"
	"mixcrop/internal/units"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func testParams() Params {
	return Params{
		Emergence:     2,
		RUE:           2,
		SLA:           0.02,
		LeafFraction:  0.5,
		InitialArea:   1e-4,
		InitialHeight: 0.1,
		HeightRate:    0.01,
		MaxHeight:     0.5,
		RootRatio:     10,
		InitialDepth:  0.1,
		RootSpeed:     0.05,
		MaxDepth:      0.3,
		InitialN:      0.01,
		NUptakeMax:    0.002,
		FTSWThreshold: 0.4,
	}
}

func TestParamsWith(t *testing.T) {
	p, err := testParams().With(map[string]string{"rue": "3.5", "emergence": "7", "colour": "green"})
	if err != nil {
		t.Fatalf("with: %v", err)
	}
	if p.RUE != 3.5 || p.Emergence != 7 || p.SLA != 0.02 {
		t.Fatalf("params = %+v", p)
	}
	if _, err := testParams().With(map[string]string{"sla": "wide"}); !errors.Is(err, ErrSetting) {
		t.Fatalf("expected ErrSetting, got %v", err)
	}
}

func TestEmergenceAndGrowth(t *testing.T) {
	s := New(testParams(), units.Metre, []layout.Vec3{{X: 0.1, Y: 0.1}, {X: 0.3, Y: 0.3}})
	s.Derive(0)
	if s.Len() != 0 {
		t.Fatalf("plants before emergence")
	}
	s.Run()
	s.Derive(2)
	if s.Len() != 2 {
		t.Fatalf("emerged %d plants", s.Len())
	}
	if err := s.Light(100, []float64{0.01, 0.02}, 0.3, 0.25); err != nil {
		t.Fatalf("light: %v", err)
	}
	par := 0.01 * 100 * light.DailyMJ
	if !near(s.Plants()[0].PAR, par) {
		t.Fatalf("par = %v, want %v", s.Plants()[0].PAR, par)
	}
	if !near(s.Plants()[1].Epsi, 0.02/0.25) {
		t.Fatalf("epsi = %v", s.Plants()[1].Epsi)
	}
	s.Run()
	s.Derive(3)
	pl := s.Plants()[0]
	if !near(pl.Biomass, 2*par) {
		t.Fatalf("biomass = %v, want %v", pl.Biomass, 2*par)
	}
	if !near(pl.LeafArea, 1e-4+0.02*0.5*2*par) || !near(pl.Height, 0.11) || !near(pl.RootDepth, 0.15) {
		t.Fatalf("plant = %+v", pl)
	}
	if pl.PAR != 0 {
		t.Fatalf("light of the last step was not consumed")
	}
	if s.Committed()[0].Biomass != 0 {
		t.Fatalf("working state leaked into the committed plants")
	}
}

func TestHeadingStopsExpansion(t *testing.T) {
	p := testParams()
	p.Emergence = 0
	p.Heading = 1
	s := New(p, units.Metre, []layout.Vec3{{}})
	for step := 0; step < 4; step++ {
		s.Derive(step)
		s.Run()
	}
	if got := s.Committed()[0].Height; !near(got, 0.11) {
		t.Fatalf("height after heading = %v", got)
	}
}

func TestLeavesInNativeUnit(t *testing.T) {
	p := testParams()
	p.Emergence = 0
	s := New(p, units.Centimetre, []layout.Vec3{{X: 12, Y: 30}})
	s.Derive(0)
	leaves := s.Leaves(1)
	if len(leaves) != 1 || leaves[0].Species != 1 {
		t.Fatalf("leaves = %+v", leaves)
	}
	c := leaves[0].Centroid()
	if !near(c.X, 12) || !near(c.Z, 10) || !near(leaves[0].Area(), 1) {
		t.Fatalf("leaf centroid %+v area %v", c, leaves[0].Area())
	}
}

func TestSoilExchange(t *testing.T) {
	p := testParams()
	p.Emergence = 0
	s := New(p, units.Metre, []layout.Vec3{{X: 0.4, Y: 0.1}})
	s.Derive(0)
	s.work[0].RootLength = 2
	g := soil.GridFor(layout.Square(0.5), 2, 2, 4, 0.05)
	c := s.Contribution(g, func(v layout.Vec3) layout.Vec3 { return v })
	if err := c.Validate(g); err != nil {
		t.Fatalf("contribution: %v", err)
	}
	roots := c.RootLength[0]
	if !near(roots[g.Flat(0, 1, 0)], 1) || !near(roots[g.Flat(1, 1, 0)], 1) || roots[g.Flat(2, 1, 0)] != 0 {
		t.Fatalf("roots not in the plant column down to its depth")
	}
	if c.Params[0]["n_uptake_max"] != 0.002 {
		t.Fatalf("soil params = %v", c.Params[0])
	}
	res := soil.Results{
		FTSW:          []float64{0.7},
		Transpiration: []float64{1.5},
		Uptake:        [][]float64{{0.001, 0.002}},
	}
	if err := s.ApplySoil(res); err != nil {
		t.Fatalf("apply: %v", err)
	}
	pl := s.Plants()[0]
	if pl.FTSW != 0.7 || !near(pl.Uptake, 0.003) || !near(pl.N, 0.013) {
		t.Fatalf("plant = %+v", pl)
	}
	if err := s.ApplySoil(soil.Results{}); !errors.Is(err, ErrPlantCount) {
		t.Fatalf("expected ErrPlantCount, got %v", err)
	}
}

func TestVoxelizeStands(t *testing.T) {
	p := testParams()
	p.Emergence = 0
	a := New(p, units.Centimetre, []layout.Vec3{{X: 5, Y: 5}, {X: 15, Y: 5}})
	b := New(p, units.Centimetre, []layout.Vec3{{X: 5, Y: 15}})
	a.Derive(0)
	b.Derive(0)
	g := Voxelize([]*Stand{a, b}, layout.Vec3{X: 10, Y: 10, Z: 4}, 20, 20)
	if g.NX != 2 || g.NY != 2 || g.NZ != 3 || len(g.Area) != 2 {
		t.Fatalf("grid = %d×%d×%d with %d entities", g.NX, g.NY, g.NZ, len(g.Area))
	}
	// leaves at 10 cm sit in the top layer
	if !near(g.Area[0][(0*g.NX+1)*g.NY+0], 1) || !near(g.Area[1][(0*g.NX+0)*g.NY+1], 1) {
		t.Fatalf("areas = %v", g.Area)
	}
	if g.Slots[1] != 1 {
		t.Fatalf("species tags = %v", g.Slots)
	}
	share := a.LeafShare(0.5)
	if !near(share[0], 0.25) || !near(share[1], 0.25) {
		t.Fatalf("leaf share = %v", share)
	}
}

func TestSeedlingRoots(t *testing.T) {
	p := testParams()
	// 1e-4 m² of leaf at 0.02 m²/g is 5 mg of leaf, matched by 5 mg of root
	if got := p.SeedlingRoot(); !near(got, 0.05) {
		t.Fatalf("derived seedling root = %v", got)
	}
	p.InitialRoot = 0.8
	if got := p.SeedlingRoot(); got != 0.8 {
		t.Fatalf("explicit seedling root = %v", got)
	}
	p, err := p.With(map[string]string{"initial_root": "0.3"})
	if err != nil || p.InitialRoot != 0.3 {
		t.Fatalf("initial_root setting = %v, %v", p.InitialRoot, err)
	}
}

func TestRootlessPlantReachesSurface(t *testing.T) {
	p := testParams()
	p.Emergence = 0
	p.RootRatio = 0
	s := New(p, units.Metre, []layout.Vec3{{X: 0.1, Y: 0.1}})
	s.Derive(0)
	if s.Plants()[0].RootLength != 0 {
		t.Fatalf("root length = %v", s.Plants()[0].RootLength)
	}
	g := soil.GridFor(layout.Square(0.5), 2, 2, 4, 0.05)
	roots := s.Contribution(g, func(v layout.Vec3) layout.Vec3 { return v }).RootLength[0]
	if roots[g.Flat(0, 0, 0)] != soil.BareEpsilon || roots[g.Flat(1, 0, 0)] != 0 {
		t.Fatalf("rootless plant column = %v", roots)
	}
}

func TestStandGrowsThroughSoilEngine(t *testing.T) {
	p := testParams()
	p.Emergence = 0
	s := New(p, units.Metre, []layout.Vec3{{X: 0.1, Y: 0.1}, {X: 0.4, Y: 0.3}})
	g := soil.GridFor(layout.Square(0.5), 2, 2, 4, 0.05)
	state := soil.NewState(g, soil.DefaultProfile())
	meteo := soil.Meteo{DOY: 100, RG: 1500, PET: 3, TMean: 12}
	for step := 0; step < 4; step++ {
		s.Derive(step)
		if err := s.Light(100, []float64{0.001, 0.002}, 0.2, g.Area()); err != nil {
			t.Fatalf("step %d light: %v", step, err)
		}
		c := s.Contribution(g, func(v layout.Vec3) layout.Vec3 { return v })
		in, blocks, err := soil.Aggregate(soil.Shared{Soil: state, Meteo: meteo}, []soil.Contribution{c}, g)
		if err != nil {
			t.Fatalf("step %d aggregate: %v", step, err)
		}
		res, err := soil.BucketEngine{}.Step(in)
		if err != nil {
			t.Fatalf("step %d soil: %v", step, err)
		}
		parts, err := blocks.Split(res)
		if err != nil {
			t.Fatalf("step %d split: %v", step, err)
		}
		if err := s.ApplySoil(parts[0]); err != nil {
			t.Fatalf("step %d apply: %v", step, err)
		}
		s.Run()
	}
	for i, pl := range s.Committed() {
		if pl.FTSW <= 0 || pl.Transpiration <= 0 || pl.Uptake <= 0 {
			t.Fatalf("plant %d cut off from the soil: %+v", i, pl)
		}
		if pl.Biomass <= 0 || pl.RootLength <= p.SeedlingRoot() {
			t.Fatalf("plant %d did not grow: %+v", i, pl)
		}
	}
}
