package legume

import (
	"context"
	"errors"
	"testing"

	"mixcrop/internal/coupling"
	"mixcrop/internal/index"
	"mixcrop/internal/layout"
	"mixcrop/internal/light"
	"mixcrop/internal/sims/stand"
	"mixcrop/internal/soil"
)

func env(t *testing.T, model light.Model, species int) coupling.Env {
	t.Helper()
	snap, err := index.Builder{Instances: []index.Instance{{Name: "clover", Family: index.FamilyLegume, Species: species}}}.Build()
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	cfg := layout.DefaultConfig()
	cfg.Mode = layout.ModeRandom
	cfg.Density = map[string]float64{"clover": 256}
	p, err := layout.New(snap, cfg)
	if err != nil {
		t.Fatalf("planter: %v", err)
	}
	lc := light.DefaultConfig()
	lc.Model = model
	in, _ := snap.Instance("clover")
	return coupling.Env{Instance: in, Slots: snap.Slots("clover"), Planter: p, Light: lc, Seed: 3}
}

func TestRegistered(t *testing.T) {
	if _, ok := coupling.Lookup("legume"); !ok {
		t.Fatalf("legume wrapper not registered")
	}
}

func TestSpeciesCount(t *testing.T) {
	if n, err := SpeciesCount(nil); n != 0 || err != nil {
		t.Fatalf("no setting = %d, %v", n, err)
	}
	if n, err := SpeciesCount(map[string]string{"species": "3"}); n != 3 || err != nil {
		t.Fatalf("species 3 = %d, %v", n, err)
	}
	for _, bad := range []string{"0", "two"} {
		if _, err := SpeciesCount(map[string]string{"species": bad}); !errors.Is(err, stand.ErrSetting) {
			t.Fatalf("species %q: expected ErrSetting, got %v", bad, err)
		}
	}
	if _, ok := coupling.SpeciesOf("legume"); !ok {
		t.Fatalf("legume species counter not registered")
	}
}

func TestStandPerSpecies(t *testing.T) {
	w, err := New(env(t, light.ModelCaribu, 2), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	lw := w.(*Wrapper)
	if len(lw.Stands()) != 2 {
		t.Fatalf("stands = %d", len(lw.Stands()))
	}
	if err := w.Derive(0); err != nil {
		t.Fatalf("derive: %v", err)
	}
	sc, err := w.LightInputs()
	if err != nil {
		t.Fatalf("light inputs: %v", err)
	}
	if len(sc.Shapes) != 128 {
		t.Fatalf("shapes = %d", len(sc.Shapes))
	}
	species := map[int]int{}
	for _, sh := range sc.Shapes {
		species[sh.Species]++
		c := sh.Centroid()
		if c.X < 0 || c.X > 50 || c.Y < 0 || c.Y > 50 {
			t.Fatalf("leaf outside the 50 cm plot: %+v", c)
		}
	}
	if species[0] != 64 || species[1] != 64 {
		t.Fatalf("species = %v", species)
	}
	contribs, err := w.SoilInputs(soil.GridFor(lw.domain, 2, 2, 3, 0.1))
	if err != nil || len(contribs) != 2 || contribs[1].Plants() != 64 {
		t.Fatalf("soil inputs = %d, %v", len(contribs), err)
	}
}

func TestVoxelScene(t *testing.T) {
	e := env(t, light.ModelRiRi5, 2)
	e.Light.LegumeVoxelCM = layout.Vec3{X: 5, Y: 5, Z: 2}
	w, err := New(e, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_ = w.Derive(0)
	sc, err := w.LightInputs()
	if err != nil {
		t.Fatalf("light inputs: %v", err)
	}
	if len(sc.Shapes) != 0 || len(sc.Grids) != 1 {
		t.Fatalf("voxel scene = %d shapes, %d grids", len(sc.Shapes), len(sc.Grids))
	}
	g := sc.Grids[0]
	if len(g.Area) != 2 || g.NX != 10 || g.Size.X != 5 {
		t.Fatalf("grid = %d entities %d columns of %v cm", len(g.Area), g.NX, g.Size.X)
	}
}

func TestSlotScenes(t *testing.T) {
	w, err := New(env(t, light.ModelCaribu, 2), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_ = w.Derive(0)
	scs, err := w.(*Wrapper).SlotLightInputs()
	if err != nil || len(scs) != 2 {
		t.Fatalf("slot scenes = %d, %v", len(scs), err)
	}
	for k, sc := range scs {
		if len(sc.Shapes) != 64 {
			t.Fatalf("slot %d shapes = %d", k, len(sc.Shapes))
		}
		for _, sh := range sc.Shapes {
			if sh.Species != 0 {
				t.Fatalf("slot %d shape carries species offset %d", k, sh.Species)
			}
		}
	}

	e := env(t, light.ModelRATP, 2)
	e.Light.LegumeVoxelCM = layout.Vec3{X: 5, Y: 5, Z: 2}
	w, err = New(e, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_ = w.Derive(0)
	scs, err = w.(*Wrapper).SlotLightInputs()
	if err != nil || len(scs[0].Grids) != 1 || !scs[1].Empty() {
		t.Fatalf("voxel slot scenes = %+v, %v", scs, err)
	}
}

func TestCoupledRunGrows(t *testing.T) {
	for _, model := range []light.Model{light.ModelCaribu, light.ModelRATP} {
		e := env(t, model, 1)
		w, err := New(e, map[string]string{"rue": "2.5"})
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		eng, err := light.NewTurbidEngine(e.Light)
		if err != nil {
			t.Fatalf("light: %v", err)
		}
		g := soil.GridFor(e.Planter.Domain(), 2, 2, 6, 0.1)
		supply := &soil.Supply{State: soil.NewState(g, soil.DefaultProfile()), Weather: soil.DefaultSeasonal()}
		sim, err := coupling.New(e.Planter, []coupling.Wrapper{coupling.WithSoil(w, supply.Shared)}, coupling.Options{
			Light: eng, Soil: soil.BucketEngine{}, Grid: g, Weather: supply.Weather,
		})
		if err != nil {
			t.Fatalf("simulation: %v", err)
		}
		if err := sim.Run(context.Background(), 3); err != nil {
			t.Fatalf("%s run: %v", model, err)
		}
		biomass, _, _ := w.(*Wrapper).Stands()[0].Totals()
		if biomass <= 0 {
			t.Fatalf("%s: no growth", model)
		}
	}
}

func TestRejectsOtherFamilies(t *testing.T) {
	e := env(t, light.ModelCaribu, 1)
	e.Instance.Family = index.FamilyCereal
	if _, err := New(e, nil); err == nil {
		t.Fatalf("cereal instance accepted")
	}
}
