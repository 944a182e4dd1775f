package setup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"testing"

	"mixcrop/internal/config"
	"mixcrop/internal/export"
	"mixcrop/internal/record"
	"mixcrop/internal/sims/cereal"
	"mixcrop/internal/sims/legume"
	_ "mixcrop/internal/sims/rampant"
	"mixcrop/internal/sims/stand"
	"mixcrop/internal/telemetry"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestDefaultRun(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	r, err := Build(cfg, Options{Logger: quiet})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if r.Owner != "clover" || len(r.Wrappers) != 2 {
		t.Fatalf("owner = %q, wrappers = %d", r.Owner, len(r.Wrappers))
	}
	if got := r.Planter.Counts(); got[0] != 64 || got[1] != 62 {
		t.Fatalf("counts = %v", got)
	}
	if err := r.Simulation.Run(context.Background(), 3); err != nil {
		t.Fatalf("run: %v", err)
	}
	reports := r.Simulation.Reports()
	if len(reports) != 3 {
		t.Fatalf("reports = %d", len(reports))
	}
	last := reports[2]
	if !last.Light || !last.Soil || last.Plants != 126 || last.Intercepted <= 0 {
		t.Fatalf("last report = %+v", last)
	}
	for _, rep := range reports {
		if rep.Transpiration <= 0 || rep.Uptake <= 0 {
			t.Fatalf("step %d exchanged no water or nitrogen: %+v", rep.T, rep)
		}
	}
	clover, _, _ := r.Wrappers[0].(*legume.Wrapper).Stands()[0].Totals()
	wheat, _, _ := r.Wrappers[1].(*cereal.Wrapper).Stand().Totals()
	if clover <= 0 || wheat <= 0 {
		t.Fatalf("biomass clover = %v, wheat = %v", clover, wheat)
	}
}

func TestExplicitOwnerAndServices(t *testing.T) {
	cfg, err := config.Parse([]byte(`
soil: {owner: wheat}
schedule: {soil_every: 2}
`))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	ctx := context.Background()
	store, err := record.Open(ctx, record.DriverSQLite, filepath.Join(t.TempDir(), "run.db"), "owner")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	defer store.Close()
	metrics := telemetry.New()
	r, err := Build(cfg, Options{Logger: quiet, Observer: metrics, Recorder: store})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if r.Owner != "wheat" {
		t.Fatalf("owner = %q", r.Owner)
	}
	if err := r.Simulation.Run(ctx, 4); err != nil {
		t.Fatalf("run: %v", err)
	}
	rows, err := store.Rows(ctx)
	if err != nil || len(rows) != 4 {
		t.Fatalf("rows = %d, %v", len(rows), err)
	}
	if rows[1].Soil || !rows[2].Soil {
		t.Fatalf("soil cadence = %v %v", rows[1].Soil, rows[2].Soil)
	}
	sink, err := export.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("sink: %v", err)
	}
	if err := export.Steps(ctx, sink, "owner", r.Simulation.Reports()); err != nil {
		t.Fatalf("export: %v", err)
	}
}

func TestOtherFamilyOnPlane(t *testing.T) {
	cfg, err := config.Parse([]byte(`
planter:
  generation_type: default
  xy_plane: [0, 0, 1, 1]
instances:
  - {name: creeper, family: other, kind: rampant, density: 20}
  - {name: wheat, family: cereal, kind: cereal, density: 250, translate: [0.2, 0.2]}
`))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	r, err := Build(cfg, Options{Logger: quiet})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := r.Planter.Counts(); got[0] != 20 || got[1] != 50 {
		t.Fatalf("counts = %v", got)
	}
	if err := r.Simulation.Run(context.Background(), 2); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestLegumeSpeciesExpandSlots(t *testing.T) {
	cfg, err := config.Parse([]byte(`
instances:
  - {name: clover, family: legume, kind: legume, density: 256, settings: {species: "2"}}
  - {name: wheat, family: cereal, kind: cereal, density: 250}
`))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	r, err := Build(cfg, Options{Logger: quiet})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := r.Planter.Counts(); !slices.Equal(got, []int{64, 64, 62}) {
		t.Fatalf("counts = %v", got)
	}
	if n := len(r.Wrappers[0].(*legume.Wrapper).Stands()); n != 2 {
		t.Fatalf("legume stands = %d", n)
	}
	if err := r.Simulation.Run(context.Background(), 2); err != nil {
		t.Fatalf("run: %v", err)
	}
	if last := r.Simulation.Reports()[1]; last.Plants != 190 {
		t.Fatalf("plants = %d", last.Plants)
	}

	cfg.Instances[0].Settings["species"] = "many"
	if _, err := Build(cfg, Options{Logger: quiet}); !errors.Is(err, stand.ErrSetting) {
		t.Fatalf("expected ErrSetting, got %v", err)
	}
}

func TestUnknownKind(t *testing.T) {
	cfg, err := config.Parse([]byte(`instances: [{name: a, family: cereal, kind: maize}]`))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if _, err := Build(cfg, Options{Logger: quiet}); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}
