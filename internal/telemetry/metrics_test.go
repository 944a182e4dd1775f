package telemetry

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"mixcrop/internal/coupling"
)

func TestObserveStep(t *testing.T) {
	m := New()
	m.ObserveStep(coupling.StepReport{Soil: true, Bare: true, Water: 120})
	m.ObserveStep(coupling.StepReport{Light: true, Soil: true, Plants: 114, Intercepted: 0.3, Water: 118, Transpiration: 1.5, Uptake: 0.2})
	m.ObserveStep(coupling.StepReport{Light: true, Intercepted: 0.35})
	m.ObserveStep(coupling.StepReport{})

	for kind, want := range map[string]float64{"bare": 1, "coupled": 1, "light_only": 1, "plant_only": 1, "soil_only": 0} {
		if got := testutil.ToFloat64(m.steps.WithLabelValues(kind)); got != want {
			t.Fatalf("steps{%s} = %v, want %v", kind, got, want)
		}
	}
	if got := testutil.ToFloat64(m.plants); got != 114 {
		t.Fatalf("plants = %v", got)
	}
	if got := testutil.ToFloat64(m.intercepted); got != 0.35 {
		t.Fatalf("intercepted = %v", got)
	}
	if got := testutil.ToFloat64(m.transp); got != 1.5 {
		t.Fatalf("transpiration = %v", got)
	}
	if got := testutil.ToFloat64(m.water); got != 118 {
		t.Fatalf("water = %v", got)
	}
}

func TestObservePhase(t *testing.T) {
	m := New()
	for _, p := range coupling.Phases() {
		m.ObservePhase(p, time.Millisecond)
	}
	if n := testutil.CollectAndCount(m.phase); n != len(coupling.Phases()) {
		t.Fatalf("phase series = %d", n)
	}
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `mixcrop_phase_duration_seconds_count{phase="light_engine"} 1`) {
		t.Fatalf("scrape missing light_engine phase:\n%s", body)
	}
}
