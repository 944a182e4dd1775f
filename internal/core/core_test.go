package core

import (
	"slices"
	"testing"
	"time"
)

func TestRegistryNamesSorted(t *testing.T) {
	var r Registry[func() int]
	r.Register("rampant", func() int { return 3 })
	r.Register("cereal", func() int { return 2 })
	r.Register("", func() int { return 0 })

	if got := r.Names(); !slices.Equal(got, []string{"cereal", "rampant"}) {
		t.Fatalf("names = %v", got)
	}
	f, ok := r.Lookup("cereal")
	if !ok || f() != 2 {
		t.Fatalf("lookup cereal failed")
	}
	if _, ok := r.Lookup("legume"); ok {
		t.Fatalf("unexpected entry for legume")
	}
}

func TestByteGridBounds(t *testing.T) {
	g := NewByteGrid(3, 2)
	g.Set(2, 1, 7)
	g.Set(3, 1, 9)
	g.Set(-1, 0, 9)
	if g.At(2, 1) != 7 {
		t.Fatalf("At(2,1) = %d", g.At(2, 1))
	}
	if g.At(5, 5) != 0 {
		t.Fatalf("out of range read should be zero")
	}
	sum := 0
	for _, c := range g.Cells() {
		sum += int(c)
	}
	if sum != 7 {
		t.Fatalf("unexpected writes, sum=%d", sum)
	}
}

func TestFixedStepPacing(t *testing.T) {
	fs := NewFixedStep(2)
	start := time.Unix(100, 0)
	if !fs.Due(start) {
		t.Fatalf("first call should be due")
	}
	if fs.Due(start.Add(100 * time.Millisecond)) {
		t.Fatalf("step fired too early")
	}
	if !fs.Due(start.Add(600 * time.Millisecond)) {
		t.Fatalf("step should fire after half a second")
	}
}

func TestSnapshotLookup(t *testing.T) {
	snap := ParameterSnapshot{Groups: []ParameterGroup{{
		Name:   "planter",
		Params: []Parameter{FloatParam("inter_rows", "Inter rows", 0.15), IntParam("slots", "Slots", 2)},
	}}}
	if snap.Len() != 2 {
		t.Fatalf("len = %d", snap.Len())
	}
	p, ok := snap.Lookup("inter_rows")
	if !ok || p.Value != "0.15" || p.Type != ParamTypeFloat {
		t.Fatalf("lookup = %+v", p)
	}
}
