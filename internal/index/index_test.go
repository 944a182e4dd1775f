package index

import (
	"errors"
	"slices"
	"testing"
)

func mixed(t *testing.T) *Snapshot {
	t.Helper()
	var b Builder
	b.Add("wheatA", FamilyCereal).Add("legumeB", FamilyLegume).Add("weedC", FamilyOther)
	s, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return s
}

func TestIndexOfStable(t *testing.T) {
	s := mixed(t)
	for i := 0; i < 3; i++ {
		got, err := s.IndexOf("legumeB")
		if err != nil || got != 1 {
			t.Fatalf("call %d: IndexOf = %d, %v", i, got, err)
		}
	}
	if _, err := s.IndexOf("ghost"); !errors.Is(err, ErrUnknownInstance) {
		t.Fatalf("expected ErrUnknownInstance, got %v", err)
	}
}

func TestExpandShiftsFamilies(t *testing.T) {
	s := mixed(t)
	e, err := s.Expand("legumeB", 3)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if e.Len() != s.Len()+2 {
		t.Fatalf("len = %d, want %d", e.Len(), s.Len()+2)
	}
	want := []string{"wheatA", "legumeB", "legumeB", "legumeB", "weedC"}
	if !slices.Equal(e.Order(), want) {
		t.Fatalf("order = %v", e.Order())
	}
	if got := e.FamilyIndices(FamilyCereal); !slices.Equal(got, []int{0}) {
		t.Fatalf("cereal = %v", got)
	}
	if got := e.FamilyIndices(FamilyLegume); !slices.Equal(got, []int{1, 2, 3}) {
		t.Fatalf("legume = %v", got)
	}
	if got := e.FamilyIndices(FamilyOther); !slices.Equal(got, []int{4}) {
		t.Fatalf("other = %v", got)
	}
	if got, _ := e.IndexOf("legumeB"); got != 1 {
		t.Fatalf("first occurrence = %d", got)
	}
	if got, _ := e.IndexOf("weedC"); got != 4 {
		t.Fatalf("weedC moved to %d", got)
	}
	// the source snapshot is untouched
	if !slices.Equal(s.Order(), []string{"wheatA", "legumeB", "weedC"}) {
		t.Fatalf("source snapshot mutated: %v", s.Order())
	}
}

func TestFamiliesPartitionOrder(t *testing.T) {
	s, err := Builder{Instances: []Instance{
		{Name: "l1", Family: FamilyLegume, Species: 2},
		{Name: "w1", Family: FamilyCereal},
		{Name: "w2", Family: FamilyCereal},
	}}.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	seen := make([]int, s.Len())
	for _, f := range Families() {
		for _, slot := range s.FamilyIndices(f) {
			seen[slot]++
			if s.FamilyOf(slot) != f {
				t.Fatalf("slot %d listed under %s but belongs to %s", slot, f, s.FamilyOf(slot))
			}
		}
	}
	for slot, n := range seen {
		if n != 1 {
			t.Fatalf("slot %d appears in %d family sets", slot, n)
		}
	}
}

func TestExpandRejectsNonLegume(t *testing.T) {
	s := mixed(t)
	if _, err := s.Expand("wheatA", 2); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
	if _, err := s.Expand("legumeB", 0); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig for zero species, got %v", err)
	}
	if _, err := s.Expand("ghost", 2); !errors.Is(err, ErrUnknownInstance) {
		t.Fatalf("expected ErrUnknownInstance, got %v", err)
	}
}

func TestBuildRejectsDuplicates(t *testing.T) {
	var b Builder
	b.Add("a", FamilyCereal).Add("a", FamilyOther)
	if _, err := b.Build(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestParseFamily(t *testing.T) {
	f, err := ParseFamily("other")
	if err != nil || f != FamilyOther {
		t.Fatalf("ParseFamily(other) = %v, %v", f, err)
	}
	if _, err := ParseFamily("tree"); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}
