package index

import (
	"errors"
	"slices"
	"testing"
)

type fakeScene struct{ shapes []int }

func TestMergeScenesPlaceholders(t *testing.T) {
	s := mixed(t)
	merged, err := MergeScenes(s, map[string]fakeScene{
		"weedC":   {shapes: []int{1, 2}},
		"legumeB": {shapes: []int{3}},
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(merged) != 3 {
		t.Fatalf("len = %d", len(merged))
	}
	if len(merged[0].shapes) != 0 {
		t.Fatalf("slot 0 should be the empty placeholder")
	}
	total := 0
	for _, sc := range merged {
		total += len(sc.shapes)
	}
	if total != 3 {
		t.Fatalf("shape count = %d, want 3", total)
	}
	if len(merged[2].shapes) != 2 {
		t.Fatalf("weedC scene not at slot 2")
	}
}

func TestMergeScenesUnknownName(t *testing.T) {
	s := mixed(t)
	if _, err := MergeScenes(s, map[string]fakeScene{"ghost": {}}); !errors.Is(err, ErrUnknownInstance) {
		t.Fatalf("expected ErrUnknownInstance, got %v", err)
	}
}

func TestMergeSoilInputsPerSlot(t *testing.T) {
	s, err := mixed(t).Expand("legumeB", 2)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	out, err := MergeSoilInputs(s, map[string][]string{
		"legumeB": {"sp1", "sp2"},
		"wheatA":  {"w"},
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	want := []string{"w", "sp1", "sp2", ""}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("slot %d = %q, want %q", i, out[i], want[i])
		}
	}

	_, err = MergeSoilInputs(s, map[string][]string{"legumeB": {"both"}})
	if !errors.Is(err, ErrSlotContribution) {
		t.Fatalf("expected ErrSlotContribution, got %v", err)
	}
}

func TestMergeSceneSlots(t *testing.T) {
	s, err := mixed(t).Expand("legumeB", 2)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	out, err := MergeSceneSlots(s, map[string][]fakeScene{
		"legumeB": {{shapes: []int{1, 2}}, {shapes: []int{3}}},
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	counts := []int{len(out[0].shapes), len(out[1].shapes), len(out[2].shapes), len(out[3].shapes)}
	if !slices.Equal(counts, []int{0, 2, 1, 0}) {
		t.Fatalf("shapes per slot = %v", counts)
	}

	_, err = MergeSceneSlots(s, map[string][]fakeScene{"legumeB": {{}}})
	if !errors.Is(err, ErrSlotContribution) {
		t.Fatalf("expected ErrSlotContribution, got %v", err)
	}
	_, err = MergeSceneSlots(s, map[string][]fakeScene{"ghost": {{}}})
	if !errors.Is(err, ErrUnknownInstance) {
		t.Fatalf("expected ErrUnknownInstance, got %v", err)
	}
}
