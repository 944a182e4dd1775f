package index

import "fmt"

// MergeScenes lays out per-instance scenes along the global order. Each scene
// lands on the first slot of its instance; every other slot holds the zero
// value of S, which callers use as the empty placeholder scene.
func MergeScenes[S any](s *Snapshot, scenes map[string]S) ([]S, error) {
	out := make([]S, s.Len())
	for name, sc := range scenes {
		slot, err := s.IndexOf(name)
		if err != nil {
			return nil, fmt.Errorf("merge scenes: %w", err)
		}
		out[slot] = sc
	}
	return out, nil
}

// MergeSceneSlots lays out per-slot scenes along the global order. An
// instance must supply exactly one scene per slot it occupies.
func MergeSceneSlots[S any](s *Snapshot, scenes map[string][]S) ([]S, error) {
	return mergeSlots(s, scenes, "scenes")
}

// MergeSoilInputs lays out per-instance soil contributions along the global
// order. An instance must supply exactly one contribution per slot it
// occupies. Slots of instances absent from the mapping hold the zero value.
func MergeSoilInputs[C any](s *Snapshot, parts map[string][]C) ([]C, error) {
	return mergeSlots(s, parts, "soil inputs")
}

func mergeSlots[T any](s *Snapshot, parts map[string][]T, what string) ([]T, error) {
	out := make([]T, s.Len())
	for name, items := range parts {
		slots := s.Slots(name)
		if slots == nil {
			return nil, fmt.Errorf("merge %s: %w %q", what, ErrUnknownInstance, name)
		}
		if len(items) != len(slots) {
			return nil, fmt.Errorf("%w: %q occupies %d slots but supplied %d %s",
				ErrSlotContribution, name, len(slots), len(items), what)
		}
		for k, slot := range slots {
			out[slot] = items[k]
		}
	}
	return out, nil
}
