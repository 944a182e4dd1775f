// Package index assigns global slot positions to coupled plant-model instances.
//
// A Snapshot is immutable. Changing the slot layout (for example expanding a
// multi-species legume instance) produces a new Snapshot; slot numbers taken
// from an older snapshot must not be reused with the new one.
package index

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrConfig marks invalid instance declarations.
	ErrConfig = errors.New("index: invalid configuration")
	// ErrUnknownInstance is returned when a name is absent from the global order.
	ErrUnknownInstance = errors.New("index: unknown instance")
	// ErrSlotContribution is returned when a multi-slot instance does not
	// provide exactly one contribution per slot.
	ErrSlotContribution = errors.New("index: slot contribution mismatch")
)

// Instance declares one simulator taking part in the coupling.
type Instance struct {
	Name   string
	Family Family
	// Species is the number of consecutive slots the instance occupies.
	// Zero is treated as one. Only legume instances may host several species.
	Species int
}

func (in Instance) slots() int {
	if in.Species < 1 {
		return 1
	}
	return in.Species
}

// Builder collects instance declarations in global order.
type Builder struct {
	Instances []Instance
}

// Add appends an instance declaration.
func (b *Builder) Add(name string, family Family) *Builder {
	b.Instances = append(b.Instances, Instance{Name: name, Family: family, Species: 1})
	return b
}

// Build validates the declarations and returns a fresh snapshot.
func (b Builder) Build() (*Snapshot, error) {
	s := &Snapshot{
		instances: slices.Clone(b.Instances),
		first:     map[string]int{},
		members:   map[string]int{},
	}
	for i, in := range s.instances {
		if in.Name == "" {
			return nil, fmt.Errorf("%w: instance %d has no name", ErrConfig, i)
		}
		if in.Family < 0 || in.Family >= numFamilies {
			return nil, fmt.Errorf("%w: instance %q has family %v", ErrConfig, in.Name, in.Family)
		}
		if _, dup := s.members[in.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate instance %q", ErrConfig, in.Name)
		}
		if in.Species < 0 {
			return nil, fmt.Errorf("%w: instance %q has %d species", ErrConfig, in.Name, in.Species)
		}
		if in.slots() > 1 && in.Family != FamilyLegume {
			return nil, fmt.Errorf("%w: %s instance %q cannot host %d species", ErrConfig, in.Family, in.Name, in.Species)
		}
		s.members[in.Name] = i
		s.first[in.Name] = len(s.order)
		for k := 0; k < in.slots(); k++ {
			slot := len(s.order)
			s.order = append(s.order, in.Name)
			s.slotFamily = append(s.slotFamily, in.Family)
			s.byFamily[in.Family] = append(s.byFamily[in.Family], slot)
		}
	}
	return s, nil
}

// Snapshot is an immutable view of the global order and its family index sets.
type Snapshot struct {
	instances  []Instance
	order      []string
	slotFamily []Family
	byFamily   [numFamilies][]int
	first      map[string]int
	members    map[string]int
}

// Len returns the number of slots in the global order.
func (s *Snapshot) Len() int { return len(s.order) }

// Order returns a copy of the global order. Names repeat for multi-slot instances.
func (s *Snapshot) Order() []string { return slices.Clone(s.order) }

// Name returns the instance name occupying slot.
func (s *Snapshot) Name(slot int) string { return s.order[slot] }

// FamilyOf returns the family of the instance occupying slot.
func (s *Snapshot) FamilyOf(slot int) Family { return s.slotFamily[slot] }

// IndexOf returns the first slot occupied by name.
func (s *Snapshot) IndexOf(name string) (int, error) {
	slot, ok := s.first[name]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownInstance, name)
	}
	return slot, nil
}

// Slots returns every slot occupied by name, in order.
func (s *Snapshot) Slots(name string) []int {
	slot, ok := s.first[name]
	if !ok {
		return nil
	}
	n := s.instances[s.members[name]].slots()
	out := make([]int, n)
	for i := range out {
		out[i] = slot + i
	}
	return out
}

// FamilyIndices returns the slots held by instances of family f.
func (s *Snapshot) FamilyIndices(f Family) []int {
	if f < 0 || f >= numFamilies {
		return nil
	}
	return slices.Clone(s.byFamily[f])
}

// Instances returns the declarations the snapshot was built from.
func (s *Snapshot) Instances() []Instance { return slices.Clone(s.instances) }

// Instance returns the declaration for name.
func (s *Snapshot) Instance(name string) (Instance, error) {
	i, ok := s.members[name]
	if !ok {
		return Instance{}, fmt.Errorf("%w %q", ErrUnknownInstance, name)
	}
	return s.instances[i], nil
}

// Names returns the distinct instance names of family f in global order.
func (s *Snapshot) Names(f Family) []string {
	var names []string
	for _, in := range s.instances {
		if in.Family == f {
			names = append(names, in.Name)
		}
	}
	return names
}

// Active reports whether at least one instance of family f is present.
func (s *Snapshot) Active(f Family) bool {
	return f >= 0 && f < numFamilies && len(s.byFamily[f]) > 0
}

// Builder returns a builder pre-filled with this snapshot's declarations.
func (s *Snapshot) Builder() Builder {
	return Builder{Instances: slices.Clone(s.instances)}
}

// Expand returns a new snapshot in which the legume instance name occupies n
// consecutive slots. Slots after it shift by the difference; every family
// index set is rebuilt.
func (s *Snapshot) Expand(name string, n int) (*Snapshot, error) {
	i, ok := s.members[name]
	if !ok {
		return nil, fmt.Errorf("expand: %w %q", ErrUnknownInstance, name)
	}
	if n < 1 {
		return nil, fmt.Errorf("%w: expand %q to %d slots", ErrConfig, name, n)
	}
	if s.instances[i].Family != FamilyLegume {
		return nil, fmt.Errorf("%w: only legume instances expand, %q is %s", ErrConfig, name, s.instances[i].Family)
	}
	b := s.Builder()
	b.Instances[i].Species = n
	return b.Build()
}
