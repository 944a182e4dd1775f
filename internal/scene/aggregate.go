package scene

import (
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"

	"mixcrop/internal/layout"
)

// ErrSlot is returned when a shape or grid entity resolves to a slot
// outside the run.
var ErrSlot = errors.New("scene: slot out of range")

// Aggregate merges per-slot scenes into one scene in metres. scenes[i] is the
// contribution whose first slot is i, as laid out by index.MergeScenes. Every
// shape and grid entity is tagged with its resolved global slot.
func Aggregate(scenes []Scene, tr layout.Transformations) (Scene, error) {
	var out Scene
	for base, sc := range scenes {
		for _, sh := range sc.Shapes {
			slot := base + sh.Species
			if sh.Species < 0 || (tr.Len() > 0 && slot >= tr.Len()) {
				return Scene{}, fmt.Errorf("%w: shape %d of slot %d has species %d", ErrSlot, sh.ID, base, sh.Species)
			}
			moved := sh
			moved.Slot = slot
			moved.Triangles = make([]Triangle, len(sh.Triangles))
			for i, t := range sh.Triangles {
				for k := range t {
					moved.Triangles[i][k] = tr.Apply(slot, t[k])
				}
			}
			out.Shapes = append(out.Shapes, moved)
		}
		for _, g := range sc.Grids {
			if slices.ContainsFunc(g.Slots, func(k int) bool { return k < 0 }) {
				return Scene{}, fmt.Errorf("%w: grid of slot %d has a negative entity slot", ErrSlot, base)
			}
			out.Grids = append(out.Grids, convertGrid(g, base, tr))
		}
	}
	return out, nil
}

// convertGrid rescales a voxel grid to metres and tags its entities. Entities
// without an explicit slot are numbered from base.
func convertGrid(g LeafGrid, base int, tr layout.Transformations) LeafGrid {
	unit := tr.Unit(base).Metres()
	out := LeafGrid{
		NX: g.NX, NY: g.NY, NZ: g.NZ,
		Size:   g.Size.Scale(unit),
		Origin: tr.Apply(base, g.Origin),
		Area:   make([][]float64, len(g.Area)),
		Slots:  make([]int, len(g.Area)),
	}
	for e, a := range g.Area {
		scaled := make([]float64, len(a))
		copy(scaled, a)
		floats.Scale(unit*unit, scaled)
		out.Area[e] = scaled
		out.Slots[e] = base + e
		if e < len(g.Slots) {
			out.Slots[e] = base + g.Slots[e]
		}
	}
	return out
}

// TotalArea returns the leaf area of the scene, shapes and grids together.
func (s Scene) TotalArea() float64 {
	total := 0.0
	for _, sh := range s.Shapes {
		total += sh.Area()
	}
	for _, g := range s.Grids {
		for _, a := range g.Area {
			total += floats.Sum(a)
		}
	}
	return total
}

// CountBySlot returns the number of shapes per slot.
func (s Scene) CountBySlot() map[int]int {
	out := map[int]int{}
	for _, sh := range s.Shapes {
		out[sh.Slot]++
	}
	return out
}
