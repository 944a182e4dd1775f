// Package scene holds the geometric canopy exchanged with light engines.
package scene

import (
	"math"
	"slices"

	"github.com/ctessum/geom"

	"mixcrop/internal/layout"
)

// Triangle is one facet of an organ mesh.
type Triangle [3]layout.Vec3

// Area returns the facet surface.
func (t Triangle) Area() float64 {
	ax, ay, az := t[1].X-t[0].X, t[1].Y-t[0].Y, t[1].Z-t[0].Z
	bx, by, bz := t[2].X-t[0].X, t[2].Y-t[0].Y, t[2].Z-t[0].Z
	cx := ay*bz - az*by
	cy := az*bx - ax*bz
	cz := ax*by - ay*bx
	return 0.5 * math.Sqrt(cx*cx+cy*cy+cz*cz)
}

// Centroid returns the facet barycentre.
func (t Triangle) Centroid() layout.Vec3 {
	return layout.Vec3{
		X: (t[0].X + t[1].X + t[2].X) / 3,
		Y: (t[0].Y + t[1].Y + t[2].Y) / 3,
		Z: (t[0].Z + t[1].Z + t[2].Z) / 3,
	}
}

// Shape is one organ of one plant.
type Shape struct {
	// ID identifies the organ inside its instance.
	ID int
	// Plant is the index of the owning plant inside its slot.
	Plant int
	// Species offsets the slot inside a multi-slot instance.
	Species int
	// Slot is the global slot the shape belongs to, set by Aggregate.
	Slot      int
	Triangles []Triangle
}

// Area returns the total facet surface of the shape.
func (s Shape) Area() float64 {
	a := 0.0
	for _, t := range s.Triangles {
		a += t.Area()
	}
	return a
}

// Centroid returns the area-weighted centre of the shape.
func (s Shape) Centroid() layout.Vec3 {
	var c layout.Vec3
	total := 0.0
	for _, t := range s.Triangles {
		a := t.Area()
		c = c.Add(t.Centroid().Scale(a))
		total += a
	}
	if total == 0 {
		if len(s.Triangles) > 0 {
			return s.Triangles[0].Centroid()
		}
		return c
	}
	return c.Scale(1 / total)
}

// Leaf returns a horizontal square organ of the given area centred on c.
func Leaf(id, plant, species int, c layout.Vec3, area float64) Shape {
	h := math.Sqrt(math.Max(area, 0)) / 2
	a := layout.Vec3{X: c.X - h, Y: c.Y - h, Z: c.Z}
	b := layout.Vec3{X: c.X + h, Y: c.Y - h, Z: c.Z}
	d := layout.Vec3{X: c.X + h, Y: c.Y + h, Z: c.Z}
	e := layout.Vec3{X: c.X - h, Y: c.Y + h, Z: c.Z}
	return Shape{ID: id, Plant: plant, Species: species, Triangles: []Triangle{{a, b, d}, {a, d, e}}}
}

// LeafGrid is a voxelised canopy: leaf area per voxel for each entity.
type LeafGrid struct {
	NX, NY, NZ int
	// Size is the voxel size and Origin the lower corner, in the owner's unit
	// until aggregation and in metres afterwards.
	Size   layout.Vec3
	Origin layout.Vec3
	// Area holds, per entity, NZ*NX*NY leaf areas indexed (iz*NX+ix)*NY+iy,
	// with iz = 0 the top layer. Areas follow the length unit squared.
	Area [][]float64
	// Slots holds each entity's species offset inside its instance, and the
	// resolved global slot after aggregation.
	Slots []int
}

// Scene is the canopy contribution of one slot or of the whole run.
type Scene struct {
	Shapes []Shape
	Grids  []LeafGrid
}

// Empty reports whether the scene carries no geometry.
func (s Scene) Empty() bool { return len(s.Shapes) == 0 && len(s.Grids) == 0 }

// Join returns the shapes and grids of s followed by those of o.
func (s Scene) Join(o Scene) Scene {
	if o.Empty() {
		return s
	}
	if s.Empty() {
		return o
	}
	return Scene{
		Shapes: append(slices.Clone(s.Shapes), o.Shapes...),
		Grids:  append(slices.Clone(s.Grids), o.Grids...),
	}
}

// Len returns the number of shapes.
func (s Scene) Len() int { return len(s.Shapes) }

// Bounds returns the horizontal extent of the scene shapes.
func (s Scene) Bounds() (*geom.Bounds, bool) {
	var b *geom.Bounds
	for _, sh := range s.Shapes {
		for _, t := range sh.Triangles {
			for _, v := range t {
				p := &geom.Bounds{Min: geom.Point{X: v.X, Y: v.Y}, Max: geom.Point{X: v.X, Y: v.Y}}
				if b == nil {
					b = p
					continue
				}
				b.Extend(p)
			}
		}
	}
	return b, b != nil
}

// Top returns the highest vertex z, or zero for an empty scene.
func (s Scene) Top() float64 {
	top := 0.0
	for _, sh := range s.Shapes {
		for _, t := range sh.Triangles {
			for _, v := range t {
				top = math.Max(top, v.Z)
			}
		}
	}
	for _, g := range s.Grids {
		top = math.Max(top, g.Origin.Z+float64(g.NZ)*g.Size.Z)
	}
	return top
}
