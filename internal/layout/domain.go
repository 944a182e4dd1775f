package layout

import (
	"fmt"

	"github.com/ctessum/geom"
)

// Vec3 is a position or translation vector.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }

// Scale returns v scaled by f.
func (v Vec3) Scale(f float64) Vec3 { return Vec3{X: v.X * f, Y: v.Y * f, Z: v.Z * f} }

// Domain is the shared axis-aligned soil rectangle of a run, in metres.
type Domain struct {
	b geom.Bounds
}

// NewDomain builds a domain from its corners.
func NewDomain(xmin, ymin, xmax, ymax float64) Domain {
	return Domain{b: geom.Bounds{
		Min: geom.Point{X: xmin, Y: ymin},
		Max: geom.Point{X: xmax, Y: ymax},
	}}
}

// Square returns the domain [0, side] x [0, side].
func Square(side float64) Domain { return NewDomain(0, 0, side, side) }

// Min returns the lower-left corner.
func (d Domain) Min() geom.Point { return d.b.Min }

// Max returns the upper-right corner.
func (d Domain) Max() geom.Point { return d.b.Max }

// Width returns the x extent.
func (d Domain) Width() float64 { return d.b.Max.X - d.b.Min.X }

// Height returns the y extent.
func (d Domain) Height() float64 { return d.b.Max.Y - d.b.Min.Y }

// Area returns the surface in square metres.
func (d Domain) Area() float64 { return d.Width() * d.Height() }

// Bounds returns a copy of the underlying bounds.
func (d Domain) Bounds() *geom.Bounds {
	b := d.b
	return &b
}

// Translate shifts the domain by the x and y components of v.
func (d Domain) Translate(v Vec3) Domain {
	return NewDomain(d.b.Min.X+v.X, d.b.Min.Y+v.Y, d.b.Max.X+v.X, d.b.Max.Y+v.Y)
}

// Union returns the bounding box of d and o.
func (d Domain) Union(o Domain) Domain {
	b := d.b
	other := o.b
	b.Extend(&other)
	return Domain{b: b}
}

// Contains reports whether (x, y) lies inside the domain, edges included.
func (d Domain) Contains(x, y float64) bool {
	return x >= d.b.Min.X && x <= d.b.Max.X && y >= d.b.Min.Y && y <= d.b.Max.Y
}

// String renders the domain as ((xmin, ymin), (xmax, ymax)).
func (d Domain) String() string {
	return fmt.Sprintf("((%g, %g), (%g, %g))", d.b.Min.X, d.b.Min.Y, d.b.Max.X, d.b.Max.Y)
}

func unionAll(ds []Domain) Domain {
	out := ds[0]
	for _, d := range ds[1:] {
		out = out.Union(d)
	}
	return out
}
