// Package units handles the centimetre/metre boundary between plant models.
package units

import (
	"errors"
	"fmt"
)

// Unit is a length unit used by a model's native coordinates.
type Unit int

const (
	// Metre is the shared unit of the coupled scene and soil domain.
	Metre Unit = iota
	// Centimetre is the native unit of legume-family models.
	Centimetre
)

// ErrUnknownUnit is returned by Parse for unrecognised unit tags.
var ErrUnknownUnit = errors.New("units: unknown unit")

// String returns the short unit tag.
func (u Unit) String() string {
	switch u {
	case Centimetre:
		return "cm"
	default:
		return "m"
	}
}

// Metres returns the length of one u expressed in metres.
func (u Unit) Metres() float64 {
	if u == Centimetre {
		return 0.01
	}
	return 1
}

// ToMetres converts v from u to metres.
func (u Unit) ToMetres(v float64) float64 { return v * u.Metres() }

// FromMetres converts v from metres to u.
func (u Unit) FromMetres(v float64) float64 {
	if u == Centimetre {
		return v * 100
	}
	return v
}

// Convert rescales v from one unit to another.
func Convert(v float64, from, to Unit) float64 {
	if from == to {
		return v
	}
	return to.FromMetres(from.ToMetres(v))
}

// Parse reads a unit tag ("m" or "cm").
func Parse(s string) (Unit, error) {
	switch s {
	case "m", "":
		return Metre, nil
	case "cm":
		return Centimetre, nil
	}
	return Metre, fmt.Errorf("%w %q", ErrUnknownUnit, s)
}
