package layout

import (
	"maps"
	"slices"

	"mixcrop/internal/index"
	"mixcrop/internal/units"
)

// Transformations holds the per-slot unit and optional translation applied
// before a slot's geometry joins the shared scene.
type Transformations struct {
	units     []units.Unit
	translate map[int]Vec3
}

// NewTransformations returns the family defaults for every slot of snap:
// centimetres for legume slots, metres otherwise, and no translations.
func NewTransformations(snap *index.Snapshot) Transformations {
	t := Transformations{units: make([]units.Unit, snap.Len()), translate: map[int]Vec3{}}
	for _, slot := range snap.FamilyIndices(index.FamilyLegume) {
		t.units[slot] = units.Centimetre
	}
	return t
}

// Len returns the number of slots covered.
func (t Transformations) Len() int { return len(t.units) }

// Unit returns the native unit of slot.
func (t Transformations) Unit(slot int) units.Unit {
	if slot < 0 || slot >= len(t.units) {
		return units.Metre
	}
	return t.units[slot]
}

// Translation returns the translation of slot, if any.
func (t Transformations) Translation(slot int) (Vec3, bool) {
	v, ok := t.translate[slot]
	return v, ok
}

// Translated lists the slots carrying a translation, in ascending order.
func (t Transformations) Translated() []int {
	slots := slices.Collect(maps.Keys(t.translate))
	slices.Sort(slots)
	return slots
}

// Apply converts a native-unit point of slot into shared metres and applies
// the slot's translation.
func (t Transformations) Apply(slot int, p Vec3) Vec3 {
	out := p.Scale(t.Unit(slot).Metres())
	if v, ok := t.translate[slot]; ok {
		out = out.Add(v)
	}
	return out
}

func (t Transformations) withTranslation(slot int, v Vec3) Transformations {
	next := Transformations{units: t.units, translate: maps.Clone(t.translate)}
	next.translate[slot] = v
	return next
}
