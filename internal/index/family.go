package index

import "fmt"

// Family is the model type an instance belongs to.
type Family int

const (
	// FamilyLegume models run in centimetres and may host several species per instance.
	FamilyLegume Family = iota
	// FamilyCereal models run in metres with their own stand layout.
	FamilyCereal
	// FamilyOther covers any other plant model plugged into the coupling.
	FamilyOther

	numFamilies
)

var familyNames = [numFamilies]string{"legume", "cereal", "other"}

// Families lists every family in declaration order.
func Families() []Family {
	return []Family{FamilyLegume, FamilyCereal, FamilyOther}
}

// String returns the configuration tag of the family.
func (f Family) String() string {
	if f < 0 || f >= numFamilies {
		return fmt.Sprintf("family(%d)", int(f))
	}
	return familyNames[f]
}

// ParseFamily reads a family tag. Unknown tags are configuration errors.
func ParseFamily(s string) (Family, error) {
	for i, name := range familyNames {
		if name == s {
			return Family(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown family %q", ErrConfig, s)
}
