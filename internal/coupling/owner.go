package coupling

import (
	"mixcrop/internal/layout"
	"mixcrop/internal/soil"
)

type soilOwner struct {
	Wrapper
	shared func(t int) soil.Shared
}

func (o soilOwner) SharedSoil(t int) soil.Shared { return o.shared(t) }

func (o soilOwner) SetDomain(d layout.Domain) {
	if r, ok := o.Wrapper.(DomainReceiver); ok {
		r.SetDomain(d)
	}
}

func (o soilOwner) unwrap() Wrapper { return o.Wrapper }

// slotScenes returns the per-slot scene capability of w, looking through
// the soil owner decoration.
func slotScenes(w Wrapper) (SlotSceneProvider, bool) {
	if o, ok := w.(interface{ unwrap() Wrapper }); ok {
		w = o.unwrap()
	}
	sp, ok := w.(SlotSceneProvider)
	return sp, ok
}

// WithSoil makes w the representative instance supplying the shared soil
// input of every step.
func WithSoil(w Wrapper, shared func(t int) soil.Shared) Wrapper {
	return soilOwner{Wrapper: w, shared: shared}
}
