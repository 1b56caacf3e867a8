package estimator

import (
	"fmt"

	"github.com/nimasrn/co2-estimator/internal/model"
)

// Predicate reports whether a rule recognises a transaction.
type Predicate func(tx *model.Transaction) bool

// Formula computes kilograms of CO2 for a transaction.
type Formula func(tx *model.Transaction) float64

// Kind is one classification rule.
//
// A kind that Refines another only matches when its parent matches too, so
// its predicate always implies the parent's. Lower Rank means more specific.
type Kind struct {
	Name        model.EstimatorKind
	Rank        int
	Refines     model.EstimatorKind
	Match       Predicate
	CO2         Formula
	Icon        string
	Explanation string
}

// HasEstimate reports whether the kind models CO2 at all.
func (k Kind) HasEstimate() bool { return k.CO2 != nil }

// Registry is an ordered, immutable set of kinds. Declaration order breaks rank ties.
type Registry struct {
	kinds  []Kind
	byName map[model.EstimatorKind]int
}

// NewRegistry validates kinds and builds a registry from them.
func NewRegistry(kinds ...Kind) (*Registry, error) {
	r := &Registry{
		kinds:  make([]Kind, 0, len(kinds)),
		byName: make(map[model.EstimatorKind]int, len(kinds)),
	}
	for _, k := range kinds {
		if k.Name == "" {
			return nil, fmt.Errorf("%w: kind without name", ErrInvalidRegistry)
		}
		if k.Name == model.KindUnclassified {
			return nil, fmt.Errorf("%w: %q is reserved", ErrInvalidRegistry, k.Name)
		}
		if _, dup := r.byName[k.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate kind %q", ErrInvalidRegistry, k.Name)
		}
		if k.Match == nil {
			return nil, fmt.Errorf("%w: kind %q has no predicate", ErrInvalidRegistry, k.Name)
		}
		if k.Refines != "" {
			idx, ok := r.byName[k.Refines]
			if !ok {
				return nil, fmt.Errorf("%w: kind %q refines unknown or later kind %q", ErrInvalidRegistry, k.Name, k.Refines)
			}
			if parent := r.kinds[idx]; parent.Rank <= k.Rank {
				return nil, fmt.Errorf("%w: kind %q (rank %d) must rank below its parent %q (rank %d)",
					ErrInvalidRegistry, k.Name, k.Rank, parent.Name, parent.Rank)
			}
		}
		r.byName[k.Name] = len(r.kinds)
		r.kinds = append(r.kinds, k)
	}
	return r, nil
}

// MustNewRegistry is NewRegistry for static catalogues.
func MustNewRegistry(kinds ...Kind) *Registry {
	r, err := NewRegistry(kinds...)
	if err != nil {
		panic(err)
	}
	return r
}

// Kinds enumerates the registered kinds in declaration order.
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, len(r.kinds))
	copy(out, r.kinds)
	return out
}

// Names enumerates every kind name, the generic kind last.
func (r *Registry) Names() []model.EstimatorKind {
	out := make([]model.EstimatorKind, 0, len(r.kinds)+1)
	for _, k := range r.kinds {
		out = append(out, k.Name)
	}
	return append(out, model.KindUnclassified)
}

// Lookup returns the kind registered under name.
func (r *Registry) Lookup(name model.EstimatorKind) (Kind, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return Kind{}, false
	}
	return r.kinds[idx], true
}

// Known reports whether name is a registered kind or the generic kind.
func (r *Registry) Known(name model.EstimatorKind) bool {
	if name == model.KindUnclassified {
		return true
	}
	_, ok := r.byName[name]
	return ok
}
