package estimator

import (
	"fmt"

	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/nimasrn/co2-estimator/pkg/logger"
)

// Classify returns the most specific kind whose predicate accepts tx,
// or the generic kind when none does.
func (r *Registry) Classify(tx *model.Transaction) model.EstimatorKind {
	best := -1
	for i := range r.kinds {
		if !r.matches(i, tx) {
			continue
		}
		if best < 0 || r.kinds[i].Rank < r.kinds[best].Rank {
			best = i
		}
	}
	if best < 0 {
		return model.KindUnclassified
	}
	return r.kinds[best].Name
}

// Matching lists every kind accepting tx, in declaration order.
func (r *Registry) Matching(tx *model.Transaction) []model.EstimatorKind {
	var out []model.EstimatorKind
	for i := range r.kinds {
		if r.matches(i, tx) {
			out = append(out, r.kinds[i].Name)
		}
	}
	return out
}

func (r *Registry) matches(idx int, tx *model.Transaction) bool {
	k := r.kinds[idx]
	if k.Refines != "" && !r.matches(r.byName[k.Refines], tx) {
		return false
	}
	return safeMatch(k, tx)
}

// safeMatch turns a panicking predicate into a non-match.
func safeMatch(k Kind, tx *model.Transaction) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Warn("estimator predicate failed, treating as no match",
				"kind", k.Name, "transaction_id", tx.ID, "panic", fmt.Sprint(rec))
			ok = false
		}
	}()
	return k.Match(tx)
}

// Reclassify sets tx.Kind from its current fields and reports whether it changed.
func (r *Registry) Reclassify(tx *model.Transaction) bool {
	kind := r.Classify(tx)
	changed := tx.Kind != kind
	tx.Kind = kind
	return changed
}
