package estimator

import (
	"math"

	"github.com/nimasrn/co2-estimator/internal/model"
)

// Estimate returns kilograms of CO2 for tx under kind. Nil means the kind has
// no model, which is distinct from a modeled zero.
func (r *Registry) Estimate(kind model.EstimatorKind, tx *model.Transaction) *float64 {
	k, ok := r.Lookup(kind)
	if !ok || k.CO2 == nil {
		return nil
	}
	v := k.CO2(tx)
	return &v
}

// EstimateTransaction estimates tx under its stored kind.
func (r *Registry) EstimateTransaction(tx *model.Transaction) *float64 {
	return r.Estimate(tx.Kind, tx)
}

// Icon returns the display icon of kind for tx. A registered kind's icon is
// used as is, even when empty; other transactions show their direction.
func (r *Registry) Icon(kind model.EstimatorKind, tx *model.Transaction) string {
	if k, ok := r.Lookup(kind); ok {
		return k.Icon
	}
	if tx.Amount.IsNegative() {
		return "🔻"
	}
	return "➕"
}

func (r *Registry) Explanation(kind model.EstimatorKind) string {
	k, _ := r.Lookup(kind)
	return k.Explanation
}

// Round rounds v to the given number of decimals, halves away from zero.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
