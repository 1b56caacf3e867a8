package estimator

import (
	"strconv"
	"strings"

	"github.com/nimasrn/co2-estimator/internal/model"
)

// Describe renders the one-line summary of tx used in reports and logs.
func (r *Registry) Describe(tx *model.Transaction, categoryName string) string {
	var b strings.Builder
	b.WriteString(r.Icon(tx.Kind, tx))
	b.WriteByte(' ')
	b.WriteString(tx.DateString())
	b.WriteByte(' ')
	b.WriteString(tx.Description)
	b.WriteString(" (")
	b.WriteString(categoryName)
	b.WriteString("): ")
	b.WriteString(tx.FullAmount())
	if co2 := r.EstimateTransaction(tx); co2 != nil && *co2 > 0 {
		b.WriteString(" , 🏭 ")
		b.WriteString(strconv.FormatFloat(Round(*co2, 2), 'f', -1, 64))
		b.WriteString("kg")
	}
	return b.String()
}

// View enriches tx with everything a client needs to display it.
func (r *Registry) View(tx *model.Transaction, categoryName string) *model.TransactionView {
	return &model.TransactionView{
		Transaction:  tx,
		Icon:         r.Icon(tx.Kind, tx),
		Explanation:  r.Explanation(tx.Kind),
		CategoryName: categoryName,
		CO2Kg:        r.EstimateTransaction(tx),
		UserEdited:   tx.UserEdited(),
		Display:      r.Describe(tx, categoryName),
	}
}
