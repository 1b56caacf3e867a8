package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/nimasrn/co2-estimator/internal/estimator"
	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/shopspring/decimal"
)

type ReportService struct {
	transactions TransactionRepository
	registry     *estimator.Registry
	categories   CategoryNamer
}

func NewReportService(transactions TransactionRepository, registry *estimator.Registry, categories CategoryNamer) *ReportService {
	return &ReportService{
		transactions: transactions,
		registry:     registry,
		categories:   categories,
	}
}

// UserReport summarises every transaction of the user dated on or after since.
// A nil since covers the whole history.
func (s *ReportService) UserReport(ctx context.Context, userID int64, since *time.Time) (*model.Summary, error) {
	txs, err := s.transactions.ListByUser(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	return Summarize(s.registry, s.categories, txs), nil
}

// Summarize folds txs into footprint totals and coverage. An empty input
// yields zero totals and no largest unclassified transaction.
func Summarize(registry *estimator.Registry, categories CategoryNamer, txs []*model.Transaction) *model.Summary {
	sum := &model.Summary{TransactionCount: len(txs)}

	var (
		accounted = decimal.Zero
		total     = decimal.Zero
		largest   *model.Transaction
		perKind   = map[model.EstimatorKind]*model.KindBreakdown{}
	)
	for _, tx := range txs {
		co2 := registry.EstimateTransaction(tx)
		if co2 != nil {
			sum.TotalCO2Kg += *co2
		}

		b, ok := perKind[tx.Kind]
		if !ok {
			b = &model.KindBreakdown{Kind: tx.Kind}
			perKind[tx.Kind] = b
		}
		b.Count++
		if co2 != nil {
			b.CO2Kg += *co2
		}

		value := tx.Amount.Abs()
		total = total.Add(value)
		if tx.Kind.IsSpecific() {
			sum.ClassifiedCount++
			accounted = accounted.Add(value)
			continue
		}
		if largest == nil || value.GreaterThan(largest.Amount.Abs()) {
			largest = tx
		}
	}

	if total.IsZero() {
		total = decimal.NewFromInt(1)
	}
	count := max(len(txs), 1)

	sum.RoundedCO2Kg = int64(math.Round(sum.TotalCO2Kg))
	sum.CountCoverage = float64(sum.ClassifiedCount) / float64(count)
	sum.CountCoveragePercent = int64(math.Round(sum.CountCoverage * 100))
	sum.AccountedValue = accounted.InexactFloat64()
	sum.TotalValue = total.InexactFloat64()
	sum.ValueCoverage = accounted.Div(total).InexactFloat64()
	sum.ValueCoveragePercent = int64(math.Round(sum.ValueCoverage * 100))

	if largest != nil {
		sum.LargestUnclassified = registry.View(largest, categoryName(categories, largest.CategoryID))
	}

	for _, name := range registry.Names() {
		if b, ok := perKind[name]; ok {
			b.CO2Kg = estimator.Round(b.CO2Kg, 2)
			sum.Breakdown = append(sum.Breakdown, *b)
		}
	}
	return sum
}

// ReportLines renders the summary as the short text report shown to users.
func ReportLines(sum *model.Summary) []string {
	lines := []string{
		fmt.Sprintf("Estimated CO2 footprint: %dkg", sum.RoundedCO2Kg),
		fmt.Sprintf("This method accounts for %d%% of expenses (and %d%% of total value)",
			sum.CountCoveragePercent, sum.ValueCoveragePercent),
	}
	largest := "none"
	if sum.LargestUnclassified != nil {
		largest = sum.LargestUnclassified.Display
	}
	return append(lines, "Largest transaction without impact estimation: "+largest)
}

func categoryName(categories CategoryNamer, id *int64) string {
	if categories == nil {
		return "unknown category"
	}
	return categories.Name(id)
}
