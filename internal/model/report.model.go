package model

// TransactionView is a transaction enriched with its classification outcome.
type TransactionView struct {
	*Transaction
	Icon         string   `json:"icon"`
	Explanation  string   `json:"explanation,omitempty"`
	CategoryName string   `json:"category_name"`
	CO2Kg        *float64 `json:"co2_kg"`
	UserEdited   bool     `json:"user_edited"`
	Display      string   `json:"display"`
}

type KindBreakdown struct {
	Kind  EstimatorKind `json:"kind"  yaml:"kind"`
	Count int           `json:"count" yaml:"count"`
	CO2Kg float64       `json:"co2_kg" yaml:"co2_kg"`
}

// Summary is the aggregate footprint of a set of transactions.
type Summary struct {
	TransactionCount     int              `json:"transaction_count"      yaml:"transaction_count"`
	TotalCO2Kg           float64          `json:"total_co2_kg"           yaml:"total_co2_kg"`
	RoundedCO2Kg         int64            `json:"rounded_co2_kg"         yaml:"rounded_co2_kg"`
	ClassifiedCount      int              `json:"classified_count"       yaml:"classified_count"`
	CountCoverage        float64          `json:"count_coverage"         yaml:"count_coverage"`
	CountCoveragePercent int64            `json:"count_coverage_percent" yaml:"count_coverage_percent"`
	AccountedValue       float64          `json:"accounted_value"        yaml:"accounted_value"`
	TotalValue           float64          `json:"total_value"            yaml:"total_value"`
	ValueCoverage        float64          `json:"value_coverage"         yaml:"value_coverage"`
	ValueCoveragePercent int64            `json:"value_coverage_percent" yaml:"value_coverage_percent"`
	LargestUnclassified  *TransactionView `json:"largest_unclassified"   yaml:"-"`
	Breakdown            []KindBreakdown  `json:"breakdown"              yaml:"breakdown"`
}
