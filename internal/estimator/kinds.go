package estimator

import (
	"math"
	"regexp"

	"github.com/nimasrn/co2-estimator/internal/model"
)

const (
	Spotify            model.EstimatorKind = "spotify"
	Toll               model.EstimatorKind = "toll"
	Gas                model.EstimatorKind = "gas"
	Electricity        model.EstimatorKind = "electricity"
	InternetAccess     model.EstimatorKind = "internet_access"
	FreeInternetAccess model.EstimatorKind = "free_internet_access"
	Mobile             model.EstimatorKind = "mobile"
	FreeMobile         model.EstimatorKind = "free_mobile"
	Withdrawals        model.EstimatorKind = "withdrawals"
	Train              model.EstimatorKind = "train"
	TER                model.EstimatorKind = "ter"
	VehicleFuel        model.EstimatorKind = "vehicle_fuel"
	Groceries          model.EstimatorKind = "groceries"
	Taxes              model.EstimatorKind = "taxes"
	Leetchi            model.EstimatorKind = "leetchi"
	AmazonDelivery     model.EstimatorKind = "amazon_delivery"
	BarCoffee          model.EstimatorKind = "bar_coffee"
	Salary             model.EstimatorKind = "salary"
	InternalTransfer   model.EstimatorKind = "internal_transfer"
	Ignored            model.EstimatorKind = "ignored"
)

// Ranks. Explicit ignore rules win over everything, refinements beat the
// rule they narrow, rules combining category and description beat rules
// reading a single attribute.
const (
	RankIgnored     = 0
	RankRefinement  = 10
	RankCombined    = 20
	RankDescription = 25
	RankCategory    = 30
)

var (
	spotifyPattern      = regexp.MustCompile(`(?i)spotify`)
	freeTelecomPattern  = regexp.MustCompile(`Free Telecom`)
	freeMobilePattern   = regexp.MustCompile(`Free Mobile`)
	trainlinePattern    = regexp.MustCompile(`Trainline`)
	dgfipPattern        = regexp.MustCompile(`(?i)Dgfip Finances Publiques`)
	leetchiPattern      = regexp.MustCompile(`(?i)leetchi`)
	amznPattern         = regexp.MustCompile(`(?i)amzn`)
	amznMktpPattern     = regexp.MustCompile(`(?i)amzn mktp`)
	ignoredDescriptions = []*regexp.Regexp{
		regexp.MustCompile(`Virement Sepa Recu .*`),
	}
)

var defaultRegistry = MustNewRegistry(Catalogue()...)

// Default returns the built-in registry.
func Default() *Registry { return defaultRegistry }

// Catalogue is the built-in list of kinds in declaration order.
func Catalogue() []Kind {
	return []Kind{
		{
			Name:        Ignored,
			Rank:        RankIgnored,
			Match:       descriptionMatchesAny(ignoredDescriptions...),
			CO2:         zero,
			Icon:        "🙈",
			Explanation: "This transaction has been ignored based on a regular expression on its title.",
		},
		{
			Name:        Spotify,
			Rank:        RankDescription,
			Match:       descriptionMatches(spotifyPattern),
			CO2:         perEuro(func() float64 { return spotifyEmissionsKg / spotifyRevenueEuros }),
			Icon:        "🎶",
			Explanation: "Spotify emitted 169000tCO2 in 2020 for a revenue of 8337M€.",
		},
		{
			Name:        Toll,
			Rank:        RankCategory,
			Match:       categoryIn(309),
			CO2:         perEuro(func() float64 { return tollEmissionsKg / tollRevenueEuros }),
			Icon:        "🚧",
			Explanation: "Cofiroute emitted 7071tCO2 in 2019 for a toll revenue of 1460M€, about 0.00484kgCO2/€.",
		},
		{
			Name:        Gas,
			Rank:        RankCategory,
			Match:       categoryIn(218),
			CO2:         perEuro(func() float64 { return gasKgPerKWh / gasEurosPerKWh }),
			Icon:        "",
			Explanation: "Gas emits 0.227kgCO2/kWh from production to combustion at 16.33€/kWh.",
		},
		{
			Name:        Electricity,
			Rank:        RankCategory,
			Match:       categoryIn(217),
			CO2:         perEuro(func() float64 { return electricityKgPerKWh / electricityGramsPerKg / electricityEurosPerKWh }),
			Icon:        "💡",
			Explanation: "Electricity in France emits 50gCO2/kWh and costs 0.1740€/kWh. Subscription is not counted.",
		},
		{
			Name:        InternetAccess,
			Rank:        RankCategory,
			Match:       categoryIn(180),
			CO2:         perEuro(func() float64 { return internetKgPerMonth / internetEurosPerMonth }),
			Icon:        "🕸",
			Explanation: "Internet access in France emits 3.95kgCO2/month for about 40€/month.",
		},
		{
			Name:        FreeInternetAccess,
			Rank:        RankRefinement,
			Refines:     InternetAccess,
			Match:       descriptionMatches(freeTelecomPattern),
			CO2:         perEuro(func() float64 { return freeInternetKgPerMonth / internetEurosPerMonth }),
			Icon:        "🕸",
			Explanation: "Free estimates its internet access emits 1.7kgCO2/month for about 40€/month.",
		},
		{
			Name:  Mobile,
			Rank:  RankCategory,
			Match: categoryIn(277),
			CO2: perEuro(func() float64 {
				return mobileGramsPerGB / mobileGramsPerKg * mobileGBPerPlan / mobileEurosPerPlan
			}),
			Icon:        "📶",
			Explanation: "A mobile line emits 50gCO2/GB of data and 110GB cost about 12€.",
		},
		{
			Name:    FreeMobile,
			Rank:    RankRefinement,
			Refines: Mobile,
			Match:   descriptionMatches(freeMobilePattern),
			CO2: perEuro(func() float64 {
				return freeMobileGramsPerGB / mobileGramsPerKg * mobileGBPerPlan / mobileEurosPerPlan
			}),
			Icon:        "📶",
			Explanation: "Free Mobile estimates its line emits 24.3gCO2/GB of data and 110GB cost about 12€.",
		},
		{
			Name:        Withdrawals,
			Rank:        RankCategory,
			Match:       categoryIn(85),
			CO2:         zero,
			Icon:        "🤷️",
			Explanation: "Cash use is unknown. It is assumed to go to small services and local products.",
		},
		{
			Name: Train,
			Rank: RankCategory,
			Match: anyOf(
				categoryIn(197),
				allOf(descriptionMatches(trainlinePattern), categoryIn(249)),
			),
			CO2: func(tx *model.Transaction) float64 {
				return math.Abs(tx.AmountFloat()) * trainKmPerEuro * trainGramsPerKm / gramsPerKilogram
			},
			Icon:        "🚄",
			Explanation: "Long distance trains emit 1.73gCO2/km and tickets average 2.12km/€.",
		},
		{
			Name:    TER,
			Rank:    RankRefinement,
			Refines: Train,
			Match:   amountBelow(terThreshold),
			CO2: func(tx *model.Transaction) float64 {
				return math.Abs(tx.AmountFloat()) * terKmPerEuro * terGramsPerKm / gramsPerKilogram
			},
			Icon:        "🚃",
			Explanation: "Regional trains emit 24.81gCO2/km and tickets are roughly 7.82km/€.",
		},
		{
			Name:  VehicleFuel,
			Rank:  RankCategory,
			Match: categoryIn(87),
			CO2: func(tx *model.Transaction) float64 {
				return math.Abs(tx.AmountFloat()) / fuelEurosPerLitre * (fuelKmBase / fuelLitresPer100Km) * fuelGramsPerKm / gramsPerKilogram
			},
			Icon:        "🚗",
			Explanation: "A car emitting 96g/km and consuming 4.20L/100km with fuel at 1.7€/L.",
		},
		{
			Name:        Groceries,
			Rank:        RankCategory,
			Match:       categoryIn(273),
			CO2:         perEuro(func() float64 { return groceriesKgPerEuro }),
			Icon:        "🧺",
			Explanation: "Retailer emissions of 2B kgCO2 for 80B€ of revenue, 0.025kgCO2/€. Products themselves are not counted.",
		},
		{
			Name:        Taxes,
			Rank:        RankCategory,
			Match:       anyOf(categoryIn(159, 206, 208, 302), descriptionMatches(dgfipPattern)),
			CO2:         zero,
			Icon:        "🇫",
			Explanation: "Paying taxes is assumed to have no emission attached.",
		},
		{
			Name:        Leetchi,
			Rank:        RankCombined,
			Match:       allOf(categoryIn(183), descriptionMatches(leetchiPattern)),
			CO2:         zero,
			Icon:        "🎁",
			Explanation: "How this money is used is unknown, it is ignored for now.",
		},
		{
			Name: AmazonDelivery,
			Rank: RankCombined,
			Match: anyOf(
				allOf(categoryIn(186), descriptionMatches(amznPattern)),
				allOf(categoryIn(184), descriptionMatches(amznMktpPattern)),
			),
			CO2:         perEuro(func() float64 { return amazonKgPerEuro }),
			Icon:        "📦",
			Explanation: "Amazon emitted 60.64B kgCO2 in 2021 for 351B€ of revenue, 0.1727kgCO2/€. Products themselves are not counted.",
		},
		{
			Name:        BarCoffee,
			Rank:        RankCategory,
			Match:       categoryIn(227, 313),
			CO2:         zero,
			Icon:        "🍸🥳",
			Explanation: "Going to a bar is assumed not to emit CO2.",
		},
		{
			Name:  Salary,
			Rank:  RankCategory,
			Match: categoryIn(230),
			// signed: income carries the employer's emissions pro rata
			CO2: func(tx *model.Transaction) float64 {
				return tx.AmountFloat() * employerEmissionsKg / employerRevenueEuros
			},
			Icon:        "🏢",
			Explanation: "Employer emissions (10k tCO2) divided by its revenue (1.849B€).",
		},
		{
			Name:  InternalTransfer,
			Rank:  RankCategory,
			Match: categoryIn(326),
			CO2:   zero,
			Icon:  "🔄",
		},
	}
}

func zero(*model.Transaction) float64 { return 0 }

// perEuro multiplies the absolute amount by a factor computed once.
func perEuro(factor func() float64) Formula {
	f := factor()
	return func(tx *model.Transaction) float64 {
		return math.Abs(tx.AmountFloat()) * f
	}
}

func categoryIn(ids ...int64) Predicate {
	return func(tx *model.Transaction) bool {
		if tx.CategoryID == nil {
			return false
		}
		for _, id := range ids {
			if *tx.CategoryID == id {
				return true
			}
		}
		return false
	}
}

func descriptionMatches(re *regexp.Regexp) Predicate {
	return func(tx *model.Transaction) bool {
		return re.MatchString(tx.Description)
	}
}

func descriptionMatchesAny(res ...*regexp.Regexp) Predicate {
	return func(tx *model.Transaction) bool {
		for _, re := range res {
			if re.MatchString(tx.Description) {
				return true
			}
		}
		return false
	}
}

func amountBelow(threshold float64) Predicate {
	return func(tx *model.Transaction) bool {
		return tx.AmountFloat() < threshold
	}
}

func anyOf(ps ...Predicate) Predicate {
	return func(tx *model.Transaction) bool {
		for _, p := range ps {
			if p(tx) {
				return true
			}
		}
		return false
	}
}

func allOf(ps ...Predicate) Predicate {
	return func(tx *model.Transaction) bool {
		for _, p := range ps {
			if !p(tx) {
				return false
			}
		}
		return true
	}
}
