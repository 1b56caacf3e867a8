package estimator

// Emission factors in kgCO2 per euro unless stated otherwise.
// They are variables so the divisions run as IEEE double arithmetic at
// runtime instead of being folded as exact constants by the compiler.
var (
	spotifyEmissionsKg  = 169_000_000.0
	spotifyRevenueEuros = 8_337_000_000.0

	tollEmissionsKg  = 7_071_000.0
	tollRevenueEuros = 1_460_000_000.0

	gasKgPerKWh    = 0.227
	gasEurosPerKWh = 16.33

	electricityKgPerKWh    = 50.0
	electricityGramsPerKg  = 1000.0
	electricityEurosPerKWh = 0.1740

	internetKgPerMonth     = 3.95
	freeInternetKgPerMonth = 1.7
	internetEurosPerMonth  = 39.99

	mobileGramsPerGB     = 50.0
	freeMobileGramsPerGB = 24.3
	mobileGramsPerKg     = 1000.0
	mobileGBPerPlan      = 110.0
	mobileEurosPerPlan   = 12.0

	trainKmPerEuro   = 2.12
	trainGramsPerKm  = 1.73
	terKmPerEuro     = 7.82
	terGramsPerKm    = 24.81
	gramsPerKilogram = 1000.0

	fuelEurosPerLitre  = 1.7
	fuelKmBase         = 100.0
	fuelLitresPer100Km = 4.20
	fuelGramsPerKm     = 96.0

	groceriesKgPerEuro = 0.025
	amazonKgPerEuro    = 0.1727

	employerEmissionsKg  = 10_000_000.0
	employerRevenueEuros = 1_849_390_000.0

	terThreshold = -30.0
)
