package estimator

import (
	"math"
	"testing"
	"time"

	"github.com/nimasrn/co2-estimator/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Estimate_Scenarios(t *testing.T) {
	r := Default()

	t.Run("salary uses signed amount", func(t *testing.T) {
		tx := newTx(ptr(int64(230)), "Employer", 3000)
		co2 := r.Estimate(r.Classify(tx), tx)
		require.NotNil(t, co2)
		assert.InDelta(t, 16.2215, *co2, 1e-4)
		assert.Equal(t, 16.22, Round(*co2, 2))

		refund := newTx(ptr(int64(230)), "Employer", -3000)
		assert.InDelta(t, -16.2215, *r.Estimate(Salary, refund), 1e-4)
	})

	t.Run("vehicle fuel", func(t *testing.T) {
		tx := newTx(ptr(int64(87)), "Total", -50)
		co2 := r.Estimate(r.Classify(tx), tx)
		require.NotNil(t, co2)
		assert.Equal(t, 67.23, Round(*co2, 2))
	})

	t.Run("generic train", func(t *testing.T) {
		tx := newTx(ptr(int64(197)), "SNCF", -20)
		kind := r.Classify(tx)
		require.Equal(t, Train, kind)
		assert.InDelta(t, 20*2.12*1.73/1000, *r.Estimate(kind, tx), 1e-12)
	})

	t.Run("regional train", func(t *testing.T) {
		tx := newTx(ptr(int64(197)), "SNCF", -40)
		kind := r.Classify(tx)
		require.Equal(t, TER, kind)
		assert.InDelta(t, 40*7.82*24.81/1000, *r.Estimate(kind, tx), 1e-12)
	})

	t.Run("electricity uses absolute amount", func(t *testing.T) {
		tx := newTx(ptr(int64(217)), "EDF", -87)
		co2 := r.Estimate(Electricity, tx)
		require.NotNil(t, co2)
		assert.Greater(t, *co2, 0.0)
		assert.InDelta(t, 87*50.0/1000/0.1740, *co2, 1e-9)
	})

	t.Run("per euro factors", func(t *testing.T) {
		amount := 100.0
		cases := map[model.EstimatorKind]float64{
			Spotify:            169_000_000.0 / 8_337_000_000,
			Toll:               7_071_000 / 1_460_000_000.0,
			Gas:                0.227 / 16.33,
			InternetAccess:     3.95 / 39.99,
			FreeInternetAccess: 1.7 / 39.99,
			Mobile:             50.0 / 1000 * 110 / 12,
			FreeMobile:         24.3 / 1000 * 110 / 12,
			Groceries:          0.025,
			AmazonDelivery:     0.1727,
		}
		for kind, factor := range cases {
			tx := newTx(nil, "", -amount)
			co2 := r.Estimate(kind, tx)
			require.NotNil(t, co2, kind)
			assert.InDelta(t, amount*factor, *co2, 1e-9, kind)
		}
	})
}

func TestRegistry_Estimate_Exact(t *testing.T) {
	tx := newTx(ptr(int64(87)), "Total", -50)
	amount := math.Abs(tx.AmountFloat())
	want := amount / fuelEurosPerLitre * (fuelKmBase / fuelLitresPer100Km) * fuelGramsPerKm / gramsPerKilogram

	got := Default().Estimate(VehicleFuel, tx)
	require.NotNil(t, got)
	assert.Equal(t, math.Float64bits(want), math.Float64bits(*got))
}

func TestRegistry_Estimate_ZeroKinds(t *testing.T) {
	r := Default()
	for _, kind := range []model.EstimatorKind{Taxes, BarCoffee, InternalTransfer, Withdrawals, Ignored, Leetchi} {
		for _, amount := range []float64{-1234.56, 0, 42} {
			tx := newTx(nil, "x", amount)
			co2 := r.Estimate(kind, tx)
			require.NotNil(t, co2, kind)
			assert.Equal(t, 0.0, *co2, kind)
		}
	}
}

func TestRegistry_Estimate_Unclassified(t *testing.T) {
	r := Default()
	tx := newTx(nil, "Boulangerie", -3)

	assert.Nil(t, r.Estimate(model.KindUnclassified, tx))
	assert.Nil(t, r.Estimate("", tx))
	assert.Nil(t, r.Estimate("not-a-kind", tx))
}

func TestRegistry_Icon(t *testing.T) {
	r := Default()

	assert.Equal(t, "🔻", r.Icon(model.KindUnclassified, newTx(nil, "", -1)))
	assert.Equal(t, "➕", r.Icon(model.KindUnclassified, newTx(nil, "", 1)))
	assert.Equal(t, "🚃", r.Icon(TER, newTx(nil, "", -40)))
	assert.Equal(t, "", r.Icon(Gas, newTx(nil, "", -40)))
	assert.Equal(t, "🍸🥳", r.Icon(BarCoffee, newTx(nil, "", -8)))
	assert.Equal(t, "🤷\ufe0f", r.Icon(Withdrawals, newTx(nil, "", -20)))
}

func TestRegistry_Describe(t *testing.T) {
	r := Default()
	date := time.Date(2022, 1, 10, 0, 0, 0, 0, time.UTC)

	t.Run("with positive estimate", func(t *testing.T) {
		tx := newTx(ptr(int64(87)), "Total Access", -50)
		tx.Date = &date
		tx.Kind = VehicleFuel
		assert.Equal(t, "🚗 2022-01-10 Total Access (Carburant): -50€ , 🏭 67.23kg", r.Describe(tx, "Carburant"))
	})

	t.Run("without estimate", func(t *testing.T) {
		tx := newTx(nil, "Boulangerie", -3.5)
		tx.Date = &date
		tx.Kind = model.KindUnclassified
		tx.CurrencyCode = "USD"
		assert.Equal(t, "🔻 2022-01-10 Boulangerie (unknown category): -3.5USD", r.Describe(tx, "unknown category"))
	})

	t.Run("zero estimate is not shown", func(t *testing.T) {
		tx := newTx(ptr(int64(206)), "Impots", -300)
		tx.Date = &date
		tx.Kind = Taxes
		assert.Equal(t, "🇫 2022-01-10 Impots (Taxes): -300€", r.Describe(tx, "Taxes"))
	})
}

func TestRegistry_View(t *testing.T) {
	r := Default()
	tx := newTx(ptr(int64(273)), "Carrefour", -80)
	tx.Kind = r.Classify(tx)

	v := r.View(tx, "Alimentation")
	assert.Equal(t, Groceries, v.Kind)
	assert.Equal(t, "🧺", v.Icon)
	require.NotNil(t, v.CO2Kg)
	assert.InDelta(t, 2.0, *v.CO2Kg, 1e-12)
	assert.Equal(t, decimal.NewFromInt(-80).String(), v.Amount.String())
}
