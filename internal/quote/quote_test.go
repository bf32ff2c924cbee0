package quote

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"safedrive/internal/store"
)

var (
	thirdParty    = store.Product{ID: 1, Name: "Third Party Only", CoverageType: "basic", BasePrice: 400, Features: "Third party liability, Legal expenses"}
	comprehensive = store.Product{ID: 3, Name: "Comprehensive", CoverageType: "premium", BasePrice: 1100}
	golf          = store.Car{Make: "Volkswagen", Model: "Golf", Year: 2018, VehicleValue: 18000, Mileage: 56000}
)

func TestCalculate_MidAgeCar(t *testing.T) {
	b := Calculate(thirdParty, golf, ReferenceYear)

	assert.InDelta(t, 1.2, b.ValueFactor, 1e-9)
	assert.Equal(t, 6, b.CarAge)
	assert.InDelta(t, 1.0, b.AgeFactor, 1e-9)
	// 56000 mi over 6 years is just above 15000 km/year
	assert.InDelta(t, 15020.5, b.AvgAnnualKm, 0.1)
	assert.InDelta(t, 1.0, b.MileageFactor, 1e-9)
	assert.Equal(t, 480.0, b.Price)
	assert.Equal(t, []string{"Third party liability", "Legal expenses"}, b.Features)
}

func TestCalculate_RoundsUpToFive(t *testing.T) {
	tucson := store.Car{Year: 2020, VehicleValue: 26500, Mileage: 25000}
	b := Calculate(store.Product{BasePrice: 700}, tucson, ReferenceYear)

	assert.InDelta(t, 1.0, b.AgeFactor, 1e-9)
	assert.InDelta(t, 0.9, b.MileageFactor, 1e-9)
	// 1113 -> 1115
	assert.Equal(t, 1115.0, b.Price)
}

func TestCalculate_Clamps(t *testing.T) {
	old := Calculate(comprehensive, store.Car{Year: 2000, VehicleValue: 15000, Mileage: 0}, ReferenceYear)
	assert.InDelta(t, 1.6, old.AgeFactor, 1e-9)
	assert.InDelta(t, 0.9, old.MileageFactor, 1e-9)

	heavy := Calculate(comprehensive, store.Car{Year: 2023, VehicleValue: 15000, Mileage: 100000}, ReferenceYear)
	assert.InDelta(t, 1.3, heavy.MileageFactor, 1e-9)
}

func TestCalculate_NewCarUsesTotalDistance(t *testing.T) {
	b := Calculate(comprehensive, store.Car{Year: 2024, VehicleValue: 15000, Mileage: 30000}, ReferenceYear)

	assert.Equal(t, 0, b.CarAge)
	assert.InDelta(t, 30000*kmPerMile, b.AvgAnnualKm, 1e-6)
	assert.InDelta(t, 1.23280, b.MileageFactor, 1e-4)
}

func TestForCar_KeepsProductOrder(t *testing.T) {
	out := ForCar([]store.Product{thirdParty, comprehensive}, golf, ReferenceYear)
	if assert.Len(t, out, 2) {
		assert.Equal(t, "Third Party Only", out[0].ProductName)
		assert.Equal(t, 1320.0, out[1].Price)
	}
}

func TestGeneral(t *testing.T) {
	tests := []struct {
		model string
		age   int
		want  float64
	}{
		{"Mazda MX-5 Convertible", 22, 1350},
		{"Ford Ranger Truck", 27, 840},
		{"VW Golf hatchback", 40, 500},
		{"Toyota Corolla", 70, 600},
		{"Toyota Corolla", 17, 600},
		{"BMW M3 Sport", 64, 750},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.InDelta(t, tt.want, General(tt.model, tt.age), 1e-6)
		})
	}
}

func TestSplitFeatures_Empty(t *testing.T) {
	assert.Nil(t, SplitFeatures(""))
}
