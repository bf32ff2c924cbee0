// Package quote prices insurance products for a car.
package quote

import (
	"math"
	"strings"

	"safedrive/internal/store"
)

// ReferenceYear is the year car age is measured against.
const ReferenceYear = 2024

const kmPerMile = 1.60934

// Breakdown is a priced product together with the factors that produced it.
type Breakdown struct {
	ProductID     int64    `json:"product_id"`
	ProductName   string   `json:"product_name"`
	CoverageType  string   `json:"coverage_type"`
	Description   string   `json:"description"`
	Features      []string `json:"features"`
	BasePrice     float64  `json:"base_price"`
	ValueFactor   float64  `json:"value_factor"`
	AgeFactor     float64  `json:"age_factor"`
	MileageFactor float64  `json:"mileage_factor"`
	CarAge        int      `json:"car_age"`
	AvgAnnualKm   float64  `json:"avg_annual_km"`
	Price         float64  `json:"price"`
}

// Calculate prices product for car. Mileage is stored in miles and rated in km.
func Calculate(product store.Product, car store.Car, currentYear int) Breakdown {
	valueFactor := car.VehicleValue / 15000

	age := currentYear - car.Year
	var ageFactor float64
	switch {
	case age <= 3:
		ageFactor = 0.9
	case age <= 8:
		ageFactor = 1.0
	default:
		ageFactor = 1.0 + float64(age-8)*0.06
	}
	ageFactor = clamp(ageFactor, 0.9, 1.6)

	km := float64(car.Mileage) * kmPerMile
	avg := km
	if age > 0 {
		avg = km / float64(age)
	}
	var mileageFactor float64
	switch {
	case avg < 15000:
		mileageFactor = 0.9
	case avg < 25000:
		mileageFactor = 1.0
	default:
		mileageFactor = 1.0 + (avg-25000)/10000*0.1
	}
	mileageFactor = clamp(mileageFactor, 0.9, 1.3)

	price := product.BasePrice * valueFactor * ageFactor * mileageFactor

	return Breakdown{
		ProductID:     product.ID,
		ProductName:   product.Name,
		CoverageType:  product.CoverageType,
		Description:   product.Description,
		Features:      SplitFeatures(product.Features),
		BasePrice:     product.BasePrice,
		ValueFactor:   valueFactor,
		AgeFactor:     ageFactor,
		MileageFactor: mileageFactor,
		CarAge:        age,
		AvgAnnualKm:   avg,
		Price:         roundUpTo5(price),
	}
}

// ForCar prices every product for car, keeping the order of products.
func ForCar(products []store.Product, car store.Car, currentYear int) []Breakdown {
	out := make([]Breakdown, 0, len(products))
	for _, p := range products {
		out = append(out, Calculate(p, car, currentYear))
	}
	return out
}

// General is a rough annual premium from a free-text car model and the driver's age.
func General(carModel string, driverAge int) float64 {
	const base = 500.0

	m := strings.ToLower(carModel)
	risk := 1.0
	switch {
	case containsAny(m, "sport", "luxury", "convertible"):
		risk = 1.5
	case containsAny(m, "suv", "truck"):
		risk = 1.2
	}

	var ageFactor float64
	switch {
	case driverAge >= 18 && driverAge < 25:
		ageFactor = 1.8
	case driverAge >= 25 && driverAge < 30:
		ageFactor = 1.4
	case driverAge >= 30 && driverAge < 65:
		ageFactor = 1.0
	default:
		ageFactor = 1.2
	}

	return base * risk * ageFactor
}

// SplitFeatures turns the stored comma list into items.
func SplitFeatures(features string) []string {
	if features == "" {
		return nil
	}
	return strings.Split(features, ", ")
}

func roundUpTo5(v float64) float64 {
	return math.Ceil(v/5) * 5
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
