// Package seed loads the demo catalogue, accounts, cars and quotes.
package seed

import (
	"context"
	"fmt"

	"github.com/apex/log"

	"safedrive/internal/store"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "password"

type Store interface {
	CountProducts(ctx context.Context) (int, error)
	CreateProduct(ctx context.Context, p *store.Product) (int64, error)
	CreateUser(ctx context.Context, u *store.User, password string) (int64, error)
	CreateCar(ctx context.Context, c *store.Car) (int64, error)
	CreateQuote(ctx context.Context, q *store.Quote) (int64, error)
}

var products = []store.Product{
	{Name: "Third Party Only", Description: "Basic legal minimum cover...", CoverageType: "basic", BasePrice: 400, Features: "Third party liability..."},
	{Name: "Third Party, Fire & Theft", Description: "Standard protection with coverage...", CoverageType: "standard", BasePrice: 700, Features: "All Third Party features..."},
	{Name: "Comprehensive", Description: "Full protection for your vehicle...", CoverageType: "premium", BasePrice: 1100, Features: "All Fire & Theft features..."},
	{Name: "Prestige Cover", Description: "Premium protection with maximum benefits...", CoverageType: "elite", BasePrice: 1600, Features: "All Comprehensive features..."},
}

var users = []store.User{
	{Username: "johndoe", Email: "john.doe@example.com", FirstName: "John", LastName: "Doe", Phone: "555-123-4567"},
	{Username: "janedoe", Email: "jane.doe@example.com", FirstName: "Jane", LastName: "Doe", Phone: "555-987-6543"},
}

// owner indexes into users.
var cars = []struct {
	owner int
	car   store.Car
}{
	{0, store.Car{Make: "Volkswagen", Model: "Golf", Year: 2018, LicensePlate: "181-D-12345", VehicleValue: 18000, Mileage: 56000}},
	{0, store.Car{Make: "Hyundai", Model: "Tucson", Year: 2020, LicensePlate: "201-C-54321", VehicleValue: 26500, Mileage: 25000}},
	{1, store.Car{Make: "Skoda", Model: "Octavia", Year: 2019, LicensePlate: "192-KY-98765", VehicleValue: 22000, Mileage: 42000}},
}

// indexes into users, cars and products
var quotes = []struct {
	owner, car, product int
	price               float64
	status              string
}{
	{0, 0, 0, 550, store.QuotePending},
	{0, 0, 1, 880, store.QuoteApproved},
	{0, 1, 2, 1350, store.QuotePending},
	{1, 2, 1, 920, store.QuoteApproved},
	{1, 2, 3, 2100, store.QuotePending},
}

// Run seeds an empty database. It reports false without writing anything
// when products already exist.
func Run(ctx context.Context, s Store) (bool, error) {
	n, err := s.CountProducts(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count products: %w", err)
	}
	if n > 0 {
		log.WithFields(log.Fields{"products": n}).Info("seed.skip")
		return false, nil
	}

	productIDs := make([]int64, len(products))
	for i, p := range products {
		id, err := s.CreateProduct(ctx, &p)
		if err != nil {
			return false, fmt.Errorf("failed to seed product %q: %w", p.Name, err)
		}
		productIDs[i] = id
	}
	log.WithFields(log.Fields{"count": len(products)}).Info("seed.products")

	userIDs := make([]int64, len(users))
	for i, u := range users {
		id, err := s.CreateUser(ctx, &u, DemoPassword)
		if err != nil {
			return false, fmt.Errorf("failed to seed user %q: %w", u.Username, err)
		}
		userIDs[i] = id
	}
	log.WithFields(log.Fields{"count": len(users)}).Info("seed.users")

	carIDs := make([]int64, len(cars))
	for i, c := range cars {
		car := c.car
		car.UserID = userIDs[c.owner]
		id, err := s.CreateCar(ctx, &car)
		if err != nil {
			return false, fmt.Errorf("failed to seed car %q: %w", car.LicensePlate, err)
		}
		carIDs[i] = id
	}
	log.WithFields(log.Fields{"count": len(cars)}).Info("seed.cars")

	for _, q := range quotes {
		quote := store.Quote{
			UserID:    userIDs[q.owner],
			CarID:     carIDs[q.car],
			ProductID: productIDs[q.product],
			Price:     q.price,
			Status:    q.status,
		}
		if _, err := s.CreateQuote(ctx, &quote); err != nil {
			return false, fmt.Errorf("failed to seed quote: %w", err)
		}
	}
	log.WithFields(log.Fields{"count": len(quotes)}).Info("seed.quotes")

	return true, nil
}
