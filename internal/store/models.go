package store

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicate     = errors.New("duplicate entry")
	ErrUnknownUser   = errors.New("incorrect username")
	ErrWrongPassword = errors.New("incorrect password")
)

// User never carries the password hash outside this package.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

type Car struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Year         int       `json:"year"`
	LicensePlate string    `json:"license_plate"`
	VehicleValue float64   `json:"vehicle_value"`
	Mileage      int       `json:"mileage"`
	CreatedAt    time.Time `json:"created_at"`
}

type Product struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	CoverageType string  `json:"coverage_type"`
	BasePrice    float64 `json:"base_price"`
	Features     string  `json:"features"`
}

const (
	QuotePending  = "pending"
	QuoteApproved = "approved"
	QuoteActive   = "active"
)

type Quote struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CarID     int64     `json:"car_id"`
	ProductID int64     `json:"product_id"`
	Price     float64   `json:"price"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// QuoteDetail is a quote joined with its car, product and owner.
type QuoteDetail struct {
	Quote
	Username     string `json:"username"`
	CarMake      string `json:"car_make"`
	CarModel     string `json:"car_model"`
	CarYear      int    `json:"car_year"`
	ProductName  string `json:"product_name"`
	CoverageType string `json:"coverage_type"`
}

// CarFilter selects cars. A license plate match takes precedence over the
// other criteria; zero values are ignored.
type CarFilter struct {
	LicensePlate string
	Make         string
	Model        string
	MaxMileage   int
	MinValue     float64
}

func (f CarFilter) Empty() bool {
	return f.LicensePlate == "" && f.Make == "" && f.Model == "" && f.MaxMileage == 0 && f.MinValue == 0
}

// UserFilter selects users by a car's license plate and/or name fragments.
type UserFilter struct {
	LicensePlate string
	FirstName    string
	LastName     string
}

func (f UserFilter) Empty() bool {
	return f.LicensePlate == "" && f.FirstName == "" && f.LastName == ""
}
