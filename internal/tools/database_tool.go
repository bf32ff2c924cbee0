// Package tools exposes read access to the insurance database as text the
// model can quote back to a customer.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/apex/log"

	"safedrive/internal/quote"
	"safedrive/internal/store"
)

// Store is the slice of the database the tool reads from.
type Store interface {
	ListProducts(ctx context.Context) ([]store.Product, error)
	GetProduct(ctx context.Context, id int64) (*store.Product, error)
	GetUser(ctx context.Context, id int64) (*store.User, error)
	GetUserByUsername(ctx context.Context, username string) (*store.User, error)
	SearchUsers(ctx context.Context, f store.UserFilter) ([]store.User, error)
	ListCars(ctx context.Context, userID int64) ([]store.Car, error)
	GetCar(ctx context.Context, id int64) (*store.Car, error)
	SearchCars(ctx context.Context, f store.CarFilter) ([]store.Car, error)
	GetQuote(ctx context.Context, id int64) (*store.Quote, error)
	ListUserQuotes(ctx context.Context, userID int64) ([]store.QuoteDetail, error)
	RecentQuotes(ctx context.Context, limit int) ([]store.QuoteDetail, error)
}

const (
	QueryInsuranceProducts = "insurance_products"
	QueryUserInfo          = "user_info"
	QueryUserCars          = "user_cars"
	QueryUserQuotes        = "user_quotes"
	QueryQuoteCalculation  = "quote_calculation"
	QuerySearchUser        = "search_user"
	QueryRecentQuotes      = "recent_quotes"
	QueryGeneralQuote      = "general_quote"
	QueryPolicyDetails     = "policy_details"
	QuerySearchCars        = "search_cars"
	QuerySearchUserDetails = "search_user_details"
)

// QueryTypes lists every supported query type in a stable order.
var QueryTypes = []string{
	QueryInsuranceProducts, QueryUserInfo, QueryUserCars, QueryUserQuotes,
	QueryQuoteCalculation, QuerySearchUser, QueryRecentQuotes, QueryGeneralQuote,
	QueryPolicyDetails, QuerySearchCars, QuerySearchUserDetails,
}

// Args are the loosely typed arguments decoded from a tool call.
type Args map[string]any

// DatabaseTool answers database_query tool calls.
type DatabaseTool struct {
	store Store
	year  int
}

func NewDatabaseTool(s Store) *DatabaseTool {
	return &DatabaseTool{store: s, year: quote.ReferenceYear}
}

// Call decodes a JSON argument object and runs it. The result is always
// text; failures are reported in the text rather than as an error.
func (t *DatabaseTool) Call(ctx context.Context, rawArgs string) string {
	args := Args{}
	if strings.TrimSpace(rawArgs) != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return fmt.Sprintf("Invalid tool arguments: %v", err)
		}
	}
	queryType, _ := args["query_type"].(string)
	delete(args, "query_type")
	return t.Run(ctx, queryType, args)
}

// Run executes one query type.
func (t *DatabaseTool) Run(ctx context.Context, queryType string, args Args) string {
	log.WithFields(log.Fields{"query_type": queryType}).Debug("tool.database_query")

	out, err := t.dispatch(ctx, queryType, args)
	if err != nil {
		log.WithFields(log.Fields{"query_type": queryType, "error": err.Error()}).Warn("tool.database_query.error")
		return fmt.Sprintf("Database error: %v", err)
	}
	return out
}

func (t *DatabaseTool) dispatch(ctx context.Context, queryType string, args Args) (string, error) {
	switch queryType {
	case QueryInsuranceProducts:
		return t.insuranceProducts(ctx)
	case QueryUserInfo:
		return t.userInfo(ctx, args.Int("user_id"))
	case QueryUserCars:
		return t.userCars(ctx, args.Int("user_id"))
	case QueryUserQuotes:
		return t.userQuotes(ctx, args.Int("user_id"))
	case QueryQuoteCalculation:
		return t.calculateQuote(ctx, args.Int("car_id"), args.Int("product_id"))
	case QuerySearchUser:
		return t.searchUser(ctx, args.String("username"))
	case QueryRecentQuotes:
		return t.recentQuotes(ctx, int(args.Int("limit")))
	case QueryGeneralQuote:
		return t.generalQuote(args)
	case QueryPolicyDetails:
		return t.policyDetails(ctx, args.String("policy_number"))
	case QuerySearchCars:
		return t.searchCars(ctx, args)
	case QuerySearchUserDetails:
		return t.searchUserDetails(ctx, store.UserFilter{
			LicensePlate: args.String("license_plate"),
			FirstName:    args.String("first_name"),
			LastName:     args.String("last_name"),
		})
	default:
		return fmt.Sprintf("Unknown query type: %s", queryType), nil
	}
}

func (t *DatabaseTool) insuranceProducts(ctx context.Context) (string, error) {
	products, err := t.store.ListProducts(ctx)
	if err != nil {
		return "", err
	}
	result := []string{"Available Insurance Products:"}
	for _, p := range products {
		features := strings.ReplaceAll(p.Features, ", ", "\n  • ")
		result = append(result, fmt.Sprintf(
			"\n%s (%s)\n  Base Price: €%s/year\n  Description: %s\n  Features:\n  • %s",
			p.Name, p.CoverageType, pyFloat(p.BasePrice), p.Description, features,
		))
	}
	return strings.Join(result, "\n"), nil
}

func (t *DatabaseTool) userInfo(ctx context.Context, userID int64) (string, error) {
	if userID == 0 {
		return "User ID required", nil
	}
	u, err := t.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("User with ID %d not found", userID), nil
	}
	if err != nil {
		return "", err
	}
	return formatUser(u), nil
}

func formatUser(u *store.User) string {
	return fmt.Sprintf(
		"User Information:\n  Username: %s\n  Name: %s %s\n  Email: %s\n  Phone: %s\n  Member since: %s",
		u.Username, u.FirstName, u.LastName, u.Email, u.Phone, u.CreatedAt.Format(dateLayout),
	)
}

func (t *DatabaseTool) userCars(ctx context.Context, userID int64) (string, error) {
	if userID == 0 {
		return "User ID required", nil
	}
	cars, err := t.store.ListCars(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(cars) == 0 {
		return "No vehicles found for this user", nil
	}
	result := []string{"User's Vehicles:"}
	for _, c := range cars {
		result = append(result, fmt.Sprintf(
			"\n  Car ID %d: %d %s %s\n    License Plate: %s\n    Value: €%s\n    Mileage: %s km\n    Added: %s",
			c.ID, c.Year, c.Make, c.Model, c.LicensePlate, groupFloat(c.VehicleValue), groupInt(int64(c.Mileage)), c.CreatedAt.Format(dateLayout),
		))
	}
	return strings.Join(result, "\n"), nil
}

func (t *DatabaseTool) userQuotes(ctx context.Context, userID int64) (string, error) {
	if userID == 0 {
		return "User ID required", nil
	}
	quotes, err := t.store.ListUserQuotes(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(quotes) == 0 {
		return "No quotes found for this user", nil
	}
	result := []string{"User's Insurance Quotes:"}
	for _, q := range quotes {
		status := "Saved"
		if q.Status == store.QuoteActive {
			status = "Active"
		}
		result = append(result, fmt.Sprintf(
			"\n  Quote ID %d: %d %s %s\n    Product: %s (%s)\n    Price: €%s/year\n    Status: %s\n    Created: %s",
			q.ID, q.CarYear, q.CarMake, q.CarModel, q.ProductName, q.CoverageType, pyFloat(q.Price), status, q.CreatedAt.Format(dateTimeLayout),
		))
	}
	return strings.Join(result, "\n"), nil
}

func (t *DatabaseTool) searchUser(ctx context.Context, username string) (string, error) {
	if username == "" {
		return "Username required", nil
	}
	u, err := t.store.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("User '%s' not found", username), nil
	}
	if err != nil {
		return "", err
	}
	return formatUser(u), nil
}

const (
	defaultRecentQuotes = 10
	maxRecentQuotes     = 100
)

// recentQuotes clamps limit so the heading always states what was fetched.
func (t *DatabaseTool) recentQuotes(ctx context.Context, limit int) (string, error) {
	switch {
	case limit <= 0:
		limit = defaultRecentQuotes
	case limit > maxRecentQuotes:
		limit = maxRecentQuotes
	}
	quotes, err := t.store.RecentQuotes(ctx, limit)
	if err != nil {
		return "", err
	}
	if len(quotes) == 0 {
		return "No recent quotes found", nil
	}
	result := []string{fmt.Sprintf("Recent %d Insurance Quotes:", limit)}
	for _, q := range quotes {
		result = append(result, fmt.Sprintf(
			"\n  %s: %d %s %s\n    Product: %s - €%s/year\n    Date: %s",
			q.Username, q.CarYear, q.CarMake, q.CarModel, q.ProductName, pyFloat(q.Price), q.CreatedAt.Format(dateTimeLayout),
		))
	}
	return strings.Join(result, "\n"), nil
}

func (t *DatabaseTool) calculateQuote(ctx context.Context, carID, productID int64) (string, error) {
	if carID == 0 || productID == 0 {
		return "Car ID and Product ID required", nil
	}
	car, err := t.store.GetCar(ctx, carID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("Car with ID %d not found", carID), nil
	}
	if err != nil {
		return "", err
	}
	product, err := t.store.GetProduct(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("Product with ID %d not found", productID), nil
	}
	if err != nil {
		return "", err
	}

	b := quote.Calculate(*product, *car, t.year)
	return fmt.Sprintf(
		"Quote Calculation for %d %s %s:\n"+
			"  Product: %s (%s)\n"+
			"  Base Price: €%s\n"+
			"  Value Factor: %.2f (car value: €%s)\n"+
			"  Age Factor: %.2f (car age: %d years)\n"+
			"  Mileage Factor: %.2f (avg: %s km/year)\n"+
			"  Final Price: €%d/year",
		car.Year, car.Make, car.Model,
		product.Name, product.CoverageType,
		pyFloat(b.BasePrice),
		b.ValueFactor, groupFloat(car.VehicleValue),
		b.AgeFactor, b.CarAge,
		b.MileageFactor, groupInt(int64(math.RoundToEven(b.AvgAnnualKm))),
		int64(b.Price),
	), nil
}

func (t *DatabaseTool) generalQuote(args Args) (string, error) {
	carModel := args.String("car_model")
	rawAge, hasAge := args["driver_age"]
	if carModel == "" || !hasAge || rawAge == nil || rawAge == "" {
		return "Car model and driver age are required for a general quote.", nil
	}
	age, ok := toInt(rawAge)
	if !ok {
		return "Invalid driver age provided. Please provide a number.", nil
	}
	if age == 0 {
		return "Car model and driver age are required for a general quote.", nil
	}

	price := quote.General(carModel, int(age))
	return fmt.Sprintf(
		"General Insurance Quote Estimate:\n  Car Model: %s\n  Driver Age: %d\n  Estimated Annual Premium: €%.2f/year\n\n"+
			"Note: This is a non-binding estimate. For a precise quote, please provide more details about the specific vehicle.",
		carModel, age, price,
	), nil
}

// policyDetails treats the policy number as a quote id.
func (t *DatabaseTool) policyDetails(ctx context.Context, policyNumber string) (string, error) {
	if policyNumber == "" {
		return "Policy number is required to retrieve policy details.", nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(policyNumber), 10, 64)
	if err != nil {
		return "Invalid policy number format. Please provide a valid number.", nil
	}
	q, err := t.store.GetQuote(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("Policy with number %s not found.", policyNumber), nil
	}
	if err != nil {
		return "", err
	}

	u, uerr := t.store.GetUser(ctx, q.UserID)
	c, cerr := t.store.GetCar(ctx, q.CarID)
	p, perr := t.store.GetProduct(ctx, q.ProductID)
	for _, e := range []error{uerr, cerr, perr} {
		if errors.Is(e, store.ErrNotFound) {
			return "Could not retrieve all details for the policy.", nil
		}
		if e != nil {
			return "", e
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Policy Details for Policy #%s:\n  Status: %s\n  Created on: %s\n\n",
		policyNumber, capitalize(q.Status), q.CreatedAt.Format(dateLayout))
	fmt.Fprintf(&b, "Policy Owner Details:\n  Name: %s %s\n  Username: %s\n  Email: %s\n  Phone: %s\n\n",
		u.FirstName, u.LastName, u.Username, u.Email, u.Phone)
	fmt.Fprintf(&b, "Vehicle Details:\n  Make and Model: %d %s %s\n  License Plate: %s\n  Vehicle Value: €%s\n  Mileage: %s km\n\n",
		c.Year, c.Make, c.Model, c.LicensePlate, groupFloat(c.VehicleValue), groupInt(int64(c.Mileage)))
	fmt.Fprintf(&b, "Insurance Product Details:\n  Product Name: %s\n  Coverage Type: %s\n  Annual Premium: €%s/year\n",
		p.Name, p.CoverageType, pyFloat(q.Price))
	return b.String(), nil
}

func (t *DatabaseTool) searchCars(ctx context.Context, args Args) (string, error) {
	f := store.CarFilter{
		LicensePlate: args.String("license_plate"),
		Make:         args.String("make"),
		Model:        args.String("model"),
	}
	if v, ok := args["mileage"]; ok && v != nil && v != "" {
		n, ok := toInt(v)
		if !ok {
			return "Invalid mileage provided. Please provide a number.", nil
		}
		f.MaxMileage = int(n)
	}
	if v, ok := args["vehicle_value"]; ok && v != nil && v != "" {
		n, ok := toInt(v)
		if !ok {
			return "Invalid vehicle value provided. Please provide a number.", nil
		}
		f.MinValue = float64(n)
	}
	if f.Empty() {
		return "Please provide at least one search criterion: license_plate, make, model, mileage, or vehicle_value.", nil
	}

	cars, err := t.store.SearchCars(ctx, f)
	if err != nil {
		return "", err
	}
	if len(cars) == 0 {
		if f.LicensePlate != "" {
			return fmt.Sprintf("No cars found with license plate containing '%s'.", f.LicensePlate), nil
		}
		return "No cars found matching the specified criteria.", nil
	}

	result := []string{"Found Cars:"}
	for _, c := range cars {
		result = append(result, fmt.Sprintf(
			"\n  Car ID %d: %d %s %s\n    License Plate: %s\n    Value: €%s\n    Mileage: %s km\n    Owner User ID: %d\n    Added: %s",
			c.ID, c.Year, c.Make, c.Model, c.LicensePlate, groupFloat(c.VehicleValue), groupInt(int64(c.Mileage)), c.UserID, c.CreatedAt.Format(dateLayout),
		))
	}
	return strings.Join(result, "\n"), nil
}

func (t *DatabaseTool) searchUserDetails(ctx context.Context, f store.UserFilter) (string, error) {
	if f.Empty() {
		return "Please provide at least one search criterion: license_plate, first_name, or last_name.", nil
	}
	users, err := t.store.SearchUsers(ctx, f)
	if err != nil {
		return "", err
	}
	if len(users) == 0 {
		return "No users found matching the specified criteria.", nil
	}

	result := []string{"Found Users:"}
	for _, u := range users {
		result = append(result, formatUser(&u))
		cars, err := t.userCars(ctx, u.ID)
		if err != nil {
			return "", err
		}
		result = append(result, cars)
	}
	return strings.Join(result, "\n\n"), nil
}
