package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"golang.org/x/crypto/bcrypt"

	"safedrive/internal/db"
)

const mysqlDuplicateEntry = 1062

// DatabaseStore stores users, cars, products and quotes in MySQL
type DatabaseStore struct {
	db  *db.DB
	now func() time.Time
	// bcrypt cost; tests lower it to keep hashing fast
	cost int
}

// NewDatabaseStore creates a new database store
func NewDatabaseStore(database *db.DB) *DatabaseStore {
	return &DatabaseStore{db: database, now: time.Now, cost: bcrypt.DefaultCost}
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// ---- Users ----

const userColumns = "id, username, email, first_name, last_name, phone, created_at"

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser hashes the password and inserts the user, returning its id
func (ds *DatabaseStore) CreateUser(ctx context.Context, u *User, password string) (int64, error) {
	if u.Username == "" || password == "" || u.Email == "" {
		return 0, fmt.Errorf("username, password and email are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), ds.cost)
	if err != nil {
		return 0, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
		INSERT INTO users (username, password, email, first_name, last_name, phone, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	createdAt := ds.now().UTC()
	res, err := ds.db.ExecContext(ctx, query, u.Username, string(hash), u.Email, u.FirstName, u.LastName, u.Phone, createdAt)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read user id: %w", err)
	}
	u.ID = id
	u.CreatedAt = createdAt
	return id, nil
}

// GetUser retrieves a user by id
func (ds *DatabaseStore) GetUser(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(ds.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by username
func (ds *DatabaseStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	u, err := scanUser(ds.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return u, nil
}

// Authenticate checks a username/password pair
func (ds *DatabaseStore) Authenticate(ctx context.Context, username, password string) (*User, error) {
	var hash string
	row := ds.db.QueryRowContext(ctx, "SELECT "+userColumns+", password FROM users WHERE username = ?", username)
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.CreatedAt, &hash)
	if err == sql.ErrNoRows {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrWrongPassword
	}
	return &u, nil
}

// UpdateProfile changes the contact details of a user
func (ds *DatabaseStore) UpdateProfile(ctx context.Context, u *User) error {
	query := `
		UPDATE users SET email = ?, first_name = ?, last_name = ?, phone = ?
		WHERE id = ?
	`
	res, err := ds.db.ExecContext(ctx, query, u.Email, u.FirstName, u.LastName, u.Phone, u.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return expectOne(res)
}

// SearchUsers finds users by license plate of one of their cars and/or name fragments
func (ds *DatabaseStore) SearchUsers(ctx context.Context, f UserFilter) ([]User, error) {
	var (
		where []string
		args  []any
	)
	from := "users u"
	if f.LicensePlate != "" {
		from += " JOIN cars c ON c.user_id = u.id"
		where = append(where, "c.license_plate LIKE ?")
		args = append(args, "%"+f.LicensePlate+"%")
	}
	if f.FirstName != "" {
		where = append(where, "u.first_name LIKE ?")
		args = append(args, "%"+f.FirstName+"%")
	}
	if f.LastName != "" {
		where = append(where, "u.last_name LIKE ?")
		args = append(args, "%"+f.LastName+"%")
	}
	query := "SELECT DISTINCT u.id, u.username, u.email, u.first_name, u.last_name, u.phone, u.created_at FROM " + from
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY u.id"

	rows, err := ds.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// ---- Products ----

// ListProducts returns all products ordered by base price
func (ds *DatabaseStore) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := ds.db.QueryContext(ctx, `
		SELECT id, name, description, coverage_type, base_price, features
		FROM insurance_products
		ORDER BY base_price
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CoverageType, &p.BasePrice, &p.Features); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetProduct retrieves a product by id
func (ds *DatabaseStore) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var p Product
	err := ds.db.QueryRowContext(ctx, `
		SELECT id, name, description, coverage_type, base_price, features
		FROM insurance_products WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.Description, &p.CoverageType, &p.BasePrice, &p.Features)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

// CountProducts is used by the seeder to detect an already seeded database
func (ds *DatabaseStore) CountProducts(ctx context.Context) (int, error) {
	var n int
	if err := ds.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM insurance_products").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

// CreateProduct inserts a product
func (ds *DatabaseStore) CreateProduct(ctx context.Context, p *Product) (int64, error) {
	res, err := ds.db.ExecContext(ctx, `
		INSERT INTO insurance_products (name, description, coverage_type, base_price, features)
		VALUES (?, ?, ?, ?, ?)
	`, p.Name, p.Description, p.CoverageType, p.BasePrice, p.Features)
	if err != nil {
		return 0, fmt.Errorf("failed to create product: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read product id: %w", err)
	}
	p.ID = id
	return id, nil
}

// ---- Cars ----

const carColumns = "id, user_id, make, model, year, license_plate, vehicle_value, mileage, created_at"

func scanCar(row interface{ Scan(...any) error }) (*Car, error) {
	var c Car
	if err := row.Scan(&c.ID, &c.UserID, &c.Make, &c.Model, &c.Year, &c.LicensePlate, &c.VehicleValue, &c.Mileage, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (ds *DatabaseStore) queryCars(ctx context.Context, query string, args ...any) ([]Car, error) {
	rows, err := ds.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cars: %w", err)
	}
	defer rows.Close()

	var cars []Car
	for rows.Next() {
		c, err := scanCar(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan car: %w", err)
		}
		cars = append(cars, *c)
	}
	return cars, rows.Err()
}

// CreateCar inserts a car for its owner
func (ds *DatabaseStore) CreateCar(ctx context.Context, c *Car) (int64, error) {
	createdAt := ds.now().UTC()
	res, err := ds.db.ExecContext(ctx, `
		INSERT INTO cars (user_id, make, model, year, license_plate, vehicle_value, mileage, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.UserID, c.Make, c.Model, c.Year, c.LicensePlate, c.VehicleValue, c.Mileage, createdAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create car: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read car id: %w", err)
	}
	c.ID = id
	c.CreatedAt = createdAt
	return id, nil
}

// ListCars returns a user's cars, newest first
func (ds *DatabaseStore) ListCars(ctx context.Context, userID int64) ([]Car, error) {
	return ds.queryCars(ctx, "SELECT "+carColumns+" FROM cars WHERE user_id = ? ORDER BY created_at DESC", userID)
}

// GetCar retrieves a car by id regardless of owner
func (ds *DatabaseStore) GetCar(ctx context.Context, id int64) (*Car, error) {
	c, err := scanCar(ds.db.QueryRowContext(ctx, "SELECT "+carColumns+" FROM cars WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get car: %w", err)
	}
	return c, nil
}

// GetOwnedCar retrieves a car only if it belongs to userID
func (ds *DatabaseStore) GetOwnedCar(ctx context.Context, id, userID int64) (*Car, error) {
	c, err := scanCar(ds.db.QueryRowContext(ctx, "SELECT "+carColumns+" FROM cars WHERE id = ? AND user_id = ?", id, userID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get car: %w", err)
	}
	return c, nil
}

// UpdateCar rewrites the details of an owned car
func (ds *DatabaseStore) UpdateCar(ctx context.Context, c *Car) error {
	res, err := ds.db.ExecContext(ctx, `
		UPDATE cars SET make = ?, model = ?, year = ?, license_plate = ?, vehicle_value = ?, mileage = ?
		WHERE id = ? AND user_id = ?
	`, c.Make, c.Model, c.Year, c.LicensePlate, c.VehicleValue, c.Mileage, c.ID, c.UserID)
	if err != nil {
		return fmt.Errorf("failed to update car: %w", err)
	}
	return expectOne(res)
}

// DeleteCar removes an owned car together with its quotes
func (ds *DatabaseStore) DeleteCar(ctx context.Context, id, userID int64) error {
	tx, err := ds.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM quotes WHERE car_id = ? AND user_id = ?", id, userID); err != nil {
		return fmt.Errorf("failed to delete quotes of car: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM cars WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete car: %w", err)
	}
	if err := expectOne(res); err != nil {
		return err
	}
	return tx.Commit()
}

// SearchCars finds cars by license plate fragment, or by make/model/mileage/value
func (ds *DatabaseStore) SearchCars(ctx context.Context, f CarFilter) ([]Car, error) {
	if f.LicensePlate != "" {
		return ds.queryCars(ctx, "SELECT "+carColumns+" FROM cars WHERE license_plate LIKE ? ORDER BY id", "%"+f.LicensePlate+"%")
	}
	var (
		where []string
		args  []any
	)
	if f.Make != "" {
		where = append(where, "make LIKE ?")
		args = append(args, "%"+f.Make+"%")
	}
	if f.Model != "" {
		where = append(where, "model LIKE ?")
		args = append(args, "%"+f.Model+"%")
	}
	if f.MaxMileage > 0 {
		where = append(where, "mileage <= ?")
		args = append(args, f.MaxMileage)
	}
	if f.MinValue > 0 {
		where = append(where, "vehicle_value >= ?")
		args = append(args, f.MinValue)
	}
	if len(where) == 0 {
		return nil, fmt.Errorf("at least one search criterion is required")
	}
	return ds.queryCars(ctx, "SELECT "+carColumns+" FROM cars WHERE "+strings.Join(where, " AND ")+" ORDER BY id", args...)
}

// ---- Quotes ----

// CreateQuote saves a quote; an empty status becomes pending
func (ds *DatabaseStore) CreateQuote(ctx context.Context, q *Quote) (int64, error) {
	if q.Status == "" {
		q.Status = QuotePending
	}
	createdAt := ds.now().UTC()
	res, err := ds.db.ExecContext(ctx, `
		INSERT INTO quotes (user_id, car_id, product_id, price, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, q.UserID, q.CarID, q.ProductID, q.Price, q.Status, createdAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create quote: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read quote id: %w", err)
	}
	q.ID = id
	q.CreatedAt = createdAt
	return id, nil
}

// GetQuote retrieves a quote by id
func (ds *DatabaseStore) GetQuote(ctx context.Context, id int64) (*Quote, error) {
	var q Quote
	err := ds.db.QueryRowContext(ctx, `
		SELECT id, user_id, car_id, product_id, price, status, created_at
		FROM quotes WHERE id = ?
	`, id).Scan(&q.ID, &q.UserID, &q.CarID, &q.ProductID, &q.Price, &q.Status, &q.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	return &q, nil
}

const quoteDetailQuery = `
	SELECT q.id, q.user_id, q.car_id, q.product_id, q.price, q.status, q.created_at,
	       u.username, c.make, c.model, c.year, p.name, p.coverage_type
	FROM quotes q
	JOIN users u ON q.user_id = u.id
	JOIN cars c ON q.car_id = c.id
	JOIN insurance_products p ON q.product_id = p.id
`

func (ds *DatabaseStore) queryQuoteDetails(ctx context.Context, query string, args ...any) ([]QuoteDetail, error) {
	rows, err := ds.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotes: %w", err)
	}
	defer rows.Close()

	var out []QuoteDetail
	for rows.Next() {
		var d QuoteDetail
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.CarID, &d.ProductID, &d.Price, &d.Status, &d.CreatedAt,
			&d.Username, &d.CarMake, &d.CarModel, &d.CarYear, &d.ProductName, &d.CoverageType,
		); err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListUserQuotes returns a user's quotes with car and product details, newest first
func (ds *DatabaseStore) ListUserQuotes(ctx context.Context, userID int64) ([]QuoteDetail, error) {
	return ds.queryQuoteDetails(ctx, quoteDetailQuery+" WHERE q.user_id = ? ORDER BY q.created_at DESC", userID)
}

// RecentQuotes returns the latest quotes across all users
func (ds *DatabaseStore) RecentQuotes(ctx context.Context, limit int) ([]QuoteDetail, error) {
	if limit <= 0 {
		limit = 10
	}
	return ds.queryQuoteDetails(ctx, quoteDetailQuery+" ORDER BY q.created_at DESC LIMIT ?", limit)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks the underlying connection.
func (ds *DatabaseStore) Ping(ctx context.Context) error {
	return ds.db.PingContext(ctx)
}
