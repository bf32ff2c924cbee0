package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// DB wraps the MySQL connection pool
type DB struct {
	*sql.DB
}

// New opens a pool for dsn and checks it answers within the context deadline
func New(ctx context.Context, dsn string) (*DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database connection string is required")
	}

	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// MySQL drops idle connections after wait_timeout
	sqlDB.SetConnMaxLifetime(3 * time.Minute)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return &DB{DB: sqlDB}, nil
}

// Wrap adopts an existing handle, e.g. one opened by sqlmock.
func Wrap(sqlDB *sql.DB) *DB {
	return &DB{DB: sqlDB}
}

func (db *DB) Close() error {
	return db.DB.Close()
}
