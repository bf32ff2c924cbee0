package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/apex/log"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations is the embedded schema, rooted at the migrations directory.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Migration is one NNN_name.sql file
type Migration struct {
	Number int
	Name   string
	SQL    string
}

// Statements splits the file on semicolons. The driver runs without
// multiStatements, so each statement goes out on its own.
func (m Migration) Statements() []string {
	var out []string
	for _, part := range strings.Split(m.SQL, ";") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// RunMigrations applies every migration in fsys that is not yet recorded in
// schema_migrations, in file number order. It returns how many were applied.
func (db *DB) RunMigrations(ctx context.Context, fsys fs.FS) (int, error) {
	migrations, err := readMigrations(fsys)
	if err != nil {
		return 0, fmt.Errorf("failed to read migrations: %w", err)
	}
	if len(migrations) == 0 {
		log.Info("migrate.none")
		return 0, nil
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return 0, fmt.Errorf("failed to create migration table: %w", err)
	}

	applied, err := db.appliedVersions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to check migration status: %w", err)
	}

	count := 0
	for _, m := range migrations {
		if applied[m.Number] {
			log.WithFields(log.Fields{"version": m.Number}).Debug("migrate.skip")
			continue
		}
		if err := db.apply(ctx, m); err != nil {
			return count, err
		}
		log.WithFields(log.Fields{"version": m.Number, "name": m.Name}).Info("migrate.applied")
		count++
	}
	return count, nil
}

func (db *DB) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// apply runs one migration. MySQL commits DDL implicitly; the transaction
// only keeps the bookkeeping row and any DML in the file together.
func (db *DB) apply(ctx context.Context, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range m.Statements() {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration %d: %w", m.Number, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.Number, m.Name,
	); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", m.Number, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", m.Number, err)
	}
	return nil
}

// readMigrations reads the NNN_name.sql files at the root of fsys. Anything
// else is ignored.
func readMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	var migrations []Migration
	for _, entry := range entries {
		filename := entry.Name()
		if entry.IsDir() || path.Ext(filename) != ".sql" {
			continue
		}
		num, name, ok := strings.Cut(strings.TrimSuffix(filename, ".sql"), "_")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		b, err := fs.ReadFile(fsys, filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", filename, err)
		}
		migrations = append(migrations, Migration{Number: n, Name: name, SQL: string(b)})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Number < migrations[j].Number })
	return migrations, nil
}
