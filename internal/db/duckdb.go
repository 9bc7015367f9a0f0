// Package db keeps a DuckDB catalog of the loaded regions for ad-hoc SQL.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Config holds database configuration.
type Config struct {
	// Path is the database file. Empty opens an in-memory database.
	Path string
	// Extensions are installed and loaded on open; failures are logged.
	Extensions []string
}

// Region is one row of the regions table.
type Region struct {
	ID       string
	Name     string
	District string
	Regency  string
	Area     float64
	HasArea  bool
}

// Catalog is a DuckDB connection holding the regions table.
type Catalog struct {
	db *sql.DB
}

// Open opens the catalog.
func Open(ctx context.Context, cfg Config) (*Catalog, error) {
	if cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, eris.Wrap(err, "db: create directory")
		}
	}

	conn, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, eris.Wrap(err, "db: open duckdb")
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, eris.Wrap(err, "db: ping duckdb")
	}

	for _, ext := range cfg.Extensions {
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			zap.L().Warn("db: extension unavailable", zap.String("extension", ext), zap.Error(err))
		}
	}

	return &Catalog{db: conn}, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// LoadRegions replaces the regions table with rows.
func (c *Catalog) LoadRegions(ctx context.Context, rows []Region) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "db: begin")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `CREATE OR REPLACE TABLE regions (
		id VARCHAR PRIMARY KEY,
		name VARCHAR,
		district VARCHAR,
		regency VARCHAR,
		area DOUBLE
	)`); err != nil {
		return eris.Wrap(err, "db: create regions")
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO regions VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return eris.Wrap(err, "db: prepare insert")
	}
	defer stmt.Close()

	for _, r := range rows {
		var area any
		if r.HasArea {
			area = r.Area
		}
		if _, err := stmt.ExecContext(ctx, r.ID, nullable(r.Name), nullable(r.District), nullable(r.Regency), area); err != nil {
			return eris.Wrapf(err, "db: insert region %s", r.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "db: commit")
	}
	return nil
}

// Tables lists the catalog's tables.
func (c *Catalog) Tables(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, eris.Wrap(err, "db: list tables")
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			tables = append(tables, name)
		}
	}
	return tables, eris.Wrap(rows.Err(), "db: list tables")
}

// Result is the outcome of an ad-hoc query.
type Result struct {
	Columns []string
	Rows    []map[string]any
}

// Query executes a query and collects every row.
func (c *Catalog) Query(ctx context.Context, query string, args ...any) (*Result, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "db: query")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrap(err, "db: columns")
	}

	res := &Result{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, eris.Wrap(err, "db: scan")
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "db: rows")
	}
	return res, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
