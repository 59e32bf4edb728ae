package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

// Dialect names the database/sql driver a SQLBackend talks to.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "pgx"
)

func (d Dialect) placeholder(n int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// SQLBackend stores the snapshot as one row per product, keyed by list
// position. Save replaces every row inside a single transaction.
type SQLBackend struct {
	db      *sql.DB
	dialect Dialect
	table   string
}

func NewSQLBackend(db *sql.DB, dialect Dialect) *SQLBackend {
	return &SQLBackend{db: db, dialect: dialect, table: "catalog_products"}
}

func (s *SQLBackend) Target() string { return string(s.dialect) + ":" + s.table }

// Migrate creates the snapshot table when it does not exist yet.
func (s *SQLBackend) Migrate(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS `+s.table+` (
				seq INTEGER PRIMARY KEY,
				id  TEXT NOT NULL,
				doc TEXT NOT NULL
			)
		`)
		return err
	})
}

func (s *SQLBackend) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

// Load reads the snapshot rows in order. An empty table is reported as
// ErrNoSnapshot, like a missing file.
func (s *SQLBackend) Load(ctx context.Context) ([]Product, error) {
	var out []Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT seq, doc
			FROM `+s.table+`
			ORDER BY seq ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Product, 0, 16)
		for rows.Next() {
			var (
				seq int
				doc string
			)
			if err := rows.Scan(&seq, &doc); err != nil {
				return err
			}
			p, err := decodeProduct([]byte(doc))
			if err != nil {
				return &DecodeError{Line: seq + 1, Err: err}
			}
			out = append(out, p)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoSnapshot
	}
	return out, nil
}

func (s *SQLBackend) Save(ctx context.Context, products []Product) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM `+s.table); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (seq, id, doc)
			VALUES (%s)
		`, s.table, s.placeholders(3)))
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, p := range products {
			doc, err := json.Marshal(p)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, i, p.ID, string(doc)); err != nil {
				return err
			}
		}

		return tx.Commit()
	})
}

func (s *SQLBackend) placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = s.dialect.placeholder(i + 1)
	}
	return strings.Join(ph, ", ")
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
