// Package postgres implements the output store on a Postgres table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/placescraper/internal/places"
	"github.com/JakeFAU/placescraper/internal/store"
)

const defaultTable = "place_records"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for place rows.
type Config struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// EnsureSchema creates the table on startup when it is missing.
	EnsureSchema bool `mapstructure:"ensure_schema"`
}

type pool interface {
	Begin(context.Context) (pgx.Tx, error)
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// Store appends place records to a Postgres table.
type Store struct {
	pool  pool
	table string
}

var _ store.Output = (*Store)(nil)

// New connects to Postgres using cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("output.postgres.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &Store{pool: p, table: table}
	if cfg.EnsureSchema {
		if err := s.EnsureSchema(ctx); err != nil {
			p.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, table string) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &Store{pool: p, table: table}, nil
}

func tableName(name string) (string, error) {
	if name == "" {
		name = defaultTable
	}
	if !validTableName.MatchString(name) {
		return "", fmt.Errorf("invalid table name %q", name)
	}
	return name, nil
}

// EnsureSchema creates the records table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	seq             BIGSERIAL PRIMARY KEY,
	id              TEXT NOT NULL,
	query           TEXT NOT NULL,
	display_name    TEXT,
	category        TEXT,
	rating          TEXT,
	address         TEXT,
	phone           TEXT,
	website         TEXT,
	latitude        TEXT,
	longitude       TEXT,
	status          TEXT NOT NULL,
	open_status     TEXT,
	operating_hours TEXT,
	error           TEXT,
	inserted_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// Append inserts records in one transaction; either all rows land or none do.
// Missing fields are stored as NULL.
func (s *Store) Append(ctx context.Context, records []places.PlaceRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (%s) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
)`, s.table, strings.Join(places.Columns, ", "))

	for _, rec := range records {
		if _, err := tx.Exec(ctx, query, insertArgs(rec)...); err != nil {
			return errors.Join(fmt.Errorf("insert record %s: %w", rec.ID, err), rollback(ctx, tx))
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Join(fmt.Errorf("commit append: %w", err), rollback(ctx, tx))
	}
	return nil
}

func rollback(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)
	if err == nil || errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return fmt.Errorf("rollback append: %w", err)
}

func insertArgs(rec places.PlaceRecord) []any {
	return []any{
		places.CleanText(rec.ID),
		places.CleanText(rec.Query),
		nullable(rec.DisplayName),
		nullable(rec.Category),
		nullable(rec.Rating),
		nullable(rec.Address),
		nullable(rec.Phone),
		nullable(rec.Website),
		nullable(rec.Latitude),
		nullable(rec.Longitude),
		string(rec.Status),
		nullable(rec.OpenStatus),
		nullable(rec.OperatingHours),
		nullableText(rec.Error),
	}
}

func nullable(f places.Field) any {
	if !f.OK {
		return nil
	}
	return places.CleanText(f.Value)
}

func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return places.CleanText(s)
}

// ReadIDs returns every distinct id already stored.
func (s *Store) ReadIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT DISTINCT id FROM %s", s.table))
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ids: %w", err)
	}
	return ids, nil
}

// Table returns every row in insertion order. NULL fields read back as the
// sentinel so the table matches the delimited output.
func (s *Store) Table(ctx context.Context) ([]string, [][]string, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY seq", strings.Join(places.Columns, ", "), s.table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	header := append([]string(nil), places.Columns...)
	var out [][]string
	for rows.Next() {
		cells := make([]pgtype.Text, len(header))
		dest := make([]any, len(header))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, fmt.Errorf("scan record: %w", err)
		}
		row := make([]string, len(header))
		for i, c := range cells {
			switch {
			case c.Valid:
				row[i] = c.String
			case header[i] != "error":
				row[i] = places.Sentinel
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate records: %w", err)
	}
	return header, out, nil
}
