// Package storage is the database client behind data-query cells: it owns
// the Postgres connection and turns query text into tabular values.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/AJeffs1/reactive-notebook/pkg/value"
)

// Config holds connection pool configuration.
type Config struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Debug           bool
}

// DefaultConfig returns the default pool configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	}
}

// Store manages the notebook's Postgres connection. A notebook may run with
// no connection at all; query cells then fail individually while code cells
// are unaffected.
type Store struct {
	mu  sync.Mutex
	cfg *Config
	db  *bun.DB
}

// NewStore creates a disconnected store.
func NewStore(cfg *Config) *Store {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Store{cfg: cfg}
}

// NewStoreWithDB wraps an existing database handle, used by tests.
func NewStoreWithDB(db *bun.DB) *Store {
	return &Store{cfg: DefaultConfig(), db: db}
}

// Connect opens a connection using a postgres:// DSN, replacing any
// existing connection.
func (s *Store) Connect(ctx context.Context, dsn string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeLocked()

	connector := pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(30*time.Second),
		pgdriver.WithDialTimeout(10*time.Second),
	)
	sqldb := sql.OpenDB(connector)
	sqldb.SetMaxOpenConns(s.cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(s.cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	db := bun.NewDB(sqldb, pgdialect.New())
	if s.cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	s.db = db
	return nil
}

// IsConnected reports whether a live connection exists, probing it with a
// ping. A lost connection is dropped.
func (s *Store) IsConnected(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return false
	}
	if err := s.db.PingContext(ctx); err != nil {
		s.closeLocked()
		return false
	}
	return true
}

// Close tears down the connection if one exists.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *Store) closeLocked() {
	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
	}
}

// Query executes query text and returns a table. SELECT (and WITH) queries
// return their result set; DDL/DML statements return a one-row status table
// with the affected-row count, or a plain "OK" when the driver reports none.
func (s *Store) Query(ctx context.Context, query string) (*value.Table, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()

	if db == nil {
		return nil, fmt.Errorf("not connected to database")
	}

	if isResultSetQuery(query) {
		table, err := scanTable(ctx, db, query)
		if err != nil {
			return nil, fmt.Errorf("query failed: %w", err)
		}
		return table, nil
	}

	affected, err := execInTx(ctx, db, query)
	if err != nil {
		return nil, fmt.Errorf("statement failed: %w", err)
	}
	if affected < 0 {
		return value.StatusTable("OK"), nil
	}
	return value.StatusTable(fmt.Sprintf("OK, %d rows affected", affected)), nil
}

// Exec executes a statement and returns the number of affected rows.
func (s *Store) Exec(ctx context.Context, statement string) (int64, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()

	if db == nil {
		return 0, fmt.Errorf("not connected to database")
	}

	affected, err := execInTx(ctx, db, statement)
	if err != nil {
		return 0, fmt.Errorf("statement failed: %w", err)
	}
	if affected < 0 {
		return 0, nil
	}
	return affected, nil
}

// execInTx runs one statement in its own transaction, rolling back on
// failure. A negative affected count means the driver could not report one.
func execInTx(ctx context.Context, db *bun.DB, statement string) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, statement)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	affected, affErr := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	if affErr != nil {
		return -1, nil
	}
	return affected, nil
}

// Tables lists the public-schema tables.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	table, err := s.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		ORDER BY table_name
	`)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, table.NumRows())
	for _, row := range table.Rows {
		if len(row) > 0 {
			names = append(names, fmt.Sprintf("%v", row[0]))
		}
	}
	return names, nil
}

// TableSchema returns column metadata for one table.
func (s *Store) TableSchema(ctx context.Context, tableName string) (*value.Table, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()

	if db == nil {
		return nil, fmt.Errorf("not connected to database")
	}

	table, err := scanTable(ctx, db, `
		SELECT column_name, data_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_name = $1
		ORDER BY ordinal_position
	`, tableName)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return table, nil
}

// isResultSetQuery reports whether the query produces rows.
func isResultSetQuery(query string) bool {
	head := strings.ToUpper(strings.TrimSpace(query))
	return strings.HasPrefix(head, "SELECT") || strings.HasPrefix(head, "WITH")
}

// scanTable runs a row-producing query and materializes the full result.
// Parameterized queries use $1-style placeholders and go through the
// underlying database/sql handle so the args reach the driver positionally
// instead of bun's client-side formatter.
func scanTable(ctx context.Context, db *bun.DB, query string, args ...any) (*value.Table, error) {
	var rows *sql.Rows
	var err error
	if len(args) > 0 {
		rows, err = db.DB.QueryContext(ctx, query, args...)
	} else {
		rows, err = db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	table := &value.Table{Columns: columns}
	for rows.Next() {
		cells := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, cell := range cells {
			if b, ok := cell.([]byte); ok {
				cells[i] = string(b)
			}
		}
		table.Rows = append(table.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return table, nil
}
