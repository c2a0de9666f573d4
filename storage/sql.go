package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/tracebeam/courier/types"
)

// tableNamePattern restricts table names to plain identifiers, since the
// name is interpolated into SQL text rather than bound as a parameter.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Dialect selects the SQL flavor used for placeholders and upserts.
type Dialect int

const (
	// DialectSQLite targets SQLite (mattn/go-sqlite3 or compatible).
	DialectSQLite Dialect = iota
	// DialectPostgres targets PostgreSQL (lib/pq or compatible).
	DialectPostgres
)

// SQLStore is a KV implementation backed by a single database table.
//
// The table holds one row per slot key:
//
//	CREATE TABLE IF NOT EXISTS courier_kv (
//	    slot_key   TEXT PRIMARY KEY,
//	    slot_value BLOB NOT NULL
//	)
//
// SQLStore works with any database/sql driver supporting ON CONFLICT
// upserts; SQLite and Postgres dialects are provided.
type SQLStore struct {
	db      *sql.DB
	table   string
	dialect Dialect

	getStmt    string
	setStmt    string
	deleteStmt string
}

// Compile-time assertion that SQLStore implements KV.
var _ KV = (*SQLStore)(nil)

// SQLStoreOption configures an SQLStore.
type SQLStoreOption func(*SQLStore)

// WithTableName sets the slot table name.
//
// Default: "courier_kv"
//
// Parameters:
//   - name: The table name
//
// Returns:
//   - SQLStoreOption: Configuration option
func WithTableName(name string) SQLStoreOption {
	return func(s *SQLStore) {
		s.table = name
	}
}

// WithDialect sets the SQL dialect used for placeholders and upserts.
//
// Default: DialectSQLite
//
// Parameters:
//   - d: The dialect
//
// Returns:
//   - SQLStoreOption: Configuration option
func WithDialect(d Dialect) SQLStoreOption {
	return func(s *SQLStore) {
		s.dialect = d
	}
}

// NewSQLStore creates a KV store on the given database, creating the slot
// table if it does not exist.
//
// Parameters:
//   - ctx: Context for the table creation
//   - db: An open database handle; the caller retains ownership
//   - opts: Optional configuration options
//
// Returns:
//   - *SQLStore: A ready store
//   - error: Table creation or configuration failure
func NewSQLStore(ctx context.Context, db *sql.DB, opts ...SQLStoreOption) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("courier: database handle cannot be nil")
	}

	s := &SQLStore{db: db, table: "courier_kv", dialect: DialectSQLite}
	for _, opt := range opts {
		opt(s)
	}

	if !tableNamePattern.MatchString(s.table) {
		return nil, fmt.Errorf("courier: invalid table name %q", s.table)
	}
	if s.dialect != DialectSQLite && s.dialect != DialectPostgres {
		return nil, fmt.Errorf("courier: unknown SQL dialect %d", s.dialect)
	}

	s.buildStatements()

	createStmt := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (slot_key TEXT PRIMARY KEY, slot_value BLOB NOT NULL)",
		s.table,
	)
	if _, err := db.ExecContext(ctx, createStmt); err != nil {
		return nil, fmt.Errorf("courier: creating slot table: %w", err)
	}

	return s, nil
}

// buildStatements renders the per-dialect SQL statements.
func (s *SQLStore) buildStatements() {
	switch s.dialect {
	case DialectPostgres:
		s.getStmt = fmt.Sprintf("SELECT slot_value FROM %s WHERE slot_key = $1", s.table)
		s.setStmt = fmt.Sprintf(
			"INSERT INTO %s (slot_key, slot_value) VALUES ($1, $2) "+
				"ON CONFLICT (slot_key) DO UPDATE SET slot_value = EXCLUDED.slot_value",
			s.table,
		)
		s.deleteStmt = fmt.Sprintf("DELETE FROM %s WHERE slot_key = $1", s.table)
	default:
		s.getStmt = fmt.Sprintf("SELECT slot_value FROM %s WHERE slot_key = ?", s.table)
		s.setStmt = fmt.Sprintf(
			"INSERT INTO %s (slot_key, slot_value) VALUES (?, ?) "+
				"ON CONFLICT (slot_key) DO UPDATE SET slot_value = excluded.slot_value",
			s.table,
		)
		s.deleteStmt = fmt.Sprintf("DELETE FROM %s WHERE slot_key = ?", s.table)
	}
}

// Get returns the value stored under key.
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, s.getStmt, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("courier: reading slot %q: %w", key, err)
	}

	return value, nil
}

// Set stores value under key, replacing any existing value.
func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, s.setStmt, key, value); err != nil {
		return fmt.Errorf("courier: writing slot %q: %w", key, err)
	}

	return nil
}

// Delete removes the value stored under key.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.deleteStmt, key); err != nil {
		return fmt.Errorf("courier: deleting slot %q: %w", key, err)
	}

	return nil
}
