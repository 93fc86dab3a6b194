package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver ("pgx")
	_ "modernc.org/sqlite"             // SQLite driver

	"github.com/franz/sparkify-etl/internal/util"
)

const (
	currentSchemaVersion = 2
)

// Store is the single relational store handle shared by every extractor
// and loader call. It owns one database connection for the process lifetime.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// OpenOptions holds options for opening a database
type OpenOptions struct {
	// ConnectRetry controls how the initial ping is retried; nil means one attempt
	ConnectRetry *util.RetryConfig
}

// Open opens the store behind dsn with default options
func Open(ctx context.Context, dsn string) (*Store, error) {
	return OpenWithOptions(ctx, dsn, nil)
}

// OpenWithOptions opens the store behind dsn, verifies connectivity and
// applies the schema migrations.
func OpenWithOptions(ctx context.Context, dsn string, opts *OpenOptions) (*Store, error) {
	if opts == nil {
		opts = &OpenOptions{}
	}

	dialect, err := DetectDialect(dsn)
	if err != nil {
		return nil, err
	}

	source := dsn
	if dialect == DialectSQLite {
		source = sqliteDSN(dsn)
	}

	db, err := sql.Open(dialect.driverName(), source)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One shared connection: files are loaded strictly one at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	retry := util.RetryConfig{MaxAttempts: 1}
	if opts.ConnectRetry != nil {
		retry = *opts.ConnectRetry
	}
	if retry.Retryable == nil {
		retry.Retryable = isTransientConnectError
	}
	err = util.Retry(ctx, &retry, db.PingContext, "connect("+string(dialect)+")")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", RedactDSN(dsn), err)
	}

	store := &Store{db: db, dialect: dialect}

	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return store, nil
}

// sqliteDSN turns a plain path into a modernc DSN with pragmas for a
// single-writer batch load. DSNs already in file: form are passed through.
func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") || path == ":memory:" {
		return path
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", path)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for custom queries
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the backend of this store
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// ServerVersion returns the backend version string
func (s *Store) ServerVersion(ctx context.Context) (string, error) {
	query := "SELECT sqlite_version()"
	if s.dialect == DialectPostgres {
		query = "SHOW server_version"
	}

	var version string
	if err := s.db.QueryRowContext(ctx, query).Scan(&version); err != nil {
		return "", fmt.Errorf("failed to read server version: %w", err)
	}
	return version, nil
}

// migrate applies database migrations
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaVersionTable); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}

	version, err := s.getSchemaVersion(ctx)
	if err != nil {
		return err
	}

	if version >= currentSchemaVersion {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Apply schema v1
	if version < 1 {
		if err := execAll(ctx, tx, schemaV1); err != nil {
			return fmt.Errorf("failed to apply schema v1: %w", err)
		}
		if err := s.setSchemaVersion(ctx, tx, 1); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
	}

	// Apply schema v2 - lookup indexes
	if version < 2 {
		if err := execAll(ctx, tx, schemaV2); err != nil {
			return fmt.Errorf("failed to apply schema v2: %w", err)
		}
		if err := s.setSchemaVersion(ctx, tx, 2); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	return nil
}

func execAll(ctx context.Context, tx *sql.Tx, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// SchemaVersion returns the applied schema version
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	return s.getSchemaVersion(ctx)
}

// getSchemaVersion returns the current schema version
func (s *Store) getSchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// setSchemaVersion records a schema version in a transaction
func (s *Store) setSchemaVersion(ctx context.Context, tx *sql.Tx, version int) error {
	_, err := tx.ExecContext(ctx, s.dialect.rebind("INSERT INTO schema_version (version) VALUES (?)"), version)
	return err
}

// Reset drops the star schema tables and recreates them empty
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range Tables {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteTable(table)); err != nil {
			return fmt.Errorf("failed to drop %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM schema_version"); err != nil {
		return fmt.Errorf("failed to clear schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit drop: %w", err)
	}

	return s.migrate(ctx)
}

// Transaction executes fn within one transaction. Any error from fn rolls
// back every write fn made; otherwise all of them are committed together.
func (s *Store) Transaction(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{tx: tx, dialect: s.dialect}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Tx is the write side of the store, scoped to one transaction
type Tx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *Tx) exec(ctx context.Context, query string, args ...any) error {
	_, err := t.tx.ExecContext(ctx, t.dialect.rebind(query), args...)
	return err
}

// Song is a row of the songs dimension
// Title, Year and Duration are nil when the source field was null.
type Song struct {
	SongID   string
	Title    *string
	ArtistID string
	Year     *int
	Duration *float64
}

// Artist is a row of the artists dimension
type Artist struct {
	ArtistID  string
	Name      *string
	Location  *string
	Latitude  *float64
	Longitude *float64
}

// User is a row of the users dimension. Level changes over time and
// always holds the most recently loaded value.
type User struct {
	UserID    string
	FirstName string
	LastName  string
	Gender    string
	Level     string
}

// TimeDimension is a row of the time dimension, fully derived from StartTime
type TimeDimension struct {
	StartTime string
	Hour      int
	Day       int
	Week      int
	Month     int
	Year      int
	Weekday   int // Monday=0 ... Sunday=6
}

// Songplay is a row of the songplays fact table.
// SongID and ArtistID are nil when the song lookup missed.
type Songplay struct {
	SongplayID string
	StartTime  string
	UserID     string
	Level      string
	SongID     *string
	ArtistID   *string
	SessionID  string
	Location   string
	UserAgent  string
}
