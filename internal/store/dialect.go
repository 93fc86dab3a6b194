package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/franz/sparkify-etl/internal/util"
)

// SQLSTATE 57P03 (cannot_connect_now): the server is still starting up
const pgCannotConnectNow = "57P03"

// Dialect identifies the SQL backend behind a Store
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// driverName returns the database/sql driver registered for the dialect
func (d Dialect) driverName() string {
	switch d {
	case DialectPostgres:
		return "pgx"
	default:
		return "sqlite"
	}
}

// DetectDialect picks the backend from a DSN.
// postgres:// and postgresql:// URLs select Postgres, everything else is a SQLite path.
func DetectDialect(dsn string) (Dialect, error) {
	if strings.TrimSpace(dsn) == "" {
		return "", fmt.Errorf("database DSN is empty: %w", util.ErrInvalidConfig)
	}
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DialectPostgres, nil
	}
	if strings.Contains(lower, "://") && !strings.HasPrefix(lower, "file:") {
		return "", fmt.Errorf("unsupported database scheme in %q: %w", RedactDSN(dsn), util.ErrUnsupported)
	}
	return DialectSQLite, nil
}

// rebind rewrites ? placeholders into the dialect's bind syntax.
// Queries in this package never contain a literal question mark.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// RedactDSN hides the password part of a URL-style DSN for log output
func RedactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if i := strings.Index(creds, ":"); i >= 0 {
		return dsn[:scheme+3] + creds[:i] + ":xxxxx" + dsn[at:]
	}
	return dsn
}

// isTransientConnectError reports whether a failed ping is worth repeating
func isTransientConnectError(err error) bool {
	if util.IsTransientNetError(err) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgCannotConnectNow
}
