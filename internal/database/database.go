package database

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// pragmas are appended to every DSN that does not already set them.
var pragmas = []string{
	"_pragma=foreign_keys(1)",
	"_pragma=busy_timeout(5000)",
	"_pragma=journal_mode(WAL)",
}

// Connect opens a SQLite database using the provided DSN. The pool is pinned
// to a single connection, so transactions never interleave; register closing
// depends on that.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", WithPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// WithPragmas adds the connection pragmas the ledger depends on.
func WithPragmas(dsn string) string {
	var missing []string
	for _, p := range pragmas {
		name := p[:strings.Index(p, "(")]
		if !strings.Contains(dsn, name) {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return dsn
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(missing, "&")
}
