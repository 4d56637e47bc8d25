package shard

import "strconv"

// Dialect captures the SQL differences between shard backends.
type Dialect interface {
	Name() string
	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder(n int) string
}

type questionDialect struct{ name string }

func (d questionDialect) Name() string           { return d.name }
func (d questionDialect) Placeholder(int) string { return "?" }

type dollarDialect struct{}

func (dollarDialect) Name() string             { return "postgres" }
func (dollarDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

var (
	// SQLite binds arguments with '?'.
	SQLite Dialect = questionDialect{name: "sqlite"}
	// Postgres binds arguments with '$n'.
	Postgres Dialect = dollarDialect{}
)

// DialectFor maps a driver name to its dialect, defaulting to SQLite.
func DialectFor(driver string) Dialect {
	switch driver {
	case "postgres", "pgx":
		return Postgres
	default:
		return SQLite
	}
}
