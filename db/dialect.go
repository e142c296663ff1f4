package db

import (
	"strconv"
	"strings"
)

// Dialect records the SQL syntax differences the repositories care about.
// Queries are written with '?' placeholders and rebound per dialect.
type Dialect struct {
	Name string
	// Numbered placeholders ($1, $2, ...) instead of '?'.
	Numbered bool
	// Returning reports support for INSERT ... RETURNING.
	Returning bool
}

var (
	SQLite   = Dialect{Name: "sqlite3", Returning: true}
	Postgres = Dialect{Name: "postgres", Numbered: true, Returning: true}
	MySQL    = Dialect{Name: "mysql"}
)

// DialectFor maps a database/sql driver name to its Dialect. Unknown drivers
// get SQLite syntax.
func DialectFor(driverName string) Dialect {
	switch driverName {
	case "postgres", "pgx":
		return Postgres
	case "mysql":
		return MySQL
	}
	return SQLite
}

// Rebind rewrites '?' placeholders for the dialect. It does not look inside
// string literals; queries passed here keep values out of the SQL text.
func (d Dialect) Rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
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
