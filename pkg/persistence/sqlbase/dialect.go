package sqlbase

import (
	"strconv"
	"strings"
)

// Dialect holds what differs between the supported SQL databases.
type Dialect struct {
	Name string

	// MigrationsTable creates the schema_migrations table if missing.
	MigrationsTable string

	numbered bool
}

var (
	Postgres = Dialect{
		Name: "postgres",
		MigrationsTable: `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				version INTEGER PRIMARY KEY,
				applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
			);`,
		numbered: true,
	}

	SQLite = Dialect{
		Name: "sqlite",
		MigrationsTable: `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				version INTEGER PRIMARY KEY,
				applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);`,
	}
)

// Rebind rewrites ? placeholders into the dialect's form.
func (d Dialect) Rebind(query string) string {
	if !d.numbered {
		return query
	}

	var (
		builder strings.Builder
		n       int
	)

	builder.Grow(len(query) + 8)

	for _, r := range query {
		if r != '?' {
			builder.WriteRune(r)

			continue
		}

		n++
		builder.WriteByte('$')
		builder.WriteString(strconv.Itoa(n))
	}

	return builder.String()
}
