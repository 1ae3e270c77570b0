package store

import (
	"strconv"
	"strings"
)

type dialect struct {
	driverName string
	schemaFile string

	// positional placeholders ($1, $2, ...) instead of ?
	numbered bool

	// database/sql pool limited to one connection
	singleWriter bool
}

var (
	sqliteDialect = dialect{
		driverName:   "sqlite",
		schemaFile:   "schema_sqlite.sql",
		singleWriter: true,
	}
	postgresDialect = dialect{
		driverName: "postgres",
		schemaFile: "schema_postgres.sql",
		numbered:   true,
	}
)

// rebind rewrites ? placeholders for dialects that number them.
// Queries in this package never carry a literal ? inside strings.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
