package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/DreamCats/medindex/internal/config"
)

//go:embed schema_sqlite.sql schema_postgres.sql
var schemaFS embed.FS

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DB manages the chunk table connection and schema
type DB struct {
	sqlDB   *sql.DB
	dialect dialect
	table   string
	dims    int
	path    string
}

// Open opens the database described by cfg. dims is the embedding
// dimensionality every stored vector must have.
func Open(cfg config.DatabaseConfig, dims int) (*DB, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", dims)
	}
	table := cfg.Table
	if table == "" {
		table = "medical_knowledge"
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}

	var (
		d   dialect
		dsn string
	)
	switch cfg.Driver {
	case "", "sqlite":
		d = sqliteDialect
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = cfg.Path + "?_pragma=journal_mode=WAL&_pragma=synchronous=NORMAL&_pragma=busy_timeout(5000)"
	case "postgres":
		d = postgresDialect
		dsn = cfg.DSN
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	sqlDB, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if d.singleWriter {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{
		sqlDB:   sqlDB,
		dialect: d,
		table:   table,
		dims:    dims,
		path:    cfg.Path,
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.sqlDB.Close()
}

// SQLDB returns the underlying *sql.DB for direct queries
func (db *DB) SQLDB() *sql.DB {
	return db.sqlDB
}

// Dimensions returns the vector length enforced on insert and scan.
func (db *DB) Dimensions() int {
	return db.dims
}

// Table returns the chunk table name.
func (db *DB) Table() string {
	return db.table
}

// Driver returns the database/sql driver in use.
func (db *DB) Driver() string {
	return db.dialect.driverName
}

// EnsureSchema creates the chunk table and its index if absent. It is idempotent.
func (db *DB) EnsureSchema(ctx context.Context) error {
	schema, err := schemaFS.ReadFile(db.dialect.schemaFile)
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	ddl := strings.ReplaceAll(string(schema), "{{table}}", db.table)

	if _, err := db.sqlDB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Stats returns database statistics
func (db *DB) Stats(ctx context.Context) (*DBStats, error) {
	stats := &DBStats{
		Driver:     db.dialect.driverName,
		Table:      db.table,
		Dimensions: db.dims,
	}

	if err := db.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+db.table).Scan(&stats.ChunkCount); err != nil {
		return nil, fmt.Errorf("%w: failed to count chunks: %v", ErrUnavailable, err)
	}
	if err := db.sqlDB.QueryRowContext(ctx, "SELECT COUNT(DISTINCT book_title) FROM "+db.table).Scan(&stats.SourceCount); err != nil {
		return nil, fmt.Errorf("%w: failed to count sources: %v", ErrUnavailable, err)
	}

	if db.path != "" && db.dialect.driverName == "sqlite" {
		if info, err := os.Stat(db.path); err == nil {
			stats.SizeBytes = info.Size()
		}
	}

	return stats, nil
}

// DBStats represents database statistics
type DBStats struct {
	Driver      string `json:"driver"`
	Table       string `json:"table"`
	Dimensions  int    `json:"dimensions"`
	ChunkCount  int64  `json:"chunks"`
	SourceCount int64  `json:"sources"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
}
