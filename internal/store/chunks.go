package store

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"time"
)

// EmbeddedChunk is a chunk ready to persist.
type EmbeddedChunk struct {
	Text          string
	SourceTitle   string
	SourceFile    string
	PageNumber    *int
	SequenceIndex int
	Embedding     []float32
}

// Record is a persisted chunk. ID and CreatedAt are assigned by the store.
type Record struct {
	ID            int64
	Text          string
	SourceTitle   string
	SourceFile    string
	PageNumber    *int
	SequenceIndex *int
	Embedding     []float32
	CreatedAt     time.Time
}

// ScanFilter restricts Scan. The zero value scans every row.
type ScanFilter struct {
	// Source is an exact book_title match when non-empty.
	Source string
}

// Source describes one ingested document.
type Source struct {
	Title      string `json:"title"`
	SourceFile string `json:"source_file,omitempty"`
	Chunks     int64  `json:"chunks"`
}

// InsertBatch writes chunks in a single transaction and returns the number
// of rows written. Nothing from the call remains if any row fails.
func (db *DB) InsertBatch(ctx context.Context, chunks []EmbeddedChunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	for i, c := range chunks {
		if len(c.Embedding) != db.dims {
			return 0, fmt.Errorf("%w: chunk %d has %d dimensions, want %d",
				ErrDimensionMismatch, i, len(c.Embedding), db.dims)
		}
		if c.Text == "" {
			return 0, fmt.Errorf("chunk %d has empty text", i)
		}
	}

	tx, err := db.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to begin transaction: %v", ErrUnavailable, err)
	}
	defer tx.Rollback()

	query := db.dialect.rebind(`
		INSERT INTO ` + db.table + ` (chunk_text, embedding, page_number, chunk_index, book_title, source_file)
		VALUES (?, ?, ?, ?, ?, ?)
	`)

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		if _, err := stmt.ExecContext(ctx,
			c.Text,
			EncodeVector(c.Embedding),
			nullInt(c.PageNumber),
			c.SequenceIndex,
			nullString(c.SourceTitle),
			nullString(c.SourceFile),
		); err != nil {
			return 0, fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}

	return len(chunks), nil
}

// Scan streams rows in id order. Each range over the returned sequence runs
// a fresh query. Iteration stops after the first error. Only query and
// connection failures wrap ErrUnavailable; a bad vector is a *CorruptionError.
func (db *DB) Scan(ctx context.Context, filter ScanFilter) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		query := `SELECT id, chunk_text, embedding, page_number, chunk_index, book_title, source_file, created_at FROM ` + db.table
		var args []any
		if filter.Source != "" {
			query += ` WHERE book_title = ?`
			args = append(args, filter.Source)
		}
		query += ` ORDER BY id`

		rows, err := db.sqlDB.QueryContext(ctx, db.dialect.rebind(query), args...)
		if err != nil {
			yield(Record{}, fmt.Errorf("%w: failed to query chunks: %v", ErrUnavailable, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := db.scanRecord(rows)
			if err != nil {
				yield(Record{}, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Record{}, fmt.Errorf("%w: error iterating rows: %v", ErrUnavailable, err))
		}
	}
}

func (db *DB) scanRecord(row rowScanner) (Record, error) {
	var (
		rec       Record
		blob      []byte
		page      sql.NullInt64
		seq       sql.NullInt64
		title     sql.NullString
		file      sql.NullString
		createdAt any
	)
	if err := row.Scan(&rec.ID, &rec.Text, &blob, &page, &seq, &title, &file, &createdAt); err != nil {
		return Record{}, fmt.Errorf("failed to read chunk row: %w", err)
	}

	if len(blob) != db.dims*4 {
		return Record{}, &CorruptionError{ID: rec.ID, BlobSize: len(blob), Want: db.dims}
	}
	vec, err := DecodeVector(blob)
	if err != nil {
		return Record{}, &CorruptionError{ID: rec.ID, BlobSize: len(blob), Want: db.dims}
	}
	rec.Embedding = vec

	if page.Valid {
		p := int(page.Int64)
		rec.PageNumber = &p
	}
	if seq.Valid {
		s := int(seq.Int64)
		rec.SequenceIndex = &s
	}
	rec.SourceTitle = title.String
	rec.SourceFile = file.String

	ts, err := parseTimeValue(createdAt)
	if err != nil {
		return Record{}, fmt.Errorf("row %d: %w", rec.ID, err)
	}
	rec.CreatedAt = ts

	return rec, nil
}

// ListSources returns every distinct book_title with its chunk count.
func (db *DB) ListSources(ctx context.Context) ([]Source, error) {
	query := `
		SELECT COALESCE(book_title, ''), COALESCE(MIN(source_file), ''), COUNT(*)
		FROM ` + db.table + `
		GROUP BY book_title
		ORDER BY book_title
	`
	rows, err := db.sqlDB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list sources: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.Title, &s.SourceFile, &s.Chunks); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating sources: %v", ErrUnavailable, err)
	}
	return sources, nil
}

// Count returns the number of rows, optionally restricted by filter.
func (db *DB) Count(ctx context.Context, filter ScanFilter) (int64, error) {
	query := "SELECT COUNT(*) FROM " + db.table
	var args []any
	if filter.Source != "" {
		query += " WHERE book_title = ?"
		args = append(args, filter.Source)
	}

	var n int64
	if err := db.sqlDB.QueryRowContext(ctx, db.dialect.rebind(query), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: failed to count chunks: %v", ErrUnavailable, err)
	}
	return n, nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
