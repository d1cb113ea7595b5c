// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mdhender/mdip/model"
)

// TableColumns returns the column names of table in declaration order.
// A table that does not exist has no columns.
func (s *SQLiteStore) TableColumns(ctx context.Context, table model.Table) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?) ORDER BY cid`, string(table))
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("table info %s: scan: %w", table, err)
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

// ReferenceValues returns every non-null value of table.column as text.
// It fails if the table or column does not exist.
func (s *SQLiteStore) ReferenceValues(ctx context.Context, table model.Table, column string) ([]string, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s`, quoteIdent(column), quoteIdent(string(table)))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reference %s.%s: %w", table, column, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("reference %s.%s: scan: %w", table, column, err)
		}
		if v.Valid {
			values = append(values, v.String)
		}
	}
	return values, rows.Err()
}

// AppendRows inserts rows into table in a single transaction and returns the
// number of rows written. Each row holds one value per column; values are
// nil or the cell text, and column affinity decides the stored type.
// Nothing is written if any row fails.
// Column names must already be validated against TableColumns.
func (s *SQLiteStore) AppendRows(ctx context.Context, table model.Table, columns []string, rows [][]any) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("append %s: no columns", table)
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		quoteIdent(string(table)), strings.Join(quoted, ", "), placeholders)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("append %s: begin: %w", table, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, storeError(fmt.Sprintf("append %s: prepare", table), err)
	}
	defer stmt.Close()

	for n, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("append %s: row %d: got %d values, want %d", table, n+1, len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, storeError(fmt.Sprintf("append %s: row %d", table, n+1), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, storeError(fmt.Sprintf("append %s: commit", table), err)
	}
	return len(rows), nil
}

// InsertLoadRecord records one load attempt.
func (s *SQLiteStore) InsertLoadRecord(ctx context.Context, rec *model.LoadRecord) error {
	const query = `
		INSERT INTO load_history (
			id, table_name, source, rows_read, rows_written,
			duplicates_dropped, existing_skipped, references_nulled,
			status, message, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		string(rec.Table),
		rec.Source,
		rec.RowsRead,
		rec.RowsWritten,
		rec.DuplicatesDropped,
		rec.ExistingSkipped,
		rec.ReferencesNulled,
		rec.Status,
		nullString(rec.Message),
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return storeError("insert load record", err)
	}
	return nil
}

// RecentLoads returns up to limit load records, newest first.
func (s *SQLiteStore) RecentLoads(ctx context.Context, limit int) ([]model.LoadRecord, error) {
	const query = `
		SELECT id, table_name, source, rows_read, rows_written,
		       duplicates_dropped, existing_skipped, references_nulled,
		       status, message, created_at
		FROM load_history
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query load history: %w", err)
	}
	defer rows.Close()

	var records []model.LoadRecord
	for rows.Next() {
		var rec model.LoadRecord
		var table, createdAt string
		var message sql.NullString
		if err := rows.Scan(
			&rec.ID,
			&table,
			&rec.Source,
			&rec.RowsRead,
			&rec.RowsWritten,
			&rec.DuplicatesDropped,
			&rec.ExistingSkipped,
			&rec.ReferencesNulled,
			&rec.Status,
			&message,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan load record: %w", err)
		}
		rec.Table = model.Table(table)
		rec.Message = message.String
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			rec.CreatedAt = t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
