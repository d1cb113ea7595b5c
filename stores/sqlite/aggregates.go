// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mdhender/mdip/model"
)

// NoneLabel is the label used for NULL group keys.
const NoneLabel = "(none)"

// counts runs a two-column "label, count" query.
func (s *SQLiteStore) counts(ctx context.Context, op, query string, args ...any) ([]model.Count, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var counts []model.Count
	for rows.Next() {
		var label sql.NullString
		var c model.Count
		if err := rows.Scan(&label, &c.Count); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		c.Label = label.String
		if !label.Valid {
			c.Label = NoneLabel
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// distinct returns the sorted non-null values of one column.
// column must be a trusted identifier.
func (s *SQLiteStore) distinct(ctx context.Context, table model.Table, column string) ([]string, error) {
	query := fmt.Sprintf(`SELECT DISTINCT %[1]s FROM %[2]s WHERE %[1]s IS NOT NULL ORDER BY %[1]s`,
		quoteIdent(column), quoteIdent(string(table)))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("distinct %s.%s: %w", table, column, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("distinct %s.%s: scan: %w", table, column, err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// expectOne maps a zero-row update or delete to model.ErrNotFound.
func expectOne(result sql.Result, op string, key any) error {
	n, err := rowsAffected(result, op)
	if err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("%s: %v: %w", op, key, model.ErrNotFound)
	}
	return nil
}
