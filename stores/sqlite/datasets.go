// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mdhender/mdip/model"
)

// InsertDataset inserts dataset metadata and returns its assigned ID.
func (s *SQLiteStore) InsertDataset(ctx context.Context, ds *model.Dataset) (int64, error) {
	const query = `
		INSERT INTO datasets_metadata (dataset_name, category, source, last_updated, record_count, file_size_mb)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		nullString(ds.Name),
		nullString(ds.Category),
		nullString(ds.Source),
		nullString(ds.LastUpdated),
		ds.RecordCount,
		ds.FileSizeMB,
	)
	if err != nil {
		return 0, storeError("insert dataset", err)
	}
	return result.LastInsertId()
}

// ListDatasets returns datasets newest first. An empty category matches all.
func (s *SQLiteStore) ListDatasets(ctx context.Context, category string) ([]model.Dataset, error) {
	query := `SELECT id, dataset_name, category, source, last_updated, record_count, file_size_mb FROM datasets_metadata`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query datasets: %w", err)
	}
	defer rows.Close()

	var datasets []model.Dataset
	for rows.Next() {
		var ds model.Dataset
		var name, cat, src, updated sql.NullString
		var records sql.NullInt64
		var size sql.NullFloat64
		if err := rows.Scan(&ds.ID, &name, &cat, &src, &updated, &records, &size); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		ds.Name = name.String
		ds.Category = cat.String
		ds.Source = src.String
		ds.LastUpdated = updated.String
		ds.RecordCount = records.Int64
		ds.FileSizeMB = size.Float64
		datasets = append(datasets, ds)
	}
	return datasets, rows.Err()
}

// UpdateDatasetRecordCount sets record_count for one dataset.
func (s *SQLiteStore) UpdateDatasetRecordCount(ctx context.Context, id, count int64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE datasets_metadata SET record_count = ? WHERE id = ?`, count, id)
	if err != nil {
		return storeError("update dataset", err)
	}
	return expectOne(result, "update dataset", id)
}

// DeleteDataset removes one dataset.
func (s *SQLiteStore) DeleteDataset(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM datasets_metadata WHERE id = ?`, id)
	if err != nil {
		return storeError("delete dataset", err)
	}
	return expectOne(result, "delete dataset", id)
}

// DatasetSummary returns the headline numbers.
func (s *SQLiteStore) DatasetSummary(ctx context.Context) (model.DatasetSummary, error) {
	const query = `
		SELECT COUNT(*),
		       COALESCE(SUM(record_count), 0),
		       COALESCE(SUM(file_size_mb), 0.0),
		       COUNT(DISTINCT category)
		FROM datasets_metadata
	`
	var sum model.DatasetSummary
	if err := s.db.QueryRowContext(ctx, query).Scan(&sum.Total, &sum.TotalRecords, &sum.TotalSizeMB, &sum.Categories); err != nil {
		return sum, fmt.Errorf("dataset summary: %w", err)
	}
	return sum, nil
}

// DatasetsByCategory counts datasets per category.
func (s *SQLiteStore) DatasetsByCategory(ctx context.Context) ([]model.Count, error) {
	return s.counts(ctx, "datasets by category", `
		SELECT category, COUNT(*) AS count
		FROM datasets_metadata
		GROUP BY category
		ORDER BY count DESC, category
	`)
}

// DatasetsBySource counts datasets per source.
func (s *SQLiteStore) DatasetsBySource(ctx context.Context) ([]model.Count, error) {
	return s.counts(ctx, "datasets by source", `
		SELECT source, COUNT(*) AS count
		FROM datasets_metadata
		GROUP BY source
		ORDER BY count DESC, source
	`)
}

// DatasetCategories returns the distinct categories.
func (s *SQLiteStore) DatasetCategories(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, model.TableDatasets, "category")
}
