// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package csvload

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mdhender/mdip/model"
)

// ErrSourceNotFound is returned when the CSV source does not exist.
// Load recovers from it and reports an empty result.
type ErrSourceNotFound struct {
	Path string
}

func (e *ErrSourceNotFound) Error() string {
	return fmt.Sprintf("source not found: %s", e.Path)
}

// ErrReadSource is returned when the CSV source cannot be read or parsed.
type ErrReadSource struct {
	Path string
	Err  error
}

func (e *ErrReadSource) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ErrReadSource) Unwrap() error {
	return e.Err
}

// ErrReferenceQuery is returned when a reference set cannot be read.
// Load recovers from it by treating the set as empty.
type ErrReferenceQuery struct {
	Table  model.Table
	Column string
	Err    error
}

func (e *ErrReferenceQuery) Error() string {
	return fmt.Sprintf("reference query %s.%s: %v", e.Table, e.Column, e.Err)
}

func (e *ErrReferenceQuery) Unwrap() error {
	return e.Err
}

// ErrSchemaMismatch is returned when the batch names columns the target table does not have.
type ErrSchemaMismatch struct {
	Table   model.Table
	Columns []string
}

func (e *ErrSchemaMismatch) Error() string {
	return fmt.Sprintf("table %s has no column(s): %s", e.Table, strings.Join(e.Columns, ", "))
}

// ErrConstraintViolation is returned when the store rejects the append.
// No rows from the batch are written.
type ErrConstraintViolation struct {
	Table model.Table
	Err   error
}

func (e *ErrConstraintViolation) Error() string {
	return fmt.Sprintf("constraint violation in %s: %v", e.Table, e.Err)
}

func (e *ErrConstraintViolation) Unwrap() error {
	return e.Err
}

// ErrUnknownTable is returned when the target table cannot be loaded.
type ErrUnknownTable struct {
	Table model.Table
}

func (e *ErrUnknownTable) Error() string {
	return fmt.Sprintf("unknown table %q", string(e.Table))
}

// ErrDatabase is returned when any other store operation fails.
type ErrDatabase struct {
	Op  string
	Err error
}

func (e *ErrDatabase) Error() string {
	return fmt.Sprintf("database %s: %v", e.Op, e.Err)
}

func (e *ErrDatabase) Unwrap() error {
	return e.Err
}

// Error code constants for load history.
const (
	ErrCodeSourceNotFound      = "SOURCE_NOT_FOUND"
	ErrCodeReadSource          = "READ_SOURCE"
	ErrCodeReferenceQuery      = "REFERENCE_QUERY"
	ErrCodeSchemaMismatch      = "SCHEMA_MISMATCH"
	ErrCodeConstraintViolation = "CONSTRAINT_VIOLATION"
	ErrCodeUnknownTable        = "UNKNOWN_TABLE"
	ErrCodeDatabase            = "DATABASE"
	ErrCodeUnknown             = "UNKNOWN"
)

// ErrorCode returns the error code string for a given error.
func ErrorCode(err error) string {
	var (
		notFound   *ErrSourceNotFound
		read       *ErrReadSource
		reference  *ErrReferenceQuery
		schema     *ErrSchemaMismatch
		constraint *ErrConstraintViolation
		unknown    *ErrUnknownTable
		database   *ErrDatabase
	)
	switch {
	case errors.As(err, &notFound):
		return ErrCodeSourceNotFound
	case errors.As(err, &read):
		return ErrCodeReadSource
	case errors.As(err, &reference):
		return ErrCodeReferenceQuery
	case errors.As(err, &schema):
		return ErrCodeSchemaMismatch
	case errors.As(err, &constraint):
		return ErrCodeConstraintViolation
	case errors.As(err, &unknown):
		return ErrCodeUnknownTable
	case errors.As(err, &database):
		return ErrCodeDatabase
	default:
		return ErrCodeUnknown
	}
}
