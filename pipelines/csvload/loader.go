// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package csvload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mdhender/mdip/model"
	"github.com/spf13/afero"
)

// Store defines the store operations needed by Loader.
type Store interface {
	TableColumns(ctx context.Context, table model.Table) ([]string, error)
	ReferenceValues(ctx context.Context, table model.Table, column string) ([]string, error)
	AppendRows(ctx context.Context, table model.Table, columns []string, rows [][]any) (int, error)
	InsertLoadRecord(ctx context.Context, rec *model.LoadRecord) error
}

// Loader reads CSV sources, reconciles them against the store, and appends them.
// Loads into the same table are serialized.
type Loader struct {
	store Store
	fs    afero.Fs
	now   func() time.Time

	mu     sync.Mutex
	tables map[model.Table]*sync.Mutex
}

// NewLoader creates a new Loader reading from the OS filesystem.
func NewLoader(store Store) *Loader {
	return &Loader{
		store:  store,
		fs:     afero.NewOsFs(),
		now:    time.Now,
		tables: make(map[model.Table]*sync.Mutex),
	}
}

// SetFS sets the filesystem for testing.
func (l *Loader) SetFS(fs afero.Fs) {
	l.fs = fs
}

// LoadResult reports what a load did.
type LoadResult struct {
	ID                string
	Table             model.Table
	Source            string
	RowsRead          int
	RowsWritten       int
	DuplicatesDropped int
	ExistingSkipped   int
	ReferencesNulled  int
	SourceMissing     bool
	Messages          []string
}

func (r *LoadResult) String() string {
	if r.SourceMissing {
		return fmt.Sprintf("%s: source %s not found, nothing loaded", r.Table, r.Source)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: wrote %d of %d rows from %s", r.Table, r.RowsWritten, r.RowsRead, r.Source)
	var notes []string
	if r.DuplicatesDropped > 0 {
		notes = append(notes, fmt.Sprintf("%d duplicate(s) dropped", r.DuplicatesDropped))
	}
	if r.ExistingSkipped > 0 {
		notes = append(notes, fmt.Sprintf("%d already present", r.ExistingSkipped))
	}
	if r.ReferencesNulled > 0 {
		notes = append(notes, fmt.Sprintf("%d unresolved reference(s) nulled", r.ReferencesNulled))
	}
	if len(notes) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(notes, ", "))
		sb.WriteString(")")
	}
	return sb.String()
}

func (r *LoadResult) note(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("load: %s: %s", r.Table, msg)
	r.Messages = append(r.Messages, msg)
}

// Load reads the CSV file at path and appends it to table.
// A missing file is not an error: the result has SourceMissing set and nothing is written.
func (l *Loader) Load(ctx context.Context, path string, table model.Table) (*LoadResult, error) {
	result := l.newResult(table, path)
	if err := checkTable(table); err != nil {
		l.record(ctx, result, err)
		return result, err
	}

	fp, err := l.fs.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		result.SourceMissing = true
		result.note("%v", &ErrSourceNotFound{Path: path})
		l.record(ctx, result, nil)
		return result, nil
	} else if err != nil {
		err = &ErrReadSource{Path: path, Err: err}
		l.record(ctx, result, err)
		return result, err
	}
	defer fp.Close()

	err = l.load(ctx, result, fp)
	l.record(ctx, result, err)
	return result, err
}

// LoadReader reads a CSV stream and appends it to table.
// The source name is used only for reporting.
func (l *Loader) LoadReader(ctx context.Context, source string, r io.Reader, table model.Table) (*LoadResult, error) {
	result := l.newResult(table, source)
	if err := checkTable(table); err != nil {
		l.record(ctx, result, err)
		return result, err
	}
	err := l.load(ctx, result, r)
	l.record(ctx, result, err)
	return result, err
}

func (l *Loader) newResult(table model.Table, source string) *LoadResult {
	return &LoadResult{
		ID:     uuid.NewString(),
		Table:  table,
		Source: source,
	}
}

func checkTable(table model.Table) error {
	if !slices.Contains(model.LoadableTables, table) {
		return &ErrUnknownTable{Table: table}
	}
	return nil
}

func (l *Loader) load(ctx context.Context, result *LoadResult, r io.Reader) error {
	batch, err := ReadBatch(r, result.Table, result.Source)
	if err != nil {
		return &ErrReadSource{Path: result.Source, Err: err}
	}
	result.RowsRead = len(batch.Rows)

	// reference sets must not change between reading them and appending
	unlock := l.lock(result.Table)
	defer unlock()

	if err := l.reconcile(ctx, result, batch); err != nil {
		return err
	}

	if len(batch.Rows) == 0 {
		result.note("no rows to load from %s", result.Source)
		return nil
	}

	if err := l.checkColumns(ctx, batch); err != nil {
		return err
	}

	written, err := l.store.AppendRows(ctx, batch.Table, batch.Columns, batch.Rows)
	if err != nil {
		if errors.Is(err, model.ErrConstraint) {
			return &ErrConstraintViolation{Table: batch.Table, Err: err}
		}
		return &ErrDatabase{Op: "append " + string(batch.Table), Err: err}
	}
	result.RowsWritten = written
	result.note("loaded %d rows from %s", written, result.Source)
	return nil
}

// reconcile applies the table's rule to the whole batch.
func (l *Loader) reconcile(ctx context.Context, result *LoadResult, batch *Batch) error {
	rule := RuleFor(batch.Table, batch.Columns)
	if rule.Kind == RuleNone {
		return nil
	}
	col := batch.ColumnIndex(rule.Column)

	// a failed lookup is treated as an empty set
	refs := NewReferenceSet()
	values, err := l.store.ReferenceValues(ctx, rule.RefTable, rule.RefColumn)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		result.note("%v", &ErrReferenceQuery{Table: rule.RefTable, Column: rule.RefColumn, Err: err})
	} else {
		refs = NewReferenceSet(values...)
	}

	switch rule.Kind {
	case RuleNullUnresolved:
		result.ReferencesNulled = NullUnresolved(batch, col, refs)
		if result.ReferencesNulled > 0 {
			result.note("set %d %s value(s) not found in %s.%s to null",
				result.ReferencesNulled, rule.Column, rule.RefTable, rule.RefColumn)
		}
	case RuleDedupAndSkipExisting:
		result.DuplicatesDropped, result.ExistingSkipped = DedupAndSkipExisting(batch, col, refs)
		if result.DuplicatesDropped > 0 {
			result.note("removed %d row(s) with a duplicate %s", result.DuplicatesDropped, rule.Column)
		}
		if result.ExistingSkipped > 0 {
			result.note("skipped %d row(s) whose %s is already in %s",
				result.ExistingSkipped, rule.Column, rule.RefTable)
		}
	}
	return nil
}

// checkColumns verifies that every batch column exists in the target table.
func (l *Loader) checkColumns(ctx context.Context, batch *Batch) error {
	columns, err := l.store.TableColumns(ctx, batch.Table)
	if err != nil {
		return &ErrDatabase{Op: "table info " + string(batch.Table), Err: err}
	} else if len(columns) == 0 {
		return &ErrUnknownTable{Table: batch.Table}
	}
	var missing []string
	for _, c := range batch.Columns {
		if !slices.Contains(columns, c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &ErrSchemaMismatch{Table: batch.Table, Columns: missing}
	}
	return nil
}

func (l *Loader) lock(table model.Table) func() {
	l.mu.Lock()
	mu, ok := l.tables[table]
	if !ok {
		mu = &sync.Mutex{}
		l.tables[table] = mu
	}
	l.mu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// record writes the load history entry. Failures are logged, never returned.
func (l *Loader) record(ctx context.Context, result *LoadResult, loadErr error) {
	rec := &model.LoadRecord{
		ID:                result.ID,
		Table:             result.Table,
		Source:            result.Source,
		RowsRead:          result.RowsRead,
		RowsWritten:       result.RowsWritten,
		DuplicatesDropped: result.DuplicatesDropped,
		ExistingSkipped:   result.ExistingSkipped,
		ReferencesNulled:  result.ReferencesNulled,
		Message:           strings.Join(result.Messages, "; "),
		CreatedAt:         l.now().UTC(),
	}
	switch {
	case loadErr != nil:
		rec.Status = model.LoadStatusFailed
		rec.Message = ErrorCode(loadErr) + ": " + loadErr.Error()
		log.Printf("load: %s: %v", result.Table, loadErr)
	case result.SourceMissing:
		rec.Status = model.LoadStatusMissing
	case result.RowsWritten == 0:
		rec.Status = model.LoadStatusEmpty
	default:
		rec.Status = model.LoadStatusLoaded
	}

	if err := l.store.InsertLoadRecord(context.WithoutCancel(ctx), rec); err != nil {
		log.Printf("load: %s: record history: %v", result.Table, err)
	}
}
