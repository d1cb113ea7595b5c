// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package csvload_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mdhender/mdip/model"
	"github.com/mdhender/mdip/pipelines/csvload"
	"github.com/spf13/afero"
)

// mockStore implements csvload.Store for testing.
type mockStore struct {
	columns map[model.Table][]string
	rows    map[model.Table][]map[string]any
	history []*model.LoadRecord

	refErr    error
	appendErr error
	appends   int
}

func newMockStore() *mockStore {
	return &mockStore{
		columns: map[model.Table][]string{
			model.TableUsers:          {"id", "username", "password_hash", "role"},
			model.TableCyberIncidents: {"id", "date", "incident_type", "severity", "status", "description", "reported_by"},
			model.TableDatasets:       {"id", "dataset_name", "category", "source", "last_updated", "record_count", "file_size_mb"},
			model.TableITTickets:      {"id", "ticket_id", "priority", "status", "category", "subject", "description", "created_date", "resolved_date", "assigned_to"},
		},
		rows: make(map[model.Table][]map[string]any),
	}
}

func (m *mockStore) TableColumns(_ context.Context, table model.Table) ([]string, error) {
	return m.columns[table], nil
}

func (m *mockStore) ReferenceValues(_ context.Context, table model.Table, column string) ([]string, error) {
	if m.refErr != nil {
		return nil, m.refErr
	}
	var values []string
	for _, row := range m.rows[table] {
		if v := row[column]; v != nil {
			values = append(values, fmt.Sprint(v))
		}
	}
	return values, nil
}

func (m *mockStore) AppendRows(_ context.Context, table model.Table, columns []string, rows [][]any) (int, error) {
	m.appends++
	if m.appendErr != nil {
		return 0, m.appendErr
	}
	for _, row := range rows {
		r := make(map[string]any, len(columns))
		for i, c := range columns {
			r[c] = row[i]
		}
		m.rows[table] = append(m.rows[table], r)
	}
	return len(rows), nil
}

func (m *mockStore) InsertLoadRecord(_ context.Context, rec *model.LoadRecord) error {
	m.history = append(m.history, rec)
	return nil
}

func (m *mockStore) addUser(username string) {
	m.rows[model.TableUsers] = append(m.rows[model.TableUsers], map[string]any{"username": username})
}

func newLoader(t *testing.T, store *mockStore, files map[string]string) *csvload.Loader {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	l := csvload.NewLoader(store)
	l.SetFS(fs)
	return l
}

func TestLoader_TicketReloadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	l := newLoader(t, store, map[string]string{
		"/data/it_tickets.csv": "ticket_id,priority,status\nT-1,High,Open\nT-2,Low,Resolved\nT-3,Medium,Open\n",
	})

	first, err := l.Load(ctx, "/data/it_tickets.csv", model.TableITTickets)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	if first.RowsWritten != 3 {
		t.Errorf("expected 3 rows written, got %d", first.RowsWritten)
	}

	second, err := l.Load(ctx, "/data/it_tickets.csv", model.TableITTickets)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if second.RowsWritten != 0 {
		t.Errorf("expected 0 rows written on reload, got %d", second.RowsWritten)
	}
	if second.ExistingSkipped != 3 {
		t.Errorf("expected 3 existing skipped, got %d", second.ExistingSkipped)
	}
	if got := len(store.rows[model.TableITTickets]); got != 3 {
		t.Errorf("expected table to hold 3 rows, got %d", got)
	}
	if store.appends != 1 {
		t.Errorf("expected no append for an empty batch, got %d appends", store.appends)
	}
}

func TestLoader_NoOrphanReferences(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	store.addUser("alice")
	store.addUser("bob")
	l := newLoader(t, store, map[string]string{
		"incidents.csv": "date,incident_type,reported_by\n2024-01-01,Phishing,alice\n2024-01-02,Malware,mallory\n2024-01-03,DDoS, bob \n2024-01-04,Misconfiguration,\n",
	})

	result, err := l.Load(ctx, "incidents.csv", model.TableCyberIncidents)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if result.RowsWritten != 4 {
		t.Errorf("expected all 4 rows written, got %d", result.RowsWritten)
	}
	if result.ReferencesNulled != 1 {
		t.Errorf("expected 1 reference nulled, got %d", result.ReferencesNulled)
	}

	want := []any{"alice", nil, "bob", nil}
	for i, row := range store.rows[model.TableCyberIncidents] {
		if row["reported_by"] != want[i] {
			t.Errorf("row %d: expected reported_by %#v, got %#v", i, want[i], row["reported_by"])
		}
	}
}

func TestLoader_EmptyReferenceSetNullsAll(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	l := newLoader(t, store, map[string]string{
		"incidents.csv": "incident_type,reported_by\nPhishing,alice\nMalware,bob\n",
	})

	result, err := l.Load(ctx, "incidents.csv", model.TableCyberIncidents)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if result.RowsWritten != 2 || result.ReferencesNulled != 2 {
		t.Errorf("expected 2 written and 2 nulled, got %d and %d", result.RowsWritten, result.ReferencesNulled)
	}
	for i, row := range store.rows[model.TableCyberIncidents] {
		if row["reported_by"] != nil {
			t.Errorf("row %d: expected null reported_by, got %#v", i, row["reported_by"])
		}
	}
}

func TestLoader_ReferenceQueryFailureNullsAll(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	store.addUser("alice")
	store.refErr = errors.New("no such table: users")
	l := newLoader(t, store, map[string]string{
		"incidents.csv": "incident_type,reported_by\nPhishing,alice\n",
	})

	result, err := l.Load(ctx, "incidents.csv", model.TableCyberIncidents)
	if err != nil {
		t.Fatalf("expected reference failure to be recovered, got %v", err)
	}
	if result.RowsWritten != 1 || result.ReferencesNulled != 1 {
		t.Errorf("expected 1 written and 1 nulled, got %d and %d", result.RowsWritten, result.ReferencesNulled)
	}
	if !strings.Contains(strings.Join(result.Messages, "\n"), "reference query users.username") {
		t.Errorf("expected a reference query diagnostic, got %q", result.Messages)
	}
}

func TestLoader_InBatchDuplicates(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	l := newLoader(t, store, map[string]string{
		"tickets.csv": "ticket_id,subject\nT-100,first\nT-100,second\n",
	})

	result, err := l.Load(ctx, "tickets.csv", model.TableITTickets)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if result.RowsWritten != 1 || result.DuplicatesDropped != 1 {
		t.Errorf("expected 1 written and 1 duplicate, got %d and %d", result.RowsWritten, result.DuplicatesDropped)
	}
	rows := store.rows[model.TableITTickets]
	if len(rows) != 1 || rows[0]["subject"] != "first" {
		t.Errorf("expected only the first T-100 row, got %v", rows)
	}
	if !strings.Contains(strings.Join(result.Messages, "\n"), "1 row(s) with a duplicate ticket_id") {
		t.Errorf("expected a duplicate diagnostic, got %q", result.Messages)
	}
}

func TestLoader_SkipsPersistedTickets(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	store.rows[model.TableITTickets] = []map[string]any{{"ticket_id": "T-200"}}
	l := newLoader(t, store, map[string]string{
		"tickets.csv": "ticket_id,subject\nT-200,again\nT-201,new\n",
	})

	result, err := l.Load(ctx, "tickets.csv", model.TableITTickets)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if result.RowsWritten != 1 || result.ExistingSkipped != 1 {
		t.Errorf("expected 1 written and 1 skipped, got %d and %d", result.RowsWritten, result.ExistingSkipped)
	}
	var t200 int
	for _, row := range store.rows[model.TableITTickets] {
		if row["ticket_id"] == "T-200" {
			t200++
		}
	}
	if t200 != 1 {
		t.Errorf("expected T-200 to appear once, got %d", t200)
	}
}

func TestLoader_MissingSource(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	l := newLoader(t, store, nil)

	result, err := l.Load(ctx, "/data/nope.csv", model.TableDatasets)
	if err != nil {
		t.Fatalf("expected no error for missing source, got %v", err)
	}
	if !result.SourceMissing {
		t.Error("expected SourceMissing")
	}
	if result.RowsRead != 0 || result.RowsWritten != 0 {
		t.Errorf("expected zero counts, got %+v", result)
	}
	if store.appends != 0 {
		t.Errorf("expected no writes, got %d", store.appends)
	}
	if len(store.history) != 1 || store.history[0].Status != model.LoadStatusMissing {
		t.Errorf("expected a missing load record, got %+v", store.history)
	}
	if !strings.Contains(result.String(), "not found") {
		t.Errorf("expected report to name the missing source, got %q", result.String())
	}
}

func TestLoader_DuplicateThenNew(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	l := newLoader(t, store, map[string]string{
		"tickets.csv": "ticket_id\nA1\nA1\nA2\n",
	})

	result, err := l.Load(ctx, "tickets.csv", model.TableITTickets)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if result.RowsRead != 3 || result.RowsWritten != 2 {
		t.Errorf("expected 3 read and 2 written, got %d and %d", result.RowsRead, result.RowsWritten)
	}
	var ids []string
	for _, row := range store.rows[model.TableITTickets] {
		ids = append(ids, fmt.Sprint(row["ticket_id"]))
	}
	if strings.Join(ids, ",") != "A1,A2" {
		t.Errorf("expected ids A1,A2, got %v", ids)
	}
	if len(store.history) != 1 || store.history[0].Status != model.LoadStatusLoaded || store.history[0].DuplicatesDropped != 1 {
		t.Errorf("unexpected history %+v", store.history)
	}
}

func TestLoader_SchemaMismatch(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	l := newLoader(t, store, map[string]string{
		"datasets.csv": "dataset_name,owner,colour\nSales,alice,red\n",
	})

	_, err := l.Load(ctx, "datasets.csv", model.TableDatasets)
	var mismatch *csvload.ErrSchemaMismatch
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
	if strings.Join(mismatch.Columns, ",") != "owner,colour" {
		t.Errorf("expected unknown columns owner,colour, got %v", mismatch.Columns)
	}
	if store.appends != 0 {
		t.Errorf("expected no writes, got %d", store.appends)
	}
	if len(store.history) != 1 || store.history[0].Status != model.LoadStatusFailed ||
		!strings.HasPrefix(store.history[0].Message, csvload.ErrCodeSchemaMismatch) {
		t.Errorf("expected a failed load record, got %+v", store.history)
	}
}

func TestLoader_ConstraintViolation(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	store.appendErr = fmt.Errorf("append users: row 2: %w", model.ErrConstraint)
	l := newLoader(t, store, map[string]string{
		"users.csv": "username,password_hash\nalice,x\nalice,y\n",
	})

	result, err := l.Load(ctx, "users.csv", model.TableUsers)
	var cv *csvload.ErrConstraintViolation
	if !errors.As(err, &cv) {
		t.Fatalf("expected constraint violation, got %v", err)
	}
	if csvload.ErrorCode(err) != csvload.ErrCodeConstraintViolation {
		t.Errorf("expected code %s, got %s", csvload.ErrCodeConstraintViolation, csvload.ErrorCode(err))
	}
	if result.RowsWritten != 0 {
		t.Errorf("expected 0 rows written, got %d", result.RowsWritten)
	}
}

func TestLoader_UnknownTable(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	l := newLoader(t, store, map[string]string{"x.csv": "a\n1\n"})

	_, err := l.Load(ctx, "x.csv", model.Table("sqlite_master"))
	var unknown *csvload.ErrUnknownTable
	if !errors.As(err, &unknown) {
		t.Fatalf("expected unknown table, got %v", err)
	}
}

func TestLoader_MalformedSource(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	l := newLoader(t, store, nil)

	_, err := l.LoadReader(ctx, "upload.csv", strings.NewReader("a,b\n1\n"), model.TableDatasets)
	if csvload.ErrorCode(err) != csvload.ErrCodeReadSource {
		t.Errorf("expected read error, got %v", err)
	}
}

func TestLoader_HeaderOnlySource(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	l := newLoader(t, store, nil)

	result, err := l.LoadReader(ctx, "upload.csv", strings.NewReader("dataset_name,category\n"), model.TableDatasets)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if result.RowsWritten != 0 || store.appends != 0 {
		t.Errorf("expected nothing written, got %d rows and %d appends", result.RowsWritten, store.appends)
	}
	if len(store.history) != 1 || store.history[0].Status != model.LoadStatusEmpty {
		t.Errorf("expected an empty load record, got %+v", store.history)
	}
}

func TestLoadResult_String(t *testing.T) {
	r := &csvload.LoadResult{
		Table:             model.TableITTickets,
		Source:            "it_tickets.csv",
		RowsRead:          5,
		RowsWritten:       3,
		DuplicatesDropped: 1,
		ExistingSkipped:   1,
	}
	want := "it_tickets: wrote 3 of 5 rows from it_tickets.csv (1 duplicate(s) dropped, 1 already present)"
	if got := r.String(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
