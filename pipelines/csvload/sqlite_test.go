// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package csvload_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/mdhender/mdip/model"
	"github.com/mdhender/mdip/pipelines/csvload"
	store "github.com/mdhender/mdip/stores/sqlite"
)

func newSQLiteLoader(t *testing.T) (*store.SQLiteStore, *csvload.Loader) {
	t.Helper()
	s, err := store.NewSQLiteStore()
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, csvload.NewLoader(s)
}

func TestLoader_SQLite(t *testing.T) {
	ctx := context.Background()
	s, l := newSQLiteLoader(t)

	users := "username,password_hash,role\nalice,$2b$12$hash,admin\nbob,$2b$12$hash,user\n"
	if _, err := l.LoadReader(ctx, "users.csv", strings.NewReader(users), model.TableUsers); err != nil {
		t.Fatalf("load users: %v", err)
	}

	incidents := "date,incident_type,severity,status,description,reported_by\n" +
		"2024-01-01,Phishing,High,Open,Fake invoice,alice\n" +
		"2024-01-02,Malware,Critical,Resolved,Trojan,mallory\n"
	result, err := l.LoadReader(ctx, "incidents.csv", strings.NewReader(incidents), model.TableCyberIncidents)
	if err != nil {
		t.Fatalf("load incidents: %v", err)
	}
	if result.RowsWritten != 2 || result.ReferencesNulled != 1 {
		t.Errorf("expected 2 written and 1 nulled, got %d and %d", result.RowsWritten, result.ReferencesNulled)
	}
	list, err := s.ListIncidents(ctx, model.IncidentFilter{})
	if err != nil {
		t.Fatalf("list incidents: %v", err)
	}
	reporters := map[string]string{}
	for _, inc := range list {
		reporters[inc.IncidentType] = inc.ReportedBy
	}
	if reporters["Phishing"] != "alice" || reporters["Malware"] != "" {
		t.Errorf("unexpected reporters %v", reporters)
	}

	tickets := "ticket_id,priority,status,subject\nT-1,High,Open,a\nT-1,Low,Open,b\nT-2,Low,Open,c\n"
	for i := 0; i < 2; i++ {
		if _, err := l.LoadReader(ctx, "tickets.csv", strings.NewReader(tickets), model.TableITTickets); err != nil {
			t.Fatalf("load tickets %d: %v", i+1, err)
		}
	}
	ts, err := s.ListTickets(ctx, model.TicketFilter{})
	if err != nil {
		t.Fatalf("list tickets: %v", err)
	}
	if len(ts) != 2 {
		t.Errorf("expected 2 tickets after two loads, got %d", len(ts))
	}

	loads, err := s.RecentLoads(ctx, 10)
	if err != nil {
		t.Fatalf("recent loads: %v", err)
	}
	if len(loads) != 4 {
		t.Errorf("expected 4 load records, got %d", len(loads))
	}
}

func TestLoader_SQLiteConstraintRollsBack(t *testing.T) {
	ctx := context.Background()
	s, l := newSQLiteLoader(t)

	users := "username,password_hash\ncarol,h1\ndave,h2\ncarol,h3\n"
	_, err := l.LoadReader(ctx, "users.csv", strings.NewReader(users), model.TableUsers)
	var cv *csvload.ErrConstraintViolation
	if !errors.As(err, &cv) {
		t.Fatalf("expected constraint violation, got %v", err)
	}

	list, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected no users after rollback, got %d", len(list))
	}
}

func TestLoader_SQLiteSchemaMismatch(t *testing.T) {
	ctx := context.Background()
	_, l := newSQLiteLoader(t)

	_, err := l.LoadReader(ctx, "datasets.csv", strings.NewReader("dataset_name,owner\nSales,alice\n"), model.TableDatasets)
	if csvload.ErrorCode(err) != csvload.ErrCodeSchemaMismatch {
		t.Errorf("expected schema mismatch, got %v", err)
	}
}

func TestLoader_SQLiteTicketIDsKeptAsText(t *testing.T) {
	ctx := context.Background()
	s, l := newSQLiteLoader(t)

	tickets := "ticket_id,priority\n1.0,High\n007,Low\nA1,Low\n1,Medium\n"
	first, err := l.LoadReader(ctx, "tickets.csv", strings.NewReader(tickets), model.TableITTickets)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	if first.RowsWritten != 4 {
		t.Errorf("expected 4 rows written, got %d", first.RowsWritten)
	}

	second, err := l.LoadReader(ctx, "tickets.csv", strings.NewReader(tickets), model.TableITTickets)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if second.RowsWritten != 0 || second.ExistingSkipped != 4 {
		t.Errorf("expected reload to write 0 and skip 4, got %d and %d", second.RowsWritten, second.ExistingSkipped)
	}

	list, err := s.ListTickets(ctx, model.TicketFilter{})
	if err != nil {
		t.Fatalf("list tickets: %v", err)
	}
	var ids []string
	for _, tk := range list {
		ids = append(ids, tk.TicketID)
	}
	slices.Sort(ids)
	if got := strings.Join(ids, ","); got != "007,1,1.0,A1" {
		t.Errorf("expected ticket ids stored as written, got %s", got)
	}
}

func TestLoader_SQLiteLeadingZeroUsername(t *testing.T) {
	ctx := context.Background()
	s, l := newSQLiteLoader(t)

	if _, err := s.InsertUser(ctx, &model.User{Username: "0123", PasswordHash: "h"}); err != nil {
		t.Fatalf("insert user: %v", err)
	}

	incidents := "incident_type,reported_by\nPhishing,0123\nMalware,123\n"
	result, err := l.LoadReader(ctx, "incidents.csv", strings.NewReader(incidents), model.TableCyberIncidents)
	if err != nil {
		t.Fatalf("load incidents: %v", err)
	}
	if result.ReferencesNulled != 1 {
		t.Errorf("expected only 123 to be nulled, got %d", result.ReferencesNulled)
	}

	list, err := s.ListIncidents(ctx, model.IncidentFilter{})
	if err != nil {
		t.Fatalf("list incidents: %v", err)
	}
	reporters := map[string]string{}
	for _, inc := range list {
		reporters[inc.IncidentType] = inc.ReportedBy
	}
	if reporters["Phishing"] != "0123" || reporters["Malware"] != "" {
		t.Errorf("unexpected reporters %v", reporters)
	}
}

func TestLoader_SQLiteNumericColumns(t *testing.T) {
	ctx := context.Background()
	s, l := newSQLiteLoader(t)

	datasets := "dataset_name,record_count,file_size_mb\nSales,0042,1.50\n"
	if _, err := l.LoadReader(ctx, "datasets.csv", strings.NewReader(datasets), model.TableDatasets); err != nil {
		t.Fatalf("load datasets: %v", err)
	}

	summary, err := s.DatasetSummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.TotalRecords != 42 || summary.TotalSizeMB != 1.5 {
		t.Errorf("expected numeric columns to be stored as numbers, got %+v", summary)
	}
}

func TestLoader_SQLiteConcurrentTicketLoads(t *testing.T) {
	ctx := context.Background()
	s, l := newSQLiteLoader(t)

	tickets := "ticket_id,priority\nT-1,High\nT-2,Low\nT-3,Low\n"
	const loads = 2
	var wg sync.WaitGroup
	results := make([]*csvload.LoadResult, loads)
	errs := make([]error, loads)
	for i := range loads {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = l.LoadReader(ctx, "tickets.csv", strings.NewReader(tickets), model.TableITTickets)
		}()
	}
	wg.Wait()

	written, skipped := 0, 0
	for i := range loads {
		if errs[i] != nil {
			t.Fatalf("load %d: %v", i+1, errs[i])
		}
		written += results[i].RowsWritten
		skipped += results[i].ExistingSkipped
		if n := results[i].RowsWritten; n != 0 && n != 3 {
			t.Errorf("load %d: expected all or nothing, wrote %d", i+1, n)
		}
	}
	if written != 3 || skipped != 3 {
		t.Errorf("expected one load to write 3 and the other to skip 3, got written=%d skipped=%d", written, skipped)
	}

	list, err := s.ListTickets(ctx, model.TicketFilter{})
	if err != nil {
		t.Fatalf("list tickets: %v", err)
	}
	if len(list) != 3 {
		t.Errorf("expected 3 tickets, got %d", len(list))
	}
}
