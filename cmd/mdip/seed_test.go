// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mdhender/mdip/model"
	store "github.com/mdhender/mdip/stores/sqlite"
	"github.com/mdhender/mdip/web/auth"
)

func TestSeed(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewSQLiteStore()
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()

	dir := t.TempDir()
	hash, err := auth.HashPasswordWithCost("Secret1", auth.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("users.txt", "alice,"+hash+"\nnot a user line\n")
	write("cyber_incidents.csv", "date,incident_type,severity,status,description,reported_by\n"+
		"2024-01-02,Phishing,High,Open,mail,alice\n"+
		"2024-01-03,Malware,Low,Closed,virus,bob\n")
	write("it_tickets.csv", "ticket_id,priority,status,category,subject\n"+
		"T-1,High,Open,Network,vpn\n"+
		"T-1,Low,Open,Network,vpn again\n"+
		"T-2,Low,Closed,Hardware,mouse\n")
	// datasets_metadata.csv is missing and must not count as a failure

	failed := seed(ctx, s, dir, filepath.Join(dir, "users.txt"), true)
	if failed != 0 {
		t.Errorf("expected no failed steps, got %d", failed)
	}

	stats, err := s.TableStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := map[model.Table]int64{
		model.TableUsers:          1,
		model.TableCyberIncidents: 2,
		model.TableDatasets:       0,
		model.TableITTickets:      2,
		model.TableLoadHistory:    3,
	}
	for table, n := range want {
		if stats[table] != n {
			t.Errorf("%s: expected %d rows, got %d", table, n, stats[table])
		}
	}

	incidents, err := s.ListIncidents(ctx, model.IncidentFilter{})
	if err != nil {
		t.Fatalf("list incidents: %v", err)
	}
	for _, inc := range incidents {
		if inc.IncidentType == "Malware" && inc.ReportedBy != "" {
			t.Errorf("expected unknown reporter to be nulled, got %q", inc.ReportedBy)
		}
	}
}

func TestSeed_ContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewSQLiteStore()
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "cyber_incidents.csv"), []byte("date,no_such_column\n2024-01-01,x\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "it_tickets.csv"), []byte("ticket_id,priority\nT-9,High\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	failed := seed(ctx, s, dir, filepath.Join(dir, "missing-users.txt"), true)
	if failed != 2 {
		t.Errorf("expected users and incidents to fail, got %d failure(s)", failed)
	}

	tickets, err := s.ListTickets(ctx, model.TicketFilter{})
	if err != nil {
		t.Fatalf("list tickets: %v", err)
	}
	if len(tickets) != 1 || tickets[0].TicketID != "T-9" {
		t.Errorf("expected tickets to load after earlier failures, got %+v", tickets)
	}
}
