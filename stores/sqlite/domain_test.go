// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/mdhender/mdip/model"
	store "github.com/mdhender/mdip/stores/sqlite"
)

func TestIncidents(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	seed := []model.Incident{
		{Date: "2024-01-05", IncidentType: "Phishing", Severity: "High", Status: "Open", Description: "a", ReportedBy: "alice"},
		{Date: "2024-01-20", IncidentType: "Phishing", Severity: "Low", Status: "Resolved", Description: "b"},
		{Date: "2024-02-02", IncidentType: "Malware", Severity: "High", Status: "Resolved", Description: "c"},
		{Date: "2024-02-03", IncidentType: "Phishing", Severity: "High", Status: "Open", Description: "d"},
	}
	var ids []int64
	for i := range seed {
		id, err := s.InsertIncident(ctx, &seed[i])
		if err != nil {
			t.Fatalf("insert incident: %v", err)
		}
		ids = append(ids, id)
	}

	all, err := s.ListIncidents(ctx, model.IncidentFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 4 || all[0].ID != ids[3] {
		t.Errorf("expected 4 incidents newest first, got %+v", all)
	}
	if all[3].ReportedBy != "alice" || all[2].ReportedBy != "" {
		t.Errorf("unexpected reporters %q, %q", all[3].ReportedBy, all[2].ReportedBy)
	}

	high, err := s.ListIncidents(ctx, model.IncidentFilter{Severity: "High", Status: "Open"})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(high) != 2 {
		t.Errorf("expected 2 open high incidents, got %d", len(high))
	}

	sum, err := s.IncidentSummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum != (model.IncidentSummary{Total: 4, HighSeverity: 3, Open: 2, Resolved: 2}) {
		t.Errorf("unexpected summary %+v", sum)
	}

	byType, err := s.IncidentsByType(ctx)
	if err != nil {
		t.Fatalf("by type: %v", err)
	}
	if len(byType) != 2 || byType[0] != (model.Count{Label: "Phishing", Count: 3}) {
		t.Errorf("unexpected counts by type %+v", byType)
	}

	many, err := s.IncidentTypesWithManyCases(ctx, 2)
	if err != nil {
		t.Fatalf("many cases: %v", err)
	}
	if len(many) != 1 || many[0].Label != "Phishing" {
		t.Errorf("expected only Phishing, got %+v", many)
	}

	highByStatus, err := s.HighSeverityByStatus(ctx)
	if err != nil {
		t.Fatalf("high by status: %v", err)
	}
	if len(highByStatus) != 2 || highByStatus[0] != (model.Count{Label: "Open", Count: 2}) {
		t.Errorf("unexpected high severity counts %+v", highByStatus)
	}

	months, err := s.IncidentsByMonth(ctx)
	if err != nil {
		t.Fatalf("by month: %v", err)
	}
	if len(months) != 2 || months[0] != (model.Count{Label: "2024-01", Count: 2}) {
		t.Errorf("unexpected monthly counts %+v", months)
	}

	if err := s.UpdateIncidentStatus(ctx, ids[0], "Resolved"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if err := s.UpdateIncidentStatus(ctx, 9999, "Resolved"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteIncident(ctx, ids[1]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteIncident(ctx, ids[1]); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}

	byStatus, err := s.IncidentsByStatus(ctx)
	if err != nil {
		t.Fatalf("by status: %v", err)
	}
	if len(byStatus) != 2 || byStatus[0] != (model.Count{Label: "Resolved", Count: 2}) {
		t.Errorf("unexpected status counts %+v", byStatus)
	}

	severities, statuses, types, err := s.IncidentFilterOptions(ctx)
	if err != nil {
		t.Fatalf("filter options: %v", err)
	}
	if len(severities) != 1 || len(statuses) != 2 || len(types) != 2 {
		t.Errorf("unexpected options %v %v %v", severities, statuses, types)
	}
}

func TestDatasets(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	seed := []model.Dataset{
		{Name: "Sales", Category: "Finance", Source: "ERP", LastUpdated: "2024-03-01", RecordCount: 1000, FileSizeMB: 1.5},
		{Name: "Leads", Category: "Marketing", Source: "CRM", LastUpdated: "2024-03-02", RecordCount: 250, FileSizeMB: 0.5},
		{Name: "Budget", Category: "Finance", Source: "ERP", LastUpdated: "2024-03-03", RecordCount: 50, FileSizeMB: 0.25},
	}
	var ids []int64
	for i := range seed {
		id, err := s.InsertDataset(ctx, &seed[i])
		if err != nil {
			t.Fatalf("insert dataset: %v", err)
		}
		ids = append(ids, id)
	}

	finance, err := s.ListDatasets(ctx, "Finance")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(finance) != 2 || finance[0].Name != "Budget" {
		t.Errorf("expected 2 finance datasets newest first, got %+v", finance)
	}

	sum, err := s.DatasetSummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Total != 3 || sum.TotalRecords != 1300 || sum.TotalSizeMB != 2.25 || sum.Categories != 2 {
		t.Errorf("unexpected summary %+v", sum)
	}

	if err := s.UpdateDatasetRecordCount(ctx, ids[1], 300); err != nil {
		t.Fatalf("update record count: %v", err)
	}
	if err := s.DeleteDataset(ctx, ids[2]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.UpdateDatasetRecordCount(ctx, ids[2], 1); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	bySource, err := s.DatasetsBySource(ctx)
	if err != nil {
		t.Fatalf("by source: %v", err)
	}
	if len(bySource) != 2 || bySource[0] != (model.Count{Label: "CRM", Count: 1}) {
		t.Errorf("unexpected source counts %+v", bySource)
	}

	cats, err := s.DatasetCategories(ctx)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != 2 || cats[0] != "Finance" {
		t.Errorf("unexpected categories %v", cats)
	}
}

func TestTickets(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	seed := []model.Ticket{
		{TicketID: "T-1", Priority: "High", Status: "Resolved", Category: "Network", Subject: "VPN", CreatedDate: "2024-01-01", ResolvedDate: "2024-01-03"},
		{TicketID: "T-2", Priority: "Low", Status: "Resolved", Category: "Hardware", Subject: "Mouse", CreatedDate: "2024-01-01", ResolvedDate: "2024-01-05"},
		{TicketID: "T-3", Priority: "High", Status: "Open", Category: "Network", Subject: "Wi-Fi", CreatedDate: "2024-01-04"},
	}
	for i := range seed {
		if _, err := s.InsertTicket(ctx, &seed[i]); err != nil {
			t.Fatalf("insert ticket: %v", err)
		}
	}
	if _, err := s.InsertTicket(ctx, &model.Ticket{TicketID: "T-1"}); !errors.Is(err, model.ErrConstraint) {
		t.Errorf("expected ErrConstraint for duplicate ticket id, got %v", err)
	}

	sum, err := s.TicketSummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Total != 3 || sum.Open != 1 || sum.HighPriority != 2 {
		t.Errorf("unexpected summary %+v", sum)
	}
	if sum.AvgResolutionDays == nil || *sum.AvgResolutionDays != 3 {
		t.Errorf("expected average resolution of 3 days, got %v", sum.AvgResolutionDays)
	}

	network, err := s.ListTickets(ctx, model.TicketFilter{Category: "Network"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(network) != 2 || network[0].TicketID != "T-3" || network[0].ResolvedDate != "" {
		t.Errorf("unexpected network tickets %+v", network)
	}

	if err := s.UpdateTicketStatus(ctx, "T-3", "Resolved"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if err := s.DeleteTicket(ctx, "T-2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteTicket(ctx, "T-404"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	byStatus, err := s.TicketsByStatus(ctx)
	if err != nil {
		t.Fatalf("by status: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0] != (model.Count{Label: "Resolved", Count: 2}) {
		t.Errorf("unexpected status counts %+v", byStatus)
	}

	byPriority, err := s.TicketsByPriority(ctx)
	if err != nil {
		t.Fatalf("by priority: %v", err)
	}
	if len(byPriority) != 1 || byPriority[0].Count != 2 {
		t.Errorf("unexpected priority counts %+v", byPriority)
	}
}

func TestCountsLabelNull(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	if _, err := s.InsertDataset(ctx, &model.Dataset{Name: "Orphan"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	counts, err := s.DatasetsByCategory(ctx)
	if err != nil {
		t.Fatalf("by category: %v", err)
	}
	if len(counts) != 1 || counts[0].Label != store.NoneLabel {
		t.Errorf("expected a %q group, got %+v", store.NoneLabel, counts)
	}
}

func TestAppendRowsAndLoadHistory(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	columns, err := s.TableColumns(ctx, model.TableITTickets)
	if err != nil {
		t.Fatalf("table columns: %v", err)
	}
	if len(columns) != 10 || columns[1] != "ticket_id" {
		t.Errorf("unexpected columns %v", columns)
	}
	if none, err := s.TableColumns(ctx, model.Table("nope")); err != nil || len(none) != 0 {
		t.Errorf("expected no columns for a missing table, got %v, %v", none, err)
	}

	n, err := s.AppendRows(ctx, model.TableITTickets, []string{"ticket_id", "priority"}, [][]any{
		{"T-1", "High"},
		{int64(1002), nil},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows appended, got %d", n)
	}

	refs, err := s.ReferenceValues(ctx, model.TableITTickets, "ticket_id")
	if err != nil {
		t.Fatalf("reference values: %v", err)
	}
	if !slices.Contains(refs, "T-1") || !slices.Contains(refs, "1002") || len(refs) != 2 {
		t.Errorf("expected ticket ids as text, got %v", refs)
	}
	if _, err := s.ReferenceValues(ctx, model.Table("nope"), "x"); err == nil {
		t.Error("expected error for a missing reference table")
	}

	_, err = s.AppendRows(ctx, model.TableITTickets, []string{"ticket_id"}, [][]any{{"T-9"}, {"T-1"}})
	if !errors.Is(err, model.ErrConstraint) {
		t.Errorf("expected ErrConstraint, got %v", err)
	}
	if refs, _ := s.ReferenceValues(ctx, model.TableITTickets, "ticket_id"); len(refs) != 2 {
		t.Errorf("expected failed append to roll back, got %v", refs)
	}

	rec := &model.LoadRecord{
		ID:          "00000000-0000-0000-0000-000000000001",
		Table:       model.TableITTickets,
		Source:      "it_tickets.csv",
		RowsRead:    2,
		RowsWritten: 2,
		Status:      model.LoadStatusLoaded,
	}
	if err := s.InsertLoadRecord(ctx, rec); err != nil {
		t.Fatalf("insert load record: %v", err)
	}
	loads, err := s.RecentLoads(ctx, 5)
	if err != nil {
		t.Fatalf("recent loads: %v", err)
	}
	if len(loads) != 1 || loads[0].ID != rec.ID || loads[0].Table != model.TableITTickets || loads[0].RowsWritten != 2 {
		t.Errorf("unexpected loads %+v", loads)
	}

	stats, err := s.TableStats(ctx)
	if err != nil {
		t.Fatalf("table stats: %v", err)
	}
	if stats[model.TableITTickets] != 2 || stats[model.TableLoadHistory] != 1 {
		t.Errorf("unexpected stats %v", stats)
	}
}
