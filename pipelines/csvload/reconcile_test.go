// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package csvload

import (
	"testing"

	"github.com/mdhender/mdip/model"
)

func incidents(reporters ...any) *Batch {
	b := &Batch{Table: model.TableCyberIncidents, Columns: []string{"incident_type", "reported_by"}}
	for _, r := range reporters {
		b.Rows = append(b.Rows, []any{"Phishing", r})
	}
	return b
}

func tickets(ids ...any) *Batch {
	b := &Batch{Table: model.TableITTickets, Columns: []string{"ticket_id", "subject"}}
	for i, id := range ids {
		b.Rows = append(b.Rows, []any{id, i})
	}
	return b
}

func TestNullUnresolved(t *testing.T) {
	b := incidents("alice", " alice ", "mallory", nil, "Alice")
	refs := NewReferenceSet("alice", "bob")

	nulled := NullUnresolved(b, 1, refs)

	if nulled != 2 {
		t.Errorf("expected 2 nulled, got %d", nulled)
	}
	want := []any{"alice", "alice", nil, nil, nil}
	if len(b.Rows) != len(want) {
		t.Fatalf("expected rows to be kept, got %d", len(b.Rows))
	}
	for i, w := range want {
		if b.Rows[i][1] != w {
			t.Errorf("row %d: expected %#v, got %#v", i, w, b.Rows[i][1])
		}
	}
}

func TestNullUnresolved_EmptySet(t *testing.T) {
	b := incidents("alice", "bob")

	if nulled := NullUnresolved(b, 1, NewReferenceSet()); nulled != 2 {
		t.Errorf("expected 2 nulled, got %d", nulled)
	}
	for i, row := range b.Rows {
		if row[1] != nil {
			t.Errorf("row %d: expected null, got %#v", i, row[1])
		}
	}
}

func TestNullUnresolved_LeadingZeroUsername(t *testing.T) {
	b := incidents("0123", "123", " 0123")

	if nulled := NullUnresolved(b, 1, NewReferenceSet("0123")); nulled != 1 {
		t.Errorf("expected 1 nulled, got %d", nulled)
	}
	want := []any{"0123", nil, "0123"}
	for i, w := range want {
		if b.Rows[i][1] != w {
			t.Errorf("row %d: expected %#v, got %#v", i, w, b.Rows[i][1])
		}
	}
}

func TestDedupAndSkipExisting(t *testing.T) {
	b := tickets("T-100", "T-100", "T-200", "T-300", "T-100")

	dupes, skipped := DedupAndSkipExisting(b, 0, NewReferenceSet("T-200"))

	if dupes != 2 {
		t.Errorf("expected 2 duplicates, got %d", dupes)
	}
	if skipped != 1 {
		t.Errorf("expected 1 skipped, got %d", skipped)
	}
	if len(b.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(b.Rows))
	}
	if b.Rows[0][0] != "T-100" || b.Rows[0][1] != 0 {
		t.Errorf("expected first occurrence of T-100 to be kept, got %v", b.Rows[0])
	}
	if b.Rows[1][0] != "T-300" {
		t.Errorf("expected T-300, got %v", b.Rows[1])
	}
}

func TestDedupAndSkipExisting_KeepsFileOrder(t *testing.T) {
	b := tickets("A1", "A1", "A2")

	dupes, skipped := DedupAndSkipExisting(b, 0, NewReferenceSet())

	if dupes != 1 || skipped != 0 {
		t.Errorf("expected 1 duplicate and 0 skipped, got %d and %d", dupes, skipped)
	}
	if len(b.Rows) != 2 || b.Rows[0][0] != "A1" || b.Rows[1][0] != "A2" {
		t.Errorf("expected [A1 A2], got %v", b.Rows)
	}
}

func TestDedupAndSkipExisting_Nulls(t *testing.T) {
	b := tickets(nil, "T-1", nil)

	dupes, skipped := DedupAndSkipExisting(b, 0, NewReferenceSet("T-1"))

	if dupes != 1 || skipped != 1 {
		t.Errorf("expected 1 duplicate and 1 skipped, got %d and %d", dupes, skipped)
	}
	if len(b.Rows) != 1 || b.Rows[0][0] != nil {
		t.Errorf("expected a single null-id row, got %v", b.Rows)
	}
}

func TestDedupAndSkipExisting_IDsCompareAsText(t *testing.T) {
	b := tickets("007", "7", "1.0", "1", "007")

	dupes, skipped := DedupAndSkipExisting(b, 0, NewReferenceSet("1.0"))

	if dupes != 1 || skipped != 1 {
		t.Errorf("expected 1 duplicate and 1 skipped, got %d and %d", dupes, skipped)
	}
	want := []any{"007", "7", "1"}
	if len(b.Rows) != len(want) {
		t.Fatalf("expected %d rows, got %v", len(want), b.Rows)
	}
	for i, w := range want {
		if b.Rows[i][0] != w {
			t.Errorf("row %d: expected %#v, got %#v", i, w, b.Rows[i][0])
		}
	}
}

func TestRuleFor(t *testing.T) {
	tests := []struct {
		table   model.Table
		columns []string
		want    RuleKind
	}{
		{model.TableCyberIncidents, []string{"date", "reported_by"}, RuleNullUnresolved},
		{model.TableCyberIncidents, []string{"date"}, RuleNone},
		{model.TableITTickets, []string{"ticket_id", "subject"}, RuleDedupAndSkipExisting},
		{model.TableITTickets, []string{"subject"}, RuleNone},
		{model.TableDatasets, []string{"dataset_name"}, RuleNone},
		{model.TableUsers, []string{"username"}, RuleNone},
	}
	for _, tt := range tests {
		if got := RuleFor(tt.table, tt.columns); got.Kind != tt.want {
			t.Errorf("RuleFor(%s, %v) = %s, want %s", tt.table, tt.columns, got.Kind, tt.want)
		}
	}

	rule := RuleFor(model.TableCyberIncidents, []string{"reported_by"})
	if rule.RefTable != model.TableUsers || rule.RefColumn != "username" {
		t.Errorf("expected users.username reference, got %s.%s", rule.RefTable, rule.RefColumn)
	}
}
