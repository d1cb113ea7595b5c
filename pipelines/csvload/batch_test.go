// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package csvload

import (
	"strings"
	"testing"

	"github.com/mdhender/mdip/model"
)

func TestCellValue(t *testing.T) {
	tests := []struct {
		cell string
		want any
	}{
		{"", nil},
		{"42", "42"},
		{"007", "007"},
		{"1.0", "1.0"},
		{"1e3", "1e3"},
		{"T-100", "T-100"},
		{" alice ", " alice "},
		{"2024-01-15", "2024-01-15"},
	}
	for _, tt := range tests {
		got := cellValue(tt.cell)
		if got != tt.want {
			t.Errorf("cellValue(%q) = %#v, want %#v", tt.cell, got, tt.want)
		}
	}
}

func TestKeyOf(t *testing.T) {
	tests := []struct {
		v    any
		want string
		ok   bool
	}{
		{nil, "", false},
		{"T-100", "T-100", true},
		{"007", "007", true},
		{"1.0", "1.0", true},
		{int64(1001), "1001", true},
	}
	for _, tt := range tests {
		got, ok := keyOf(tt.v)
		if got != tt.want || ok != tt.ok {
			t.Errorf("keyOf(%#v) = %q, %v, want %q, %v", tt.v, got, ok, tt.want, tt.ok)
		}
	}
}

func TestReadBatch(t *testing.T) {
	input := "\xEF\xBB\xBFticket_id,priority,subject\nT-100,High,\"Printer, 2nd floor\"\nT-101,,VPN\n"

	b, err := ReadBatch(strings.NewReader(input), model.TableITTickets, "tickets.csv")
	if err != nil {
		t.Fatalf("read batch: %v", err)
	}
	if b.Table != model.TableITTickets || b.Source != "tickets.csv" {
		t.Errorf("expected table/source to be carried, got %q/%q", b.Table, b.Source)
	}
	if got := strings.Join(b.Columns, "|"); got != "ticket_id|priority|subject" {
		t.Errorf("expected BOM stripped from first column, got columns %q", got)
	}
	if len(b.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(b.Rows))
	}
	if b.Rows[0][2] != "Printer, 2nd floor" {
		t.Errorf("expected quoted cell, got %#v", b.Rows[0][2])
	}
	if b.Rows[1][1] != nil {
		t.Errorf("expected empty cell to be null, got %#v", b.Rows[1][1])
	}
	if b.Rows[0][0] != "T-100" {
		t.Errorf("expected cell text as read, got %#v", b.Rows[0][0])
	}
	if b.ColumnIndex("subject") != 2 || b.ColumnIndex("missing") != -1 {
		t.Error("unexpected column index")
	}
}

func TestReadBatch_HeaderOnly(t *testing.T) {
	b, err := ReadBatch(strings.NewReader("id,name\n"), model.TableUsers, "users.csv")
	if err != nil {
		t.Fatalf("read batch: %v", err)
	}
	if len(b.Columns) != 2 || len(b.Rows) != 0 {
		t.Errorf("expected 2 columns and no rows, got %d and %d", len(b.Columns), len(b.Rows))
	}
}

func TestReadBatch_Empty(t *testing.T) {
	b, err := ReadBatch(strings.NewReader(""), model.TableUsers, "users.csv")
	if err != nil {
		t.Fatalf("read batch: %v", err)
	}
	if len(b.Columns) != 0 || len(b.Rows) != 0 {
		t.Errorf("expected empty batch, got %+v", b)
	}
}

func TestReadBatch_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"ragged row", "a,b\n1,2\n3\n"},
		{"duplicate column", "a,a\n1,2\n"},
		{"unnamed column", "a,,c\n1,2,3\n"},
		{"bare quote", "a,b\n1,x\"y\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadBatch(strings.NewReader(tt.input), model.TableUsers, "x.csv"); err == nil {
				t.Error("expected error")
			}
		})
	}
}
