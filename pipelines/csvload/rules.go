// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package csvload

import "github.com/mdhender/mdip/model"

// RuleKind identifies a reconciliation rule.
type RuleKind int

const (
	// RuleNone appends the batch unchanged.
	RuleNone RuleKind = iota
	// RuleNullUnresolved nulls values of Column that are not present in RefTable.RefColumn.
	RuleNullUnresolved
	// RuleDedupAndSkipExisting drops rows whose Column repeats within the batch
	// or already exists in the target table.
	RuleDedupAndSkipExisting
)

func (k RuleKind) String() string {
	switch k {
	case RuleNone:
		return "none"
	case RuleNullUnresolved:
		return "null-unresolved-reference"
	case RuleDedupAndSkipExisting:
		return "dedup-and-skip-existing"
	}
	return "unknown"
}

// Rule is the reconciliation applied to a batch before it is written.
type Rule struct {
	Kind      RuleKind
	Column    string
	RefTable  model.Table
	RefColumn string
}

// ruleFor returns the rule for loading into table, ignoring columns.
func ruleFor(table model.Table) Rule {
	switch table {
	case model.TableCyberIncidents:
		return Rule{
			Kind:      RuleNullUnresolved,
			Column:    "reported_by",
			RefTable:  model.TableUsers,
			RefColumn: "username",
		}
	case model.TableITTickets:
		return Rule{
			Kind:      RuleDedupAndSkipExisting,
			Column:    "ticket_id",
			RefTable:  model.TableITTickets,
			RefColumn: "ticket_id",
		}
	}
	return Rule{Kind: RuleNone}
}

// RuleFor returns the rule that applies to a batch with the given columns.
// A rule whose column is absent from the batch does not apply.
func RuleFor(table model.Table, columns []string) Rule {
	rule := ruleFor(table)
	if rule.Kind == RuleNone {
		return rule
	}
	for _, c := range columns {
		if c == rule.Column {
			return rule
		}
	}
	return Rule{Kind: RuleNone}
}
