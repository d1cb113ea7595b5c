// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package csvload

import "strings"

// ReferenceSet is the set of keys present in one column of one table.
type ReferenceSet map[string]struct{}

// NewReferenceSet returns a set holding values.
func NewReferenceSet(values ...string) ReferenceSet {
	set := make(ReferenceSet, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// Contains reports whether key is in the set.
func (s ReferenceSet) Contains(key string) bool {
	_, ok := s[key]
	return ok
}

// NullUnresolved checks the value in column col of every row against refs
// after trimming surrounding whitespace. A match is stored trimmed, so
// " alice " is written as "alice"; anything else becomes null. The match is
// exact and case-sensitive. Rows are never dropped.
// It returns the number of non-null values it nulled.
func NullUnresolved(b *Batch, col int, refs ReferenceSet) int {
	nulled := 0
	for _, row := range b.Rows {
		key, ok := keyOf(row[col])
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if refs.Contains(key) {
			row[col] = key
			continue
		}
		row[col] = nil
		nulled++
	}
	return nulled
}

// DedupAndSkipExisting removes rows that repeat the value in column col,
// keeping the first occurrence in file order, and then removes rows whose
// value is already in existing. Null values are duplicates of each other
// and never match existing.
// It returns the number of rows removed by each step.
func DedupAndSkipExisting(b *Batch, col int, existing ReferenceSet) (duplicates, skipped int) {
	seen := make(map[string]bool, len(b.Rows))
	seenNull := false
	kept := b.Rows[:0]
	for _, row := range b.Rows {
		key, ok := keyOf(row[col])
		if !ok {
			if seenNull {
				duplicates++
				continue
			}
			seenNull = true
			kept = append(kept, row)
			continue
		}
		if seen[key] {
			duplicates++
			continue
		}
		seen[key] = true
		kept = append(kept, row)
	}

	rows := kept[:0]
	for _, row := range kept {
		if key, ok := keyOf(row[col]); ok && existing.Contains(key) {
			skipped++
			continue
		}
		rows = append(rows, row)
	}
	// release dropped rows
	for i := len(rows); i < len(b.Rows); i++ {
		b.Rows[i] = nil
	}
	b.Rows = rows

	return duplicates, skipped
}
