// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package csvload

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/mdhender/mdip/model"
)

// Batch is the full content of one CSV source.
// Every row has exactly one value per column.
// Values are nil for an empty cell and otherwise the cell text as read;
// the target column's affinity decides how SQLite stores it.
type Batch struct {
	Table   model.Table
	Source  string
	Columns []string
	Rows    [][]any
}

// ColumnIndex returns the position of name in the batch, or -1.
func (b *Batch) ColumnIndex(name string) int {
	for i, c := range b.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadBatch reads an entire CSV stream. The first record names the columns.
// An input with no header at all yields a batch with no columns and no rows.
func ReadBatch(r io.Reader, table model.Table, source string) (*Batch, error) {
	br := bufio.NewReader(r)
	if lead, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(lead, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)

	b := &Batch{Table: table, Source: source}

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return b, nil
	} else if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		if name == "" {
			return nil, fmt.Errorf("header: column %d has no name", i+1)
		} else if seen[name] {
			return nil, fmt.Errorf("header: duplicate column %q", name)
		}
		seen[name] = true
	}
	b.Columns = header

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, err
		}
		row := make([]any, len(record))
		for i, cell := range record {
			row[i] = cellValue(cell)
		}
		b.Rows = append(b.Rows, row)
	}

	return b, nil
}

// cellValue maps an empty cell to null and keeps any other cell verbatim.
func cellValue(cell string) any {
	if cell == "" {
		return nil
	}
	return cell
}

// keyOf returns the text used to compare v against a reference set.
// Null has no key.
func keyOf(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	default:
		return fmt.Sprint(t), true
	}
}
