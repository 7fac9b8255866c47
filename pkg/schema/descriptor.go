// Package schema models the database schema snapshot that grounds SQL
// generation and validation.
package schema

import (
	"strings"
)

// Column describes a single column with its dialect-independent type.
type Column struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Table describes a table and its columns in ordinal order.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Descriptor is an immutable snapshot of the tables visible to the
// connected user, in introspection order. It is taken once per session and
// owned by the pipeline for the lifetime of one question-answer cycle.
type Descriptor struct {
	Tables []Table `json:"tables"`
}

// Empty reports whether the descriptor contains no tables.
func (d *Descriptor) Empty() bool {
	return d == nil || len(d.Tables) == 0
}

// HasTable reports whether the descriptor contains a table with the given
// name. Matching is case-insensitive.
func (d *Descriptor) HasTable(name string) bool {
	_, ok := d.Table(name)
	return ok
}

// Table returns the table with the given name, case-insensitively.
func (d *Descriptor) Table(name string) (*Table, bool) {
	if d == nil {
		return nil, false
	}
	for i := range d.Tables {
		if strings.EqualFold(d.Tables[i].Name, name) {
			return &d.Tables[i], true
		}
	}
	return nil, false
}

// HasColumn reports whether the named table has the named column,
// case-insensitively.
func (d *Descriptor) HasColumn(table, column string) bool {
	t, ok := d.Table(table)
	if !ok {
		return false
	}
	return t.HasColumn(column)
}

// HasColumn reports whether the table has the named column,
// case-insensitively.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

// Equal reports whether two descriptors describe the same schema: same
// tables with the same columns and types, in the same order. Used to verify
// that re-introspecting an unchanged schema is idempotent.
func (d *Descriptor) Equal(other *Descriptor) bool {
	if d == nil || other == nil {
		return d == other
	}
	if len(d.Tables) != len(other.Tables) {
		return false
	}
	for i, t := range d.Tables {
		o := other.Tables[i]
		if t.Name != o.Name || len(t.Columns) != len(o.Columns) {
			return false
		}
		for j, c := range t.Columns {
			if c != o.Columns[j] {
				return false
			}
		}
	}
	return true
}

// Format renders the descriptor as the compact schema block embedded in
// prompts, one line per table:
//
//	Table sales: store_id (integer), sold_price (decimal), sold_date (date)
//
// Output is deterministic given an identical descriptor, so prompts are
// reproducible for testing.
func (d *Descriptor) Format() string {
	var b strings.Builder
	for _, t := range d.Tables {
		b.WriteString("Table ")
		b.WriteString(t.Name)
		b.WriteString(": ")
		for i, c := range t.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(c.Name)
			b.WriteString(" (")
			b.WriteString(string(c.Type))
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
