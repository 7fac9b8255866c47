// Package sql extracts, validates, and screens generated SQL before it
// reaches a database.
package sql

import (
	"errors"
	"fmt"
)

var (
	// ErrNoStatement indicates no SQL statement could be found in the
	// model's completion text.
	ErrNoStatement = errors.New("no SQL statement found in completion")

	// ErrEmptyStatement indicates the candidate statement was blank
	// after normalization.
	ErrEmptyStatement = errors.New("statement is empty")

	// ErrMultipleStatements indicates the query contains multiple SQL
	// statements; only single statements are permitted.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")
)

// DisallowedVerbError indicates the statement's main verb is not
// permitted under the current execution policy.
type DisallowedVerbError struct {
	Verb string
}

func (e *DisallowedVerbError) Error() string {
	return fmt.Sprintf("statement verb %q is not allowed", e.Verb)
}

// IdentifierKind distinguishes what a failed identifier lookup was
// searching for.
type IdentifierKind string

const (
	IdentifierTable  IdentifierKind = "table"
	IdentifierColumn IdentifierKind = "column"
)

// UnknownIdentifierError indicates the statement references a table or
// column that is not in the schema. The offending name feeds back into
// the regeneration prompt.
type UnknownIdentifierError struct {
	Kind IdentifierKind
	Name string
}

func (e *UnknownIdentifierError) Error() string {
	return fmt.Sprintf("unknown %s %q: not present in the schema", e.Kind, e.Name)
}
