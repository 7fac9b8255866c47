// Package datasource defines the contract between the translation
// pipeline and the databases it executes against. Concrete adapters
// live in the postgres and mssql subpackages.
package datasource

import (
	"context"
	"time"

	"github.com/asksql-labs/asksql-engine/pkg/schema"
)

// Dialect identifies the SQL flavor an adapter speaks. Prompt building
// and limit enforcement both branch on it.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMSSQL    Dialect = "mssql"
)

// MaxScanRows is the hard cap on rows an executor will pull from the
// database in a single query, regardless of the caller's MaxRows. It
// bounds the scan when the generated statement carries its own larger
// limit (or none at all).
const MaxScanRows = 100000

// ExecOptions bound a single statement execution.
type ExecOptions struct {
	// MaxRows caps the rows retained in the result set. Rows beyond it
	// are still counted toward RowCount but discarded.
	MaxRows int

	// Timeout is the per-statement deadline. Zero means no deadline
	// beyond the caller's context.
	Timeout time.Duration
}

// ResultSet holds the outcome of a successful execution.
type ResultSet struct {
	Columns []string
	Rows    [][]any

	// RowCount is the number of rows the statement produced (up to
	// MaxScanRows), which can exceed len(Rows) when MaxRows truncated
	// the retained set.
	RowCount int
}

// Truncated reports whether rows were discarded to honor MaxRows.
func (r *ResultSet) Truncated() bool {
	return r.RowCount > len(r.Rows)
}

// Introspector discovers the live schema of a datasource.
type Introspector interface {
	// Introspect returns the current table/column descriptor. A failure
	// here is fatal for translation: without a schema there is no
	// prompt to build.
	Introspect(ctx context.Context) (*schema.Descriptor, error)
}

// Executor runs a validated SQL statement against the datasource.
type Executor interface {
	// Execute runs sql under opts and returns its result set. Failures
	// are reported as *ExecError so callers can classify them.
	Execute(ctx context.Context, sql string, opts ExecOptions) (*ResultSet, error)
}

// Conn is a live connection to a datasource: it can describe itself,
// run statements, and be health-checked.
type Conn interface {
	Introspector
	Executor

	Dialect() Dialect
	Ping(ctx context.Context) error
	Close() error
}
