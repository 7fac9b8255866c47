// Package pipeline turns a natural-language question into an executed
// SQL statement: prompt building, completion, extraction, validation,
// execution, and the retry loop that ties them together.
package pipeline

import (
	"time"

	"github.com/asksql-labs/asksql-engine/pkg/retry"
	"github.com/asksql-labs/asksql-engine/pkg/schema"
)

// Options bound a single translate-and-run call.
type Options struct {
	// MaxRows caps the rows retained in the result; the reported
	// RowCount still reflects what the statement produced.
	MaxRows int

	// RetryBudget is the number of re-attempts after the first try.
	// Zero means a single attempt.
	RetryBudget int

	// AllowMutations permits INSERT/UPDATE/DELETE verbs. DDL is never
	// permitted.
	AllowMutations bool

	// StatementTimeout aborts a single execution.
	StatementTimeout time.Duration

	// TransientRetry configures in-attempt backoff when the completion
	// service is unavailable. These retries do not consume the pipeline
	// budget; only their final failure does. Nil disables backoff so a
	// transient failure consumes a pipeline attempt.
	TransientRetry *retry.Config
}

// DefaultOptions returns the standard bounds.
func DefaultOptions() Options {
	return Options{
		MaxRows:          1000,
		RetryBudget:      3,
		AllowMutations:   false,
		StatementTimeout: 30 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxRows < 1 {
		o.MaxRows = def.MaxRows
	}
	if o.RetryBudget < 0 {
		o.RetryBudget = 0
	}
	if o.StatementTimeout <= 0 {
		o.StatementTimeout = def.StatementTimeout
	}
	return o
}

// TranslationRequest carries everything the prompt builder needs.
// Immutable once built; retries construct a new one with the grown
// attempt history.
type TranslationRequest struct {
	Question      string
	Schema        *schema.Descriptor
	PriorAttempts []AttemptRecord
}

// AttemptRecord captures one failed attempt. Appended after each
// failure, never mutated.
type AttemptRecord struct {
	GeneratedText string
	ExtractedSQL  string // empty when extraction itself failed
	FailureKind   ErrorKind
	ErrorDetail   string
}

// ExecutionResult is the successful outcome of a pipeline run. SQL is
// the statement that produced the rows; Attempts counts the full
// cycles spent, including the successful one.
type ExecutionResult struct {
	Columns  []string
	Rows     [][]any
	RowCount int
	SQL      string
	Attempts int
}

// Truncated reports whether MaxRows discarded rows.
func (r *ExecutionResult) Truncated() bool {
	return r.RowCount > len(r.Rows)
}
