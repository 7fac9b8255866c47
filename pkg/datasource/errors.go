package datasource

import "fmt"

// ExecErrorKind classifies execution failures by what the pipeline can
// do about them.
type ExecErrorKind string

const (
	// ExecSyntax covers statements the database refused to parse or
	// resolve (bad grammar, unknown relation). Retryable: the database's
	// message is useful feedback for regeneration.
	ExecSyntax ExecErrorKind = "syntax"

	// ExecPermission covers statements the connected role may not run.
	ExecPermission ExecErrorKind = "permission"

	// ExecTimeout covers statements cancelled by the statement deadline.
	ExecTimeout ExecErrorKind = "timeout"

	// ExecConnection covers lost or unusable connections. Fatal: no
	// rephrasing of the statement will help.
	ExecConnection ExecErrorKind = "connection"

	// ExecOther covers everything else the database reported.
	ExecOther ExecErrorKind = "other"
)

// ExecError wraps a database execution failure with its classification
// and the dialect-specific message the database produced.
type ExecError struct {
	Kind ExecErrorKind

	// Message is the database's own description of the failure,
	// suitable for feeding back into a regeneration prompt.
	Message string

	Cause error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("execute statement: %s: %s", e.Kind, e.Message)
}

func (e *ExecError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether regenerating the statement could succeed.
// Connection failures cannot be fixed by a better statement.
func (e *ExecError) IsRetryable() bool {
	return e.Kind != ExecConnection
}

// NewExecError builds a classified execution error.
func NewExecError(kind ExecErrorKind, message string, cause error) *ExecError {
	return &ExecError{Kind: kind, Message: message, Cause: cause}
}
