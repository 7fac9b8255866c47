package pipeline

import (
	"errors"
	"fmt"

	"github.com/asksql-labs/asksql-engine/pkg/apperrors"
	"github.com/asksql-labs/asksql-engine/pkg/datasource"
	"github.com/asksql-labs/asksql-engine/pkg/llm"
	sqlcheck "github.com/asksql-labs/asksql-engine/pkg/sql"
)

// ErrorKind is the typed failure taxonomy the retry loop dispatches on.
// No decision in the pipeline matches on error message text.
type ErrorKind string

const (
	KindSchemaUnavailable  ErrorKind = "schema_unavailable"
	KindQuestionRejected   ErrorKind = "question_rejected"
	KindServiceUnavailable ErrorKind = "service_unavailable"
	KindServiceRejected    ErrorKind = "service_rejected"
	KindExtractionFailed   ErrorKind = "extraction_failed"
	KindMultipleStatements ErrorKind = "multiple_statements"
	KindDisallowedVerb     ErrorKind = "disallowed_verb"
	KindUnknownIdentifier  ErrorKind = "unknown_identifier"
	KindSyntaxError        ErrorKind = "syntax_error"
	KindPermissionDenied   ErrorKind = "permission_denied"
	KindTimeout            ErrorKind = "timeout"
	KindExecutionFailed    ErrorKind = "execution_failed"
	KindConnectionLost     ErrorKind = "connection_lost"
)

// retryable reports whether a failure of this kind is worth another
// attempt with corrective feedback.
func (k ErrorKind) retryable() bool {
	switch k {
	case KindSchemaUnavailable, KindQuestionRejected, KindServiceRejected, KindConnectionLost:
		return false
	default:
		return true
	}
}

// PipelineFailure is the terminal error surfaced to the caller when the
// budget is exhausted or a non-retryable failure occurs. It always
// carries the full attempt history.
type PipelineFailure struct {
	Kind     ErrorKind
	Message  string
	Attempts []AttemptRecord
}

func (f *PipelineFailure) Error() string {
	return fmt.Sprintf("pipeline failed (%s) after %d attempt(s): %s", f.Kind, len(f.Attempts), f.Message)
}

// Unwrap maps fatal failure kinds to their sentinels so callers can use
// errors.Is without inspecting Kind.
func (f *PipelineFailure) Unwrap() error {
	switch f.Kind {
	case KindSchemaUnavailable:
		return apperrors.ErrSchemaUnavailable
	case KindQuestionRejected:
		return apperrors.ErrQuestionRejected
	case KindConnectionLost:
		return apperrors.ErrConnectionLost
	default:
		return nil
	}
}

// classifyCompletionError maps a completion client failure. Anything
// the client marked non-retryable is a rejection; prompt feedback
// cannot fix a failure at the completion boundary, so retrying would
// only burn the budget.
func classifyCompletionError(err error) ErrorKind {
	if llm.ClassifyError(err).Retryable {
		return KindServiceUnavailable
	}
	return KindServiceRejected
}

// classifyValidationError maps extractor and validator failures.
func classifyValidationError(err error) ErrorKind {
	switch {
	case errors.Is(err, sqlcheck.ErrNoStatement), errors.Is(err, sqlcheck.ErrEmptyStatement):
		return KindExtractionFailed
	case errors.Is(err, sqlcheck.ErrMultipleStatements):
		return KindMultipleStatements
	default:
	}

	var verbErr *sqlcheck.DisallowedVerbError
	if errors.As(err, &verbErr) {
		return KindDisallowedVerb
	}
	var idErr *sqlcheck.UnknownIdentifierError
	if errors.As(err, &idErr) {
		return KindUnknownIdentifier
	}
	return KindExtractionFailed
}

// classifyExecutionError maps a datasource failure.
func classifyExecutionError(err error) ErrorKind {
	var execErr *datasource.ExecError
	if !errors.As(err, &execErr) {
		return KindExecutionFailed
	}
	switch execErr.Kind {
	case datasource.ExecSyntax:
		return KindSyntaxError
	case datasource.ExecPermission:
		return KindPermissionDenied
	case datasource.ExecTimeout:
		return KindTimeout
	case datasource.ExecConnection:
		return KindConnectionLost
	default:
		return KindExecutionFailed
	}
}
